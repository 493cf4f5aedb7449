package template

import (
	"strings"

	"github.com/valyala/bytebufferpool"
)

// Substitute replaces `{key}` and `{{ key }}` placeholders in text with values
// from props. Keys are dotted identifiers matched case-insensitively; a key
// with no value renders as an empty string. Braces that do not enclose a
// valid key (CSS rules, JSON) are copied verbatim.
func Substitute(text string, props map[string]string) string {
	if strings.IndexByte(text, '{') < 0 {
		return text
	}

	return buffers.render(func(b *bytebufferpool.ByteBuffer) {
		substituteInto(b, text, props)
	})
}

func substituteInto(b *bytebufferpool.ByteBuffer, text string, props map[string]string) {
	for {
		i := strings.IndexByte(text, '{')
		if i < 0 {
			b.WriteString(text)
			return
		}
		b.WriteString(text[:i])
		text = text[i:]

		open, closing := "{", "}"
		if strings.HasPrefix(text, "{{") {
			open, closing = "{{", "}}"
		}

		end := strings.Index(text[len(open):], closing)
		if end < 0 {
			b.WriteString(text)
			return
		}

		key := strings.TrimSpace(text[len(open) : len(open)+end])
		if !validKey(key) {
			b.WriteByte('{')
			text = text[1:]
			continue
		}

		b.WriteString(lookup(props, key))
		text = text[len(open)+end+len(closing):]
	}
}

func validKey(key string) bool {
	if key == "" {
		return false
	}
	for i := 0; i < len(key); i++ {
		c := key[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '.', c == '_', c == '-':
		default:
			return false
		}
	}
	return true
}

// lookup prefers the exact key. Among keys that differ from it only in case,
// the smallest in byte order wins.
func lookup(props map[string]string, key string) string {
	if v, ok := props[key]; ok {
		return v
	}
	var match, value string
	for k, v := range props {
		if strings.EqualFold(k, key) && (match == "" || k < match) {
			match, value = k, v
		}
	}
	return value
}
