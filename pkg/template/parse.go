package template

import (
	"strings"

	"github.com/valyala/bytebufferpool"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Placeholder marks where rendered items are spliced into the layout. Parse
// inserts it at most once.
const Placeholder = "<<<<Notifications>>>>"

// Item variant names, in selection priority order.
const (
	VariantButtonAndImage = "NOTIFICATION WITH BUTTON AND IMAGE"
	VariantButton         = "NOTIFICATION WITH BUTTON"
	VariantImage          = "NOTIFICATION WITH IMAGE"
	VariantDefault        = "NOTIFICATION"
)

const (
	commentOpen  = "<!--"
	commentClose = "-->"
	startTag     = "START:"
	endTag       = "END:"
)

var upper = cases.Upper(language.Und)

// ParsedTemplate is a channel template split into its layout and item
// fragments. It is never modified after Parse returns.
type ParsedTemplate struct {
	// Text is the layout with Placeholder where items go.
	Text string
	// ItemTemplates maps upper-cased variant names to fragment bodies.
	ItemTemplates map[string]string

	// implicit is set when the body had no markers at all and doubles as the
	// item fragment.
	implicit bool
}

// Parse splits a raw template body into layout and item fragments.
//
// A body without any START marker is used as-is for both the layout and the
// NOTIFICATION fragment. Otherwise the body must define NOTIFICATION or
// ErrMissingDefaultVariant is returned. An unterminated marker ends the scan:
// whatever is left becomes the layout.
func Parse(body string) (*ParsedTemplate, error) {
	if strings.TrimSpace(body) == "" {
		return nil, ErrMissingDefaultVariant
	}

	t := &ParsedTemplate{ItemTemplates: make(map[string]string)}

	layout := body
	found := false
	for {
		next, name, inner, ok := extract(layout)
		if !ok {
			break
		}
		t.ItemTemplates[upper.String(name)] = inner
		layout = next
		found = true
	}

	if !found && !hasStartMarker(body) {
		t.Text = body
		t.ItemTemplates[VariantDefault] = body
		t.implicit = true
		return t, nil
	}

	if _, ok := t.ItemTemplates[VariantDefault]; !ok {
		return nil, ErrMissingDefaultVariant
	}

	t.Text = layout
	return t, nil
}

// extract removes the first complete marker pair from s. The removed region is
// replaced with Placeholder unless s already contains it.
func extract(s string) (next, name, inner string, ok bool) {
	startOuter, startInner, name, ok := findStart(s)
	if !ok {
		return s, "", "", false
	}

	endInner, endOuter, ok := findEnd(s, startInner, name)
	if !ok {
		return s, "", "", false
	}

	replacement := Placeholder
	if strings.Contains(s, Placeholder) {
		replacement = ""
	}

	next = buffers.render(func(b *bytebufferpool.ByteBuffer) {
		b.WriteString(s[:startOuter])
		b.WriteString(replacement)
		b.WriteString(s[endOuter:])
	})

	return next, name, s[startInner:endInner], true
}

// findStart locates `<!--\s*START:<name>-->` followed by optional line breaks.
// The marker must close on the line it opens.
func findStart(s string) (outer, inner int, name string, ok bool) {
	for from := 0; ; {
		i := strings.Index(s[from:], commentOpen)
		if i < 0 {
			return 0, 0, "", false
		}
		outer = from + i
		from = outer + len(commentOpen)

		p := skipSpace(s, from)
		if !hasPrefixFold(s[p:], startTag) {
			continue
		}
		p += len(startTag)

		line := s[p:]
		if nl := strings.IndexByte(line, '\n'); nl >= 0 {
			line = line[:nl]
		}
		c := strings.Index(line, commentClose)
		if c < 0 {
			continue
		}

		name = strings.TrimSpace(line[:c])
		inner = skipLineBreaks(s, p+c+len(commentClose))
		return outer, inner, name, true
	}
}

func hasStartMarker(s string) bool {
	_, _, _, ok := findStart(s)
	return ok
}

// findEnd locates `<!--\s*END:\s*<name>\s*-->` at or after from.
func findEnd(s string, from int, name string) (inner, outer int, ok bool) {
	for {
		i := strings.Index(s[from:], commentOpen)
		if i < 0 {
			return 0, 0, false
		}
		inner = from + i
		from = inner + len(commentOpen)

		p := skipSpace(s, from)
		if !hasPrefixFold(s[p:], endTag) {
			continue
		}
		p = skipSpace(s, p+len(endTag))
		if !hasPrefixFold(s[p:], name) {
			continue
		}
		p = skipSpace(s, p+len(name))
		if !strings.HasPrefix(s[p:], commentClose) {
			continue
		}

		return inner, skipLineBreaks(s, p+len(commentClose)), true
	}
}

func skipSpace(s string, i int) int {
	for i < len(s) {
		switch s[i] {
		case ' ', '\t', '\n', '\r', '\f', '\v':
			i++
		default:
			return i
		}
	}
	return i
}

func skipLineBreaks(s string, i int) int {
	for i < len(s) && (s[i] == '\r' || s[i] == '\n') {
		i++
	}
	return i
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}
