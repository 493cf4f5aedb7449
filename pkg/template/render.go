package template

import (
	"maps"
	"strings"

	"github.com/valyala/bytebufferpool"
)

// SizeEmailSmall is the image size tag passed to the ImageFormatter.
const SizeEmailSmall = "EmailSmall"

// Per-item property keys available inside item fragments.
const (
	PropBody        = "notification.body"
	PropConfirmText = "notification.confirmText"
	PropConfirmURL  = "notification.confirmUrl"
	PropImageLarge  = "notification.imageLarge"
	PropImageSmall  = "notification.imageSmall"
	PropSubject     = "notification.subject"
)

// Formatting holds the render-time fields of a notification. All fields are optional.
type Formatting struct {
	Subject     string `json:"subject,omitempty"`
	Body        string `json:"body,omitempty"`
	ConfirmText string `json:"confirm_text,omitempty"`
	ImageSmall  string `json:"image_small,omitempty"`
	ImageLarge  string `json:"image_large,omitempty"`
	LinkText    string `json:"link_text,omitempty"`
	LinkURL     string `json:"link_url,omitempty"`
}

// Item is one notification in a digest.
type Item struct {
	Formatting  Formatting `json:"formatting"`
	ConfirmURL  string     `json:"confirm_url,omitempty"`
	TrackingURL string     `json:"tracking_url,omitempty"`
}

// ImageFormatter resolves an image reference into a deliverable URL for a
// named size. It returns "" when there is no image.
type ImageFormatter interface {
	Format(ref, size string) string
}

// ImageFormatterFunc adapts a function to ImageFormatter.
type ImageFormatterFunc func(ref, size string) string

// Format calls f(ref, size).
func (f ImageFormatterFunc) Format(ref, size string) string {
	return f(ref, size)
}

// Render merges items into the template. Top-level props are substituted
// into the layout before the items are spliced in, so notification content is
// never re-interpreted as placeholders. A nil images formatter passes image
// references through unchanged.
func (t *ParsedTemplate) Render(items []Item, props map[string]string, asHTML bool, images ImageFormatter) string {
	if images == nil {
		images = ImageFormatterFunc(func(ref, _ string) string { return ref })
	}

	itemProps := make(map[string]string, len(props)+6)

	rendered := buffers.render(func(b *bytebufferpool.ByteBuffer) {
		for _, item := range items {
			fragment := t.variantFor(item)

			clear(itemProps)
			if t.implicit {
				// The whole body is the fragment, so top-level keys resolve per item.
				maps.Copy(itemProps, props)
			}
			itemProps[PropBody] = itemBody(item.Formatting, asHTML)
			itemProps[PropConfirmText] = item.Formatting.ConfirmText
			itemProps[PropConfirmURL] = item.ConfirmURL
			// Both images use the small size tag.
			itemProps[PropImageLarge] = images.Format(item.Formatting.ImageLarge, SizeEmailSmall)
			itemProps[PropImageSmall] = images.Format(item.Formatting.ImageSmall, SizeEmailSmall)
			itemProps[PropSubject] = itemSubject(item.Formatting, asHTML)

			substituteInto(b, fragment, itemProps)
			b.WriteByte('\n')

			if asHTML && item.TrackingURL != "" {
				b.WriteString(`<img height="0" width="0" src="`)
				b.WriteString(item.TrackingURL)
				b.WriteString(`" />`)
			}
		}
	})

	if t.implicit {
		return rendered
	}

	return replacePlaceholder(Substitute(t.Text, props), rendered)
}

// variantFor picks the first available fragment in priority order.
func (t *ParsedTemplate) variantFor(item Item) string {
	f := item.Formatting
	hasButton := !isBlank(f.ConfirmText) && !isBlank(item.ConfirmURL)
	hasImage := !isBlank(f.ImageSmall) || !isBlank(f.ImageLarge)

	if hasButton && hasImage {
		if v := t.ItemTemplates[VariantButtonAndImage]; !isBlank(v) {
			return v
		}
	}
	if hasButton {
		if v := t.ItemTemplates[VariantButton]; !isBlank(v) {
			return v
		}
	}
	if hasImage {
		if v := t.ItemTemplates[VariantImage]; !isBlank(v) {
			return v
		}
	}
	return t.ItemTemplates[VariantDefault]
}

func itemSubject(f Formatting, asHTML bool) string {
	if asHTML && !isBlank(f.LinkURL) {
		return `<a href="` + f.LinkURL + `" target="_blank" rel="noopener">` + f.Subject + `</a>`
	}
	return f.Subject
}

func itemBody(f Formatting, asHTML bool) string {
	if asHTML && !isBlank(f.LinkText) && !isBlank(f.LinkURL) {
		anchor := `<a href="` + f.LinkURL + `">` + f.LinkText + `</a>`
		if f.Body != "" {
			return f.Body + " " + anchor
		}
		return anchor
	}

	if !isBlank(f.LinkURL) {
		if f.Body != "" {
			return f.Body + " " + f.LinkURL
		}
		return f.LinkURL
	}

	return f.Body
}

// replacePlaceholder swaps the first case-insensitive occurrence of Placeholder.
func replacePlaceholder(layout, items string) string {
	for i := 0; i+len(Placeholder) <= len(layout); i++ {
		if layout[i] == '<' && strings.EqualFold(layout[i:i+len(Placeholder)], Placeholder) {
			return layout[:i] + items + layout[i+len(Placeholder):]
		}
	}
	return layout
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
