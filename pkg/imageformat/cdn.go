package imageformat

import (
	"net/url"
	"strings"
)

// CDN resolves references against a public asset base URL.
type CDN struct {
	base    *url.URL
	presets map[string]string
}

// NewCDN creates a CDN formatter. presets maps size tags (for example
// "EmailSmall") to the preset names understood by the asset server; unknown
// sizes are sent lower-cased.
func NewCDN(baseURL string, presets map[string]string) (*CDN, error) {
	u, err := url.Parse(strings.TrimSuffix(baseURL, "/") + "/")
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, ErrInvalidConfig
	}
	return &CDN{base: u, presets: presets}, nil
}

// Format implements template.ImageFormatter.
func (c *CDN) Format(ref, size string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	if isAbsolute(ref) {
		return ref
	}

	u := c.base.JoinPath(strings.TrimPrefix(ref, "/"))
	q := u.Query()
	q.Set("preset", c.preset(size))
	u.RawQuery = q.Encode()

	return u.String()
}

func (c *CDN) preset(size string) string {
	if p, ok := c.presets[size]; ok {
		return p
	}
	return strings.ToLower(size)
}

func isAbsolute(ref string) bool {
	return strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://")
}
