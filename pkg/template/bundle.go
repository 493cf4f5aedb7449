package template

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultLanguage is used when a lookup asks for a language the bundle does
// not define.
const DefaultLanguage = "en"

// ChannelTemplate is the authored template set for one channel and language.
type ChannelTemplate struct {
	Channel  string `yaml:"channel"`
	Language string `yaml:"language"`
	Subject  string `yaml:"subject"`
	BodyHTML string `yaml:"html"`
	BodyText string `yaml:"text"`
}

// Bundle is a collection of channel templates, usually loaded from a YAML file:
//
//	templates:
//	  - channel: email
//	    language: en
//	    subject: "You have {count} new notifications"
//	    html: |
//	      <!-- START: NOTIFICATION -->...<!-- END: NOTIFICATION -->
type Bundle struct {
	Templates []ChannelTemplate `yaml:"templates"`
}

// LoadBundle decodes a YAML bundle and checks that every body parses.
func LoadBundle(r io.Reader) (*Bundle, error) {
	var b Bundle
	if err := yaml.NewDecoder(r).Decode(&b); err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.Join(ErrInvalidBundle, err)
	}

	for i, t := range b.Templates {
		if t.Channel == "" {
			return nil, fmt.Errorf("%w: template #%d has no channel", ErrInvalidBundle, i)
		}
		if t.Language == "" {
			b.Templates[i].Language = DefaultLanguage
		}
		for _, body := range []string{t.BodyHTML, t.BodyText} {
			if body == "" {
				continue
			}
			if _, err := Parse(body); err != nil {
				return nil, fmt.Errorf("%w: %s/%s: %w", ErrInvalidBundle, t.Channel, b.Templates[i].Language, err)
			}
		}
		if t.BodyHTML == "" && t.BodyText == "" {
			return nil, fmt.Errorf("%w: %s/%s has no body", ErrInvalidBundle, t.Channel, b.Templates[i].Language)
		}
	}

	return &b, nil
}

// LoadBundleFile reads a bundle from path.
func LoadBundleFile(path string) (*Bundle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Join(ErrInvalidBundle, err)
	}
	defer f.Close()

	return LoadBundle(f)
}

// Lookup returns the template for channel in language, falling back to
// DefaultLanguage and then to the first template of the channel.
func (b *Bundle) Lookup(channel, language string) (ChannelTemplate, bool) {
	var fallback *ChannelTemplate
	for i := range b.Templates {
		t := &b.Templates[i]
		if t.Channel != channel {
			continue
		}
		if t.Language == language {
			return *t, true
		}
		if fallback == nil || (t.Language == DefaultLanguage && fallback.Language != DefaultLanguage) {
			fallback = t
		}
	}
	if fallback == nil {
		return ChannelTemplate{}, false
	}
	return *fallback, true
}
