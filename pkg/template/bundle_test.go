package template_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifykit/pkg/template"
)

const bundleYAML = `
templates:
  - channel: email
    language: en
    subject: "News"
    html: |
      <ul>
      <!-- START: NOTIFICATION -->
      <li>{notification.subject}</li>
      <!-- END: NOTIFICATION -->
      </ul>
  - channel: email
    language: de
    subject: "Neuigkeiten"
    text: "{notification.subject}"
  - channel: sms
    text: "{notification.subject}"
`

func TestLoadBundle(t *testing.T) {
	t.Parallel()

	b, err := template.LoadBundle(strings.NewReader(bundleYAML))
	require.NoError(t, err)
	require.Len(t, b.Templates, 3)

	de, ok := b.Lookup("email", "de")
	require.True(t, ok)
	assert.Equal(t, "Neuigkeiten", de.Subject)

	fr, ok := b.Lookup("email", "fr")
	require.True(t, ok)
	assert.Equal(t, "en", fr.Language)

	sms, ok := b.Lookup("sms", "en")
	require.True(t, ok)
	assert.Equal(t, template.DefaultLanguage, sms.Language)

	_, ok = b.Lookup("webpush", "en")
	assert.False(t, ok)
}

func TestLoadBundle_Invalid(t *testing.T) {
	t.Parallel()

	for name, doc := range map[string]string{
		"broken yaml":     "templates: [",
		"missing channel": "templates:\n  - text: hi\n",
		"no body":         "templates:\n  - channel: email\n",
		"bad body":        "templates:\n  - channel: email\n    html: \"<!-- START:X -->x<!-- END:X -->\"\n",
	} {
		_, err := template.LoadBundle(strings.NewReader(doc))
		assert.ErrorIs(t, err, template.ErrInvalidBundle, name)
	}
}
