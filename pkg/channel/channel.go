package channel

import "context"

// Channel identifiers used as registry and scheduler keys.
const (
	Email      = "email"
	SMS        = "sms"
	MobilePush = "mobile_push"
	WebPush    = "web_push"
	InApp      = "in_app"
)

// Channel delivers rendered messages over one transport.
type Channel interface {
	ID() string
	Send(ctx context.Context, msg Message) error
}

// Message is a rendered digest ready for a transport.
type Message struct {
	ID     string `json:"id"`
	AppID  string `json:"app_id"`
	UserID string `json:"user_id"`
	Topic  string `json:"topic,omitempty"`

	// To holds transport addresses: email addresses, phone numbers, push
	// endpoint ARNs or subscription URLs.
	To []string `json:"to"`

	Subject  string `json:"subject,omitempty"`
	BodyHTML string `json:"body_html,omitempty"`
	BodyText string `json:"body_text,omitempty"`

	// Count is the number of notifications merged into the message.
	Count int               `json:"count"`
	Data  map[string]string `json:"data,omitempty"`
}

// Body returns the text body, falling back to the HTML body.
func (m Message) Body() string {
	if m.BodyText != "" {
		return m.BodyText
	}
	return m.BodyHTML
}

// Func adapts a function to Channel.
type Func struct {
	Name   string
	SendFn func(ctx context.Context, msg Message) error
}

func (f Func) ID() string { return f.Name }

// Send calls f.SendFn.
func (f Func) Send(ctx context.Context, msg Message) error {
	return f.SendFn(ctx, msg)
}
