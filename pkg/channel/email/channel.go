package email

import (
	"context"

	"github.com/dmitrymomot/notifykit/pkg/channel"
)

// Channel adapts a Sender to channel.Channel. Each address in Message.To
// receives its own email.
type Channel struct {
	sender Sender
}

// NewChannel wraps sender.
func NewChannel(sender Sender) *Channel {
	return &Channel{sender: sender}
}

func (c *Channel) ID() string { return channel.Email }

// Send delivers msg to every recipient. A failure for one address does not
// stop delivery to the others. Recipients left when ctx ends count as
// transient failures.
func (c *Channel) Send(ctx context.Context, msg channel.Message) error {
	if len(msg.To) == 0 {
		return channel.Permanent(channel.ErrNoRecipients)
	}

	var fan channel.Fanout
	for _, to := range msg.To {
		if err := ctx.Err(); err != nil {
			fan.Failed(to, err)
			continue
		}

		err := c.sender.SendEmail(ctx, SendEmailParams{
			SendTo:   to,
			Subject:  msg.Subject,
			BodyHTML: msg.BodyHTML,
			BodyText: msg.BodyText,
			Tag:      msg.Topic,
		})
		if err != nil {
			fan.Failed(to, err)
			continue
		}
		fan.Delivered(to)
	}
	return fan.Err()
}
