package sms

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"unicode/utf8"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"

	"github.com/dmitrymomot/notifykit/pkg/awsconfig"
	"github.com/dmitrymomot/notifykit/pkg/channel"
)

var (
	ErrInvalidPhone = errors.New("sms: invalid phone number")
	ErrEmptyMessage = errors.New("sms: empty message")
	ErrFailedToSend = errors.New("sms: failed to send message")
)

// Config holds SMS settings.
type Config struct {
	SenderID  string `env:"SMS_SENDER_ID"`
	SMSType   string `env:"SMS_TYPE" envDefault:"Transactional"`
	MaxLength int    `env:"SMS_MAX_LENGTH" envDefault:"1600"`
}

// PublishAPI is the subset of *sns.Client used for sending.
type PublishAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

var e164 = regexp.MustCompile(`^\+[1-9][0-9]{6,14}$`)

var permanentCodes = map[string]bool{
	"InvalidParameter":      true,
	"InvalidParameterValue": true,
	"AuthorizationError":    true,
	"OptedOut":              true,
}

// Channel sends the text body of a message to every phone number in To.
type Channel struct {
	api PublishAPI
	cfg Config
}

// New creates an SMS channel.
func New(api PublishAPI, cfg Config) *Channel {
	if cfg.MaxLength <= 0 {
		cfg.MaxLength = 1600
	}
	return &Channel{api: api, cfg: cfg}
}

// NewFromConfig creates an SMS channel backed by an SNS client.
func NewFromConfig(awsCfg aws.Config, cfg Config) *Channel {
	return New(sns.NewFromConfig(awsCfg), cfg)
}

func (c *Channel) ID() string { return channel.SMS }

// Send implements channel.Channel. Bodies longer than MaxLength runes are
// truncated.
func (c *Channel) Send(ctx context.Context, msg channel.Message) error {
	if len(msg.To) == 0 {
		return channel.Permanent(channel.ErrNoRecipients)
	}
	text := truncate(msg.Body(), c.cfg.MaxLength)
	if text == "" {
		return channel.Permanent(ErrEmptyMessage)
	}

	var fan channel.Fanout
	for _, phone := range msg.To {
		if !e164.MatchString(phone) {
			fan.Failed(phone, channel.Permanent(fmt.Errorf("%w: %q", ErrInvalidPhone, phone)))
			continue
		}

		_, err := c.api.Publish(ctx, &sns.PublishInput{
			PhoneNumber:       aws.String(phone),
			Message:           aws.String(text),
			MessageAttributes: c.attributes(),
		})
		switch {
		case err == nil:
			fan.Delivered(phone)
		case permanentCodes[awsconfig.ErrorCode(err)]:
			fan.Failed(phone, channel.Permanent(errors.Join(ErrFailedToSend, err)))
		default:
			fan.Failed(phone, channel.Transient(errors.Join(ErrFailedToSend, err)))
		}
	}
	return fan.Err()
}

func (c *Channel) attributes() map[string]types.MessageAttributeValue {
	attrs := map[string]types.MessageAttributeValue{}
	if c.cfg.SMSType != "" {
		attrs["AWS.SNS.SMS.SMSType"] = types.MessageAttributeValue{
			DataType:    aws.String("String"),
			StringValue: aws.String(c.cfg.SMSType),
		}
	}
	if c.cfg.SenderID != "" {
		attrs["AWS.SNS.SMS.SenderID"] = types.MessageAttributeValue{
			DataType:    aws.String("String"),
			StringValue: aws.String(c.cfg.SenderID),
		}
	}
	return attrs
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}
