package email

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"

	"github.com/dmitrymomot/notifykit/pkg/awsconfig"
	"github.com/dmitrymomot/notifykit/pkg/channel"
)

// SESAPI is the subset of *ses.Client used for sending.
type SESAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type sesClient struct {
	client SESAPI
	config Config
}

var sesPermanentCodes = map[string]bool{
	"MessageRejected":                        true,
	"MailFromDomainNotVerifiedException":     true,
	"ConfigurationSetDoesNotExistException":  true,
	"ConfigurationSetSendingPausedException": true,
	"AccountSendingPausedException":          true,
	"InvalidParameterValue":                  true,
}

// NewSESClient creates an Amazon SES sender.
func NewSESClient(cfg Config, awsCfg aws.Config) (Sender, error) {
	return NewSESClientWithAPI(cfg, ses.NewFromConfig(awsCfg))
}

// NewSESClientWithAPI creates an SES sender over an existing client.
func NewSESClientWithAPI(cfg Config, api SESAPI) (Sender, error) {
	if err := validateSender(cfg); err != nil {
		return nil, err
	}
	return &sesClient{client: api, config: cfg}, nil
}

// SendEmail implements Sender.
func (c *sesClient) SendEmail(ctx context.Context, params SendEmailParams) error {
	if err := params.Validate(); err != nil {
		return channel.Permanent(err)
	}

	body := &types.Body{}
	if params.BodyHTML != "" {
		body.Html = &types.Content{Data: aws.String(params.BodyHTML), Charset: aws.String("UTF-8")}
	}
	if params.BodyText != "" {
		body.Text = &types.Content{Data: aws.String(params.BodyText), Charset: aws.String("UTF-8")}
	}

	input := &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{params.SendTo},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(params.Subject), Charset: aws.String("UTF-8")},
			Body:    body,
		},
		Source: aws.String(c.config.SenderEmail),
	}
	if c.config.SupportEmail != "" {
		input.ReplyToAddresses = []string{c.config.SupportEmail}
	}
	if c.config.SESConfigurationSet != "" {
		input.ConfigurationSetName = aws.String(c.config.SESConfigurationSet)
	}
	if params.Tag != "" {
		input.Tags = []types.MessageTag{{Name: aws.String("tag"), Value: aws.String(params.Tag)}}
	}

	if _, err := c.client.SendEmail(ctx, input); err != nil {
		failure := errors.Join(ErrFailedToSendEmail, err)
		if sesPermanentCodes[awsconfig.ErrorCode(err)] {
			return channel.Permanent(failure)
		}
		return channel.Transient(failure)
	}
	return nil
}
