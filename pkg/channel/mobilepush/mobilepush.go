package mobilepush

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	"github.com/dmitrymomot/notifykit/pkg/awsconfig"
	"github.com/dmitrymomot/notifykit/pkg/channel"
	"github.com/dmitrymomot/notifykit/pkg/logger"
)

// Config holds the SNS platform applications per device platform.
type Config struct {
	APNSApplicationARN string `env:"PUSH_APNS_APPLICATION_ARN"`
	FCMApplicationARN  string `env:"PUSH_FCM_APPLICATION_ARN"`
	// Sandbox sends to APNS_SANDBOX instead of APNS.
	Sandbox bool `env:"PUSH_APNS_SANDBOX" envDefault:"false"`
}

// API is the subset of *sns.Client used by this package.
type API interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
	CreatePlatformEndpoint(ctx context.Context, params *sns.CreatePlatformEndpointInput, optFns ...func(*sns.Options)) (*sns.CreatePlatformEndpointOutput, error)
}

// DisabledFunc is called for every endpoint SNS reports as disabled.
type DisabledFunc func(ctx context.Context, userID, endpointARN string)

// Channel publishes a message to every endpoint ARN in Message.To.
type Channel struct {
	api        API
	cfg        Config
	onDisabled DisabledFunc
	logger     *slog.Logger
}

// Option configures a Channel.
type Option func(*Channel)

// WithOnDisabled registers a hook for disabled endpoints.
func WithOnDisabled(fn DisabledFunc) Option {
	return func(c *Channel) {
		c.onDisabled = fn
	}
}

// WithLogger sets the channel logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Channel) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a mobile push channel.
func New(api API, cfg Config, opts ...Option) *Channel {
	c := &Channel{api: api, cfg: cfg, logger: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewFromConfig creates a channel backed by an SNS client.
func NewFromConfig(awsCfg aws.Config, cfg Config, opts ...Option) *Channel {
	return New(sns.NewFromConfig(awsCfg), cfg, opts...)
}

func (c *Channel) ID() string { return channel.MobilePush }

// Send implements channel.Channel.
func (c *Channel) Send(ctx context.Context, msg channel.Message) error {
	if len(msg.To) == 0 {
		return channel.Permanent(channel.ErrNoRecipients)
	}

	payload, err := c.payload(msg)
	if err != nil {
		return channel.Permanent(err)
	}

	var fan channel.Fanout
	for _, arn := range msg.To {
		_, err := c.api.Publish(ctx, &sns.PublishInput{
			TargetArn:        aws.String(arn),
			Message:          aws.String(payload),
			MessageStructure: aws.String("json"),
		})
		if err == nil {
			fan.Delivered(arn)
			continue
		}

		switch awsconfig.ErrorCode(err) {
		case "EndpointDisabled", "NotFound":
			c.logger.LogAttrs(ctx, slog.LevelInfo, "push endpoint disabled",
				logger.Channel(channel.MobilePush),
				logger.UserID(msg.UserID),
				slog.String("endpoint_arn", arn),
			)
			if c.onDisabled != nil {
				c.onDisabled(ctx, msg.UserID, arn)
			}
			fan.Failed(arn, channel.Permanent(fmt.Errorf("%w: %s", ErrEndpointDisabled, arn)))
		case "InvalidParameter", "InvalidParameterValue", "AuthorizationError":
			fan.Failed(arn, channel.Permanent(errors.Join(ErrFailedToPublish, err)))
		default:
			fan.Failed(arn, channel.Transient(errors.Join(ErrFailedToPublish, err)))
		}
	}
	return fan.Err()
}

type apnsPayload struct {
	APS struct {
		Alert struct {
			Title string `json:"title,omitempty"`
			Body  string `json:"body"`
		} `json:"alert"`
		Badge int    `json:"badge,omitempty"`
		Sound string `json:"sound"`
	} `json:"aps"`
	Data map[string]string `json:"data,omitempty"`
}

type fcmPayload struct {
	Notification struct {
		Title string `json:"title,omitempty"`
		Body  string `json:"body"`
	} `json:"notification"`
	Data map[string]string `json:"data,omitempty"`
}

// payload builds the SNS json message structure with one entry per platform.
func (c *Channel) payload(msg channel.Message) (string, error) {
	body := msg.Body()

	var apns apnsPayload
	apns.APS.Alert.Title = msg.Subject
	apns.APS.Alert.Body = body
	apns.APS.Badge = msg.Count
	apns.APS.Sound = "default"
	apns.Data = msg.Data

	var fcm fcmPayload
	fcm.Notification.Title = msg.Subject
	fcm.Notification.Body = body
	fcm.Data = msg.Data

	apnsJSON, err := json.Marshal(apns)
	if err != nil {
		return "", err
	}
	fcmJSON, err := json.Marshal(fcm)
	if err != nil {
		return "", err
	}

	apnsKey := "APNS"
	if c.cfg.Sandbox {
		apnsKey = "APNS_SANDBOX"
	}

	out, err := json.Marshal(map[string]string{
		"default": body,
		apnsKey:   string(apnsJSON),
		"GCM":     string(fcmJSON),
	})
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// Register creates (or returns the existing) SNS endpoint for a device token.
// deviceType is "ios" or "android".
func (c *Channel) Register(ctx context.Context, userID, token, deviceType string) (string, error) {
	var appARN string
	switch deviceType {
	case "ios":
		appARN = c.cfg.APNSApplicationARN
	case "android":
		appARN = c.cfg.FCMApplicationARN
	}
	if appARN == "" {
		return "", fmt.Errorf("%w: %q", ErrUnknownPlatform, deviceType)
	}

	out, err := c.api.CreatePlatformEndpoint(ctx, &sns.CreatePlatformEndpointInput{
		PlatformApplicationArn: aws.String(appARN),
		Token:                  aws.String(token),
		CustomUserData:         aws.String(userID),
	})
	if err != nil {
		return "", errors.Join(ErrFailedToRegister, err)
	}
	return aws.ToString(out.EndpointArn), nil
}
