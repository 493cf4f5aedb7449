package email_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/smithy-go"
	"github.com/mrz1836/postmark"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifykit/pkg/channel"
	"github.com/dmitrymomot/notifykit/pkg/channel/email"
)

type mockPostmark struct {
	mock.Mock
}

func (m *mockPostmark) SendEmail(ctx context.Context, e postmark.Email) (postmark.EmailResponse, error) {
	args := m.Called(ctx, e)
	return args.Get(0).(postmark.EmailResponse), args.Error(1)
}

type mockSES struct {
	mock.Mock
}

func (m *mockSES) SendEmail(ctx context.Context, in *ses.SendEmailInput, _ ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*ses.SendEmailOutput)
	return out, args.Error(1)
}

type mockSender struct {
	mock.Mock
}

func (m *mockSender) SendEmail(ctx context.Context, p email.SendEmailParams) error {
	return m.Called(ctx, p).Error(0)
}

var testConfig = email.Config{
	PostmarkServerToken:  "server",
	PostmarkAccountToken: "account",
	SenderEmail:          "noreply@example.com",
	SupportEmail:         "support@example.com",
}

var validParams = email.SendEmailParams{
	SendTo:   "user@example.com",
	Subject:  "Digest",
	BodyHTML: "<p>hi</p>",
	Tag:      "comments",
}

func TestSendEmailParams_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		params email.SendEmailParams
		ok     bool
	}{
		{"valid", validParams, true},
		{"text only", email.SendEmailParams{SendTo: "a@b.io", Subject: "s", BodyText: "t"}, true},
		{"missing recipient", email.SendEmailParams{Subject: "s", BodyHTML: "b"}, false},
		{"bad recipient", email.SendEmailParams{SendTo: "nope", Subject: "s", BodyHTML: "b"}, false},
		{"missing subject", email.SendEmailParams{SendTo: "a@b.io", BodyHTML: "b"}, false},
		{"missing body", email.SendEmailParams{SendTo: "a@b.io", Subject: "s"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.params.Validate()
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, email.ErrInvalidParams)
		})
	}
}

func TestPostmarkClient(t *testing.T) {
	t.Parallel()

	t.Run("success", func(t *testing.T) {
		t.Parallel()
		api := &mockPostmark{}
		api.On("SendEmail", mock.Anything, mock.MatchedBy(func(e postmark.Email) bool {
			return e.From == "noreply@example.com" && e.ReplyTo == "support@example.com" &&
				e.To == "user@example.com" && e.Tag == "comments" && e.TrackOpens
		})).Return(postmark.EmailResponse{}, nil)

		c, err := email.NewPostmarkClient(testConfig, email.WithPostmarkAPI(api))
		require.NoError(t, err)
		require.NoError(t, c.SendEmail(context.Background(), validParams))
		api.AssertExpectations(t)
	})

	t.Run("inactive recipient is permanent", func(t *testing.T) {
		t.Parallel()
		api := &mockPostmark{}
		api.On("SendEmail", mock.Anything, mock.Anything).
			Return(postmark.EmailResponse{ErrorCode: 406, Message: "inactive"}, errors.New("406 inactive"))

		c, err := email.NewPostmarkClient(testConfig, email.WithPostmarkAPI(api))
		require.NoError(t, err)
		err = c.SendEmail(context.Background(), validParams)
		assert.True(t, channel.IsPermanent(err))
		assert.ErrorIs(t, err, email.ErrFailedToSendEmail)
	})

	t.Run("network error is transient", func(t *testing.T) {
		t.Parallel()
		api := &mockPostmark{}
		api.On("SendEmail", mock.Anything, mock.Anything).Return(postmark.EmailResponse{}, errors.New("timeout"))

		c, err := email.NewPostmarkClient(testConfig, email.WithPostmarkAPI(api))
		require.NoError(t, err)
		err = c.SendEmail(context.Background(), validParams)
		assert.True(t, channel.IsTransient(err))
		assert.False(t, channel.IsPermanent(err))
	})

	t.Run("invalid params never reach the api", func(t *testing.T) {
		t.Parallel()
		api := &mockPostmark{}
		c, err := email.NewPostmarkClient(testConfig, email.WithPostmarkAPI(api))
		require.NoError(t, err)
		err = c.SendEmail(context.Background(), email.SendEmailParams{SendTo: "x"})
		assert.True(t, channel.IsPermanent(err))
		api.AssertNotCalled(t, "SendEmail", mock.Anything, mock.Anything)
	})

	t.Run("config validation", func(t *testing.T) {
		t.Parallel()
		cfg := testConfig
		cfg.PostmarkServerToken = ""
		_, err := email.NewPostmarkClient(cfg)
		assert.ErrorIs(t, err, email.ErrInvalidConfig)

		cfg = testConfig
		cfg.SenderEmail = "not-an-email"
		_, err = email.NewPostmarkClient(cfg)
		assert.ErrorIs(t, err, email.ErrInvalidConfig)
	})
}

func TestSESClient(t *testing.T) {
	t.Parallel()

	t.Run("builds request", func(t *testing.T) {
		t.Parallel()
		cfg := testConfig
		cfg.SESConfigurationSet = "digests"
		api := &mockSES{}
		api.On("SendEmail", mock.Anything, mock.MatchedBy(func(in *ses.SendEmailInput) bool {
			return *in.Source == "noreply@example.com" &&
				in.Destination.ToAddresses[0] == "user@example.com" &&
				*in.Message.Body.Html.Data == "<p>hi</p>" &&
				in.Message.Body.Text == nil &&
				*in.ConfigurationSetName == "digests" &&
				in.ReplyToAddresses[0] == "support@example.com"
		})).Return(&ses.SendEmailOutput{}, nil)

		c, err := email.NewSESClientWithAPI(cfg, api)
		require.NoError(t, err)
		require.NoError(t, c.SendEmail(context.Background(), validParams))
		api.AssertExpectations(t)
	})

	t.Run("classifies api errors", func(t *testing.T) {
		t.Parallel()
		api := &mockSES{}
		api.On("SendEmail", mock.Anything, mock.MatchedBy(func(in *ses.SendEmailInput) bool {
			return in.Destination.ToAddresses[0] == "rejected@example.com"
		})).Return(nil, &smithy.GenericAPIError{Code: "MessageRejected"})
		api.On("SendEmail", mock.Anything, mock.Anything).
			Return(nil, &smithy.GenericAPIError{Code: "Throttling"})

		c, err := email.NewSESClientWithAPI(testConfig, api)
		require.NoError(t, err)

		p := validParams
		p.SendTo = "rejected@example.com"
		assert.True(t, channel.IsPermanent(c.SendEmail(context.Background(), p)))
		assert.True(t, channel.IsTransient(c.SendEmail(context.Background(), validParams)))
	})
}

func TestDevSender(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "out")
	s := email.NewDevSender(dir)

	p := validParams
	p.BodyText = "hi"
	require.NoError(t, s.SendEmail(context.Background(), p))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	for _, e := range entries {
		if !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		require.NoError(t, err)
		var meta map[string]string
		require.NoError(t, json.Unmarshal(data, &meta))
		assert.Equal(t, "user@example.com", meta["send_to"])
		assert.Equal(t, "comments", meta["tag"])
	}

	assert.True(t, channel.IsPermanent(s.SendEmail(context.Background(), email.SendEmailParams{})))
}

func TestChannel_Send(t *testing.T) {
	t.Parallel()

	msg := channel.Message{
		To:       []string{"a@example.com", "b@example.com"},
		Subject:  "Digest",
		BodyHTML: "<p>x</p>",
		Topic:    "comments",
	}

	t.Run("one email per recipient", func(t *testing.T) {
		t.Parallel()
		s := &mockSender{}
		s.On("SendEmail", mock.Anything, mock.AnythingOfType("email.SendEmailParams")).Return(nil).Twice()

		ch := email.NewChannel(s)
		assert.Equal(t, channel.Email, ch.ID())
		require.NoError(t, ch.Send(context.Background(), msg))
		s.AssertExpectations(t)
	})

	t.Run("any transient failure makes the batch retryable", func(t *testing.T) {
		t.Parallel()
		s := &mockSender{}
		s.On("SendEmail", mock.Anything, mock.MatchedBy(func(p email.SendEmailParams) bool {
			return p.SendTo == "a@example.com"
		})).Return(channel.Permanent(errors.New("rejected")))
		s.On("SendEmail", mock.Anything, mock.Anything).Return(errors.New("timeout"))

		err := email.NewChannel(s).Send(context.Background(), msg)
		assert.True(t, channel.IsTransient(err))
	})

	t.Run("reports which recipients got the email", func(t *testing.T) {
		t.Parallel()
		s := &mockSender{}
		s.On("SendEmail", mock.Anything, mock.MatchedBy(func(p email.SendEmailParams) bool {
			return p.SendTo == "a@example.com"
		})).Return(nil)
		s.On("SendEmail", mock.Anything, mock.Anything).Return(channel.Transient(errors.New("timeout")))

		err := email.NewChannel(s).Send(context.Background(), msg)
		assert.True(t, channel.IsTransient(err))
		delivered, rejected := channel.Recipients(err)
		assert.Equal(t, []string{"a@example.com"}, delivered)
		assert.Empty(t, rejected)
		s.AssertNumberOfCalls(t, "SendEmail", 2)
	})

	t.Run("all permanent", func(t *testing.T) {
		t.Parallel()
		s := &mockSender{}
		s.On("SendEmail", mock.Anything, mock.Anything).Return(channel.Permanent(errors.New("rejected")))

		err := email.NewChannel(s).Send(context.Background(), msg)
		assert.True(t, channel.IsPermanent(err))
	})

	t.Run("no recipients", func(t *testing.T) {
		t.Parallel()
		err := email.NewChannel(&mockSender{}).Send(context.Background(), channel.Message{})
		assert.ErrorIs(t, err, channel.ErrNoRecipients)
		assert.True(t, channel.IsPermanent(err))
	})
}
