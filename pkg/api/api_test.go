package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifykit/pkg/api"
	"github.com/dmitrymomot/notifykit/pkg/apps"
	"github.com/dmitrymomot/notifykit/pkg/channel"
	"github.com/dmitrymomot/notifykit/pkg/channel/inapp"
	"github.com/dmitrymomot/notifykit/pkg/command"
	"github.com/dmitrymomot/notifykit/pkg/delivery"
	"github.com/dmitrymomot/notifykit/pkg/integration"
	"github.com/dmitrymomot/notifykit/pkg/logger"
	"github.com/dmitrymomot/notifykit/pkg/requestid"
	"github.com/dmitrymomot/notifykit/pkg/scheduler"
	"github.com/dmitrymomot/notifykit/pkg/users"
)

// captured records scheduled jobs instead of batching them.
type captured struct {
	mu   sync.Mutex
	keys []string
}

func (c *captured) Schedule(_ context.Context, key string, _ delivery.Job, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.keys = append(c.keys, key)
	return nil
}

type mockRegistrar struct {
	mock.Mock
}

func (m *mockRegistrar) Register(ctx context.Context, userID, token, deviceType string) (string, error) {
	args := m.Called(ctx, userID, token, deviceType)
	return args.String(0), args.Error(1)
}

type failureLog []scheduler.Failure

func (f failureLog) List(_ context.Context, limit int64) ([]scheduler.Failure, error) {
	return f[:min(int(limit), len(f))], nil
}

type env struct {
	router    http.Handler
	apps      *command.MemoryRepository[apps.App]
	users     *command.MemoryRepository[users.User]
	inbox     *inapp.Inbox
	email     *captured
	registrar *mockRegistrar
}

func newEnv(t *testing.T) *env {
	t.Helper()
	log := logger.Discard()

	e := &env{
		apps:      command.NewMemoryRepository[apps.App](),
		users:     command.NewMemoryRepository[users.User](),
		inbox:     inapp.New(inapp.NewMemoryStorage(), inapp.WithLogger(log)),
		email:     &captured{},
		registrar: &mockRegistrar{},
	}
	dispatcher := delivery.NewDispatcher(
		delivery.WithScheduler(channel.Email, e.email),
		delivery.WithDispatcherLogger(log),
	)
	tracker := integration.NewTracker(integration.NewMemoryStore(), integration.WithLogger(log))

	e.router = api.New(
		api.WithDispatcher(dispatcher),
		api.WithApps(e.apps),
		api.WithUsers(e.users),
		api.WithDevices(users.NewDevices(e.users, e.registrar, users.WithDevicesLogger(log))),
		api.WithIntegrations(tracker),
		api.WithInbox(e.inbox),
		api.WithFailureLog(failureLog{{Scheduler: "email", Key: "k", Attempts: 5, Error: "boom"}}),
		api.WithHealthCheck(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })),
		api.WithLogger(log),
	).Router()
	return e
}

type response struct {
	Data  json.RawMessage  `json:"data"`
	Error *api.ErrorDetail `json:"error"`
}

func (e *env) do(t *testing.T, method, path, body string) (int, response) {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	var resp response
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	}
	return rec.Code, resp
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

func TestApps(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	code, resp := e.do(t, http.MethodPut, "/v1/apps/app-1", `{"name":"Acme","email_address":"hello@acme.test"}`)
	require.Equal(t, http.StatusCreated, code)
	app := decode[apps.App](t, resp.Data)
	assert.Equal(t, int64(1), app.Version)
	assert.Equal(t, apps.EmailUnverified, app.EmailVerificationStatus)

	code, resp = e.do(t, http.MethodPut, "/v1/apps/app-1/email-status", `{"status":"verified"}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, apps.EmailVerified, decode[apps.App](t, resp.Data).EmailVerificationStatus)

	code, resp = e.do(t, http.MethodPut, "/v1/apps/app-1", `{"name":"Acme","email_address":"news@acme.test","email_name":"Acme News"}`)
	require.Equal(t, http.StatusOK, code)
	app = decode[apps.App](t, resp.Data)
	assert.Equal(t, apps.EmailUnverified, app.EmailVerificationStatus)
	assert.Equal(t, int64(3), app.Version)

	code, _ = e.do(t, http.MethodPut, "/v1/apps/app-1/email-status", `{"status":"sideways"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, code)

	code, _ = e.do(t, http.MethodPut, "/v1/apps/app-2", `{"name":""}`)
	assert.Equal(t, http.StatusUnprocessableEntity, code)

	code, _ = e.do(t, http.MethodGet, "/v1/apps/missing", "")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestUsers(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	code, resp := e.do(t, http.MethodPut, "/v1/apps/app-1/users/u1", `{"email_address":"jane@example.com","preferred_language":"de"}`)
	require.Equal(t, http.StatusCreated, code)
	u := decode[users.User](t, resp.Data)
	assert.Equal(t, int64(1), u.Version)
	assert.Equal(t, "de", u.PreferredLanguage)

	code, resp = e.do(t, http.MethodPut, "/v1/apps/app-1/users/u1", `{"email_address":"jane@example.com","phone_number":"+15550100100","preferred_language":"de"}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "+15550100100", decode[users.User](t, resp.Data).PhoneNumber)

	code, resp = e.do(t, http.MethodPut, "/v1/apps/app-1/users/u1/settings/email", `{"send":true,"delay_in_seconds":600}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 600, decode[users.User](t, resp.Data).Settings[channel.Email].DelayInSeconds)

	code, resp = e.do(t, http.MethodPost, "/v1/apps/app-1/users/u1/webpush", `{"url":"https://push.example.com/s/1"}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, []string{"https://push.example.com/s/1"}, decode[users.User](t, resp.Data).WebPushSubscriptions)

	code, _ = e.do(t, http.MethodGet, "/v1/apps/app-2/users/u1", "")
	assert.Equal(t, http.StatusNotFound, code)

	code, resp = e.do(t, http.MethodGet, "/v1/apps/app-1/users/u1", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "jane@example.com", decode[users.User](t, resp.Data).EmailAddress)
}

func TestUsers_Validation(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	code, resp := e.do(t, http.MethodPut, "/v1/apps/app-1/users/u1", `{"email_address":"nope","phone_number":"123"}`)
	require.Equal(t, http.StatusUnprocessableEntity, code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "unprocessable_entity", resp.Error.Code)
	assert.Contains(t, resp.Error.Details, "email_address")
	assert.Contains(t, resp.Error.Details, "phone_number")

	code, resp = e.do(t, http.MethodPut, "/v1/apps/app-1/users/u1", `{"unknown":1}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "bad_request", resp.Error.Code)

	req := httptest.NewRequest(http.MethodPut, "/v1/apps/app-1/users/u1", bytes.NewBufferString(`{}`))
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestEvents(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	_, err := e.users.Create(context.Background(), users.User{ID: "u1", AppID: "app-1", EmailAddress: "jane@example.com"})
	require.NoError(t, err)

	body := `{"app_id":"app-1","user_id":"u1","topic":"comments","items":[{"formatting":{"subject":"Hi"}}]}`
	req := httptest.NewRequest(http.MethodPost, "/v1/events", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(requestid.Header, "req-42")
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"data":{"event_id":"req-42","channels":["email"]}}`, rec.Body.String())
	assert.Equal(t, []string{"app-1:u1|email|comments"}, e.email.keys)

	code, _ := e.do(t, http.MethodPost, "/v1/events", `{"app_id":"app-1","user_id":"ghost","topic":"comments","items":[{}]}`)
	assert.Equal(t, http.StatusNotFound, code)

	code, resp := e.do(t, http.MethodPost, "/v1/events", `{"app_id":"app-1","user_id":"u1","topic":"","items":[]}`)
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Contains(t, resp.Error.Details, "topic")
	assert.Contains(t, resp.Error.Details, "items")

	code, _ = e.do(t, http.MethodPost, "/v1/events", `{"app_id":`)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestIntegrations(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	const path = "/v1/apps/app-1/integrations/postmark"

	code, resp := e.do(t, http.MethodGet, path, "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, integration.Pending, decode[integration.Record](t, resp.Data).Status)

	code, resp = e.do(t, http.MethodPut, path, `{"status":"verified"}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, integration.Verified, decode[integration.Record](t, resp.Data).Status)

	code, resp = e.do(t, http.MethodPut, path, `{"status":"pending"}`)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "conflict", resp.Error.Code)

	code, resp = e.do(t, http.MethodPut, path, `{"status":"verification_failed","reason":"dkim missing"}`)
	require.Equal(t, http.StatusOK, code)
	rec := decode[integration.Record](t, resp.Data)
	assert.Equal(t, integration.VerificationFailed, rec.Status)
	assert.Equal(t, "dkim missing", rec.Reason)

	code, resp = e.do(t, http.MethodPost, path+"/reverify", "")
	require.Equal(t, http.StatusOK, code)
	rec = decode[integration.Record](t, resp.Data)
	assert.Equal(t, integration.Pending, rec.Status)
	assert.Equal(t, 2, rec.Attempt)

	code, _ = e.do(t, http.MethodPut, path, `{"status":"bogus"}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, resp = e.do(t, http.MethodGet, "/v1/apps/app-1/integrations", "")
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, decode[map[string]integration.Record](t, resp.Data), "postmark")
}

func TestDevices(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	_, err := e.users.Create(context.Background(), users.New("app-1", "u1"))
	require.NoError(t, err)
	e.registrar.On("Register", mock.Anything, "u1", "tok-1", users.DeviceIOS).Return("arn:endpoint:1", nil).Once()

	code, resp := e.do(t, http.MethodPost, "/v1/apps/app-1/users/u1/devices", `{"token":"tok-1","device_type":"ios"}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, []string{"arn:endpoint:1"}, decode[users.User](t, resp.Data).EndpointARNs())

	code, resp = e.do(t, http.MethodDelete, "/v1/apps/app-1/users/u1/devices/tok-1", "")
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, decode[users.User](t, resp.Data).MobilePushTokens)

	e.registrar.AssertExpectations(t)
}

func TestInbox(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.users.Create(ctx, users.New("app-1", "u1"))
	require.NoError(t, err)
	require.NoError(t, e.inbox.Send(ctx, channel.Message{AppID: "app-1", UserID: "u1", Subject: "2 new comments", BodyText: "..."}))

	code, resp := e.do(t, http.MethodGet, "/v1/apps/app-1/users/u1/inbox?unread=true", "")
	require.Equal(t, http.StatusOK, code)
	var inbox struct {
		Items  []inapp.Notification `json:"items"`
		Unread int                  `json:"unread"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &inbox))
	require.Len(t, inbox.Items, 1)
	assert.Equal(t, 1, inbox.Unread)
	assert.Equal(t, "2 new comments", inbox.Items[0].Title)

	code, _ = e.do(t, http.MethodPost, "/v1/apps/app-1/users/u1/inbox/read", `{"ids":["`+inbox.Items[0].ID+`"]}`)
	require.Equal(t, http.StatusNoContent, code)

	unread, err := e.inbox.CountUnread(ctx, "u1")
	require.NoError(t, err)
	assert.Zero(t, unread)

	code, _ = e.do(t, http.MethodGet, "/v1/apps/app-1/users/u1/inbox?limit=-1", "")
	assert.Equal(t, http.StatusUnprocessableEntity, code)

	code, _ = e.do(t, http.MethodPost, "/v1/apps/app-1/users/u1/inbox/read", `{"ids":[]}`)
	assert.Equal(t, http.StatusUnprocessableEntity, code)
}

func TestFailuresAndOps(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	code, resp := e.do(t, http.MethodGet, "/v1/failures?limit=10", "")
	require.Equal(t, http.StatusOK, code)
	failures := decode[[]scheduler.Failure](t, resp.Data)
	require.Len(t, failures, 1)
	assert.Equal(t, "email", failures[0].Scheduler)

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(requestid.Header))
}

func TestRouter_OptionalRoutes(t *testing.T) {
	t.Parallel()

	router := api.New(api.WithLogger(logger.Discard())).Router()
	for _, path := range []string{"/healthz", "/metrics", "/v1/failures", "/v1/apps/a/integrations"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
	}
}
