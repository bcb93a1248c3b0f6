// Package transport sends email messages through the Mailjet send API. It
// builds the request body for the configured API version, performs a single
// call and reports how many recipients the provider accepted.
//
// API failures never surface as errors. They are reported as a zero count,
// a failed-recipient list and a failed SendEvent. Only a missing API key or
// secret is returned to the caller.
package transport

import (
	"context"
	"log/slog"
	"sync"

	"github.com/shineum/mailjet-transport/internal/email"
	"github.com/shineum/mailjet-transport/internal/mailjet"
	"github.com/shineum/mailjet-transport/internal/payload"
)

// Poster performs a send API call. *mailjet.Client implements it.
type Poster interface {
	Post(ctx context.Context, r mailjet.Resource, body any) (*mailjet.Response, error)
}

// Option configures a Transport.
type Option func(*Transport)

// WithCall enables or disables the actual API call. Enabled by default.
func WithCall(call bool) Option {
	return func(t *Transport) { t.call = call }
}

// WithClientOptions sets the endpoint options, including the API version
// that selects the payload format.
func WithClientOptions(opts mailjet.Options) Option {
	return func(t *Transport) { t.clientOpts = opts }
}

// WithClient injects a pre-built client instead of creating one lazily.
func WithClient(p Poster) Option {
	return func(t *Transport) { t.client = p }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(t *Transport) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// WithDispatcher shares an existing event dispatcher.
func WithDispatcher(d *Dispatcher) Option {
	return func(t *Transport) {
		if d != nil {
			t.dispatcher = d
		}
	}
}

// Transport is a Mailjet-backed mail transport. A Transport is safe for
// concurrent use, although each call holds an internal lock for its whole
// duration.
type Transport struct {
	mu sync.Mutex

	apiKey     string
	apiSecret  string
	call       bool
	clientOpts mailjet.Options

	client     Poster
	builder    payload.Builder
	dispatcher *Dispatcher
	logger     *slog.Logger

	lastResponse *mailjet.Response
}

// New creates a Transport. Credentials are only checked when the client is
// first needed.
func New(apiKey, apiSecret string, opts ...Option) *Transport {
	t := &Transport{
		apiKey:     apiKey,
		apiSecret:  apiSecret,
		call:       true,
		dispatcher: NewDispatcher(),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.selectBuilder()
	return t
}

func (t *Transport) selectBuilder() {
	t.builder = payload.ForVersion(t.clientOpts.Version, payload.WithLogger(t.logger))
}

// IsStarted always reports false; the transport holds no connection.
func (t *Transport) IsStarted() bool { return false }

// Start is a no-op.
func (t *Transport) Start() error { return nil }

// Stop is a no-op.
func (t *Transport) Stop() error { return nil }

// Ping always reports false; there is no connection to check.
func (t *Transport) Ping() bool { return false }

// RegisterPlugin adds a listener notified around every send.
func (t *Transport) RegisterPlugin(l Listener) {
	t.dispatcher.Register(l)
}

// Send delivers msg and returns the number of recipients the provider
// accepted. On failure the To addresses of msg are returned as failed.
func (t *Transport) Send(ctx context.Context, msg *email.Message) (int, []email.Address, error) {
	return t.perform(ctx, []*email.Message{msg}, func(b payload.Builder) (any, error) {
		return b.Build(msg)
	})
}

// BulkSend delivers msgs in one API call. Failures are not attributed per
// message; the To addresses of every message are returned as failed.
func (t *Transport) BulkSend(ctx context.Context, msgs []*email.Message) (int, []email.Address, error) {
	return t.perform(ctx, msgs, func(b payload.Builder) (any, error) {
		return b.Batch(msgs)
	})
}

func (t *Transport) perform(ctx context.Context, msgs []*email.Message, build func(payload.Builder) (any, error)) (int, []email.Address, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.lastResponse = nil

	evt := newSendEvent(msgs)
	t.dispatcher.DispatchBeforeSend(evt)
	if evt.Cancelled() {
		t.logger.Debug("send cancelled by listener", "event_id", evt.ID)
		return 0, nil, nil
	}

	body, err := build(t.builder)
	if err != nil {
		return t.fail(evt, err), evt.FailedRecipients, nil
	}

	client, err := t.ensureClient()
	if err != nil {
		return 0, nil, err
	}

	resp, err := client.Post(ctx, mailjet.ResourceEmail, body)
	if err != nil {
		return t.fail(evt, err), evt.FailedRecipients, nil
	}
	t.lastResponse = resp

	if !resp.Success() {
		return t.fail(evt, resp.Err()), evt.FailedRecipients, nil
	}

	evt.Result = ResultSuccess
	evt.SentCount = t.builder.SentCount(resp.Body)
	t.logger.Info("email sent via mailjet",
		"event_id", evt.ID,
		"version", t.builder.Version(),
		"messages", len(msgs),
		"sent", evt.SentCount,
	)
	t.dispatcher.DispatchSendPerformed(evt)

	return evt.SentCount, nil, nil
}

// fail records err on evt, notifies listeners and returns the zero count.
func (t *Transport) fail(evt *SendEvent, err error) int {
	evt.Result = ResultFailed
	evt.Err = err
	for _, msg := range evt.Messages {
		evt.FailedRecipients = append(evt.FailedRecipients, msg.To...)
	}
	t.logger.Error("mailjet send failed",
		"event_id", evt.ID,
		"version", t.builder.Version(),
		"messages", len(evt.Messages),
		"error", err,
	)
	t.dispatcher.DispatchSendPerformed(evt)
	return 0
}

func (t *Transport) ensureClient() (Poster, error) {
	if t.client != nil {
		return t.client, nil
	}
	c, err := mailjet.New(t.apiKey, t.apiSecret, t.call, t.clientOpts)
	if err != nil {
		return nil, err
	}
	c.SetLogger(t.logger)
	t.client = c
	return c, nil
}

// resetClient drops a lazily created client so the next send picks up new
// settings. Injected clients are kept.
func (t *Transport) resetClient() {
	if _, owned := t.client.(*mailjet.Client); owned {
		t.client = nil
	}
}

// LastResponse returns the response of the most recent call, or nil when the
// call was cancelled, failed before a response or has not happened yet.
func (t *Transport) LastResponse() *mailjet.Response {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastResponse
}

// Format returns the payload version in use, "v3" or "v3.1".
func (t *Transport) Format() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.builder.Version()
}

func (t *Transport) APIKey() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.apiKey
}

func (t *Transport) SetAPIKey(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.apiKey = key
	t.resetClient()
}

func (t *Transport) APISecret() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.apiSecret
}

func (t *Transport) SetAPISecret(secret string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.apiSecret = secret
	t.resetClient()
}

// Call reports whether API calls are performed.
func (t *Transport) Call() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.call
}

func (t *Transport) SetCall(call bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.call = call
	t.resetClient()
}

// ClientOptions returns the options passed at construction or through
// SetClientOptions, without defaults applied.
func (t *Transport) ClientOptions() mailjet.Options {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.clientOpts
}

// SetClientOptions replaces the endpoint options and re-selects the payload
// format from the version.
func (t *Transport) SetClientOptions(opts mailjet.Options) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.clientOpts = opts
	t.selectBuilder()
	t.resetClient()
}

// SetClient injects an external client, replacing any lazily created one.
func (t *Transport) SetClient(p Poster) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.client = p
}
