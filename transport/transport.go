// Package transport is the shared session client: every backend call
// goes through it. It reads the credential store before each send,
// attaches the bearer credential, and on an authorization failure
// performs exactly one silent refresh and resend before propagating
// the failure.
//
// Refresh relies on the backend's refresh cookie, which the embedded
// cookie jar carries automatically; the expired access credential is
// never sent to the refresh endpoint.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	auth "github.com/Brij5/contentkoshn-sub001"
	"github.com/Brij5/contentkoshn-sub001/metrics"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// DefaultRefreshPath is the backend endpoint that issues a fresh
// credential from the refresh cookie.
const DefaultRefreshPath = "/auth/refresh-token"

// Client is the shared session HTTP client. One instance per process;
// safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
	store   auth.CredentialStore
	logger  *slog.Logger
	metrics *metrics.Metrics

	refreshPath   string
	sharedRefresh bool
	onExpired     func()

	reqStages  []RequestStage
	respStages []ResponseStage

	sf singleflight.Group
}

// compile-time check
var _ auth.Caller = (*Client)(nil)

// Option configures the Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client. The client should carry a
// cookie jar, or silent refresh will have no refresh cookie to send.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithLogger sets a structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithOnSessionExpired registers the callback fired when a refresh
// fails and the session is over. The session manager hooks in here.
func WithOnSessionExpired(fn func()) Option {
	return func(c *Client) { c.onExpired = fn }
}

// WithSharedRefresh toggles refresh de-duplication. When enabled (the
// default) concurrent expiring calls await a single in-flight refresh
// instead of each issuing their own.
func WithSharedRefresh(enabled bool) Option {
	return func(c *Client) { c.sharedRefresh = enabled }
}

// WithRefreshPath overrides the refresh endpoint path.
func WithRefreshPath(p string) Option {
	return func(c *Client) { c.refreshPath = p }
}

// WithRequestStage appends a request stage after the built-in
// correlation-ID and bearer-injection stages.
func WithRequestStage(s RequestStage) Option {
	return func(c *Client) { c.reqStages = append(c.reqStages, s) }
}

// WithResponseStage appends a response stage after the built-in
// refresh stage.
func WithResponseStage(s ResponseStage) Option {
	return func(c *Client) { c.respStages = append(c.respStages, s) }
}

// OnSessionExpired registers the session-end callback after
// construction. The manager and the client reference each other, so
// one of them has to be wired late.
func (c *Client) OnSessionExpired(fn func()) {
	c.onExpired = fn
}

// New creates a session client for the given backend base URL
// (e.g. "https://api.contentkosh.example/api/v1").
func New(baseURL string, store auth.CredentialStore, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("transport: baseURL is required")
	}
	if store == nil {
		return nil, fmt.Errorf("transport: credential store is required")
	}

	c := &Client{
		baseURL:       strings.TrimRight(baseURL, "/"),
		store:         store,
		logger:        slog.New(slog.DiscardHandler),
		metrics:       metrics.New(false),
		refreshPath:   DefaultRefreshPath,
		sharedRefresh: true,
	}
	c.reqStages = []RequestStage{c.correlationStage, c.bearerStage}
	c.respStages = []ResponseStage{c.refreshStage}
	for _, o := range opts {
		o(c)
	}

	if c.http == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("transport: cookie jar: %w", err)
		}
		c.http = &http.Client{Jar: jar}
	}
	return c, nil
}

// Do sends one backend call. body (when non-nil) is JSON-encoded; the
// response body is decoded into out (when non-nil). Failures come back
// classified: transport faults as Network, an unrecoverable expiry as
// SessionExpired, everything else as derived from the backend payload.
func (c *Client) Do(ctx context.Context, method, path string, body, out any, opts ...auth.CallOption) error {
	var settings auth.CallSettings
	for _, o := range opts {
		o(&settings)
	}

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("transport: encode request: %w", err)
		}
	}

	call := &Call{
		Method:    method,
		Path:      path,
		RequestID: uuid.NewString(),
		Settings:  callSettings{noRetry: settings.NoRetry},
	}

	start := time.Now()
	resp, err := c.send(ctx, call, payload)
	if err != nil {
		c.metrics.RecordRequest(method, auth.KindOf(err).String(), time.Since(start).Seconds())
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		call.state = stateFailed
		c.metrics.RecordRequest(method, "network", time.Since(start).Seconds())
		return auth.WrapError(auth.KindNetwork, "reading response", err)
	}

	if resp.StatusCode >= 400 {
		call.state = stateFailed
		cerr := auth.FromStatus(resp.StatusCode, messageFrom(data))
		c.metrics.RecordRequest(method, cerr.Kind.String(), time.Since(start).Seconds())
		c.logger.Debug("backend call failed",
			"method", method, "path", path, "status", resp.StatusCode,
			"request_id", call.RequestID, "kind", cerr.Kind.String())
		return cerr
	}

	call.state = stateDone
	c.metrics.RecordRequest(method, "ok", time.Since(start).Seconds())

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return auth.WrapError(auth.KindUnknown, "decoding response", err)
		}
	}
	return nil
}

// send runs the request/response pipeline until a stage accepts the
// response. The Call state machine bounds the loop at two sends.
func (c *Client) send(ctx context.Context, call *Call, payload []byte) (*http.Response, error) {
	for {
		req, err := c.newRequest(ctx, call, payload)
		if err != nil {
			call.state = stateFailed
			return nil, fmt.Errorf("transport: build request: %w", err)
		}
		for _, stage := range c.reqStages {
			stage(ctx, call, req)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			call.state = stateFailed
			return nil, auth.WrapError(auth.KindNetwork, "backend unreachable", err)
		}

		verdict := VerdictAccept
		for _, stage := range c.respStages {
			verdict, err = stage(ctx, call, resp)
			if err != nil {
				call.state = stateFailed
				return nil, err
			}
			if verdict == VerdictRetry {
				break
			}
		}
		// The resend bound is enforced here, not by stage convention:
		// a call that has already been resent is accepted no matter
		// what any stage rules.
		if verdict == VerdictRetry && call.state != stateResending {
			call.state = stateResending
			c.metrics.RecordRetry()
			continue
		}
		return resp, nil
	}
}

func (c *Client) newRequest(ctx context.Context, call *Call, payload []byte) (*http.Request, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, call.Method, c.baseURL+call.Path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// correlationStage tags every send with the call's correlation ID.
func (c *Client) correlationStage(_ context.Context, call *Call, req *http.Request) {
	req.Header.Set("X-Request-Id", call.RequestID)
}

// bearerStage reads the store on every send, so the resend after a
// refresh (and any call queued behind it) picks up the new credential.
func (c *Client) bearerStage(ctx context.Context, _ *Call, req *http.Request) {
	if cred, ok := c.store.Get(ctx); ok {
		req.Header.Set("Authorization", "Bearer "+cred)
	}
}

// refreshStage rules on authorization failures. From stateSending it
// refreshes once and rules a retry; from stateResending (or with
// retries disabled) the failure passes through, so no call is ever
// retried twice.
func (c *Client) refreshStage(ctx context.Context, call *Call, resp *http.Response) (Verdict, error) {
	if resp.StatusCode != http.StatusUnauthorized {
		return VerdictAccept, nil
	}
	if call.Settings.noRetry || call.state != stateSending {
		return VerdictAccept, nil
	}
	// A rejection on a call that carried no credential is a plain
	// authentication failure; there is nothing to refresh.
	if _, ok := c.store.Get(ctx); !ok {
		return VerdictAccept, nil
	}

	call.state = stateRefreshing
	drainBody(resp)

	if err := c.refresh(ctx); err != nil {
		_ = c.store.Clear(ctx)
		if c.onExpired != nil {
			c.onExpired()
		}
		c.logger.Info("silent refresh failed, session ended",
			"path", call.Path, "request_id", call.RequestID, "err", err)
		return VerdictAccept, auth.WrapError(auth.KindSessionExpired, "session expired", err)
	}
	return VerdictRetry, nil
}

// refresh obtains and stores a new credential. With shared refresh
// enabled, concurrent expiring calls collapse onto one in-flight
// refresh and all await its result.
func (c *Client) refresh(ctx context.Context) error {
	if !c.sharedRefresh {
		return c.refreshOnce(ctx)
	}
	_, err, _ := c.sf.Do("refresh", func() (any, error) {
		return nil, c.refreshOnce(ctx)
	})
	return err
}

func (c *Client) refreshOnce(ctx context.Context) error {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+c.refreshPath, nil)
	if err != nil {
		return fmt.Errorf("transport: build refresh request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.metrics.RecordRefresh("network_error", time.Since(start).Seconds())
		return auth.WrapError(auth.KindNetwork, "refresh endpoint unreachable", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		c.metrics.RecordRefresh("network_error", time.Since(start).Seconds())
		return auth.WrapError(auth.KindNetwork, "reading refresh response", err)
	}
	if resp.StatusCode != http.StatusOK {
		c.metrics.RecordRefresh("rejected", time.Since(start).Seconds())
		return auth.FromStatus(resp.StatusCode, messageFrom(data))
	}

	var body struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		c.metrics.RecordRefresh("bad_payload", time.Since(start).Seconds())
		return auth.WrapError(auth.KindUnknown, "decoding refresh response", err)
	}
	if body.Token == "" {
		c.metrics.RecordRefresh("bad_payload", time.Since(start).Seconds())
		return auth.NewError(auth.KindUnknown, "refresh response carried no credential")
	}

	if err := c.store.Set(ctx, body.Token); err != nil {
		c.logger.Warn("storing refreshed credential failed", "err", err)
	}
	c.metrics.RecordRefresh("success", time.Since(start).Seconds())
	return nil
}

// messageFrom extracts the backend's human-readable message field.
func messageFrom(data []byte) string {
	var body struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return ""
	}
	return body.Message
}
