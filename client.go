// Package auth is the client-side session and access-control SDK for
// the ContentKosh front ends.
//
// It is composed bottom-up from four parts: a CredentialStore holding
// the single durable bearer credential (credstore/), a Caller that
// injects and silently repairs that credential on every backend call
// (transport/), a SessionManager owning process-wide session state
// (session/), and a route guard turning that state into navigation
// decisions (guard/ plus middleware adapters).
//
// Concrete implementations are injected via Option functions, so any
// part can be substituted with a fake in tests:
//
//	client, err := auth.NewClient(
//	    auth.WithCredentialStore(store),
//	    auth.WithCaller(tr),
//	    auth.WithSessionManager(mgr),
//	)
package auth

import (
	"context"
	"fmt"
	"io"
	"log/slog"
)

// Client is the assembled SDK: one instance per process, created at
// application start and torn down at process exit.
type Client struct {
	logger   *slog.Logger
	store    CredentialStore
	caller   Caller
	sessions SessionManager
}

// Option configures the Client.
type Option func(*Client)

// WithLogger sets a structured logger for the client.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithCredentialStore sets the credential persistence implementation.
func WithCredentialStore(s CredentialStore) Option {
	return func(c *Client) { c.store = s }
}

// WithCaller sets the backend call implementation.
func WithCaller(t Caller) Option {
	return func(c *Client) { c.caller = t }
}

// WithSessionManager sets the session state implementation.
func WithSessionManager(m SessionManager) Option {
	return func(c *Client) { c.sessions = m }
}

// NewClient assembles the SDK. At least a CredentialStore and a Caller
// are required; the SessionManager is optional for callers that only
// need raw authenticated transport.
func NewClient(opts ...Option) (*Client, error) {
	c := &Client{}
	for _, o := range opts {
		o(c)
	}
	if c.store == nil {
		return nil, fmt.Errorf("auth: a CredentialStore is required")
	}
	if c.caller == nil {
		return nil, fmt.Errorf("auth: a Caller is required")
	}
	if c.logger == nil {
		c.logger = slog.New(slog.DiscardHandler)
	}
	return c, nil
}

// Logger returns the configured logger.
func (c *Client) Logger() *slog.Logger { return c.logger }

// Store returns the credential store.
func (c *Client) Store() CredentialStore { return c.store }

// Caller returns the backend caller.
func (c *Client) Caller() Caller { return c.caller }

// Sessions returns the session manager, or nil if not configured.
func (c *Client) Sessions() SessionManager { return c.sessions }

// Do forwards to the configured Caller.
func (c *Client) Do(ctx context.Context, method, path string, body, out any, opts ...CallOption) error {
	return c.caller.Do(ctx, method, path, body, out, opts...)
}

// Close releases all resources held by the client. Any injected part
// that implements io.Closer will be closed.
func (c *Client) Close() error {
	closers := []any{c.sessions, c.caller, c.store}
	var firstErr error
	for _, part := range closers {
		if cl, ok := part.(io.Closer); ok && cl != nil {
			if err := cl.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
