package transport

import (
	"context"
	"io"
	"net/http"
)

// callState tracks one call through its lifecycle. The single-retry
// guarantee falls out of the state machine: a retry is only ruled
// while the call is still in stateSending.
type callState int

const (
	stateSending callState = iota
	stateRefreshing
	stateResending
	stateDone
	stateFailed
)

// Call is the per-request context threaded through pipeline stages.
// It lives for exactly one Do invocation and is never shared.
type Call struct {
	Method    string
	Path      string
	RequestID string
	Settings  callSettings

	state callState
}

type callSettings struct {
	noRetry bool
}

// State exposes the current lifecycle state, mainly for stages and tests.
func (c *Call) State() string {
	switch c.state {
	case stateSending:
		return "sending"
	case stateRefreshing:
		return "refreshing"
	case stateResending:
		return "resending"
	case stateDone:
		return "done"
	default:
		return "failed"
	}
}

// Verdict is a response stage's ruling on a response.
type Verdict int

const (
	// VerdictAccept hands the response to the caller unchanged.
	VerdictAccept Verdict = iota

	// VerdictRetry asks for the original call to be resent. The send
	// loop honors it at most once per call, whichever stage rules it.
	VerdictRetry
)

// RequestStage mutates an outgoing request before it is sent. Stages
// run in order on every send, including the post-refresh resend, so a
// stage that reads shared state (the credential store) always sees the
// current value.
type RequestStage func(ctx context.Context, call *Call, req *http.Request)

// ResponseStage examines a response and rules Accept or Retry. A
// non-nil error fails the call with that error.
type ResponseStage func(ctx context.Context, call *Call, resp *http.Response) (Verdict, error)

// drainBody discards and closes a response body so the underlying
// connection can be reused before a resend.
func drainBody(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}
