// Package session owns the process-wide session state: the resolved
// user, a loading flag, and an error slot, plus the operations that
// change them (login, register, logout, profile and password flows).
//
// State transitions are whole-value replacements under a lock, so a
// concurrent observer never sees a torn state. One Manager per
// process: create it at application start, Init it once, tear it down
// at process exit.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"

	auth "github.com/Brij5/contentkoshn-sub001"
	"github.com/Brij5/contentkoshn-sub001/audit"
	"github.com/Brij5/contentkoshn-sub001/metrics"
)

// Manager implements auth.SessionManager over an auth.Caller.
type Manager struct {
	client  auth.Caller
	store   auth.CredentialStore
	logger  *slog.Logger
	audit   *audit.Logger
	metrics *metrics.Metrics

	mu    sync.RWMutex
	state auth.State

	subMu   sync.Mutex
	subs    map[int]chan auth.State
	nextSub int
	closed  bool
}

var _ auth.SessionManager = (*Manager)(nil)

// Option configures the Manager.
type Option func(*Manager)

// WithLogger sets a structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithAudit sets the audit event logger.
func WithAudit(a *audit.Logger) Option {
	return func(m *Manager) { m.audit = a }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Manager) { m.metrics = mt }
}

// New creates a Manager in the initial loading state. Call Init to
// resolve the startup session.
func New(client auth.Caller, store auth.CredentialStore, opts ...Option) *Manager {
	m := &Manager{
		client:  client,
		store:   store,
		logger:  slog.New(slog.DiscardHandler),
		metrics: metrics.New(false),
		state:   auth.State{Loading: true},
		subs:    make(map[int]chan auth.State),
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Wire payloads of the auth contract.
type (
	credentials struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	passwordChange struct {
		Current string `json:"currentPassword"`
		Next    string `json:"newPassword"`
	}
	sessionResponse struct {
		Token string        `json:"token,omitempty"`
		User  *auth.Session `json:"user"`
	}
	messageResponse struct {
		Message string `json:"message"`
	}
)

// Init resolves the startup session exactly once: with a stored
// credential it asks the backend who the caller is; without one (or
// when resolution fails) the session starts absent. Loading is false
// afterwards either way.
func (m *Manager) Init(ctx context.Context) {
	if _, ok := m.store.Get(ctx); !ok {
		m.setState(auth.State{})
		return
	}

	var out sessionResponse
	if err := m.client.Do(ctx, http.MethodGet, "/auth/me", nil, &out); err != nil {
		m.logger.Debug("startup session resolution failed", "err", err)
		_ = m.store.Clear(ctx)
		m.setState(auth.State{})
		return
	}
	m.setState(auth.State{User: out.User})
}

// Snapshot returns a copy of the current state.
func (m *Manager) Snapshot() auth.State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Subscribe delivers a state copy after every transition. The returned
// cancel func releases the subscription. Slow consumers miss
// intermediate states rather than blocking transitions.
func (m *Manager) Subscribe() (<-chan auth.State, func()) {
	m.subMu.Lock()
	defer m.subMu.Unlock()

	id := m.nextSub
	m.nextSub++
	ch := make(chan auth.State, 8)
	m.subs[id] = ch

	return ch, func() {
		m.subMu.Lock()
		defer m.subMu.Unlock()
		if sub, ok := m.subs[id]; ok {
			delete(m.subs, id)
			close(sub)
		}
	}
}

// Login authenticates, stores the returned credential and replaces the
// session atomically.
func (m *Manager) Login(ctx context.Context, email, password string) error {
	m.beginOp()

	var out sessionResponse
	err := m.client.Do(ctx, http.MethodPost, "/auth/login",
		credentials{Email: email, Password: password}, &out)
	if err != nil {
		m.failOp("login", err)
		m.emit(audit.Event{Action: "login", Result: "failure", Email: email, Error: err.Error()})
		return err
	}

	if out.Token != "" {
		if serr := m.store.Set(ctx, out.Token); serr != nil {
			m.logger.Warn("storing credential failed", "err", serr)
		}
	}
	m.setState(auth.State{User: out.User})
	m.metrics.RecordOperation("login", "ok")
	userID := ""
	if out.User != nil {
		userID = out.User.UserID
	}
	m.emit(audit.Event{Action: "login", Result: "success", UserID: userID, Email: email})
	return nil
}

// Register creates an account. No session is established; the account
// needs a separate email verification step before it can log in.
func (m *Manager) Register(ctx context.Context, profile map[string]any) (string, error) {
	m.beginOp()

	var out messageResponse
	err := m.client.Do(ctx, http.MethodPost, "/auth/register", profile, &out)
	if err != nil {
		m.failOp("register", err)
		m.emit(audit.Event{Action: "register", Result: "failure", Error: err.Error()})
		return "", err
	}

	m.endOp()
	m.metrics.RecordOperation("register", "ok")
	m.emit(audit.Event{Action: "register", Result: "success"})
	return out.Message, nil
}

// Logout invalidates the session server-side on a best-effort basis
// (a failure there is logged, never surfaced), then unconditionally
// clears the credential and the session.
func (m *Manager) Logout(ctx context.Context) error {
	m.beginOp()

	userID := ""
	if st := m.Snapshot(); st.User != nil {
		userID = st.User.UserID
	}

	if err := m.client.Do(ctx, http.MethodPost, "/auth/logout", nil, nil, auth.WithoutRetry()); err != nil {
		m.logger.Warn("server-side logout failed, clearing local session anyway", "err", err)
	}

	_ = m.store.Clear(ctx)
	m.setState(auth.State{})
	m.metrics.RecordOperation("logout", "ok")
	m.emit(audit.Event{Action: "logout", Result: "success", UserID: userID})
	return nil
}

// RefreshCurrentUser re-resolves the session from the backend, pulling
// the authoritative record after state-changing operations elsewhere.
func (m *Manager) RefreshCurrentUser(ctx context.Context) error {
	m.beginOp()

	var out sessionResponse
	if err := m.client.Do(ctx, http.MethodGet, "/auth/me", nil, &out); err != nil {
		m.failOp("refresh_current_user", err)
		m.emit(audit.Event{Action: "refresh", Result: "failure", Error: err.Error()})
		return err
	}
	m.setState(auth.State{User: out.User})
	m.metrics.RecordOperation("refresh_current_user", "ok")
	m.emit(audit.Event{Action: "refresh", Result: "success"})
	return nil
}

// UpdateProfile applies a partial profile update; the backend returns
// the full record, which replaces the session atomically.
func (m *Manager) UpdateProfile(ctx context.Context, partial map[string]any) error {
	m.beginOp()

	var out sessionResponse
	if err := m.client.Do(ctx, http.MethodPatch, "/auth/update-profile", partial, &out); err != nil {
		m.failOp("update_profile", err)
		return err
	}
	m.setState(auth.State{User: out.User})
	m.metrics.RecordOperation("update_profile", "ok")
	return nil
}

// UpdatePassword changes the account password.
func (m *Manager) UpdatePassword(ctx context.Context, current, next string) error {
	m.beginOp()

	var out messageResponse
	err := m.client.Do(ctx, http.MethodPatch, "/auth/update-password",
		passwordChange{Current: current, Next: next}, &out)
	if err != nil {
		m.failOp("update_password", err)
		return err
	}
	m.endOp()
	m.metrics.RecordOperation("update_password", "ok")
	return nil
}

// ForgotPassword starts the password reset flow.
func (m *Manager) ForgotPassword(ctx context.Context, email string) (string, error) {
	m.beginOp()

	var out messageResponse
	err := m.client.Do(ctx, http.MethodPost, "/auth/forgot-password",
		map[string]string{"email": email}, &out)
	if err != nil {
		m.failOp("forgot_password", err)
		return "", err
	}
	m.endOp()
	m.metrics.RecordOperation("forgot_password", "ok")
	return out.Message, nil
}

// ResetPassword completes the password reset flow with the emailed token.
func (m *Manager) ResetPassword(ctx context.Context, token, next string) (string, error) {
	m.beginOp()

	var out messageResponse
	path := "/auth/reset-password/" + url.PathEscape(token)
	err := m.client.Do(ctx, http.MethodPatch, path, map[string]string{"password": next}, &out)
	if err != nil {
		m.failOp("reset_password", err)
		return "", err
	}
	m.endOp()
	m.metrics.RecordOperation("reset_password", "ok")
	return out.Message, nil
}

// VerifyEmail confirms the account email, then re-resolves the session
// so the verification flag is current.
func (m *Manager) VerifyEmail(ctx context.Context, token string) (string, error) {
	m.beginOp()

	var out messageResponse
	path := "/auth/verify-email/" + url.PathEscape(token)
	err := m.client.Do(ctx, http.MethodGet, path, nil, &out)
	if err != nil {
		m.failOp("verify_email", err)
		return "", err
	}
	m.endOp()
	m.metrics.RecordOperation("verify_email", "ok")
	m.emit(audit.Event{Action: "verify_email", Result: "success"})

	if m.Snapshot().User != nil {
		if err := m.RefreshCurrentUser(ctx); err != nil {
			return out.Message, fmt.Errorf("verified, but re-resolving the session failed: %w", err)
		}
	}
	return out.Message, nil
}

// HandleSessionExpired forces the user absent. The transport fires
// this when a silent refresh fails; the route guard reacts on its next
// evaluation.
func (m *Manager) HandleSessionExpired() {
	m.mu.Lock()
	st := m.state
	st.User = nil
	m.state = st
	m.mu.Unlock()

	m.notify(st)
	m.emit(audit.Event{Action: "session_expired", Result: "failure"})
	m.logger.Info("session expired, user signed out")
}

// Close releases subscriber channels.
func (m *Manager) Close() error {
	m.subMu.Lock()
	defer m.subMu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	for id, ch := range m.subs {
		delete(m.subs, id)
		close(ch)
	}
	return nil
}

// beginOp clears the error slot and raises the loading flag, keeping
// the current user in place.
func (m *Manager) beginOp() {
	m.mu.Lock()
	st := m.state
	st.Loading = true
	st.Err = nil
	m.state = st
	m.mu.Unlock()
	m.notify(st)
}

// endOp lowers the loading flag after an operation that does not
// replace the user.
func (m *Manager) endOp() {
	m.mu.Lock()
	st := m.state
	st.Loading = false
	m.state = st
	m.mu.Unlock()
	m.notify(st)
}

// failOp records the failure in the error slot, keeping the current user.
func (m *Manager) failOp(op string, err error) {
	m.mu.Lock()
	st := m.state
	st.Loading = false
	st.Err = err
	m.state = st
	m.mu.Unlock()

	m.notify(st)
	m.metrics.RecordOperation(op, auth.KindOf(err).String())
	m.logger.Debug("operation failed", "op", op, "kind", auth.KindOf(err).String(), "err", err)
}

// setState replaces the whole state tuple.
func (m *Manager) setState(st auth.State) {
	m.mu.Lock()
	m.state = st
	m.mu.Unlock()
	m.notify(st)
}

func (m *Manager) notify(st auth.State) {
	m.subMu.Lock()
	defer m.subMu.Unlock()
	for _, ch := range m.subs {
		select {
		case ch <- st:
		default:
		}
	}
}

func (m *Manager) emit(e audit.Event) {
	if m.audit != nil {
		m.audit.Log(e)
	}
}
