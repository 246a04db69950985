package auth

import "context"

// CredentialStore holds the single durable bearer credential slot.
// It is a storage primitive: no validation of token shape or expiry.
// Implementations: credstore/ (file, memory, redis).
//
// A store whose backing medium is unavailable must not fail callers:
// Set and Clear degrade to no-ops and Get reports absent.
type CredentialStore interface {
	// Get returns the stored credential, if any.
	Get(ctx context.Context) (string, bool)

	// Set stores the credential, overwriting any previous one.
	Set(ctx context.Context, credential string) error

	// Clear removes the stored credential.
	Clear(ctx context.Context) error
}

// Caller performs a single backend call with credential injection and
// silent repair. Implementations: transport/ (HTTP), session manager
// tests stub it directly.
type Caller interface {
	// Do sends method+path with the JSON-encoded body and decodes the
	// response into out (when non-nil). Errors are classified into the
	// package taxonomy; business payloads pass through untouched.
	Do(ctx context.Context, method, path string, body, out any, opts ...CallOption) error
}

// SessionManager owns the process-wide session state and the
// operations that change it. Implementation: session/.
type SessionManager interface {
	// Snapshot returns a copy of the current state.
	Snapshot() State

	// Login authenticates, stores the returned credential and resolves the session.
	Login(ctx context.Context, email, password string) error

	// Register creates an account. It does not establish a session;
	// the account requires a separate verification step.
	Register(ctx context.Context, profile map[string]any) (string, error)

	// Logout invalidates the session server-side (best effort) and
	// unconditionally clears local state.
	Logout(ctx context.Context) error

	// RefreshCurrentUser re-resolves the session from the backend.
	RefreshCurrentUser(ctx context.Context) error

	// UpdateProfile applies a partial profile update and replaces the session.
	UpdateProfile(ctx context.Context, partial map[string]any) error

	// UpdatePassword changes the account password.
	UpdatePassword(ctx context.Context, current, next string) error

	// ForgotPassword starts the password reset flow.
	ForgotPassword(ctx context.Context, email string) (string, error)

	// ResetPassword completes the password reset flow.
	ResetPassword(ctx context.Context, token, next string) (string, error)

	// VerifyEmail confirms the account email and re-resolves the session.
	VerifyEmail(ctx context.Context, token string) (string, error)
}
