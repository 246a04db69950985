package auth

// Role is the access level assigned to an account by the backend.
type Role string

// Roles known to the ContentKosh backend.
const (
	RoleUser      Role = "user"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
)

// Session is the resolved identity of the caller. It is replaced
// atomically by the session manager, never mutated field by field,
// and exists only while the last credential resolution succeeded.
type Session struct {
	UserID        string         `json:"id"`
	Name          string         `json:"name"`
	Email         string         `json:"email"`
	Role          Role           `json:"role"`
	EmailVerified bool           `json:"isEmailVerified"`
	Profile       map[string]any `json:"profile,omitempty"`
}

// State is the process-wide session state observed by consumers.
// User is indeterminate while Loading is true. Err reflects the most
// recent failed operation and is cleared when a new one starts.
type State struct {
	User    *Session
	Loading bool
	Err     error
}

// Authenticated reports whether a resolved session is present.
func (s State) Authenticated() bool {
	return !s.Loading && s.User != nil
}

// CallSettings adjusts a single backend call.
type CallSettings struct {
	// NoRetry disables the silent refresh-and-resend on 401.
	NoRetry bool
}

// CallOption configures CallSettings for one call.
type CallOption func(*CallSettings)

// WithoutRetry disables the single silent refresh for this call.
// Used for best-effort calls such as logout, where repairing the
// credential is pointless.
func WithoutRetry() CallOption {
	return func(s *CallSettings) { s.NoRetry = true }
}
