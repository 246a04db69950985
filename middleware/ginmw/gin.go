// Package ginmw adapts guard decisions to Gin handlers for
// server-rendered front ends and admin gateways.
//
// The middleware reads the session snapshot, evaluates the route
// through the guard ladder and either lets the request through (with
// the session placed in the context) or issues the redirect the
// decision names.
package ginmw

import (
	"net/http"

	auth "github.com/Brij5/contentkoshn-sub001"
	"github.com/Brij5/contentkoshn-sub001/guard"
	"github.com/Brij5/contentkoshn-sub001/metrics"
	"github.com/gin-gonic/gin"
)

// Context keys for session data in gin.Context.
const (
	KeyUser   = "auth_user"
	KeyUserID = "auth_user_id"
	KeyRole   = "auth_role"
)

// StateSource yields the current session state. *session.Manager
// satisfies it.
type StateSource interface {
	Snapshot() auth.State
}

// Option configures the middleware.
type Option func(*config)

type config struct {
	guard         *guard.Guard
	metrics       *metrics.Metrics
	excludedPaths map[string]bool
}

// WithGuard overrides the default guard (custom redirect paths or
// admin prefix).
func WithGuard(g *guard.Guard) Option {
	return func(cfg *config) { cfg.guard = g }
}

// WithMetrics records guard decisions.
func WithMetrics(m *metrics.Metrics) Option {
	return func(cfg *config) { cfg.metrics = m }
}

// WithExcludedPaths sets paths that bypass the guard entirely
// (e.g. health checks, static assets).
func WithExcludedPaths(paths ...string) Option {
	return func(cfg *config) {
		for _, p := range paths {
			cfg.excludedPaths[p] = true
		}
	}
}

// Protect returns Gin middleware enforcing the given requirement. A
// still-resolving session answers 503 rather than redirecting, so a
// slow startup never bounces signed-in users to the login page.
func Protect(src StateSource, req guard.Requirement, opts ...Option) gin.HandlerFunc {
	cfg := &config{
		guard:         guard.New(),
		metrics:       metrics.New(false),
		excludedPaths: make(map[string]bool),
	}
	for _, o := range opts {
		o(cfg)
	}

	return func(c *gin.Context) {
		if cfg.excludedPaths[c.Request.URL.Path] {
			c.Next()
			return
		}

		state := src.Snapshot()
		d := cfg.guard.Decide(state, c.Request.URL.Path, req)
		cfg.metrics.RecordGuardDecision(d.Action.String())

		switch d.Action {
		case guard.ActionWait:
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"message": "session is resolving"})
		case guard.ActionRender:
			c.Set(KeyUser, state.User)
			c.Set(KeyUserID, state.User.UserID)
			c.Set(KeyRole, string(state.User.Role))
			c.Request = c.Request.WithContext(auth.WithSession(c.Request.Context(), state.User))
			c.Next()
		default:
			c.Redirect(http.StatusFound, cfg.guard.RedirectPath(d))
			c.Abort()
		}
	}
}

// Authenticated requires any signed-in user.
func Authenticated(src StateSource, opts ...Option) gin.HandlerFunc {
	return Protect(src, guard.Requirement{}, opts...)
}

// Verified requires a signed-in user with a verified email.
func Verified(src StateSource, opts ...Option) gin.HandlerFunc {
	return Protect(src, guard.Requirement{RequireVerified: true}, opts...)
}

// Admin requires the admin role on top of a verified email.
func Admin(src StateSource, opts ...Option) gin.HandlerFunc {
	return Protect(src, guard.Requirement{Role: auth.RoleAdmin, RequireVerified: true}, opts...)
}

// GetSession returns the session placed in the Gin context by Protect,
// or nil outside a protected route.
func GetSession(c *gin.Context) *auth.Session {
	v, _ := c.Get(KeyUser)
	s, _ := v.(*auth.Session)
	return s
}

// GetUserID returns the signed-in user's ID from the Gin context.
func GetUserID(c *gin.Context) string {
	v, _ := c.Get(KeyUserID)
	s, _ := v.(string)
	return s
}

// GetRole returns the signed-in user's role from the Gin context.
func GetRole(c *gin.Context) auth.Role {
	v, _ := c.Get(KeyRole)
	s, _ := v.(string)
	return auth.Role(s)
}
