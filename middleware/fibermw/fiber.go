// Package fibermw adapts guard decisions to Fiber v3 handlers, the
// counterpart of ginmw for Fiber-based front ends.
package fibermw

import (
	"net/http"

	auth "github.com/Brij5/contentkoshn-sub001"
	"github.com/Brij5/contentkoshn-sub001/guard"
	"github.com/Brij5/contentkoshn-sub001/metrics"
	"github.com/gofiber/fiber/v3"
)

// Local key for the session placed by Protect.
const KeyUser = "auth_user"

// StateSource yields the current session state. *session.Manager
// satisfies it.
type StateSource interface {
	Snapshot() auth.State
}

// Option configures the middleware.
type Option func(*config)

type config struct {
	guard   *guard.Guard
	metrics *metrics.Metrics
}

// WithGuard overrides the default guard.
func WithGuard(g *guard.Guard) Option {
	return func(cfg *config) { cfg.guard = g }
}

// WithMetrics records guard decisions.
func WithMetrics(m *metrics.Metrics) Option {
	return func(cfg *config) { cfg.metrics = m }
}

// Protect returns Fiber middleware enforcing the given requirement.
func Protect(src StateSource, req guard.Requirement, opts ...Option) fiber.Handler {
	cfg := &config{
		guard:   guard.New(),
		metrics: metrics.New(false),
	}
	for _, o := range opts {
		o(cfg)
	}

	return func(c fiber.Ctx) error {
		state := src.Snapshot()
		d := cfg.guard.Decide(state, c.Path(), req)
		cfg.metrics.RecordGuardDecision(d.Action.String())

		switch d.Action {
		case guard.ActionWait:
			c.Set("Retry-After", "1")
			return c.Status(http.StatusServiceUnavailable).JSON(fiber.Map{"message": "session is resolving"})
		case guard.ActionRender:
			c.Locals(KeyUser, state.User)
			return c.Next()
		default:
			return c.Redirect().To(cfg.guard.RedirectPath(d))
		}
	}
}

// Authenticated requires any signed-in user.
func Authenticated(src StateSource, opts ...Option) fiber.Handler {
	return Protect(src, guard.Requirement{}, opts...)
}

// Verified requires a signed-in user with a verified email.
func Verified(src StateSource, opts ...Option) fiber.Handler {
	return Protect(src, guard.Requirement{RequireVerified: true}, opts...)
}

// Admin requires the admin role on top of a verified email.
func Admin(src StateSource, opts ...Option) fiber.Handler {
	return Protect(src, guard.Requirement{Role: auth.RoleAdmin, RequireVerified: true}, opts...)
}

// GetSession returns the session placed by Protect, or nil outside a
// protected route.
func GetSession(c fiber.Ctx) *auth.Session {
	s, _ := c.Locals(KeyUser).(*auth.Session)
	return s
}
