// Package guard decides what a front end should do with a route
// request given the current session state. The decision is pure: no
// I/O, no side effects, so it behaves identically in middleware, in
// tests, and in a render loop.
package guard

import (
	"net/url"
	"strings"

	auth "github.com/Brij5/contentkoshn-sub001"
)

// Action is the outcome of a route evaluation.
type Action int

const (
	// ActionWait defers the decision: the session is still resolving
	// and the caller should hold rendering, not redirect.
	ActionWait Action = iota
	// ActionRender lets the route through.
	ActionRender
	// ActionRedirectLogin sends the visitor to the login page,
	// preserving the origin for post-login return.
	ActionRedirectLogin
	// ActionRedirectVerify sends a signed-in but unverified user to
	// the email verification page.
	ActionRedirectVerify
	// ActionRedirectUnauthorized sends an authenticated user without
	// the required role to the unauthorized page.
	ActionRedirectUnauthorized
)

func (a Action) String() string {
	switch a {
	case ActionWait:
		return "wait"
	case ActionRender:
		return "render"
	case ActionRedirectLogin:
		return "redirect_login"
	case ActionRedirectVerify:
		return "redirect_verify"
	case ActionRedirectUnauthorized:
		return "redirect_unauthorized"
	default:
		return "unknown"
	}
}

// Requirement states what a route demands of the session.
type Requirement struct {
	// Role is the exact role the route requires. Empty means any
	// authenticated user. Routes meant for several roles use separate
	// route registrations, one per role.
	Role auth.Role
	// RequireVerified demands a verified email on top of the role.
	RequireVerified bool
}

// Decision is the evaluation result. Origin is set only for login
// redirects, so the visitor returns to the route they asked for.
type Decision struct {
	Action Action
	Origin string
}

// Guard evaluates route requests. The zero value uses the default
// paths; override the fields before first use.
type Guard struct {
	// AdminPrefix marks a subtree reserved for administrators
	// regardless of the per-route requirement.
	AdminPrefix string
	// LoginPath, VerifyPath and UnauthorizedPath are where the
	// middleware adapters send redirected visitors.
	LoginPath        string
	VerifyPath       string
	UnauthorizedPath string
}

// Default paths, matching the front ends' route layout.
const (
	DefaultAdminPrefix      = "/admin"
	DefaultLoginPath        = "/login"
	DefaultVerifyPath       = "/verify-email"
	DefaultUnauthorizedPath = "/unauthorized"
)

// New returns a Guard with the default paths.
func New() *Guard {
	return &Guard{
		AdminPrefix:      DefaultAdminPrefix,
		LoginPath:        DefaultLoginPath,
		VerifyPath:       DefaultVerifyPath,
		UnauthorizedPath: DefaultUnauthorizedPath,
	}
}

// Decide evaluates a route request against the session state. The
// checks run in a fixed order: resolving session first, then
// authentication, then email verification, then role. A request can
// therefore never leak past an earlier gate because a later one
// happens to pass.
func (g *Guard) Decide(state auth.State, path string, req Requirement) Decision {
	if state.Loading {
		return Decision{Action: ActionWait}
	}
	if state.User == nil {
		return Decision{Action: ActionRedirectLogin, Origin: path}
	}
	if req.RequireVerified && !state.User.EmailVerified {
		return Decision{Action: ActionRedirectVerify}
	}
	if g.adminPrefix() != "" && underPrefix(path, g.adminPrefix()) && state.User.Role != auth.RoleAdmin {
		return Decision{Action: ActionRedirectUnauthorized}
	}
	if req.Role != "" && state.User.Role != req.Role {
		return Decision{Action: ActionRedirectUnauthorized}
	}
	return Decision{Action: ActionRender}
}

// RedirectPath maps a decision to the page the visitor should land on.
// Login redirects carry the origin as a query parameter.
func (g *Guard) RedirectPath(d Decision) string {
	switch d.Action {
	case ActionRedirectLogin:
		return LoginURL(g.loginPath(), d.Origin)
	case ActionRedirectVerify:
		return g.verifyPath()
	case ActionRedirectUnauthorized:
		return g.unauthorizedPath()
	default:
		return ""
	}
}

// LoginURL builds the login redirect target with the origin preserved
// in the "from" query parameter.
func LoginURL(loginPath, origin string) string {
	if origin == "" || origin == "/" {
		return loginPath
	}
	return loginPath + "?from=" + url.QueryEscape(origin)
}

// OriginFrom recovers the origin a login redirect preserved. Returns
// "/" when none was carried or the value is not a local path.
func OriginFrom(query url.Values) string {
	from := query.Get("from")
	if from == "" || !strings.HasPrefix(from, "/") || strings.HasPrefix(from, "//") {
		return "/"
	}
	return from
}

func underPrefix(path, prefix string) bool {
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

func (g *Guard) adminPrefix() string {
	if g.AdminPrefix == "" {
		return DefaultAdminPrefix
	}
	return g.AdminPrefix
}

func (g *Guard) loginPath() string {
	if g.LoginPath == "" {
		return DefaultLoginPath
	}
	return g.LoginPath
}

func (g *Guard) verifyPath() string {
	if g.VerifyPath == "" {
		return DefaultVerifyPath
	}
	return g.VerifyPath
}

func (g *Guard) unauthorizedPath() string {
	if g.UnauthorizedPath == "" {
		return DefaultUnauthorizedPath
	}
	return g.UnauthorizedPath
}
