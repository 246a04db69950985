package ginmw

import (
	"net/http"
	"net/http/httptest"
	"testing"

	auth "github.com/Brij5/contentkoshn-sub001"
	"github.com/Brij5/contentkoshn-sub001/guard"
	"github.com/gin-gonic/gin"
)

type stubSource struct {
	state auth.State
}

func (s *stubSource) Snapshot() auth.State { return s.state }

func newRouter(src StateSource, mw gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/dashboard", mw, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user": GetUserID(c)})
	})
	r.GET("/admin/posts", mw, func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func get(r *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	r.ServeHTTP(w, req)
	return w
}

func TestProtect_AnonymousRedirectsToLoginWithOrigin(t *testing.T) {
	src := &stubSource{state: auth.State{}}
	r := newRouter(src, Authenticated(src))

	w := get(r, "/dashboard")
	if w.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "/login?from=%2Fdashboard" {
		t.Errorf("Location = %q", loc)
	}
}

func TestProtect_AuthenticatedPassesWithSessionInContext(t *testing.T) {
	src := &stubSource{state: auth.State{User: &auth.Session{
		UserID: "u1", Role: auth.RoleUser, EmailVerified: true,
	}}}
	r := newRouter(src, Authenticated(src))

	w := get(r, "/dashboard")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if body := w.Body.String(); body != `{"user":"u1"}` {
		t.Errorf("body = %s", body)
	}
}

func TestProtect_LoadingAnswers503(t *testing.T) {
	src := &stubSource{state: auth.State{Loading: true}}
	r := newRouter(src, Authenticated(src))

	w := get(r, "/dashboard")
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("expected a Retry-After header while resolving")
	}
}

func TestProtect_UnverifiedRedirectsToVerify(t *testing.T) {
	src := &stubSource{state: auth.State{User: &auth.Session{
		UserID: "u1", Role: auth.RoleAdmin, EmailVerified: false,
	}}}
	r := newRouter(src, Verified(src))

	w := get(r, "/dashboard")
	if w.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "/verify-email" {
		t.Errorf("Location = %q", loc)
	}
}

func TestProtect_NonAdminOnAdminRoute(t *testing.T) {
	src := &stubSource{state: auth.State{User: &auth.Session{
		UserID: "u1", Role: auth.RoleUser, EmailVerified: true,
	}}}
	r := newRouter(src, Authenticated(src))

	w := get(r, "/admin/posts")
	if w.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "/unauthorized" {
		t.Errorf("Location = %q", loc)
	}
}

func TestProtect_ExcludedPathBypassesGuard(t *testing.T) {
	src := &stubSource{state: auth.State{}}
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/healthz", Authenticated(src, WithExcludedPaths("/healthz")), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := get(r, "/healthz")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
}

func TestProtect_CustomGuardPaths(t *testing.T) {
	src := &stubSource{state: auth.State{}}
	g := &guard.Guard{LoginPath: "/signin"}
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/x", Authenticated(src, WithGuard(g)), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := get(r, "/x")
	if loc := w.Header().Get("Location"); loc != "/signin?from=%2Fx" {
		t.Errorf("Location = %q", loc)
	}
}
