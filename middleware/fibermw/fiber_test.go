package fibermw

import (
	"net/http"
	"net/http/httptest"
	"testing"

	auth "github.com/Brij5/contentkoshn-sub001"
	"github.com/gofiber/fiber/v3"
)

type stubSource struct {
	state auth.State
}

func (s *stubSource) Snapshot() auth.State { return s.state }

func newApp(src StateSource, mw fiber.Handler) *fiber.App {
	app := fiber.New()
	app.Get("/dashboard", mw, func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"user": GetSession(c).UserID})
	})
	app.Get("/admin/posts", mw, func(c fiber.Ctx) error {
		return c.SendStatus(http.StatusOK)
	})
	return app
}

func TestProtect_AnonymousRedirectsToLogin(t *testing.T) {
	src := &stubSource{state: auth.State{}}
	app := newApp(src, Authenticated(src))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 300 || resp.StatusCode > 399 {
		t.Fatalf("status = %d, want a redirect", resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); loc != "/login?from=%2Fdashboard" {
		t.Errorf("Location = %q", loc)
	}
}

func TestProtect_AuthenticatedPasses(t *testing.T) {
	src := &stubSource{state: auth.State{User: &auth.Session{
		UserID: "u1", Role: auth.RoleUser, EmailVerified: true,
	}}}
	app := newApp(src, Authenticated(src))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
}

func TestProtect_LoadingAnswers503(t *testing.T) {
	src := &stubSource{state: auth.State{Loading: true}}
	app := newApp(src, Authenticated(src))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", resp.StatusCode)
	}
}

func TestProtect_NonAdminOnAdminRoute(t *testing.T) {
	src := &stubSource{state: auth.State{User: &auth.Session{
		UserID: "u1", Role: auth.RoleUser, EmailVerified: true,
	}}}
	app := newApp(src, Authenticated(src))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/admin/posts", nil))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if loc := resp.Header.Get("Location"); loc != "/unauthorized" {
		t.Errorf("Location = %q", loc)
	}
}

func TestProtect_AdminPasses(t *testing.T) {
	src := &stubSource{state: auth.State{User: &auth.Session{
		UserID: "u1", Role: auth.RoleAdmin, EmailVerified: true,
	}}}
	app := newApp(src, Admin(src))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/admin/posts", nil))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
}
