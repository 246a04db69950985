package session_test

import (
	"context"
	"net/http/httptest"
	"testing"

	auth "github.com/Brij5/contentkoshn-sub001"
	"github.com/Brij5/contentkoshn-sub001/credstore"
	"github.com/Brij5/contentkoshn-sub001/fake"
	"github.com/Brij5/contentkoshn-sub001/session"
	"github.com/Brij5/contentkoshn-sub001/transport"
	"github.com/stretchr/testify/require"
)

type harness struct {
	backend *fake.Server
	store   *credstore.Memory
	client  *transport.Client
	mgr     *session.Manager
}

func newHarness(t *testing.T, backendOpts ...fake.Option) *harness {
	t.Helper()

	base := []fake.Option{
		fake.WithUser("Alice", "a@x.com", "secret", auth.RoleUser, true),
	}
	backend := fake.NewServer(append(base, backendOpts...)...)
	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)

	store := credstore.NewMemory()
	client, err := transport.New(srv.URL, store)
	require.NoError(t, err)

	mgr := session.New(client, store)
	t.Cleanup(func() { _ = mgr.Close() })
	client.OnSessionExpired(mgr.HandleSessionExpired)

	return &harness{backend: backend, store: store, client: client, mgr: mgr}
}

func TestInit_WithoutCredentialStartsAbsent(t *testing.T) {
	h := newHarness(t)

	h.mgr.Init(context.Background())

	st := h.mgr.Snapshot()
	require.False(t, st.Loading)
	require.Nil(t, st.User)
	require.NoError(t, st.Err)
	require.EqualValues(t, 0, h.backend.PrivateCalls())
}

func TestInit_WithCredentialResolvesUser(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.NoError(t, h.mgr.Login(ctx, "a@x.com", "secret"))

	// Fresh manager over the same store simulates a process restart.
	mgr2 := session.New(h.client, h.store)
	defer mgr2.Close()
	mgr2.Init(ctx)

	st := mgr2.Snapshot()
	require.True(t, st.Authenticated())
	require.Equal(t, "a@x.com", st.User.Email)
}

func TestLogin_Success(t *testing.T) {
	h := newHarness(t)

	err := h.mgr.Login(context.Background(), "a@x.com", "secret")
	require.NoError(t, err)

	st := h.mgr.Snapshot()
	require.True(t, st.Authenticated())
	require.False(t, st.Loading)
	require.NoError(t, st.Err)
	require.Equal(t, "Alice", st.User.Name)
	require.Equal(t, auth.RoleUser, st.User.Role)

	cred, ok := h.store.Get(context.Background())
	require.True(t, ok)
	require.NotEmpty(t, cred)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	h := newHarness(t)

	err := h.mgr.Login(context.Background(), "a@x.com", "wrong")
	require.Error(t, err)
	require.Equal(t, auth.KindInvalidCredentials, auth.KindOf(err))

	st := h.mgr.Snapshot()
	require.Nil(t, st.User)
	require.False(t, st.Loading)
	require.Error(t, st.Err)

	_, ok := h.store.Get(context.Background())
	require.False(t, ok, "failed login must not leave a credential behind")
}

// A failed operation's error is cleared the moment the next operation
// starts; the state never mixes an old error with a new outcome.
func TestState_ErrorClearedOnNextOperation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.Error(t, h.mgr.Login(ctx, "a@x.com", "wrong"))
	require.Error(t, h.mgr.Snapshot().Err)

	require.NoError(t, h.mgr.Login(ctx, "a@x.com", "secret"))

	st := h.mgr.Snapshot()
	require.NoError(t, st.Err)
	require.True(t, st.Authenticated())
}

func TestRegister_EstablishesNoSession(t *testing.T) {
	h := newHarness(t)

	msg, err := h.mgr.Register(context.Background(), map[string]any{
		"name": "Bob", "email": "b@x.com", "password": "hunter2",
	})
	require.NoError(t, err)
	require.NotEmpty(t, msg)

	st := h.mgr.Snapshot()
	require.Nil(t, st.User, "registration must not sign the user in")
	require.False(t, st.Loading)

	_, ok := h.store.Get(context.Background())
	require.False(t, ok)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	h := newHarness(t)

	_, err := h.mgr.Register(context.Background(), map[string]any{
		"name": "Dup", "email": "a@x.com", "password": "pw",
	})
	require.Error(t, err)
	require.Equal(t, auth.KindConflict, auth.KindOf(err))
}

func TestLogout_ClearsEverything(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.NoError(t, h.mgr.Login(ctx, "a@x.com", "secret"))
	require.NoError(t, h.mgr.Logout(ctx))

	st := h.mgr.Snapshot()
	require.Nil(t, st.User)
	require.False(t, st.Loading)
	require.NoError(t, st.Err)

	_, ok := h.store.Get(ctx)
	require.False(t, ok)
	require.EqualValues(t, 1, h.backend.LogoutCalls())
}

// Server-side invalidation failing must not keep the user signed in
// locally: the credential is cleared and the user becomes absent anyway.
func TestLogout_ServerFailureStillClearsLocalState(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.NoError(t, h.mgr.Login(ctx, "a@x.com", "secret"))

	// Revoking issued credentials makes the logout call itself fail
	// with 401; the retry opt-out keeps the transport from repairing it.
	h.backend.RevokeAccessTokens()
	h.backend.SetFailRefresh(true)

	err := h.mgr.Logout(ctx)
	require.NoError(t, err, "logout must succeed locally regardless of the server")

	st := h.mgr.Snapshot()
	require.Nil(t, st.User)
	require.NoError(t, st.Err)

	_, ok := h.store.Get(ctx)
	require.False(t, ok)
}

func TestUpdateProfile_ReplacesUserAtomically(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.NoError(t, h.mgr.Login(ctx, "a@x.com", "secret"))
	require.NoError(t, h.mgr.UpdateProfile(ctx, map[string]any{"name": "Alicia"}))

	st := h.mgr.Snapshot()
	require.True(t, st.Authenticated())
	require.Equal(t, "Alicia", st.User.Name)
	require.Equal(t, "a@x.com", st.User.Email, "untouched fields survive a partial update")
}

func TestUpdatePassword_WrongCurrent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.NoError(t, h.mgr.Login(ctx, "a@x.com", "secret"))

	err := h.mgr.UpdatePassword(ctx, "nope", "next123")
	require.Error(t, err)
	require.Equal(t, auth.KindValidation, auth.KindOf(err))

	st := h.mgr.Snapshot()
	require.True(t, st.Authenticated(), "a failed password change keeps the session")
	require.Error(t, st.Err)
}

func TestPasswordResetFlow(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	msg, err := h.mgr.ForgotPassword(ctx, "a@x.com")
	require.NoError(t, err)
	require.NotEmpty(t, msg)

	token := h.backend.ResetTokenFor("a@x.com")
	require.NotEmpty(t, token)

	_, err = h.mgr.ResetPassword(ctx, token, "brandnew")
	require.NoError(t, err)

	require.NoError(t, h.mgr.Login(ctx, "a@x.com", "brandnew"))
	require.True(t, h.mgr.Snapshot().Authenticated())
}

func TestVerifyEmail_RefreshesSessionFlag(t *testing.T) {
	h := newHarness(t,
		fake.WithUser("Carol", "c@x.com", "pw", auth.RoleUser, false),
		fake.WithVerifyToken("vtok", "c@x.com"),
	)
	ctx := context.Background()

	require.NoError(t, h.mgr.Login(ctx, "c@x.com", "pw"))
	require.False(t, h.mgr.Snapshot().User.EmailVerified)

	_, err := h.mgr.VerifyEmail(ctx, "vtok")
	require.NoError(t, err)

	st := h.mgr.Snapshot()
	require.True(t, st.Authenticated())
	require.True(t, st.User.EmailVerified, "session must reflect verification without re-login")
}

// Expiry during normal use: the refresh fails, the transport signals
// session end, and the user ends up absent without any explicit logout.
func TestSessionExpiry_ForcesUserAbsent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.NoError(t, h.mgr.Login(ctx, "a@x.com", "secret"))

	h.backend.RevokeAccessTokens()
	h.backend.SetFailRefresh(true)

	err := h.mgr.RefreshCurrentUser(ctx)
	require.Error(t, err)
	require.Equal(t, auth.KindSessionExpired, auth.KindOf(err))

	st := h.mgr.Snapshot()
	require.Nil(t, st.User)

	_, ok := h.store.Get(ctx)
	require.False(t, ok)
}

func TestSubscribe_DeliversTransitions(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	ch, cancel := h.mgr.Subscribe()
	defer cancel()

	require.NoError(t, h.mgr.Login(ctx, "a@x.com", "secret"))

	var final auth.State
	for {
		select {
		case st := <-ch:
			final = st
			if st.Authenticated() {
				require.False(t, st.Loading)
				return
			}
		default:
			t.Fatalf("never observed the authenticated state, last: %+v", final)
		}
	}
}
