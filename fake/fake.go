// Package fake provides an in-memory stand-in for the ContentKosh auth
// backend, exposed as an http.Handler.
//
// Use it with httptest in unit tests (and in the examples) to exercise
// the full pipeline — login, bearer-authenticated calls, silent
// refresh, logout — without a real backend. Access credentials are
// real HS256 JWTs so expiry and revocation behave like production.
package fake

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	auth "github.com/Brij5/contentkoshn-sub001"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const refreshCookie = "refresh_token"

type account struct {
	id       string
	name     string
	email    string
	password string
	role     auth.Role
	verified bool
	profile  map[string]any
}

// Server is the fake backend. Safe for concurrent use.
type Server struct {
	mu            sync.RWMutex
	secret        []byte
	accessTTL     time.Duration
	usersByEmail  map[string]*account
	usersByID     map[string]*account
	refreshTokens map[string]string // refresh token -> userID
	resetTokens   map[string]string // reset token -> userID
	verifyTokens  map[string]string // verify token -> userID
	revoked       map[string]bool   // access token jti -> revoked
	failRefresh   bool
	nextID        int

	refreshCalls atomic.Int64
	logoutCalls  atomic.Int64
	privateCalls atomic.Int64
}

// Option configures the fake server.
type Option func(*Server)

// WithSecret sets the JWT signing secret.
func WithSecret(secret []byte) Option {
	return func(s *Server) { s.secret = secret }
}

// WithAccessTTL sets the lifetime of minted access credentials.
func WithAccessTTL(d time.Duration) Option {
	return func(s *Server) { s.accessTTL = d }
}

// WithUser seeds an account.
func WithUser(name, email, password string, role auth.Role, verified bool) Option {
	return func(s *Server) {
		s.nextID++
		acc := &account{
			id:       fmt.Sprintf("u%d", s.nextID),
			name:     name,
			email:    email,
			password: password,
			role:     role,
			verified: verified,
		}
		s.usersByEmail[email] = acc
		s.usersByID[acc.id] = acc
	}
}

// WithVerifyToken seeds a pending email-verification token for a user.
func WithVerifyToken(token, email string) Option {
	return func(s *Server) {
		if acc, ok := s.usersByEmail[email]; ok {
			s.verifyTokens[token] = acc.id
		}
	}
}

// NewServer creates a fake backend.
func NewServer(opts ...Option) *Server {
	s := &Server{
		secret:        []byte("fake-signing-secret"),
		accessTTL:     15 * time.Minute,
		usersByEmail:  make(map[string]*account),
		usersByID:     make(map[string]*account),
		refreshTokens: make(map[string]string),
		resetTokens:   make(map[string]string),
		verifyTokens:  make(map[string]string),
		revoked:       make(map[string]bool),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// SetFailRefresh makes the refresh endpoint reject every call,
// simulating an expired refresh token.
func (s *Server) SetFailRefresh(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failRefresh = fail
}

// RevokeAccessTokens invalidates every access credential issued so
// far, simulating expiry. Credentials minted afterwards stay valid.
func (s *Server) RevokeAccessTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for jti := range s.revoked {
		s.revoked[jti] = true
	}
}

// RefreshCalls reports how many times the refresh endpoint was hit.
func (s *Server) RefreshCalls() int64 { return s.refreshCalls.Load() }

// LogoutCalls reports how many times the logout endpoint was hit.
func (s *Server) LogoutCalls() int64 { return s.logoutCalls.Load() }

// PrivateCalls reports how many times the protected demo endpoint was hit.
func (s *Server) PrivateCalls() int64 { return s.privateCalls.Load() }

// ResetTokenFor returns the pending password-reset token for a user,
// so tests can complete the forgot/reset flow.
func (s *Server) ResetTokenFor(email string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acc, ok := s.usersByEmail[email]
	if !ok {
		return ""
	}
	for token, id := range s.resetTokens {
		if id == acc.id {
			return token
		}
	}
	return ""
}

// VerifyTokenFor returns the pending email-verification token for a user.
func (s *Server) VerifyTokenFor(email string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acc, ok := s.usersByEmail[email]
	if !ok {
		return ""
	}
	for token, id := range s.verifyTokens {
		if id == acc.id {
			return token
		}
	}
	return ""
}

// ServeHTTP routes the auth contract.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	switch {
	case r.Method == http.MethodPost && path == "/auth/login":
		s.handleLogin(w, r)
	case r.Method == http.MethodPost && path == "/auth/register":
		s.handleRegister(w, r)
	case r.Method == http.MethodGet && path == "/auth/me":
		s.handleMe(w, r)
	case r.Method == http.MethodPost && path == "/auth/logout":
		s.handleLogout(w, r)
	case r.Method == http.MethodPost && path == "/auth/refresh-token":
		s.handleRefresh(w, r)
	case r.Method == http.MethodPost && path == "/auth/forgot-password":
		s.handleForgotPassword(w, r)
	case r.Method == http.MethodPatch && strings.HasPrefix(path, "/auth/reset-password/"):
		s.handleResetPassword(w, r, strings.TrimPrefix(path, "/auth/reset-password/"))
	case r.Method == http.MethodPatch && path == "/auth/update-password":
		s.handleUpdatePassword(w, r)
	case r.Method == http.MethodGet && strings.HasPrefix(path, "/auth/verify-email/"):
		s.handleVerifyEmail(w, r, strings.TrimPrefix(path, "/auth/verify-email/"))
	case r.Method == http.MethodPatch && path == "/auth/update-profile":
		s.handleUpdateProfile(w, r)
	case r.Method == http.MethodGet && path == "/private":
		s.handlePrivate(w, r)
	default:
		writeJSON(w, http.StatusNotFound, map[string]any{"message": "route not found"})
	}
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Email == "" || body.Password == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "email and password are required"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.usersByEmail[body.Email]
	if !ok || acc.password != body.Password {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "incorrect email or password"})
		return
	}

	token := s.mintAccessToken(acc)
	refresh := uuid.NewString()
	s.refreshTokens[refresh] = acc.id
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookie,
		Value:    refresh,
		Path:     "/",
		HttpOnly: true,
	})
	writeJSON(w, http.StatusOK, map[string]any{"token": token, "user": sessionJSON(acc)})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Email == "" || body.Password == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "name, email and password are required"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.usersByEmail[body.Email]; exists {
		writeJSON(w, http.StatusConflict, map[string]any{"message": "an account with this email already exists"})
		return
	}

	s.nextID++
	acc := &account{
		id:       fmt.Sprintf("u%d", s.nextID),
		name:     body.Name,
		email:    body.Email,
		password: body.Password,
		role:     auth.RoleUser,
	}
	s.usersByEmail[acc.email] = acc
	s.usersByID[acc.id] = acc
	s.verifyTokens[uuid.NewString()] = acc.id

	writeJSON(w, http.StatusCreated, map[string]any{"message": "registered, please verify your email"})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	acc, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": sessionJSON(acc)})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.logoutCalls.Add(1)
	if c, err := r.Cookie(refreshCookie); err == nil {
		s.mu.Lock()
		delete(s.refreshTokens, c.Value)
		s.mu.Unlock()
	}
	writeJSON(w, http.StatusOK, map[string]any{})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	s.refreshCalls.Add(1)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failRefresh {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "refresh token is invalid or has expired"})
		return
	}
	c, err := r.Cookie(refreshCookie)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "missing refresh token"})
		return
	}
	userID, ok := s.refreshTokens[c.Value]
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "refresh token is invalid or has expired"})
		return
	}
	acc := s.usersByID[userID]
	writeJSON(w, http.StatusOK, map[string]any{"token": s.mintAccessToken(acc)})
}

func (s *Server) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Email == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "email is required"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.usersByEmail[body.Email]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"message": "no account with this email"})
		return
	}
	s.resetTokens[uuid.NewString()] = acc.id
	writeJSON(w, http.StatusOK, map[string]any{"message": "password reset link sent"})
}

func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request, token string) {
	var body struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Password == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "password is required"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	userID, ok := s.resetTokens[token]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"message": "token is invalid or has expired"})
		return
	}
	delete(s.resetTokens, token)
	s.usersByID[userID].password = body.Password
	writeJSON(w, http.StatusOK, map[string]any{"message": "password has been reset"})
}

func (s *Server) handleUpdatePassword(w http.ResponseWriter, r *http.Request) {
	acc, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	var body struct {
		Current string `json:"currentPassword"`
		Next    string `json:"newPassword"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Next == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "current and new password are required"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if acc.password != body.Current {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "current password is incorrect"})
		return
	}
	acc.password = body.Next
	writeJSON(w, http.StatusOK, map[string]any{"message": "password updated"})
}

func (s *Server) handleVerifyEmail(w http.ResponseWriter, r *http.Request, token string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	userID, ok := s.verifyTokens[token]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"message": "token is invalid or has expired"})
		return
	}
	delete(s.verifyTokens, token)
	s.usersByID[userID].verified = true
	writeJSON(w, http.StatusOK, map[string]any{"message": "email verified"})
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	acc, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	var partial map[string]any
	if err := json.NewDecoder(r.Body).Decode(&partial); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "invalid profile payload"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if name, ok := partial["name"].(string); ok && name != "" {
		acc.name = name
	}
	if acc.profile == nil {
		acc.profile = make(map[string]any)
	}
	for k, v := range partial {
		if k != "name" {
			acc.profile[k] = v
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": sessionJSON(acc)})
}

// handlePrivate is a protected demo resource used by transport tests.
func (s *Server) handlePrivate(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.authenticate(w, r); !ok {
		return
	}
	s.privateCalls.Add(1)
	writeJSON(w, http.StatusOK, map[string]any{"data": "x"})
}

// mintAccessToken issues an HS256 JWT and records its ID so it can be
// revoked later. Callers must hold mu.
func (s *Server) mintAccessToken(acc *account) string {
	jti := uuid.NewString()
	s.revoked[jti] = false
	claims := jwt.MapClaims{
		"sub":  acc.id,
		"role": string(acc.role),
		"jti":  jti,
		"iat":  time.Now().Unix(),
		"exp":  time.Now().Add(s.accessTTL).Unix(),
	}
	token, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	return token
}

// authenticate validates the bearer credential and resolves the
// account, writing a 401 on failure.
func (s *Server) authenticate(w http.ResponseWriter, r *http.Request) (*account, bool) {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "you are not logged in"})
		return nil, false
	}
	raw := strings.TrimPrefix(header, "Bearer ")

	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return s.secret, nil
	})
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "token is invalid or has expired"})
		return nil, false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	jti, _ := claims["jti"].(string)
	if revoked, seen := s.revoked[jti]; !seen || revoked {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "token is invalid or has expired"})
		return nil, false
	}
	sub, _ := claims["sub"].(string)
	acc, ok := s.usersByID[sub]
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "user no longer exists"})
		return nil, false
	}
	return acc, true
}

func sessionJSON(acc *account) map[string]any {
	return map[string]any{
		"id":              acc.id,
		"name":            acc.name,
		"email":           acc.email,
		"role":            acc.role,
		"isEmailVerified": acc.verified,
		"profile":         acc.profile,
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
