package auth

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestKindString(t *testing.T) {
	cases := map[Kind]string{
		KindUnknown:            "unknown",
		KindInvalidCredentials: "invalid_credentials",
		KindValidation:         "validation",
		KindConflict:           "conflict",
		KindNotFound:           "not_found",
		KindNetwork:            "network",
		KindSessionExpired:     "session_expired",
	}
	for kind, want := range cases {
		if got := kind.String(); got != want {
			t.Errorf("Kind(%d).String() = %q, want %q", kind, got, want)
		}
	}
}

func TestKindOf_UnwrapsThroughWrapping(t *testing.T) {
	base := NewError(KindConflict, "email already registered")
	wrapped := fmt.Errorf("register: %w", base)

	if got := KindOf(wrapped); got != KindConflict {
		t.Errorf("KindOf(wrapped) = %s, want conflict", got)
	}
	if !IsKind(wrapped, KindConflict) {
		t.Error("IsKind should see through fmt.Errorf wrapping")
	}
}

func TestKindOf_ForeignError(t *testing.T) {
	if got := KindOf(errors.New("plain")); got != KindUnknown {
		t.Errorf("KindOf(plain) = %s, want unknown", got)
	}
	if got := KindOf(nil); got != KindUnknown {
		t.Errorf("KindOf(nil) = %s, want unknown", got)
	}
}

func TestWrapError_PreservesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := WrapError(KindNetwork, "backend unreachable", cause)

	if !errors.Is(err, cause) {
		t.Error("wrapped error should match its cause with errors.Is")
	}
	if err.Error() != "auth: network: backend unreachable" {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestFromStatus(t *testing.T) {
	cases := []struct {
		status int
		want   Kind
	}{
		{http.StatusUnauthorized, KindInvalidCredentials},
		{http.StatusBadRequest, KindValidation},
		{http.StatusUnprocessableEntity, KindValidation},
		{http.StatusConflict, KindConflict},
		{http.StatusNotFound, KindNotFound},
		{http.StatusInternalServerError, KindUnknown},
		{http.StatusBadGateway, KindUnknown},
	}
	for _, tc := range cases {
		if got := FromStatus(tc.status, "").Kind; got != tc.want {
			t.Errorf("FromStatus(%d) = %s, want %s", tc.status, got, tc.want)
		}
	}
}

func TestFromStatus_MessageFallsBackToStatusText(t *testing.T) {
	err := FromStatus(http.StatusConflict, "")
	if err.Message != http.StatusText(http.StatusConflict) {
		t.Errorf("Message = %q", err.Message)
	}

	err = FromStatus(http.StatusConflict, "email already registered")
	if err.Message != "email already registered" {
		t.Errorf("Message = %q", err.Message)
	}
}
