package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestConstructors_Status(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		kind Kind
		code int
	}{
		{"validation", Validation("bad"), KindValidation, http.StatusBadRequest},
		{"authentication", Authentication("who"), KindAuthentication, http.StatusUnauthorized},
		{"forbidden", Forbidden("no"), KindAuthorization, http.StatusForbidden},
		{"not found", NotFound("gone"), KindNotFound, http.StatusNotFound},
		{"conflict", Conflict("taken"), KindConflict, http.StatusConflict},
		{"internal", Internal(stderrors.New("boom")), KindInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Kind != tt.kind {
				t.Errorf("Kind = %s, want %s", tt.err.Kind, tt.kind)
			}
			if got := StatusOf(tt.err); got != tt.code {
				t.Errorf("StatusOf = %d, want %d", got, tt.code)
			}
		})
	}
}

func TestAs_WrappedChain(t *testing.T) {
	wrapped := fmt.Errorf("service: %w", NotFound("Request not found"))

	appErr, ok := As(wrapped)
	if !ok {
		t.Fatal("As returned false for a wrapped AppError")
	}
	if appErr.Message != "Request not found" {
		t.Errorf("Message = %q, want %q", appErr.Message, "Request not found")
	}
	if KindOf(wrapped) != KindNotFound {
		t.Errorf("KindOf = %s, want %s", KindOf(wrapped), KindNotFound)
	}
}

func TestIs_MatchesKind(t *testing.T) {
	err := Conflict("Proposal is already accepted")

	if !stderrors.Is(err, &AppError{Kind: KindConflict}) {
		t.Error("errors.Is should match on kind alone")
	}
	if stderrors.Is(err, &AppError{Kind: KindNotFound}) {
		t.Error("errors.Is matched a different kind")
	}
	if stderrors.Is(err, &AppError{Kind: KindConflict, Message: "other"}) {
		t.Error("errors.Is matched a different message")
	}
}

func TestPublicMessage_HidesCause(t *testing.T) {
	cause := stderrors.New("connection refused to 10.0.0.3")

	if got := PublicMessage(Internal(cause)); got != "Internal Server Error" {
		t.Errorf("PublicMessage(Internal) = %q", got)
	}
	if got := PublicMessage(cause); got != "Internal Server Error" {
		t.Errorf("PublicMessage(plain) = %q", got)
	}
	if !stderrors.Is(Internal(cause), cause) {
		t.Error("Internal should unwrap to its cause")
	}
	if got := StatusOf(cause); got != http.StatusInternalServerError {
		t.Errorf("StatusOf(plain) = %d, want 500", got)
	}
}
