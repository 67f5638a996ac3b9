package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestErrorIncludesInternal(t *testing.T) {
	internal := stdErrors.New("boom")
	err := Wrap(internal, "failed")

	if err.Error() != "failed: boom" {
		t.Fatalf("unexpected error string: %s", err.Error())
	}
}

func TestWithInternalCopies(t *testing.T) {
	base := New("TEST", "test", 400)
	with := base.WithInternal(stdErrors.New("oops"))

	if with == base {
		t.Fatal("expected WithInternal to return a copy")
	}
	if base.Internal != nil {
		t.Fatal("expected original error to remain unchanged")
	}
	if !stdErrors.Is(with, base) {
		t.Fatal("expected copy to match its sentinel")
	}
}

func TestFromError(t *testing.T) {
	appErr := ErrNotFound
	if out := FromError(appErr); out != appErr {
		t.Fatal("expected FromError to return the same AppError instance")
	}

	raw := stdErrors.New("raw")
	out := FromError(raw)
	if out.Code != ErrInternalServer.Code {
		t.Fatalf("expected internal server code, got %s", out.Code)
	}
	if out.Internal == nil {
		t.Fatal("expected internal error to be attached")
	}
}

func TestNewValidation(t *testing.T) {
	err := NewValidation("password is required")
	if err.Code != ErrValidation.Code {
		t.Fatalf("expected %s, got %s", ErrValidation.Code, err.Code)
	}
	if err.StatusCode != http.StatusBadRequest {
		t.Fatalf("unexpected status: %d", err.StatusCode)
	}
	if KindOf(err) != KindValidation {
		t.Fatalf("unexpected kind: %s", KindOf(err))
	}
}

func TestKindOfWrapped(t *testing.T) {
	conflict := NewConflict("USERNAME_TAKEN", "taken")
	wrapped := fmt.Errorf("register: %w", conflict)

	if KindOf(wrapped) != KindConflict {
		t.Fatalf("expected conflict kind, got %s", KindOf(wrapped))
	}
	if KindOf(stdErrors.New("plain")) != KindInternal {
		t.Fatal("expected plain errors to be internal")
	}
	if New("X", "gone", http.StatusBadGateway).Kind != KindExternal {
		t.Fatal("expected 502 to map to external kind")
	}
}
