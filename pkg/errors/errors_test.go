package errors

import (
	stdErrors "errors"
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

	if with.Internal == nil {
		t.Fatal("expected internal error to be set")
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

func TestNewBadRequest(t *testing.T) {
	err := NewBadRequest("invalid payload")
	if err.Code != ErrBadRequest.Code {
		t.Fatalf("expected %s, got %s", ErrBadRequest.Code, err.Code)
	}
	if err.Message != "invalid payload" {
		t.Fatalf("unexpected message: %s", err.Message)
	}
	if err.StatusCode != ErrBadRequest.StatusCode {
		t.Fatalf("unexpected status: %d", err.StatusCode)
	}
}

func TestNewForbiddenKeepsReason(t *testing.T) {
	err := NewForbidden("not a member of any group managing this content")
	if err.StatusCode != ErrForbidden.StatusCode {
		t.Fatalf("unexpected status: %d", err.StatusCode)
	}
	if err.Message != "not a member of any group managing this content" {
		t.Fatalf("unexpected message: %s", err.Message)
	}
	if !stdErrors.Is(err, ErrForbidden) {
		t.Fatal("expected forbidden errors to match by code")
	}

	if NewForbidden("").Message != ErrForbidden.Message {
		t.Fatal("expected default message for empty reason")
	}
}

func TestNewConflictUsesDomainCode(t *testing.T) {
	err := NewConflict("CHAPTER_NUMBER_EXISTS", "chapter number already exists")
	if err.StatusCode != 409 {
		t.Fatalf("unexpected status: %d", err.StatusCode)
	}
	if stdErrors.Is(err, ErrConflict) {
		t.Fatal("expected domain conflict to keep its own code")
	}
	if !IsStatus(err, 409) {
		t.Fatal("expected IsStatus to match conflict status")
	}
	if IsStatus(stdErrors.New("plain"), 409) {
		t.Fatal("expected plain errors not to match")
	}
}
