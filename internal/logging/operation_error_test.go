package logging

import (
	"errors"
	"testing"
)

func TestOperationErrorKeepsCauseMessage(t *testing.T) {
	cause := errors.New("User not found")
	err := NewOperationError("analysis.persist", "req-1", cause)

	if err.Error() != "User not found" {
		t.Fatalf("unexpected message: %s", err.Error())
	}
	if !errors.Is(err, cause) {
		t.Fatal("expected errors.Is to match the cause")
	}

	var opErr *OperationError
	if !errors.As(err, &opErr) {
		t.Fatalf("expected OperationError, got %T", err)
	}
	if opErr.Detail() != "analysis.persist (request_id=req-1): User not found" {
		t.Fatalf("unexpected detail: %s", opErr.Detail())
	}
}

func TestNewOperationErrorNil(t *testing.T) {
	if err := NewOperationError("op", "", nil); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}
