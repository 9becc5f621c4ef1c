package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	wrapped := fmt.Errorf("create: %w", Conflict("time slot already booked"))
	if KindOf(wrapped) != KindConflict {
		t.Fatalf("expected conflict, got %s", KindOf(wrapped))
	}
	if !Is(wrapped, KindConflict) || Is(nil, KindConflict) {
		t.Fatal("Is mismatch")
	}
	if KindOf(errors.New("boom")) != KindInternal {
		t.Fatal("plain errors should be internal")
	}
}

func TestMessageHidesInternalCause(t *testing.T) {
	err := Internal("load appointment", errors.New("pq: connection reset"))
	if Message(err) != "internal error" {
		t.Fatalf("unexpected message %q", Message(err))
	}
	if Message(BadRequest("notes too long")) != "notes too long" {
		t.Fatal("expected bad request message to pass through")
	}
	if !errors.Is(err, err.Err) {
		t.Fatal("expected Unwrap to expose the cause")
	}
}
