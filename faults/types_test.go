package faults

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsCategory(t *testing.T) {
	t.Parallel()

	err := NewTypedError(TypeMismatch, "cannot coerce value", nil)
	if !IsCategory(err, TypeMismatch) {
		t.Fatalf("expected type-mismatch category match")
	}
	if IsCategory(err, SchemaMismatch) {
		t.Fatalf("expected schema-mismatch category mismatch")
	}

	plain := errors.New("plain: " + err.Error())
	if IsCategory(plain, TypeMismatch) {
		t.Fatalf("plain string error must not match typed category")
	}

	wrapped := fmt.Errorf("plan failed: %w", err)
	if !IsCategory(wrapped, TypeMismatch) {
		t.Fatalf("expected category match through %%w wrapping")
	}

	joined := errors.Join(err, errors.New("other"))
	if !IsCategory(joined, TypeMismatch) {
		t.Fatalf("expected category match through errors.Join")
	}
}

func TestTypedErrorMessageFormats(t *testing.T) {
	t.Parallel()

	cause := errors.New("connection refused")
	tests := []struct {
		name string
		err  *TypedError
		want string
	}{
		{"message and cause", NewTypedError(RemoteUnavailable, "remote request failed", cause), "remote request failed: connection refused"},
		{"message only", NewTypedError(RemoteRejected, "name must be unique", nil), "name must be unique"},
		{"cause only", NewTypedError(RemoteUnavailable, "", cause), "connection refused"},
		{"category only", NewTypedError(ConvergenceFailure, "", nil), "ConvergenceFailure"},
	}
	for _, test := range tests {
		if got := test.err.Error(); got != test.want {
			t.Fatalf("%s: expected %q, got %q", test.name, test.want, got)
		}
	}
}

func TestRetryable(t *testing.T) {
	t.Parallel()

	if !Retryable(NewTypedError(RemoteUnavailable, "timeout", nil)) {
		t.Fatalf("expected remote-unavailable to be retryable")
	}
	if Retryable(NewTypedError(RemoteRejected, "invalid field", nil)) {
		t.Fatalf("remote-rejected must not be retryable")
	}
	if Retryable(nil) {
		t.Fatalf("nil error must not be retryable")
	}
}
