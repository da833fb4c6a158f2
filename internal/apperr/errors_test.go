package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorMatchesKindSentinel(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target error
		want   bool
	}{
		{"forbidden matches forbidden", Forbidden("nope"), ErrForbidden, true},
		{"forbidden does not match not found", Forbidden("nope"), ErrNotFound, false},
		{"wrapped validation", fmt.Errorf("create: %w", Validation("bad", nil)), ErrValidation, true},
		{"store unavailable keeps cause", StoreUnavailable(errors.New("conn refused")), ErrStoreUnavailable, true},
		{"plain error", errors.New("x"), ErrNotFound, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errors.Is(tt.err, tt.target); got != tt.want {
				t.Errorf("errors.Is(%v, %v) = %v, want %v", tt.err, tt.target, got, tt.want)
			}
		})
	}
}

func TestKindOf(t *testing.T) {
	if k := KindOf(fmt.Errorf("wrap: %w", InvalidAsset("too big"))); k != KindInvalidAsset {
		t.Errorf("KindOf = %q, want %q", k, KindInvalidAsset)
	}
	if k := KindOf(errors.New("plain")); k != "" {
		t.Errorf("KindOf(plain) = %q, want empty", k)
	}
}

func TestUploadFailedUnwraps(t *testing.T) {
	cause := errors.New("bucket gone")
	err := UploadFailed(cause)
	if !errors.Is(err, cause) {
		t.Fatalf("expected UploadFailed to unwrap to its cause")
	}
	if err.Error() != "failed to store image: bucket gone" {
		t.Errorf("unexpected message %q", err.Error())
	}
}
