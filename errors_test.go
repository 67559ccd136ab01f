package tatty

import (
	"errors"
	"testing"
)

func TestErrDeciderMessage(t *testing.T) {
	err := &ErrDecider{Iteration: 3, Message: "connection reset"}
	want := "decider: iteration 3: connection reset"
	if err.Error() != want {
		t.Errorf("error = %q, want %q", err.Error(), want)
	}
}

func TestErrDepthExceededMessage(t *testing.T) {
	var err error = &ErrDepthExceeded{Depth: 6, Limit: 5}
	want := "sub-agent depth 6 exceeds limit 5"
	if err.Error() != want {
		t.Errorf("error = %q, want %q", err.Error(), want)
	}

	var de *ErrDepthExceeded
	if !errors.As(err, &de) {
		t.Error("errors.As failed")
	}
}
