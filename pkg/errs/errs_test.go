package errs

import (
	"errors"
	"testing"
)

func TestRetryableClassifiesOnlyTransientKinds(t *testing.T) {
	cases := []struct {
		kind      Kind
		retryable bool
	}{
		{NetworkError, true},
		{TimeoutError, true},
		{DockerConnectionFailed, true},
		{SystemOverloaded, true},
		{DatabaseError, true},
		{ValidationFailed, false},
		{NotFound, false},
		{InvalidBranchName, false},
	}

	for _, c := range cases {
		err := New(c.kind, "boom")
		if got := Retryable(err); got != c.retryable {
			t.Errorf("Retryable(%s) = %v, want %v", c.kind, got, c.retryable)
		}
	}
}

func TestRetryableRejectsNonTaxonomyErrors(t *testing.T) {
	if Retryable(errors.New("plain")) {
		t.Error("plain errors must never be classified as retryable")
	}
}

func TestUserMessageMapping(t *testing.T) {
	cases := map[Kind]string{
		Unauthorized:           "Please log in",
		ContainerLimitExceeded: "maximum environments reached",
		GitCloneFailed:         "verify repository URL and access",
		InvalidBranchName:      "use allowed characters",
		ResourceLimitExceeded:  "try again later",
		TimeoutError:           "operation timed out",
	}
	for kind, want := range cases {
		if got := UserMessage(New(kind, "x")); got != want {
			t.Errorf("UserMessage(%s) = %q, want %q", kind, got, want)
		}
	}
	if got := UserMessage(New(InternalError, "x")); got != "unexpected error, try again" {
		t.Errorf("default UserMessage = %q", got)
	}
}

func TestWrapUnwrapsCause(t *testing.T) {
	cause := errors.New("underlying")
	wrapped := Wrap(GitOperationFailed, cause, "clone failed")
	if !errors.Is(wrapped, cause) {
		t.Error("Wrap must preserve the cause for errors.Is/As")
	}
}
