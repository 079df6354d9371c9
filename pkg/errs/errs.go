// Package errs defines the closed error taxonomy shared by every
// orchestrator component: a fixed set of kinds, each carrying a status
// hint, an operational/non-operational classification, and a metadata bag.
// Boundary code wraps raw runtime/VCS/network errors into this taxonomy so
// that no component leaks an SDK-specific error shape past its own edge.
package errs

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Kind is one member of the closed error taxonomy.
type Kind string

const (
	Unauthorized               Kind = "unauthorized"
	Forbidden                  Kind = "forbidden"
	NotFound                   Kind = "not_found"
	ValidationFailed           Kind = "validation_failed"
	ContainerCreationFailed    Kind = "container_creation_failed"
	ContainerStartFailed       Kind = "container_start_failed"
	ContainerStopFailed        Kind = "container_stop_failed"
	DockerConnectionFailed     Kind = "docker_connection_failed"
	ContainerLimitExceeded     Kind = "container_limit_exceeded"
	GitCloneFailed             Kind = "git_clone_failed"
	GitWorktreeCreationFailed  Kind = "git_worktree_creation_failed"
	GitOperationFailed         Kind = "git_operation_failed"
	InvalidGitURL              Kind = "invalid_git_url"
	InvalidBranchName          Kind = "invalid_branch_name"
	ResourceLimitExceeded      Kind = "resource_limit_exceeded"
	SystemOverloaded           Kind = "system_overloaded"
	SecurityViolation          Kind = "security_violation"
	NetworkError               Kind = "network_error"
	TimeoutError               Kind = "timeout_error"
	DatabaseError              Kind = "database_error"
	InternalError              Kind = "internal_error"
	// ExternalServiceError is returned by the circuit breaker (pkg/retry)
	// when it fails fast with no fallback while open. It is not one of the
	// kinds produced by the core components themselves.
	ExternalServiceError Kind = "external_service_error"
)

// Error is the concrete type every orchestrator boundary returns.
type Error struct {
	Kind        Kind
	Message     string
	StatusHint  int
	Operational bool
	Metadata    map[string]string
	Timestamp   time.Time
	Cause       error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// WithMeta attaches a metadata key/value and returns the same error for
// chaining.
func (e *Error) WithMeta(key, value string) *Error {
	if e.Metadata == nil {
		e.Metadata = make(map[string]string)
	}
	e.Metadata[key] = value
	return e
}

// New constructs a taxonomy error of the given kind with no cause.
func New(kind Kind, message string) *Error {
	return &Error{
		Kind:        kind,
		Message:     message,
		StatusHint:  statusHint(kind),
		Operational: operational(kind),
		Timestamp:   time.Now(),
	}
}

// Wrap constructs a taxonomy error of the given kind, recording cause in
// metadata via %w semantics (Unwrap returns it).
func Wrap(kind Kind, cause error, message string) *Error {
	e := New(kind, message)
	e.Cause = cause
	if cause != nil {
		e.WithMeta("cause", cause.Error())
	}
	return e
}

// NotFoundError builds a NotFound error naming the missing resource, per
// the taxonomy's `NotFound(resource)` constructor shape.
func NotFoundError(resource string) *Error {
	return New(NotFound, resource+" not found")
}

func statusHint(kind Kind) int {
	switch kind {
	case Unauthorized:
		return http.StatusUnauthorized
	case Forbidden, SecurityViolation:
		return http.StatusForbidden
	case NotFound:
		return http.StatusNotFound
	case ValidationFailed, InvalidGitURL, InvalidBranchName:
		return http.StatusBadRequest
	case ContainerLimitExceeded, ResourceLimitExceeded:
		return http.StatusTooManyRequests
	case TimeoutError:
		return http.StatusGatewayTimeout
	case DockerConnectionFailed, NetworkError, SystemOverloaded, ExternalServiceError:
		return http.StatusServiceUnavailable
	case GitCloneFailed, GitWorktreeCreationFailed, GitOperationFailed,
		ContainerCreationFailed, ContainerStartFailed, ContainerStopFailed,
		DatabaseError, InternalError:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// operational classifies a kind as expected-and-surfaced (true) versus an
// unknown failure that must always be logged critical and converted to
// InternalError at the boundary (false).
func operational(kind Kind) bool {
	switch kind {
	case InternalError:
		return false
	default:
		return true
	}
}

// retryableKinds are the kinds the retry envelope (pkg/retry) will retry;
// every other kind is surfaced after a single attempt.
var retryableKinds = map[Kind]bool{
	NetworkError:           true,
	TimeoutError:           true,
	DockerConnectionFailed: true,
	SystemOverloaded:       true,
	DatabaseError:          true,
}

// Retryable reports whether err (or the Error it unwraps to) belongs to a
// kind the retry envelope should retry.
func Retryable(err error) bool {
	var te *Error
	if !errors.As(err, &te) {
		return false
	}
	return retryableKinds[te.Kind]
}

// userMessages is the §7 user-visible mapping; kinds absent from this map
// fall back to the default message.
var userMessages = map[Kind]string{
	Unauthorized:           "Please log in",
	Forbidden:              "Action not allowed",
	SecurityViolation:      "Action not allowed",
	NotFound:               "Resource not found",
	ContainerLimitExceeded: "maximum environments reached",
	GitCloneFailed:         "verify repository URL and access",
	InvalidBranchName:      "use allowed characters",
	ResourceLimitExceeded:  "try again later",
	TimeoutError:           "operation timed out",
}

// UserMessage renders the operator-safe, user-visible message for err per
// the §7 mapping table. Non-taxonomy errors get the generic default.
func UserMessage(err error) string {
	te, ok := err.(*Error)
	if !ok {
		return "unexpected error, try again"
	}
	if te.Kind == NotFound {
		return te.Message
	}
	if msg, ok := userMessages[te.Kind]; ok {
		return msg
	}
	return "unexpected error, try again"
}

// RecoverySuggestion returns a non-authoritative operator hint for err.
func RecoverySuggestion(err error) string {
	te, ok := err.(*Error)
	if !ok {
		return ""
	}
	switch te.Kind {
	case ContainerLimitExceeded:
		return "stop unused environments"
	case GitCloneFailed, InvalidGitURL:
		return "verify repository URL and access"
	case ContainerCreationFailed:
		return "retry the request"
	case NetworkError, DockerConnectionFailed:
		return "check connectivity to the container runtime"
	default:
		return ""
	}
}
