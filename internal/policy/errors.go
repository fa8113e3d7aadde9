package policy

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnauthenticated is returned when no identity or no role is present.
	ErrUnauthenticated = errors.New("user not authenticated or has no assigned role")

	// ErrForbidden is returned when the role lacks the required grant.
	ErrForbidden = errors.New("forbidden")

	// ErrInvalidTable is returned by New for a malformed grant table.
	ErrInvalidTable = errors.New("invalid policy table")

	// ErrUnknownRequirement is returned when a requirement names a resource
	// or action the table does not define.
	ErrUnknownRequirement = errors.New("unknown permission requirement")
)

// ErrorKind classifies an authorization rejection.
type ErrorKind string

const (
	KindUnauthenticated ErrorKind = "unauthenticated"
	KindForbidden       ErrorKind = "forbidden"
)

// AuthorizationError is the structured rejection produced by a Guard.
// It matches ErrUnauthenticated or ErrForbidden with errors.Is.
type AuthorizationError struct {
	Kind         ErrorKind
	Role         Role
	Requirements []Requirement
	Message      string
}

func (e *AuthorizationError) Error() string {
	return e.Message
}

func (e *AuthorizationError) Unwrap() error {
	if e.Kind == KindUnauthenticated {
		return ErrUnauthenticated
	}
	return ErrForbidden
}

func unauthenticated(reqs []Requirement) *AuthorizationError {
	return &AuthorizationError{
		Kind:         KindUnauthenticated,
		Requirements: reqs,
		Message:      ErrUnauthenticated.Error(),
	}
}

func forbidden(role Role, reqs []Requirement) *AuthorizationError {
	var msg string
	switch {
	case len(reqs) == 0:
		msg = fmt.Sprintf("role '%s' denied: no permission requirement configured", role)
	case len(reqs) == 1:
		msg = fmt.Sprintf("role '%s' is not allowed to %s %s", role, reqs[0].Action, reqs[0].Resource)
	default:
		names := make([]string, len(reqs))
		for i, r := range reqs {
			names[i] = r.String()
		}
		msg = fmt.Sprintf("role '%s' satisfies none of: %s", role, strings.Join(names, ", "))
	}
	return &AuthorizationError{
		Kind:         KindForbidden,
		Role:         role,
		Requirements: reqs,
		Message:      msg,
	}
}

// AsAuthorizationError extracts an *AuthorizationError from err.
func AsAuthorizationError(err error) (*AuthorizationError, bool) {
	var authErr *AuthorizationError
	if errors.As(err, &authErr) {
		return authErr, true
	}
	return nil, false
}
