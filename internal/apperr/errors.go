// Package apperr holds the error values shared by the dispute, moderation and
// trust workflows. Callers compare with errors.Is / errors.As.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrInvalidOption  = errors.New("invalid poll option")
	ErrInvalidState   = errors.New("invalid state")
	ErrForbidden      = errors.New("forbidden")
	ErrModerationHold = errors.New("held for moderation")
	ErrRateLimited    = errors.New("rate limited")
	ErrConflict       = errors.New("already exists")
	ErrInvalidInput   = errors.New("invalid input")
)

// DependencyError reports that the store, a classifier or another external
// collaborator could not serve a request.
type DependencyError struct {
	Dependency string
	Err        error
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("%s unavailable: %v", e.Dependency, e.Err)
}

func (e *DependencyError) Unwrap() error {
	return e.Err
}

// Dependency wraps err as a DependencyError unless it is nil or already one of
// the domain sentinels, which pass through untouched.
func Dependency(name string, err error) error {
	if err == nil {
		return nil
	}
	if IsDomain(err) {
		return err
	}
	var de *DependencyError
	if errors.As(err, &de) {
		return err
	}
	return &DependencyError{Dependency: name, Err: err}
}

// IsDomain reports whether err is one of the rule violations above rather
// than an infrastructure failure.
func IsDomain(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrInvalidOption) ||
		errors.Is(err, ErrInvalidState) ||
		errors.Is(err, ErrForbidden) ||
		errors.Is(err, ErrModerationHold) ||
		errors.Is(err, ErrRateLimited) ||
		errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrInvalidInput)
}
