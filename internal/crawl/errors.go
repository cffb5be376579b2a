package crawl

import (
	"context"
	"errors"
	"fmt"

	"github.com/jobharvest/rod-jobs/internal/job"
)

var (
	// ErrFatalNavigation aborts the whole run: pagination has no fallback.
	ErrFatalNavigation = errors.New("fatal navigation error")
	// ErrRequiredFieldMissing marks a detail page without company, title or description.
	ErrRequiredFieldMissing = errors.New("required field missing")
	// ErrTimeout marks a page that never reached the expected state.
	ErrTimeout = errors.New("timeout")
	// ErrNoSession marks a URL that was never loaded because no browser was available.
	ErrNoSession = errors.New("no browser session")
	// errSectionMissing is swallowed by optional rules.
	errSectionMissing = errors.New("section missing")
)

// NavigationError is returned when the listing session cannot move on.
type NavigationError struct {
	State State
	Page  int
	Err   error
}

func (e *NavigationError) Error() string {
	if e.Page > 0 {
		return fmt.Sprintf("pagination failed in state %s at page %d: %v", e.State, e.Page, e.Err)
	}
	return fmt.Sprintf("pagination failed in state %s: %v", e.State, e.Err)
}

func (e *NavigationError) Unwrap() error { return e.Err }

func (e *NavigationError) Is(target error) bool { return target == ErrFatalNavigation }

// FieldError reports a required field whose element is absent.
type FieldError struct {
	Field    job.Field
	Selector string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s not found at %q", e.Field.Key(), e.Selector)
}

func (e *FieldError) Is(target error) bool { return target == ErrRequiredFieldMissing }

// SessionError reports a worker identity whose browser could not be started.
type SessionError struct {
	Worker int
	Err    error
}

func (e *SessionError) Error() string {
	return fmt.Sprintf("worker %d session: %v", e.Worker, e.Err)
}

func (e *SessionError) Unwrap() error { return e.Err }

func (e *SessionError) Is(target error) bool { return target == ErrNoSession }

// errorClass names the failure kind recorded in an ErrorEntry.
func errorClass(err error) string {
	var fe *FieldError
	switch {
	case errors.Is(err, ErrNoSession):
		return "NoSession"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, ErrTimeout):
		return "TimeoutError"
	case errors.As(err, &fe):
		return "RequiredFieldMissing"
	case errors.Is(err, ErrFatalNavigation):
		return "FatalNavigationError"
	case errors.Is(err, context.Canceled):
		return "Canceled"
	}
	return "ExtractError"
}

// describe renders err for ErrorEntry.Message: where it failed, then class and detail.
func describe(location string, err error) string {
	return fmt.Sprintf("%s: [%s] %v", location, errorClass(err), err)
}
