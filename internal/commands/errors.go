package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	validationFailedCode = "SCHEDULER_COMMAND_INVALID"
	contextCanceledCode  = "SCHEDULER_COMMAND_CANCELED"
	contextTimeoutCode   = "SCHEDULER_COMMAND_TIMEOUT"
	contextErrorCode     = "SCHEDULER_COMMAND_CONTEXT"
	executeFailedCode    = "SCHEDULER_COMMAND_FAILED"
)

// ErrSkipped marks an execution that intentionally did no work, such as a
// sweep that found the lock held by another instance. Handlers report it as
// success.
var ErrSkipped = errors.New("commands: execution skipped")

type skipError struct {
	reason string
	cause  error
}

func (e *skipError) Error() string {
	if e.cause == nil {
		return fmt.Sprintf("%s: %s", ErrSkipped, e.reason)
	}
	return fmt.Sprintf("%s: %s: %v", ErrSkipped, e.reason, e.cause)
}

func (e *skipError) Unwrap() []error {
	if e.cause == nil {
		return []error{ErrSkipped}
	}
	return []error{ErrSkipped, e.cause}
}

// Skip returns an error reporting that the command was skipped for reason.
func Skip(reason string, cause error) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "skipped"
	}
	return &skipError{reason: reason, cause: cause}
}

// SkipReason extracts the reason from an error built by Skip.
func SkipReason(err error) (string, bool) {
	var skip *skipError
	if errors.As(err, &skip) {
		return skip.reason, true
	}
	return "", false
}

// WrapValidationError tags err as a validation failure unless it is already
// a categorised error.
func WrapValidationError(err error) error {
	if err == nil || goerrors.IsWrapped(err) {
		return err
	}
	return goerrors.Wrap(err, goerrors.CategoryValidation, "scheduler command is invalid").
		WithTextCode(validationFailedCode)
}

// WrapContextError tags context cancellation and deadline errors.
func WrapContextError(err error) error {
	if err == nil || goerrors.IsWrapped(err) {
		return err
	}
	switch {
	case errors.Is(err, context.Canceled):
		return goerrors.Wrap(err, goerrors.CategoryCommand, "scheduler command cancelled").
			WithTextCode(contextCanceledCode)
	case errors.Is(err, context.DeadlineExceeded):
		return goerrors.Wrap(err, goerrors.CategoryCommand, "scheduler command deadline exceeded").
			WithTextCode(contextTimeoutCode)
	default:
		return goerrors.Wrap(err, goerrors.CategoryCommand, "scheduler command context error").
			WithTextCode(contextErrorCode)
	}
}

// WrapExecuteError tags a handler failure as a command error.
func WrapExecuteError(err error) error {
	if err == nil || goerrors.IsWrapped(err) {
		return err
	}
	return goerrors.Wrap(err, goerrors.CategoryCommand, "scheduler command failed").
		WithTextCode(executeFailedCode)
}

func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
