// SPDX-License-Identifier: MPL-2.0

package pipeline

import (
	"errors"
	"fmt"

	"maptools-cli/internal/engine"
	"maptools-cli/internal/ingest"
	"maptools-cli/pkg/vpk"
)

var (
	// ErrUserCancelled is the sentinel error wrapped by UserCancelledError.
	ErrUserCancelled = errors.New("cancelled by user")
	// ErrJobFailure is the sentinel error wrapped by JobFailure.
	ErrJobFailure = errors.New("job failed")
)

type (
	// UserCancelledError is returned when a required rebuild was declined,
	// or the job was cancelled while waiting for the decision.
	UserCancelledError struct {
		Asset string
		Err   error
	}

	// JobFailure wraps any job-fatal error that has no more specific kind.
	JobFailure struct {
		Stage State
		Err   error
	}
)

// Error implements the error interface.
func (e *UserCancelledError) Error() string {
	msg := "rebuild declined"
	if e.Asset != "" {
		msg = fmt.Sprintf("rebuild of %s declined", e.Asset)
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes ErrUserCancelled and the underlying cause, if any.
func (e *UserCancelledError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrUserCancelled, e.Err}
	}
	return []error{ErrUserCancelled}
}

// Error implements the error interface.
func (e *JobFailure) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
}

// Unwrap exposes ErrJobFailure and the underlying cause.
func (e *JobFailure) Unwrap() []error {
	return []error{ErrJobFailure, e.Err}
}

// classify returns err unchanged when it is one of the job-fatal kinds and
// wraps it in a *JobFailure otherwise.
func classify(stage State, err error) error {
	var (
		inputErr     *ingest.InputFormatError
		noContainer  *ingest.NoContainerFoundError
		corrupt      *vpk.CorruptContainerError
		missingEng   *engine.MissingEngineConfigurationError
		cancelled    *UserCancelledError
		alreadyFatal *JobFailure
	)
	switch {
	case errors.As(err, &inputErr),
		errors.As(err, &noContainer),
		errors.As(err, &corrupt),
		errors.As(err, &missingEng),
		errors.As(err, &cancelled),
		errors.As(err, &alreadyFatal):
		return err
	default:
		return &JobFailure{Stage: stage, Err: err}
	}
}
