// Package apperrors defines sentinel errors shared across services and
// handlers. Services wrap them with context; handlers map them onto HTTP
// status codes.
package apperrors

import "errors"

var (
	// ErrNotFound signals that a referenced entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrForbidden signals that the caller lacks the role or ownership
	// required for the operation.
	ErrForbidden = errors.New("forbidden")

	// ErrConflict signals a generic state conflict.
	ErrConflict = errors.New("conflict")

	// ErrAlreadyLabelled signals that the rater already has a current label
	// on the case and must update instead of creating.
	ErrAlreadyLabelled = errors.New("case already labelled by this rater")

	// ErrAlreadySuperseded signals an update against a label that is no
	// longer the current one in its chain.
	ErrAlreadySuperseded = errors.New("label has already been superseded")

	// ErrNotConfigured signals an optional capability whose provider is not
	// set up, such as AI suggestions without an LLM key.
	ErrNotConfigured = errors.New("feature not configured")
)
