package models

import (
	"errors"
	"fmt"
)

// Sentinel errors for validation.
var (
	ErrMissingParticipantID = errors.New("participant id is required")
	ErrMissingTrialID       = errors.New("trial id is required")
	ErrMissingGraphFile     = errors.New("graph file is required")
	ErrInvalidTask          = errors.New("task must be A or B")
	ErrInvalidCondition     = errors.New("condition must be one of A, B, C, D")
	ErrInvalidAxisOffset    = errors.New("axis offset must be 0 or 1")
	ErrInvalidAnswer        = errors.New("answer is not valid for the task")
	ErrNegativeReaction     = errors.New("reaction time must not be negative")
	ErrMissingSurvey        = errors.New("survey response is required")
)

// Sentinel errors for lookups and lifecycle.
var (
	ErrParticipantNotFound = errors.New("participant not found")
	ErrAlreadyCompleted    = errors.New("session already completed")
)

// ErrDuplicateKey indicates a unique constraint violation (maps to HTTP 409 Conflict).
var ErrDuplicateKey = errors.New("duplicate key")

// ErrFieldTooLong returns an error indicating a field exceeds its maximum length.
func ErrFieldTooLong(field string, maxLen int) error {
	return fmt.Errorf("%s exceeds maximum length of %d", field, maxLen)
}
