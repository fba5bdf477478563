// Package errors provides the standardized error taxonomy for the
// admissions coordinator.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// Business rule violations. Never retried, always surfaced to the user.
	ErrCodeGateViolation     ErrorCode = "GATE_VIOLATION"
	ErrCodeInvalidRegression ErrorCode = "INVALID_REGRESSION"

	// External calendar provider failures.
	ErrCodeCalendarCreateFailed ErrorCode = "CALENDAR_CREATE_FAILED"
	ErrCodeCalendarDeleteFailed ErrorCode = "CALENDAR_DELETE_FAILED"

	// Booking conflicts and lookup failures.
	ErrCodeSlotAlreadyBooked ErrorCode = "SLOT_ALREADY_BOOKED"
	ErrCodeScheduleNotFound  ErrorCode = "SCHEDULE_NOT_FOUND"
	ErrCodeUnauthorized      ErrorCode = "UNAUTHORIZED"

	// The calendar and the system of record may have diverged: a schedule
	// persist failed after the calendar event was created, and the
	// compensating delete failed too. Needs manual reconciliation.
	ErrCodePostBookingPersistFailed ErrorCode = "POST_BOOKING_PERSIST_FAILED"

	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	ErrCodeStorageFailed    ErrorCode = "STORAGE_FAILED"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// CodeOf extracts the ErrorCode from an error chain, or "" if the error is
// not a StandardError.
func CodeOf(err error) ErrorCode {
	var se *StandardError
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

// NewGateViolation creates a non-retryable business rule error. The message
// tells the user why the pipeline forbids the action right now.
func NewGateViolation(message, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeGateViolation,
		Message:   message,
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidRegression creates a non-retryable error for an attempted
// illegal status rollback.
func NewInvalidRegression(field, from, to string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidRegression,
		Message:   fmt.Sprintf("%s cannot move back from %q to %q", field, from, to),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewCalendarCreateFailed creates a retryable error for a failed required
// calendar call. Nothing was persisted; the caller may try again.
func NewCalendarCreateFailed(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeCalendarCreateFailed,
		Message:   "The calendar provider could not be reached, please try again",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewCalendarDeleteFailed creates the warning-grade error for a failed
// best-effort calendar delete. Callers log it and continue.
func NewCalendarDeleteFailed(eventID string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeCalendarDeleteFailed,
		Message:   "The calendar event could not be removed; the interview record was still updated",
		Details:   fmt.Sprintf("eventId: %s, error: %s", eventID, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewSlotAlreadyBooked creates the conflict error for a lost booking race.
func NewSlotAlreadyBooked(slotID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeSlotAlreadyBooked,
		Message:   "Someone already booked this slot, refresh the slot list",
		Details:   fmt.Sprintf("slotId: %s", slotID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewScheduleNotFound creates a non-retryable lookup error.
func NewScheduleNotFound(scheduleID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeScheduleNotFound,
		Message:   "Interview schedule not found",
		Details:   fmt.Sprintf("scheduleId: %s", scheduleID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewUnauthorized creates a non-retryable authorization error.
func NewUnauthorized(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeUnauthorized,
		Message:   "Only the assigned interviewer or an administrator may do this",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewPostBookingPersistFailed creates the inconsistency error raised when a
// compensating calendar delete failed after a persistence failure.
func NewPostBookingPersistFailed(eventID string, persistErr, deleteErr error) *StandardError {
	return &StandardError{
		Code:      ErrCodePostBookingPersistFailed,
		Message:   "Booking could not be saved and the calendar event could not be cleaned up",
		Details:   fmt.Sprintf("eventId: %s, persist: %v, compensating delete: %v", eventID, persistErr, deleteErr),
		Retryable: false,
		Metadata:  map[string]interface{}{"reconciliationRequired": true, "eventId": eventID},
		Timestamp: time.Now().UTC(),
	}
}

// NewValidationFailed creates a non-retryable input validation error.
func NewValidationFailed(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeValidationFailed,
		Message:   "Request validation failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewStorageFailed creates a retryable repository error.
func NewStorageFailed(op string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeStorageFailed,
		Message:   "Storage operation failed",
		Details:   fmt.Sprintf("op: %s, error: %s", op, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}
