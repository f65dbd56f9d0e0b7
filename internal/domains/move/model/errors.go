package model

import (
	"errors"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

const (
	ErrCodeValidationFailure   = "MOV001"
	ErrCodeUploadFailure       = "MOV002"
	ErrCodeWriteFailure        = "MOV003"
	ErrCodeSubscriptionFailure = "MOV004"
)

var (
	ErrValidationFailure   = errors.New("validation failed")
	ErrUploadFailure       = errors.New("upload failed")
	ErrWriteFailure        = errors.New("write failed")
	ErrSubscriptionFailure = errors.New("subscription failed")

	ErrImageTooLarge      = errors.New("image exceeds maximum size")
	ErrInvalidImageFormat = errors.New("image must be JPEG, PNG or GIF")
)

// MoveError is the error type returned by submission and the live collection.
// errors.Is matches the kind sentinel; errors.Unwrap reaches the cause.
// Fields is set on validation failures and names each rejected form field.
type MoveError struct {
	Code    string
	Message string
	Kind    error
	Err     error
	Fields  map[string]string
}

func (e *MoveError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *MoveError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func NewValidationError(err error) *MoveError {
	moveErr := &MoveError{
		Code:    ErrCodeValidationFailure,
		Message: err.Error(),
		Kind:    ErrValidationFailure,
	}

	var fieldErrs validation.Errors
	if errors.As(err, &fieldErrs) {
		moveErr.Fields = make(map[string]string, len(fieldErrs))
		for field, fieldErr := range fieldErrs {
			if fieldErr != nil {
				moveErr.Fields[field] = fieldErr.Error()
			}
		}
	}
	return moveErr
}

// NewFieldError is a validation failure of a single form field.
func NewFieldError(field string, err error) *MoveError {
	return NewValidationError(validation.Errors{field: err})
}

func NewUploadError(err error) *MoveError {
	return &MoveError{
		Code:    ErrCodeUploadFailure,
		Message: "Image upload failed",
		Kind:    ErrUploadFailure,
		Err:     err,
	}
}

func NewWriteError(err error) *MoveError {
	return &MoveError{
		Code:    ErrCodeWriteFailure,
		Message: "Failed to save move",
		Kind:    ErrWriteFailure,
		Err:     err,
	}
}

func NewSubscriptionError(err error) *MoveError {
	return &MoveError{
		Code:    ErrCodeSubscriptionFailure,
		Message: "Live collection subscription failed",
		Kind:    ErrSubscriptionFailure,
		Err:     err,
	}
}
