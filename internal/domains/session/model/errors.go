package model

import (
	"errors"
	"fmt"
)

const (
	ErrCodeAuthFailure   = "AUTH001"
	ErrCodeAccountExists = "AUTH002"
	ErrCodeInvalidInput  = "AUTH003"
)

var (
	// ErrAuthFailure: the identity flow rejected the credentials.
	ErrAuthFailure = errors.New("authentication failed")
	// ErrAccountExists: registration with an email already in use.
	ErrAccountExists = errors.New("account already exists")
	ErrInvalidInput  = errors.New("invalid input")
)

type SessionError struct {
	Code    string
	Message string
	Err     error
}

func (e *SessionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *SessionError) Unwrap() error {
	return e.Err
}

func NewAuthFailure(reason string) *SessionError {
	return &SessionError{
		Code:    ErrCodeAuthFailure,
		Message: "Sign-in failed: " + reason,
		Err:     ErrAuthFailure,
	}
}

func NewAccountExistsError() *SessionError {
	return &SessionError{
		Code:    ErrCodeAccountExists,
		Message: "An account with this email already exists",
		Err:     ErrAccountExists,
	}
}

func NewInvalidInputError(err error) *SessionError {
	return &SessionError{
		Code:    ErrCodeInvalidInput,
		Message: err.Error(),
		Err:     ErrInvalidInput,
	}
}
