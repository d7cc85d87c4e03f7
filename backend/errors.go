package backend

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidAddressFormat = errors.New("invalid address format")
	ErrRegistrationRejected = errors.New("registration rejected")
	ErrSendRejected         = errors.New("send rejected")
	ErrFetchFailed          = errors.New("fetch failed")
	ErrUserNotFound         = errors.New("user not found")
)

// RejectedError carries the backend's reason for refusing a state-changing call
type RejectedError struct {
	Op     string
	Status int
	Detail string
	kind   error
	cause  error
}

func (e *RejectedError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v: %v", e.Op, e.kind, e.cause)
	}
	if e.Detail == "" {
		return fmt.Sprintf("%s: %v (status %d)", e.Op, e.kind, e.Status)
	}
	return fmt.Sprintf("%s: %v: %s", e.Op, e.kind, e.Detail)
}

func (e *RejectedError) Unwrap() error { return e.kind }

// Reason returns the server-provided detail, or fallback when there is none
func Reason(err error, fallback string) string {
	var rej *RejectedError
	if errors.As(err, &rej) && rej.Detail != "" {
		return rej.Detail
	}
	return fallback
}
