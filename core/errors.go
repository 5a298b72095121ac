package core

import "errors"

// ErrNotFound is returned when a requested object does not exist in storage.
var ErrNotFound = errors.New("not found")

// Failure classes. Handlers wrap one of these with fmt.Errorf("%w: ...") so
// callers can classify a rejected transaction with errors.Is.
var (
	ErrUnauthorized     = errors.New("unauthorized")
	ErrInvalidState     = errors.New("invalid state")
	ErrValidation       = errors.New("validation failed")
	ErrIntegrity        = errors.New("integrity check failed")
	ErrTransfer         = errors.New("transfer failed")
	ErrReentrantCall    = errors.New("reentrant call")
	ErrUnsolicitedValue = errors.New("unsolicited value")
)
