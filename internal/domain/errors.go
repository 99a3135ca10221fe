package domain

import "errors"

var (
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = errors.New("not found")
	// ErrValidation indicates malformed or missing input; nothing was mutated.
	ErrValidation = errors.New("validation failed")
	// ErrAmountMismatch indicates a client-supplied amount did not match the
	// order total. No payment is created.
	ErrAmountMismatch = errors.New("amount mismatch")
	// ErrInvalidSignature indicates a webhook failed authenticity verification.
	ErrInvalidSignature = errors.New("invalid signature")
)
