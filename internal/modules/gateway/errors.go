package gateway

import "errors"

var (
	// ErrConfigIncomplete means there is no active gateway configuration or it
	// lacks merchant code / secret key. Request building and reconciliation
	// refuse to proceed.
	ErrConfigIncomplete = errors.New("gateway configuration missing or incomplete")

	ErrInvalidAmount = errors.New("amount must be greater than zero")

	ErrMalformedEnvelope = errors.New("malformed merchant parameters envelope")
	ErrMissingOrderToken = errors.New("order token missing from parameters")
	ErrMalformedOrder    = errors.New("malformed order token")
	ErrUnknownOrder      = errors.New("no payment matches order token")

	// ErrInvalidSignature is a security-relevant rejection: nothing in the
	// payload may be trusted and no state is mutated.
	ErrInvalidSignature = errors.New("invalid notification signature")

	ErrSignatureComputation = errors.New("signature computation failed")
)
