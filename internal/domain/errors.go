package domain

import "errors"

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
// The messages are client-facing.
var (
	ErrValidation = errors.New("invalid input")
	ErrDelivery   = errors.New("security code could not be delivered")
	ErrNotFound   = errors.New("session token is invalid or has expired")
	ErrMismatch   = errors.New("security code is not valid")
)
