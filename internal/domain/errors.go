package domain

import "errors"

var (
	ErrValidation        = errors.New("validation error")
	ErrSignatureMismatch = errors.New("payment signature mismatch")
	ErrUnauthenticated   = errors.New("caller identity missing")
	ErrUnauthorized      = errors.New("not allowed to act on this resource")
	ErrNotFound          = errors.New("not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrConflict          = errors.New("concurrent modification")
	ErrDuplicatePayment  = errors.New("payment already settled")
	ErrGateway           = errors.New("payment gateway error")
	ErrPersistence       = errors.New("persistence error")
)
