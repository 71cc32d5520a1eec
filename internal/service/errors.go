package service

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyBasket = errors.New("no items available in stock")
	ErrValidation  = errors.New("validation failed")
)

type PaymentPhase string

const (
	PhaseGuard     PaymentPhase = "guard"
	PhaseAuthorize PaymentPhase = "authorize"
	PhaseCapture   PaymentPhase = "capture"
)

// PaymentError is a payment that was refused, or an order that may not be
// paid in its current status.
type PaymentError struct {
	Phase   PaymentPhase
	Message string
}

func (e *PaymentError) Error() string {
	return e.Message
}

func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
