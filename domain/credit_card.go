package domain

import (
	"errors"
	"fmt"
)

var ErrInvalidCreditCard = errors.New("invalid credit card")

// CreditCard holds only the gateway token and display metadata, never a PAN.
type CreditCard struct {
	ID       int64  `json:"id,omitempty"`
	Token    string `json:"token"`
	Brand    string `json:"brand"`
	Last4    string `json:"last4"`
	ExpMonth int    `json:"exp_month"`
	ExpYear  int    `json:"exp_year"`
}

func (c CreditCard) Validate() error {
	if c.Token == "" {
		return fmt.Errorf("%w: token is required", ErrInvalidCreditCard)
	}
	if len(c.Last4) != 4 {
		return fmt.Errorf("%w: last4 must have 4 digits", ErrInvalidCreditCard)
	}
	for _, r := range c.Last4 {
		if r < '0' || r > '9' {
			return fmt.Errorf("%w: last4 must have 4 digits", ErrInvalidCreditCard)
		}
	}
	if c.ExpMonth < 1 || c.ExpMonth > 12 {
		return fmt.Errorf("%w: exp_month out of range", ErrInvalidCreditCard)
	}
	if c.ExpYear <= 0 {
		return fmt.Errorf("%w: exp_year is required", ErrInvalidCreditCard)
	}
	return nil
}
