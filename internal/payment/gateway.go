// Package payment defines the two-phase payment gateway contract used by
// checkout and a simulated gateway that implements it.
package payment

import (
	"context"
	"errors"

	d "github.com/fjod/scalecommerce/domain"
)

const (
	SuccessToken = "tok_success"
	FailToken    = "tok_fail"

	ReasonInsufficientFunds    = "Insufficient funds"
	ReasonInvalidAuthorization = "Invalid authorization"
)

var ErrGatewayUnavailable = errors.New("payment gateway unavailable")

// CardDetails is what the gateway knows about a tokenized card.
type CardDetails struct {
	Token    string `json:"token"`
	Brand    string `json:"brand"`
	Last4    string `json:"last4"`
	ExpMonth int    `json:"exp_month"`
	ExpYear  int    `json:"exp_year"`
}

func (c CardDetails) CreditCard() *d.CreditCard {
	return &d.CreditCard{
		Token:    c.Token,
		Brand:    c.Brand,
		Last4:    c.Last4,
		ExpMonth: c.ExpMonth,
		ExpYear:  c.ExpYear,
	}
}

type AuthorizationResult struct {
	Success         bool    `json:"success"`
	AuthorizationID string  `json:"authorization_id,omitempty"`
	Error           string  `json:"error,omitempty"`
	Amount          d.Money `json:"amount"`
}

type CaptureResult struct {
	Success       bool    `json:"success"`
	TransactionID string  `json:"transaction_id,omitempty"`
	Error         string  `json:"error,omitempty"`
	Amount        d.Money `json:"amount"`
}

// Gateway is a two-phase payment provider. A decline is reported through the
// result with a nil error; a non-nil error means the outcome is unknown.
type Gateway interface {
	DetailsFor(ctx context.Context, token string) (CardDetails, error)
	Authorize(ctx context.Context, token string, amount d.Money) (AuthorizationResult, error)
	Capture(ctx context.Context, authorizationID string, amount d.Money) (CaptureResult, error)
	Void(ctx context.Context, authorizationID string) error
}

// Charge authorizes and captures in one step.
func Charge(ctx context.Context, gw Gateway, token string, amount d.Money) (CaptureResult, error) {
	auth, err := gw.Authorize(ctx, token, amount)
	if err != nil {
		return CaptureResult{}, err
	}
	if !auth.Success {
		return CaptureResult{Success: false, Error: auth.Error, Amount: amount}, nil
	}
	return gw.Capture(ctx, auth.AuthorizationID, amount)
}
