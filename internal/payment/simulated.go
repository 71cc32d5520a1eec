package payment

import (
	"context"
	"encoding/hex"
	"math/rand/v2"
	"time"

	d "github.com/fjod/scalecommerce/domain"
	"github.com/google/uuid"
)

var cardBrands = []string{"Visa", "MasterCard", "Amex"}

// BrandPicker chooses the brand reported for a card.
type BrandPicker interface {
	Pick() string
}

type RandomBrand struct{}

func (RandomBrand) Pick() string {
	return cardBrands[rand.IntN(len(cardBrands))]
}

// Simulated is an in-process gateway. FailToken is declined with
// "Insufficient funds"; every other token is approved.
type Simulated struct {
	latency time.Duration
	brands  BrandPicker
}

func NewSimulated(latency time.Duration) *Simulated {
	return &Simulated{latency: latency, brands: RandomBrand{}}
}

func (s *Simulated) WithBrands(p BrandPicker) *Simulated {
	s.brands = p
	return s
}

func (s *Simulated) DetailsFor(ctx context.Context, token string) (CardDetails, error) {
	if err := s.wait(ctx); err != nil {
		return CardDetails{}, err
	}

	if token == FailToken {
		return CardDetails{Token: FailToken, Brand: s.brands.Pick(), Last4: "0002", ExpMonth: 12, ExpYear: 2028}, nil
	}
	return CardDetails{Token: SuccessToken, Brand: s.brands.Pick(), Last4: "4242", ExpMonth: 12, ExpYear: 2030}, nil
}

func (s *Simulated) Authorize(ctx context.Context, token string, amount d.Money) (AuthorizationResult, error) {
	if err := s.wait(ctx); err != nil {
		return AuthorizationResult{}, err
	}

	if token == FailToken {
		return AuthorizationResult{Success: false, Error: ReasonInsufficientFunds, Amount: amount}, nil
	}
	return AuthorizationResult{Success: true, AuthorizationID: newID("pi_"), Amount: amount}, nil
}

func (s *Simulated) Capture(ctx context.Context, authorizationID string, amount d.Money) (CaptureResult, error) {
	if err := s.wait(ctx); err != nil {
		return CaptureResult{}, err
	}

	if authorizationID == "" {
		return CaptureResult{Success: false, Error: ReasonInvalidAuthorization, Amount: amount}, nil
	}
	return CaptureResult{Success: true, TransactionID: newID("ch_"), Amount: amount}, nil
}

// Void always succeeds.
func (s *Simulated) Void(ctx context.Context, _ string) error {
	return s.wait(ctx)
}

func (s *Simulated) wait(ctx context.Context) error {
	if s.latency <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(s.latency)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// newID returns prefix followed by 24 random hex characters.
func newID(prefix string) string {
	u := uuid.New()
	return prefix + hex.EncodeToString(u[:12])
}
