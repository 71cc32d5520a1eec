package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

const DefaultCurrency = "USD"

var ErrCurrencyMismatch = errors.New("money: currency mismatch")

// Money is an amount in minor units (cents) of an ISO currency.
type Money struct {
	Cents    int64  `json:"cents"`
	Currency string `json:"currency"`
}

func NewMoney(cents int64, currency string) Money {
	if currency == "" {
		currency = DefaultCurrency
	}
	return Money{Cents: cents, Currency: currency}
}

func (m Money) Add(other Money) (Money, error) {
	if m.Currency != other.Currency {
		return Money{}, fmt.Errorf("%w: %s and %s", ErrCurrencyMismatch, m.Currency, other.Currency)
	}
	return Money{Cents: m.Cents + other.Cents, Currency: m.Currency}, nil
}

func (m Money) Times(quantity int32) Money {
	return Money{Cents: m.Cents * int64(quantity), Currency: m.Currency}
}

func (m Money) IsZero() bool {
	return m.Cents == 0
}

// Decimal renders the amount in major units, e.g. 1999 USD -> "19.99".
func (m Money) Decimal() string {
	return decimal.New(m.Cents, -2).StringFixed(2)
}

func (m Money) String() string {
	return m.Decimal() + " " + m.Currency
}

// Sum adds amounts that must share one currency. An empty input sums to zero
// in the default currency.
func Sum(amounts ...Money) (Money, error) {
	if len(amounts) == 0 {
		return NewMoney(0, DefaultCurrency), nil
	}
	total := Money{Currency: amounts[0].Currency}
	for _, a := range amounts {
		var err error
		if total, err = total.Add(a); err != nil {
			return Money{}, err
		}
	}
	return total, nil
}
