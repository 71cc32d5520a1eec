package payment

import (
	"context"
	"regexp"
	"testing"
	"time"

	d "github.com/fjod/scalecommerce/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedBrand string

func (f fixedBrand) Pick() string { return string(f) }

var idPattern = regexp.MustCompile(`^(pi|ch)_[0-9a-f]{24}$`)

func TestSimulated_DetailsFor(t *testing.T) {
	gw := NewSimulated(0).WithBrands(fixedBrand("Amex"))
	ctx := context.Background()

	tests := []struct {
		name  string
		token string
		want  CardDetails
	}{
		{"success token", SuccessToken, CardDetails{Token: SuccessToken, Brand: "Amex", Last4: "4242", ExpMonth: 12, ExpYear: 2030}},
		{"fail token", FailToken, CardDetails{Token: FailToken, Brand: "Amex", Last4: "0002", ExpMonth: 12, ExpYear: 2028}},
		{"any other token normalised", "tok_visa", CardDetails{Token: SuccessToken, Brand: "Amex", Last4: "4242", ExpMonth: 12, ExpYear: 2030}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := gw.DetailsFor(ctx, tt.token)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.NoError(t, got.CreditCard().Validate())
		})
	}
}

func TestSimulated_RandomBrand(t *testing.T) {
	gw := NewSimulated(0)
	for i := 0; i < 20; i++ {
		got, err := gw.DetailsFor(context.Background(), SuccessToken)
		require.NoError(t, err)
		assert.Contains(t, cardBrands, got.Brand)
	}
}

func TestSimulated_Authorize(t *testing.T) {
	gw := NewSimulated(0)
	amount := d.NewMoney(1500, "")

	ok, err := gw.Authorize(context.Background(), SuccessToken, amount)
	require.NoError(t, err)
	assert.True(t, ok.Success)
	assert.Regexp(t, idPattern, ok.AuthorizationID)
	assert.Empty(t, ok.Error)
	assert.Equal(t, amount, ok.Amount)

	declined, err := gw.Authorize(context.Background(), FailToken, amount)
	require.NoError(t, err)
	assert.False(t, declined.Success)
	assert.Empty(t, declined.AuthorizationID)
	assert.Equal(t, ReasonInsufficientFunds, declined.Error)
}

func TestSimulated_Capture(t *testing.T) {
	gw := NewSimulated(0)
	amount := d.NewMoney(1500, "")

	ok, err := gw.Capture(context.Background(), newID("pi_"), amount)
	require.NoError(t, err)
	assert.True(t, ok.Success)
	assert.Regexp(t, idPattern, ok.TransactionID)

	blank, err := gw.Capture(context.Background(), "", amount)
	require.NoError(t, err)
	assert.False(t, blank.Success)
	assert.Empty(t, blank.TransactionID)
	assert.Equal(t, ReasonInvalidAuthorization, blank.Error)
}

func TestSimulated_LatencyHonoursContext(t *testing.T) {
	gw := NewSimulated(time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := gw.Authorize(ctx, SuccessToken, d.NewMoney(100, ""))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestCharge(t *testing.T) {
	gw := NewSimulated(0)
	amount := d.NewMoney(999, "")

	res, err := Charge(context.Background(), gw, SuccessToken, amount)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Regexp(t, idPattern, res.TransactionID)

	res, err = Charge(context.Background(), gw, FailToken, amount)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, ReasonInsufficientFunds, res.Error)
	assert.Empty(t, res.TransactionID)
}
