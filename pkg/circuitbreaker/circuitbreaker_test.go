package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"

	d "github.com/fjod/scalecommerce/domain"
	"github.com/fjod/scalecommerce/internal/payment"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errTransport = errors.New("connection refused")

type flakyGateway struct {
	payment.Gateway
	err   error
	calls int
}

func (f *flakyGateway) Authorize(ctx context.Context, token string, amount d.Money) (payment.AuthorizationResult, error) {
	f.calls++
	if f.err != nil {
		return payment.AuthorizationResult{}, f.err
	}
	return f.Gateway.Authorize(ctx, token, amount)
}

func testConfig() Config {
	cfg := DefaultConfig("payment-test")
	cfg.FailureThreshold = 3
	cfg.Timeout = 50 * time.Millisecond
	return cfg
}

func TestGateway_TripsOnTransportErrors(t *testing.T) {
	inner := &flakyGateway{Gateway: payment.NewSimulated(0), err: errTransport}
	gw := New(inner, testConfig(), nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := gw.Authorize(ctx, payment.SuccessToken, d.NewMoney(100, ""))
		assert.ErrorIs(t, err, errTransport)
	}
	assert.Equal(t, gobreaker.StateOpen, gw.State())

	_, err := gw.Authorize(ctx, payment.SuccessToken, d.NewMoney(100, ""))
	assert.ErrorIs(t, err, payment.ErrGatewayUnavailable)
	assert.Equal(t, 3, inner.calls)
}

func TestGateway_DeclinesDoNotTrip(t *testing.T) {
	inner := &flakyGateway{Gateway: payment.NewSimulated(0)}
	gw := New(inner, testConfig(), nil)

	for i := 0; i < 10; i++ {
		res, err := gw.Authorize(context.Background(), payment.FailToken, d.NewMoney(100, ""))
		require.NoError(t, err)
		assert.False(t, res.Success)
	}
	assert.Equal(t, gobreaker.StateClosed, gw.State())
}

func TestGateway_HalfOpenRecovers(t *testing.T) {
	inner := &flakyGateway{Gateway: payment.NewSimulated(0), err: errTransport}
	gw := New(inner, testConfig(), nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, _ = gw.Authorize(ctx, payment.SuccessToken, d.NewMoney(100, ""))
	}
	require.Equal(t, gobreaker.StateOpen, gw.State())

	inner.err = nil
	time.Sleep(80 * time.Millisecond)

	res, err := gw.Authorize(ctx, payment.SuccessToken, d.NewMoney(100, ""))
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, gobreaker.StateClosed, gw.State())
}

func TestGateway_PassesThroughOtherCalls(t *testing.T) {
	gw := New(payment.NewSimulated(0), testConfig(), nil)
	ctx := context.Background()

	details, err := gw.DetailsFor(ctx, payment.FailToken)
	require.NoError(t, err)
	assert.Equal(t, "0002", details.Last4)

	res, err := gw.Capture(ctx, "pi_abc", d.NewMoney(100, ""))
	require.NoError(t, err)
	assert.True(t, res.Success)

	assert.NoError(t, gw.Void(ctx, "pi_abc"))
}
