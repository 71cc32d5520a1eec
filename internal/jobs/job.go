// Package jobs carries checkout jobs from the accept path to the workers.
package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	d "github.com/fjod/scalecommerce/domain"
)

const EventCheckoutRequested = "checkout.requested"

var (
	ErrQueueClosed    = errors.New("job queue is closed")
	ErrInvalidPayload = errors.New("invalid checkout job payload")
)

// CheckoutJob is the payload of one checkout attempt.
type CheckoutJob struct {
	BasketID     int64     `json:"basket_id"`
	Email        string    `json:"email"`
	PaymentToken string    `json:"payment_token"`
	Address      d.Address `json:"address"`
}

// Key orders jobs of the same basket onto the same partition.
func (j CheckoutJob) Key() string {
	return strconv.FormatInt(j.BasketID, 10)
}

func (j CheckoutJob) Encode() ([]byte, error) {
	return json.Marshal(j)
}

func Decode(payload []byte) (CheckoutJob, error) {
	var job CheckoutJob
	if err := json.Unmarshal(payload, &job); err != nil {
		return CheckoutJob{}, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}
	if job.BasketID <= 0 {
		return CheckoutJob{}, fmt.Errorf("%w: missing basket_id", ErrInvalidPayload)
	}
	return job, nil
}

// Enqueuer accepts encoded jobs for asynchronous execution.
type Enqueuer interface {
	Enqueue(ctx context.Context, key string, payload []byte) error
}

// Handler runs one job. A returned error is logged by the runner; the job is
// not retried.
type Handler func(ctx context.Context, job CheckoutJob) error
