package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// OutboxEvent is a checkout job scheduled in the same transaction that
// created its pending order.
type OutboxEvent struct {
	ID          int64
	AggregateId string
	EventType   string
	Payload     json.RawMessage
	CreatedAt   time.Time
}

func insertOutboxEvent(ctx context.Context, tx *sql.Tx, event *OutboxEvent) error {
	// lib/pq sends []byte as bytea, which jsonb rejects
	err := tx.QueryRowContext(ctx,
		`INSERT INTO checkout_outbox (aggregate_id, event_type, payload) VALUES ($1, $2, $3) RETURNING id`,
		event.AggregateId, event.EventType, string(event.Payload)).Scan(&event.ID)
	if err != nil {
		return fmt.Errorf("insert outbox event: %w", err)
	}
	return nil
}

func (r *Repository) GetUnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, aggregate_id, event_type, payload, created_at
		 FROM checkout_outbox
		 WHERE processed_at IS NULL
		 ORDER BY id
		 LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query outbox: %w", err)
	}
	defer rows.Close()

	events := make([]*OutboxEvent, 0)
	for rows.Next() {
		var (
			e       OutboxEvent
			payload []byte
		)
		if err := rows.Scan(&e.ID, &e.AggregateId, &e.EventType, &payload, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan outbox row: %w", err)
		}
		e.Payload = payload
		events = append(events, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return events, nil
}

func (r *Repository) MarkEventAsProcessed(ctx context.Context, eventID int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE checkout_outbox SET processed_at = CURRENT_TIMESTAMP WHERE id = $1`, eventID)
	if err != nil {
		return fmt.Errorf("mark outbox event: %w", err)
	}
	return nil
}
