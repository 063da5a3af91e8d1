package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/beatvault/beatvault-orders/internal/entity"
)

type WebhookEventRepository struct {
	DB *sql.DB
}

func NewWebhookEventRepository(db *sql.DB) *WebhookEventRepository {
	return &WebhookEventRepository{DB: db}
}

// RecordIfNew inserts the ledger row keyed by event_key. Zero rows affected
// means this exact event was already delivered once; the caller must then
// short-circuit with a duplicate success instead of re-running side effects.
func (r *WebhookEventRepository) RecordIfNew(ctx context.Context, event *entity.WebhookEvent) (bool, error) {
	query := `
		INSERT INTO webhook_events (event_key, provider, event_type, payload, headers, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		ON CONFLICT (event_key) DO NOTHING
	`

	res, err := r.DB.ExecContext(ctx, query,
		event.EventKey,
		event.Provider,
		event.EventType,
		event.Payload,
		event.Headers,
		entity.WebhookReceived,
	)
	if err != nil {
		return false, fmt.Errorf("record webhook event %s: %w", event.EventKey, err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

// SetStatus applies the single received→terminal transition. A row already in
// a terminal state stays there.
func (r *WebhookEventRepository) SetStatus(ctx context.Context, eventKey, status, leadID, errMsg string) error {
	query := `
		UPDATE webhook_events
		SET status = $2,
			lead_id = NULLIF($3, ''),
			error = NULLIF($4, ''),
			updated_at = NOW()
		WHERE event_key = $1 AND status = $5
	`

	_, err := r.DB.ExecContext(ctx, query, eventKey, status, leadID, errMsg, entity.WebhookReceived)
	if err != nil {
		return fmt.Errorf("set webhook event %s to %s: %w", eventKey, status, err)
	}
	return nil
}
