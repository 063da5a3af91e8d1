package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/beatvault/beatvault-orders/internal/entity"
)

type OrderEventRepository struct {
	DB *sql.DB
}

func NewOrderEventRepository(db *sql.DB) *OrderEventRepository {
	return &OrderEventRepository{DB: db}
}

// Append writes one audit row. The dedupe key absorbs webhook retries: a
// second insert for the same logical occurrence is a silent no-op, so the
// trail never duplicates.
func (r *OrderEventRepository) Append(ctx context.Context, event *entity.OrderEvent) error {
	data, err := json.Marshal(event.Data)
	if err != nil {
		return fmt.Errorf("marshal order event data: %w", err)
	}

	query := `
		INSERT INTO order_events (dedupe_key, lead_id, event_type, data, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (dedupe_key) DO NOTHING
	`

	_, err = r.DB.ExecContext(ctx, query, event.DedupeKey, event.LeadID, event.EventType, data)
	if err != nil {
		return fmt.Errorf("append order event %s: %w", event.DedupeKey, err)
	}
	return nil
}
