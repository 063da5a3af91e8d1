package entity

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Ledger row statuses. received is the only non-terminal one; a row moves to
// exactly one of the others and never transitions twice.
const (
	WebhookReceived  = "received"
	WebhookProcessed = "processed"
	WebhookIgnored   = "ignored"
	WebhookFailed    = "failed"
)

// WebhookEvent is one row of the dedup ledger: one distinct inbound provider
// notification, keyed by the provider's own event id or by a content
// fingerprint when the provider has none.
type WebhookEvent struct {
	ID        int64     `json:"id"`
	EventKey  string    `json:"event_key"` // unique
	Provider  string    `json:"provider"`  // stripe, paypal, shippo
	EventType string    `json:"event_type"`
	Payload   []byte    `json:"payload"`
	Headers   string    `json:"headers,omitempty"`
	Status    string    `json:"status"`
	LeadID    string    `json:"lead_id,omitempty"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Fingerprint derives a stable dedup key from a normalized projection of an
// event that carries no canonical id. The same logical event redelivered must
// hash identically; two different milestones for the same subject must not.
func Fingerprint(parts ...string) string {
	h := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(h[:])
}

type WebhookEventRepositoryInterface interface {
	// RecordIfNew inserts the event keyed by event.EventKey. isNew=false means
	// this exact event was seen before and the caller must not re-run side
	// effects.
	RecordIfNew(ctx context.Context, event *WebhookEvent) (isNew bool, err error)
	// SetStatus applies the single terminal transition for the row.
	SetStatus(ctx context.Context, eventKey, status, leadID, errMsg string) error
}
