package entity

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Email job statuses. sending is a claim marker so two dispatcher runs never
// pick up the same job; failed is terminal.
const (
	EmailPending = "pending"
	EmailSending = "sending"
	EmailSent    = "sent"
	EmailFailed  = "failed"
)

// MaxEmailRetries bounds the dispatcher: a job failing this many sends becomes
// terminally failed instead of retrying forever.
const MaxEmailRetries = 5

// EmailRetryBase is the first retry delay; attempt n waits base * 2^n.
const EmailRetryBase = 15 * time.Minute

// Template keys the renderer knows. Enqueueing anything else fails that job at
// dispatch time, not the batch.
const (
	TemplateLeadCreated      = "lead_created"
	TemplatePaymentConfirmed = "payment_confirmed"
	TemplateLabelCreated     = "label_created"
	TemplateShippingUpdate   = "shipping_update"
	TemplateAbandonedCart    = "abandoned_cart"
)

// EmailJob is one durable outbound email.
type EmailJob struct {
	ID                string                 `json:"id"`
	Recipient         string                 `json:"recipient"`
	TemplateKey       string                 `json:"template_key"`
	Language          string                 `json:"language"`
	Payload           map[string]interface{} `json:"payload,omitempty"`
	DedupeKey         string                 `json:"dedupe_key,omitempty"`
	Status            string                 `json:"status"`
	RetryCount        int                    `json:"retry_count"`
	NextAttemptAt     time.Time              `json:"next_attempt_at"`
	ProviderMessageID string                 `json:"provider_message_id,omitempty"`
	LastError         string                 `json:"last_error,omitempty"`
	CreatedAt         time.Time              `json:"created_at"`
	UpdatedAt         time.Time              `json:"updated_at"`
}

// NewEmailJob builds a pending job due immediately.
func NewEmailJob(recipient, templateKey, language, dedupeKey string, payload map[string]interface{}) *EmailJob {
	now := time.Now()
	if language == "" {
		language = "en"
	}
	return &EmailJob{
		ID:            uuid.New().String(),
		Recipient:     recipient,
		TemplateKey:   templateKey,
		Language:      language,
		Payload:       payload,
		DedupeKey:     dedupeKey,
		Status:        EmailPending,
		NextAttemptAt: now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// NextBackoff is the delay before the given retry (0-based): 15m, 30m, 1h...
func NextBackoff(retryCount int) time.Duration {
	return EmailRetryBase * (1 << retryCount)
}

type EmailJobRepositoryInterface interface {
	// Enqueue inserts the job. When job.DedupeKey is set and already present,
	// the existing job id is returned and no new row is created.
	Enqueue(ctx context.Context, job *EmailJob) (id string, err error)
	// ClaimBatch atomically marks up to limit due pending jobs as sending and
	// returns them. Two concurrent dispatchers never claim the same job.
	ClaimBatch(ctx context.Context, limit int) ([]*EmailJob, error)
	MarkSent(ctx context.Context, id, providerMessageID string) error
	// MarkFailed schedules a retry, or terminally fails the job once the retry
	// ceiling is reached.
	MarkFailed(ctx context.Context, id, reason string, retryCount int, nextAttemptAt time.Time, terminal bool) error
}

type OrderEventRepositoryInterface interface {
	// Append inserts the audit row; a dedupe-key conflict is a silent no-op.
	Append(ctx context.Context, event *OrderEvent) error
}
