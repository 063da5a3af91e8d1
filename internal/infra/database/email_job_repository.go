package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/beatvault/beatvault-orders/internal/entity"
)

type EmailJobRepository struct {
	DB *sql.DB
}

func NewEmailJobRepository(db *sql.DB) *EmailJobRepository {
	return &EmailJobRepository{DB: db}
}

// Enqueue inserts the job. A dedupe-key conflict means the same logical email
// was already queued; the existing id comes back and no second row is written.
func (r *EmailJobRepository) Enqueue(ctx context.Context, job *entity.EmailJob) (string, error) {
	payload, err := json.Marshal(job.Payload)
	if err != nil {
		return "", fmt.Errorf("marshal email payload: %w", err)
	}

	query := `
		INSERT INTO email_jobs (id, recipient, template_key, language, payload, dedupe_key, status, retry_count, next_attempt_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, 0, $8, NOW(), NOW())
	`

	_, err = r.DB.ExecContext(ctx, query,
		job.ID,
		job.Recipient,
		job.TemplateKey,
		job.Language,
		payload,
		job.DedupeKey,
		entity.EmailPending,
		job.NextAttemptAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" && job.DedupeKey != "" {
			return r.findIDByDedupeKey(ctx, job.DedupeKey)
		}
		return "", fmt.Errorf("enqueue email job: %w", err)
	}
	return job.ID, nil
}

func (r *EmailJobRepository) findIDByDedupeKey(ctx context.Context, key string) (string, error) {
	var id string
	err := r.DB.QueryRowContext(ctx, `SELECT id FROM email_jobs WHERE dedupe_key = $1`, key).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("lookup email job by dedupe key: %w", err)
	}
	return id, nil
}

// ClaimBatch atomically flips up to limit due pending jobs to sending and
// returns them. FOR UPDATE SKIP LOCKED keeps two concurrent dispatcher runs
// from claiming the same job.
func (r *EmailJobRepository) ClaimBatch(ctx context.Context, limit int) ([]*entity.EmailJob, error) {
	query := `
		UPDATE email_jobs
		SET status = $1, updated_at = NOW()
		WHERE id IN (
			SELECT id FROM email_jobs
			WHERE status = $2 AND next_attempt_at <= NOW()
			ORDER BY next_attempt_at
			LIMIT $3
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, recipient, template_key, language, payload, COALESCE(dedupe_key, ''), status, retry_count, next_attempt_at, COALESCE(provider_message_id, ''), COALESCE(last_error, ''), created_at, updated_at
	`

	rows, err := r.DB.QueryContext(ctx, query, entity.EmailSending, entity.EmailPending, limit)
	if err != nil {
		return nil, fmt.Errorf("claim email batch: %w", err)
	}
	defer rows.Close()

	var jobs []*entity.EmailJob
	for rows.Next() {
		var job entity.EmailJob
		var payload []byte
		if err := rows.Scan(
			&job.ID, &job.Recipient, &job.TemplateKey, &job.Language, &payload,
			&job.DedupeKey, &job.Status, &job.RetryCount, &job.NextAttemptAt,
			&job.ProviderMessageID, &job.LastError, &job.CreatedAt, &job.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan claimed email job: %w", err)
		}
		if len(payload) > 0 {
			_ = json.Unmarshal(payload, &job.Payload)
		}
		jobs = append(jobs, &job)
	}
	return jobs, rows.Err()
}

func (r *EmailJobRepository) MarkSent(ctx context.Context, id, providerMessageID string) error {
	query := `
		UPDATE email_jobs
		SET status = $2, provider_message_id = NULLIF($3, ''), updated_at = NOW()
		WHERE id = $1
	`
	_, err := r.DB.ExecContext(ctx, query, id, entity.EmailSent, providerMessageID)
	if err != nil {
		return fmt.Errorf("mark email job %s sent: %w", id, err)
	}
	return nil
}

// MarkFailed puts the job back in line for the given attempt, or parks it as
// terminally failed so it never blocks the queue again.
func (r *EmailJobRepository) MarkFailed(ctx context.Context, id, reason string, retryCount int, nextAttemptAt time.Time, terminal bool) error {
	status := entity.EmailPending
	if terminal {
		status = entity.EmailFailed
	}

	query := `
		UPDATE email_jobs
		SET status = $2, retry_count = $3, next_attempt_at = $4, last_error = $5, updated_at = NOW()
		WHERE id = $1
	`
	_, err := r.DB.ExecContext(ctx, query, id, status, retryCount, nextAttemptAt, reason)
	if err != nil {
		return fmt.Errorf("mark email job %s failed: %w", id, err)
	}
	return nil
}
