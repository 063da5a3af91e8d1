package usecase

import (
	"context"

	"go.uber.org/zap"

	"github.com/beatvault/beatvault-orders/internal/entity"
	"github.com/beatvault/beatvault-orders/internal/infra/queue"
)

// EmailQueue is the enqueue side of the durable queue. The database row is the
// source of truth; the rabbit nudge only makes dispatch prompt and is allowed
// to fail.
type EmailQueue struct {
	Jobs     entity.EmailJobRepositoryInterface
	Notifier queue.DispatchNotifierInterface
	Logger   *zap.Logger
}

func NewEmailQueue(jobs entity.EmailJobRepositoryInterface, notifier queue.DispatchNotifierInterface, logger *zap.Logger) *EmailQueue {
	return &EmailQueue{Jobs: jobs, Notifier: notifier, Logger: logger}
}

// Enqueue records one outbound email. A repeated dedupe key returns the
// existing job id instead of queueing a second email.
func (q *EmailQueue) Enqueue(ctx context.Context, recipient, templateKey, language, dedupeKey string, payload map[string]interface{}) (string, error) {
	if recipient == "" || recipient == entity.PendingEmail {
		return "", &DomainError{Code: "NO_RECIPIENT", Message: "no deliverable recipient address"}
	}

	job := entity.NewEmailJob(recipient, templateKey, language, dedupeKey, payload)
	id, err := q.Jobs.Enqueue(ctx, job)
	if err != nil {
		return "", err
	}

	if q.Notifier != nil {
		bestEffort(q.Logger, "publish dispatch nudge", func() error {
			return q.Notifier.PublishDispatchNudge(ctx, queue.DispatchNudge{
				JobID:     id,
				Template:  templateKey,
				Recipient: recipient,
				Origin:    "enqueue",
			})
		})
	}

	return id, nil
}
