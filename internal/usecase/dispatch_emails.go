package usecase

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/beatvault/beatvault-orders/internal/entity"
	"github.com/beatvault/beatvault-orders/internal/infra/mail"
)

// DispatchEmailsUseCase drains one claimed batch through the email provider.
// One job's render or send failure never aborts the batch.
type DispatchEmailsUseCase struct {
	Jobs   entity.EmailJobRepositoryInterface
	Sender EmailSenderInterface
	Logger *zap.Logger
}

func NewDispatchEmailsUseCase(jobs entity.EmailJobRepositoryInterface, sender EmailSenderInterface, logger *zap.Logger) *DispatchEmailsUseCase {
	return &DispatchEmailsUseCase{Jobs: jobs, Sender: sender, Logger: logger}
}

func (uc *DispatchEmailsUseCase) Execute(ctx context.Context, limit int) (*DispatchSummary, error) {
	if limit <= 0 {
		limit = 25
	}

	jobs, err := uc.Jobs.ClaimBatch(ctx, limit)
	if err != nil {
		return nil, &TechnicalError{Code: "DATABASE_ERROR", Message: "claim batch: " + err.Error()}
	}

	summary := &DispatchSummary{Claimed: len(jobs)}

	for _, job := range jobs {
		if err := uc.dispatchOne(ctx, job); err != nil {
			summary.Failed++
			summary.Failures = append(summary.Failures, fmt.Sprintf("%s: %v", job.ID, err))
		} else {
			summary.Sent++
		}
	}

	return summary, nil
}

func (uc *DispatchEmailsUseCase) dispatchOne(ctx context.Context, job *entity.EmailJob) error {
	rendered, err := mail.Render(job.TemplateKey, job.Language, job.Payload)
	if err != nil {
		// Rendering is deterministic; retrying an unknown template cannot
		// help. Park it terminally right away.
		uc.markFailed(ctx, job, err, true)
		return err
	}

	messageID, err := uc.Sender.Send(job.Recipient, rendered)
	if err != nil {
		retries := job.RetryCount + 1
		terminal := retries >= entity.MaxEmailRetries
		uc.markFailed(ctx, job, err, terminal)
		uc.Logger.Warn("email send failed",
			zap.String("job_id", job.ID),
			zap.Int("retry_count", retries),
			zap.Bool("terminal", terminal),
			zap.Error(err),
		)
		return err
	}

	if err := uc.Jobs.MarkSent(ctx, job.ID, messageID); err != nil {
		uc.Logger.Error("sent email not recorded", zap.String("job_id", job.ID), zap.Error(err))
	}
	return nil
}

func (uc *DispatchEmailsUseCase) markFailed(ctx context.Context, job *entity.EmailJob, cause error, terminal bool) {
	retries := job.RetryCount + 1
	next := time.Now().Add(entity.NextBackoff(job.RetryCount))
	if err := uc.Jobs.MarkFailed(ctx, job.ID, cause.Error(), retries, next, terminal); err != nil {
		uc.Logger.Error("email failure not recorded", zap.String("job_id", job.ID), zap.Error(err))
	}
}

// Dispatch adapts Execute for the queue worker.
func (uc *DispatchEmailsUseCase) Dispatch(ctx context.Context, limit int) (claimed, sent, failed int, err error) {
	summary, err := uc.Execute(ctx, limit)
	if err != nil {
		return 0, 0, 0, err
	}
	return summary.Claimed, summary.Sent, summary.Failed, nil
}
