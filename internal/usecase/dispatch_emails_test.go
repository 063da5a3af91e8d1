package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/beatvault/beatvault-orders/internal/entity"
)

func pendingJob(id string, retryCount int) *entity.EmailJob {
	job := entity.NewEmailJob("dj@example.com", entity.TemplatePaymentConfirmed, "en", "", map[string]interface{}{
		"name":    "DJ Example",
		"product": "BeatVault 128GB USB Library",
	})
	job.ID = id
	job.RetryCount = retryCount
	return job
}

func TestDispatchSendsClaimedBatch(t *testing.T) {
	jobs := new(MockEmailJobRepository)
	sender := new(MockEmailSender)
	uc := NewDispatchEmailsUseCase(jobs, sender, zap.NewNop())
	ctx := context.Background()

	jobs.On("ClaimBatch", ctx, 25).Return([]*entity.EmailJob{pendingJob("job-1", 0), pendingJob("job-2", 0)}, nil)
	sender.On("Send", "dj@example.com", mock.Anything).Return("<msg-id@beatvault.app>", nil)
	jobs.On("MarkSent", ctx, mock.Anything, "<msg-id@beatvault.app>").Return(nil)

	summary, err := uc.Execute(ctx, 25)

	assert.NoError(t, err)
	assert.Equal(t, 2, summary.Claimed)
	assert.Equal(t, 2, summary.Sent)
	assert.Equal(t, 0, summary.Failed)
	jobs.AssertNumberOfCalls(t, "MarkSent", 2)
}

func TestDispatchSchedulesRetryWithBackoff(t *testing.T) {
	jobs := new(MockEmailJobRepository)
	sender := new(MockEmailSender)
	uc := NewDispatchEmailsUseCase(jobs, sender, zap.NewNop())
	ctx := context.Background()

	jobs.On("ClaimBatch", ctx, 25).Return([]*entity.EmailJob{pendingJob("job-1", 1)}, nil)
	sender.On("Send", "dj@example.com", mock.Anything).Return("", errors.New("smtp: 451 try again later"))

	before := time.Now()
	jobs.On("MarkFailed", ctx, "job-1", mock.Anything, 2, mock.MatchedBy(func(next time.Time) bool {
		// Second failure: retry count was 1, so the delay is 30m.
		return next.After(before.Add(29*time.Minute)) && next.Before(before.Add(31*time.Minute))
	}), false).Return(nil)

	summary, err := uc.Execute(ctx, 25)

	assert.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)
	jobs.AssertCalled(t, "MarkFailed", ctx, "job-1", mock.Anything, 2, mock.Anything, false)
}

func TestDispatchFifthFailureIsTerminal(t *testing.T) {
	jobs := new(MockEmailJobRepository)
	sender := new(MockEmailSender)
	uc := NewDispatchEmailsUseCase(jobs, sender, zap.NewNop())
	ctx := context.Background()

	jobs.On("ClaimBatch", ctx, 25).Return([]*entity.EmailJob{pendingJob("job-1", entity.MaxEmailRetries-1)}, nil)
	sender.On("Send", "dj@example.com", mock.Anything).Return("", errors.New("smtp: 550 mailbox unavailable"))
	jobs.On("MarkFailed", ctx, "job-1", mock.Anything, entity.MaxEmailRetries, mock.Anything, true).Return(nil)

	summary, err := uc.Execute(ctx, 25)

	assert.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)
	jobs.AssertCalled(t, "MarkFailed", ctx, "job-1", mock.Anything, entity.MaxEmailRetries, mock.Anything, true)
}

func TestDispatchUnknownTemplateFailsTerminallyWithoutSending(t *testing.T) {
	jobs := new(MockEmailJobRepository)
	sender := new(MockEmailSender)
	uc := NewDispatchEmailsUseCase(jobs, sender, zap.NewNop())
	ctx := context.Background()

	bad := pendingJob("job-1", 0)
	bad.TemplateKey = "no_such_template"
	jobs.On("ClaimBatch", ctx, 25).Return([]*entity.EmailJob{bad}, nil)
	jobs.On("MarkFailed", ctx, "job-1", mock.Anything, 1, mock.Anything, true).Return(nil)

	summary, err := uc.Execute(ctx, 25)

	assert.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)
	sender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func TestDispatchOneFailureDoesNotAbortBatch(t *testing.T) {
	jobs := new(MockEmailJobRepository)
	sender := new(MockEmailSender)
	uc := NewDispatchEmailsUseCase(jobs, sender, zap.NewNop())
	ctx := context.Background()

	jobs.On("ClaimBatch", ctx, 25).Return([]*entity.EmailJob{pendingJob("job-1", 0), pendingJob("job-2", 0)}, nil)
	sender.On("Send", "dj@example.com", mock.Anything).Return("", errors.New("smtp down")).Once()
	sender.On("Send", "dj@example.com", mock.Anything).Return("<msg@beatvault.app>", nil).Once()
	jobs.On("MarkFailed", ctx, "job-1", mock.Anything, 1, mock.Anything, false).Return(nil)
	jobs.On("MarkSent", ctx, "job-2", "<msg@beatvault.app>").Return(nil)

	summary, err := uc.Execute(ctx, 25)

	assert.NoError(t, err)
	assert.Equal(t, 1, summary.Sent)
	assert.Equal(t, 1, summary.Failed)
}
