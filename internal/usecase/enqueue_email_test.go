package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/beatvault/beatvault-orders/internal/entity"
	"github.com/beatvault/beatvault-orders/internal/infra/queue"
)

func TestEnqueueRejectsSentinelRecipient(t *testing.T) {
	jobs := new(MockEmailJobRepository)
	q := NewEmailQueue(jobs, nil, zap.NewNop())

	_, err := q.Enqueue(context.Background(), entity.PendingEmail, entity.TemplateLeadCreated, "en", "", nil)

	var domainErr *DomainError
	assert.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "NO_RECIPIENT", domainErr.Code)
	jobs.AssertNotCalled(t, "Enqueue", mock.Anything, mock.Anything)
}

func TestEnqueuePersistsThenNudges(t *testing.T) {
	jobs := new(MockEmailJobRepository)
	notifier := new(MockDispatchNotifier)
	q := NewEmailQueue(jobs, notifier, zap.NewNop())
	ctx := context.Background()

	jobs.On("Enqueue", ctx, mock.MatchedBy(func(job *entity.EmailJob) bool {
		return job.Recipient == "dj@example.com" && job.Status == entity.EmailPending
	})).Return("job-1", nil)
	notifier.On("PublishDispatchNudge", ctx, mock.MatchedBy(func(n queue.DispatchNudge) bool {
		return n.JobID == "job-1" && n.Origin == "enqueue"
	})).Return(nil)

	id, err := q.Enqueue(ctx, "dj@example.com", entity.TemplateLeadCreated, "en", "email:lead_created:x", nil)

	assert.NoError(t, err)
	assert.Equal(t, "job-1", id)
	notifier.AssertCalled(t, "PublishDispatchNudge", ctx, mock.Anything)
}

func TestEnqueueSucceedsWhenBrokerDown(t *testing.T) {
	jobs := new(MockEmailJobRepository)
	notifier := new(MockDispatchNotifier)
	q := NewEmailQueue(jobs, notifier, zap.NewNop())
	ctx := context.Background()

	jobs.On("Enqueue", ctx, mock.Anything).Return("job-1", nil)
	notifier.On("PublishDispatchNudge", ctx, mock.Anything).Return(errors.New("channel closed"))

	id, err := q.Enqueue(ctx, "dj@example.com", entity.TemplateLeadCreated, "en", "", nil)

	// The database row is the source of truth; a lost nudge only delays
	// delivery until the next cron hit.
	assert.NoError(t, err)
	assert.Equal(t, "job-1", id)
}
