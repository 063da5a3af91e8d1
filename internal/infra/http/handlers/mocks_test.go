package handlers

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/beatvault/beatvault-orders/internal/entity"
	"github.com/beatvault/beatvault-orders/internal/infra/integration/shippo"
)

// MockWebhookEventRepository
type MockWebhookEventRepository struct {
	mock.Mock
}

func (m *MockWebhookEventRepository) RecordIfNew(ctx context.Context, event *entity.WebhookEvent) (bool, error) {
	args := m.Called(ctx, event)
	return args.Bool(0), args.Error(1)
}

func (m *MockWebhookEventRepository) SetStatus(ctx context.Context, eventKey, status, leadID, errMsg string) error {
	args := m.Called(ctx, eventKey, status, leadID, errMsg)
	return args.Error(0)
}

// MockLeadRepository
type MockLeadRepository struct {
	mock.Mock
}

func (m *MockLeadRepository) Ensure(ctx context.Context, lead *entity.Lead) (*entity.Lead, bool, error) {
	args := m.Called(ctx, lead)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*entity.Lead), args.Bool(1), args.Error(2)
}

func (m *MockLeadRepository) FindByID(ctx context.Context, id string) (*entity.Lead, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Lead), args.Error(1)
}

func (m *MockLeadRepository) FindByTrackingNumber(ctx context.Context, tracking string) (*entity.Lead, error) {
	args := m.Called(ctx, tracking)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Lead), args.Error(1)
}

func (m *MockLeadRepository) FindAbandonedCheckouts(ctx context.Context, cutoff time.Time, limit int) ([]*entity.Lead, error) {
	args := m.Called(ctx, cutoff, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.Lead), args.Error(1)
}

func (m *MockLeadRepository) Update(ctx context.Context, id string, patch entity.LeadPatch) error {
	args := m.Called(ctx, id, patch)
	return args.Error(0)
}

// MockOrderEventRepository
type MockOrderEventRepository struct {
	mock.Mock
}

func (m *MockOrderEventRepository) Append(ctx context.Context, event *entity.OrderEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// MockEmailJobRepository
type MockEmailJobRepository struct {
	mock.Mock
}

func (m *MockEmailJobRepository) Enqueue(ctx context.Context, job *entity.EmailJob) (string, error) {
	args := m.Called(ctx, job)
	return args.String(0), args.Error(1)
}

func (m *MockEmailJobRepository) ClaimBatch(ctx context.Context, limit int) ([]*entity.EmailJob, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.EmailJob), args.Error(1)
}

func (m *MockEmailJobRepository) MarkSent(ctx context.Context, id, providerMessageID string) error {
	args := m.Called(ctx, id, providerMessageID)
	return args.Error(0)
}

func (m *MockEmailJobRepository) MarkFailed(ctx context.Context, id, reason string, retryCount int, nextAttemptAt time.Time, terminal bool) error {
	args := m.Called(ctx, id, reason, retryCount, nextAttemptAt, terminal)
	return args.Error(0)
}

// MockEmailEnqueuer
type MockEmailEnqueuer struct {
	mock.Mock
}

func (m *MockEmailEnqueuer) Enqueue(ctx context.Context, recipient, templateKey, language, dedupeKey string, payload map[string]interface{}) (string, error) {
	args := m.Called(ctx, recipient, templateKey, language, dedupeKey, payload)
	return args.String(0), args.Error(1)
}

// MockLabelPurchaser
type MockLabelPurchaser struct {
	mock.Mock
}

func (m *MockLabelPurchaser) PurchaseLabel(ctx context.Context, leadID string, to entity.Address) (*shippo.Label, error) {
	args := m.Called(ctx, leadID, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shippo.Label), args.Error(1)
}

// MockPurchaseLock
type MockPurchaseLock struct {
	mock.Mock
}

func (m *MockPurchaseLock) Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, name, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockPurchaseLock) Release(ctx context.Context, name string) {
	m.Called(ctx, name)
}
