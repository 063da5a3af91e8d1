package usecase

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/beatvault/beatvault-orders/internal/entity"
	"github.com/beatvault/beatvault-orders/internal/infra/integration/shippo"
)

func newShippingFixture() (*UpdateShippingUseCase, *MockLeadRepository, *MockEmailEnqueuer) {
	leads := new(MockLeadRepository)
	emails := new(MockEmailEnqueuer)
	return NewUpdateShippingUseCase(leads, emails, zap.NewNop()), leads, emails
}

func trackingUpdate(metadata, status string) shippo.TrackingUpdate {
	return shippo.TrackingUpdate{
		Carrier:        "usps",
		TrackingNumber: "9400110000000000000001",
		Metadata:       metadata,
		TrackingStatus: &shippo.TrackingStatus{Status: status, StatusDate: "2026-08-01T10:00:00Z"},
	}
}

func TestUpdateShippingResolvesLeadFromMetadata(t *testing.T) {
	uc, leads, emails := newShippingFixture()
	ctx := context.Background()

	leads.On("FindByID", ctx, testLeadID).Return(&entity.Lead{ID: testLeadID, Email: "dj@example.com"}, nil)
	leads.On("Update", ctx, testLeadID, mock.Anything).Return(nil)
	emails.On("Enqueue", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("job-1", nil)

	result, err := uc.Execute(ctx, trackingUpdate("lead:"+testLeadID, "DELIVERED"))

	assert.NoError(t, err)
	assert.Equal(t, OutcomeProcessed, result.Outcome)
	assert.Equal(t, testLeadID, result.LeadID)
	leads.AssertNotCalled(t, "FindByTrackingNumber", mock.Anything, mock.Anything)
}

func TestUpdateShippingFallsBackToTrackingNumber(t *testing.T) {
	uc, leads, emails := newShippingFixture()
	ctx := context.Background()

	leads.On("FindByTrackingNumber", ctx, "9400110000000000000001").
		Return(&entity.Lead{ID: testLeadID, Email: "dj@example.com"}, nil)
	leads.On("Update", ctx, testLeadID, mock.Anything).Return(nil)
	emails.On("Enqueue", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("job-1", nil)

	result, err := uc.Execute(ctx, trackingUpdate("", "TRANSIT"))

	assert.NoError(t, err)
	assert.Equal(t, OutcomeProcessed, result.Outcome)
}

func TestUpdateShippingFailsWhenNoLeadMatches(t *testing.T) {
	uc, leads, _ := newShippingFixture()
	ctx := context.Background()

	leads.On("FindByTrackingNumber", ctx, "9400110000000000000001").Return(nil, sql.ErrNoRows)

	result, err := uc.Execute(ctx, trackingUpdate("", "DELIVERED"))

	assert.NoError(t, err)
	assert.Equal(t, OutcomeFailed, result.Outcome)
	leads.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdateShippingIgnoresEventWithoutStatus(t *testing.T) {
	uc, leads, _ := newShippingFixture()

	result, err := uc.Execute(context.Background(), shippo.TrackingUpdate{TrackingNumber: "940011"})

	assert.NoError(t, err)
	assert.Equal(t, OutcomeIgnored, result.Outcome)
	leads.AssertNotCalled(t, "FindByTrackingNumber", mock.Anything, mock.Anything)
}

func TestUpdateShippingQuietMilestonesSendNoEmail(t *testing.T) {
	uc, leads, emails := newShippingFixture()
	ctx := context.Background()

	leads.On("FindByID", ctx, testLeadID).Return(&entity.Lead{ID: testLeadID, Email: "dj@example.com"}, nil)
	leads.On("Update", ctx, testLeadID, mock.Anything).Return(nil)

	result, err := uc.Execute(ctx, trackingUpdate("lead:"+testLeadID, "PRE_TRANSIT"))

	assert.NoError(t, err)
	assert.Equal(t, OutcomeProcessed, result.Outcome)
	emails.AssertNotCalled(t, "Enqueue", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdateShippingNoEmailForSentinelRecipient(t *testing.T) {
	uc, leads, emails := newShippingFixture()
	ctx := context.Background()

	leads.On("FindByID", ctx, testLeadID).Return(&entity.Lead{ID: testLeadID, Email: entity.PendingEmail}, nil)
	leads.On("Update", ctx, testLeadID, mock.Anything).Return(nil)

	_, err := uc.Execute(ctx, trackingUpdate("lead:"+testLeadID, "DELIVERED"))

	assert.NoError(t, err)
	emails.AssertNotCalled(t, "Enqueue", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestMapTrackingStatus(t *testing.T) {
	assert.Equal(t, entity.ShippingPreTransit, mapTrackingStatus("PRE_TRANSIT"))
	assert.Equal(t, entity.ShippingInTransit, mapTrackingStatus("TRANSIT"))
	assert.Equal(t, entity.ShippingOutForDelivery, mapTrackingStatus("OUT_FOR_DELIVERY"))
	assert.Equal(t, entity.ShippingDelivered, mapTrackingStatus("delivered"))
	assert.Equal(t, entity.ShippingReturned, mapTrackingStatus("RETURNED"))
	assert.Equal(t, entity.ShippingFailure, mapTrackingStatus("FAILURE"))
	assert.Equal(t, entity.ShippingUnknown, mapTrackingStatus("SOMETHING_NEW"))
}
