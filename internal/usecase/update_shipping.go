package usecase

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/beatvault/beatvault-orders/internal/entity"
	"github.com/beatvault/beatvault-orders/internal/infra/integration/shippo"
)

// UpdateShippingUseCase applies a carrier transit milestone to the lead. The
// handler has already ledger-gated the event, so a given milestone lands here
// once.
type UpdateShippingUseCase struct {
	Leads  entity.LeadRepositoryInterface
	Emails EmailEnqueuer
	Logger *zap.Logger
}

func NewUpdateShippingUseCase(leads entity.LeadRepositoryInterface, emails EmailEnqueuer, logger *zap.Logger) *UpdateShippingUseCase {
	return &UpdateShippingUseCase{Leads: leads, Emails: emails, Logger: logger}
}

func (uc *UpdateShippingUseCase) Execute(ctx context.Context, update shippo.TrackingUpdate) (*ProcessResult, error) {
	if update.TrackingStatus == nil || update.TrackingNumber == "" {
		return &ProcessResult{Outcome: OutcomeIgnored, Reason: "no tracking status in event"}, nil
	}

	lead, err := uc.resolveLead(ctx, update)
	if errors.Is(err, sql.ErrNoRows) {
		return &ProcessResult{
			Outcome: OutcomeFailed,
			Reason:  "no lead for tracking number " + update.TrackingNumber,
		}, nil
	}
	if err != nil {
		return nil, &TechnicalError{Code: "DATABASE_ERROR", Message: "lead lookup failed: " + err.Error()}
	}

	status := mapTrackingStatus(update.TrackingStatus.Status)
	if err := uc.Leads.Update(ctx, lead.ID, entity.LeadPatch{
		ShippingStatus: &status,
		AddTags:        []string{"shipping_" + status},
	}); err != nil {
		return nil, &TechnicalError{Code: "DATABASE_ERROR", Message: "apply shipping status: " + err.Error()}
	}

	if lead.Email != "" && lead.Email != entity.PendingEmail && emailWorthy(status) {
		bestEffort(uc.Logger, "enqueue shipping email", func() error {
			_, err := uc.Emails.Enqueue(ctx, lead.Email, entity.TemplateShippingUpdate, "",
				fmt.Sprintf("email:shipping:%s:%s", lead.ID, status),
				map[string]interface{}{"tracking_number": update.TrackingNumber, "status": status},
			)
			return err
		})
	}

	return &ProcessResult{Outcome: OutcomeProcessed, LeadID: lead.ID}, nil
}

// resolveLead prefers the lead id we embedded in carrier metadata at purchase
// time, falling back to a tracking-number lookup.
func (uc *UpdateShippingUseCase) resolveLead(ctx context.Context, update shippo.TrackingUpdate) (*entity.Lead, error) {
	if id, ok := strings.CutPrefix(update.Metadata, "lead:"); ok && IsValidLeadID(id) {
		lead, err := uc.Leads.FindByID(ctx, id)
		if err == nil {
			return lead, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
	}
	return uc.Leads.FindByTrackingNumber(ctx, update.TrackingNumber)
}

func mapTrackingStatus(raw string) string {
	switch strings.ToUpper(raw) {
	case "PRE_TRANSIT":
		return entity.ShippingPreTransit
	case "TRANSIT":
		return entity.ShippingInTransit
	case "OUT_FOR_DELIVERY":
		return entity.ShippingOutForDelivery
	case "DELIVERED":
		return entity.ShippingDelivered
	case "RETURNED":
		return entity.ShippingReturned
	case "FAILURE":
		return entity.ShippingFailure
	default:
		return entity.ShippingUnknown
	}
}

// emailWorthy filters milestones a buyer cares about; pre-transit churn stays
// quiet.
func emailWorthy(status string) bool {
	switch status {
	case entity.ShippingInTransit, entity.ShippingOutForDelivery, entity.ShippingDelivered, entity.ShippingFailure:
		return true
	}
	return false
}
