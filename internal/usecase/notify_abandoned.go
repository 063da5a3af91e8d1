package usecase

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/beatvault/beatvault-orders/internal/entity"
)

// Sweep defaults when the trigger sends none.
const (
	DefaultAbandonedAfter = 4 * time.Hour
	DefaultAbandonedLimit = 100
)

// NotifyAbandonedCartsUseCase sweeps leads that started a checkout and went
// quiet, and queues one reminder email each. The dedupe key makes re-running
// the sweep harmless; the tag keeps already-notified leads out of later scans.
type NotifyAbandonedCartsUseCase struct {
	Leads  entity.LeadRepositoryInterface
	Emails EmailEnqueuer
	Logger *zap.Logger
}

func NewNotifyAbandonedCartsUseCase(leads entity.LeadRepositoryInterface, emails EmailEnqueuer, logger *zap.Logger) *NotifyAbandonedCartsUseCase {
	return &NotifyAbandonedCartsUseCase{Leads: leads, Emails: emails, Logger: logger}
}

func (uc *NotifyAbandonedCartsUseCase) Execute(ctx context.Context, olderThan time.Duration, limit int) (*AbandonedSummary, error) {
	if olderThan <= 0 {
		olderThan = DefaultAbandonedAfter
	}
	if limit <= 0 {
		limit = DefaultAbandonedLimit
	}

	leads, err := uc.Leads.FindAbandonedCheckouts(ctx, time.Now().Add(-olderThan), limit)
	if err != nil {
		return nil, &TechnicalError{Code: "DATABASE_ERROR", Message: "abandoned checkout sweep: " + err.Error()}
	}

	summary := &AbandonedSummary{Scanned: len(leads)}
	for _, lead := range leads {
		if lead.HasTag("abandoned_cart") {
			continue
		}

		_, err := uc.Emails.Enqueue(ctx, lead.Email, entity.TemplateAbandonedCart, "",
			"email:abandoned:"+lead.ID,
			map[string]interface{}{"product": lead.Product},
		)
		if err != nil {
			uc.Logger.Error("abandoned cart email not enqueued", zap.String("lead_id", lead.ID), zap.Error(err))
			continue
		}
		summary.Enqueued++

		bestEffort(uc.Logger, "tag abandoned_cart", func() error {
			return uc.Leads.Update(ctx, lead.ID, entity.LeadPatch{AddTags: []string{"abandoned_cart"}})
		})
	}

	return summary, nil
}
