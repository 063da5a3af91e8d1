package usecase

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/beatvault/beatvault-orders/internal/entity"
)

// ProcessPaymentUseCase applies a verified, de-duplicated payment confirmation
// to the lead. Safe to invoke twice with the same confirmation: every write is
// an idempotent merge and label issuance carries its own purchased guard.
type ProcessPaymentUseCase struct {
	Leads       entity.LeadRepositoryInterface
	OrderEvents entity.OrderEventRepositoryInterface
	Catalog     *entity.Catalog
	Labels      *IssueLabelUseCase
	Emails      EmailEnqueuer
	Logger      *zap.Logger
}

func NewProcessPaymentUseCase(
	leads entity.LeadRepositoryInterface,
	orderEvents entity.OrderEventRepositoryInterface,
	catalog *entity.Catalog,
	labels *IssueLabelUseCase,
	emails EmailEnqueuer,
	logger *zap.Logger,
) *ProcessPaymentUseCase {
	return &ProcessPaymentUseCase{
		Leads:       leads,
		OrderEvents: orderEvents,
		Catalog:     catalog,
		Labels:      labels,
		Emails:      emails,
		Logger:      logger,
	}
}

func (uc *ProcessPaymentUseCase) Execute(ctx context.Context, conf entity.PaymentConfirmation) (*ProcessResult, error) {
	leadID := conf.ResolveLeadID()
	if leadID == "" {
		// The provider will retry forever on anything but success, so a
		// non-correlatable event terminates as ignored, not as an error.
		return &ProcessResult{Outcome: OutcomeIgnored, Reason: "no lead reference in event"}, nil
	}
	if !IsValidLeadID(leadID) {
		return &ProcessResult{Outcome: OutcomeIgnored, Reason: "lead reference is not a UUID: " + leadID}, nil
	}

	if !conf.Paid {
		// Session completed with an async payment still pending. A later
		// event carries the real completion.
		return &ProcessResult{Outcome: OutcomeIgnored, LeadID: leadID, Reason: "payment not completed yet"}, nil
	}

	lead, err := uc.Leads.FindByID(ctx, leadID)
	if errors.Is(err, sql.ErrNoRows) {
		// Data-integrity problem worth operator attention: a paid session
		// for a lead we never created.
		return &ProcessResult{Outcome: OutcomeFailed, LeadID: leadID, Reason: "lead not found: " + leadID}, nil
	}
	if err != nil {
		return nil, &TechnicalError{Code: "DATABASE_ERROR", Message: "lead lookup failed: " + err.Error()}
	}

	// The paid state must be durable before any label purchase begins.
	now := time.Now()
	patch := entity.LeadPatch{
		PaymentProvider: &conf.Provider,
		PaymentID:       &conf.SessionID,
		PaidAt:          &now,
		FunnelStep:      strPtr(entity.FunnelPaid),
		AddTags:         []string{"paid_" + conf.Provider},
	}
	if conf.CustomerName != "" && lead.Name == "" {
		patch.Name = &conf.CustomerName
	}
	if conf.CustomerEmail != "" && (lead.Email == "" || lead.Email == entity.PendingEmail) {
		patch.Email = &conf.CustomerEmail
	}
	if conf.CustomerPhone != "" && lead.Phone == "" {
		patch.Phone = &conf.CustomerPhone
	}
	if err := uc.Leads.Update(ctx, leadID, patch); err != nil {
		return nil, &TechnicalError{Code: "DATABASE_ERROR", Message: "apply paid state: " + err.Error()}
	}

	bestEffort(uc.Logger, "append order event", func() error {
		return uc.OrderEvents.Append(ctx, &entity.OrderEvent{
			DedupeKey: fmt.Sprintf("lead:%s:payment:%s:%s", leadID, conf.Provider, conf.SessionID),
			LeadID:    leadID,
			EventType: "payment_confirmed",
			Data: map[string]interface{}{
				"provider":     conf.Provider,
				"session_id":   conf.SessionID,
				"amount_cents": conf.AmountCents,
				"currency":     conf.Currency,
			},
		})
	})

	result := &ProcessResult{Outcome: OutcomeProcessed, LeadID: leadID}

	product, productKnown := uc.resolveProduct(conf, lead)
	if productKnown && product.Shippable {
		// Never fails the webhook: the payment is valid regardless of the
		// shipping outcome.
		result.Shippo = uc.Labels.Execute(ctx, leadID, product, conf)
	}

	recipient := conf.CustomerEmail
	if recipient == "" && lead.Email != entity.PendingEmail {
		recipient = lead.Email
	}
	if recipient != "" {
		bestEffort(uc.Logger, "enqueue payment email", func() error {
			_, err := uc.Emails.Enqueue(ctx, recipient, entity.TemplatePaymentConfirmed, "",
				fmt.Sprintf("email:payment:%s:%s", leadID, conf.SessionID),
				map[string]interface{}{"name": conf.CustomerName, "product": product.Name},
			)
			return err
		})
	}

	return result, nil
}

// resolveProduct prefers the product key carried in provider metadata, then
// the one stored on the lead at checkout time.
func (uc *ProcessPaymentUseCase) resolveProduct(conf entity.PaymentConfirmation, lead *entity.Lead) (entity.Product, bool) {
	if conf.ProductKey != "" {
		if p, ok := uc.Catalog.Get(conf.ProductKey); ok {
			return p, true
		}
	}
	if lead.Product != "" {
		if p, ok := uc.Catalog.Get(lead.Product); ok {
			return p, true
		}
	}
	return entity.Product{}, false
}
