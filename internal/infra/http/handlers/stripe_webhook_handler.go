package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/beatvault/beatvault-orders/internal/entity"
	"github.com/beatvault/beatvault-orders/internal/infra/http/middleware"
	"github.com/beatvault/beatvault-orders/internal/infra/integration/stripe"
	"github.com/beatvault/beatvault-orders/internal/usecase"
)

const maxWebhookBody = 1 << 20 // 1 MiB

type StripeWebhookHandler struct {
	Ledger   entity.WebhookEventRepositoryInterface
	Payments *usecase.ProcessPaymentUseCase
	Secret   string
	Logger   *zap.Logger
}

func NewStripeWebhookHandler(ledger entity.WebhookEventRepositoryInterface, payments *usecase.ProcessPaymentUseCase, secret string, logger *zap.Logger) *StripeWebhookHandler {
	return &StripeWebhookHandler{Ledger: ledger, Payments: payments, Secret: secret, Logger: logger}
}

func (h *StripeWebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable body")
		return
	}

	// Authentication comes before any database write.
	signature := r.Header.Get("Stripe-Signature")
	if err := stripe.VerifySignature(body, signature, h.Secret, stripe.DefaultTolerance, time.Now()); err != nil {
		h.Logger.Warn("stripe webhook rejected", zap.Error(err))
		writeError(w, http.StatusUnauthorized, "invalid_signature")
		return
	}

	var event stripe.Event
	if err := json.Unmarshal(body, &event); err != nil || event.ID == "" {
		writeError(w, http.StatusBadRequest, "malformed event")
		return
	}

	isNew, err := h.Ledger.RecordIfNew(r.Context(), &entity.WebhookEvent{
		EventKey:  event.ID,
		Provider:  stripe.ProviderName,
		EventType: event.Type,
		Payload:   body,
		Headers:   "Stripe-Signature: " + signature,
	})
	if err != nil {
		h.Logger.Error("stripe ledger insert failed", zap.String("event_id", event.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "ledger unavailable")
		return
	}
	if !isNew {
		// At-least-once delivery: the first sighting ran the side effects.
		middleware.RecordWebhookEvent(stripe.ProviderName, "duplicate")
		writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "duplicate": true})
		return
	}

	switch event.Type {
	case "checkout.session.completed", "checkout.session.async_payment_succeeded":
		h.processSession(w, r, &event)
	default:
		setLedgerStatus(r.Context(), h.Ledger, h.Logger, event.ID, entity.WebhookIgnored, "", "unsupported event type "+event.Type)
		middleware.RecordWebhookEvent(stripe.ProviderName, "ignored")
		writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "ignored": true})
	}
}

func (h *StripeWebhookHandler) processSession(w http.ResponseWriter, r *http.Request, event *stripe.Event) {
	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Object, &session); err != nil {
		setLedgerStatus(r.Context(), h.Ledger, h.Logger, event.ID, entity.WebhookIgnored, "", "undecodable session object")
		middleware.RecordWebhookEvent(stripe.ProviderName, "ignored")
		writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "ignored": true})
		return
	}

	conf := stripe.Normalize(&session)
	result, err := h.Payments.Execute(r.Context(), conf)
	if err != nil {
		h.Logger.Error("stripe payment processing failed", zap.String("event_id", event.ID), zap.Error(err))
		setLedgerStatus(r.Context(), h.Ledger, h.Logger, event.ID, entity.WebhookFailed, conf.ResolveLeadID(), err.Error())
		middleware.RecordWebhookEvent(stripe.ProviderName, "failed")
		writeError(w, http.StatusInternalServerError, "processing failed")
		return
	}

	setLedgerStatus(r.Context(), h.Ledger, h.Logger, event.ID, result.Outcome, result.LeadID, result.Reason)
	middleware.RecordWebhookEvent(stripe.ProviderName, result.Outcome)

	switch result.Outcome {
	case usecase.OutcomeProcessed:
		middleware.RecordPaymentConfirmed(stripe.ProviderName)
		if result.Shippo != nil {
			middleware.RecordLabelPurchased()
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "processed": true})
	case usecase.OutcomeIgnored:
		writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "ignored": true, "reason": result.Reason})
	default:
		// Terminal data-integrity failure; the row keeps the reason for
		// operator triage.
		writeError(w, http.StatusInternalServerError, result.Reason)
	}
}
