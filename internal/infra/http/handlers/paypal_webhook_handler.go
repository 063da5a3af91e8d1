package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/beatvault/beatvault-orders/internal/entity"
	"github.com/beatvault/beatvault-orders/internal/infra/http/middleware"
	"github.com/beatvault/beatvault-orders/internal/infra/integration/paypal"
	"github.com/beatvault/beatvault-orders/internal/usecase"
)

type PayPalWebhookHandler struct {
	Ledger    entity.WebhookEventRepositoryInterface
	Payments  *usecase.ProcessPaymentUseCase
	Client    *paypal.Client
	WebhookID string
	Secret    string
	Logger    *zap.Logger
}

func NewPayPalWebhookHandler(
	ledger entity.WebhookEventRepositoryInterface,
	payments *usecase.ProcessPaymentUseCase,
	client *paypal.Client,
	webhookID, secret string,
	logger *zap.Logger,
) *PayPalWebhookHandler {
	return &PayPalWebhookHandler{
		Ledger:    ledger,
		Payments:  payments,
		Client:    client,
		WebhookID: webhookID,
		Secret:    secret,
		Logger:    logger,
	}
}

func (h *PayPalWebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable body")
		return
	}

	if err := paypal.VerifyWebhook(body, r.Header, h.WebhookID, h.Secret, paypal.DefaultTolerance, time.Now()); err != nil {
		h.Logger.Warn("paypal webhook rejected", zap.Error(err))
		writeError(w, http.StatusUnauthorized, "invalid_signature")
		return
	}

	var event paypal.Event
	if err := json.Unmarshal(body, &event); err != nil || event.ID == "" {
		writeError(w, http.StatusBadRequest, "malformed event")
		return
	}

	isNew, err := h.Ledger.RecordIfNew(r.Context(), &entity.WebhookEvent{
		EventKey:  event.ID,
		Provider:  paypal.ProviderName,
		EventType: event.EventType,
		Payload:   body,
		Headers:   "Paypal-Transmission-Id: " + r.Header.Get("Paypal-Transmission-Id"),
	})
	if err != nil {
		h.Logger.Error("paypal ledger insert failed", zap.String("event_id", event.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "ledger unavailable")
		return
	}
	if !isNew {
		middleware.RecordWebhookEvent(paypal.ProviderName, "duplicate")
		writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "duplicate": true})
		return
	}

	conf, reason := h.confirmationFromEvent(r, &event)
	if conf == nil {
		setLedgerStatus(r.Context(), h.Ledger, h.Logger, event.ID, entity.WebhookIgnored, "", reason)
		middleware.RecordWebhookEvent(paypal.ProviderName, "ignored")
		writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "ignored": true, "reason": reason})
		return
	}

	result, err := h.Payments.Execute(r.Context(), *conf)
	if err != nil {
		h.Logger.Error("paypal payment processing failed", zap.String("event_id", event.ID), zap.Error(err))
		setLedgerStatus(r.Context(), h.Ledger, h.Logger, event.ID, entity.WebhookFailed, conf.ResolveLeadID(), err.Error())
		middleware.RecordWebhookEvent(paypal.ProviderName, "failed")
		writeError(w, http.StatusInternalServerError, "processing failed")
		return
	}

	setLedgerStatus(r.Context(), h.Ledger, h.Logger, event.ID, result.Outcome, result.LeadID, result.Reason)
	middleware.RecordWebhookEvent(paypal.ProviderName, result.Outcome)

	switch result.Outcome {
	case usecase.OutcomeProcessed:
		middleware.RecordPaymentConfirmed(paypal.ProviderName)
		writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "processed": true})
	case usecase.OutcomeIgnored:
		writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "ignored": true, "reason": result.Reason})
	default:
		writeError(w, http.StatusInternalServerError, result.Reason)
	}
}

// confirmationFromEvent maps the supported event shapes to the normalized
// confirmation, capturing the order first where the event is only an
// approval. A nil confirmation with a reason means "ignore".
func (h *PayPalWebhookHandler) confirmationFromEvent(r *http.Request, event *paypal.Event) (*entity.PaymentConfirmation, string) {
	switch event.EventType {
	case "CHECKOUT.ORDER.APPROVED":
		var order paypal.Order
		if err := json.Unmarshal(event.Resource, &order); err != nil || order.ID == "" {
			return nil, "undecodable order resource"
		}
		// Approval is not payment. Capture settles it; CaptureOrder falls
		// back to fetch-to-confirm on an ambiguous transport failure.
		conf, err := h.Client.CaptureOrder(r.Context(), order.ID)
		if err != nil {
			h.Logger.Warn("paypal capture failed", zap.String("order_id", order.ID), zap.Error(err))
			middleware.RecordIntegrationError("paypal")
			// Not paid as far as anyone can prove. A capture-completed
			// event will carry the real completion if it did land.
			return nil, "capture not completed"
		}
		return conf, ""

	case "PAYMENT.CAPTURE.COMPLETED":
		var capture paypal.Capture
		if err := json.Unmarshal(event.Resource, &capture); err != nil {
			return nil, "undecodable capture resource"
		}
		if capture.SupplementaryData != nil && capture.SupplementaryData.RelatedIDs.OrderID != "" {
			// Ground truth from the order brings the shipping address along.
			conf, err := h.Client.GetOrder(r.Context(), capture.SupplementaryData.RelatedIDs.OrderID)
			if err == nil {
				return conf, ""
			}
			h.Logger.Warn("paypal order fetch failed, using capture fields",
				zap.String("capture_id", capture.ID), zap.Error(err))
		}
		if capture.CustomID == "" {
			return nil, "capture carries no lead reference"
		}
		return &entity.PaymentConfirmation{
			Provider:  paypal.ProviderName,
			SessionID: capture.ID,
			LeadID:    capture.CustomID,
			Paid:      capture.Status == "COMPLETED",
			Currency:  capture.Amount.CurrencyCode,
		}, ""

	default:
		return nil, "unsupported event type " + event.EventType
	}
}
