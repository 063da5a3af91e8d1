package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/beatvault/beatvault-orders/internal/entity"
	"github.com/beatvault/beatvault-orders/internal/infra/http/middleware"
	"github.com/beatvault/beatvault-orders/internal/infra/integration/shippo"
	"github.com/beatvault/beatvault-orders/internal/usecase"
)

type ShippoWebhookHandler struct {
	Ledger   entity.WebhookEventRepositoryInterface
	Shipping *usecase.UpdateShippingUseCase
	Secret   string
	Token    string
	Logger   *zap.Logger
}

func NewShippoWebhookHandler(
	ledger entity.WebhookEventRepositoryInterface,
	shipping *usecase.UpdateShippingUseCase,
	secret, token string,
	logger *zap.Logger,
) *ShippoWebhookHandler {
	return &ShippoWebhookHandler{Ledger: ledger, Shipping: shipping, Secret: secret, Token: token, Logger: logger}
}

func (h *ShippoWebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	if err := shippo.VerifyToken(r.URL.Query().Get("token"), h.Token); err != nil {
		h.Logger.Warn("shippo webhook rejected", zap.Error(err))
		writeError(w, http.StatusUnauthorized, "invalid_token")
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable body")
		return
	}

	if err := shippo.VerifySignature(body, r.Header.Get("X-Shippo-Signature"), h.Secret); err != nil {
		h.Logger.Warn("shippo webhook rejected", zap.Error(err))
		writeError(w, http.StatusUnauthorized, "invalid_signature")
		return
	}

	var envelope shippo.WebhookEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		writeError(w, http.StatusBadRequest, "malformed event")
		return
	}

	if envelope.Event != "track_updated" || envelope.Data.TrackingStatus == nil {
		// No ledger row for shapes we never act on; there is nothing to
		// guard.
		middleware.RecordWebhookEvent(shippo.ProviderName, "ignored")
		writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "ignored": true})
		return
	}

	// No canonical event id from this provider: fingerprint the normalized
	// projection so a redelivery hashes the same and a different milestone
	// does not.
	eventKey := entity.Fingerprint(
		shippo.ProviderName, "track_updated",
		envelope.Data.Carrier,
		envelope.Data.TrackingNumber,
		envelope.Data.TrackingStatus.Status,
		envelope.Data.TrackingStatus.StatusDate,
	)

	isNew, err := h.Ledger.RecordIfNew(r.Context(), &entity.WebhookEvent{
		EventKey:  eventKey,
		Provider:  shippo.ProviderName,
		EventType: envelope.Event,
		Payload:   body,
	})
	if err != nil {
		h.Logger.Error("shippo ledger insert failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "ledger unavailable")
		return
	}
	if !isNew {
		middleware.RecordWebhookEvent(shippo.ProviderName, "duplicate")
		writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "duplicate": true})
		return
	}

	result, err := h.Shipping.Execute(r.Context(), envelope.Data)
	if err != nil {
		h.Logger.Error("shipping update failed", zap.String("tracking_number", envelope.Data.TrackingNumber), zap.Error(err))
		setLedgerStatus(r.Context(), h.Ledger, h.Logger, eventKey, entity.WebhookFailed, "", err.Error())
		middleware.RecordWebhookEvent(shippo.ProviderName, "failed")
		writeError(w, http.StatusInternalServerError, "processing failed")
		return
	}

	setLedgerStatus(r.Context(), h.Ledger, h.Logger, eventKey, result.Outcome, result.LeadID, result.Reason)
	middleware.RecordWebhookEvent(shippo.ProviderName, result.Outcome)

	switch result.Outcome {
	case usecase.OutcomeProcessed:
		writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "processed": true})
	case usecase.OutcomeIgnored:
		writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "ignored": true, "reason": result.Reason})
	default:
		writeError(w, http.StatusInternalServerError, result.Reason)
	}
}
