package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/beatvault/beatvault-orders/internal/entity"
	"github.com/beatvault/beatvault-orders/internal/usecase"
)

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// setLedgerStatus records the terminal outcome on the dedup ledger row. A
// failure here leaves the row stuck in received, so it must show up in the
// logs for operator triage; the webhook response is not affected.
func setLedgerStatus(ctx context.Context, ledger entity.WebhookEventRepositoryInterface, logger *zap.Logger, eventKey, status, leadID, reason string) {
	if err := ledger.SetStatus(ctx, eventKey, status, leadID, reason); err != nil {
		logger.Error("webhook ledger status not recorded",
			zap.String("event_key", eventKey),
			zap.String("status", status),
			zap.Error(err),
		)
	}
}

// writeUseCaseError maps business rejections to 4xx and everything else to a
// generic 500 that leaks nothing.
func writeUseCaseError(w http.ResponseWriter, err error) {
	if usecase.IsDomainError(err) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeError(w, http.StatusInternalServerError, "internal error, try again")
}
