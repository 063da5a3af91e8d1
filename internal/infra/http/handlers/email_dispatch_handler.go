package handlers

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/beatvault/beatvault-orders/internal/infra/http/middleware"
	"github.com/beatvault/beatvault-orders/internal/usecase"
)

// EmailDispatchHandler exposes the queue drain to external schedulers, so a
// cron hit can drive sending even when the broker nudge path is down.
type EmailDispatchHandler struct {
	Dispatcher   *usecase.DispatchEmailsUseCase
	WorkerToken  string
	DefaultLimit int
	Logger       *zap.Logger
}

func NewEmailDispatchHandler(dispatcher *usecase.DispatchEmailsUseCase, workerToken string, defaultLimit int, logger *zap.Logger) *EmailDispatchHandler {
	return &EmailDispatchHandler{Dispatcher: dispatcher, WorkerToken: workerToken, DefaultLimit: defaultLimit, Logger: logger}
}

type dispatchRequest struct {
	Limit int `json:"limit"`
}

func (h *EmailDispatchHandler) Handle(w http.ResponseWriter, r *http.Request) {
	token := r.Header.Get("X-Worker-Token")
	if h.WorkerToken == "" || subtle.ConstantTimeCompare([]byte(token), []byte(h.WorkerToken)) != 1 {
		writeError(w, http.StatusUnauthorized, "invalid_token")
		return
	}

	limit := h.DefaultLimit
	var req dispatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err == nil && req.Limit > 0 {
		limit = req.Limit
	}

	summary, err := h.Dispatcher.Execute(r.Context(), limit)
	if err != nil {
		h.Logger.Error("email dispatch batch failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "dispatch failed")
		return
	}

	middleware.RecordEmailsDispatched(summary.Sent, summary.Failed)
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "summary": summary})
}
