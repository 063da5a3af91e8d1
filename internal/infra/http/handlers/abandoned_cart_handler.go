package handlers

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/beatvault/beatvault-orders/internal/usecase"
)

// AbandonedCartHandler runs the abandoned-checkout sweep on demand. Same
// token gate as the dispatch trigger; one scheduler hits both.
type AbandonedCartHandler struct {
	Sweeper     *usecase.NotifyAbandonedCartsUseCase
	WorkerToken string
	Logger      *zap.Logger
}

func NewAbandonedCartHandler(sweeper *usecase.NotifyAbandonedCartsUseCase, workerToken string, logger *zap.Logger) *AbandonedCartHandler {
	return &AbandonedCartHandler{Sweeper: sweeper, WorkerToken: workerToken, Logger: logger}
}

type abandonedRequest struct {
	Limit            int `json:"limit"`
	OlderThanMinutes int `json:"older_than_minutes"`
}

func (h *AbandonedCartHandler) Handle(w http.ResponseWriter, r *http.Request) {
	token := r.Header.Get("X-Worker-Token")
	if h.WorkerToken == "" || subtle.ConstantTimeCompare([]byte(token), []byte(h.WorkerToken)) != 1 {
		writeError(w, http.StatusUnauthorized, "invalid_token")
		return
	}

	var req abandonedRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	summary, err := h.Sweeper.Execute(r.Context(), time.Duration(req.OlderThanMinutes)*time.Minute, req.Limit)
	if err != nil {
		h.Logger.Error("abandoned checkout sweep failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "sweep failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "summary": summary})
}
