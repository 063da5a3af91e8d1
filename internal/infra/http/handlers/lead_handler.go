package handlers

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/beatvault/beatvault-orders/internal/entity"
	"github.com/beatvault/beatvault-orders/internal/usecase"
)

type LeadHandler struct {
	Leads  entity.LeadRepositoryInterface
	Logger *zap.Logger
}

func NewLeadHandler(leads entity.LeadRepositoryInterface, logger *zap.Logger) *LeadHandler {
	return &LeadHandler{Leads: leads, Logger: logger}
}

func (h *LeadHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !usecase.IsValidLeadID(id) {
		writeError(w, http.StatusBadRequest, "invalid lead id")
		return
	}

	lead, err := h.Leads.FindByID(r.Context(), id)
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, "lead not found")
		return
	}
	if err != nil {
		h.Logger.Error("lead lookup failed", zap.String("lead_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}

	writeJSON(w, http.StatusOK, lead)
}
