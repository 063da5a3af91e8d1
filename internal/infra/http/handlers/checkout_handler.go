package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/beatvault/beatvault-orders/internal/usecase"
)

type CheckoutHandler struct {
	CreateUC *usecase.CreateCheckoutUseCase
	VerifyUC *usecase.VerifyCheckoutUseCase
}

func NewCheckoutHandler(createUC *usecase.CreateCheckoutUseCase, verifyUC *usecase.VerifyCheckoutUseCase) *CheckoutHandler {
	return &CheckoutHandler{CreateUC: createUC, VerifyUC: verifyUC}
}

// Handle dispatches on the body's "action" field: create opens a hosted
// session, verify polls one.
func (h *CheckoutHandler) Handle(w http.ResponseWriter, r *http.Request) {
	var envelope struct {
		Action string `json:"action"`
	}
	body := json.NewDecoder(r.Body)
	raw := json.RawMessage{}
	if err := body.Decode(&raw); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	switch envelope.Action {
	case "create":
		var input usecase.CreateCheckoutInput
		if err := json.Unmarshal(raw, &input); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON")
			return
		}
		output, err := h.CreateUC.Execute(r.Context(), input)
		if err != nil {
			writeUseCaseError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, output)

	case "verify":
		var input usecase.VerifyCheckoutInput
		if err := json.Unmarshal(raw, &input); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON")
			return
		}
		output, err := h.VerifyUC.Execute(r.Context(), input)
		if err != nil {
			writeUseCaseError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, output)

	default:
		writeError(w, http.StatusBadRequest, "unknown action")
	}
}
