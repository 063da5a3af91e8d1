package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/beatvault/beatvault-orders/internal/entity"
	"github.com/beatvault/beatvault-orders/internal/usecase"
)

func newAbandonedHandler(leads *MockLeadRepository, emails *MockEmailEnqueuer) *AbandonedCartHandler {
	sweeper := usecase.NewNotifyAbandonedCartsUseCase(leads, emails, zap.NewNop())
	return NewAbandonedCartHandler(sweeper, "worker-token", zap.NewNop())
}

func postAbandoned(handler *AbandonedCartHandler, token string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/jobs/abandoned-carts", bytes.NewReader(body))
	if token != "" {
		req.Header.Set("X-Worker-Token", token)
	}
	rec := httptest.NewRecorder()
	handler.Handle(rec, req)
	return rec
}

func TestAbandonedCartRejectsBadToken(t *testing.T) {
	leads := new(MockLeadRepository)
	handler := newAbandonedHandler(leads, new(MockEmailEnqueuer))

	rec := postAbandoned(handler, "wrong-token", nil)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	leads.AssertNotCalled(t, "FindAbandonedCheckouts", mock.Anything, mock.Anything, mock.Anything)
}

func TestAbandonedCartSweepEnqueuesReminders(t *testing.T) {
	leads := new(MockLeadRepository)
	emails := new(MockEmailEnqueuer)
	handler := newAbandonedHandler(leads, emails)

	stalled := &entity.Lead{
		ID:         testLeadID,
		Email:      "dj@example.com",
		Product:    "usb128",
		FunnelStep: entity.FunnelCheckoutStart,
	}
	leads.On("FindAbandonedCheckouts", mock.Anything, mock.Anything, 10).Return([]*entity.Lead{stalled}, nil)
	leads.On("Update", mock.Anything, testLeadID, mock.Anything).Return(nil)
	emails.On("Enqueue", mock.Anything, "dj@example.com", entity.TemplateAbandonedCart, "", "email:abandoned:"+testLeadID, mock.Anything).
		Return("job-1", nil)

	rec := postAbandoned(handler, "worker-token", []byte(`{"limit":10,"older_than_minutes":60}`))

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		OK      bool                      `json:"ok"`
		Summary *usecase.AbandonedSummary `json:"summary"`
	}
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.OK)
	assert.Equal(t, 1, resp.Summary.Enqueued)
}
