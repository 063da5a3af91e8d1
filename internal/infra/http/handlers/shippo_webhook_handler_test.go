package handlers

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
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

const shippoSecret = "shippo_webhook_secret"

type shippoFixture struct {
	handler *ShippoWebhookHandler
	ledger  *MockWebhookEventRepository
	leads   *MockLeadRepository
}

func newShippoFixture() *shippoFixture {
	ledger := new(MockWebhookEventRepository)
	leads := new(MockLeadRepository)
	emails := new(MockEmailEnqueuer)
	emails.On("Enqueue", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("job-1", nil)

	shipping := usecase.NewUpdateShippingUseCase(leads, emails, zap.NewNop())
	return &shippoFixture{
		handler: NewShippoWebhookHandler(ledger, shipping, shippoSecret, "static-token", zap.NewNop()),
		ledger:  ledger,
		leads:   leads,
	}
}

func trackEventBody(t *testing.T, status, statusDate string) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]interface{}{
		"event": "track_updated",
		"data": map[string]interface{}{
			"carrier":         "usps",
			"tracking_number": "9400110000000000000001",
			"metadata":        "lead:" + testLeadID,
			"tracking_status": map[string]string{"status": status, "status_date": statusDate},
		},
	})
	assert.NoError(t, err)
	return body
}

func postShippo(handler *ShippoWebhookHandler, body []byte, token string, sign bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/shippo?token="+token, bytes.NewReader(body))
	if sign {
		mac := hmac.New(sha256.New, []byte(shippoSecret))
		mac.Write(body)
		req.Header.Set("X-Shippo-Signature", hex.EncodeToString(mac.Sum(nil)))
	}
	rec := httptest.NewRecorder()
	handler.Handle(rec, req)
	return rec
}

func TestShippoWebhookRejectsBadToken(t *testing.T) {
	f := newShippoFixture()
	body := trackEventBody(t, "DELIVERED", "2026-08-01T10:00:00Z")

	rec := postShippo(f.handler, body, "wrong", true)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	f.ledger.AssertNotCalled(t, "RecordIfNew", mock.Anything, mock.Anything)
}

func TestShippoWebhookRejectsUnsignedBody(t *testing.T) {
	f := newShippoFixture()
	body := trackEventBody(t, "DELIVERED", "2026-08-01T10:00:00Z")

	rec := postShippo(f.handler, body, "static-token", false)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	f.ledger.AssertNotCalled(t, "RecordIfNew", mock.Anything, mock.Anything)
}

func TestShippoWebhookDedupsByFingerprint(t *testing.T) {
	f := newShippoFixture()
	f.ledger.On("RecordIfNew", mock.Anything, mock.Anything).Return(true, nil).Once()
	f.ledger.On("RecordIfNew", mock.Anything, mock.Anything).Return(false, nil)
	f.ledger.On("SetStatus", mock.Anything, mock.Anything, entity.WebhookProcessed, testLeadID, "").Return(nil)
	f.leads.On("FindByID", mock.Anything, testLeadID).Return(&entity.Lead{ID: testLeadID, Email: "dj@example.com"}, nil)
	f.leads.On("Update", mock.Anything, testLeadID, mock.Anything).Return(nil)

	body := trackEventBody(t, "DELIVERED", "2026-08-01T10:00:00Z")
	first := postShippo(f.handler, body, "static-token", true)
	second := postShippo(f.handler, body, "static-token", true)

	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, http.StatusOK, second.Code)
	f.leads.AssertNumberOfCalls(t, "Update", 1)

	var resp map[string]interface{}
	assert.NoError(t, json.Unmarshal(second.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["duplicate"])
}

func TestShippoWebhookDistinctMilestonesBothProcess(t *testing.T) {
	f := newShippoFixture()
	keys := map[string]bool{}
	f.ledger.On("RecordIfNew", mock.Anything, mock.MatchedBy(func(e *entity.WebhookEvent) bool {
		keys[e.EventKey] = true
		return true
	})).Return(true, nil)
	f.ledger.On("SetStatus", mock.Anything, mock.Anything, entity.WebhookProcessed, testLeadID, "").Return(nil)
	f.leads.On("FindByID", mock.Anything, testLeadID).Return(&entity.Lead{ID: testLeadID, Email: "dj@example.com"}, nil)
	f.leads.On("Update", mock.Anything, testLeadID, mock.Anything).Return(nil)

	postShippo(f.handler, trackEventBody(t, "TRANSIT", "2026-07-30T08:00:00Z"), "static-token", true)
	postShippo(f.handler, trackEventBody(t, "DELIVERED", "2026-08-01T10:00:00Z"), "static-token", true)

	// Two different milestones must land on two different ledger keys.
	assert.Len(t, keys, 2)
	f.leads.AssertNumberOfCalls(t, "Update", 2)
}

func TestShippoWebhookIgnoresNonTrackingEvents(t *testing.T) {
	f := newShippoFixture()
	body, _ := json.Marshal(map[string]interface{}{"event": "transaction_created", "data": map[string]interface{}{}})

	rec := postShippo(f.handler, body, "static-token", true)

	assert.Equal(t, http.StatusOK, rec.Code)
	f.ledger.AssertNotCalled(t, "RecordIfNew", mock.Anything, mock.Anything)
	f.leads.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}
