package handlers

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/beatvault/beatvault-orders/internal/entity"
)

func leadRouter(leads *MockLeadRepository) *chi.Mux {
	r := chi.NewRouter()
	r.Get("/leads/{id}", NewLeadHandler(leads, zap.NewNop()).Get)
	return r
}

func TestGetLeadReturnsLead(t *testing.T) {
	leads := new(MockLeadRepository)
	leads.On("FindByID", mock.Anything, testLeadID).Return(&entity.Lead{
		ID:    testLeadID,
		Email: "dj@example.com",
		Tags:  []string{"stripe", "paid_stripe"},
	}, nil)

	rec := httptest.NewRecorder()
	leadRouter(leads).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/leads/"+testLeadID, nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var lead entity.Lead
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &lead))
	assert.Equal(t, testLeadID, lead.ID)
	assert.Contains(t, lead.Tags, "paid_stripe")
}

func TestGetLeadNotFound(t *testing.T) {
	leads := new(MockLeadRepository)
	leads.On("FindByID", mock.Anything, testLeadID).Return(nil, sql.ErrNoRows)

	rec := httptest.NewRecorder()
	leadRouter(leads).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/leads/"+testLeadID, nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetLeadRejectsMalformedID(t *testing.T) {
	leads := new(MockLeadRepository)

	rec := httptest.NewRecorder()
	leadRouter(leads).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/leads/not-a-uuid", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	leads.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
}
