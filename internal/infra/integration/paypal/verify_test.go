package paypal

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

const (
	testWebhookID = "8PT597110X687430LKGECATA"
	testSecret    = "paypal_webhook_secret"
)

func signedHeaders(t *testing.T, body []byte, ts time.Time, secret string) http.Header {
	t.Helper()
	transmissionID := "tx-12345"
	transmissionTime := ts.Format(time.RFC3339)

	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%s|%s|%s|%s", transmissionID, transmissionTime, testWebhookID, body)

	h := http.Header{}
	h.Set("Paypal-Transmission-Id", transmissionID)
	h.Set("Paypal-Transmission-Time", transmissionTime)
	h.Set("Paypal-Transmission-Sig", hex.EncodeToString(mac.Sum(nil)))
	return h
}

func TestVerifyWebhookAccepts(t *testing.T) {
	now := time.Now()
	body := []byte(`{"id":"WH-1","event_type":"CHECKOUT.ORDER.APPROVED"}`)

	err := VerifyWebhook(body, signedHeaders(t, body, now, testSecret), testWebhookID, testSecret, DefaultTolerance, now)

	assert.NoError(t, err)
}

func TestVerifyWebhookRejectsTamperedBody(t *testing.T) {
	now := time.Now()
	body := []byte(`{"id":"WH-1"}`)
	headers := signedHeaders(t, body, now, testSecret)

	err := VerifyWebhook([]byte(`{"id":"WH-2"}`), headers, testWebhookID, testSecret, DefaultTolerance, now)

	assert.ErrorIs(t, err, ErrBadSignature)
}

func TestVerifyWebhookRejectsWrongWebhookID(t *testing.T) {
	now := time.Now()
	body := []byte(`{"id":"WH-1"}`)
	headers := signedHeaders(t, body, now, testSecret)

	err := VerifyWebhook(body, headers, "another-webhook-id", testSecret, DefaultTolerance, now)

	assert.ErrorIs(t, err, ErrBadSignature)
}

func TestVerifyWebhookRejectsStaleTransmission(t *testing.T) {
	now := time.Now()
	body := []byte(`{"id":"WH-1"}`)
	headers := signedHeaders(t, body, now.Add(-11*time.Minute), testSecret)

	err := VerifyWebhook(body, headers, testWebhookID, testSecret, DefaultTolerance, now)

	assert.ErrorIs(t, err, ErrStaleTimestamp)
}

func TestVerifyWebhookRejectsMissingHeaders(t *testing.T) {
	err := VerifyWebhook([]byte(`{}`), http.Header{}, testWebhookID, testSecret, DefaultTolerance, time.Now())

	assert.ErrorIs(t, err, ErrMissingHeaders)
}
