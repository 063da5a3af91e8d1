package paypal

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"time"
)

const DefaultTolerance = 10 * time.Minute

var (
	ErrMissingHeaders = errors.New("missing paypal transmission headers")
	ErrBadSignature   = errors.New("paypal transmission signature mismatch")
	ErrStaleTimestamp = errors.New("paypal transmission time outside tolerance")
)

// VerifyWebhook checks the transmission headers against
// HMAC-SHA256(secret, "<transmission-id>|<transmission-time>|<webhook-id>|<body>").
// Same shape as the card provider's scheme: shared secret over timestamp+body,
// compared timing-safe, with a replay tolerance window.
func VerifyWebhook(body []byte, headers http.Header, webhookID, secret string, tolerance time.Duration, now time.Time) error {
	transmissionID := headers.Get("Paypal-Transmission-Id")
	transmissionTime := headers.Get("Paypal-Transmission-Time")
	signature := headers.Get("Paypal-Transmission-Sig")
	if transmissionID == "" || transmissionTime == "" || signature == "" {
		return ErrMissingHeaders
	}

	ts, err := time.Parse(time.RFC3339, transmissionTime)
	if err != nil {
		return ErrMissingHeaders
	}
	age := now.Sub(ts)
	if age > tolerance || age < -tolerance {
		return ErrStaleTimestamp
	}

	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%s|%s|%s|%s", transmissionID, transmissionTime, webhookID, body)
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return ErrBadSignature
	}
	return nil
}
