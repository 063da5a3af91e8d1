package stripe

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DefaultTolerance rejects replays of captured payloads older than this.
const DefaultTolerance = 5 * time.Minute

var (
	ErrMissingSignature = errors.New("missing or malformed Stripe-Signature header")
	ErrBadSignature     = errors.New("stripe signature mismatch")
	ErrStaleTimestamp   = errors.New("stripe signature timestamp outside tolerance")
)

// VerifySignature checks the Stripe-Signature header ("t=<ts>,v1=<hex>,...")
// against HMAC-SHA256(secret, "<ts>.<body>") with a timing-safe comparison and
// a timestamp tolerance window.
func VerifySignature(payload []byte, header, secret string, tolerance time.Duration, now time.Time) error {
	var timestamp int64
	var candidates []string

	for _, part := range strings.Split(header, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch key {
		case "t":
			ts, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return ErrMissingSignature
			}
			timestamp = ts
		case "v1":
			candidates = append(candidates, value)
		}
	}

	if timestamp == 0 || len(candidates) == 0 {
		return ErrMissingSignature
	}

	age := now.Sub(time.Unix(timestamp, 0))
	if age > tolerance || age < -tolerance {
		return ErrStaleTimestamp
	}

	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", timestamp, payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	for _, candidate := range candidates {
		if hmac.Equal([]byte(expected), []byte(candidate)) {
			return nil
		}
	}
	return ErrBadSignature
}
