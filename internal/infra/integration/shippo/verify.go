package shippo

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
)

var (
	ErrMissingSignature = errors.New("missing shippo signature")
	ErrBadSignature     = errors.New("shippo signature mismatch")
	ErrBadToken         = errors.New("shippo webhook token mismatch")
)

// VerifySignature checks the hex HMAC-SHA256 of the raw body against the
// X-Shippo-Signature header. Skipped when no secret is configured; the static
// token is the baseline guard then.
func VerifySignature(body []byte, signature, secret string) error {
	if secret == "" {
		return nil
	}
	if signature == "" {
		return ErrMissingSignature
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return ErrBadSignature
	}
	return nil
}

// VerifyToken compares the optional static ?token= query parameter. Skipped
// when no token is configured.
func VerifyToken(got, want string) error {
	if want == "" {
		return nil
	}
	if subtle.ConstantTimeCompare([]byte(got), []byte(want)) != 1 {
		return ErrBadToken
	}
	return nil
}
