package webhooks

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"
)

const (
	SecretHeader    = "X-Webhook-Secret"
	SignatureHeader = "X-Webhook-Signature"
)

// SecretVerifier accepts a request that either carries the shared secret in
// SecretHeader (database webhooks can only send static headers) or signs
// the body with it as "sha256=<hex hmac>" in SignatureHeader.
type SecretVerifier struct {
	Secret string
}

func (v SecretVerifier) Verify(_ context.Context, r *http.Request, body []byte) error {
	if v.Secret == "" {
		return errors.New("webhook secret not configured")
	}
	if sig := r.Header.Get(SignatureHeader); sig != "" {
		got, err := hex.DecodeString(strings.TrimPrefix(sig, "sha256="))
		if err != nil {
			return errors.New("malformed signature")
		}
		mac := hmac.New(sha256.New, []byte(v.Secret))
		mac.Write(body)
		if !hmac.Equal(got, mac.Sum(nil)) {
			return errors.New("signature mismatch")
		}
		return nil
	}
	if secret := r.Header.Get(SecretHeader); secret != "" {
		if subtle.ConstantTimeCompare([]byte(secret), []byte(v.Secret)) != 1 {
			return errors.New("secret mismatch")
		}
		return nil
	}
	return errors.New("missing webhook credentials")
}

// Sign returns the SignatureHeader value for body.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}
