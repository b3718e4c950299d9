package delivery

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"

	"bounty-webhooks/internal/domain/subscribers"
)

const (
	HeaderSignature = "X-Signature"
	HeaderEventType = "X-Event-Type"
	HeaderEventID   = "X-Event-Id"
	HeaderWebhookID = "X-Webhook-Id"

	signaturePrefix = "sha256="
)

// Sign devuelve el HMAC-SHA256 de payload en hex.
func Sign(payload, key []byte) string {
	mac := hmac.New(sha256.New, key)
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// SignatureHeader arma el valor de X-Signature.
func SignatureHeader(mac string) string {
	return signaturePrefix + mac
}

// Verify compara header ("sha256=<hex>" o solo el hex) contra la firma esperada.
func Verify(payload, key []byte, header string) bool {
	got := strings.TrimSpace(header)
	got = strings.TrimPrefix(got, signaturePrefix)
	if got == "" {
		return false
	}
	want := Sign(payload, key)
	return subtle.ConstantTimeCompare([]byte(strings.ToLower(got)), []byte(want)) == 1
}

// Signer resuelve la clave de cada suscriptor: su secret si tiene, si no la global.
type Signer struct {
	defaultKey []byte
}

func NewSigner(defaultKey string) *Signer {
	return &Signer{defaultKey: []byte(defaultKey)}
}

func (s *Signer) KeyFor(sub subscribers.Subscriber) []byte {
	if sub.Secret != "" {
		return []byte(sub.Secret)
	}
	return s.defaultKey
}

func (s *Signer) Sign(sub subscribers.Subscriber, payload []byte) string {
	return Sign(payload, s.KeyFor(sub))
}
