// Package webhook authenticates processor notifications before they can
// drive a settlement.
package webhook

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"strings"
)

// Gate checks HMAC-SHA512 signatures computed over the raw request body.
type Gate struct {
	secret []byte
}

func NewGate(secret string) *Gate {
	return &Gate{secret: []byte(secret)}
}

// Sign returns the hex signature the processor is expected to send for body.
func (g *Gate) Sign(body []byte) string {
	mac := hmac.New(sha512.New, g.secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Accept reports whether signature matches body. An unconfigured secret
// accepts nothing.
func (g *Gate) Accept(body []byte, signature string) bool {
	if len(g.secret) == 0 || signature == "" {
		return false
	}
	expected := g.Sign(body)
	return hmac.Equal([]byte(strings.ToLower(strings.TrimSpace(signature))), []byte(expected))
}

// SecretHash checks processors that authenticate notifications by echoing
// a shared secret in a header instead of signing the body, as Flutterwave
// does with verif-hash.
type SecretHash struct {
	secret []byte
}

func NewSecretHash(secret string) *SecretHash {
	return &SecretHash{secret: []byte(secret)}
}

// Accept reports whether header carries the shared secret. An unconfigured
// secret accepts nothing.
func (h *SecretHash) Accept(header string) bool {
	if len(h.secret) == 0 || header == "" {
		return false
	}
	return hmac.Equal([]byte(strings.TrimSpace(header)), h.secret)
}
