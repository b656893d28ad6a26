package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"sync/atomic"
)

// CredentialHolder publishes the current credential snapshot. Readers get
// a pointer to an immutable value; rotation swaps the pointer.
type CredentialHolder struct {
	current atomic.Pointer[Credentials]
}

func (h *CredentialHolder) Load() (Credentials, bool) {
	c := h.current.Load()
	if c == nil {
		return Credentials{}, false
	}
	return *c, true
}

func (h *CredentialHolder) Store(c Credentials) {
	h.current.Store(&c)
}

// Sign returns hex(HMAC-SHA256(secret, orderID + "|" + paymentID)), the
// signature a gateway hands the client after a successful checkout.
func Sign(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks signature against Sign in constant time.
func VerifySignature(secret, orderID, paymentID, signature string) bool {
	if secret == "" || signature == "" {
		return false
	}
	expected := Sign(secret, orderID, paymentID)
	return hmac.Equal([]byte(expected), []byte(signature))
}
