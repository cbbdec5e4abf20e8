package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// CancelTokenLength is the number of hex characters in a cancel token.
const CancelTokenLength = 32

// CancelTokens mints and verifies the holder-of-link credential embedded in
// guest email links. A token is a truncated HMAC-SHA256 over the RSVP id and
// email, so it can always be recomputed and needs no storage. Changing the
// secret invalidates every outstanding link.
type CancelTokens struct {
	secret []byte
}

func NewCancelTokens(secret string) *CancelTokens {
	return &CancelTokens{secret: []byte(secret)}
}

// Mint returns the token for (rsvpID, email). Same inputs, same token.
func (t *CancelTokens) Mint(rsvpID, email string) string {
	mac := hmac.New(sha256.New, t.secret)
	mac.Write([]byte(rsvpID))
	mac.Write([]byte{0})
	mac.Write([]byte(email))
	return hex.EncodeToString(mac.Sum(nil))[:CancelTokenLength]
}

// Verify reports whether token is the one minted for (rsvpID, email).
// Malformed input yields false.
func (t *CancelTokens) Verify(token, rsvpID, email string) bool {
	if len(token) != CancelTokenLength || rsvpID == "" {
		return false
	}
	return hmac.Equal([]byte(token), []byte(t.Mint(rsvpID, email)))
}
