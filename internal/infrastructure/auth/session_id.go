package auth

import (
	"encoding/hex"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"
)

// NewSessionID returns a fresh random session identifier.
func NewSessionID() string {
	return uuid.NewString()
}

// ValidSessionID reports whether sid looks like an id from NewSessionID.
func ValidSessionID(sid string) bool {
	_, err := uuid.Parse(sid)
	return err == nil && len(sid) == 36
}

// HashSessionID returns the storage key for sid. Stores never see the raw
// cookie value.
func HashSessionID(sid string) string {
	sum := blake2b.Sum256([]byte(sid))
	return hex.EncodeToString(sum[:])
}

// Fingerprint returns a short, non-reversible tag for sid, used in logs.
func Fingerprint(sid string) string {
	if sid == "" {
		return ""
	}
	return HashSessionID(sid)[:12]
}
