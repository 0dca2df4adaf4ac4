package db

import (
	"crypto/rand"
	"encoding/hex"
)

// NewClientRef mints a stable correlation id for a note created locally.
// It survives the temp-id to server-id substitution, so outbox entries and
// cache rows can always be matched without comparing content.
func NewClientRef() (string, error) {
	bytes := make([]byte, 4) // 8 hex characters
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
