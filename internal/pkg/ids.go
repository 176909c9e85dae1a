package pkg

import "github.com/google/uuid"

// GenerateConnectionID - returns a fresh identity for an accepted socket.
// Identities are never reused; a reconnecting client gets a new one.
func GenerateConnectionID() string {
	return uuid.NewString()
}

// GenerateGameID - returns an identifier for an archived game record.
func GenerateGameID() string {
	return uuid.NewString()
}
