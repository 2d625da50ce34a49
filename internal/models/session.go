package models

import (
	"time"

	"github.com/google/uuid"
)

// Session represents a logged in worker. The whole session travels in a
// signed cookie, nothing is kept server side.
type Session struct {
	SessionID uuid.UUID // UUIDv7, carried as the token ID
	WorkerID  int64     // 0 for the built-in administrator

	IssuedAt  time.Time
	ExpiresAt time.Time
}

// IsExpired returns true if the session has expired.
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}
