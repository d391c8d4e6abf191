package models

import (
	"time"

	"github.com/google/uuid"
)

// Session scopes cached query results to one conversational client.
type Session struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	LastSeen  time.Time `json:"lastSeen"`
}

// NewSession creates a session with a fresh random identity.
func NewSession() *Session {
	now := time.Now().UTC()
	return &Session{
		ID:        uuid.NewString(),
		CreatedAt: now,
		LastSeen:  now,
	}
}

// Touch updates the last activity timestamp.
func (s *Session) Touch() {
	s.LastSeen = time.Now().UTC()
}
