package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Ananth-NQI/farmline-ivr/internal/models"
)

// SessionTTL is how long an idle call session survives in any store
const SessionTTL = time.Hour

// ErrSessionNotFound is returned when a key is missing or expired
var ErrSessionNotFound = errors.New("session not found")

// SessionStore defines the interface for call session storage
type SessionStore interface {
	// Get returns the live session stored under key, or ErrSessionNotFound
	Get(ctx context.Context, key string) (*models.CallSession, error)

	// Set stores the session under key, replacing any previous value
	Set(ctx context.Context, key string, session *models.CallSession, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// DeleteExpired purges sessions past their expiry and returns how many were removed
	DeleteExpired(ctx context.Context) (int64, error)

	// Ping reports whether the backing store is reachable
	Ping(ctx context.Context) error
}

func encodeSession(session *models.CallSession) ([]byte, error) {
	if session == nil {
		return nil, errors.New("nil session")
	}
	data, err := json.Marshal(session)
	if err != nil {
		return nil, fmt.Errorf("encode session: %w", err)
	}
	return data, nil
}

func decodeSession(data []byte) (*models.CallSession, error) {
	var session models.CallSession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &session, nil
}
