// Handles server side sessions backing issued tokens.

package storage

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/maruel/memoir/internal/docdb"
)

// Session is a sign-in of a user. Tokens reference it by TokenID so that
// signing out invalidates them.
type Session struct {
	docdb.Model
	UserID  int64     `json:"user_id" jsonschema:"description=User who owns this session"`
	TokenID string    `json:"token_id" jsonschema:"description=Random identifier embedded in the token"`
	Created time.Time `json:"created" jsonschema:"description=Session creation timestamp"`
	Expires time.Time `json:"expires" jsonschema:"description=Session expiration timestamp"`
}

// Expired reports whether the session is no longer valid at now.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.Expires)
}

// SessionService handles session management.
type SessionService struct {
	sessions *docdb.Kind[*Session]
	now      func() time.Time
}

// NewSessionService returns a service over sessions.
func NewSessionService(sessions *docdb.Kind[*Session]) *SessionService {
	return &SessionService{sessions: sessions, now: time.Now}
}

// Create starts a session for userID lasting ttl.
func (s *SessionService) Create(userID int64, ttl time.Duration) (*Session, error) {
	if userID == 0 {
		return nil, &ValidationError{Field: "user_id", Err: errUserIDRequired}
	}
	now := s.now().UTC().Truncate(time.Second)
	sess := &Session{
		UserID:  userID,
		TokenID: uuid.NewString(),
		Created: now,
		Expires: now.Add(ttl),
	}
	if err := s.sessions.Add(sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Validate returns the live session with the given token id.
func (s *SessionService) Validate(tokenID string) (*Session, error) {
	if _, err := uuid.Parse(tokenID); err != nil {
		return nil, fmt.Errorf("session: %w", ErrNotFound)
	}
	sess, ok := s.sessions.Query().Filter(docdb.Fields{"token_id": tokenID}).First()
	if !ok {
		return nil, fmt.Errorf("session: %w", ErrNotFound)
	}
	if sess.Expired(s.now()) {
		return nil, ErrSessionExpired
	}
	return sess, nil
}

// Revoke ends the session with the given token id. Unknown ids are ignored.
func (s *SessionService) Revoke(tokenID string) error {
	_, err := s.sessions.RemoveFunc(func(sess *Session) bool { return sess.TokenID == tokenID })
	return err
}

// RevokeAllForUser ends every session of userID and returns how many there were.
func (s *SessionService) RevokeAllForUser(userID int64) (int, error) {
	return s.sessions.RemoveFunc(func(sess *Session) bool { return sess.UserID == userID })
}

// CleanupExpired removes sessions that expired more than olderThan ago.
func (s *SessionService) CleanupExpired(olderThan time.Duration) (int, error) {
	cutoff := s.now().Add(-olderThan)
	return s.sessions.RemoveFunc(func(sess *Session) bool { return sess.Expires.Before(cutoff) })
}

// CountActive returns the number of unexpired sessions.
func (s *SessionService) CountActive() int {
	now := s.now()
	n := 0
	for _, sess := range s.sessions.Query().All() {
		if !sess.Expired(now) {
			n++
		}
	}
	return n
}
