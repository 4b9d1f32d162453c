package service

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/layer-3/burner/core"
	"github.com/layer-3/burner/ports"
)

// SessionService issues and validates browser session tokens
type SessionService struct {
	tokenizer ports.Tokenizer
	ttl       time.Duration
	now       func() time.Time
}

// NewSessionService creates a new session service
func NewSessionService(tokenizer ports.Tokenizer, ttl time.Duration) *SessionService {
	return &SessionService{
		tokenizer: tokenizer,
		ttl:       ttl,
		now:       time.Now,
	}
}

// Start opens a new session and returns it with its token
func (s *SessionService) Start() (*core.Session, string, error) {
	now := s.now()
	session := &core.Session{
		ID:        uuid.New().String(),
		IssuedAt:  now,
		ExpiresAt: now.Add(s.ttl),
	}

	token, err := s.tokenizer.SessionToToken(session)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create session token: %w", err)
	}

	return session, token, nil
}

// Resume validates a session token
func (s *SessionService) Resume(token string) (*core.Session, error) {
	session, err := s.tokenizer.TokenToSession(token)
	if err != nil {
		return nil, core.Wrap(core.ErrInvalidSession, err)
	}

	if !session.ExpiresAt.IsZero() && s.now().After(session.ExpiresAt) {
		return nil, core.Wrap(core.ErrInvalidSession, core.ErrTokenExpired)
	}

	return session, nil
}

// TTL is how long a session token stays valid
func (s *SessionService) TTL() time.Duration {
	return s.ttl
}
