package session

import (
	"context"
	"time"
)

// Flash categories understood by the templates.
const (
	FlashSuccess = "success"
	FlashInfo    = "info"
	FlashWarning = "warning"
	FlashDanger  = "danger"
)

// Flash is a one-shot message shown on the next rendered page.
type Flash struct {
	Category string `json:"category"`
	Message  string `json:"message"`
}

// Session is the server-side state behind a session cookie. UserID is zero
// for anonymous visitors.
type Session struct {
	ID        string    `json:"id"`
	UserID    int64     `json:"user_id"`
	CSRFToken string    `json:"csrf_token"`
	Flashes   []Flash   `json:"flashes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// New returns an anonymous session valid for ttl.
func New(now time.Time, ttl time.Duration) (*Session, error) {
	id, err := GenerateID()
	if err != nil {
		return nil, err
	}
	return &Session{ID: id, CreatedAt: now, ExpiresAt: now.Add(ttl)}, nil
}

// Authenticated reports whether a user is logged in.
func (s *Session) Authenticated() bool { return s.UserID != 0 }

// Expired reports whether the session is past its expiry at now.
func (s *Session) Expired(now time.Time) bool { return !now.Before(s.ExpiresAt) }

func (s *Session) AddFlash(category, message string) {
	s.Flashes = append(s.Flashes, Flash{Category: category, Message: message})
}

// PopFlashes returns and clears the pending flash messages.
func (s *Session) PopFlashes() []Flash {
	f := s.Flashes
	s.Flashes = nil
	return f
}

// Store defines how sessions are stored and retrieved. Get returns (nil, nil)
// for unknown or expired sessions.
type Store interface {
	Create(ctx context.Context, s Session) error
	Get(ctx context.Context, sessionID string) (*Session, error)
	Update(ctx context.Context, s Session) error
	Delete(ctx context.Context, sessionID string) error
}
