// Package session holds the bearer credential of the signed-in user. The
// ledger client reads it through oauth2.TokenSource, so every request is
// authenticated by construction.
package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"saldo/internal/core"
)

var (
	ErrNoSession = fmt.Errorf("%w: not signed in", core.ErrAuth)
	ErrExpired   = fmt.Errorf("%w: session expired", core.ErrAuth)
)

// Session is process-wide credential state: set at login, cleared at logout
// or on first use after expiry.
type Session struct {
	mu    sync.RWMutex
	token *oauth2.Token
	now   func() time.Time
	store Store
}

// Store persists a session token between process runs.
type Store interface {
	Load() (*oauth2.Token, error)
	Save(*oauth2.Token) error
	Clear() error
}

type Option func(*Session)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// WithStore persists every login and logout through store.
func WithStore(store Store) Option {
	return func(s *Session) { s.store = store }
}

func New(opts ...Option) *Session {
	s := &Session{now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Restore loads a previously persisted token, if any. A missing or expired
// token leaves the session empty.
func (s *Session) Restore() error {
	if s.store == nil {
		return nil
	}
	tok, err := s.store.Load()
	if err != nil {
		if errors.Is(err, ErrNoSession) {
			return nil
		}
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if tok == nil || tok.AccessToken == "" || s.expired(tok) {
		return nil
	}
	s.token = tok
	return nil
}

// Login starts a session. A zero expiry never expires.
func (s *Session) Login(accessToken string, expiry time.Time) error {
	if accessToken == "" {
		return fmt.Errorf("%w: empty token", core.ErrAuth)
	}
	tok := &oauth2.Token{AccessToken: accessToken, TokenType: "Bearer", Expiry: expiry}

	s.mu.Lock()
	s.token = tok
	s.mu.Unlock()

	if s.store != nil {
		if err := s.store.Save(tok); err != nil {
			return fmt.Errorf("persist session: %w", err)
		}
	}
	return nil
}

// Logout tears the session down.
func (s *Session) Logout() error {
	s.mu.Lock()
	s.token = nil
	s.mu.Unlock()

	if s.store != nil {
		return s.store.Clear()
	}
	return nil
}

// Authenticated reports whether a usable token is held.
func (s *Session) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token != nil && !s.expired(s.token)
}

// Token implements oauth2.TokenSource. An expired token is dropped so the
// session reads as signed out afterwards.
func (s *Session) Token() (*oauth2.Token, error) {
	s.mu.RLock()
	tok := s.token
	s.mu.RUnlock()

	if tok == nil {
		return nil, ErrNoSession
	}
	if s.expired(tok) {
		s.mu.Lock()
		if s.token == tok {
			s.token = nil
		}
		s.mu.Unlock()
		if s.store != nil {
			_ = s.store.Clear()
		}
		return nil, ErrExpired
	}
	cp := *tok
	return &cp, nil
}

func (s *Session) expired(tok *oauth2.Token) bool {
	return !tok.Expiry.IsZero() && !s.now().Before(tok.Expiry)
}
