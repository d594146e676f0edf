package session

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"saldo/internal/core"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func TestTokenWithoutLogin(t *testing.T) {
	s := New()
	if _, err := s.Token(); !errors.Is(err, ErrNoSession) || !errors.Is(err, core.ErrAuth) {
		t.Fatalf("expected ErrNoSession wrapping ErrAuth, got %v", err)
	}
	if s.Authenticated() {
		t.Fatal("should not be authenticated")
	}
}

func TestLoginLogout(t *testing.T) {
	s := New()
	if err := s.Login("abc", time.Time{}); err != nil {
		t.Fatal(err)
	}
	tok, err := s.Token()
	if err != nil || tok.AccessToken != "abc" || tok.Type() != "Bearer" {
		t.Fatalf("unexpected token %+v, %v", tok, err)
	}
	if err := s.Logout(); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Token(); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession after logout, got %v", err)
	}
	if err := s.Login("", time.Time{}); !errors.Is(err, core.ErrAuth) {
		t.Fatalf("empty token should be rejected, got %v", err)
	}
}

func TestExpiryTearsDown(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	s := New(WithClock(clock.now))
	if err := s.Login("abc", clock.t.Add(time.Hour)); err != nil {
		t.Fatal(err)
	}
	if !s.Authenticated() {
		t.Fatal("expected authenticated")
	}

	clock.t = clock.t.Add(2 * time.Hour)
	if _, err := s.Token(); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
	if _, err := s.Token(); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expired session should be cleared, got %v", err)
	}
}

func TestFileStorePersistsAcrossSessions(t *testing.T) {
	store := FileStore{Path: filepath.Join(t.TempDir(), "nested", "session.json")}

	first := New(WithStore(store))
	if err := first.Restore(); err != nil {
		t.Fatalf("restore with no file: %v", err)
	}
	if first.Authenticated() {
		t.Fatal("nothing to restore yet")
	}
	if err := first.Login("persisted", time.Time{}); err != nil {
		t.Fatal(err)
	}

	second := New(WithStore(store))
	if err := second.Restore(); err != nil {
		t.Fatal(err)
	}
	tok, err := second.Token()
	if err != nil || tok.AccessToken != "persisted" {
		t.Fatalf("unexpected %+v, %v", tok, err)
	}

	if err := second.Logout(); err != nil {
		t.Fatal(err)
	}
	third := New(WithStore(store))
	if err := third.Restore(); err != nil || third.Authenticated() {
		t.Fatalf("logout should clear the file: %v", err)
	}
}

func TestRestoreSkipsExpiredToken(t *testing.T) {
	store := FileStore{Path: filepath.Join(t.TempDir(), "session.json")}
	clock := &fakeClock{t: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)}
	if err := New(WithStore(store)).Login("old", clock.t.Add(-time.Minute)); err != nil {
		t.Fatal(err)
	}
	s := New(WithStore(store), WithClock(clock.now))
	if err := s.Restore(); err != nil || s.Authenticated() {
		t.Fatalf("expired token restored: %v", err)
	}
}
