package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"saldo/internal/cache"
	"saldo/internal/core"
	"saldo/internal/log"
	"saldo/internal/storage"
)

var (
	ErrInvalidCredentials = fmt.Errorf("%w: invalid email or password", core.ErrAuth)
	ErrInvalidToken       = fmt.Errorf("%w: invalid or expired token", core.ErrAuth)
)

const (
	minPasswordLen  = 6
	maxPasswordLen  = 72 // bcrypt limit
	tokenBytes      = 32
	maxLiveSessions = 10000
)

// Token is an issued bearer token.
type Token struct {
	Value     string
	UserID    string
	ExpiresAt time.Time
}

// AuthService registers users and issues bearer tokens. Tokens live only in
// memory and are lost on restart.
type AuthService struct {
	users  storage.UserStore
	tokens *cache.LRUCache[string]
	ttl    time.Duration
	now    func() time.Time
	cost   int
	logger *log.Logger
}

type AuthOption func(*AuthService)

// WithAuthClock replaces time.Now for token expiry.
func WithAuthClock(now func() time.Time) AuthOption {
	return func(s *AuthService) { s.now = now }
}

// WithBcryptCost overrides bcrypt.DefaultCost.
func WithBcryptCost(cost int) AuthOption {
	return func(s *AuthService) { s.cost = cost }
}

func NewAuthService(users storage.UserStore, ttl time.Duration, logger *log.Logger, opts ...AuthOption) *AuthService {
	if logger == nil {
		logger = log.Discard()
	}
	s := &AuthService{
		users:  users,
		ttl:    ttl,
		now:    time.Now,
		cost:   bcrypt.DefaultCost,
		logger: logger.WithComponent(log.ComponentAuth),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.tokens = cache.NewLRUCache[string](maxLiveSessions, ttl).WithClock(s.now)
	return s
}

// Tokens exposes the token cache so it can be registered for cleanup.
func (s *AuthService) Tokens() *cache.LRUCache[string] {
	return s.tokens
}

// Register creates an account and logs it in.
func (s *AuthService) Register(ctx context.Context, name, email, password string) (Token, error) {
	email = storage.NormalizeEmail(email)
	if !strings.Contains(email, "@") {
		return Token{}, fmt.Errorf("%w: invalid email", core.ErrValidation)
	}
	if len(password) < minPasswordLen || len(password) > maxPasswordLen {
		return Token{}, fmt.Errorf("%w: password must be %d to %d characters", core.ErrValidation, minPasswordLen, maxPasswordLen)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return Token{}, fmt.Errorf("hash password: %w", err)
	}
	u, err := s.users.CreateUser(ctx, storage.User{
		Name:         strings.TrimSpace(name),
		Email:        email,
		PasswordHash: string(hash),
	})
	if err != nil {
		return Token{}, err
	}

	s.logger.InfoContext(ctx, "User registered", log.FieldOperation, log.OpRegister, log.FieldUserID, u.ID)
	return s.issue(u.ID)
}

// Login checks the credentials and issues a new token.
func (s *AuthService) Login(ctx context.Context, email, password string) (Token, error) {
	u, err := s.users.UserByEmail(ctx, email)
	if errors.Is(err, core.ErrNotFound) {
		return Token{}, ErrInvalidCredentials
	}
	if err != nil {
		return Token{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		s.logger.WarnContext(ctx, "Login rejected", log.FieldOperation, log.OpLogin, log.FieldUserID, u.ID)
		return Token{}, ErrInvalidCredentials
	}

	s.logger.InfoContext(ctx, "User logged in", log.FieldOperation, log.OpLogin, log.FieldUserID, u.ID)
	return s.issue(u.ID)
}

// Authenticate returns the user a token belongs to.
func (s *AuthService) Authenticate(token string) (string, error) {
	if token == "" {
		return "", ErrInvalidToken
	}
	userID, ok := s.tokens.Get(token)
	if !ok {
		return "", ErrInvalidToken
	}
	return userID, nil
}

// Revoke forgets a token.
func (s *AuthService) Revoke(token string) {
	s.tokens.Delete(token)
}

func (s *AuthService) issue(userID string) (Token, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return Token{}, fmt.Errorf("generate token: %w", err)
	}
	t := Token{
		Value:     hex.EncodeToString(buf),
		UserID:    userID,
		ExpiresAt: s.now().Add(s.ttl),
	}
	s.tokens.SetUntil(t.Value, userID, t.ExpiresAt)
	return t, nil
}
