package services

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var ErrBadSecret = errors.New("invalid admin secret")

// AdminGate trades a secret for a short-lived capability token.
type AdminGate interface {
	Login(secret string) (token string, expires time.Time, err error)
	Verify(token string) bool
	Logout(token string)
}

// SecretGate checks the secret against a bcrypt hash and keeps issued
// tokens in memory. With no hash configured every login fails.
type SecretGate struct {
	hash []byte
	ttl  time.Duration
	now  func() time.Time

	mu     sync.Mutex
	tokens map[string]time.Time
}

// NewSecretGate accepts either a precomputed bcrypt hash or a plain secret
// that is hashed once here.
func NewSecretGate(secret, hash string, ttl time.Duration) (*SecretGate, error) {
	g := &SecretGate{ttl: ttl, now: time.Now, tokens: map[string]time.Time{}}
	switch {
	case hash != "":
		if _, err := bcrypt.Cost([]byte(hash)); err != nil {
			return nil, fmt.Errorf("admin secret hash: %w", err)
		}
		g.hash = []byte(hash)
	case secret != "":
		h, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash admin secret: %w", err)
		}
		g.hash = h
	}
	return g, nil
}

func (g *SecretGate) Login(secret string) (string, time.Time, error) {
	if g.hash == nil || bcrypt.CompareHashAndPassword(g.hash, []byte(secret)) != nil {
		return "", time.Time{}, ErrBadSecret
	}
	tok := uuid.NewString()
	exp := g.now().Add(g.ttl)

	g.mu.Lock()
	defer g.mu.Unlock()
	g.tokens[tok] = exp
	return tok, exp, nil
}

func (g *SecretGate) Verify(token string) bool {
	if token == "" {
		return false
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	exp, ok := g.tokens[token]
	if !ok {
		return false
	}
	if !g.now().Before(exp) {
		delete(g.tokens, token)
		return false
	}
	return true
}

func (g *SecretGate) Logout(token string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.tokens, token)
}
