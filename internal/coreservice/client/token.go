package client

import (
	"errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const tokenRefreshSkew = 10 * time.Second

// tokenSigner issues HS256 service tokens and reuses one until it expires.
type tokenSigner struct {
	key      []byte
	subject  string
	issuer   string
	audience string
	ttl      time.Duration
	now      func() time.Time

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

func newTokenSigner(key, subject, issuer, audience string) *tokenSigner {
	return &tokenSigner{
		key:      []byte(key),
		subject:  subject,
		issuer:   issuer,
		audience: audience,
		ttl:      time.Hour,
		now:      time.Now,
	}
}

func (s *tokenSigner) Token() (string, error) {
	if len(s.key) == 0 {
		return "", errors.New("service token key is empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if s.token != "" && now.Add(tokenRefreshSkew).Before(s.expiresAt) {
		return s.token, nil
	}

	expiresAt := now.Add(s.ttl)
	claims := jwt.RegisteredClaims{
		Subject:   s.subject,
		Issuer:    s.issuer,
		Audience:  jwt.ClaimStrings{s.audience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return "", err
	}
	s.token = signed
	s.expiresAt = expiresAt
	return signed, nil
}
