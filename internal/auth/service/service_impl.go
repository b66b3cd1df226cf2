package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/smallbiznis/ridepay/internal/auth/domain"
	"github.com/smallbiznis/ridepay/internal/cache"
	"github.com/smallbiznis/ridepay/internal/clock"
	"github.com/smallbiznis/ridepay/internal/config"
	coreservicedomain "github.com/smallbiznis/ridepay/internal/coreservice/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const defaultSessionTTL = 30 * time.Second

type Params struct {
	fx.In

	Config   config.Config
	Log      *zap.Logger
	Clock    clock.Clock
	Accounts coreservicedomain.Accounts
}

type Service struct {
	log      *zap.Logger
	clock    clock.Clock
	accounts coreservicedomain.Accounts
	sessions cache.Cache[string, coreservicedomain.User]
	ttl      time.Duration

	secret      []byte
	subject     string
	maxLifetime time.Duration
}

func New(p Params) domain.Service {
	ttl := p.Config.Internal.SessionCacheTTL
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	maxLifetime := p.Config.Internal.MaxLifetime
	if maxLifetime <= 0 {
		maxLifetime = 6 * time.Hour
	}
	return &Service{
		log:         p.Log.Named("auth.service"),
		clock:       p.Clock,
		accounts:    p.Accounts,
		sessions:    cache.NewTTLCache[string, coreservicedomain.User](),
		ttl:         ttl,
		secret:      []byte(p.Config.Internal.Secret),
		subject:     p.Config.Internal.Subject,
		maxLifetime: maxLifetime,
	}
}

func (s *Service) Authenticate(ctx context.Context, sessionID string) (coreservicedomain.User, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return coreservicedomain.User{}, domain.ErrMissingToken
	}
	if user, ok := s.sessions.Get(sessionID); ok {
		return user, nil
	}

	user, err := s.accounts.Authorize(ctx, sessionID)
	if err != nil {
		var upstream *coreservicedomain.UpstreamError
		if errors.Is(err, coreservicedomain.ErrUnauthorized) ||
			(errors.As(err, &upstream) && upstream.StatusCode >= 400 && upstream.StatusCode < 500) {
			return coreservicedomain.User{}, domain.ErrInvalidSession
		}
		return coreservicedomain.User{}, err
	}

	s.sessions.Set(sessionID, user, s.ttl)
	return user, nil
}

func (s *Service) Forget(sessionID string) {
	s.sessions.Delete(strings.TrimSpace(sessionID))
}

// VerifyInternal accepts HS256 tokens for the configured subject whose
// audience is an email address and whose lifetime is bounded.
func (s *Service) VerifyInternal(_ context.Context, raw string) (domain.Internal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return domain.Internal{}, domain.ErrMissingToken
	}
	if len(s.secret) == 0 {
		return domain.Internal{}, domain.ErrInternalAuthDisabled
	}

	claims := jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithSubject(s.subject),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.clock.Now),
	)
	if err != nil {
		s.log.Debug("internal token rejected", zap.Error(err))
		return domain.Internal{}, domain.ErrInvalidInternalToken
	}

	if claims.Issuer == "" || claims.IssuedAt == nil || len(claims.Audience) != 1 {
		return domain.Internal{}, domain.ErrInvalidInternalToken
	}
	audience := claims.Audience[0]
	if _, err := mail.ParseAddress(audience); err != nil {
		return domain.Internal{}, domain.ErrInvalidInternalToken
	}
	if claims.ExpiresAt.Sub(claims.IssuedAt.Time) > s.maxLifetime {
		return domain.Internal{}, domain.ErrInvalidInternalToken
	}

	return domain.Internal{
		Issuer:    claims.Issuer,
		Subject:   claims.Subject,
		Audience:  audience,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
