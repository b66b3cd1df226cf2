// Package centercoin grants and reclaims the ride reward balance kept by the
// accounts service. Every call is best-effort.
package centercoin

import (
	"context"
	"math"

	"github.com/smallbiznis/ridepay/internal/config"
	coreservicedomain "github.com/smallbiznis/ridepay/internal/coreservice/domain"
	"github.com/smallbiznis/ridepay/internal/errtrack"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const defaultRatio = 0.1

type Rewarder interface {
	// Give credits floor(amount*ratio) for a paid charge.
	Give(ctx context.Context, userID string, amount int64, message string)
	// Take reclaims floor(refunded*ratio) after a refund.
	Take(ctx context.Context, userID string, refunded int64, message string)
}

type Params struct {
	fx.In

	Config   config.Config
	Log      *zap.Logger
	Accounts coreservicedomain.Accounts
	Tracker  errtrack.Reporter
}

type Service struct {
	enabled  bool
	ratio    float64
	log      *zap.Logger
	accounts coreservicedomain.Accounts
	tracker  errtrack.Reporter
}

func New(p Params) Rewarder {
	ratio := p.Config.Centercoin.Ratio
	if ratio <= 0 || ratio > 1 {
		ratio = defaultRatio
	}
	return &Service{
		enabled:  p.Config.Centercoin.Enabled,
		ratio:    ratio,
		log:      p.Log.Named("centercoin.service"),
		accounts: p.Accounts,
		tracker:  p.Tracker,
	}
}

func (s *Service) Give(ctx context.Context, userID string, amount int64, message string) {
	reward := s.reward(amount)
	if !s.enabled || reward <= 0 {
		return
	}
	if err := s.accounts.AddCentercoin(ctx, userID, reward, message); err != nil {
		eventID := s.tracker.Capture(ctx, err, zap.String("user_id", userID))
		s.log.Info("cannot give centercoin reward", zap.String("user_id", userID), zap.String("event_id", eventID))
		return
	}
	s.log.Info("centercoin reward given", zap.String("user_id", userID), zap.Int64("reward", reward))
}

func (s *Service) Take(ctx context.Context, userID string, refunded int64, message string) {
	reward := s.reward(refunded)
	if !s.enabled || reward <= 0 {
		return
	}
	if err := s.accounts.RemoveCentercoin(ctx, userID, reward, message); err != nil {
		eventID := s.tracker.Capture(ctx, err, zap.String("user_id", userID))
		s.log.Info("cannot take centercoin reward", zap.String("user_id", userID), zap.String("event_id", eventID))
		return
	}
	s.log.Info("centercoin reward taken", zap.String("user_id", userID), zap.Int64("reward", reward))
}

func (s *Service) reward(amount int64) int64 {
	if amount <= 0 {
		return 0
	}
	return int64(math.Floor(float64(amount) * s.ratio))
}

// Disabled never contacts the accounts service.
type Disabled struct{}

func (Disabled) Give(context.Context, string, int64, string) {}
func (Disabled) Take(context.Context, string, int64, string) {}

var Module = fx.Module("centercoin.service",
	fx.Provide(New),
)
