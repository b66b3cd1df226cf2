package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/ridepay/internal/paymentkey/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB   *gorm.DB
	Log  *zap.Logger
	Repo domain.Repository
}

type Service struct {
	db   *gorm.DB
	log  *zap.Logger
	repo domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:   p.DB,
		log:  p.Log.Named("paymentkey.service"),
		repo: p.Repo,
	}
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (domain.PaymentKey, error) {
	key, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.PaymentKey{}, err
	}
	if key == nil {
		return domain.PaymentKey{}, domain.ErrNotFound
	}
	return *key, nil
}

func (s *Service) Primary(ctx context.Context) (domain.PaymentKey, error) {
	key, err := s.repo.FindPrimary(ctx, s.db)
	if err != nil {
		return domain.PaymentKey{}, err
	}
	if key == nil {
		return domain.PaymentKey{}, domain.ErrPrimaryNotFound
	}
	return *key, nil
}

func (s *Service) Resolve(ctx context.Context, id *snowflake.ID) (domain.PaymentKey, error) {
	if id == nil || *id == 0 {
		return s.Primary(ctx)
	}
	return s.Get(ctx, *id)
}

func (s *Service) ByFranchise(ctx context.Context, franchiseID string) (domain.PaymentKey, error) {
	franchiseID = strings.TrimSpace(franchiseID)
	if franchiseID == "" {
		return s.Primary(ctx)
	}

	key, err := s.repo.FindByFranchise(ctx, s.db, franchiseID)
	if err != nil {
		return domain.PaymentKey{}, err
	}
	if key == nil {
		s.log.Debug("no franchise payment key, using primary", zap.String("franchise_id", franchiseID))
		return s.Primary(ctx)
	}
	return *key, nil
}

func (s *Service) List(ctx context.Context) ([]domain.PaymentKey, error) {
	items, err := s.repo.List(ctx, s.db)
	if err != nil {
		return nil, err
	}
	keys := make([]domain.PaymentKey, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		keys = append(keys, *item)
	}
	return keys, nil
}
