package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/ridepay/internal/clock"
	"github.com/smallbiznis/ridepay/internal/config"
	"github.com/smallbiznis/ridepay/internal/dunning/domain"
	recorddomain "github.com/smallbiznis/ridepay/internal/record/domain"
	pkgdb "github.com/smallbiznis/ridepay/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Repo    domain.Repository
	Records recorddomain.Repository
	Policy  *config.DunningPolicyHolder
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	repo    domain.Repository
	records recorddomain.Repository
	policy  *config.DunningPolicyHolder
}

func New(p Params) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("dunning.service"),
		genID:   p.GenID,
		clock:   p.Clock,
		repo:    p.Repo,
		records: p.Records,
		policy:  p.Policy,
	}
}

func (s *Service) Add(ctx context.Context, recordID snowflake.ID, channel domain.Channel) (domain.Dunning, error) {
	if recordID == 0 {
		return domain.Dunning{}, domain.ErrInvalidRecord
	}

	now := s.clock.Now()
	dunning := domain.Dunning{ID: s.genID.Generate(), CreatedAt: now}
	ref := recordID
	switch channel {
	case domain.ChannelRetry:
		dunning.RecordRetryID = &ref
	case domain.ChannelCall:
		dunning.RecordCallID = &ref
	case domain.ChannelMessage:
		dunning.RecordMessageID = &ref
	default:
		return domain.Dunning{}, domain.ErrInvalidChannel
	}

	err := pkgdb.NewUnitOfWork().
		Add(func(tx *gorm.DB) error {
			return s.repo.Insert(ctx, tx, &dunning)
		}).
		Add(func(tx *gorm.DB) error {
			return s.records.MarkDunned(ctx, tx, recordID, now)
		}).
		Commit(ctx, s.db)
	if err != nil {
		return domain.Dunning{}, err
	}

	s.log.Debug("dunning added",
		zap.String("record_id", recordID.String()),
		zap.String("channel", string(channel)),
	)
	return dunning, nil
}

func (s *Service) List(ctx context.Context, recordID snowflake.ID) ([]domain.Dunning, error) {
	items, err := s.repo.ListByRecord(ctx, s.db, recordID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Dunning, 0, len(items))
	for _, item := range items {
		if item != nil {
			out = append(out, *item)
		}
	}
	return out, nil
}

func (s *Service) ShouldMessage(ctx context.Context, recordID snowflake.ID) (bool, error) {
	policy := s.policy.Get()

	if policy.MaxMessages > 0 {
		total, err := s.repo.CountSince(ctx, s.db, recordID, domain.ChannelMessage, time.Time{})
		if err != nil {
			return false, err
		}
		if total >= int64(policy.MaxMessages) {
			return false, nil
		}
	}

	if policy.MessageCooldown > 0 {
		since := s.clock.Now().Add(-policy.MessageCooldown)
		recent, err := s.repo.CountSince(ctx, s.db, recordID, domain.ChannelMessage, since)
		if err != nil {
			return false, err
		}
		if recent > 0 {
			return false, nil
		}
	}
	return true, nil
}

func (s *Service) RetryEnabled() bool {
	return s.policy.Get().RetryEnabled
}
