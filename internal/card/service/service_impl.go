package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/ridepay/internal/card/domain"
	"github.com/smallbiznis/ridepay/internal/clock"
	"github.com/smallbiznis/ridepay/internal/config"
	gatewaydomain "github.com/smallbiznis/ridepay/internal/gateway/domain"
	"github.com/smallbiznis/ridepay/internal/ratelimit"
	recorddomain "github.com/smallbiznis/ridepay/internal/record/domain"
	pkgdb "github.com/smallbiznis/ridepay/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Config  config.Config
	Repo    domain.Repository
	Records recorddomain.Repository
	Gateway gatewaydomain.Service
	Locks   ratelimit.Mutex
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	repo    domain.Repository
	records recorddomain.Repository
	gateway gatewaydomain.Service
	locks   ratelimit.Mutex
	sealer  *sealer
}

func New(p Params) (domain.Service, error) {
	sealer, err := newSealer(p.Config.Card.TokenKey)
	if err != nil {
		return nil, fmt.Errorf("card token key: %w", err)
	}
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("card.service"),
		genID:   p.GenID,
		clock:   p.Clock,
		repo:    p.Repo,
		records: p.Records,
		gateway: p.Gateway,
		locks:   p.Locks,
		sealer:  sealer,
	}, nil
}

func (s *Service) List(ctx context.Context, userID string, revealToken bool) ([]domain.Card, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, domain.ErrInvalidUserID
	}

	items, err := s.repo.List(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}

	cards := make([]domain.Card, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		card, err := s.present(*item, revealToken)
		if err != nil {
			return nil, err
		}
		cards = append(cards, card)
	}
	return cards, nil
}

func (s *Service) Get(ctx context.Context, userID string, cardID snowflake.ID, revealToken bool) (domain.Card, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.Card{}, domain.ErrInvalidUserID
	}

	item, err := s.repo.FindByID(ctx, s.db, userID, cardID)
	if err != nil {
		return domain.Card{}, err
	}
	if item == nil {
		return domain.Card{}, domain.ErrNotFound
	}
	return s.present(*item, revealToken)
}

func (s *Service) Register(ctx context.Context, userID string, details gatewaydomain.CardDetails) (domain.Card, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.Card{}, domain.ErrInvalidUserID
	}

	unlock, err := s.locks.Lock(ctx, lockKey(userID))
	if err != nil {
		return domain.Card{}, err
	}
	defer unlock()

	token, err := s.gateway.CreateBillingToken(ctx, details, nil)
	if err != nil {
		return domain.Card{}, err
	}

	sealed, err := s.sealer.Seal(token.Token)
	if err != nil {
		return domain.Card{}, err
	}

	now := s.clock.Now()
	card := domain.Card{
		ID:         s.genID.Generate(),
		UserID:     userID,
		BillingKey: sealed,
		CardName:   token.CardLabel,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		exists, err := s.repo.ExistsByName(ctx, tx, userID, card.CardName)
		if err != nil {
			return err
		}
		if exists {
			return domain.ErrDuplicateCard
		}

		count, err := s.repo.Count(ctx, tx, userID)
		if err != nil {
			return err
		}
		card.OrderBy = int(count)
		return s.repo.Insert(ctx, tx, &card)
	})
	if pkgdb.IsDuplicateKeyErr(err) {
		err = domain.ErrDuplicateCard
	}
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateCard) {
			s.discardToken(ctx, userID, token.Token)
		}
		return domain.Card{}, err
	}

	s.log.Info("card registered",
		zap.String("user_id", userID),
		zap.String("card_id", card.ID.String()),
		zap.Int("order_by", card.OrderBy),
	)
	card.BillingKey = ""
	return card, nil
}

func (s *Service) Revoke(ctx context.Context, userID string, card domain.Card) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.ErrInvalidUserID
	}

	unlock, err := s.locks.Lock(ctx, lockKey(userID))
	if err != nil {
		return err
	}
	defer unlock()

	var token string
	work := pkgdb.NewUnitOfWork().
		Add(func(tx *gorm.DB) error {
			stored, err := s.repo.FindByID(ctx, tx, userID, card.ID)
			if err != nil {
				return err
			}
			if stored == nil {
				return domain.ErrNotFound
			}
			token, err = s.sealer.Open(stored.BillingKey)
			if err != nil {
				return fmt.Errorf("%w: %v", domain.ErrTokenUnavailable, err)
			}
			_, err = s.repo.Delete(ctx, tx, userID, card.ID)
			return err
		}).
		Add(func(*gorm.DB) error {
			return s.gateway.RevokeToken(ctx, token, nil)
		}).
		Add(func(tx *gorm.DB) error {
			return s.reindex(ctx, tx, userID)
		})

	if err := work.Commit(ctx, s.db); err != nil {
		return err
	}

	s.log.Info("card revoked", zap.String("user_id", userID), zap.String("card_id", card.ID.String()))
	return nil
}

func (s *Service) Reorder(ctx context.Context, userID string, cardIDs []string) ([]domain.Card, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, domain.ErrInvalidUserID
	}
	if cardIDs == nil {
		return nil, domain.ErrInvalidCardIDs
	}

	now := s.clock.Now()
	work := pkgdb.NewUnitOfWork()
	for i, raw := range cardIDs {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			return nil, domain.ErrInvalidCardIDs
		}
		id, err := snowflake.ParseString(raw)
		if err != nil {
			continue
		}
		orderBy := i
		work.Add(func(tx *gorm.DB) error {
			return s.repo.UpdateOrder(ctx, tx, userID, id, orderBy, now)
		})
	}
	work.Add(func(tx *gorm.DB) error {
		return s.reindex(ctx, tx, userID)
	})

	if err := work.Commit(ctx, s.db); err != nil {
		return nil, err
	}
	return s.List(ctx, userID, false)
}

func (s *Service) CheckReady(ctx context.Context, userID string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.ErrInvalidUserID
	}

	var cards, unpaid int64
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		cards, err = s.repo.Count(gctx, s.db, userID)
		return err
	})
	g.Go(func() error {
		var err error
		unpaid, err = s.records.CountUnpaidByUser(gctx, s.db, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	if cards <= 0 {
		return domain.ErrNoAvailableCard
	}
	if unpaid > 0 {
		return domain.ErrHasUnpaidRecord
	}
	return nil
}

// discardToken revokes a token issued for a card that was not stored.
func (s *Service) discardToken(ctx context.Context, userID, token string) {
	if err := s.gateway.RevokeToken(ctx, token, nil); err != nil {
		s.log.Warn("cannot revoke unused billing key", zap.String("user_id", userID), zap.Error(err))
		return
	}
	s.log.Info("unused billing key revoked", zap.String("user_id", userID))
}

// reindex rewrites orderBy to 0..n-1 keeping the current relative order.
func (s *Service) reindex(ctx context.Context, tx *gorm.DB, userID string) error {
	items, err := s.repo.List(ctx, tx, userID)
	if err != nil {
		return err
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].OrderBy < items[j].OrderBy
	})

	now := s.clock.Now()
	for i, item := range items {
		if item.OrderBy == i {
			continue
		}
		if err := s.repo.UpdateOrder(ctx, tx, userID, item.ID, i, now); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) present(card domain.Card, revealToken bool) (domain.Card, error) {
	if !revealToken {
		card.BillingKey = ""
		return card, nil
	}
	token, err := s.sealer.Open(card.BillingKey)
	if err != nil {
		s.log.Error("cannot open billing key", zap.String("card_id", card.ID.String()), zap.Error(err))
		return domain.Card{}, errors.Join(domain.ErrTokenUnavailable, err)
	}
	card.BillingKey = token
	return card, nil
}

func lockKey(userID string) string {
	return "ridepay:lock:cards:" + userID
}
