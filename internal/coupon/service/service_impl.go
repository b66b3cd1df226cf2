package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/ridepay/internal/clock"
	"github.com/smallbiznis/ridepay/internal/coupon/domain"
	coupongroupdomain "github.com/smallbiznis/ridepay/internal/coupongroup/domain"
	"github.com/smallbiznis/ridepay/internal/observability/metrics"
	"github.com/smallbiznis/ridepay/internal/ratelimit"
	pkgdb "github.com/smallbiznis/ridepay/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	outcomeRedeemed = "redeemed"
	outcomeReused   = "reused"
	outcomeExpired  = "expired"
	outcomeFailed   = "failed"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Repo    domain.Repository
	Groups  coupongroupdomain.Service
	Locks   ratelimit.Mutex
	Metrics *metrics.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	repo    domain.Repository
	groups  coupongroupdomain.Service
	locks   ratelimit.Mutex
	metrics *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("coupon.service"),
		genID:   p.GenID,
		clock:   p.Clock,
		repo:    p.Repo,
		groups:  p.Groups,
		locks:   p.Locks,
		metrics: p.Metrics,
	}
}

func (s *Service) Enroll(ctx context.Context, userID string, req domain.EnrollRequest) (domain.Coupon, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.Coupon{}, domain.ErrInvalidUserID
	}

	group, err := s.resolveGroup(ctx, req)
	if err != nil {
		return domain.Coupon{}, err
	}

	unlock, err := s.locks.Lock(ctx, lockKey(userID, group.ID))
	if err != nil {
		return domain.Coupon{}, err
	}
	defer unlock()

	if err := s.checkLimit(ctx, s.db, userID, group); err != nil {
		return domain.Coupon{}, err
	}

	// ONETIME discounts are issued on redemption.
	discount, err := s.groups.IssueDiscount(ctx, group, group.Type == coupongroupdomain.TypeLongTime)
	if err != nil {
		return domain.Coupon{}, err
	}

	now := s.clock.Now()
	props := domain.Properties{OpenAPI: discount}
	var expiredAt *time.Time
	if discount != nil && discount.ExpiredAt != nil {
		expiredAt = discount.ExpiredAt
	}
	if group.Validity != nil {
		at := now.Add(time.Duration(*group.Validity) * time.Second)
		expiredAt = &at
	}

	coupon := domain.Coupon{
		ID:            s.genID.Generate(),
		UserID:        userID,
		CouponGroupID: group.ID,
		Properties:    datatypes.NewJSONType(props),
		ExpiredAt:     expiredAt,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	err = pkgdb.NewUnitOfWork().
		Add(func(tx *gorm.DB) error {
			return s.checkLimit(ctx, tx, userID, group)
		}).
		Add(func(tx *gorm.DB) error {
			return s.repo.Insert(ctx, tx, &coupon)
		}).
		Commit(ctx, s.db)
	if err != nil {
		return domain.Coupon{}, err
	}

	s.log.Info("coupon enrolled",
		zap.String("coupon_id", coupon.ID.String()),
		zap.String("coupon_group_id", group.ID.String()),
		zap.String("user_id", userID),
	)
	coupon.CouponGroup = &group
	return coupon, nil
}

func (s *Service) Redeem(ctx context.Context, coupon domain.Coupon) (domain.Properties, error) {
	group := coupon.CouponGroup
	if group == nil {
		s.metrics.RecordCouponRedemption(ctx, outcomeFailed)
		return domain.Properties{}, domain.ErrInvalidState
	}

	now := s.clock.Now()
	if coupon.Expired(now) {
		s.metrics.RecordCouponRedemption(ctx, outcomeExpired)
		return domain.Properties{}, domain.ErrExpiredCoupon
	}

	props := coupon.Properties.Data()
	var generated *coupongroupdomain.Discount
	if props.Empty() {
		discount, err := s.groups.IssueDiscount(ctx, *group, true)
		if err != nil {
			s.metrics.RecordCouponRedemption(ctx, outcomeFailed)
			return domain.Properties{}, err
		}
		generated = discount
	}

	uow := pkgdb.NewUnitOfWork()
	if group.Type == coupongroupdomain.TypeOneTime && coupon.UsedAt == nil {
		uow.Add(func(tx *gorm.DB) error {
			return s.repo.MarkUsed(ctx, tx, coupon.ID, now)
		})
	}
	if generated != nil {
		props = domain.Properties{OpenAPI: generated}
		uow.Add(func(tx *gorm.DB) error {
			return s.repo.UpdateProperties(ctx, tx, coupon.ID, props, now)
		})
	}
	if err := uow.Commit(ctx, s.db); err != nil {
		s.metrics.RecordCouponRedemption(ctx, outcomeFailed)
		return domain.Properties{}, err
	}

	outcome := outcomeRedeemed
	if generated == nil {
		outcome = outcomeReused
	}
	s.metrics.RecordCouponRedemption(ctx, outcome)
	return props, nil
}

func (s *Service) List(ctx context.Context, userID string, req domain.ListRequest) (domain.ListResponse, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.ListResponse{}, domain.ErrInvalidUserID
	}
	field := strings.TrimSpace(req.OrderBy)
	if field == "" {
		field = "createdAt"
	}
	if _, ok := domain.SortFields[field]; !ok {
		return domain.ListResponse{}, domain.ErrInvalidSortField
	}

	showUsed := true
	if req.ShowUsed != nil {
		showUsed = *req.ShowUsed
	}
	filter := domain.ListFilter{
		UserID:    userID,
		Search:    strings.TrimSpace(req.Search),
		ShowUsed:  showUsed,
		SortField: field,
		SortDesc:  !strings.EqualFold(strings.TrimSpace(req.Sort), "asc"),
	}
	items, total, err := s.repo.List(ctx, s.db, filter, req.Page())
	if err != nil {
		return domain.ListResponse{}, err
	}

	groups := map[snowflake.ID]*coupongroupdomain.CouponGroup{}
	coupons := make([]domain.Coupon, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		coupon := *item
		group, ok := groups[coupon.CouponGroupID]
		if !ok {
			loaded, err := s.groups.Get(ctx, coupon.CouponGroupID)
			if err != nil {
				return domain.ListResponse{}, err
			}
			group = &loaded
			groups[coupon.CouponGroupID] = group
		}
		coupon.CouponGroup = group
		coupons = append(coupons, coupon)
	}
	return domain.ListResponse{Coupons: coupons, Total: total}, nil
}

func (s *Service) Get(ctx context.Context, userID string, couponID snowflake.ID, withGroup bool) (domain.Coupon, error) {
	coupon, err := s.repo.FindByID(ctx, s.db, strings.TrimSpace(userID), couponID)
	if err != nil {
		return domain.Coupon{}, err
	}
	if coupon == nil {
		return domain.Coupon{}, domain.ErrNotFound
	}
	if withGroup {
		group, err := s.groups.Get(ctx, coupon.CouponGroupID)
		if err != nil {
			return domain.Coupon{}, err
		}
		coupon.CouponGroup = &group
	}
	return *coupon, nil
}

func (s *Service) Modify(ctx context.Context, coupon domain.Coupon, req domain.ModifyRequest) (domain.Coupon, error) {
	if req.CouponGroupID != nil && *req.CouponGroupID != coupon.CouponGroupID {
		group, err := s.groups.Get(ctx, *req.CouponGroupID)
		if err != nil {
			return domain.Coupon{}, err
		}
		coupon.CouponGroupID = group.ID
		coupon.CouponGroup = &group
	}
	if req.UsedAt != nil {
		usedAt := req.UsedAt.UTC()
		coupon.UsedAt = &usedAt
	}
	if req.ExpiredAt != nil {
		expiredAt := req.ExpiredAt.UTC()
		coupon.ExpiredAt = &expiredAt
	}
	if req.Properties != nil {
		coupon.Properties = datatypes.NewJSONType(*req.Properties)
	}

	coupon.UpdatedAt = s.clock.Now()
	if err := s.repo.Update(ctx, s.db, &coupon); err != nil {
		return domain.Coupon{}, err
	}
	return coupon, nil
}

func (s *Service) Delete(ctx context.Context, coupon domain.Coupon) error {
	if err := s.repo.SoftDelete(ctx, s.db, coupon.ID, s.clock.Now()); err != nil {
		return err
	}
	s.log.Info("coupon deleted", zap.String("coupon_id", coupon.ID.String()))
	return nil
}

func (s *Service) resolveGroup(ctx context.Context, req domain.EnrollRequest) (coupongroupdomain.CouponGroup, error) {
	if code := strings.TrimSpace(req.Code); code != "" {
		return s.groups.GetByCode(ctx, code)
	}
	if req.CouponGroupID != nil {
		return s.groups.Get(ctx, *req.CouponGroupID)
	}
	return coupongroupdomain.CouponGroup{}, domain.ErrInvalidEnroll
}

func (s *Service) checkLimit(ctx context.Context, db *gorm.DB, userID string, group coupongroupdomain.CouponGroup) error {
	if group.Limit == nil {
		return nil
	}
	count, err := s.repo.CountByUserGroup(ctx, db, userID, group.ID)
	if err != nil {
		return err
	}
	if count >= int64(*group.Limit) {
		return domain.ErrExceededUsage
	}
	return nil
}

func lockKey(userID string, groupID snowflake.ID) string {
	return "ridepay:lock:coupons:" + userID + ":" + groupID.String()
}
