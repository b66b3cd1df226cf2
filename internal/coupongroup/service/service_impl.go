package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/smallbiznis/ridepay/internal/clock"
	"github.com/smallbiznis/ridepay/internal/coupongroup/domain"
	coreservicedomain "github.com/smallbiznis/ridepay/internal/coreservice/domain"
	pkgdb "github.com/smallbiznis/ridepay/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	minNameLength      = 2
	maxNameLength      = 16
	maxAbbreviationLen = 32
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     domain.Repository
	Platform coreservicedomain.Platform
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     domain.Repository
	platform coreservicedomain.Platform
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("coupongroup.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		platform: p.Platform,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (domain.CouponGroup, error) {
	name := strings.TrimSpace(req.Name)
	if err := validateName(name); err != nil {
		return domain.CouponGroup{}, err
	}
	if !req.Type.Valid() {
		return domain.CouponGroup{}, domain.ErrInvalidType
	}
	if err := validateBounds(req.Validity, req.Limit); err != nil {
		return domain.CouponGroup{}, err
	}

	var props domain.Properties
	if req.Properties != nil {
		props = *req.Properties
	}
	if err := s.checkDiscountGroup(ctx, props); err != nil {
		return domain.CouponGroup{}, err
	}

	now := s.clock.Now()
	group := domain.CouponGroup{
		ID:           s.genID.Generate(),
		Code:         normalizeCode(req.Code),
		Name:         name,
		Type:         req.Type,
		Validity:     req.Validity,
		Limit:        req.Limit,
		Abbreviation: abbreviate(req.Abbreviation, name),
		Description:  strings.TrimSpace(req.Description),
		Properties:   datatypes.NewJSONType(props),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.checkUnique(ctx, group); err != nil {
		return domain.CouponGroup{}, err
	}
	if err := s.repo.Insert(ctx, s.db, &group); err != nil {
		if pkgdb.IsDuplicateKeyErr(err) {
			return domain.CouponGroup{}, domain.ErrDuplicateName
		}
		return domain.CouponGroup{}, err
	}

	s.log.Info("coupon group created",
		zap.String("coupon_group_id", group.ID.String()),
		zap.String("type", string(group.Type)),
	)
	return group, nil
}

func (s *Service) Modify(ctx context.Context, group domain.CouponGroup, req domain.ModifyRequest) (domain.CouponGroup, error) {
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if err := validateName(name); err != nil {
			return domain.CouponGroup{}, err
		}
		group.Name = name
	}
	if req.Type != nil {
		if !req.Type.Valid() {
			return domain.CouponGroup{}, domain.ErrInvalidType
		}
		group.Type = *req.Type
	}
	if err := validateBounds(req.Validity, req.Limit); err != nil {
		return domain.CouponGroup{}, err
	}
	if req.Validity != nil {
		group.Validity = req.Validity
	}
	if req.Limit != nil {
		group.Limit = req.Limit
	}
	if req.Code != nil {
		group.Code = normalizeCode(req.Code)
	}
	if req.Description != nil {
		group.Description = strings.TrimSpace(*req.Description)
	}
	if req.Abbreviation != nil {
		group.Abbreviation = abbreviate(req.Abbreviation, group.Name)
	}
	if req.Properties != nil {
		if err := s.checkDiscountGroup(ctx, *req.Properties); err != nil {
			return domain.CouponGroup{}, err
		}
		group.Properties = datatypes.NewJSONType(*req.Properties)
	}

	if err := s.checkUnique(ctx, group); err != nil {
		return domain.CouponGroup{}, err
	}

	group.UpdatedAt = s.clock.Now()
	if err := s.repo.Update(ctx, s.db, &group); err != nil {
		if pkgdb.IsDuplicateKeyErr(err) {
			return domain.CouponGroup{}, domain.ErrDuplicateName
		}
		return domain.CouponGroup{}, err
	}
	return group, nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (domain.CouponGroup, error) {
	group, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.CouponGroup{}, err
	}
	if group == nil {
		return domain.CouponGroup{}, domain.ErrNotFound
	}
	return *group, nil
}

func (s *Service) GetByCode(ctx context.Context, code string) (domain.CouponGroup, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return domain.CouponGroup{}, domain.ErrInvalidCode
	}
	group, err := s.repo.FindByCode(ctx, s.db, code)
	if err != nil {
		return domain.CouponGroup{}, err
	}
	if group == nil {
		return domain.CouponGroup{}, domain.ErrNotFound
	}
	return *group, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (domain.ListResponse, error) {
	if field := strings.TrimSpace(req.OrderBy); field != "" && field != "createdAt" {
		return domain.ListResponse{}, domain.ErrInvalidSortField
	}

	filter := domain.ListFilter{
		Search:   strings.TrimSpace(req.Search),
		SortDesc: !strings.EqualFold(strings.TrimSpace(req.Sort), "asc"),
	}
	items, total, err := s.repo.List(ctx, s.db, filter, req.Page())
	if err != nil {
		return domain.ListResponse{}, err
	}

	groups := make([]domain.CouponGroup, 0, len(items))
	for _, item := range items {
		if item != nil {
			groups = append(groups, *item)
		}
	}
	return domain.ListResponse{CouponGroups: groups, Total: total}, nil
}

func (s *Service) Delete(ctx context.Context, group domain.CouponGroup) error {
	err := pkgdb.NewUnitOfWork().
		Add(func(tx *gorm.DB) error {
			return s.repo.DeleteCoupons(ctx, tx, group.ID)
		}).
		Add(func(tx *gorm.DB) error {
			return s.repo.Delete(ctx, tx, group.ID)
		}).
		Commit(ctx, s.db)
	if err != nil {
		return err
	}

	s.log.Info("coupon group deleted", zap.String("coupon_group_id", group.ID.String()))
	return nil
}

func (s *Service) IssueDiscount(ctx context.Context, group domain.CouponGroup, withGenerate bool) (*domain.Discount, error) {
	discountGroupID := group.DiscountGroupID()
	if !withGenerate || discountGroupID == "" {
		return nil, nil
	}

	discount, err := s.platform.GenerateDiscount(ctx, discountGroupID)
	if err != nil {
		return nil, err
	}
	return &domain.Discount{
		DiscountGroupID: discountGroupID,
		DiscountID:      discount.DiscountID,
		ExpiredAt:       discount.ExpiredAt,
	}, nil
}

func (s *Service) checkUnique(ctx context.Context, group domain.CouponGroup) error {
	exists, err := s.repo.ExistsByName(ctx, s.db, group.Name, group.ID)
	if err != nil {
		return err
	}
	if exists {
		return domain.ErrDuplicateName
	}

	if group.Code == nil {
		return nil
	}
	exists, err = s.repo.ExistsByCode(ctx, s.db, *group.Code, group.ID)
	if err != nil {
		return err
	}
	if exists {
		return domain.ErrDuplicateCode
	}
	return nil
}

// checkDiscountGroup confirms a linked platform discount group exists.
func (s *Service) checkDiscountGroup(ctx context.Context, props domain.Properties) error {
	if props.OpenAPI == nil {
		return nil
	}
	id := strings.TrimSpace(props.OpenAPI.DiscountGroupID)
	if _, err := uuid.Parse(id); err != nil {
		return domain.ErrInvalidDiscountGroup
	}
	_, err := s.platform.GetDiscountGroup(ctx, id)
	return err
}

func validateName(name string) error {
	n := utf8.RuneCountInString(name)
	if n < minNameLength || n > maxNameLength {
		return domain.ErrInvalidName
	}
	return nil
}

func validateBounds(validity *int64, limit *int) error {
	if validity != nil && *validity <= 0 {
		return domain.ErrInvalidValidity
	}
	if limit != nil && *limit <= 0 {
		return domain.ErrInvalidLimit
	}
	return nil
}

func normalizeCode(code *string) *string {
	if code == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*code)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// abbreviate falls back to a transliterated slug of the group name.
func abbreviate(given *string, name string) *string {
	value := ""
	if given != nil {
		value = strings.TrimSpace(*given)
	}
	if value == "" {
		value = slug.Make(name)
	}
	if runes := []rune(value); len(runes) > maxAbbreviationLen {
		value = strings.TrimRight(string(runes[:maxAbbreviationLen]), "-")
	}
	if value == "" {
		return nil
	}
	return &value
}
