package repository

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/ridepay/internal/coupongroup/domain"
	"github.com/smallbiznis/ridepay/pkg/db/pagination"
	"gorm.io/gorm"
)

const selectColumns = `SELECT id, code, name, type, validity, usage_limit, abbreviation, description, properties,
	created_at, updated_at FROM coupon_groups`

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, group *domain.CouponGroup) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO coupon_groups (id, code, name, type, validity, usage_limit, abbreviation, description, properties,
			created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		group.ID,
		group.Code,
		group.Name,
		group.Type,
		group.Validity,
		group.Limit,
		group.Abbreviation,
		group.Description,
		group.Properties,
		group.CreatedAt,
		group.UpdatedAt,
	).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, group *domain.CouponGroup) error {
	return db.WithContext(ctx).Exec(
		`UPDATE coupon_groups
		 SET code = ?, name = ?, type = ?, validity = ?, usage_limit = ?, abbreviation = ?, description = ?,
			properties = ?, updated_at = ?
		 WHERE id = ?`,
		group.Code,
		group.Name,
		group.Type,
		group.Validity,
		group.Limit,
		group.Abbreviation,
		group.Description,
		group.Properties,
		group.UpdatedAt,
		group.ID,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.CouponGroup, error) {
	return r.findOne(ctx, db, selectColumns+` WHERE id = ?`, id)
}

func (r *repo) FindByCode(ctx context.Context, db *gorm.DB, code string) (*domain.CouponGroup, error) {
	return r.findOne(ctx, db, selectColumns+` WHERE code = ?`, code)
}

func (r *repo) ExistsByName(ctx context.Context, db *gorm.DB, name string, excludeID snowflake.ID) (bool, error) {
	return r.exists(ctx, db, `SELECT COUNT(1) FROM coupon_groups WHERE name = ? AND id <> ?`, name, excludeID)
}

func (r *repo) ExistsByCode(ctx context.Context, db *gorm.DB, code string, excludeID snowflake.ID) (bool, error) {
	return r.exists(ctx, db, `SELECT COUNT(1) FROM coupon_groups WHERE code = ? AND id <> ?`, code, excludeID)
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter, page pagination.Page) ([]*domain.CouponGroup, int64, error) {
	stmt := db.WithContext(ctx).Model(&domain.CouponGroup{})
	if search := strings.TrimSpace(filter.Search); search != "" {
		like := "%" + search + "%"
		cond := db.Where("name LIKE ?", like).Or("description LIKE ?", like)
		if id, err := snowflake.ParseString(search); err == nil {
			cond = cond.Or("id = ?", id)
		}
		stmt = stmt.Where(cond)
	}

	var total int64
	if err := stmt.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	direction := " ASC"
	if filter.SortDesc {
		direction = " DESC"
	}

	page = page.Normalize()
	var groups []*domain.CouponGroup
	err := stmt.
		Order("created_at" + direction).
		Order("id" + direction).
		Limit(page.Take).
		Offset(page.Skip).
		Find(&groups).Error
	if err != nil {
		return nil, 0, err
	}
	return groups, total, nil
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Exec(`DELETE FROM coupon_groups WHERE id = ?`, id).Error
}

func (r *repo) DeleteCoupons(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Exec(`DELETE FROM coupons WHERE coupon_group_id = ?`, id).Error
}

func (r *repo) exists(ctx context.Context, db *gorm.DB, query string, args ...any) (bool, error) {
	var count int64
	if err := db.WithContext(ctx).Raw(query, args...).Scan(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repo) findOne(ctx context.Context, db *gorm.DB, query string, args ...any) (*domain.CouponGroup, error) {
	var group domain.CouponGroup
	if err := db.WithContext(ctx).Raw(query, args...).Scan(&group).Error; err != nil {
		return nil, err
	}
	if group.ID == 0 {
		return nil, nil
	}
	return &group, nil
}
