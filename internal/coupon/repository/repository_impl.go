package repository

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/ridepay/internal/coupon/domain"
	"github.com/smallbiznis/ridepay/pkg/db/pagination"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const selectColumns = `SELECT id, user_id, coupon_group_id, properties, used_at, expired_at, created_at, updated_at,
	deleted_at FROM coupons`

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, coupon *domain.Coupon) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO coupons (id, user_id, coupon_group_id, properties, used_at, expired_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		coupon.ID,
		coupon.UserID,
		coupon.CouponGroupID,
		coupon.Properties,
		coupon.UsedAt,
		coupon.ExpiredAt,
		coupon.CreatedAt,
		coupon.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, userID string, id snowflake.ID) (*domain.Coupon, error) {
	query := selectColumns + ` WHERE id = ? AND deleted_at IS NULL`
	args := []any{id}
	if userID != "" {
		query += ` AND user_id = ?`
		args = append(args, userID)
	}

	var coupon domain.Coupon
	if err := db.WithContext(ctx).Raw(query, args...).Scan(&coupon).Error; err != nil {
		return nil, err
	}
	if coupon.ID == 0 {
		return nil, nil
	}
	return &coupon, nil
}

func (r *repo) CountByUserGroup(ctx context.Context, db *gorm.DB, userID string, groupID snowflake.ID) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM coupons WHERE user_id = ? AND coupon_group_id = ? AND deleted_at IS NULL`,
		userID,
		groupID,
	).Scan(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter, page pagination.Page) ([]*domain.Coupon, int64, error) {
	stmt := db.WithContext(ctx).Model(&domain.Coupon{}).
		Where("user_id = ?", filter.UserID).
		Where("deleted_at IS NULL")
	if !filter.ShowUsed {
		stmt = stmt.Where("used_at IS NULL")
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		like := "%" + search + "%"
		cond := db.Where(
			"coupon_group_id IN (SELECT id FROM coupon_groups WHERE name LIKE ? OR description LIKE ?)",
			like, like,
		)
		if id, err := snowflake.ParseString(search); err == nil {
			cond = cond.Or("id = ?", id).Or("coupon_group_id = ?", id)
		}
		stmt = stmt.Where(cond)
	}

	var total int64
	if err := stmt.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	column, ok := domain.SortFields[filter.SortField]
	if !ok {
		column = "created_at"
	}
	direction := " ASC"
	if filter.SortDesc {
		direction = " DESC"
	}

	page = page.Normalize()
	var coupons []*domain.Coupon
	err := stmt.
		Order(column + direction).
		Order("id" + direction).
		Limit(page.Take).
		Offset(page.Skip).
		Find(&coupons).Error
	if err != nil {
		return nil, 0, err
	}
	return coupons, total, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, coupon *domain.Coupon) error {
	return db.WithContext(ctx).Exec(
		`UPDATE coupons SET coupon_group_id = ?, properties = ?, used_at = ?, expired_at = ?, updated_at = ? WHERE id = ?`,
		coupon.CouponGroupID,
		coupon.Properties,
		coupon.UsedAt,
		coupon.ExpiredAt,
		coupon.UpdatedAt,
		coupon.ID,
	).Error
}

func (r *repo) MarkUsed(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE coupons SET used_at = ?, updated_at = ? WHERE id = ?`,
		at,
		at,
		id,
	).Error
}

func (r *repo) UpdateProperties(ctx context.Context, db *gorm.DB, id snowflake.ID, props domain.Properties, at time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE coupons SET properties = ?, updated_at = ? WHERE id = ?`,
		datatypes.NewJSONType(props),
		at,
		id,
	).Error
}

func (r *repo) SoftDelete(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE coupons SET deleted_at = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL`,
		at,
		at,
		id,
	).Error
}
