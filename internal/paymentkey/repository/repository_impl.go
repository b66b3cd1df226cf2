package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/ridepay/internal/paymentkey/domain"
	"gorm.io/gorm"
)

const selectColumns = `SELECT id, name, identity, secret_key, is_primary, franchise_id, created_at, updated_at FROM payment_keys`

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, key *domain.PaymentKey) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO payment_keys (id, name, identity, secret_key, is_primary, franchise_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		key.ID,
		key.Name,
		key.Identity,
		key.SecretKey,
		key.Primary,
		key.FranchiseID,
		key.CreatedAt,
		key.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.PaymentKey, error) {
	return r.findOne(ctx, db, selectColumns+` WHERE id = ?`, id)
}

func (r *repo) FindPrimary(ctx context.Context, db *gorm.DB) (*domain.PaymentKey, error) {
	return r.findOne(ctx, db, selectColumns+` WHERE is_primary = ? ORDER BY created_at ASC LIMIT 1`, true)
}

func (r *repo) FindByFranchise(ctx context.Context, db *gorm.DB, franchiseID string) (*domain.PaymentKey, error) {
	return r.findOne(ctx, db, selectColumns+` WHERE franchise_id = ? LIMIT 1`, franchiseID)
}

func (r *repo) List(ctx context.Context, db *gorm.DB) ([]*domain.PaymentKey, error) {
	var keys []*domain.PaymentKey
	err := db.WithContext(ctx).Raw(selectColumns + ` ORDER BY is_primary DESC, created_at ASC`).Scan(&keys).Error
	if err != nil {
		return nil, err
	}
	return keys, nil
}

func (r *repo) findOne(ctx context.Context, db *gorm.DB, query string, args ...any) (*domain.PaymentKey, error) {
	var key domain.PaymentKey
	if err := db.WithContext(ctx).Raw(query, args...).Scan(&key).Error; err != nil {
		return nil, err
	}
	if key.ID == 0 {
		return nil, nil
	}
	return &key, nil
}
