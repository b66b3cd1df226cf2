package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/ridepay/internal/card/domain"
	"gorm.io/gorm"
)

const selectColumns = `SELECT id, user_id, billing_key, card_name, order_by, created_at, updated_at, deleted_at FROM cards`

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, card *domain.Card) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO cards (id, user_id, billing_key, card_name, order_by, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		card.ID,
		card.UserID,
		card.BillingKey,
		card.CardName,
		card.OrderBy,
		card.CreatedAt,
		card.UpdatedAt,
	).Error
}

func (r *repo) List(ctx context.Context, db *gorm.DB, userID string) ([]*domain.Card, error) {
	var cards []*domain.Card
	err := db.WithContext(ctx).Raw(
		selectColumns+` WHERE user_id = ? ORDER BY order_by ASC, created_at ASC`,
		userID,
	).Scan(&cards).Error
	if err != nil {
		return nil, err
	}
	return cards, nil
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, userID string, id snowflake.ID) (*domain.Card, error) {
	var card domain.Card
	err := db.WithContext(ctx).Raw(
		selectColumns+` WHERE user_id = ? AND id = ?`,
		userID,
		id,
	).Scan(&card).Error
	if err != nil {
		return nil, err
	}
	if card.ID == 0 {
		return nil, nil
	}
	return &card, nil
}

func (r *repo) ExistsByName(ctx context.Context, db *gorm.DB, userID, cardName string) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM cards WHERE user_id = ? AND card_name = ?`,
		userID,
		cardName,
	).Scan(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repo) Count(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM cards WHERE user_id = ?`,
		userID,
	).Scan(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, userID string, id snowflake.ID) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`DELETE FROM cards WHERE user_id = ? AND id = ?`,
		userID,
		id,
	)
	return res.RowsAffected, res.Error
}

func (r *repo) UpdateOrder(ctx context.Context, db *gorm.DB, userID string, id snowflake.ID, orderBy int, at time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE cards SET order_by = ?, updated_at = ? WHERE user_id = ? AND id = ?`,
		orderBy,
		at,
		userID,
		id,
	).Error
}
