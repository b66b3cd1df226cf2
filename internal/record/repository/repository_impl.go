package repository

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/ridepay/internal/record/domain"
	"github.com/smallbiznis/ridepay/pkg/db/pagination"
	"gorm.io/gorm"
)

const (
	selectColumns = `SELECT id, user_id, card_id, payment_key_id, amount, initial_amount, tid, name, display_name,
		description, properties, processed_at, refunded_at, retired_at, dunned_at, reason, created_at, updated_at
		FROM records`

	openAPIPaymentID = `properties->'openapi'->>'paymentId'`
	openAPIRideID    = `properties->'openapi'->>'rideId'`
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, record *domain.Record) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO records (id, user_id, card_id, payment_key_id, amount, initial_amount, tid, name, display_name,
			description, properties, processed_at, refunded_at, retired_at, dunned_at, reason, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID,
		record.UserID,
		record.CardID,
		record.PaymentKeyID,
		record.Amount,
		record.InitialAmount,
		record.TID,
		record.Name,
		record.DisplayName,
		record.Description,
		record.Properties,
		record.ProcessedAt,
		record.RefundedAt,
		record.RetiredAt,
		record.DunnedAt,
		record.Reason,
		record.CreatedAt,
		record.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID, userID string) (*domain.Record, error) {
	query := selectColumns + ` WHERE id = ?`
	args := []any{id}
	if userID != "" {
		query += ` AND user_id = ?`
		args = append(args, userID)
	}
	return r.findOne(ctx, db, query, args...)
}

func (r *repo) FindByOpenAPIPaymentID(ctx context.Context, db *gorm.DB, paymentID string, userID string) (*domain.Record, error) {
	query := selectColumns + ` WHERE ` + openAPIPaymentID + ` = ?`
	args := []any{paymentID}
	if userID != "" {
		query += ` AND user_id = ?`
		args = append(args, userID)
	}
	query += ` ORDER BY created_at ASC LIMIT 1`
	return r.findOne(ctx, db, query, args...)
}

func (r *repo) FindUnpaidByUser(ctx context.Context, db *gorm.DB, userID string) ([]*domain.Record, error) {
	var records []*domain.Record
	err := db.WithContext(ctx).Raw(
		selectColumns+` WHERE user_id = ? AND processed_at IS NULL ORDER BY created_at ASC`,
		userID,
	).Scan(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (r *repo) CountUnpaidByUser(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM records WHERE user_id = ? AND processed_at IS NULL`,
		userID,
	).Scan(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter, page pagination.Page) ([]*domain.Record, int64, error) {
	stmt := db.WithContext(ctx).Model(&domain.Record{})
	if filter.UserID != "" {
		stmt = stmt.Where("user_id = ?", filter.UserID)
	}
	if filter.OnlyUnpaid {
		stmt = stmt.Where("processed_at IS NULL")
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		like := "%" + search + "%"
		cond := db.Where("user_id = ?", search).
			Or("name LIKE ?", like).
			Or("display_name LIKE ?", like).
			Or("description LIKE ?", like).
			Or("reason LIKE ?", like)
		if id, err := snowflake.ParseString(search); err == nil {
			cond = cond.Or("id = ?", id).Or("card_id = ?", id).Or("payment_key_id = ?", id)
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
	var records []*domain.Record
	err := stmt.
		Order(column + direction).
		Order("id" + direction).
		Limit(page.Take).
		Offset(page.Skip).
		Find(&records).Error
	if err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

func (r *repo) SumOpenAPIRideAmount(ctx context.Context, db *gorm.DB, rideID string) (int64, error) {
	var sum int64
	err := db.WithContext(ctx).Raw(
		`SELECT COALESCE(SUM(amount), 0) FROM records WHERE `+openAPIRideID+` = ? AND refunded_at IS NULL`,
		rideID,
	).Scan(&sum).Error
	if err != nil {
		return 0, err
	}
	return sum, nil
}

func (r *repo) MarkRetired(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE records SET retired_at = ?, updated_at = ? WHERE id = ?`,
		at,
		at,
		id,
	).Error
}

func (r *repo) UpdatePayment(ctx context.Context, db *gorm.DB, id snowflake.ID, payment domain.Payment, at time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE records SET card_id = ?, tid = ?, processed_at = ?, updated_at = ? WHERE id = ?`,
		payment.CardID,
		payment.TID,
		payment.ProcessedAt,
		at,
		id,
	).Error
}

func (r *repo) UpdateRefund(ctx context.Context, db *gorm.DB, id snowflake.ID, refund domain.Refund) error {
	return db.WithContext(ctx).Exec(
		`UPDATE records SET amount = ?, reason = COALESCE(?, reason), refunded_at = ?, updated_at = ? WHERE id = ?`,
		refund.Amount,
		refund.Reason,
		refund.RefundedAt,
		refund.RefundedAt,
		id,
	).Error
}

func (r *repo) MarkDunned(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE records SET dunned_at = ?, updated_at = ? WHERE id = ?`,
		at,
		at,
		id,
	).Error
}

func (r *repo) findOne(ctx context.Context, db *gorm.DB, query string, args ...any) (*domain.Record, error) {
	var record domain.Record
	if err := db.WithContext(ctx).Raw(query, args...).Scan(&record).Error; err != nil {
		return nil, err
	}
	if record.ID == 0 {
		return nil, nil
	}
	return &record, nil
}
