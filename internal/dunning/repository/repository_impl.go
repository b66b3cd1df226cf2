package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/ridepay/internal/dunning/domain"
	"gorm.io/gorm"
)

var channelColumns = map[domain.Channel]string{
	domain.ChannelRetry:   "record_retry_id",
	domain.ChannelCall:    "record_call_id",
	domain.ChannelMessage: "record_message_id",
}

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, dunning *domain.Dunning) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO dunnings (id, record_retry_id, record_call_id, record_message_id, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		dunning.ID,
		dunning.RecordRetryID,
		dunning.RecordCallID,
		dunning.RecordMessageID,
		dunning.CreatedAt,
	).Error
}

func (r *repo) ListByRecord(ctx context.Context, db *gorm.DB, recordID snowflake.ID) ([]*domain.Dunning, error) {
	var items []*domain.Dunning
	err := db.WithContext(ctx).Raw(
		`SELECT id, record_retry_id, record_call_id, record_message_id, created_at
		 FROM dunnings
		 WHERE record_retry_id = ? OR record_call_id = ? OR record_message_id = ?
		 ORDER BY created_at ASC, id ASC`,
		recordID, recordID, recordID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) CountSince(ctx context.Context, db *gorm.DB, recordID snowflake.ID, channel domain.Channel, since time.Time) (int64, error) {
	column, ok := channelColumns[channel]
	if !ok {
		return 0, domain.ErrInvalidChannel
	}

	query := `SELECT COUNT(1) FROM dunnings WHERE ` + column + ` = ?`
	args := []any{recordID}
	if !since.IsZero() {
		query += ` AND created_at >= ?`
		args = append(args, since)
	}

	var count int64
	if err := db.WithContext(ctx).Raw(query, args...).Scan(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
