package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/ridepay/pkg/db/pagination"
	"gorm.io/gorm"
)

// ListFilter narrows GetRecords. Search matches ids exactly and text
// columns by substring.
type ListFilter struct {
	UserID     string
	Search     string
	OnlyUnpaid bool
	SortField  string
	SortDesc   bool
}

// Payment is the charge outcome persisted by InvokePayment/RetryPayment.
type Payment struct {
	CardID      *snowflake.ID
	TID         *string
	ProcessedAt *time.Time
}

// Refund is the balance change persisted by RefundRecord.
type Refund struct {
	Amount     int64
	Reason     *string
	RefundedAt time.Time
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, record *Record) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID, userID string) (*Record, error)
	FindByOpenAPIPaymentID(ctx context.Context, db *gorm.DB, paymentID string, userID string) (*Record, error)
	FindUnpaidByUser(ctx context.Context, db *gorm.DB, userID string) ([]*Record, error)
	CountUnpaidByUser(ctx context.Context, db *gorm.DB, userID string) (int64, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter, page pagination.Page) ([]*Record, int64, error)
	SumOpenAPIRideAmount(ctx context.Context, db *gorm.DB, rideID string) (int64, error)

	MarkRetired(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) error
	UpdatePayment(ctx context.Context, db *gorm.DB, id snowflake.ID, payment Payment, at time.Time) error
	UpdateRefund(ctx context.Context, db *gorm.DB, id snowflake.ID, refund Refund) error
	MarkDunned(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) error
}
