package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/ridepay/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListFilter struct {
	UserID    string
	Search    string
	ShowUsed  bool
	SortField string
	SortDesc  bool
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, coupon *Coupon) error
	// FindByID ignores deleted coupons. An empty userID matches any owner.
	FindByID(ctx context.Context, db *gorm.DB, userID string, id snowflake.ID) (*Coupon, error)
	CountByUserGroup(ctx context.Context, db *gorm.DB, userID string, groupID snowflake.ID) (int64, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter, page pagination.Page) ([]*Coupon, int64, error)
	Update(ctx context.Context, db *gorm.DB, coupon *Coupon) error
	MarkUsed(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) error
	UpdateProperties(ctx context.Context, db *gorm.DB, id snowflake.ID, props Properties, at time.Time) error
	SoftDelete(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) error
}
