package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/ridepay/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListFilter struct {
	Search   string
	SortDesc bool
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, group *CouponGroup) error
	Update(ctx context.Context, db *gorm.DB, group *CouponGroup) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*CouponGroup, error)
	FindByCode(ctx context.Context, db *gorm.DB, code string) (*CouponGroup, error)
	// ExistsBy* ignore the group with excludeID so a group can keep its own
	// name or code on modify.
	ExistsByName(ctx context.Context, db *gorm.DB, name string, excludeID snowflake.ID) (bool, error)
	ExistsByCode(ctx context.Context, db *gorm.DB, code string, excludeID snowflake.ID) (bool, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter, page pagination.Page) ([]*CouponGroup, int64, error)
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error
	DeleteCoupons(ctx context.Context, db *gorm.DB, id snowflake.ID) error
}
