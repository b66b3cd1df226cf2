package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, key *PaymentKey) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*PaymentKey, error)
	FindPrimary(ctx context.Context, db *gorm.DB) (*PaymentKey, error)
	FindByFranchise(ctx context.Context, db *gorm.DB, franchiseID string) (*PaymentKey, error)
	List(ctx context.Context, db *gorm.DB) ([]*PaymentKey, error)
}
