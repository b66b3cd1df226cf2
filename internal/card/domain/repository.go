package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, card *Card) error
	List(ctx context.Context, db *gorm.DB, userID string) ([]*Card, error)
	FindByID(ctx context.Context, db *gorm.DB, userID string, id snowflake.ID) (*Card, error)
	ExistsByName(ctx context.Context, db *gorm.DB, userID, cardName string) (bool, error)
	Count(ctx context.Context, db *gorm.DB, userID string) (int64, error)
	Delete(ctx context.Context, db *gorm.DB, userID string, id snowflake.ID) (int64, error)
	UpdateOrder(ctx context.Context, db *gorm.DB, userID string, id snowflake.ID, orderBy int, at time.Time) error
}
