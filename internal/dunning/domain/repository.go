package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, dunning *Dunning) error
	ListByRecord(ctx context.Context, db *gorm.DB, recordID snowflake.ID) ([]*Dunning, error)
	// CountSince counts a record's dunnings on channel created at or after
	// since. A zero since counts all of them.
	CountSince(ctx context.Context, db *gorm.DB, recordID snowflake.ID, channel Channel, since time.Time) (int64, error)
}
