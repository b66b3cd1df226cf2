package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	// Add inserts the dunning and stamps the record's dunnedAt together.
	Add(ctx context.Context, recordID snowflake.ID, channel Channel) (Dunning, error)
	// List returns the escalations against a record, oldest first.
	List(ctx context.Context, recordID snowflake.ID) ([]Dunning, error)
	// ShouldMessage applies the message cooldown and cap of the current
	// dunning policy.
	ShouldMessage(ctx context.Context, recordID snowflake.ID) (bool, error)
	RetryEnabled() bool
}

var (
	ErrInvalidChannel = errors.New("invalid_dunning_channel")
	ErrInvalidRecord  = errors.New("invalid_dunning_record")
)
