package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	Get(ctx context.Context, id snowflake.ID) (PaymentKey, error)
	Primary(ctx context.Context) (PaymentKey, error)
	// Resolve returns the key for id, or the primary key when id is nil.
	Resolve(ctx context.Context, id *snowflake.ID) (PaymentKey, error)
	// ByFranchise prefers a franchise-specific key and falls back to primary.
	ByFranchise(ctx context.Context, franchiseID string) (PaymentKey, error)
	List(ctx context.Context) ([]PaymentKey, error)
}

var (
	ErrNotFound        = errors.New("payment_key_not_found")
	ErrPrimaryNotFound = errors.New("primary_payment_key_not_found")
)
