package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	gatewaydomain "github.com/smallbiznis/ridepay/internal/gateway/domain"
)

type Service interface {
	List(ctx context.Context, userID string, revealToken bool) ([]Card, error)
	Get(ctx context.Context, userID string, cardID snowflake.ID, revealToken bool) (Card, error)
	Register(ctx context.Context, userID string, details gatewaydomain.CardDetails) (Card, error)
	Revoke(ctx context.Context, userID string, card Card) error
	// Reorder sets orderBy to the position of each id. Unknown ids are ignored
	// and the result is compacted to 0..n-1.
	Reorder(ctx context.Context, userID string, cardIDs []string) ([]Card, error)
	// CheckReady fails when the user has no card or owes a record.
	CheckReady(ctx context.Context, userID string) error
}

var (
	ErrNotFound         = errors.New("card_not_found")
	ErrDuplicateCard    = errors.New("duplicate_card")
	ErrNoAvailableCard  = errors.New("no_available_card")
	ErrHasUnpaidRecord  = errors.New("has_unpaid_record")
	ErrInvalidUserID    = errors.New("invalid_user_id")
	ErrInvalidCardIDs   = errors.New("invalid_card_ids")
	ErrTokenUnavailable = errors.New("card_token_unavailable")
)
