package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

// Service validates input and resolves merchant keys before calling the
// provider. A nil paymentKeyID selects the primary key.
type Service interface {
	CreateBillingToken(ctx context.Context, card CardDetails, paymentKeyID *snowflake.ID) (BillingToken, error)
	Charge(ctx context.Context, req ChargeRequest, paymentKeyID *snowflake.ID) (string, error)
	Refund(ctx context.Context, req RefundRequest, paymentKeyID *snowflake.ID) error
	RevokeToken(ctx context.Context, token string, paymentKeyID *snowflake.ID) error
}
