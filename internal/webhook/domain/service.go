package domain

import (
	"context"
	"errors"
)

type Service interface {
	OnPayment(ctx context.Context, event PaymentEvent) (Result, error)
	OnRefund(ctx context.Context, event RefundEvent) (Result, error)
}

var (
	ErrInvalidPayload   = errors.New("invalid_webhook_payload")
	ErrCannotFindRecord = errors.New("cannot_find_record")
)
