package domain

import "context"

// Provider is the wire adapter for the card-billing gateway. It performs no
// validation and no credential lookup.
type Provider interface {
	GenerateBillingKey(ctx context.Context, creds Credentials, card CardDetails) (BillingToken, error)
	// PayWithToken charges through the primary merchant on behalf of sub.
	PayWithToken(ctx context.Context, primary, sub Credentials, req ChargeRequest) (string, error)
	Cancel(ctx context.Context, creds Credentials, req RefundRequest) error
	DeleteBillingKey(ctx context.Context, creds Credentials, token string) error
}
