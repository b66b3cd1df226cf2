package domain

import (
	"context"
	"errors"
	"fmt"
)

// Accounts resolves users and manages centercoin balances.
type Accounts interface {
	GetUser(ctx context.Context, userID string) (User, error)
	Authorize(ctx context.Context, sessionID string) (User, error)
	AddCentercoin(ctx context.Context, userID string, amount int64, message string) error
	RemoveCentercoin(ctx context.Context, userID string, amount int64, message string) error
}

// Rides reads and updates rides in the ride core service.
type Rides interface {
	GetByOpenAPIRideID(ctx context.Context, rideID string) (Ride, error)
	UpdatePrice(ctx context.Context, rideID string, price int64) (Ride, error)
}

// Platform is the ride platform open API.
type Platform interface {
	GetDiscountGroup(ctx context.Context, discountGroupID string) (DiscountGroup, error)
	GenerateDiscount(ctx context.Context, discountGroupID string) (Discount, error)
	MarkPaymentProcessed(ctx context.Context, rideID, paymentID string) error
}

type Monitoring interface {
	Report(ctx context.Context, monitorID string, metrics RunMetrics) error
}

var (
	ErrNotConfigured = errors.New("coreservice_not_configured")
	ErrUnauthorized  = errors.New("coreservice_unauthorized")
)

// UpstreamError is a non-2xx answer from a collaborating service.
type UpstreamError struct {
	Service    string
	StatusCode int
	Opcode     int
	Message    string
}

func (e *UpstreamError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s responded %d", e.Service, e.StatusCode)
	}
	return fmt.Sprintf("%s responded %d: %s", e.Service, e.StatusCode, e.Message)
}

// IsNotFound reports whether the collaborating service answered 404.
func (e *UpstreamError) IsNotFound() bool {
	return e.StatusCode == 404
}
