package domain

import (
	"time"

	recorddomain "github.com/smallbiznis/ridepay/internal/record/domain"
)

const PaymentTypeService = "SERVICE"

// Ride is the part of the platform ride embedded in payment events.
type Ride struct {
	RideID        string     `json:"rideId"`
	KickboardCode string     `json:"kickboardCode"`
	UserID        string     `json:"userId"`
	Realname      string     `json:"realname"`
	Phone         string     `json:"phone"`
	StartedAt     *time.Time `json:"startedAt"`
	TerminatedAt  *time.Time `json:"terminatedAt"`
}

// Payment is the ride platform payment carried in the event data.
type Payment struct {
	PaymentID   string     `json:"paymentId"`
	Description string     `json:"description"`
	PlatformID  string     `json:"platformId"`
	FranchiseID string     `json:"franchiseId"`
	PaymentType string     `json:"paymentType"`
	Amount      int64      `json:"amount"`
	RideID      string     `json:"rideId"`
	RefundedAt  *time.Time `json:"refundedAt"`
	ProcessedAt *time.Time `json:"processedAt"`
	Ride        Ride       `json:"ride"`
}

// OpenAPI is the payment as stored on a record, without the ride.
func (p Payment) OpenAPI() *recorddomain.OpenAPIPayment {
	return &recorddomain.OpenAPIPayment{
		PaymentID:   p.PaymentID,
		RideID:      p.RideID,
		FranchiseID: p.FranchiseID,
		PlatformID:  p.PlatformID,
		PaymentType: p.PaymentType,
		Amount:      p.Amount,
		Description: p.Description,
	}
}

type PaymentEvent struct {
	RequestID string  `json:"requestId"`
	WebhookID string  `json:"webhookId"`
	Data      Payment `json:"data"`
}

// RefundEvent may override the refunded amount and reason.
type RefundEvent struct {
	RequestID string  `json:"requestId"`
	WebhookID string  `json:"webhookId"`
	Data      Payment `json:"data"`
	Amount    *int64  `json:"amount"`
	Reason    *string `json:"reason"`
}

type Result struct {
	Record    recorddomain.Record `json:"record"`
	Duplicate bool                `json:"duplicate"`
}
