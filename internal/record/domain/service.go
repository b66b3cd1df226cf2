package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	carddomain "github.com/smallbiznis/ridepay/internal/card/domain"
	coreservicedomain "github.com/smallbiznis/ridepay/internal/coreservice/domain"
	paymentkeydomain "github.com/smallbiznis/ridepay/internal/paymentkey/domain"
	"github.com/smallbiznis/ridepay/pkg/db/pagination"
)

type CreateRecordRequest struct {
	Amount       int64         `json:"amount"`
	Name         string        `json:"name"`
	DisplayName  string        `json:"displayName"`
	Description  *string       `json:"description"`
	Properties   *Properties   `json:"properties"`
	PaymentKeyID *snowflake.ID `json:"paymentKeyId"`
	CardID       *snowflake.ID `json:"cardId"`
	// Required fails the charge with ErrNoAvailableCard when no card succeeds.
	Required bool `json:"required"`
}

// CardFailure is one declined or failed card within an attempt.
type CardFailure struct {
	CardID snowflake.ID `json:"cardId"`
	Err    error        `json:"-"`
}

// Attempt is the outcome of walking a user's cards in order. Card and TID
// are nil unless a charge succeeded.
type Attempt struct {
	Card     *carddomain.Card
	TID      *string
	Failures []CardFailure
}

func (a Attempt) Succeeded() bool {
	return a.Card != nil && a.TID != nil
}

type InvokePaymentRequest struct {
	User       coreservicedomain.User
	Record     Record
	PaymentKey paymentkeydomain.PaymentKey
	Required   bool
}

type RefundRequest struct {
	Reason *string `json:"reason"`
	Amount *int64  `json:"amount"`
}

type ListRecordRequest struct {
	Take       int    `form:"take"`
	Skip       int    `form:"skip"`
	Search     string `form:"search"`
	OrderBy    string `form:"orderBy"`
	Sort       string `form:"sort"`
	OnlyUnpaid bool   `form:"onlyUnpaid"`
	UserID     string `form:"-"`
}

type ListRecordResponse struct {
	Records []Record `json:"records"`
	Total   int64    `json:"total"`
}

type Service interface {
	CreateRecord(ctx context.Context, userID string, req CreateRecordRequest) (Record, error)
	CreateThenPayRecord(ctx context.Context, userID string, req CreateRecordRequest) (Record, error)
	TryPayment(ctx context.Context, user coreservicedomain.User, record Record, required bool) (Attempt, error)
	InvokePayment(ctx context.Context, req InvokePaymentRequest) (Record, error)
	RetryPayment(ctx context.Context, user coreservicedomain.User, record Record) (Record, error)
	RefundRecord(ctx context.Context, record Record, req RefundRequest) (Record, error)

	GetRecord(ctx context.Context, recordID snowflake.ID, userID string) (Record, error)
	GetUnpaidRecords(ctx context.Context, userID string) ([]Record, error)
	GetRecords(ctx context.Context, req ListRecordRequest) (ListRecordResponse, error)
	GetRecordByOpenAPIPaymentID(ctx context.Context, paymentID string, userID string) (Record, error)
	UpdateRidePrice(ctx context.Context, rideID string) error
}

var (
	ErrNotFound          = errors.New("record_not_found")
	ErrAlreadyPaid       = errors.New("already_paid")
	ErrAlreadyRefunded   = errors.New("already_refunded")
	ErrNoAvailableCard   = carddomain.ErrNoAvailableCard
	ErrInvalidAmount     = errors.New("invalid_amount")
	ErrInvalidName       = errors.New("invalid_name")
	ErrInvalidUserID     = errors.New("invalid_user_id")
	ErrInvalidSortField  = errors.New("invalid_sort_field")
	ErrNegativeRefund    = errors.New("negative_refund_amount")
	ErrMissingRideID     = errors.New("missing_ride_id")
	ErrMissingPaymentRef = errors.New("missing_payment_reference")
)

// SortFields are the columns GetRecords can order by.
var SortFields = map[string]string{
	"amount":      "amount",
	"refundedAt":  "refunded_at",
	"processedAt": "processed_at",
	"retiredAt":   "retired_at",
	"createdAt":   "created_at",
	"updatedAt":   "updated_at",
}

// Page applies the record listing defaults.
func (r ListRecordRequest) Page() pagination.Page {
	return pagination.Page{Take: r.Take, Skip: r.Skip}.Normalize()
}
