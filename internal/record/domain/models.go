package domain

import (
	"encoding/json"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type Status string

const (
	StatusUnpaid            Status = "UNPAID"
	StatusPaid              Status = "PAID"
	StatusPartiallyRefunded Status = "PARTIALLY_REFUNDED"
	StatusRefunded          Status = "REFUNDED"
)

// OpenAPIPayment is the ride platform payment a record settles.
type OpenAPIPayment struct {
	PaymentID   string `json:"paymentId"`
	RideID      string `json:"rideId,omitempty"`
	FranchiseID string `json:"franchiseId,omitempty"`
	PlatformID  string `json:"platformId,omitempty"`
	PaymentType string `json:"paymentType,omitempty"`
	Amount      int64  `json:"amount,omitempty"`
	Description string `json:"description,omitempty"`
}

// CoreServiceRide links a record to a ride or pass in the ride core service.
type CoreServiceRide struct {
	RideID        string `json:"rideId,omitempty"`
	PassID        string `json:"passId,omitempty"`
	PassProgramID string `json:"passProgramId,omitempty"`
}

type Properties struct {
	OpenAPI     *OpenAPIPayment  `json:"openapi,omitempty"`
	CoreService *CoreServiceRide `json:"coreservice,omitempty"`
}

type Record struct {
	ID            snowflake.ID                   `gorm:"primaryKey" json:"recordId"`
	UserID        string                         `gorm:"not null;index" json:"userId"`
	CardID        *snowflake.ID                  `gorm:"column:card_id" json:"cardId"`
	PaymentKeyID  *snowflake.ID                  `gorm:"column:payment_key_id" json:"paymentKeyId"`
	Amount        int64                          `gorm:"not null" json:"amount"`
	InitialAmount int64                          `gorm:"not null" json:"initialAmount"`
	TID           *string                        `gorm:"column:tid" json:"tid"`
	Name          string                         `gorm:"not null" json:"name"`
	DisplayName   string                         `gorm:"not null" json:"displayName"`
	Description   *string                        `json:"description"`
	Properties    datatypes.JSONType[Properties] `gorm:"type:jsonb;not null;default:'{}'" json:"properties"`
	ProcessedAt   *time.Time                     `json:"processedAt"`
	RefundedAt    *time.Time                     `json:"refundedAt"`
	RetiredAt     *time.Time                     `json:"retiredAt"`
	DunnedAt      *time.Time                     `json:"dunnedAt"`
	Reason        *string                        `json:"reason"`
	CreatedAt     time.Time                      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt     time.Time                      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updatedAt"`
}

func (Record) TableName() string { return "records" }

// Status is derived from the processed/refunded timestamps and balances.
func (r Record) Status() Status {
	switch {
	case r.RefundedAt != nil && r.Amount <= 0:
		return StatusRefunded
	case r.RefundedAt != nil:
		return StatusPartiallyRefunded
	case r.ProcessedAt != nil:
		return StatusPaid
	default:
		return StatusUnpaid
	}
}

func (r Record) IsUnpaid() bool {
	return r.ProcessedAt == nil && r.RefundedAt == nil
}

// OpenAPI returns the platform payment properties, or nil.
func (r Record) OpenAPI() *OpenAPIPayment {
	return r.Properties.Data().OpenAPI
}

func (r Record) MarshalJSON() ([]byte, error) {
	type alias Record
	return json.Marshal(struct {
		alias
		Status Status `json:"status"`
	}{alias: alias(r), Status: r.Status()})
}
