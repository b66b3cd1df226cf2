package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// PaymentKey is one set of merchant credentials at the card gateway.
type PaymentKey struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"paymentKeyId"`
	Name        string       `gorm:"not null" json:"name"`
	Identity    string       `gorm:"not null" json:"identity"`
	SecretKey   string       `gorm:"not null" json:"-"`
	Primary     bool         `gorm:"column:is_primary;not null;default:false" json:"primary"`
	FranchiseID *string      `gorm:"column:franchise_id" json:"franchiseId,omitempty"`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updatedAt"`
}

func (PaymentKey) TableName() string { return "payment_keys" }
