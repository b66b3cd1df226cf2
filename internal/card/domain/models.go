package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Card is a tokenized payment card. BillingKey is populated only when the
// caller asks for the token and is never rendered to clients.
type Card struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"cardId"`
	UserID     string       `gorm:"not null;index" json:"userId"`
	BillingKey string       `gorm:"column:billing_key;not null" json:"-"`
	CardName   string       `gorm:"not null" json:"cardName"`
	OrderBy    int          `gorm:"column:order_by;not null" json:"orderBy"`
	CreatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updatedAt"`
	DeletedAt  *time.Time   `json:"deletedAt"`
}

func (Card) TableName() string { return "cards" }
