package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type Type string

const (
	TypeOneTime  Type = "ONETIME"
	TypeLongTime Type = "LONGTIME"
)

func (t Type) Valid() bool {
	return t == TypeOneTime || t == TypeLongTime
}

// OpenAPIDiscountGroup references a discount group on the ride platform.
type OpenAPIDiscountGroup struct {
	DiscountGroupID string `json:"discountGroupId"`
}

// UsageWindow is passed through to the ride core service, which decides when
// a coupon may be applied. DayOfWeek is a bitmask; Time holds [start, end]
// pairs in minutes of the day.
type UsageWindow struct {
	DayOfWeek *int     `json:"dayOfWeek,omitempty"`
	Period    *int     `json:"period,omitempty"`
	Count     *int     `json:"count,omitempty"`
	Time      [][2]int `json:"time,omitempty"`
}

type Properties struct {
	OpenAPI     *OpenAPIDiscountGroup `json:"openapi,omitempty"`
	CoreService *UsageWindow          `json:"coreservice,omitempty"`
}

// Discount is an issued discount reference stored on a coupon.
type Discount struct {
	DiscountGroupID string     `json:"discountGroupId"`
	DiscountID      string     `json:"discountId"`
	ExpiredAt       *time.Time `json:"expiredAt"`
}

type CouponGroup struct {
	ID           snowflake.ID                   `gorm:"primaryKey" json:"couponGroupId"`
	Code         *string                        `json:"code,omitempty"`
	Name         string                         `gorm:"not null" json:"name"`
	Type         Type                           `gorm:"not null" json:"type"`
	Validity     *int64                         `json:"validity"`
	Limit        *int                           `gorm:"column:usage_limit" json:"limit"`
	Abbreviation *string                        `json:"abbreviation,omitempty"`
	Description  string                         `gorm:"not null" json:"description"`
	Properties   datatypes.JSONType[Properties] `gorm:"type:jsonb;not null;default:'{}'" json:"properties"`
	CreatedAt    time.Time                      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt    time.Time                      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updatedAt"`
}

func (CouponGroup) TableName() string { return "coupon_groups" }

// DiscountGroupID returns the linked platform discount group, or "".
func (g CouponGroup) DiscountGroupID() string {
	if openapi := g.Properties.Data().OpenAPI; openapi != nil {
		return openapi.DiscountGroupID
	}
	return ""
}
