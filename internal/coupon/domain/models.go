package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	coupongroupdomain "github.com/smallbiznis/ridepay/internal/coupongroup/domain"
	"gorm.io/datatypes"
)

// Properties carries the platform discount bound to a coupon.
type Properties struct {
	OpenAPI *coupongroupdomain.Discount `json:"openapi,omitempty"`
}

func (p Properties) Empty() bool {
	return p.OpenAPI == nil
}

type Coupon struct {
	ID            snowflake.ID                   `gorm:"primaryKey" json:"couponId"`
	UserID        string                         `gorm:"not null;index" json:"userId"`
	CouponGroupID snowflake.ID                   `gorm:"not null" json:"couponGroupId"`
	Properties    datatypes.JSONType[Properties] `gorm:"type:jsonb;not null;default:'{}'" json:"-"`
	UsedAt        *time.Time                     `json:"usedAt"`
	ExpiredAt     *time.Time                     `json:"expiredAt"`
	CreatedAt     time.Time                      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt     time.Time                      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updatedAt"`
	DeletedAt     *time.Time                     `json:"deletedAt,omitempty"`

	CouponGroup *coupongroupdomain.CouponGroup `gorm:"-" json:"couponGroup,omitempty"`
}

func (Coupon) TableName() string { return "coupons" }

// Expired reports whether the coupon cannot be redeemed at now.
func (c Coupon) Expired(now time.Time) bool {
	return c.ExpiredAt != nil && c.ExpiredAt.Before(now)
}
