package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/ridepay/pkg/db/pagination"
)

// EnrollRequest names the coupon group by code or by id. Code wins when both
// are set.
type EnrollRequest struct {
	Code          string        `json:"code"`
	CouponGroupID *snowflake.ID `json:"couponGroupId"`
}

type ModifyRequest struct {
	CouponGroupID *snowflake.ID `json:"couponGroupId"`
	UsedAt        *time.Time    `json:"usedAt"`
	ExpiredAt     *time.Time    `json:"expiredAt"`
	Properties    *Properties   `json:"properties"`
}

type ListRequest struct {
	Take     int    `form:"take"`
	Skip     int    `form:"skip"`
	Search   string `form:"search"`
	ShowUsed *bool  `form:"showUsed"`
	OrderBy  string `form:"orderBy"`
	Sort     string `form:"sort"`
}

func (r ListRequest) Page() pagination.Page {
	return pagination.Page{Take: r.Take, Skip: r.Skip}.Normalize()
}

type ListResponse struct {
	Coupons []Coupon `json:"coupons"`
	Total   int64    `json:"total"`
}

type Service interface {
	Enroll(ctx context.Context, userID string, req EnrollRequest) (Coupon, error)
	// Redeem returns the coupon's discount reference, generating and storing
	// one on first use. The coupon must carry its group.
	Redeem(ctx context.Context, coupon Coupon) (Properties, error)
	List(ctx context.Context, userID string, req ListRequest) (ListResponse, error)
	Get(ctx context.Context, userID string, couponID snowflake.ID, withGroup bool) (Coupon, error)
	Modify(ctx context.Context, coupon Coupon, req ModifyRequest) (Coupon, error)
	Delete(ctx context.Context, coupon Coupon) error
}

var (
	ErrNotFound         = errors.New("coupon_not_found")
	ErrExceededUsage    = errors.New("exceeded_usage")
	ErrExpiredCoupon    = errors.New("expired_coupon")
	ErrInvalidState     = errors.New("invalid_coupon_state")
	ErrInvalidEnroll    = errors.New("invalid_enroll_request")
	ErrInvalidUserID    = errors.New("invalid_user_id")
	ErrInvalidSortField = errors.New("invalid_sort_field")
)

// SortFields are the columns List can order by.
var SortFields = map[string]string{
	"createdAt": "created_at",
	"usedAt":    "used_at",
	"expiredAt": "expired_at",
}
