package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/ridepay/pkg/db/pagination"
)

type CreateRequest struct {
	Code         *string     `json:"code"`
	Name         string      `json:"name"`
	Type         Type        `json:"type"`
	Validity     *int64      `json:"validity"`
	Limit        *int        `json:"limit"`
	Abbreviation *string     `json:"abbreviation"`
	Description  string      `json:"description"`
	Properties   *Properties `json:"properties"`
}

// ModifyRequest leaves nil fields unchanged.
type ModifyRequest struct {
	Code         *string     `json:"code"`
	Name         *string     `json:"name"`
	Type         *Type       `json:"type"`
	Validity     *int64      `json:"validity"`
	Limit        *int        `json:"limit"`
	Abbreviation *string     `json:"abbreviation"`
	Description  *string     `json:"description"`
	Properties   *Properties `json:"properties"`
}

type ListRequest struct {
	Take    int    `form:"take"`
	Skip    int    `form:"skip"`
	Search  string `form:"search"`
	OrderBy string `form:"orderBy"`
	Sort    string `form:"sort"`
}

func (r ListRequest) Page() pagination.Page {
	return pagination.Page{Take: r.Take, Skip: r.Skip}.Normalize()
}

type ListResponse struct {
	CouponGroups []CouponGroup `json:"couponGroups"`
	Total        int64         `json:"total"`
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (CouponGroup, error)
	Modify(ctx context.Context, group CouponGroup, req ModifyRequest) (CouponGroup, error)
	Get(ctx context.Context, id snowflake.ID) (CouponGroup, error)
	GetByCode(ctx context.Context, code string) (CouponGroup, error)
	List(ctx context.Context, req ListRequest) (ListResponse, error)
	// Delete removes the group and every coupon issued from it.
	Delete(ctx context.Context, group CouponGroup) error
	// IssueDiscount generates a platform discount for the group when
	// withGenerate is set and the group is linked to a discount group.
	// It returns nil otherwise.
	IssueDiscount(ctx context.Context, group CouponGroup, withGenerate bool) (*Discount, error)
}

var (
	ErrNotFound             = errors.New("coupon_group_not_found")
	ErrDuplicateName        = errors.New("duplicate_coupon_group_name")
	ErrDuplicateCode        = errors.New("duplicate_coupon_group_code")
	ErrInvalidName          = errors.New("invalid_coupon_group_name")
	ErrInvalidType          = errors.New("invalid_coupon_group_type")
	ErrInvalidValidity      = errors.New("invalid_coupon_group_validity")
	ErrInvalidLimit         = errors.New("invalid_coupon_group_limit")
	ErrInvalidCode          = errors.New("invalid_coupon_group_code")
	ErrInvalidDiscountGroup = errors.New("invalid_discount_group_id")
	ErrInvalidSortField     = errors.New("invalid_sort_field")
)
