package client

import (
	"context"
	"net/http"
	"net/url"

	"github.com/smallbiznis/ridepay/internal/config"
	"github.com/smallbiznis/ridepay/internal/coreservice/domain"
)

type Platform struct {
	req *requester
}

func NewPlatform(cfg config.Config) *Platform {
	key := cfg.Platform.AccessKey
	return &Platform{req: newRequester("platform", cfg.Platform.URL, cfg.Platform.Timeout, staticToken(key))}
}

type discountGroupEnvelope struct {
	DiscountGroup domain.DiscountGroup `json:"discountGroup"`
}

type discountEnvelope struct {
	Discount domain.Discount `json:"discount"`
}

func (p *Platform) GetDiscountGroup(ctx context.Context, discountGroupID string) (domain.DiscountGroup, error) {
	var out discountGroupEnvelope
	if err := p.req.do(ctx, http.MethodGet, "discount/discountGroups/"+url.PathEscape(discountGroupID), nil, &out); err != nil {
		return domain.DiscountGroup{}, err
	}
	if out.DiscountGroup.DiscountGroupID == "" {
		out.DiscountGroup.DiscountGroupID = discountGroupID
	}
	return out.DiscountGroup, nil
}

func (p *Platform) GenerateDiscount(ctx context.Context, discountGroupID string) (domain.Discount, error) {
	var out discountEnvelope
	path := "discount/discountGroups/" + url.PathEscape(discountGroupID) + "/generate"
	if err := p.req.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return domain.Discount{}, err
	}
	if out.Discount.DiscountGroupID == "" {
		out.Discount.DiscountGroupID = discountGroupID
	}
	return out.Discount, nil
}

func (p *Platform) MarkPaymentProcessed(ctx context.Context, rideID, paymentID string) error {
	path := "ride/rides/" + url.PathEscape(rideID) + "/payments/" + url.PathEscape(paymentID) + "/process"
	return p.req.do(ctx, http.MethodGet, path, nil, nil)
}

var _ domain.Platform = (*Platform)(nil)

func staticToken(token string) func() (string, error) {
	if token == "" {
		return nil
	}
	return func() (string, error) { return token, nil }
}
