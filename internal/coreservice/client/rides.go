package client

import (
	"context"
	"net/http"
	"net/url"

	"github.com/smallbiznis/ridepay/internal/config"
	"github.com/smallbiznis/ridepay/internal/coreservice/domain"
)

const rideSubject = "coreservice-ride"

type Rides struct {
	req *requester
}

func NewRides(cfg config.Config) *Rides {
	cs := cfg.CoreService
	signer := newTokenSigner(cs.RideKey, rideSubject, cs.PaymentsURL, cs.Audience)
	return &Rides{req: newRequester("ride", cs.RideURL, cs.Timeout, signer.Token)}
}

type rideEnvelope struct {
	Ride domain.Ride `json:"ride"`
}

func (r *Rides) GetByOpenAPIRideID(ctx context.Context, rideID string) (domain.Ride, error) {
	var out rideEnvelope
	if err := r.req.do(ctx, http.MethodGet, "rides/byOpenAPI/"+url.PathEscape(rideID), nil, &out); err != nil {
		return domain.Ride{}, err
	}
	return out.Ride, nil
}

func (r *Rides) UpdatePrice(ctx context.Context, rideID string, price int64) (domain.Ride, error) {
	var out rideEnvelope
	body := map[string]int64{"price": price}
	if err := r.req.do(ctx, http.MethodPost, "rides/"+url.PathEscape(rideID), body, &out); err != nil {
		return domain.Ride{}, err
	}
	return out.Ride, nil
}

var _ domain.Rides = (*Rides)(nil)
