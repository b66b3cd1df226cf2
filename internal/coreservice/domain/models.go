package domain

import "time"

// User is the accounts service view of a rider.
type User struct {
	UserID       string     `json:"userId"`
	Realname     string     `json:"realname"`
	ProfileURL   *string    `json:"profileUrl"`
	PhoneNo      string     `json:"phoneNo"`
	Birthday     *time.Time `json:"birthday"`
	Email        *string    `json:"email"`
	LicenseID    *string    `json:"licenseId"`
	LevelNo      int        `json:"levelNo"`
	ReceiveSMS   *time.Time `json:"receiveSMS"`
	ReceivePush  *time.Time `json:"receivePush"`
	ReceiveEmail *time.Time `json:"receiveEmail"`
	UsedAt       *time.Time `json:"usedAt"`
	CreatedAt    *time.Time `json:"createdAt"`
	UpdatedAt    *time.Time `json:"updatedAt"`
}

type RideProperties struct {
	OpenAPI *struct {
		RideID string `json:"rideId"`
	} `json:"openapi,omitempty"`
}

// Ride is a ride in the ride core service.
type Ride struct {
	RideID        string         `json:"rideId"`
	UserID        string         `json:"userId"`
	KickboardCode string         `json:"kickboardCode"`
	Photo         *string        `json:"photo"`
	CouponID      *string        `json:"couponId"`
	Properties    RideProperties `json:"properties"`
	Price         int64          `json:"price"`
	EndedAt       *time.Time     `json:"endedAt"`
	CreatedAt     *time.Time     `json:"createdAt"`
	UpdatedAt     *time.Time     `json:"updatedAt"`
}

// DiscountGroup is a ride platform discount template.
type DiscountGroup struct {
	DiscountGroupID string `json:"discountGroupId"`
	Name            string `json:"name,omitempty"`
}

// Discount is a single issued discount within a group.
type Discount struct {
	DiscountGroupID string     `json:"discountGroupId"`
	DiscountID      string     `json:"discountId"`
	ExpiredAt       *time.Time `json:"expiredAt"`
}

// RunMetrics is posted to the monitoring service after a scheduler run.
type RunMetrics struct {
	Job       string         `json:"job"`
	Processed int            `json:"processed"`
	Succeeded int            `json:"succeeded"`
	Failed    int            `json:"failed"`
	Skipped   int            `json:"skipped"`
	Duration  float64        `json:"durationSeconds"`
	Extra     map[string]any `json:"extra,omitempty"`
}
