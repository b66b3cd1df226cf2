package domain

// CardDetails is raw card input exchanged once for a billing token.
type CardDetails struct {
	CardNumber string `json:"cardNumber"`
	Expiry     string `json:"expiry"`
	Password   string `json:"password"`
	Birthday   string `json:"birthday"`
}

// BillingToken is the reusable charge handle plus a display label
// ("<issuer> <masked number>").
type BillingToken struct {
	Token     string `json:"billingKey"`
	CardLabel string `json:"cardName"`
}

type ChargeRequest struct {
	Token       string
	Amount      int64
	PayerName   string
	PayerPhone  string
	ProductName string
}

type RefundRequest struct {
	TID     string
	Amount  int64
	Reason  string
	Partial bool
}

// Credentials is the merchant identity and key pair sent to the provider.
type Credentials struct {
	Identity  string
	SecretKey string
}
