package domain

import (
	"strings"
	"time"
)

// NormalizeExpiry converts YYYY-MM, YYYY-MM-DD or YYMM into YYMM.
func NormalizeExpiry(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	layouts := []string{"2006-01", "2006-01-02", "0601"}
	for _, layout := range layouts {
		if len(raw) != len(layout) {
			continue
		}
		t, err := time.Parse(layout, raw)
		if err != nil {
			continue
		}
		return t.Format("0601"), nil
	}
	return "", &ValidationError{Field: "expiry", Reason: "expected YYYY-MM, YYYY-MM-DD or YYMM"}
}

// ValidateCard checks raw card input and returns it with expiry normalized.
func ValidateCard(card CardDetails) (CardDetails, error) {
	card.CardNumber = strings.ReplaceAll(strings.TrimSpace(card.CardNumber), "-", "")
	if len(card.CardNumber) != 16 || !isDigits(card.CardNumber) {
		return card, &ValidationError{Field: "cardNumber", Reason: "must be 16 digits"}
	}

	card.Password = strings.TrimSpace(card.Password)
	if len(card.Password) != 2 || !isDigits(card.Password) {
		return card, &ValidationError{Field: "password", Reason: "must be 2 digits"}
	}

	expiry, err := NormalizeExpiry(card.Expiry)
	if err != nil {
		return card, err
	}
	card.Expiry = expiry

	card.Birthday = strings.TrimSpace(card.Birthday)
	if (len(card.Birthday) != 6 && len(card.Birthday) != 10) || !isDigits(card.Birthday) {
		return card, &ValidationError{Field: "birthday", Reason: "must be 6 or 10 digits"}
	}

	return card, nil
}

func ValidateCharge(req ChargeRequest) error {
	if strings.TrimSpace(req.Token) == "" {
		return &ValidationError{Field: "token", Reason: "required"}
	}
	if req.Amount <= 0 {
		return &ValidationError{Field: "amount", Reason: "must be positive"}
	}
	return nil
}

func ValidateRefund(req RefundRequest) error {
	if strings.TrimSpace(req.TID) == "" {
		return &ValidationError{Field: "tid", Reason: "required"}
	}
	if req.Amount <= 0 {
		return &ValidationError{Field: "amount", Reason: "must be positive"}
	}
	return nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
