package domain

import (
	"errors"
	"testing"
)

func TestNormalizeExpiry(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "2027-03", want: "2703"},
		{in: "2027-03-31", want: "2703"},
		{in: "2703", want: "2703"},
		{in: " 2029-12 ", want: "2912"},
		{in: "27/03", wantErr: true},
		{in: "2027-13", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := NormalizeExpiry(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NormalizeExpiry(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Fatalf("NormalizeExpiry(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestValidateCard(t *testing.T) {
	valid := CardDetails{CardNumber: "1234567812345678", Expiry: "2027-03", Password: "12", Birthday: "900101"}

	tests := []struct {
		name  string
		mut   func(c *CardDetails)
		field string
	}{
		{name: "valid", mut: func(*CardDetails) {}},
		{name: "dashed number", mut: func(c *CardDetails) { c.CardNumber = "1234-5678-1234-5678" }},
		{name: "ten digit birthday", mut: func(c *CardDetails) { c.Birthday = "1234567890" }},
		{name: "short number", mut: func(c *CardDetails) { c.CardNumber = "1234" }, field: "cardNumber"},
		{name: "alpha number", mut: func(c *CardDetails) { c.CardNumber = "12345678abcd5678" }, field: "cardNumber"},
		{name: "long password", mut: func(c *CardDetails) { c.Password = "123" }, field: "password"},
		{name: "bad expiry", mut: func(c *CardDetails) { c.Expiry = "03/27" }, field: "expiry"},
		{name: "bad birthday", mut: func(c *CardDetails) { c.Birthday = "19900101" }, field: "birthday"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			card := valid
			tt.mut(&card)
			got, err := ValidateCard(card)
			if tt.field == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if got.Expiry != "2703" {
					t.Fatalf("expected normalized expiry, got %q", got.Expiry)
				}
				return
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if verr.Field != tt.field {
				t.Fatalf("expected field %q, got %q", tt.field, verr.Field)
			}
		})
	}
}

func TestValidateChargeAndRefund(t *testing.T) {
	if err := ValidateCharge(ChargeRequest{Token: "tok", Amount: 1}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := ValidateCharge(ChargeRequest{Token: "tok"}); err == nil {
		t.Fatalf("expected amount error")
	}
	if err := ValidateCharge(ChargeRequest{Amount: 10}); err == nil {
		t.Fatalf("expected token error")
	}
	if err := ValidateRefund(RefundRequest{TID: "tid", Amount: 10}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := ValidateRefund(RefundRequest{Amount: 10}); err == nil {
		t.Fatalf("expected tid error")
	}
}

func TestProviderErrorCode(t *testing.T) {
	var err error = &ProviderError{Operation: OperationCharge, Code: "3011", Message: "한도초과"}
	var coder interface{ ProviderCode() string }
	if !errors.As(err, &coder) || coder.ProviderCode() != "3011" {
		t.Fatalf("expected provider code 3011")
	}
}
