// Package notification builds rider messages and hands them to the message
// gateway queue.
package notification

import (
	"fmt"
	"time"
	_ "time/tzdata"

	"github.com/dustin/go-humanize"
	carddomain "github.com/smallbiznis/ridepay/internal/card/domain"
	coreservicedomain "github.com/smallbiznis/ridepay/internal/coreservice/domain"
	recorddomain "github.com/smallbiznis/ridepay/internal/record/domain"
)

// Template names understood by the message gateway.
const (
	TemplateUnpaidCompleted  = "unpaid_completed"
	TemplateUnpaidRequest    = "unpaid_request"
	TemplatePaymentCompleted = "payment_completed"
	TemplatePaymentFailed    = "payment_failed"
	TemplateRefundFull       = "refund_full"
	TemplateRefundPartial    = "refund_partial"
)

// Message is the message gateway envelope.
type Message struct {
	Phone  string         `json:"phone"`
	Name   string         `json:"name"`
	Fields map[string]any `json:"fields"`
}

var seoul = loadSeoul()

func loadSeoul() *time.Location {
	loc, err := time.LoadLocation("Asia/Seoul")
	if err != nil {
		return time.FixedZone("KST", 9*60*60)
	}
	return loc
}

// FormatWon renders 12345 as "12,345원".
func FormatWon(amount int64) string {
	return humanize.Comma(amount) + "원"
}

// FormatTime renders t in Korea time as "M월 D일 H시 m분".
func FormatTime(t time.Time) string {
	t = t.In(seoul)
	return fmt.Sprintf("%d월 %d일 %d시 %d분", int(t.Month()), t.Day(), t.Hour(), t.Minute())
}

func UnpaidCompleted(user coreservicedomain.User, card carddomain.Card, record recorddomain.Record) Message {
	return Message{
		Phone: user.PhoneNo,
		Name:  TemplateUnpaidCompleted,
		Fields: map[string]any{
			"user":   userFields(user),
			"card":   map[string]any{"cardId": card.ID.String(), "cardName": card.CardName},
			"record": recordFields(record, record.Amount),
		},
	}
}

func UnpaidRequest(user coreservicedomain.User, record recorddomain.Record) Message {
	return Message{
		Phone: user.PhoneNo,
		Name:  TemplateUnpaidRequest,
		Fields: map[string]any{
			"user":   userFields(user),
			"record": recordFields(record, record.Amount),
		},
	}
}

// PaymentResult picks the completed or failed template from the record state.
func PaymentResult(user coreservicedomain.User, record recorddomain.Record) Message {
	name := TemplatePaymentFailed
	if record.ProcessedAt != nil {
		name = TemplatePaymentCompleted
	}
	return Message{
		Phone: user.PhoneNo,
		Name:  name,
		Fields: map[string]any{
			"user":   userFields(user),
			"record": recordFields(record, record.Amount),
		},
	}
}

// Refund announces refunded won. A record with a remaining balance gets the
// partial template.
func Refund(user coreservicedomain.User, record recorddomain.Record, refunded int64) Message {
	name := TemplateRefundFull
	if record.Amount > 0 {
		name = TemplateRefundPartial
	}
	fields := recordFields(record, record.Amount)
	fields["refundedAmount"] = FormatWon(refunded)
	return Message{
		Phone: user.PhoneNo,
		Name:  name,
		Fields: map[string]any{
			"user":   userFields(user),
			"record": fields,
		},
	}
}

func userFields(user coreservicedomain.User) map[string]any {
	return map[string]any{
		"userId":   user.UserID,
		"realname": user.Realname,
		"phoneNo":  user.PhoneNo,
	}
}

func recordFields(record recorddomain.Record, amount int64) map[string]any {
	fields := map[string]any{
		"recordId":      record.ID.String(),
		"name":          record.Name,
		"displayName":   record.DisplayName,
		"amount":        FormatWon(amount),
		"initialAmount": FormatWon(record.InitialAmount),
	}
	if record.ProcessedAt != nil {
		fields["processedAt"] = FormatTime(*record.ProcessedAt)
	}
	if record.RefundedAt != nil {
		fields["refundedAt"] = FormatTime(*record.RefundedAt)
	}
	return fields
}
