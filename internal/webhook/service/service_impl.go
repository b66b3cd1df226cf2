package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/smallbiznis/ridepay/internal/clock"
	coreservicedomain "github.com/smallbiznis/ridepay/internal/coreservice/domain"
	"github.com/smallbiznis/ridepay/internal/errtrack"
	"github.com/smallbiznis/ridepay/internal/notification"
	"github.com/smallbiznis/ridepay/internal/observability/logger"
	"github.com/smallbiznis/ridepay/internal/observability/metrics"
	paymentkeydomain "github.com/smallbiznis/ridepay/internal/paymentkey/domain"
	"github.com/smallbiznis/ridepay/internal/ratelimit"
	recorddomain "github.com/smallbiznis/ridepay/internal/record/domain"
	"github.com/smallbiznis/ridepay/internal/webhook/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	eventPayment = "payment"
	eventRefund  = "refund"
)

type Params struct {
	fx.In

	Log      *zap.Logger
	Clock    clock.Clock
	Records  recorddomain.Service
	Keys     paymentkeydomain.Service
	Accounts coreservicedomain.Accounts
	Notifier notification.Sender
	Locks    ratelimit.Mutex
	Tracker  errtrack.Reporter
	Metrics  *metrics.Metrics `optional:"true"`
}

type Service struct {
	log      *zap.Logger
	clock    clock.Clock
	records  recorddomain.Service
	keys     paymentkeydomain.Service
	accounts coreservicedomain.Accounts
	notifier notification.Sender
	locks    ratelimit.Mutex
	tracker  errtrack.Reporter
	metrics  *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		log:      p.Log.Named("webhook.service"),
		clock:    p.Clock,
		records:  p.Records,
		keys:     p.Keys,
		accounts: p.Accounts,
		notifier: p.Notifier,
		locks:    p.Locks,
		tracker:  p.Tracker,
		metrics:  p.Metrics,
	}
}

// OnPayment records and charges a ride platform payment once per paymentId.
// Charge failures leave an unpaid record for the scheduler.
func (s *Service) OnPayment(ctx context.Context, event domain.PaymentEvent) (result domain.Result, err error) {
	defer func() { s.metrics.RecordWebhookEvent(ctx, eventPayment, paymentOutcome(result, err)) }()

	data := event.Data
	paymentID := strings.TrimSpace(data.PaymentID)
	userID := strings.TrimSpace(data.Ride.UserID)
	if paymentID == "" || userID == "" || data.Amount < 0 {
		return domain.Result{}, domain.ErrInvalidPayload
	}

	unlock, err := s.locks.Lock(ctx, "ridepay:lock:webhook:"+paymentID)
	if err != nil {
		return domain.Result{}, err
	}
	defer unlock()

	existing, err := s.records.GetRecordByOpenAPIPaymentID(ctx, paymentID, "")
	switch {
	case err == nil:
		return domain.Result{Record: existing, Duplicate: true}, nil
	case !errors.Is(err, recorddomain.ErrNotFound):
		return domain.Result{}, err
	}

	key, err := s.keys.ByFranchise(ctx, data.FranchiseID)
	if err != nil {
		return domain.Result{}, err
	}
	user, err := s.accounts.GetUser(ctx, userID)
	if err != nil {
		return domain.Result{}, err
	}

	description := s.describe(data)
	record, err := s.records.CreateRecord(ctx, user.UserID, recorddomain.CreateRecordRequest{
		Amount:       data.Amount,
		Name:         recordName(data),
		Description:  &description,
		Properties:   &recorddomain.Properties{OpenAPI: data.OpenAPI()},
		PaymentKeyID: &key.ID,
	})
	if err != nil {
		return domain.Result{}, err
	}

	record, err = s.records.InvokePayment(ctx, recorddomain.InvokePaymentRequest{
		User:       user,
		Record:     record,
		PaymentKey: key,
		Required:   false,
	})
	if err != nil {
		return domain.Result{}, err
	}

	s.notify(ctx, notification.PaymentResult(user, record))
	s.updateRidePrice(ctx, data.RideID)
	return domain.Result{Record: record}, nil
}

// OnRefund refunds the record created for the event's paymentId.
func (s *Service) OnRefund(ctx context.Context, event domain.RefundEvent) (result domain.Result, err error) {
	defer func() { s.metrics.RecordWebhookEvent(ctx, eventRefund, refundOutcome(err)) }()

	paymentID := strings.TrimSpace(event.Data.PaymentID)
	if paymentID == "" {
		return domain.Result{}, domain.ErrInvalidPayload
	}

	record, err := s.records.GetRecordByOpenAPIPaymentID(ctx, paymentID, "")
	if err != nil {
		if errors.Is(err, recorddomain.ErrNotFound) {
			return domain.Result{}, fmt.Errorf("%w: %s", domain.ErrCannotFindRecord, paymentID)
		}
		return domain.Result{}, err
	}

	before := record.Amount
	refunded, err := s.records.RefundRecord(ctx, record, recorddomain.RefundRequest{
		Amount: event.Amount,
		Reason: event.Reason,
	})
	if err != nil {
		return domain.Result{}, err
	}

	rideID := event.Data.RideID
	if props := refunded.Properties.Data(); props.OpenAPI != nil && props.OpenAPI.RideID != "" {
		rideID = props.OpenAPI.RideID
	}
	s.updateRidePrice(ctx, rideID)

	user, err := s.accounts.GetUser(ctx, refunded.UserID)
	if err != nil {
		s.capture(ctx, "refund notification skipped", err, refunded)
		return domain.Result{Record: refunded}, nil
	}
	s.notify(ctx, notification.Refund(user, refunded, before-refunded.Amount))
	return domain.Result{Record: refunded}, nil
}

func (s *Service) describe(data domain.Payment) string {
	if data.PaymentType != domain.PaymentTypeService {
		return "이용이 불가능한 곳에 반납을 하여 추가금액이 발생했어요."
	}

	var minutes int64
	if started := data.Ride.StartedAt; started != nil {
		end := s.clock.Now()
		if data.Ride.TerminatedAt != nil {
			end = *data.Ride.TerminatedAt
		}
		if d := end.Sub(*started); d > 0 {
			minutes = int64(d.Minutes())
		}
	}
	return fmt.Sprintf("%d분만큼 %s 킥보드를 이용했어요.", minutes, data.Ride.KickboardCode)
}

func recordName(data domain.Payment) string {
	kind := "추가금"
	if data.PaymentType == domain.PaymentTypeService {
		kind = "이용료"
	}
	return fmt.Sprintf("[%s] %s 킥보드", kind, data.Ride.KickboardCode)
}

func (s *Service) notify(ctx context.Context, msg notification.Message) {
	if err := s.notifier.Send(ctx, msg); err != nil {
		eventID := s.tracker.Capture(ctx, err, zap.String("template", msg.Name))
		logger.WithContext(ctx, s.log).Warn("notification failed",
			zap.String("template", msg.Name),
			zap.String("event_id", eventID),
		)
	}
}

func (s *Service) updateRidePrice(ctx context.Context, rideID string) {
	if strings.TrimSpace(rideID) == "" {
		return
	}
	if err := s.records.UpdateRidePrice(ctx, rideID); err != nil {
		eventID := s.tracker.Capture(ctx, err, zap.String("ride_id", rideID))
		logger.WithContext(ctx, s.log).Warn("ride price update failed",
			zap.String("ride_id", rideID),
			zap.String("event_id", eventID),
		)
	}
}

func (s *Service) capture(ctx context.Context, msg string, err error, record recorddomain.Record) {
	eventID := s.tracker.Capture(ctx, err, zap.String("record_id", record.ID.String()))
	logger.WithContext(ctx, s.log).Warn(msg,
		zap.String("record_id", record.ID.String()),
		zap.String("event_id", eventID),
	)
}

func paymentOutcome(result domain.Result, err error) string {
	switch {
	case err != nil:
		return "failed"
	case result.Duplicate:
		return "duplicate"
	case result.Record.ProcessedAt != nil:
		return "paid"
	default:
		return "unpaid"
	}
}

func refundOutcome(err error) string {
	switch {
	case err == nil:
		return "refunded"
	case errors.Is(err, domain.ErrCannotFindRecord):
		return "not_found"
	default:
		return "failed"
	}
}
