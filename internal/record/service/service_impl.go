package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	carddomain "github.com/smallbiznis/ridepay/internal/card/domain"
	"github.com/smallbiznis/ridepay/internal/centercoin"
	"github.com/smallbiznis/ridepay/internal/clock"
	coreservicedomain "github.com/smallbiznis/ridepay/internal/coreservice/domain"
	"github.com/smallbiznis/ridepay/internal/errtrack"
	gatewaydomain "github.com/smallbiznis/ridepay/internal/gateway/domain"
	"github.com/smallbiznis/ridepay/internal/observability/metrics"
	paymentkeydomain "github.com/smallbiznis/ridepay/internal/paymentkey/domain"
	"github.com/smallbiznis/ridepay/internal/record/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Repo       domain.Repository
	Cards      carddomain.Service
	Gateway    gatewaydomain.Service
	Keys       paymentkeydomain.Service
	Accounts   coreservicedomain.Accounts
	Rides      coreservicedomain.Rides
	Platform   coreservicedomain.Platform
	Centercoin centercoin.Rewarder
	Tracker    errtrack.Reporter
	Metrics    *metrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	repo       domain.Repository
	cards      carddomain.Service
	gateway    gatewaydomain.Service
	keys       paymentkeydomain.Service
	accounts   coreservicedomain.Accounts
	rides      coreservicedomain.Rides
	platform   coreservicedomain.Platform
	centercoin centercoin.Rewarder
	tracker    errtrack.Reporter
	metrics    *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("record.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		repo:       p.Repo,
		cards:      p.Cards,
		gateway:    p.Gateway,
		keys:       p.Keys,
		accounts:   p.Accounts,
		rides:      p.Rides,
		platform:   p.Platform,
		centercoin: p.Centercoin,
		tracker:    p.Tracker,
		metrics:    p.Metrics,
	}
}

func (s *Service) CreateRecord(ctx context.Context, userID string, req domain.CreateRecordRequest) (domain.Record, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.Record{}, domain.ErrInvalidUserID
	}
	if req.Amount < 0 {
		return domain.Record{}, domain.ErrInvalidAmount
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Record{}, domain.ErrInvalidName
	}
	displayName := strings.TrimSpace(req.DisplayName)
	if displayName == "" {
		displayName = name
	}

	var props domain.Properties
	if req.Properties != nil {
		props = *req.Properties
	}

	now := s.clock.Now()
	record := domain.Record{
		ID:            s.genID.Generate(),
		UserID:        userID,
		CardID:        req.CardID,
		PaymentKeyID:  req.PaymentKeyID,
		Amount:        req.Amount,
		InitialAmount: req.Amount,
		Name:          name,
		DisplayName:   displayName,
		Description:   req.Description,
		Properties:    datatypes.NewJSONType(props),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.Insert(ctx, s.db, &record); err != nil {
		return domain.Record{}, err
	}
	return record, nil
}

func (s *Service) CreateThenPayRecord(ctx context.Context, userID string, req domain.CreateRecordRequest) (domain.Record, error) {
	key, err := s.keys.Resolve(ctx, req.PaymentKeyID)
	if err != nil {
		return domain.Record{}, err
	}
	user, err := s.accounts.GetUser(ctx, userID)
	if err != nil {
		return domain.Record{}, err
	}

	req.PaymentKeyID = &key.ID
	record, err := s.CreateRecord(ctx, user.UserID, req)
	if err != nil {
		return domain.Record{}, err
	}

	return s.InvokePayment(ctx, domain.InvokePaymentRequest{
		User:       user,
		Record:     record,
		PaymentKey: key,
		Required:   req.Required,
	})
}

// TryPayment charges the user's cards in order and stops at the first
// success. Card failures never surface as the returned error.
func (s *Service) TryPayment(ctx context.Context, user coreservicedomain.User, record domain.Record, required bool) (domain.Attempt, error) {
	cards, err := s.cards.List(ctx, record.UserID, true)
	if err != nil {
		return domain.Attempt{}, err
	}

	var attempt domain.Attempt
	for i := range cards {
		card := cards[i]
		if required && record.CardID != nil && *record.CardID != card.ID {
			continue
		}

		tid, err := s.gateway.Charge(ctx, gatewaydomain.ChargeRequest{
			Token:       card.BillingKey,
			Amount:      record.Amount,
			PayerName:   user.Realname,
			PayerPhone:  user.PhoneNo,
			ProductName: record.Name,
		}, record.PaymentKeyID)
		if err != nil {
			s.log.Info("card charge failed",
				zap.String("record_id", record.ID.String()),
				zap.String("card_id", card.ID.String()),
				zap.Error(err),
			)
			attempt.Failures = append(attempt.Failures, domain.CardFailure{CardID: card.ID, Err: err})
			continue
		}

		attempt.Card = &card
		attempt.TID = &tid
		return attempt, nil
	}
	return attempt, nil
}

func (s *Service) InvokePayment(ctx context.Context, req domain.InvokePaymentRequest) (domain.Record, error) {
	record := req.Record
	if record.PaymentKeyID == nil && req.PaymentKey.ID != 0 {
		record.PaymentKeyID = &req.PaymentKey.ID
	}

	now := s.clock.Now()
	if err := s.repo.MarkRetired(ctx, s.db, record.ID, now); err != nil {
		return domain.Record{}, err
	}
	record.RetiredAt = &now

	attempt, err := s.charge(ctx, req.User, record, req.Required)
	if err != nil {
		return domain.Record{}, err
	}
	if req.Required && !attempt.paid {
		return domain.Record{}, domain.ErrNoAvailableCard
	}

	if err := s.persistPayment(ctx, &record, attempt); err != nil {
		return domain.Record{}, err
	}
	return record, nil
}

func (s *Service) RetryPayment(ctx context.Context, user coreservicedomain.User, record domain.Record) (domain.Record, error) {
	if record.ProcessedAt != nil {
		return domain.Record{}, domain.ErrAlreadyPaid
	}

	now := s.clock.Now()
	if err := s.repo.MarkRetired(ctx, s.db, record.ID, now); err != nil {
		return domain.Record{}, err
	}
	record.RetiredAt = &now

	attempt, err := s.charge(ctx, user, record, false)
	if err != nil {
		return domain.Record{}, err
	}
	if !attempt.paid {
		return domain.Record{}, domain.ErrNoAvailableCard
	}

	if err := s.persistPayment(ctx, &record, attempt); err != nil {
		return domain.Record{}, err
	}

	if openapi := record.OpenAPI(); openapi != nil && openapi.RideID != "" && openapi.PaymentID != "" {
		if err := s.platform.MarkPaymentProcessed(ctx, openapi.RideID, openapi.PaymentID); err != nil {
			eventID := s.tracker.Capture(ctx, err, zap.String("record_id", record.ID.String()))
			s.log.Warn("cannot mark platform payment processed",
				zap.String("record_id", record.ID.String()),
				zap.String("payment_id", openapi.PaymentID),
				zap.String("event_id", eventID),
			)
		}
	}
	return record, nil
}

func (s *Service) RefundRecord(ctx context.Context, record domain.Record, req domain.RefundRequest) (domain.Record, error) {
	if record.RefundedAt != nil && record.Amount <= 0 {
		return domain.Record{}, domain.ErrAlreadyRefunded
	}

	amount := record.Amount
	if req.Amount != nil && *req.Amount < amount {
		amount = *req.Amount
	}
	if amount < 0 {
		return domain.Record{}, domain.ErrNegativeRefund
	}

	partial := amount != record.InitialAmount || record.RefundedAt != nil
	reason := strings.TrimSpace(derefString(req.Reason))
	if reason == "" {
		reason = record.Name
	}

	if record.TID != nil && amount > 0 {
		err := s.gateway.Refund(ctx, gatewaydomain.RefundRequest{
			TID:     *record.TID,
			Amount:  amount,
			Reason:  reason,
			Partial: partial,
		}, record.PaymentKeyID)
		if err != nil {
			return domain.Record{}, err
		}
	}

	now := s.clock.Now()
	refund := domain.Refund{
		Amount:     record.Amount - amount,
		Reason:     req.Reason,
		RefundedAt: now,
	}
	if err := s.repo.UpdateRefund(ctx, s.db, record.ID, refund); err != nil {
		return domain.Record{}, err
	}

	record.Amount = refund.Amount
	record.RefundedAt = &now
	record.UpdatedAt = now
	if req.Reason != nil {
		record.Reason = req.Reason
	}

	kind := "full"
	if partial {
		kind = "partial"
	}
	s.metrics.RecordRefund(ctx, kind)
	if record.ProcessedAt != nil {
		s.centercoin.Take(ctx, record.UserID, amount, record.Name)
	}

	s.log.Info("record refunded",
		zap.String("record_id", record.ID.String()),
		zap.Int64("refunded", amount),
		zap.Int64("remaining", record.Amount),
		zap.Bool("partial", partial),
	)
	return record, nil
}

func (s *Service) GetRecord(ctx context.Context, recordID snowflake.ID, userID string) (domain.Record, error) {
	record, err := s.repo.FindByID(ctx, s.db, recordID, strings.TrimSpace(userID))
	if err != nil {
		return domain.Record{}, err
	}
	if record == nil {
		return domain.Record{}, domain.ErrNotFound
	}
	return *record, nil
}

func (s *Service) GetUnpaidRecords(ctx context.Context, userID string) ([]domain.Record, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, domain.ErrInvalidUserID
	}
	items, err := s.repo.FindUnpaidByUser(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}
	return flatten(items), nil
}

func (s *Service) GetRecords(ctx context.Context, req domain.ListRecordRequest) (domain.ListRecordResponse, error) {
	field := strings.TrimSpace(req.OrderBy)
	if field == "" {
		field = "createdAt"
	}
	if _, ok := domain.SortFields[field]; !ok {
		return domain.ListRecordResponse{}, domain.ErrInvalidSortField
	}

	filter := domain.ListFilter{
		UserID:     strings.TrimSpace(req.UserID),
		Search:     strings.TrimSpace(req.Search),
		OnlyUnpaid: req.OnlyUnpaid,
		SortField:  field,
		SortDesc:   !strings.EqualFold(strings.TrimSpace(req.Sort), "asc"),
	}
	items, total, err := s.repo.List(ctx, s.db, filter, req.Page())
	if err != nil {
		return domain.ListRecordResponse{}, err
	}
	return domain.ListRecordResponse{Records: flatten(items), Total: total}, nil
}

func (s *Service) GetRecordByOpenAPIPaymentID(ctx context.Context, paymentID string, userID string) (domain.Record, error) {
	paymentID = strings.TrimSpace(paymentID)
	if paymentID == "" {
		return domain.Record{}, domain.ErrMissingPaymentRef
	}
	record, err := s.repo.FindByOpenAPIPaymentID(ctx, s.db, paymentID, strings.TrimSpace(userID))
	if err != nil {
		return domain.Record{}, err
	}
	if record == nil {
		return domain.Record{}, domain.ErrNotFound
	}
	return *record, nil
}

// UpdateRidePrice pushes the sum of the ride's unrefunded records to the
// ride core service.
func (s *Service) UpdateRidePrice(ctx context.Context, rideID string) error {
	rideID = strings.TrimSpace(rideID)
	if rideID == "" {
		return domain.ErrMissingRideID
	}

	price, err := s.repo.SumOpenAPIRideAmount(ctx, s.db, rideID)
	if err != nil {
		return err
	}
	ride, err := s.rides.GetByOpenAPIRideID(ctx, rideID)
	if err != nil {
		return fmt.Errorf("find ride %s: %w", rideID, err)
	}
	if _, err := s.rides.UpdatePrice(ctx, ride.RideID, price); err != nil {
		return fmt.Errorf("update ride %s price: %w", ride.RideID, err)
	}
	return nil
}

type chargeResult struct {
	domain.Attempt
	paid bool
}

// charge settles zero-amount records without touching the gateway.
func (s *Service) charge(ctx context.Context, user coreservicedomain.User, record domain.Record, required bool) (chargeResult, error) {
	if record.Amount == 0 {
		return chargeResult{paid: true}, nil
	}
	attempt, err := s.TryPayment(ctx, user, record, required)
	if err != nil {
		return chargeResult{}, err
	}
	if len(attempt.Failures) > 0 {
		s.log.Info("payment attempt finished with card failures",
			zap.String("record_id", record.ID.String()),
			zap.Int("failures", len(attempt.Failures)),
			zap.Bool("succeeded", attempt.Succeeded()),
		)
	}
	return chargeResult{Attempt: attempt, paid: attempt.Succeeded()}, nil
}

func (s *Service) persistPayment(ctx context.Context, record *domain.Record, result chargeResult) error {
	now := s.clock.Now()
	payment := domain.Payment{}
	if result.Card != nil {
		payment.CardID = &result.Card.ID
	}
	if result.TID != nil {
		payment.TID = result.TID
	}
	if result.paid {
		payment.ProcessedAt = &now
	}

	if err := s.repo.UpdatePayment(ctx, s.db, record.ID, payment, now); err != nil {
		return err
	}
	record.CardID = payment.CardID
	record.TID = payment.TID
	record.ProcessedAt = payment.ProcessedAt
	record.UpdatedAt = now

	if result.paid {
		s.centercoin.Give(ctx, record.UserID, record.Amount, record.Name)
	}
	return nil
}

func flatten(items []*domain.Record) []domain.Record {
	records := make([]domain.Record, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		records = append(records, *item)
	}
	return records
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

