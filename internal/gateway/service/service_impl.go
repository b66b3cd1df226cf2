package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/ridepay/internal/gateway/domain"
	paymentkeydomain "github.com/smallbiznis/ridepay/internal/paymentkey/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log      *zap.Logger
	Provider domain.Provider
	Keys     paymentkeydomain.Service
}

type Service struct {
	log      *zap.Logger
	provider domain.Provider
	keys     paymentkeydomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		log:      p.Log.Named("gateway.service"),
		provider: p.Provider,
		keys:     p.Keys,
	}
}

func (s *Service) CreateBillingToken(ctx context.Context, card domain.CardDetails, paymentKeyID *snowflake.ID) (domain.BillingToken, error) {
	card, err := domain.ValidateCard(card)
	if err != nil {
		return domain.BillingToken{}, err
	}

	key, err := s.keys.Resolve(ctx, paymentKeyID)
	if err != nil {
		return domain.BillingToken{}, fmt.Errorf("resolve payment key: %w", err)
	}

	token, err := s.provider.GenerateBillingKey(ctx, credentials(key), card)
	if err != nil {
		return domain.BillingToken{}, err
	}
	if strings.TrimSpace(token.Token) == "" {
		return domain.BillingToken{}, &domain.ProviderError{
			Operation: domain.OperationGenerate,
			Code:      "",
			Message:   "empty billing key",
		}
	}
	return token, nil
}

func (s *Service) Charge(ctx context.Context, req domain.ChargeRequest, paymentKeyID *snowflake.ID) (string, error) {
	if err := domain.ValidateCharge(req); err != nil {
		return "", err
	}

	primary, err := s.keys.Primary(ctx)
	if err != nil {
		return "", fmt.Errorf("resolve primary payment key: %w", err)
	}
	sub := primary
	if paymentKeyID != nil && *paymentKeyID != 0 && *paymentKeyID != primary.ID {
		sub, err = s.keys.Get(ctx, *paymentKeyID)
		if err != nil {
			return "", fmt.Errorf("resolve payment key: %w", err)
		}
	}

	tid, err := s.provider.PayWithToken(ctx, credentials(primary), credentials(sub), req)
	if err != nil {
		return "", err
	}
	s.log.Info("charge accepted",
		zap.String("payment_key_id", sub.ID.String()),
		zap.Int64("amount", req.Amount),
	)
	return tid, nil
}

func (s *Service) Refund(ctx context.Context, req domain.RefundRequest, paymentKeyID *snowflake.ID) error {
	if err := domain.ValidateRefund(req); err != nil {
		return err
	}

	key, err := s.keys.Resolve(ctx, paymentKeyID)
	if err != nil {
		return fmt.Errorf("resolve payment key: %w", err)
	}

	if err := s.provider.Cancel(ctx, credentials(key), req); err != nil {
		return err
	}
	s.log.Info("refund accepted",
		zap.String("payment_key_id", key.ID.String()),
		zap.Int64("amount", req.Amount),
		zap.Bool("partial", req.Partial),
	)
	return nil
}

func (s *Service) RevokeToken(ctx context.Context, token string, paymentKeyID *snowflake.ID) error {
	if strings.TrimSpace(token) == "" {
		return &domain.ValidationError{Field: "token", Reason: "required"}
	}

	key, err := s.keys.Resolve(ctx, paymentKeyID)
	if err != nil {
		return fmt.Errorf("resolve payment key: %w", err)
	}
	return s.provider.DeleteBillingKey(ctx, credentials(key), token)
}

func credentials(key paymentkeydomain.PaymentKey) domain.Credentials {
	return domain.Credentials{Identity: key.Identity, SecretKey: key.SecretKey}
}
