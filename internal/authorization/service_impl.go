package authorization

import (
	"context"
	_ "embed"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	"github.com/smallbiznis/ridepay/internal/observability/logger"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

//go:embed model.conf
var modelText string

const (
	ObjectCard        = "card"
	ObjectCoupon      = "coupon"
	ObjectCouponGroup = "coupon_group"
	ObjectRecord      = "record"
	ObjectReadiness   = "readiness"
	ObjectWebhook     = "webhook"
	ObjectGateway     = "gateway"
)

const (
	ActionView    = "view"
	ActionCreate  = "create"
	ActionUpdate  = "update"
	ActionDelete  = "delete"
	ActionReorder = "reorder"
	ActionRedeem  = "redeem"
	ActionRetry   = "retry"
	ActionRefund  = "refund"
	ActionIngest  = "ingest"
	ActionInvoke  = "invoke"
)

const (
	roleUser     = "role:user"
	roleInternal = "role:internal"
)

type Params struct {
	fx.In

	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
}

type ServiceImpl struct {
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
}

// NewEnforcer builds an in-memory enforcer seeded with the route policy.
func NewEnforcer() (*casbin.SyncedEnforcer, error) {
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	if err := enforcer.BuildRoleLinks(); err != nil {
		return nil, err
	}
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, actor string, object string, action string) error {
	actor = strings.TrimSpace(actor)
	object = strings.TrimSpace(object)
	if object == "" {
		return ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return ErrInvalidAction
	}

	roleName, err := roleFor(actor)
	if err != nil {
		return err
	}

	allowed, err := s.enforcer.Enforce(roleName, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		logger.WithContext(ctx, s.log).Info("authorization denied",
			zap.String("role", roleName),
			zap.String("object", object),
			zap.String("action", action),
		)
		return ErrForbidden
	}
	return nil
}

func roleFor(actor string) (string, error) {
	kind, id, ok := strings.Cut(actor, ":")
	if !ok || strings.TrimSpace(id) == "" {
		return "", ErrInvalidActor
	}
	switch kind {
	case "user":
		return roleUser, nil
	case "internal":
		return roleInternal, nil
	default:
		return "", ErrInvalidActor
	}
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	policies := [][]string{
		// Riders manage their own cards and coupons and settle their records.
		{roleUser, ObjectCard, ActionView},
		{roleUser, ObjectCard, ActionCreate},
		{roleUser, ObjectCard, ActionDelete},
		{roleUser, ObjectCard, ActionReorder},
		{roleUser, ObjectCoupon, ActionView},
		{roleUser, ObjectCoupon, ActionCreate},
		{roleUser, ObjectCoupon, ActionRedeem},
		{roleUser, ObjectCoupon, ActionDelete},
		{roleUser, ObjectRecord, ActionView},
		{roleUser, ObjectRecord, ActionRetry},

		// Internal callers inherit rider permissions.
		{roleInternal, ObjectCard, "*"},
		{roleInternal, ObjectCoupon, "*"},
		{roleInternal, ObjectCouponGroup, "*"},
		{roleInternal, ObjectRecord, "*"},
		{roleInternal, ObjectReadiness, ActionView},
		{roleInternal, ObjectWebhook, ActionIngest},
		{roleInternal, ObjectGateway, ActionInvoke},
	}

	for _, policy := range policies {
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}
	_, err := enforcer.AddGroupingPolicy(roleInternal, roleUser)
	return err
}

var Module = fx.Module("authorization",
	fx.Provide(NewEnforcer),
	fx.Provide(NewService),
)
