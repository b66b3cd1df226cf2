package authorization

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
)

func newTestService(t *testing.T) Service {
	t.Helper()
	enforcer, err := NewEnforcer()
	if err != nil {
		t.Fatalf("enforcer: %v", err)
	}
	return NewService(Params{Log: zap.NewNop(), Enforcer: enforcer})
}

func TestAuthorize(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	cases := []struct {
		name   string
		actor  string
		object string
		action string
		want   error
	}{
		{"rider views cards", "user:9a1c", ObjectCard, ActionView, nil},
		{"rider retries record", "user:9a1c", ObjectRecord, ActionRetry, nil},
		{"rider cannot refund", "user:9a1c", ObjectRecord, ActionRefund, ErrForbidden},
		{"rider cannot manage groups", "user:9a1c", ObjectCouponGroup, ActionCreate, ErrForbidden},
		{"rider cannot send webhooks", "user:9a1c", ObjectWebhook, ActionIngest, ErrForbidden},
		{"internal refunds", "internal:coreservice", ObjectRecord, ActionRefund, nil},
		{"internal manages groups", "internal:coreservice", ObjectCouponGroup, ActionDelete, nil},
		{"internal inherits rider reorder", "internal:coreservice", ObjectCard, ActionReorder, nil},
		{"internal webhook", "internal:ride-platform", ObjectWebhook, ActionIngest, nil},
		{"unknown actor kind", "robot:1", ObjectCard, ActionView, ErrInvalidActor},
		{"empty actor id", "user:", ObjectCard, ActionView, ErrInvalidActor},
		{"missing object", "user:1", "", ActionView, ErrInvalidObject},
		{"missing action", "user:1", ObjectCard, " ", ErrInvalidAction},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := svc.Authorize(ctx, tc.actor, tc.object, tc.action)
			if !errors.Is(err, tc.want) {
				t.Fatalf("Authorize(%q, %q, %q) = %v, want %v", tc.actor, tc.object, tc.action, err, tc.want)
			}
		})
	}
}
