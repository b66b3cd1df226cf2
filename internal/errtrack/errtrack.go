// Package errtrack records unexpected failures under a sortable event id that
// can be quoted back to operators.
package errtrack

import (
	"context"
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/smallbiznis/ridepay/internal/observability/logger"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Reporter interface {
	// Capture records err and returns its event id. A nil err returns "".
	Capture(ctx context.Context, err error, fields ...zap.Field) string
}

type reporter struct {
	log *zap.Logger

	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

func New(log *zap.Logger) Reporter {
	return &reporter{
		log:     log.Named("errtrack"),
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

func (r *reporter) Capture(ctx context.Context, err error, fields ...zap.Field) string {
	if err == nil {
		return ""
	}

	eventID := r.newID()
	base := logger.WithContext(ctx, r.log)
	base.Error("captured error",
		append([]zap.Field{zap.String("event_id", eventID), zap.Error(err)}, fields...)...,
	)
	return eventID
}

func (r *reporter) newID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), r.entropy).String()
}

// Nop discards reports but still issues event ids.
type Nop struct{}

func (Nop) Capture(_ context.Context, err error, _ ...zap.Field) string {
	if err == nil {
		return ""
	}
	return ulid.Make().String()
}

var Module = fx.Module("errtrack",
	fx.Provide(New),
)
