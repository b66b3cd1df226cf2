package scheduler

import (
	"context"

	"github.com/smallbiznis/ridepay/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("scheduler",
	fx.Provide(ProvideConfig),
	fx.Provide(New),
	fx.Invoke(startSweep),
)

// startSweep runs the unpaid sweep for the life of the app unless this
// process is API-only. Stop waits for the in-flight pass to return.
func startSweep(lc fx.Lifecycle, cfg config.Config, sched *Scheduler) {
	if !cfg.RunsScheduler() {
		sched.log.Info("unpaid sweep disabled", zap.String("mode", cfg.Mode))
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			sched.log.Info("unpaid sweep started",
				zap.Duration("interval", sched.cfg.RunInterval),
				zap.Int("parallelism", sched.cfg.Parallelism),
			)
			go func() {
				defer close(done)
				sched.RunForever(ctx)
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-done:
			case <-stopCtx.Done():
				return stopCtx.Err()
			}
			return nil
		},
	})
}
