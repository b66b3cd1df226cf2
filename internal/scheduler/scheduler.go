package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	carddomain "github.com/smallbiznis/ridepay/internal/card/domain"
	"github.com/smallbiznis/ridepay/internal/clock"
	coreservicedomain "github.com/smallbiznis/ridepay/internal/coreservice/domain"
	dunningdomain "github.com/smallbiznis/ridepay/internal/dunning/domain"
	"github.com/smallbiznis/ridepay/internal/errtrack"
	"github.com/smallbiznis/ridepay/internal/notification"
	obsmetrics "github.com/smallbiznis/ridepay/internal/observability/metrics"
	"github.com/smallbiznis/ridepay/internal/ratelimit"
	recorddomain "github.com/smallbiznis/ridepay/internal/record/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	JobUnpaidRecords = "unpaid_records"

	lockKeyPrefix = "ridepay:lock:scheduler:"
)

var ErrInvalidConfig = errors.New("invalid_scheduler_config")

type Params struct {
	fx.In

	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Records    recorddomain.Service
	Cards      carddomain.Service
	Dunnings   dunningdomain.Service
	Accounts   coreservicedomain.Accounts
	Monitoring coreservicedomain.Monitoring `optional:"true"`
	Notifier   notification.Sender
	Tracker    errtrack.Reporter
	Locker     *ratelimit.Locker `optional:"true"`
	Config     Config            `optional:"true"`
}

type Scheduler struct {
	log        *zap.Logger
	cfg        Config
	genID      *snowflake.Node
	clock      clock.Clock
	records    recorddomain.Service
	cards      carddomain.Service
	dunnings   dunningdomain.Service
	accounts   coreservicedomain.Accounts
	monitoring coreservicedomain.Monitoring
	notifier   notification.Sender
	tracker    errtrack.Reporter
	locker     *ratelimit.Locker
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.GenID == nil || p.Clock == nil || p.Records == nil || p.Cards == nil ||
		p.Dunnings == nil || p.Accounts == nil || p.Notifier == nil || p.Tracker == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		log:        p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:        p.Config.withDefaults(),
		genID:      p.GenID,
		clock:      p.Clock,
		records:    p.Records,
		cards:      p.Cards,
		dunnings:   p.Dunnings,
		accounts:   p.Accounts,
		monitoring: p.Monitoring,
		notifier:   p.Notifier,
		tracker:    p.Tracker,
		locker:     p.Locker,
	}, nil
}

func (s *Scheduler) runJob(
	parent context.Context,
	name string,
	batchSize int,
	timeout time.Duration,
	fn func(ctx context.Context) error,
) error {
	start := s.clock.Now()
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	ctx, run, owner := s.ensureJobRun(ctx, name, batchSize)
	if owner {
		s.logJobStart(ctx, run)
	}
	log := s.logger(ctx).With(
		zap.String("job", name),
		zap.String("run_id", run.runID),
	)
	schedMetrics := obsmetrics.Scheduler()
	schedMetrics.IncJobRun(name)

	err := fn(ctx)
	schedMetrics.ObserveJobDuration(name, time.Since(start))
	if owner {
		if err != nil && run.Errors() == 0 {
			run.IncError()
		}
		s.logJobFinish(ctx, run)
		s.report(ctx, run)
	}
	if err == nil {
		return nil
	}

	// deadline is a soft timeout; the next tick picks up the rest
	isTimeout := errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
	if isTimeout {
		schedMetrics.IncJobTimeout(name)
	}
	schedMetrics.IncJobError(name, err)
	if isTimeout {
		log.Warn("job timed out",
			zap.Duration("timeout", timeout),
			zap.Error(err),
		)
		return nil
	}

	return fmt.Errorf("%s: %w", name, err)
}

// RunOnce runs every job a single time. With redis configured only one
// replica runs a given job at a time.
func (s *Scheduler) RunOnce(parent context.Context) error {
	return s.withJobLock(parent, JobUnpaidRecords, func(ctx context.Context) error {
		return s.runJob(ctx, JobUnpaidRecords, s.cfg.PageSize, s.cfg.Timeout, s.UnpaidRecordsJob)
	})
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()
	nextRun := s.clock.Now().Add(s.cfg.RunInterval)
	schedMetrics := obsmetrics.Scheduler()

	for {
		runLag := s.clock.Now().Sub(nextRun)
		if runLag > 0 {
			schedMetrics.ObserveRunLoopLag(runLag)
		}
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}
		nextRun = nextRun.Add(s.cfg.RunInterval)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) withJobLock(ctx context.Context, job string, fn func(context.Context) error) error {
	if s.locker == nil {
		return fn(ctx)
	}

	key := lockKeyPrefix + job
	token, ok, err := s.locker.TryLock(ctx, key, s.cfg.Timeout+time.Minute)
	if err != nil {
		return fmt.Errorf("%s: lock: %w", job, err)
	}
	if !ok {
		obsmetrics.Scheduler().IncBatchDeferred(job, obsmetrics.SchedulerBatchDeferredReasonLockHeld)
		s.logger(ctx).Debug("scheduler.job.skipped", zap.String("job", job), zap.String("reason", "lock_held"))
		return nil
	}
	defer func() {
		if err := s.locker.Release(context.WithoutCancel(ctx), key, token); err != nil {
			s.logger(ctx).Warn("scheduler lock release failed", zap.String("job", job), zap.Error(err))
		}
	}()
	return fn(ctx)
}

// report posts run counters to the monitoring service when a monitor is set.
func (s *Scheduler) report(ctx context.Context, run *jobRun) {
	if s.monitoring == nil || s.cfg.MonitorID == "" || run == nil {
		return
	}
	metrics := run.Metrics(s.clock.Now())
	if err := s.monitoring.Report(context.WithoutCancel(ctx), s.cfg.MonitorID, metrics); err != nil {
		s.logger(ctx).Warn("scheduler monitoring report failed",
			zap.String("job", run.job),
			zap.Error(err),
		)
	}
}
