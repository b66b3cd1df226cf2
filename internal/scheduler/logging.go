package scheduler

import (
	"context"
	"sync"
	"time"

	coreservicedomain "github.com/smallbiznis/ridepay/internal/coreservice/domain"
	obscontext "github.com/smallbiznis/ridepay/internal/observability/context"
	obslogger "github.com/smallbiznis/ridepay/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/ridepay/internal/observability/metrics"
	recorddomain "github.com/smallbiznis/ridepay/internal/record/domain"
	"go.uber.org/zap"
)

// jobRun accumulates counters for one run. Records on a page are processed
// concurrently, so every counter goes through mu.
type jobRun struct {
	job       string
	runID     string
	batchSize int
	startedAt time.Time

	mu        sync.Mutex
	processed int
	succeeded int
	failed    int
	skipped   int
	messaged  int
	errors    int
}

type jobRunKey struct{}

func (r *jobRun) AddProcessed(count int) {
	if r == nil || count <= 0 {
		return
	}
	r.mu.Lock()
	r.processed += count
	r.mu.Unlock()
}

func (r *jobRun) IncError() {
	if r == nil {
		return
	}
	r.mu.Lock()
	r.errors++
	r.mu.Unlock()
}

func (r *jobRun) Errors() int {
	if r == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.errors
}

// Outcome counts one record against its dunning outcome.
func (r *jobRun) Outcome(outcome string) {
	obsmetrics.Scheduler().IncDunningOutcome(outcome)
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.processed++
	switch outcome {
	case obsmetrics.DunningOutcomePaid:
		r.succeeded++
	case obsmetrics.DunningOutcomeSkipped:
		r.skipped++
	case obsmetrics.DunningOutcomeMessaged:
		r.messaged++
		r.failed++
	default:
		r.failed++
	}
}

func (r *jobRun) Metrics(now time.Time) coreservicedomain.RunMetrics {
	r.mu.Lock()
	defer r.mu.Unlock()
	return coreservicedomain.RunMetrics{
		Job:       r.job,
		Processed: r.processed,
		Succeeded: r.succeeded,
		Failed:    r.failed,
		Skipped:   r.skipped,
		Duration:  now.Sub(r.startedAt).Seconds(),
		Extra: map[string]any{
			"runId":    r.runID,
			"messaged": r.messaged,
			"errors":   r.errors,
		},
	}
}

func (s *Scheduler) ensureJobRun(ctx context.Context, job string, batchSize int) (context.Context, *jobRun, bool) {
	if ctx == nil {
		ctx = context.Background()
	}
	if existing := jobRunFromContext(ctx); existing != nil {
		return ctx, existing, false
	}
	run := &jobRun{
		job:       job,
		runID:     s.genID.Generate().String(),
		batchSize: batchSize,
		startedAt: s.clock.Now(),
	}
	ctx = context.WithValue(ctx, jobRunKey{}, run)
	ctx = s.withLogContext(ctx, "")
	return ctx, run, true
}

func jobRunFromContext(ctx context.Context) *jobRun {
	if ctx == nil {
		return nil
	}
	if run, ok := ctx.Value(jobRunKey{}).(*jobRun); ok {
		return run
	}
	return nil
}

func (s *Scheduler) withLogContext(ctx context.Context, userID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = obscontext.WithActor(ctx, "system", "scheduler")
	if userID != "" {
		ctx = obscontext.WithUserID(ctx, userID)
	}
	return ctx
}

func (s *Scheduler) logger(ctx context.Context) *zap.Logger {
	return obslogger.WithContext(ctx, s.log)
}

func (s *Scheduler) logJobStart(ctx context.Context, run *jobRun) {
	if run == nil {
		return
	}
	s.logger(ctx).Info("scheduler.job.start",
		zap.String("job", run.job),
		zap.String("run_id", run.runID),
		zap.Int("batch_size", run.batchSize),
	)
}

func (s *Scheduler) logJobFinish(ctx context.Context, run *jobRun) {
	if run == nil {
		return
	}
	metrics := run.Metrics(s.clock.Now())
	fields := []zap.Field{
		zap.String("job", run.job),
		zap.String("run_id", run.runID),
		zap.Int64("duration_ms", int64(metrics.Duration*1000)),
		zap.Int("processed_count", metrics.Processed),
		zap.Int("paid_count", metrics.Succeeded),
		zap.Int("unpaid_count", metrics.Failed),
		zap.Int("skipped_count", metrics.Skipped),
		zap.Int("error_count", run.Errors()),
	}
	log := s.logger(ctx)
	if run.Errors() > 0 {
		log.Warn("scheduler.job.finish", fields...)
		return
	}
	log.Info("scheduler.job.finish", fields...)
}

// logSchedulerError reports err under an errtrack event id and counts it
// against the run.
func (s *Scheduler) logSchedulerError(ctx context.Context, run *jobRun, msg string, record recorddomain.Record, err error, fields ...zap.Field) {
	if err == nil {
		return
	}
	if run != nil {
		run.IncError()
	}
	ctx = s.withLogContext(ctx, record.UserID)
	eventID := s.tracker.Capture(ctx, err, zap.String("record_id", record.ID.String()))
	baseFields := []zap.Field{
		zap.String("job", jobName(run)),
		zap.String("record_id", record.ID.String()),
		zap.String("event_id", eventID),
		zap.String("error_type", obsmetrics.ClassifySchedulerErrorType(err)),
		zap.Bool("retryable", obsmetrics.IsSchedulerErrorRetryable(err)),
	}
	s.logger(ctx).Error(msg, append(baseFields, fields...)...)
}

func jobName(run *jobRun) string {
	if run == nil {
		return ""
	}
	return run.job
}
