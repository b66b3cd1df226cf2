package scheduler

import (
	"context"
	"errors"
	"sync"

	"github.com/smallbiznis/ridepay/internal/cache"
	coreservicedomain "github.com/smallbiznis/ridepay/internal/coreservice/domain"
	dunningdomain "github.com/smallbiznis/ridepay/internal/dunning/domain"
	"github.com/smallbiznis/ridepay/internal/notification"
	obsmetrics "github.com/smallbiznis/ridepay/internal/observability/metrics"
	recorddomain "github.com/smallbiznis/ridepay/internal/record/domain"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// userDirectory caches accounts lookups for one page and remembers users
// that could not be resolved for the whole run.
type userDirectory struct {
	accounts coreservicedomain.Accounts
	users    cache.Cache[string, coreservicedomain.User]
	flight   singleflight.Group

	mu     sync.Mutex
	failed map[string]struct{}
}

func newUserDirectory(accounts coreservicedomain.Accounts) *userDirectory {
	return &userDirectory{
		accounts: accounts,
		users:    cache.NewTTLCache[string, coreservicedomain.User](),
		failed:   map[string]struct{}{},
	}
}

func (d *userDirectory) resetPage() {
	d.users.Clear()
}

func (d *userDirectory) lookup(ctx context.Context, userID string) (coreservicedomain.User, bool, error) {
	if user, ok, done := d.cached(userID); done {
		return user, ok, nil
	}

	// records of one user land on the same page, so concurrent lookups share a call
	v, err, _ := d.flight.Do(userID, func() (any, error) {
		if user, ok, done := d.cached(userID); done {
			if !ok {
				return nil, nil
			}
			return user, nil
		}
		user, err := d.accounts.GetUser(ctx, userID)
		if err != nil {
			d.mu.Lock()
			d.failed[userID] = struct{}{}
			d.mu.Unlock()
			return nil, err
		}
		d.users.Set(userID, user, 0)
		return user, nil
	})
	if err != nil {
		return coreservicedomain.User{}, false, err
	}
	user, ok := v.(coreservicedomain.User)
	return user, ok, nil
}

// cached reports done when userID was already resolved or already failed.
func (d *userDirectory) cached(userID string) (coreservicedomain.User, bool, bool) {
	d.mu.Lock()
	_, failed := d.failed[userID]
	d.mu.Unlock()
	if failed {
		return coreservicedomain.User{}, false, true
	}
	if user, ok := d.users.Get(userID); ok {
		return user, true, true
	}
	return coreservicedomain.User{}, false, false
}

// UnpaidRecordsJob walks unpaid records page by page, retries each charge
// and escalates the ones that stay unpaid.
func (s *Scheduler) UnpaidRecordsJob(ctx context.Context) error {
	run := jobRunFromContext(ctx)
	users := newUserDirectory(s.accounts)
	take := s.cfg.PageSize
	skip := 0

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		users.resetPage()
		page, err := s.records.GetRecords(ctx, recorddomain.ListRecordRequest{
			Take:       take,
			Skip:       skip,
			OnlyUnpaid: true,
			OrderBy:    "createdAt",
			Sort:       "asc",
		})
		if err != nil {
			return err
		}
		if len(page.Records) == 0 {
			return nil
		}

		var (
			mu       sync.Mutex
			leftOver int
		)
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(s.cfg.Parallelism)
		for i := range page.Records {
			record := page.Records[i]
			g.Go(func() error {
				if !s.processRecord(gctx, run, users, record) {
					mu.Lock()
					leftOver++
					mu.Unlock()
				}
				return nil
			})
		}
		_ = g.Wait()
		obsmetrics.Scheduler().AddBatchProcessed(JobUnpaidRecords, "records", len(page.Records))

		// Paid records leave the unpaid set, so only the ones still owed
		// advance the offset.
		skip += leftOver
		if len(page.Records) < take || page.Total <= int64(skip) {
			return nil
		}
	}
}

// processRecord reports whether the record left the unpaid set.
func (s *Scheduler) processRecord(ctx context.Context, run *jobRun, users *userDirectory, record recorddomain.Record) bool {
	ctx = s.withLogContext(ctx, record.UserID)
	log := s.logger(ctx).With(
		zap.String("record_id", record.ID.String()),
		zap.String("user_id", record.UserID),
	)

	user, ok, err := users.lookup(ctx, record.UserID)
	if err != nil {
		s.logSchedulerError(ctx, run, "scheduler.user.lookup.failed", record, err)
	}
	if !ok {
		log.Debug("unpaid record skipped, user unavailable")
		run.Outcome(obsmetrics.DunningOutcomeSkipped)
		return false
	}

	if s.dunnings.RetryEnabled() {
		paid, err := s.retry(ctx, user, record)
		switch {
		case err == nil:
			log.Info("unpaid record collected", zap.String("name", paid.Name))
			s.notifyCollected(ctx, run, user, paid)
			run.Outcome(obsmetrics.DunningOutcomePaid)
			return true
		case errors.Is(err, recorddomain.ErrAlreadyPaid):
			run.Outcome(obsmetrics.DunningOutcomeSkipped)
			return true
		case errors.Is(err, recorddomain.ErrNoAvailableCard):
			log.Info("unpaid record still unpaid", zap.String("name", record.Name))
		default:
			s.logSchedulerError(ctx, run, "scheduler.record.retry.failed", record, err)
			run.Outcome(obsmetrics.DunningOutcomeFailed)
			return false
		}
	}

	run.Outcome(s.escalate(ctx, run, user, record))
	return false
}

func (s *Scheduler) retry(ctx context.Context, user coreservicedomain.User, record recorddomain.Record) (recorddomain.Record, error) {
	if _, err := s.dunnings.Add(ctx, record.ID, dunningdomain.ChannelRetry); err != nil {
		return recorddomain.Record{}, err
	}
	return s.records.RetryPayment(ctx, user, record)
}

func (s *Scheduler) notifyCollected(ctx context.Context, run *jobRun, user coreservicedomain.User, record recorddomain.Record) {
	if record.CardID == nil {
		return
	}
	card, err := s.cards.Get(ctx, record.UserID, *record.CardID, false)
	if err != nil {
		s.logSchedulerError(ctx, run, "scheduler.card.lookup.failed", record, err)
		return
	}
	if err := s.notifier.Send(ctx, notification.UnpaidCompleted(user, card, record)); err != nil {
		s.logSchedulerError(ctx, run, "scheduler.notification.failed", record, err,
			zap.String("template", notification.TemplateUnpaidCompleted),
		)
	}
}

// escalate sends a payment request when the dunning policy allows one.
func (s *Scheduler) escalate(ctx context.Context, run *jobRun, user coreservicedomain.User, record recorddomain.Record) string {
	should, err := s.dunnings.ShouldMessage(ctx, record.ID)
	if err != nil {
		s.logSchedulerError(ctx, run, "scheduler.dunning.check.failed", record, err)
		return obsmetrics.DunningOutcomeFailed
	}
	if !should {
		return obsmetrics.DunningOutcomeThrottled
	}

	if err := s.notifier.Send(ctx, notification.UnpaidRequest(user, record)); err != nil {
		s.logSchedulerError(ctx, run, "scheduler.notification.failed", record, err,
			zap.String("template", notification.TemplateUnpaidRequest),
		)
		return obsmetrics.DunningOutcomeFailed
	}
	if _, err := s.dunnings.Add(ctx, record.ID, dunningdomain.ChannelMessage); err != nil {
		s.logSchedulerError(ctx, run, "scheduler.dunning.add.failed", record, err)
		return obsmetrics.DunningOutcomeFailed
	}
	return obsmetrics.DunningOutcomeMessaged
}
