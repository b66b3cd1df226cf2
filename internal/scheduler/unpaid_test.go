package scheduler

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/prometheus/client_golang/prometheus"
	carddomain "github.com/smallbiznis/ridepay/internal/card/domain"
	"github.com/smallbiznis/ridepay/internal/clock"
	coreservicedomain "github.com/smallbiznis/ridepay/internal/coreservice/domain"
	dunningdomain "github.com/smallbiznis/ridepay/internal/dunning/domain"
	"github.com/smallbiznis/ridepay/internal/errtrack"
	"github.com/smallbiznis/ridepay/internal/notification"
	recorddomain "github.com/smallbiznis/ridepay/internal/record/domain"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var sweepTime = time.Date(2024, 5, 1, 3, 0, 0, 0, time.UTC)

type fakeRecords struct {
	recorddomain.Service

	mu      sync.Mutex
	records map[snowflake.ID]recorddomain.Record
	payable map[string]bool
	retries map[snowflake.ID]int
}

func (f *fakeRecords) GetRecords(_ context.Context, req recorddomain.ListRecordRequest) (recorddomain.ListRecordResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var unpaid []recorddomain.Record
	for _, record := range f.records {
		if !req.OnlyUnpaid || record.IsUnpaid() {
			unpaid = append(unpaid, record)
		}
	}
	sort.Slice(unpaid, func(i, j int) bool { return unpaid[i].ID < unpaid[j].ID })

	resp := recorddomain.ListRecordResponse{Total: int64(len(unpaid))}
	if req.Skip < len(unpaid) {
		end := req.Skip + req.Take
		if end > len(unpaid) {
			end = len(unpaid)
		}
		resp.Records = unpaid[req.Skip:end]
	}
	return resp, nil
}

func (f *fakeRecords) RetryPayment(_ context.Context, user coreservicedomain.User, record recorddomain.Record) (recorddomain.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.retries[record.ID]++
	if record.ProcessedAt != nil {
		return recorddomain.Record{}, recorddomain.ErrAlreadyPaid
	}
	if !f.payable[user.UserID] {
		return recorddomain.Record{}, recorddomain.ErrNoAvailableCard
	}
	cardID := snowflake.ID(500)
	tid := "tid"
	now := sweepTime
	record.CardID = &cardID
	record.TID = &tid
	record.ProcessedAt = &now
	f.records[record.ID] = record
	return record, nil
}

type fakeCards struct {
	carddomain.Service
}

func (fakeCards) Get(_ context.Context, userID string, cardID snowflake.ID, _ bool) (carddomain.Card, error) {
	return carddomain.Card{ID: cardID, UserID: userID, CardName: "국민카드 1234"}, nil
}

type dunningEntry struct {
	recordID snowflake.ID
	channel  dunningdomain.Channel
}

type fakeDunnings struct {
	dunningdomain.Service

	mu           sync.Mutex
	entries      []dunningEntry
	allowMessage bool
	retryEnabled bool
}

func (f *fakeDunnings) Add(_ context.Context, recordID snowflake.ID, channel dunningdomain.Channel) (dunningdomain.Dunning, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, dunningEntry{recordID: recordID, channel: channel})
	return dunningdomain.Dunning{}, nil
}

func (f *fakeDunnings) ShouldMessage(context.Context, snowflake.ID) (bool, error) {
	return f.allowMessage, nil
}

func (f *fakeDunnings) RetryEnabled() bool {
	return f.retryEnabled
}

func (f *fakeDunnings) count(channel dunningdomain.Channel) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, e := range f.entries {
		if e.channel == channel {
			n++
		}
	}
	return n
}

type fakeAccounts struct {
	coreservicedomain.Accounts

	mu      sync.Mutex
	missing map[string]bool
	calls   map[string]int
}

func (f *fakeAccounts) GetUser(_ context.Context, userID string) (coreservicedomain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[userID]++
	if f.missing[userID] {
		return coreservicedomain.User{}, &coreservicedomain.UpstreamError{Service: "accounts", StatusCode: 404}
	}
	return coreservicedomain.User{UserID: userID, Realname: "김라이더", PhoneNo: "010-0000-" + userID}, nil
}

type fakeSender struct {
	mu   sync.Mutex
	sent []notification.Message
}

func (f *fakeSender) Send(_ context.Context, msg notification.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeSender) byTemplate(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, msg := range f.sent {
		if msg.Name == name {
			n++
		}
	}
	return n
}

type fakeMonitoring struct {
	reports []coreservicedomain.RunMetrics
}

func (f *fakeMonitoring) Report(_ context.Context, monitorID string, metrics coreservicedomain.RunMetrics) error {
	if monitorID == "" {
		return errors.New("missing monitor")
	}
	f.reports = append(f.reports, metrics)
	return nil
}

type sweepFixture struct {
	sched      *Scheduler
	records    *fakeRecords
	dunnings   *fakeDunnings
	accounts   *fakeAccounts
	sender     *fakeSender
	monitoring *fakeMonitoring
}

// newSweepFixture seeds n unpaid records owned round-robin by users a, b
// and c. a can pay, b cannot, c does not resolve.
func newSweepFixture(t *testing.T, n int) sweepFixture {
	t.Helper()
	restore := swapPrometheusRegistry(prometheus.NewRegistry())
	t.Cleanup(restore)

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	owners := []string{"a", "b", "c"}
	records := &fakeRecords{
		records: map[snowflake.ID]recorddomain.Record{},
		payable: map[string]bool{"a": true},
		retries: map[snowflake.ID]int{},
	}
	for i := 0; i < n; i++ {
		id := snowflake.ID(i + 1)
		records.records[id] = recorddomain.Record{
			ID:            id,
			UserID:        owners[i%len(owners)],
			Amount:        1000,
			InitialAmount: 1000,
			Name:          "[이용료] K123 킥보드",
			CreatedAt:     sweepTime.Add(-time.Duration(n-i) * time.Minute),
		}
	}

	dunnings := &fakeDunnings{allowMessage: true, retryEnabled: true}
	accounts := &fakeAccounts{missing: map[string]bool{"c": true}, calls: map[string]int{}}
	sender := &fakeSender{}
	monitoring := &fakeMonitoring{}

	sched, err := New(Params{
		Log:        zap.NewNop(),
		GenID:      node,
		Clock:      clock.NewFake(sweepTime),
		Records:    records,
		Cards:      fakeCards{},
		Dunnings:   dunnings,
		Accounts:   accounts,
		Monitoring: monitoring,
		Notifier:   sender,
		Tracker:    errtrack.Nop{},
		Config:     Config{PageSize: 10, Parallelism: 4, MonitorID: "monitor-1"},
	})
	require.NoError(t, err)

	return sweepFixture{
		sched:      sched,
		records:    records,
		dunnings:   dunnings,
		accounts:   accounts,
		sender:     sender,
		monitoring: monitoring,
	}
}

func TestUnpaidSweepVisitsEveryRecordOnce(t *testing.T) {
	f := newSweepFixture(t, 25)

	require.NoError(t, f.sched.RunOnce(context.Background()))

	// c never resolves, so its records are never retried.
	for id, record := range f.records.records {
		switch record.UserID {
		case "c":
			require.Zero(t, f.records.retries[id], "record %s", id)
		default:
			require.Equal(t, 1, f.records.retries[id], "record %s", id)
		}
	}
	require.Equal(t, 1, f.accounts.calls["c"])

	paidA, owedB := 0, 0
	for _, record := range f.records.records {
		switch record.UserID {
		case "a":
			require.NotNil(t, record.ProcessedAt)
			paidA++
		case "b":
			require.Nil(t, record.ProcessedAt)
			owedB++
		}
	}

	require.Equal(t, paidA+owedB, f.dunnings.count(dunningdomain.ChannelRetry))
	require.Equal(t, owedB, f.dunnings.count(dunningdomain.ChannelMessage))
	require.Equal(t, paidA, f.sender.byTemplate(notification.TemplateUnpaidCompleted))
	require.Equal(t, owedB, f.sender.byTemplate(notification.TemplateUnpaidRequest))

	require.Len(t, f.monitoring.reports, 1)
	report := f.monitoring.reports[0]
	require.Equal(t, JobUnpaidRecords, report.Job)
	require.Equal(t, 25, report.Processed)
	require.Equal(t, paidA, report.Succeeded)
	require.Equal(t, owedB, report.Failed)
	require.Equal(t, 25-paidA-owedB, report.Skipped)
}

func TestUnpaidSweepRespectsMessageThrottle(t *testing.T) {
	f := newSweepFixture(t, 6)
	f.dunnings.allowMessage = false

	require.NoError(t, f.sched.RunOnce(context.Background()))

	require.Zero(t, f.dunnings.count(dunningdomain.ChannelMessage))
	require.Zero(t, f.sender.byTemplate(notification.TemplateUnpaidRequest))
	require.Equal(t, 2, f.sender.byTemplate(notification.TemplateUnpaidCompleted))
}

func TestUnpaidSweepWithoutRetryOnlyEscalates(t *testing.T) {
	f := newSweepFixture(t, 6)
	f.dunnings.retryEnabled = false

	require.NoError(t, f.sched.RunOnce(context.Background()))

	require.Empty(t, f.records.retries)
	require.Zero(t, f.dunnings.count(dunningdomain.ChannelRetry))
	// a and b each own two records; c is skipped.
	require.Equal(t, 4, f.dunnings.count(dunningdomain.ChannelMessage))
}

func TestUnpaidSweepStopsOnCancelledContext(t *testing.T) {
	f := newSweepFixture(t, 3)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, f.sched.UnpaidRecordsJob(ctx), context.Canceled)
	require.Empty(t, f.records.retries)
}
