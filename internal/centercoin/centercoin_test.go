package centercoin

import (
	"context"
	"errors"
	"testing"

	"github.com/smallbiznis/ridepay/internal/config"
	coreservicedomain "github.com/smallbiznis/ridepay/internal/coreservice/domain"
	"github.com/smallbiznis/ridepay/internal/errtrack"
	"go.uber.org/zap"
)

type call struct {
	op     string
	userID string
	amount int64
	msg    string
}

type fakeAccounts struct {
	coreservicedomain.Accounts
	calls []call
	err   error
}

func (f *fakeAccounts) AddCentercoin(_ context.Context, userID string, amount int64, message string) error {
	f.calls = append(f.calls, call{"add", userID, amount, message})
	return f.err
}

func (f *fakeAccounts) RemoveCentercoin(_ context.Context, userID string, amount int64, message string) error {
	f.calls = append(f.calls, call{"remove", userID, amount, message})
	return f.err
}

func newRewarder(enabled bool, accounts *fakeAccounts) Rewarder {
	return New(Params{
		Config:   config.Config{Centercoin: config.CentercoinConfig{Enabled: enabled, Ratio: 0.1}},
		Log:      zap.NewNop(),
		Accounts: accounts,
		Tracker:  errtrack.Nop{},
	})
}

func TestGiveAndTakeFloorTenPercent(t *testing.T) {
	accounts := &fakeAccounts{}
	r := newRewarder(true, accounts)

	r.Give(context.Background(), "u-1", 12345, "[이용료] AB12 킥보드")
	r.Take(context.Background(), "u-1", 4009, "[이용료] AB12 킥보드")
	r.Give(context.Background(), "u-1", 9, "too small")

	if len(accounts.calls) != 2 {
		t.Fatalf("expected two calls, got %+v", accounts.calls)
	}
	if accounts.calls[0] != (call{"add", "u-1", 1234, "[이용료] AB12 킥보드"}) {
		t.Fatalf("unexpected give call %+v", accounts.calls[0])
	}
	if accounts.calls[1].op != "remove" || accounts.calls[1].amount != 400 {
		t.Fatalf("unexpected take call %+v", accounts.calls[1])
	}
}

func TestDisabledRewarderSkipsAccounts(t *testing.T) {
	accounts := &fakeAccounts{}
	newRewarder(false, accounts).Give(context.Background(), "u-1", 10000, "ride")
	if len(accounts.calls) != 0 {
		t.Fatalf("expected no calls, got %+v", accounts.calls)
	}
}

func TestFailuresAreSwallowed(t *testing.T) {
	accounts := &fakeAccounts{err: errors.New("accounts down")}
	r := newRewarder(true, accounts)
	r.Give(context.Background(), "u-1", 10000, "ride")
	r.Take(context.Background(), "u-1", 10000, "ride")
	if len(accounts.calls) != 2 {
		t.Fatalf("expected both calls attempted, got %d", len(accounts.calls))
	}
}
