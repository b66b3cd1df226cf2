package config

import (
	"testing"
	"time"
)

func TestDunningPolicyHolderFallsBackToDefaults(t *testing.T) {
	var holder *DunningPolicyHolder
	if got := holder.Get(); got != DefaultDunningPolicy() {
		t.Fatalf("expected default policy, got %+v", got)
	}

	holder = &DunningPolicyHolder{}
	if got := holder.Get(); got != DefaultDunningPolicy() {
		t.Fatalf("expected default policy for empty holder, got %+v", got)
	}
}

func TestValidateDunningPolicy(t *testing.T) {
	tests := []struct {
		name    string
		policy  DunningPolicy
		wantErr bool
	}{
		{name: "defaults", policy: DefaultDunningPolicy()},
		{name: "zero cooldown", policy: DunningPolicy{MessageCooldown: 0, MaxMessages: 1}},
		{name: "negative cooldown", policy: DunningPolicy{MessageCooldown: -time.Second}, wantErr: true},
		{name: "negative cap", policy: DunningPolicy{MaxMessages: -1}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateDunningPolicy(tt.policy)
			if (err != nil) != tt.wantErr {
				t.Fatalf("validateDunningPolicy() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNormalizeMode(t *testing.T) {
	cases := map[string]string{
		"":           ModeAll,
		"API":        ModeAPI,
		" scheduler": ModeScheduler,
		"unknown":    ModeAll,
	}
	for in, want := range cases {
		if got := normalizeMode(in); got != want {
			t.Fatalf("normalizeMode(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRunsScheduler(t *testing.T) {
	cfg := Config{Mode: ModeAPI, Scheduler: SchedulerConfig{Enabled: true}}
	if cfg.RunsScheduler() {
		t.Fatalf("api mode must not run the scheduler")
	}
	cfg.Mode = ModeAll
	if !cfg.RunsScheduler() {
		t.Fatalf("all mode should run the scheduler when enabled")
	}
	cfg.Scheduler.Enabled = false
	if cfg.RunsScheduler() {
		t.Fatalf("disabled scheduler must not run")
	}
}
