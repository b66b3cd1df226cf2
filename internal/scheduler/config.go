package scheduler

import (
	"time"

	"github.com/smallbiznis/ridepay/internal/config"
)

// Config controls the unpaid sweep cadence and fan-out.
type Config struct {
	RunInterval time.Duration
	Timeout     time.Duration
	PageSize    int
	Parallelism int
	MonitorID   string
}

func DefaultConfig() Config {
	return Config{
		RunInterval: 10 * time.Minute,
		Timeout:     5 * time.Minute,
		PageSize:    10,
		Parallelism: 10,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.RunInterval <= 0 {
		c.RunInterval = defaults.RunInterval
	}
	if c.Timeout <= 0 {
		c.Timeout = defaults.Timeout
	}
	if c.PageSize <= 0 {
		c.PageSize = defaults.PageSize
	}
	if c.Parallelism <= 0 {
		c.Parallelism = defaults.Parallelism
	}
	return c
}

func ProvideConfig(cfg config.Config) Config {
	return Config{
		RunInterval: cfg.Scheduler.UnpaidInterval,
		Timeout:     cfg.Scheduler.UnpaidTimeout,
		Parallelism: cfg.Scheduler.Parallelism,
		MonitorID:   cfg.Scheduler.MonitorID,
	}.withDefaults()
}
