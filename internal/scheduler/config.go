package scheduler

import (
	"time"

	"github.com/smallbiznis/propbill/internal/config"
)

// Config controls the monthly invoice run.
type Config struct {
	Enabled    bool
	JobTimeout time.Duration
	LockTTL    time.Duration
}

func DefaultConfig() Config {
	return Config{
		Enabled:    true,
		JobTimeout: 10 * time.Minute,
		LockTTL:    15 * time.Minute,
	}
}

func ProvideConfig(cfg config.Config) Config {
	out := DefaultConfig()
	out.Enabled = cfg.SchedulerEnabled
	if ttl := cfg.RateLimit.SchedulerLockTTLSeconds; ttl > 0 {
		out.LockTTL = time.Duration(ttl) * time.Second
	}
	return out
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.JobTimeout <= 0 {
		c.JobTimeout = defaults.JobTimeout
	}
	if c.LockTTL <= 0 {
		c.LockTTL = defaults.LockTTL
	}
	return c
}
