package ratelimit

import (
	"context"
	"fmt"
	"strings"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/propbill/internal/config"
)

const keyInvoiceGenerateOrg = "propbill:invoice:generate:org:%s"

// GenerateLimiter throttles on-demand invoice generation per organization.
// A nil or disabled limiter allows everything.
type GenerateLimiter struct {
	bucket *TokenBucket
	rate   float64
	burst  int
}

func NewGenerateLimiter(cfg config.Config, client *redis.Client) *GenerateLimiter {
	limitCfg := cfg.RateLimit
	if client == nil || limitCfg.GenerateRate <= 0 || limitCfg.GenerateBurst <= 0 {
		return nil
	}
	return &GenerateLimiter{
		bucket: NewTokenBucket(client),
		rate:   limitCfg.GenerateRate,
		burst:  limitCfg.GenerateBurst,
	}
}

func (l *GenerateLimiter) Enabled() bool {
	return l != nil && l.bucket != nil
}

func (l *GenerateLimiter) AllowOrg(ctx context.Context, orgID string) (*RateLimitResult, error) {
	if !l.Enabled() {
		return &RateLimitResult{Allowed: true}, nil
	}
	return l.bucket.Allow(ctx, fmt.Sprintf(keyInvoiceGenerateOrg, strings.TrimSpace(orgID)), l.rate, l.burst)
}
