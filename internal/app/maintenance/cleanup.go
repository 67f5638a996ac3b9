package maintenance

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/charlesng35/accounthub/pkg/logger"
)

const (
	defaultVerificationSpec = "@hourly"
	defaultCacheSpec        = "@every 10m"
)

// CodeExpirer clears verification codes that outlived their lifetime.
type CodeExpirer interface {
	ExpireCodes(ctx context.Context) (int64, error)
}

// CachePruner removes expired cache rows.
type CachePruner interface {
	Prune(ctx context.Context, now time.Time) (int64, error)
}

// Cleaner coordinates background maintenance tasks such as expiring stale
// verification codes and pruning expired cache entries.
type Cleaner struct {
	codes  CodeExpirer
	pruner CachePruner
	cron   *cron.Cron
	now    func() time.Time
	log    *zap.Logger

	verificationSchedule string
	cacheSchedule        string
}

// Option customises the Cleaner.
type Option func(*Cleaner)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(cleaner *Cleaner) {
		if c != nil {
			cleaner.cron = c
		}
	}
}

// WithNow overrides the clock used for cleanup comparisons.
func WithNow(now func() time.Time) Option {
	return func(cleaner *Cleaner) {
		if now != nil {
			cleaner.now = now
		}
	}
}

// WithVerificationSchedule overrides the cron specification for code expiry.
func WithVerificationSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.verificationSchedule = spec
		}
	}
}

// WithCacheSchedule overrides the cron specification for cache pruning.
func WithCacheSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.cacheSchedule = spec
		}
	}
}

// WithLogger overrides the cleaner logger.
func WithLogger(log *zap.Logger) Option {
	return func(cleaner *Cleaner) {
		if log != nil {
			cleaner.log = log
		}
	}
}

// NewCleaner constructs a Cleaner with sensible defaults. Any nil dependency results in
// the corresponding cleanup job being skipped.
func NewCleaner(codes CodeExpirer, pruner CachePruner, opts ...Option) *Cleaner {
	cleaner := &Cleaner{
		codes:                codes,
		pruner:               pruner,
		now:                  time.Now,
		verificationSchedule: defaultVerificationSpec,
		cacheSchedule:        defaultCacheSpec,
		log:                  logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(cleaner)
	}

	if cleaner.cron == nil {
		cleaner.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	return cleaner
}

// Start registers cleanup jobs with the cron scheduler and launches it if at least one cleanup is enabled.
func (c *Cleaner) Start() error {
	if c.codes == nil && c.pruner == nil {
		return nil
	}

	if c.codes != nil {
		if _, err := c.cron.AddFunc(c.verificationSchedule, func() {
			_ = c.expireCodes(context.Background())
		}); err != nil {
			return err
		}
	}

	if c.pruner != nil {
		if _, err := c.cron.AddFunc(c.cacheSchedule, func() {
			_ = c.pruneCache(context.Background())
		}); err != nil {
			return err
		}
	}

	c.cron.Start()
	return nil
}

// Stop halts the underlying scheduler, waiting for any running jobs to complete.
func (c *Cleaner) Stop() context.Context {
	if c.cron == nil {
		return context.Background()
	}
	return c.cron.Stop()
}

// RunOnce executes all configured cleanup routines sequentially. Primarily used in tests
// and during graceful shutdown.
func (c *Cleaner) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var errs error
	if c.codes != nil {
		errs = multierr.Append(errs, c.expireCodes(ctx))
	}
	if c.pruner != nil {
		errs = multierr.Append(errs, c.pruneCache(ctx))
	}
	return errs
}

func (c *Cleaner) expireCodes(ctx context.Context) error {
	n, err := c.codes.ExpireCodes(ctx)
	if err != nil {
		c.log.Warn("verification code expiry failed", zap.Error(err))
		return err
	}
	if n > 0 {
		c.log.Info("expired verification codes", zap.Int64("count", n))
	}
	return nil
}

func (c *Cleaner) pruneCache(ctx context.Context) error {
	n, err := c.pruner.Prune(ctx, c.now())
	if err != nil {
		c.log.Warn("cache prune failed", zap.Error(err))
		return err
	}
	if n > 0 {
		c.log.Debug("pruned cache entries", zap.Int64("count", n))
	}
	return nil
}
