// Package fetch warms the embedding cache ahead of scoring: every corpus
// chunk is pushed through the cached embedder under a worker pool, a rate
// limiter, and a per-call timeout. Warming is idempotent because the cache
// key is content-addressed.
package fetch

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/kailas-cloud/stagegate/internal/domain"
)

// Defaults for the prefetch pool.
const (
	DefaultWorkers = 4
	DefaultRPS     = 10
	DefaultBurst   = 10
	DefaultTimeout = 30 * time.Second
)

// Config tunes the prefetch pool.
type Config struct {
	Workers int
	RPS     float64
	Burst   int
	Timeout time.Duration
}

// ApplyDefaults fills zero values.
func (c *Config) ApplyDefaults() {
	if c.Workers < 1 {
		c.Workers = DefaultWorkers
	}
	if c.RPS <= 0 {
		c.RPS = DefaultRPS
	}
	if c.Burst < 1 {
		c.Burst = DefaultBurst
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
}

// Stats counts warmed chunks across the pool.
type Stats struct {
	Warmed int64
	Failed int64
}

// Prefetcher drives the warm pass.
type Prefetcher struct {
	embedder domain.Embedder
	limiter  *rate.Limiter
	cfg      Config
	logger   *zap.Logger
}

// New creates a prefetcher over the cached embedder.
func New(embedder domain.Embedder, cfg Config, logger *zap.Logger) *Prefetcher {
	cfg.ApplyDefaults()
	return &Prefetcher{
		embedder: embedder,
		limiter:  rate.NewLimiter(rate.Limit(cfg.RPS), cfg.Burst),
		cfg:      cfg,
		logger:   logger,
	}
}

// Warm embeds every chunk once. The first failure cancels the pool: a partial
// cache is unusable for replay, so warming does not continue past errors.
func (p *Prefetcher) Warm(ctx context.Context, chunks []domain.Chunk) (Stats, error) {
	var warmed, failed atomic.Int64

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Workers)

	start := time.Now()
	for _, c := range chunks {
		c := c
		g.Go(func() error {
			if err := p.limiter.Wait(ctx); err != nil {
				return err
			}

			callCtx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
			defer cancel()

			if _, err := p.embedder.Embed(callCtx, c.Text); err != nil {
				failed.Add(1)
				return fmt.Errorf("warm chunk %s: %w", c.ChunkID, err)
			}
			warmed.Add(1)
			return nil
		})
	}

	err := g.Wait()
	stats := Stats{Warmed: warmed.Load(), Failed: failed.Load()}
	if err != nil {
		return stats, err
	}

	p.logger.Info("Cache warmed",
		zap.Int64("chunks", stats.Warmed),
		zap.Duration("elapsed", time.Since(start)),
	)
	return stats, nil
}
