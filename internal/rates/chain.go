package rates

import (
	"context"
	"time"

	"github.com/jhango/pricesync/internal/pricing"
	"github.com/jhango/pricesync/pkg/logger"
)

// Chain tries each source in order and returns the first rate obtained.
type Chain struct {
	sources []Source
	logger  *logger.Logger
}

// NewChain builds a rate source that falls through the given sources.
func NewChain(log *logger.Logger, sources ...Source) *Chain {
	return &Chain{sources: sources, logger: log.WithField("component", "rates")}
}

// Fetch returns the first rate any source produces. ErrRateUnavailable is
// returned only when every source fails.
func (c *Chain) Fetch(ctx context.Context, kind pricing.MaterialKind) (float64, time.Time, error) {
	var lastErr error
	for i, source := range c.sources {
		rate, fetchedAt, err := source.Fetch(ctx, kind)
		if err == nil {
			return rate, fetchedAt, nil
		}
		lastErr = err
		if i < len(c.sources)-1 {
			c.logger.WithError(err).WithField("metal", string(kind)).Warn("Rate source failed, trying fallback")
		}
	}
	if lastErr == nil {
		lastErr = ErrRateUnavailable
	}
	return 0, time.Time{}, lastErr
}
