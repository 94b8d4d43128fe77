package repository

import (
	"context"
	"encoding/json"
	"time"

	"FinFolio/internal/domain/models"
	domrepo "FinFolio/internal/domain/repository"
	"FinFolio/internal/service/cache"
	applogger "FinFolio/pkg/logger"
)

// CachedPriceSource memoizes non-empty histories in a BytesCache.
// Cache failures degrade to a direct fetch.
type CachedPriceSource struct {
	next  domrepo.PriceSource
	cache cache.BytesCache
	ttl   time.Duration
	l     *applogger.Logger
}

func NewCachedPriceSource(next domrepo.PriceSource, c cache.BytesCache, ttl time.Duration, l *applogger.Logger) *CachedPriceSource {
	if l == nil {
		l = applogger.Nop()
	}
	return &CachedPriceSource{next: next, cache: c, ttl: ttl, l: l}
}

func priceKey(symbol string, r models.DateRange) string {
	return "prices:" + symbol + ":" + r.Start.Format(time.DateOnly) + ":" + r.End.Format(time.DateOnly)
}

func (c *CachedPriceSource) History(ctx context.Context, symbol string, r models.DateRange) (models.PriceSeries, error) {
	key := priceKey(symbol, r)
	raw, ok, err := c.cache.GetBytes(ctx, key)
	switch {
	case err != nil:
		c.l.Warn("price cache read failed", applogger.String("key", key), applogger.Error(err))
	case ok:
		var s models.PriceSeries
		if err := json.Unmarshal(raw, &s); err == nil {
			c.l.Debug("price cache hit", applogger.String("key", key))
			return s, nil
		}
		c.l.Warn("price cache entry corrupt", applogger.String("key", key))
	}

	s, err := c.next.History(ctx, symbol, r)
	if err != nil || len(s) == 0 {
		return s, err
	}
	if raw, err := json.Marshal(s); err == nil {
		if err := c.cache.SetBytes(ctx, key, raw, c.ttl); err != nil {
			c.l.Warn("price cache write failed", applogger.String("key", key), applogger.Error(err))
		}
	}
	return s, nil
}

var _ domrepo.PriceSource = (*CachedPriceSource)(nil)
