package services

import (
	"context"
	"maps"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"golang.org/x/sync/errgroup"

	"finanze/internal/cache"
	"finanze/internal/core"
	"finanze/internal/log"
	"finanze/internal/rates"
)

// RatesService serves exchange rates and metal prices through TTL caches.
type RatesService struct {
	source     RateSource
	currencies []string
	fx         *cache.LRUCache[map[string]float64]
	metals     *cache.LRUCache[rates.MetalPrice]
	logger     *log.Logger
}

func NewRatesService(source RateSource, currencies []string, ttl time.Duration, logger *log.Logger) *RatesService {
	return &RatesService{
		source:     source,
		currencies: normalizeCurrencies(currencies),
		fx:         cache.NewLRUCache[map[string]float64](32, ttl),
		metals:     cache.NewLRUCache[rates.MetalPrice](8, ttl),
		logger:     logger.WithComponent(log.ComponentRates),
	}
}

// Caches exposes the caches so a janitor can sweep them.
func (s *RatesService) Caches() []cache.Cleaner {
	return []cache.Cleaner{s.fx, s.metals}
}

// Get returns base to target rates for every configured currency.
func (s *RatesService) Get(ctx context.Context) (core.ExchangeRates, error) {
	var mu sync.Mutex
	out := make(core.ExchangeRates, len(s.currencies))

	g, gctx := errgroup.WithContext(ctx)
	for _, base := range s.currencies {
		base := base
		g.Go(func() error {
			rs, err := s.fx.GetOrLoad(base, func() (map[string]float64, error) {
				return s.source.Latest(gctx, base)
			})
			if err != nil {
				return errors.Wrapf(err, "rates for %s", base)
			}
			mu.Lock()
			out[base] = maps.Clone(rs)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.logger.ErrorContext(ctx, "Failed to load exchange rates", log.FieldError, err)
		return nil, err
	}
	return out, nil
}

// MetalPrice returns the cached spot price of one troy ounce.
func (s *RatesService) MetalPrice(ctx context.Context, t core.CommodityType) (rates.MetalPrice, error) {
	return s.metals.GetOrLoad(string(t), func() (rates.MetalPrice, error) {
		return s.source.MetalPrice(ctx, t)
	})
}

func normalizeCurrencies(in []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(in))
	for _, c := range in {
		c = strings.ToUpper(strings.TrimSpace(c))
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}
