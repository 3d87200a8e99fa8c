package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"github.com/ndewijer/Crypto-Portfolio-Tracker-Backend/internal/logging"
	"github.com/ndewijer/Crypto-Portfolio-Tracker-Backend/internal/model"
)

// sharedFetchTimeout bounds one upstream lookup shared by concurrent callers.
const sharedFetchTimeout = 30 * time.Second

// PriceSource returns current unit prices. Unknown symbols are omitted from
// the result; an unreachable source fails with apperrors.ErrPriceUnavailable.
type PriceSource interface {
	GetPrices(ctx context.Context, symbols []string, currency string) (map[string]decimal.Decimal, error)
}

// PriceService is a PriceSource that keeps fetched prices for a TTL.
// Concurrent requests for the same batch share a single upstream call.
type PriceService struct {
	source          PriceSource
	ttl             time.Duration
	tracked         []string
	defaultCurrency string
	logger          *logging.Logger
	now             func() time.Time

	mu    sync.RWMutex
	cache map[string]map[string]model.CachedPrice // currency -> symbol -> price
	group singleflight.Group
}

// NewPriceService creates a PriceService. Tracked symbols are refreshed in
// defaultCurrency by Refresh even when nobody asked for them yet.
func NewPriceService(source PriceSource, ttl time.Duration, tracked []string, defaultCurrency string, logger *logging.Logger) *PriceService {
	return &PriceService{
		source:          source,
		ttl:             ttl,
		tracked:         tracked,
		defaultCurrency: strings.ToLower(defaultCurrency),
		logger:          logger,
		now:             time.Now,
		cache:           make(map[string]map[string]model.CachedPrice),
	}
}

// GetPrices serves fresh cached prices and fetches the rest in one batch.
func (s *PriceService) GetPrices(ctx context.Context, symbols []string, currency string) (map[string]decimal.Decimal, error) {
	currency = strings.ToLower(currency)
	prices := make(map[string]decimal.Decimal, len(symbols))
	var missing []string

	now := s.now()
	s.mu.RLock()
	for _, symbol := range symbols {
		if p, ok := s.cache[currency][symbol]; ok && now.Sub(p.FetchedAt) < s.ttl {
			prices[symbol] = p.Price
			continue
		}
		missing = append(missing, symbol)
	}
	s.mu.RUnlock()

	if len(missing) == 0 {
		return prices, nil
	}

	fetched, err := s.fetch(ctx, missing, currency)
	if err != nil {
		return nil, err
	}
	for symbol, price := range fetched {
		prices[symbol] = price
	}
	return prices, nil
}

func (s *PriceService) fetch(ctx context.Context, symbols []string, currency string) (map[string]decimal.Decimal, error) {
	sorted := append([]string(nil), symbols...)
	sort.Strings(sorted)
	key := currency + "|" + strings.Join(sorted, ",")

	// The shared lookup outlives any single caller: it runs detached from
	// the first caller's cancellation, and each caller waits on its own ctx.
	ch := s.group.DoChan(key, func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedFetchTimeout)
		defer cancel()

		prices, err := s.source.GetPrices(fetchCtx, sorted, currency)
		if err != nil {
			return nil, err
		}
		s.store(currency, prices)
		return prices, nil
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		return nil, res.Err
	}

	// Callers may share the map; hand each its own copy.
	shared := res.Val.(map[string]decimal.Decimal)
	prices := make(map[string]decimal.Decimal, len(shared))
	for symbol, price := range shared {
		prices[symbol] = price
	}
	return prices, nil
}

func (s *PriceService) store(currency string, prices map[string]decimal.Decimal) {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()

	byCurrency, ok := s.cache[currency]
	if !ok {
		byCurrency = make(map[string]model.CachedPrice)
		s.cache[currency] = byCurrency
	}
	for symbol, price := range prices {
		byCurrency[symbol] = model.CachedPrice{
			Symbol:    symbol,
			Currency:  currency,
			Price:     price,
			FetchedAt: now,
		}
	}
}

// Cached returns every cached price, stale or not, ordered by currency and symbol.
func (s *PriceService) Cached() []model.CachedPrice {
	s.mu.RLock()
	defer s.mu.RUnlock()

	prices := []model.CachedPrice{}
	for _, byCurrency := range s.cache {
		for _, p := range byCurrency {
			prices = append(prices, p)
		}
	}
	sort.Slice(prices, func(i, j int) bool {
		if prices[i].Currency != prices[j].Currency {
			return prices[i].Currency < prices[j].Currency
		}
		return prices[i].Symbol < prices[j].Symbol
	})
	return prices
}

// Refresh re-fetches the tracked symbols and everything already cached,
// one batch per currency. A failing currency is logged and the rest continue;
// the first error is returned.
func (s *PriceService) Refresh(ctx context.Context) error {
	batches := make(map[string]map[string]bool)
	add := func(currency, symbol string) {
		if batches[currency] == nil {
			batches[currency] = make(map[string]bool)
		}
		batches[currency][symbol] = true
	}

	for _, symbol := range s.tracked {
		add(s.defaultCurrency, symbol)
	}
	s.mu.RLock()
	for currency, byCurrency := range s.cache {
		for symbol := range byCurrency {
			add(currency, symbol)
		}
	}
	s.mu.RUnlock()

	var firstErr error
	for currency, set := range batches {
		symbols := make([]string, 0, len(set))
		for symbol := range set {
			symbols = append(symbols, symbol)
		}
		if _, err := s.fetch(ctx, symbols, currency); err != nil {
			s.logger.Warn().Err(err).Str("currency", currency).Int("symbols", len(symbols)).Msg("price refresh failed")
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		s.logger.Debug().Str("currency", currency).Int("symbols", len(symbols)).Msg("prices refreshed")
	}
	return firstErr
}
