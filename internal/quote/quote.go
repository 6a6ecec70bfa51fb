package quote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Source fetches USD spot prices from a price-quote API and keeps the
// last-known price per asset. When the upstream is unreachable, slow, or
// returns a non-2xx response, callers get the cached price instead of an
// error. One attempt per call, no retries.
type Source struct {
	client  *http.Client
	baseURL string
	log     *zap.Logger

	mu    sync.RWMutex
	cache map[string]float64
}

// NewSource creates a quote source. The cache is seeded with the given
// fallback prices so a lookup can succeed before the first fetch ever
// does.
func NewSource(baseURL string, timeout time.Duration, fallbacks map[string]float64, log *zap.Logger) *Source {
	cache := make(map[string]float64, len(fallbacks))
	for id, price := range fallbacks {
		cache[id] = price
	}
	return &Source{
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
		log:     log,
		cache:   cache,
	}
}

// Prices returns the USD price for each quote id. A failed fetch is not
// an error: the cached price is substituted per asset, and ids with no
// cached price are simply absent from the result.
func (s *Source) Prices(ctx context.Context, ids ...string) map[string]float64 {
	fetched, err := s.fetch(ctx, ids)
	if err != nil {
		s.log.Warn("quote fetch failed, serving cached prices", zap.Error(err))
	} else {
		s.mu.Lock()
		for id, price := range fetched {
			if price > 0 {
				s.cache[id] = price
			}
		}
		s.mu.Unlock()
	}

	out := make(map[string]float64, len(ids))
	s.mu.RLock()
	for _, id := range ids {
		if price, ok := s.cache[id]; ok {
			out[id] = price
		}
	}
	s.mu.RUnlock()
	return out
}

// Price returns the USD price for a single quote id
func (s *Source) Price(ctx context.Context, id string) (float64, bool) {
	price, ok := s.Prices(ctx, id)[id]
	return price, ok
}

func (s *Source) fetch(ctx context.Context, ids []string) (map[string]float64, error) {
	url := fmt.Sprintf("%s/simple/price?ids=%s&vs_currencies=usd", s.baseURL, strings.Join(ids, ","))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build quote request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch quotes: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("quote endpoint returned %s", resp.Status)
	}

	var body map[string]struct {
		USD float64 `json:"usd"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode quote response: %w", err)
	}

	prices := make(map[string]float64, len(body))
	for id, q := range body {
		prices[id] = q.USD
	}
	return prices, nil
}
