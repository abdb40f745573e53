package collector

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"PatternGrader/internal/model"
)

// Fetcher defines the interface for fetching market data.
// Bar fetches cover since through now; a fetcher may return earlier bars, which the collector trims.
type Fetcher interface {
	FetchDailyBars(ctx context.Context, symbol string, since time.Time) ([]model.OHLCV, error)
	// FetchIntradayBars returns bars of the given interval (e.g. "60m").
	FetchIntradayBars(ctx context.Context, symbol, interval string, since time.Time) ([]model.OHLCV, error)
	// FetchMarketCap returns the company's market capitalization in dollars.
	FetchMarketCap(ctx context.Context, symbol string) (float64, error)
	Name() string
}

// DefaultRequestsPerSecond throttles fetchers when no rate is configured.
const DefaultRequestsPerSecond = 2.0

func newHTTPClient(proxyURL string) *http.Client {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &http.Client{
		Timeout:   30 * time.Second,
		Transport: transport,
	}
}

func newLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		rps = DefaultRequestsPerSecond
	}
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}
