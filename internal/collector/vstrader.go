package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	"golang.org/x/time/rate"

	"PatternGrader/internal/model"
)

// VsTraderFetcher implements Fetcher using the vstrader REST API.
type VsTraderFetcher struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
	limiter *rate.Limiter
}

// NewVsTraderFetcher creates a new fetcher with optional proxy support.
func NewVsTraderFetcher(baseURL, apiKey, proxyURL string, rps float64) *VsTraderFetcher {
	return &VsTraderFetcher{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Client:  newHTTPClient(proxyURL),
		limiter: newLimiter(rps),
	}
}

func (f *VsTraderFetcher) Name() string { return "vstrader" }

// vsBar is the expected JSON shape from the vstrader API.
type vsBar struct {
	Timestamp int64   `json:"timestamp"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

func (f *VsTraderFetcher) FetchDailyBars(ctx context.Context, symbol string, since time.Time) ([]model.OHLCV, error) {
	endpoint := fmt.Sprintf("%s/api/v1/bars/daily?symbol=%s&start=%d", f.BaseURL, url.QueryEscape(symbol), since.Unix())
	return f.fetchBars(ctx, endpoint)
}

func (f *VsTraderFetcher) FetchIntradayBars(ctx context.Context, symbol, interval string, since time.Time) ([]model.OHLCV, error) {
	endpoint := fmt.Sprintf("%s/api/v1/bars/intraday?symbol=%s&interval=%s&start=%d",
		f.BaseURL, url.QueryEscape(symbol), url.QueryEscape(interval), since.Unix())
	return f.fetchBars(ctx, endpoint)
}

func (f *VsTraderFetcher) FetchMarketCap(ctx context.Context, symbol string) (float64, error) {
	endpoint := fmt.Sprintf("%s/api/v1/profile?symbol=%s", f.BaseURL, url.QueryEscape(symbol))
	resp, err := f.do(ctx, endpoint)
	if err != nil {
		return 0, fmt.Errorf("fetch market cap: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("fetch market cap: status %d", resp.StatusCode)
	}
	var result struct {
		MarketCap float64 `json:"market_cap"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return 0, fmt.Errorf("decode profile: %w", err)
	}
	return result.MarketCap, nil
}

func (f *VsTraderFetcher) do(ctx context.Context, endpoint string) (*http.Response, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if f.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+f.APIKey)
	}
	return f.Client.Do(req)
}

func (f *VsTraderFetcher) fetchBars(ctx context.Context, endpoint string) ([]model.OHLCV, error) {
	resp, err := f.do(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("fetch bars: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("fetch bars: status %d, body: %s", resp.StatusCode, string(body))
	}
	var vsBars []vsBar
	if err := json.NewDecoder(resp.Body).Decode(&vsBars); err != nil {
		return nil, fmt.Errorf("decode bars: %w", err)
	}
	bars := make([]model.OHLCV, len(vsBars))
	for i, vb := range vsBars {
		bars[i] = model.OHLCV{
			Time:   time.Unix(vb.Timestamp, 0).UTC(),
			Open:   vb.Open,
			High:   vb.High,
			Low:    vb.Low,
			Close:  vb.Close,
			Volume: vb.Volume,
		}
	}
	// Ensure chronological order
	sort.Slice(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	return bars, nil
}
