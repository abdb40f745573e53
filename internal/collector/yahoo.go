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

const yahooBaseURL = "https://query1.finance.yahoo.com"

// YahooFetcher implements Fetcher using Yahoo Finance public API.
type YahooFetcher struct {
	BaseURL   string
	Client    *http.Client
	SymbolMap map[string]string // maps internal symbol to Yahoo ticker
	limiter   *rate.Limiter
}

// NewYahooFetcher creates a new Yahoo Finance fetcher throttled to rps requests per second.
func NewYahooFetcher(proxyURL string, rps float64) *YahooFetcher {
	return &YahooFetcher{
		BaseURL: yahooBaseURL,
		Client:  newHTTPClient(proxyURL),
		SymbolMap: map[string]string{
			"SPX500": "^GSPC",
			"SPX":    "^GSPC",
			"SP500":  "^GSPC",
		},
		limiter: newLimiter(rps),
	}
}

func (f *YahooFetcher) Name() string { return "yahoo" }

func (f *YahooFetcher) yahooSymbol(symbol string) string {
	if mapped, ok := f.SymbolMap[symbol]; ok {
		return mapped
	}
	return symbol
}

// yahooChart is the response structure from Yahoo Finance chart API.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []interface{} `json:"open"`
					High   []interface{} `json:"high"`
					Low    []interface{} `json:"low"`
					Close  []interface{} `json:"close"`
					Volume []interface{} `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *yahooError `json:"error"`
	} `json:"chart"`
}

type yahooQuote struct {
	QuoteResponse struct {
		Result []struct {
			Symbol    string  `json:"symbol"`
			MarketCap float64 `json:"marketCap"`
		} `json:"result"`
		Error *yahooError `json:"error"`
	} `json:"quoteResponse"`
}

type yahooError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

func toFloat(v interface{}) float64 {
	if v == nil {
		return 0
	}
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	default:
		return 0
	}
}

func (f *YahooFetcher) get(ctx context.Context, u string) ([]byte, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("yahoo rate limit: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("yahoo fetch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("yahoo read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("yahoo: status %d, body: %s", resp.StatusCode, string(body))
	}
	return body, nil
}

func (f *YahooFetcher) fetchChart(ctx context.Context, symbol, interval string, since time.Time) ([]model.OHLCV, error) {
	u := fmt.Sprintf("%s/v8/finance/chart/%s?interval=%s&period1=%d&period2=%d",
		f.BaseURL, url.PathEscape(f.yahooSymbol(symbol)), interval, since.Unix(), time.Now().Unix())
	body, err := f.get(ctx, u)
	if err != nil {
		return nil, err
	}

	var chart yahooChart
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, fmt.Errorf("yahoo decode: %w", err)
	}
	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo api error: %s", chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Timestamp) == 0 {
		return nil, fmt.Errorf("yahoo: no data returned")
	}

	result := chart.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return nil, fmt.Errorf("yahoo: no quote data")
	}
	quote := result.Indicators.Quote[0]
	bars := make([]model.OHLCV, 0, len(result.Timestamp))

	for i, ts := range result.Timestamp {
		if i >= len(quote.Close) {
			break
		}
		o := toFloat(quote.Open[i])
		h := toFloat(quote.High[i])
		l := toFloat(quote.Low[i])
		c := toFloat(quote.Close[i])
		if o == 0 && h == 0 && l == 0 && c == 0 {
			continue // skip null bars (holidays etc.)
		}
		bars = append(bars, model.OHLCV{
			Time:   time.Unix(ts, 0).UTC(),
			Open:   o,
			High:   h,
			Low:    l,
			Close:  c,
			Volume: toFloat(quote.Volume[i]),
		})
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	return bars, nil
}

func (f *YahooFetcher) FetchDailyBars(ctx context.Context, symbol string, since time.Time) ([]model.OHLCV, error) {
	return f.fetchChart(ctx, symbol, "1d", since)
}

// yahooIntradayDays is how far back Yahoo serves hourly bars.
const yahooIntradayDays = 729

// FetchIntradayBars requests interval bars. Yahoo keeps about two years of hourly data,
// so since is moved forward to that limit.
func (f *YahooFetcher) FetchIntradayBars(ctx context.Context, symbol, interval string, since time.Time) ([]model.OHLCV, error) {
	if limit := time.Now().AddDate(0, 0, -yahooIntradayDays); since.Before(limit) {
		since = limit
	}
	return f.fetchChart(ctx, symbol, interval, since)
}

func (f *YahooFetcher) FetchMarketCap(ctx context.Context, symbol string) (float64, error) {
	u := fmt.Sprintf("%s/v7/finance/quote?symbols=%s", f.BaseURL, url.QueryEscape(f.yahooSymbol(symbol)))
	body, err := f.get(ctx, u)
	if err != nil {
		return 0, err
	}
	var q yahooQuote
	if err := json.Unmarshal(body, &q); err != nil {
		return 0, fmt.Errorf("yahoo decode quote: %w", err)
	}
	if q.QuoteResponse.Error != nil {
		return 0, fmt.Errorf("yahoo api error: %s", q.QuoteResponse.Error.Description)
	}
	if len(q.QuoteResponse.Result) == 0 {
		return 0, fmt.Errorf("yahoo: no quote for %s", symbol)
	}
	return q.QuoteResponse.Result[0].MarketCap, nil
}
