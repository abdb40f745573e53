package collector

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"PatternGrader/internal/model"
	"PatternGrader/internal/series"
)

var (
	// ErrNoBars is returned when a fetcher yields an empty series.
	ErrNoBars = errors.New("no bars returned")
	// ErrHistoryNotCovered is returned when the data starts after the pattern does.
	ErrHistoryNotCovered = errors.New("history does not reach the pattern start")
)

// HistoryMarginDays is the history kept before a pattern on top of one year: the trend
// locator's 14-day lookback plus the day between the yearly window and the pattern start.
const HistoryMarginDays = 15

// shortfallDays is how late the first bar may start before the yearly window counts as shortened.
const shortfallDays = 7

// Market-cap bucket boundaries in dollars.
const (
	DefaultSmallCapLimit = 1e9
	DefaultLargeCapLimit = 10e9
)

// MockFetcher returns controllable fixed data for development and testing.
type MockFetcher struct {
	Price        float64
	DailyData    []model.OHLCV
	IntradayData []model.OHLCV
	MarketCap    float64
	Err          error
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchDailyBars(_ context.Context, _ string, since time.Time) ([]model.OHLCV, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if m.DailyData != nil {
		return m.DailyData, nil
	}
	return generateMockBars(m.Price, since, 24*time.Hour), nil
}

func (m *MockFetcher) FetchIntradayBars(_ context.Context, _ string, _ string, since time.Time) ([]model.OHLCV, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if m.IntradayData != nil {
		return m.IntradayData, nil
	}
	return generateMockBars(m.Price, since, time.Hour), nil
}

func (m *MockFetcher) FetchMarketCap(_ context.Context, _ string) (float64, error) {
	if m.Err != nil {
		return 0, m.Err
	}
	return m.MarketCap, nil
}

// generateMockBars lays one bar per step from since up to now, rising 0.05% per bar to basePrice.
func generateMockBars(basePrice float64, since time.Time, step time.Duration) []model.OHLCV {
	end := time.Now().Truncate(step)
	count := int(end.Sub(since) / step)
	if count < 0 {
		count = 0
	}
	bars := make([]model.OHLCV, count)
	for i := 0; i < count; i++ {
		p := basePrice * math.Pow(1.0005, float64(i-count+1))
		bars[i] = model.OHLCV{
			Time:   end.Add(-time.Duration(count-i) * step),
			Open:   p * 0.999,
			High:   p * 1.005,
			Low:    p * 0.995,
			Close:  p,
			Volume: 1000000,
		}
	}
	return bars
}

// Collector loads series and market-cap buckets for the evaluator.
type Collector struct {
	Fetcher Fetcher
	// HistoryDays and IntradayDays are the minimum depth, in calendar days before now, of daily
	// and intraday requests. Requests reach further back when a pattern needs it.
	HistoryDays      int
	IntradayInterval string
	IntradayDays     int
	SmallCapLimit    float64
	LargeCapLimit    float64
	// Now defaults to time.Now.
	Now func() time.Time
}

// NewCollector creates a new Collector with default history depth and cap limits.
func NewCollector(fetcher Fetcher) *Collector {
	return &Collector{
		Fetcher:          fetcher,
		HistoryDays:      750,
		IntradayInterval: "60m",
		IntradayDays:     60,
		SmallCapLimit:    DefaultSmallCapLimit,
		LargeCapLimit:    DefaultLargeCapLimit,
		Now:              time.Now,
	}
}

// HistoryStart returns the first date a series must cover to score a pattern starting at from:
// a year plus HistoryMarginDays before it, or the configured minimum depth when that reaches further.
// A zero from requests only the minimum depth.
func (c *Collector) HistoryStart(from time.Time, intraday bool) time.Time {
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	depth := c.HistoryDays
	var cal series.Calendar = series.Daily{}
	if intraday {
		depth = c.IntradayDays
		cal = series.Intraday{}
	}
	since := cal.Key(now().AddDate(0, 0, -depth))
	if from.IsZero() {
		return since
	}
	if need := cal.Key(from.AddDate(-1, 0, -HistoryMarginDays)); need.Before(since) {
		return need
	}
	return since
}

// LoadSeries fetches daily or intraday bars for symbol covering a pattern that starts at from,
// trimmed by calendar date to HistoryStart. It fails when the data begins after from.
func (c *Collector) LoadSeries(ctx context.Context, symbol string, intraday bool, from time.Time) (*model.Series, error) {
	since := c.HistoryStart(from, intraday)
	var (
		bars []model.OHLCV
		err  error
	)
	if intraday {
		bars, err = c.Fetcher.FetchIntradayBars(ctx, symbol, c.IntradayInterval, since)
	} else {
		bars, err = c.Fetcher.FetchDailyBars(ctx, symbol, since)
	}
	if err != nil {
		return nil, fmt.Errorf("fetch %s bars for %s: %w", kind(intraday), symbol, err)
	}

	s := &model.Series{Symbol: symbol, Bars: bars, Intraday: intraday}
	cal := series.CalendarFor(s)
	s.Bars = trimBefore(bars, cal, since)
	if len(s.Bars) == 0 {
		return nil, fmt.Errorf("%s %s: %w", symbol, kind(intraday), ErrNoBars)
	}

	first := cal.Key(s.Bars[0].Time)
	if !from.IsZero() && first.After(cal.Key(from)) {
		return nil, fmt.Errorf("%s %s bars start %s, pattern starts %s: %w",
			symbol, kind(intraday), first.Format("2006-01-02"), from.Format("2006-01-02"), ErrHistoryNotCovered)
	}
	if !from.IsZero() && first.After(since.AddDate(0, 0, shortfallDays)) {
		log.Printf("[WARN] %s %s history starts %s, the yearly range before %s will be shortened",
			symbol, kind(intraday), first.Format("2006-01-02"), from.Format("2006-01-02"))
	}
	log.Printf("[INFO] Loaded %d %s bars for %s from %s", len(s.Bars), kind(intraday), symbol, c.Fetcher.Name())
	return s, nil
}

// trimBefore drops bars whose calendar key falls before since. bars must be in time order.
func trimBefore(bars []model.OHLCV, cal series.Calendar, since time.Time) []model.OHLCV {
	k := cal.Key(since)
	for i, b := range bars {
		if !cal.Key(b.Time).Before(k) {
			return bars[i:]
		}
	}
	return nil
}

// MarketCapBucket looks up the market capitalization of symbol and buckets it.
func (c *Collector) MarketCapBucket(ctx context.Context, symbol string) (model.MarketCap, error) {
	mc, err := c.Fetcher.FetchMarketCap(ctx, symbol)
	if err != nil {
		return "", fmt.Errorf("fetch market cap for %s: %w", symbol, err)
	}
	if mc <= 0 {
		return "", fmt.Errorf("market cap for %s: not available", symbol)
	}
	return BucketMarketCap(mc, c.SmallCapLimit, c.LargeCapLimit), nil
}

// BucketMarketCap classifies a capitalization: below small is small, below large is medium.
func BucketMarketCap(marketCap, small, large float64) model.MarketCap {
	switch {
	case marketCap < small:
		return model.CapSmall
	case marketCap < large:
		return model.CapMedium
	default:
		return model.CapLarge
	}
}

func kind(intraday bool) string {
	if intraday {
		return "intraday"
	}
	return "daily"
}
