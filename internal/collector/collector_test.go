package collector

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"PatternGrader/internal/model"
	"PatternGrader/internal/series"
)

func TestBucketMarketCap(t *testing.T) {
	tests := []struct {
		cap  float64
		want model.MarketCap
	}{
		{5e8, model.CapSmall},
		{1e9, model.CapMedium},
		{9.99e9, model.CapMedium},
		{10e9, model.CapLarge},
		{2e12, model.CapLarge},
	}
	for _, tt := range tests {
		if got := BucketMarketCap(tt.cap, DefaultSmallCapLimit, DefaultLargeCapLimit); got != tt.want {
			t.Errorf("cap %v: expected %s, got %s", tt.cap, tt.want, got)
		}
	}
}

func TestCollector_LoadSeries(t *testing.T) {
	c := NewCollector(&MockFetcher{Price: 50})
	s, err := c.LoadSeries(context.Background(), "MOCK", false, time.Time{})
	if err != nil {
		t.Fatal(err)
	}
	if s.Intraday || s.Symbol != "MOCK" {
		t.Errorf("expected daily MOCK series, got intraday=%v symbol=%s", s.Intraday, s.Symbol)
	}
	if s.Len() < c.HistoryDays-1 || s.Len() > c.HistoryDays+1 {
		t.Errorf("expected about %d daily bars, got %d", c.HistoryDays, s.Len())
	}
	s, err = c.LoadSeries(context.Background(), "MOCK", true, time.Time{})
	if err != nil {
		t.Fatal(err)
	}
	if !s.Intraday {
		t.Error("expected intraday series")
	}

	empty := NewCollector(&MockFetcher{DailyData: []model.OHLCV{}})
	if _, err := empty.LoadSeries(context.Background(), "NONE", false, time.Time{}); !errors.Is(err, ErrNoBars) {
		t.Errorf("expected ErrNoBars, got %v", err)
	}

	boom := errors.New("boom")
	failing := NewCollector(&MockFetcher{Err: boom})
	if _, err := failing.LoadSeries(context.Background(), "X", false, time.Time{}); !errors.Is(err, boom) {
		t.Errorf("expected wrapped fetch error, got %v", err)
	}
}

// dailyBars returns n bars one calendar day apart starting at first, stamped at 21:00 UTC.
func dailyBars(first time.Time, n int) []model.OHLCV {
	bars := make([]model.OHLCV, n)
	for i := range bars {
		bars[i] = model.OHLCV{Time: first.AddDate(0, 0, i).Add(21 * time.Hour), Open: 10, High: 11, Low: 9, Close: 10, Volume: 100}
	}
	return bars
}

func fixedNow(t time.Time) func() time.Time { return func() time.Time { return t } }

func TestCollector_HistoryStart(t *testing.T) {
	c := NewCollector(&MockFetcher{})
	c.Now = fixedNow(time.Date(2025, 6, 30, 15, 0, 0, 0, time.UTC))

	tests := []struct {
		name     string
		from     time.Time
		intraday bool
		want     time.Time
	}{
		{"no pattern uses the minimum depth", time.Time{}, false, time.Date(2023, 6, 11, 0, 0, 0, 0, time.UTC)},
		{"old pattern reaches a year and the margin back", time.Date(2023, 3, 1, 0, 0, 0, 0, time.UTC), false, time.Date(2022, 2, 14, 0, 0, 0, 0, time.UTC)},
		{"recent pattern keeps the minimum depth", time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC), false, time.Date(2023, 6, 11, 0, 0, 0, 0, time.UTC)},
		{"daily ignores the time of day", time.Date(2023, 3, 1, 18, 30, 0, 0, time.UTC), false, time.Date(2022, 2, 14, 0, 0, 0, 0, time.UTC)},
		{"intraday keeps the timestamp", time.Date(2025, 5, 1, 9, 30, 0, 0, time.UTC), true, time.Date(2024, 4, 16, 9, 30, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.HistoryStart(tt.from, tt.intraday); !got.Equal(tt.want) {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestCollector_LoadSeriesCoversOldPattern(t *testing.T) {
	c := NewCollector(&MockFetcher{DailyData: dailyBars(time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), 2000)})
	c.Now = fixedNow(time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC))

	from := time.Date(2023, 3, 1, 0, 0, 0, 0, time.UTC)
	s, err := c.LoadSeries(context.Background(), "OLD", false, from)
	if err != nil {
		t.Fatal(err)
	}
	// Trimmed by date: the 21:00 bar on the first day is kept.
	if got := s.Bars[0].Time; !got.Equal(time.Date(2022, 2, 14, 21, 0, 0, 0, time.UTC)) {
		t.Errorf("expected series to start on 2022-02-14, got %s", got)
	}
	if s.Bars[0].Time.After(from.AddDate(-1, 0, -1)) {
		t.Error("expected a full year of history before the pattern")
	}
}

func TestCollector_LoadSeriesHistoryNotCovered(t *testing.T) {
	c := NewCollector(&MockFetcher{DailyData: dailyBars(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), 400)})
	c.Now = fixedNow(time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC))

	_, err := c.LoadSeries(context.Background(), "IPO", false, time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC))
	if !errors.Is(err, ErrHistoryNotCovered) {
		t.Fatalf("expected ErrHistoryNotCovered, got %v", err)
	}

	// A pattern inside the data still loads, with a shortened yearly range.
	s, err := c.LoadSeries(context.Background(), "IPO", false, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatal(err)
	}
	if s.Len() != 400 {
		t.Errorf("expected every bar kept, got %d", s.Len())
	}
}

func TestTrimBefore(t *testing.T) {
	bars := dailyBars(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), 10)
	if got := trimBefore(bars, series.Daily{}, time.Date(2024, 1, 4, 23, 0, 0, 0, time.UTC)); len(got) != 7 {
		t.Errorf("daily: expected 7 bars from 2024-01-04, got %d", len(got))
	}
	if got := trimBefore(bars, series.Intraday{}, time.Date(2024, 1, 4, 23, 0, 0, 0, time.UTC)); len(got) != 6 {
		t.Errorf("intraday: expected 6 bars after 2024-01-04 23:00, got %d", len(got))
	}
	if got := trimBefore(bars, series.Daily{}, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)); got != nil {
		t.Errorf("expected no bars, got %d", len(got))
	}
}

func TestCollector_MarketCapBucket(t *testing.T) {
	c := NewCollector(&MockFetcher{MarketCap: 3e9})
	got, err := c.MarketCapBucket(context.Background(), "MID")
	if err != nil {
		t.Fatal(err)
	}
	if got != model.CapMedium {
		t.Errorf("expected medium, got %s", got)
	}
	if _, err := NewCollector(&MockFetcher{}).MarketCapBucket(context.Background(), "ZERO"); err == nil {
		t.Error("expected error for missing market cap")
	}
}

func TestVsTraderFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch r.URL.Path {
		case "/api/v1/bars/daily":
			if r.URL.Query().Get("start") != "1704153600" {
				t.Errorf("expected start 1704153600, got %s", r.URL.Query().Get("start"))
			}
			w.Write([]byte(`[{"timestamp":1704240000,"open":2,"high":3,"low":1,"close":2,"volume":10},
				{"timestamp":1704153600,"open":1,"high":2,"low":0.5,"close":1.5,"volume":20}]`))
		case "/api/v1/profile":
			w.Write([]byte(`{"market_cap": 2500000000}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	f := NewVsTraderFetcher(srv.URL, "secret", "", 100)
	bars, err := f.FetchDailyBars(context.Background(), "ACME", time.Unix(1704153600, 0))
	if err != nil {
		t.Fatal(err)
	}
	if len(bars) != 2 || !bars[0].Time.Before(bars[1].Time) {
		t.Fatalf("expected 2 bars in chronological order, got %+v", bars)
	}
	if !bars[0].Time.Equal(time.Unix(1704153600, 0)) {
		t.Errorf("expected oldest bar first, got %s", bars[0].Time)
	}
	mc, err := f.FetchMarketCap(context.Background(), "ACME")
	if err != nil {
		t.Fatal(err)
	}
	if mc != 2.5e9 {
		t.Errorf("expected 2.5e9, got %v", mc)
	}
	if _, err := f.FetchIntradayBars(context.Background(), "ACME", "60m", time.Unix(1704153600, 0)); err == nil {
		t.Error("expected error for missing endpoint")
	}
}

func TestYahooFetcher_DailyBars(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("period1") != "1704067200" || r.URL.Query().Get("period2") == "" {
			t.Errorf("expected period1 1704067200 and a period2, got %s", r.URL.RawQuery)
		}
		w.Write([]byte(`{"chart":{"result":[{"timestamp":[1704153600,1704240000,1704326400],
			"indicators":{"quote":[{"open":[1,null,3],"high":[2,null,4],"low":[0.5,null,2],"close":[1.5,null,3.5],"volume":[100,null,300]}]}}],"error":null}}`))
	}))
	defer srv.Close()

	f := NewYahooFetcher("", 100)
	f.BaseURL = srv.URL
	bars, err := f.FetchDailyBars(context.Background(), "ACME", time.Unix(1704067200, 0))
	if err != nil {
		t.Fatal(err)
	}
	if len(bars) != 2 {
		t.Fatalf("expected null bar skipped, got %d bars", len(bars))
	}
	if bars[1].Volume != 300 {
		t.Errorf("expected volume 300, got %v", bars[1].Volume)
	}
}
