package scheduler

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"PatternGrader/internal/collector"
	"PatternGrader/internal/config"
	"PatternGrader/internal/evaluator"
	"PatternGrader/internal/model"
	"PatternGrader/internal/recorder"
	"PatternGrader/internal/strategy"
)

var day0 = time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)

// rectangleBars rallies off a low at bar 360 into a flat range over bars 400..420,
// breaking out on heavy volume at bar 421 (2023-02-26).
func rectangleBars() []model.OHLCV {
	bars := make([]model.OHLCV, 500)
	for i := range bars {
		p, spread, vol := 129.0, 1.0, 100.0
		switch {
		case i == 360:
			p, spread = 100.5, 0.5
		case i > 360 && i < 400:
			p, spread = 100+float64(i-360)*0.5, 0.2
		case i >= 400 && i <= 420:
			p, vol = 120, 300-float64(i-400)*5
		case i == 421:
			p, spread, vol = 122.5, 1.5, 500
		case i > 421:
			p = 125
		}
		bars[i] = model.OHLCV{Time: day0.AddDate(0, 0, i), Open: p, High: p + spread, Low: p - spread, Close: p, Volume: vol}
	}
	return bars
}

type captureSender struct {
	messages []string
}

func (c *captureSender) SendWithRetry(_ context.Context, text string, _ int) error {
	c.messages = append(c.messages, text)
	return nil
}

func watch(symbol string) config.Watch {
	price := 121.0
	return config.Watch{
		Symbol:        symbol,
		Pattern:       "Rectangle top",
		Direction:     "up",
		From:          "2023-02-05",
		To:            "2023-02-25",
		Breakout:      "2023-02-26",
		BreakoutPrice: &price,
		Answers: model.FeatureSet{
			FlatBase:    model.No,
			HCR:         model.No,
			Throwback:   model.Yes,
			BreakoutGap: model.No,
		},
	}
}

func newTestScheduler(t *testing.T, fetcher collector.Fetcher, watchlist []config.Watch) (*Scheduler, *captureSender, recorder.Recorder) {
	t.Helper()
	tbl, err := strategy.DefaultTable()
	if err != nil {
		t.Fatal(err)
	}
	rec, err := recorder.NewSQLiteRecorder(t.TempDir() + "/history.db")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { rec.Close() })
	sender := &captureSender{}
	s := NewScheduler(context.Background(), collector.NewCollector(fetcher), evaluator.New(tbl, true), sender, rec, watchlist)
	return s, sender, rec
}

func TestRescore_ScoresAndRecords(t *testing.T) {
	fetcher := &collector.MockFetcher{DailyData: rectangleBars(), MarketCap: 5e8}
	bad := watch("BAD")
	bad.Pattern = "Saucer"
	s, _, rec := newTestScheduler(t, fetcher, []config.Watch{watch("RECT"), bad})

	var seen int
	results := s.Rescore(context.Background(), "", func(Result) { seen++ })
	if len(results) != 2 || seen != 2 {
		t.Fatalf("expected 2 results and 2 progress calls, got %d and %d", len(results), seen)
	}

	ok := results[0]
	if ok.Err != nil {
		t.Fatalf("unexpected error: %v", ok.Err)
	}
	if ok.Evaluation.Features.MarketCap != model.CapSmall {
		t.Errorf("expected market cap looked up as small, got %s", ok.Evaluation.Features.MarketCap)
	}
	if ok.Evaluation.Features.Trend != model.TrendShort || ok.Evaluation.Features.BreakoutVolume != model.Yes {
		t.Errorf("unexpected detected features %+v", ok.Evaluation.Features)
	}
	if ok.RecordID == "" {
		t.Error("expected a record id")
	}
	if !errors.Is(results[1].Err, strategy.ErrUnknownPattern) {
		t.Errorf("expected ErrUnknownPattern for the bad entry, got %v", results[1].Err)
	}

	rows, err := rec.History("", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 history rows, got %d", len(rows))
	}
}

func TestRescore_FiltersBySymbol(t *testing.T) {
	fetcher := &collector.MockFetcher{DailyData: rectangleBars(), MarketCap: 5e10}
	s, _, _ := newTestScheduler(t, fetcher, []config.Watch{watch("AAA"), watch("BBB")})
	results := s.Rescore(context.Background(), "bbb", nil)
	if len(results) != 1 || results[0].Watch.Symbol != "BBB" {
		t.Fatalf("expected only BBB, got %+v", results)
	}
	if results[0].Evaluation.Features.MarketCap != model.CapLarge {
		t.Errorf("expected large cap, got %s", results[0].Evaluation.Features.MarketCap)
	}
}

func TestRescore_FetchFailure(t *testing.T) {
	boom := errors.New("upstream down")
	s, _, _ := newTestScheduler(t, &collector.MockFetcher{Err: boom}, []config.Watch{watch("RECT")})
	results := s.Rescore(context.Background(), "", nil)
	if len(results) != 1 || !errors.Is(results[0].Err, boom) {
		t.Fatalf("expected fetch failure, got %+v", results)
	}
}

func TestHandleCommand(t *testing.T) {
	fetcher := &collector.MockFetcher{DailyData: rectangleBars(), MarketCap: 5e8}
	s, sender, _ := newTestScheduler(t, fetcher, []config.Watch{watch("RECT")})

	if reply := s.HandleCommand("/rescore", nil); reply != "" {
		t.Errorf("expected report sent instead of reply, got %q", reply)
	}
	if len(sender.messages) != 1 || !strings.Contains(sender.messages[0], "Scored: 1 | Failed: 0") {
		t.Fatalf("expected one summary report, got %v", sender.messages)
	}
	if reply := s.HandleCommand("/rescore", []string{"NOPE"}); !strings.Contains(reply, "No watchlist entry") {
		t.Errorf("unexpected reply %q", reply)
	}
	if reply := s.HandleCommand("/history", []string{"RECT"}); !strings.Contains(reply, "RECT Rectangle top up") {
		t.Errorf("expected history entry, got %q", reply)
	}
	if reply := s.HandleCommand("/patterns", nil); !strings.Contains(reply, "Cup with handle") {
		t.Errorf("expected pattern list, got %q", reply)
	}
	if reply := s.HandleCommand("/start", nil); !strings.Contains(reply, "/rescore") {
		t.Errorf("expected help text, got %q", reply)
	}
}

func TestRegister_RejectsBadSpec(t *testing.T) {
	s, _, _ := newTestScheduler(t, &collector.MockFetcher{}, nil)
	if err := s.Register("not a cron spec"); err == nil {
		t.Error("expected invalid cron spec to fail")
	}
	if err := s.Register("0 30 22 * * 1-5"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestEvaluateWatch_OldPatternGetsFullHistory(t *testing.T) {
	price := 181.5
	w := config.Watch{
		Symbol:        "AAPL",
		Pattern:       "Big M",
		Direction:     "down",
		From:          "2024-01-02",
		To:            "2024-02-15",
		Breakout:      "2024-02-20",
		BreakoutPrice: &price,
		Answers: model.FeatureSet{
			FlatBase:    model.No,
			HCR:         model.No,
			Throwback:   model.Yes,
			BreakoutGap: model.No,
		},
	}
	s, _, _ := newTestScheduler(t, &collector.MockFetcher{Price: 180, MarketCap: 3e12}, []config.Watch{w})

	ev, err := s.EvaluateWatch(context.Background(), w)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.Resolution.Adjusted {
		t.Errorf("expected the window inside the series, got notices %v", ev.Resolution.Notices)
	}
	if !ev.Resolution.From.Equal(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)) || ev.Resolution.Window.Start == 0 {
		t.Errorf("expected the pattern to start on 2024-01-02 past bar 0, got %s at %d", ev.Resolution.From, ev.Resolution.Window.Start)
	}
	// One bar per day from 2023-01-01 through 2024-01-01.
	if ev.YearlyRange == nil || ev.YearlyRange.To-ev.YearlyRange.From != 365 {
		t.Errorf("expected a full yearly window, got %+v", ev.YearlyRange)
	}
	if ev.Features.MarketCap != model.CapLarge {
		t.Errorf("expected large cap, got %s", ev.Features.MarketCap)
	}
}

// sinceRecorder records how far back each daily fetch reached.
type sinceRecorder struct {
	*collector.MockFetcher
	since []time.Time
}

func (r *sinceRecorder) FetchDailyBars(ctx context.Context, symbol string, since time.Time) ([]model.OHLCV, error) {
	r.since = append(r.since, since)
	return r.MockFetcher.FetchDailyBars(ctx, symbol, since)
}

func TestRescore_LoadsSymbolOnceForEarliestPattern(t *testing.T) {
	later := watch("RECT")
	later.From, later.To, later.Breakout = "2023-04-01", "2023-04-20", ""
	fetcher := &sinceRecorder{MockFetcher: &collector.MockFetcher{DailyData: rectangleBars(), MarketCap: 5e8}}
	s, _, _ := newTestScheduler(t, fetcher, []config.Watch{later, watch("RECT")})

	results := s.Rescore(context.Background(), "", nil)
	if len(fetcher.since) != 1 {
		t.Fatalf("expected one fetch for the symbol, got %d", len(fetcher.since))
	}
	// 2023-02-05 less a year and 15 days.
	if want := time.Date(2022, 1, 21, 0, 0, 0, 0, time.UTC); !fetcher.since[0].Equal(want) {
		t.Errorf("expected fetch from %s, got %s", want, fetcher.since[0])
	}
	if len(results) != 2 || results[1].Err != nil {
		t.Fatalf("expected the earlier pattern to score, got %+v", results)
	}
	if results[1].Evaluation.Features.Trend != model.TrendShort {
		t.Errorf("expected short trend on the trimmed series, got %s", results[1].Evaluation.Features.Trend)
	}
}

func TestHandleCommand_EmptyWatchlist(t *testing.T) {
	s, sender, _ := newTestScheduler(t, &collector.MockFetcher{}, nil)
	if reply := s.HandleCommand("/rescore", nil); reply != "The watchlist is empty" {
		t.Errorf("unexpected reply %q", reply)
	}
	if len(sender.messages) != 0 {
		t.Errorf("expected no report, got %v", sender.messages)
	}
}
