package scheduler

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"PatternGrader/internal/collector"
	"PatternGrader/internal/config"
	"PatternGrader/internal/evaluator"
	"PatternGrader/internal/model"
	"PatternGrader/internal/notifier"
	"PatternGrader/internal/recorder"

	"github.com/robfig/cron/v3"
)

// Sender delivers reports; *notifier.TelegramNotifier satisfies it.
type Sender interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// Result is the outcome of scoring one watchlist entry.
type Result struct {
	Watch      config.Watch
	Evaluation *evaluator.Evaluation
	RecordID   string
	Err        error
}

// Scheduler rescores the watchlist on a cron schedule and answers bot commands.
type Scheduler struct {
	Cron      *cron.Cron
	Collector *collector.Collector
	Evaluator *evaluator.Evaluator
	Notifier  Sender // nil disables reports
	Recorder  recorder.Recorder
	Watchlist []config.Watch
	Ctx       context.Context

	mu sync.Mutex
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, col *collector.Collector, ev *evaluator.Evaluator, tn Sender, rec recorder.Recorder, watchlist []config.Watch) *Scheduler {
	return &Scheduler{
		Cron:      cron.New(cron.WithSeconds()),
		Collector: col,
		Evaluator: ev,
		Notifier:  tn,
		Recorder:  rec,
		Watchlist: watchlist,
		Ctx:       ctx,
	}
}

// Register adds the rescoring task.
func (s *Scheduler) Register(rescoreCron string) error {
	if _, err := s.Cron.AddFunc(rescoreCron, s.rescoreTask); err != nil {
		return fmt.Errorf("register rescore task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Println("[INFO] scheduler started")
}

// Stop stops the cron scheduler gracefully.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	log.Println("[INFO] scheduler stopped")
}

// RunNow rescores the whole watchlist immediately and sends the report.
func (s *Scheduler) RunNow() {
	s.rescoreTask()
}

func (s *Scheduler) rescoreTask() {
	log.Println("[INFO] running rescore task")
	results := s.Rescore(s.Ctx, "", nil)
	s.report(results)
}

// EvaluateWatch loads data for one entry, fills in its market cap if unanswered, and scores it.
func (s *Scheduler) EvaluateWatch(ctx context.Context, w config.Watch) (*evaluator.Evaluation, error) {
	return s.evaluate(ctx, w, newRunCache([]config.Watch{w}))
}

// Rescore scores every watchlist entry whose symbol matches (all when symbol is empty),
// records each outcome and calls progress after each entry. Runs are serialized.
func (s *Scheduler) Rescore(ctx context.Context, symbol string, progress func(Result)) []Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	var entries []config.Watch
	for _, w := range s.Watchlist {
		if symbol == "" || strings.EqualFold(w.Symbol, symbol) {
			entries = append(entries, w)
		}
	}

	cache := newRunCache(entries)
	var results []Result
	for _, w := range entries {
		r := Result{Watch: w}
		r.Evaluation, r.Err = s.evaluate(ctx, w, cache)
		r.RecordID = s.record(w, r)
		if r.Err != nil {
			log.Printf("[ERROR] %s: %v", w.Label(), r.Err)
		} else {
			log.Printf("[INFO] %s: %+d %s", w.Label(), r.Evaluation.Score.Total, r.Evaluation.Score.Verdict)
		}
		results = append(results, r)
		if progress != nil {
			progress(r)
		}
	}
	return results
}

// runCache shares fetched series and market caps between entries of one run.
// Each series is loaded once, deep enough for the run's earliest pattern on that symbol.
type runCache struct {
	series   map[string]*model.Series
	caps     map[string]model.MarketCap
	earliest map[string]time.Time
}

func newRunCache(entries []config.Watch) *runCache {
	c := &runCache{
		series:   map[string]*model.Series{},
		caps:     map[string]model.MarketCap{},
		earliest: map[string]time.Time{},
	}
	for _, w := range entries {
		occ, err := w.Occurrence()
		if err != nil {
			continue
		}
		key := seriesKey(w)
		if e, ok := c.earliest[key]; !ok || occ.Earliest().Before(e) {
			c.earliest[key] = occ.Earliest()
		}
	}
	return c
}

func seriesKey(w config.Watch) string {
	return fmt.Sprintf("%s/%t", strings.ToUpper(w.Symbol), w.Intraday)
}

func (s *Scheduler) evaluate(ctx context.Context, w config.Watch, cache *runCache) (*evaluator.Evaluation, error) {
	occ, err := w.Occurrence()
	if err != nil {
		return nil, err
	}

	key := seriesKey(w)
	ser, ok := cache.series[key]
	if !ok {
		from := occ.Earliest()
		if e, ok := cache.earliest[key]; ok && e.Before(from) {
			from = e
		}
		if ser, err = s.Collector.LoadSeries(ctx, w.Symbol, w.Intraday, from); err != nil {
			return nil, err
		}
		cache.series[key] = ser
	}

	answers := w.Answers
	if answers.MarketCap == "" {
		sym := strings.ToUpper(w.Symbol)
		mc, ok := cache.caps[sym]
		if !ok {
			if mc, err = s.Collector.MarketCapBucket(ctx, w.Symbol); err != nil {
				return nil, err
			}
			cache.caps[sym] = mc
		}
		answers.MarketCap = mc
	}

	return s.Evaluator.Evaluate(ser, occ, answers)
}

func (s *Scheduler) record(w config.Watch, r Result) string {
	var rec *recorder.Record
	if r.Err != nil {
		occ, _ := w.Occurrence()
		if occ.Pattern == "" {
			occ.Pattern = w.Pattern
		}
		rec = recorder.NewFailure(w.Symbol, occ, r.Err)
	} else {
		rec = recorder.NewRecord(r.Evaluation)
	}
	id, err := s.Recorder.Record(rec)
	if err != nil {
		log.Printf("[ERROR] record evaluation: %v", err)
	}
	return id
}

func (s *Scheduler) report(results []Result) {
	failed := 0
	var b strings.Builder
	for _, r := range results {
		if r.Err != nil {
			failed++
			b.WriteString(notifier.FormatFailure(r.Watch.Label(), r.Err))
		} else {
			b.WriteString(notifier.FormatEvaluation(r.Evaluation))
		}
		b.WriteString("\n")
	}
	s.trySend(notifier.FormatSummary(len(results)-failed, failed, time.Now()) + "\n" + b.String())
}

// HandleCommand processes a bot command and returns a reply.
func (s *Scheduler) HandleCommand(command string, args []string) string {
	symbol := ""
	if len(args) > 0 {
		symbol = args[0]
	}
	switch command {
	case "/rescore":
		results := s.Rescore(s.Ctx, symbol, nil)
		if len(results) == 0 {
			if symbol == "" {
				return "The watchlist is empty"
			}
			return fmt.Sprintf("No watchlist entry for %s", symbol)
		}
		s.report(results)
		return ""
	case "/history":
		rows, err := s.Recorder.History(symbol, 10)
		if err != nil {
			log.Printf("[ERROR] load history: %v", err)
			return "❌ history unavailable"
		}
		return notifier.FormatHistory(rows)
	case "/patterns":
		return notifier.FormatPatterns(s.Evaluator.Table())
	default:
		return notifier.HelpText
	}
}

func (s *Scheduler) trySend(text string) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.SendWithRetry(s.Ctx, text, 3); err != nil {
		log.Printf("[ERROR] send notification: %v", err)
	}
}
