package evaluator

import (
	"fmt"
	"math"
	"time"

	"PatternGrader/internal/calculator"
	"PatternGrader/internal/detector"
	"PatternGrader/internal/model"
	"PatternGrader/internal/series"
	"PatternGrader/internal/strategy"
)

// Evaluation is everything one scoring pass produced, including the detector details
// behind each automatically resolved feature. A nil detector field means the
// feature was answered by the caller.
type Evaluation struct {
	Symbol     string
	Occurrence model.Occurrence
	Resolution *series.Resolution
	Calendar   string

	PatternHigh float64
	PatternLow  float64

	Trend          *detector.TrendStart
	YearlyRange    *detector.YearlyRange
	Height         *detector.Height
	VolumeTrend    *detector.VolumeTrend
	BreakoutVolume *detector.BreakoutVolume

	Features    model.FeatureSet
	Score       *model.ScoreResult
	EvaluatedAt time.Time
}

// Evaluator composes the window resolver, the detectors and the score table.
// It holds no per-request state and may be shared.
type Evaluator struct {
	table *strategy.Table
	quiet bool
}

// New creates an evaluator over table. quiet suppresses window adjustment notices.
func New(table *strategy.Table, quiet bool) *Evaluator {
	return &Evaluator{table: table, quiet: quiet}
}

// Table returns the score table in use.
func (e *Evaluator) Table() *strategy.Table { return e.table }

// Evaluate resolves occ against s, runs every detector whose feature is not already
// answered, merges the answers and scores the result. Any detector failure aborts the pass.
func (e *Evaluator) Evaluate(s *model.Series, occ model.Occurrence, answers model.FeatureSet) (*Evaluation, error) {
	if occ.Direction != model.DirectionUp && occ.Direction != model.DirectionDown {
		return nil, fmt.Errorf("evaluate %s %q: %w", occ.Pattern, occ.Direction, strategy.ErrNoRuleForDirection)
	}
	median, err := e.table.MedianHeight(occ.Pattern, occ.Direction)
	if err != nil {
		return nil, fmt.Errorf("evaluate %s: %w", occ.Pattern, err)
	}

	res, err := series.NewResolver(s, e.quiet).Resolve(s, occ)
	if err != nil {
		return nil, fmt.Errorf("evaluate %s %s: %w", s.Symbol, occ.Pattern, err)
	}
	cal := series.CalendarFor(s)

	ev := &Evaluation{
		Symbol:      s.Symbol,
		Occurrence:  occ,
		Resolution:  res,
		Calendar:    cal.Name(),
		Features:    answers,
		EvaluatedAt: time.Now(),
	}
	ev.PatternHigh, ev.PatternLow, err = patternExtremes(s, res.Window, occ)
	if err != nil {
		return nil, fmt.Errorf("evaluate %s %s: %w", s.Symbol, occ.Pattern, err)
	}

	steps := []func() error{
		func() error { return e.detectTrend(ev, s, cal) },
		func() error { return e.detectYearlyRange(ev, s, cal) },
		func() error { return e.detectHeight(ev, median) },
		func() error { return e.detectVolumeTrend(ev, s) },
		func() error { return e.detectBreakoutVolume(ev, s, cal) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return nil, fmt.Errorf("evaluate %s %s: %w", s.Symbol, occ.Pattern, err)
		}
	}

	ev.Score, err = e.table.Score(occ.Pattern, occ.Direction, &ev.Features)
	if err != nil {
		return nil, fmt.Errorf("evaluate %s %s: %w", s.Symbol, occ.Pattern, err)
	}
	return ev, nil
}

// patternExtremes prefers caller-supplied extremes and otherwise scans the resolved window.
func patternExtremes(s *model.Series, w model.PatternWindow, occ model.Occurrence) (float64, float64, error) {
	if occ.PatternHigh != 0 && occ.PatternLow != 0 {
		return occ.PatternHigh, occ.PatternLow, nil
	}
	high, low, _, _, err := calculator.WindowExtremes(s.Bars, w.Start, w.End)
	if err != nil {
		return 0, 0, err
	}
	if occ.PatternHigh != 0 {
		high = occ.PatternHigh
	}
	if occ.PatternLow != 0 {
		low = occ.PatternLow
	}
	return high, low, nil
}

func breakoutPrice(occ model.Occurrence) float64 {
	if occ.BreakoutPrice == nil {
		return math.NaN()
	}
	return *occ.BreakoutPrice
}

func (e *Evaluator) detectTrend(ev *Evaluation, s *model.Series, cal series.Calendar) error {
	if ev.Features.Trend != "" {
		return nil
	}
	ts, err := detector.LocateTrendStart(s, cal, ev.Resolution.Window.Start, ev.PatternHigh, ev.PatternLow)
	if err != nil {
		return err
	}
	ev.Trend = ts
	ev.Features.Trend = ts.Class
	return nil
}

func (e *Evaluator) detectYearlyRange(ev *Evaluation, s *model.Series, cal series.Calendar) error {
	if ev.Features.YearlyRange != "" {
		return nil
	}
	yr, err := detector.ClassifyYearlyRange(s, cal, ev.Resolution.Window.Start, breakoutPrice(ev.Occurrence))
	if err != nil {
		return err
	}
	ev.YearlyRange = yr
	ev.Features.YearlyRange = yr.Position
	return nil
}

func (e *Evaluator) detectHeight(ev *Evaluation, median float64) error {
	if ev.Features.Tall != "" {
		return nil
	}
	h, err := detector.ClassifyHeight(ev.PatternHigh, ev.PatternLow, ev.Occurrence.BreakoutPrice, median)
	if err != nil {
		return err
	}
	ev.Height = h
	ev.Features.Tall = model.AnswerOf(h.Tall)
	return nil
}

func (e *Evaluator) detectVolumeTrend(ev *Evaluation, s *model.Series) error {
	if ev.Features.VolumeTrend != "" {
		return nil
	}
	w := ev.Resolution.Window
	vt, err := detector.EstimateVolumeTrend(s, w.Start, w.End)
	if err != nil {
		return err
	}
	ev.VolumeTrend = vt
	ev.Features.VolumeTrend = vt.Trend
	return nil
}

func (e *Evaluator) detectBreakoutVolume(ev *Evaluation, s *model.Series, cal series.Calendar) error {
	if ev.Features.BreakoutVolume != "" {
		return nil
	}
	bv, err := detector.EvaluateBreakoutVolume(s, cal, ev.Resolution.Window.Breakout)
	if err != nil {
		return err
	}
	ev.BreakoutVolume = bv
	ev.Features.BreakoutVolume = model.AnswerOf(bv.Heavy)
	return nil
}
