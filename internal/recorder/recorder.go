package recorder

import (
	"time"

	"PatternGrader/internal/evaluator"
	"PatternGrader/internal/model"
)

const dateLayout = "2006-01-02 15:04"

// Record is one row of evaluation history. Failed evaluations carry Error and no score.
type Record struct {
	ID            string  `db:"id"`
	Timestamp     int64   `db:"timestamp"`
	Symbol        string  `db:"symbol"`
	Pattern       string  `db:"pattern"`
	Direction     string  `db:"direction"`
	Calendar      string  `db:"calendar"`
	StartDate     string  `db:"start_date"`
	EndDate       string  `db:"end_date"`
	BreakoutDate  string  `db:"breakout_date"`
	BreakoutPrice float64 `db:"breakout_price"`
	PatternHigh   float64 `db:"pattern_high"`
	PatternLow    float64 `db:"pattern_low"`

	Trend          string `db:"trend"`
	YearlyRange    string `db:"yearly_range"`
	MarketCap      string `db:"market_cap"`
	FlatBase       string `db:"flat_base"`
	HCR            string `db:"hcr"`
	Tall           string `db:"tall"`
	VolumeTrend    string `db:"volume_trend"`
	BreakoutVolume string `db:"breakout_volume"`
	Throwback      string `db:"throwback"`
	BreakoutGap    string `db:"breakout_gap"`

	Total        int    `db:"total"`
	Verdict      string `db:"verdict"`
	TableVersion string `db:"table_version"`
	Error        string `db:"error"`
}

// Time returns the record timestamp.
func (r *Record) Time() time.Time { return time.Unix(r.Timestamp, 0) }

// Failed reports whether the evaluation did not produce a score.
func (r *Record) Failed() bool { return r.Error != "" }

// NewRecord flattens an evaluation into a history row.
func NewRecord(ev *evaluator.Evaluation) *Record {
	occ := ev.Occurrence
	rec := &Record{
		Timestamp:   ev.EvaluatedAt.Unix(),
		Symbol:      ev.Symbol,
		Pattern:     occ.Pattern,
		Direction:   string(occ.Direction),
		Calendar:    ev.Calendar,
		PatternHigh: ev.PatternHigh,
		PatternLow:  ev.PatternLow,
	}
	if ev.Resolution != nil {
		rec.StartDate = ev.Resolution.From.Format(dateLayout)
		rec.EndDate = ev.Resolution.To.Format(dateLayout)
	}
	if !occ.Breakout.IsZero() {
		rec.BreakoutDate = occ.Breakout.Format(dateLayout)
	}
	if occ.BreakoutPrice != nil {
		rec.BreakoutPrice = *occ.BreakoutPrice
	}

	fs := ev.Features
	rec.Trend = fs.Value(model.FeatureTrend)
	rec.YearlyRange = fs.Value(model.FeatureYearlyRange)
	rec.MarketCap = fs.Value(model.FeatureMarketCap)
	rec.FlatBase = fs.Value(model.FeatureFlatBase)
	rec.HCR = fs.Value(model.FeatureHCR)
	rec.Tall = fs.Value(model.FeatureTall)
	rec.VolumeTrend = fs.Value(model.FeatureVolumeTrend)
	rec.BreakoutVolume = fs.Value(model.FeatureBreakoutVolume)
	rec.Throwback = fs.Value(model.FeatureThrowback)
	rec.BreakoutGap = fs.Value(model.FeatureBreakoutGap)

	if ev.Score != nil {
		rec.Pattern = ev.Score.Pattern
		rec.Total = ev.Score.Total
		rec.Verdict = ev.Score.Verdict
		rec.TableVersion = ev.Score.TableVersion
	}
	return rec
}

// NewFailure records an occurrence that could not be evaluated.
func NewFailure(symbol string, occ model.Occurrence, err error) *Record {
	rec := &Record{
		Timestamp: time.Now().Unix(),
		Symbol:    symbol,
		Pattern:   occ.Pattern,
		Direction: string(occ.Direction),
		StartDate: occ.From.Format(dateLayout),
		EndDate:   occ.To.Format(dateLayout),
		Error:     err.Error(),
	}
	if !occ.Breakout.IsZero() {
		rec.BreakoutDate = occ.Breakout.Format(dateLayout)
	}
	if occ.BreakoutPrice != nil {
		rec.BreakoutPrice = *occ.BreakoutPrice
	}
	return rec
}

// Recorder persists evaluation history for later review.
type Recorder interface {
	// Record stores rec, assigning its ID, and returns that ID.
	Record(rec *Record) (string, error)
	// History returns the newest records first; an empty symbol matches all symbols.
	History(symbol string, limit int) ([]Record, error)
	Close() error
}
