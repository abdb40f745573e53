package detector

import (
	"math"

	"PatternGrader/internal/calculator"
	"PatternGrader/internal/model"
	"PatternGrader/internal/series"
)

const yearlyDetectorName = "yearly range"

// YearlyRange is the trailing one-year range before a pattern and where the breakout sits in it.
type YearlyRange struct {
	High     float64
	Low      float64
	From     int
	To       int
	Position model.RangePosition
}

// ClassifyYearlyRange scans the year ending one calendar day before the pattern start
// and places breakoutPrice into its low, middle or high third.
func ClassifyYearlyRange(s *model.Series, cal series.Calendar, start int, breakoutPrice float64) (*YearlyRange, error) {
	if math.IsNaN(breakoutPrice) || breakoutPrice <= 0 {
		return nil, fail(yearlyDetectorName, ErrMissingBreakoutPrice)
	}
	bars := s.Bars
	if start < 0 || start >= len(bars) {
		return nil, fail(yearlyDetectorName, ErrWindowOutOfRange)
	}

	endDate := cal.Key(bars[start].Time).AddDate(0, 0, -1)
	to := series.IndexAtOrBefore(bars, cal, endDate)
	if to < 0 {
		return nil, fail(yearlyDetectorName, ErrNotEnoughData)
	}
	fromDate := endDate.AddDate(-1, 0, 0)
	from := to
	for from > 0 && !cal.Key(bars[from-1].Time).Before(fromDate) {
		from--
	}

	high, low, _, _, err := calculator.WindowExtremes(bars, from, to)
	if err != nil {
		return nil, fail(yearlyDetectorName, ErrNotEnoughData)
	}
	pos, err := calculator.RangeThird(breakoutPrice, high, low)
	if err != nil {
		return nil, fail(yearlyDetectorName, err)
	}
	return &YearlyRange{High: high, Low: low, From: from, To: to, Position: pos}, nil
}
