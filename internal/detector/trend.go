package detector

import (
	"PatternGrader/internal/model"
	"PatternGrader/internal/series"
)

// Trend thresholds, in calendar days for daily series and bars for intraday series.
const (
	TrendLookback     = 14.0
	TrendShortLimit   = 91.25
	TrendLongLimit    = 182.5
	TrendRetracement  = 0.20
	trendDetectorName = "trend start"
)

// TrendStart is where the price trend leading into a pattern began.
type TrendStart struct {
	// Index is -1 when the trend ran past the long limit without a reversal.
	Index int
	// Length is the elapsed distance from Index to the pattern start.
	Length float64
	// Rising is true when price climbed into the pattern.
	Rising bool
	Class  model.TrendLength
}

// ClassifyTrendLength buckets an elapsed distance.
func ClassifyTrendLength(length float64) model.TrendLength {
	switch {
	case length < TrendShortLimit:
		return model.TrendShort
	case length < TrendLongLimit:
		return model.TrendIntermediate
	default:
		return model.TrendLong
	}
}

// LocateTrendStart walks backward from the pattern start bar to the extreme where
// the preceding trend began. A rise into the pattern is traced back to its lowest low,
// a decline to its highest high; the scan stops once price retraces 20% from the
// running extreme or the distance passes the long limit.
func LocateTrendStart(s *model.Series, cal series.Calendar, start int, patternHigh, patternLow float64) (*TrendStart, error) {
	if patternHigh == 0 || patternLow == 0 || patternHigh == patternLow {
		return nil, fail(trendDetectorName, ErrInsufficientHeight)
	}
	bars := s.Bars
	if start < 0 || start >= len(bars) {
		return nil, fail(trendDetectorName, ErrWindowOutOfRange)
	}

	ref := cal.LookbackIndex(bars, start, TrendLookback)
	if ref == start {
		return nil, fail(trendDetectorName, ErrTrendStartNotFound)
	}

	mid := (patternHigh + patternLow) / 2
	rising := bars[ref].Close < mid

	extIdx := ref
	ext := bars[ref].High
	if rising {
		ext = bars[ref].Low
	}

	for j := ref - 1; j >= 0; j-- {
		if cal.Distance(bars, j, start) > TrendLongLimit {
			return &TrendStart{Index: -1, Length: cal.Distance(bars, j, start), Rising: rising, Class: model.TrendLong}, nil
		}
		b := bars[j]
		if rising {
			if b.High >= ext*(1+TrendRetracement) {
				return found(bars, cal, extIdx, start, rising), nil
			}
			if b.Low < ext {
				ext, extIdx = b.Low, j
			}
		} else {
			if b.Low <= ext*(1-TrendRetracement) {
				return found(bars, cal, extIdx, start, rising), nil
			}
			if b.High > ext {
				ext, extIdx = b.High, j
			}
		}
	}

	if d := cal.Distance(bars, 0, start); d >= TrendLongLimit {
		return &TrendStart{Index: -1, Length: d, Rising: rising, Class: model.TrendLong}, nil
	}
	return nil, fail(trendDetectorName, ErrTrendStartNotFound)
}

func found(bars []model.OHLCV, cal series.Calendar, idx, start int, rising bool) *TrendStart {
	length := cal.Distance(bars, idx, start)
	return &TrendStart{Index: idx, Length: length, Rising: rising, Class: ClassifyTrendLength(length)}
}
