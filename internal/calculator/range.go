package calculator

import (
	"errors"
	"math"

	"PatternGrader/internal/model"
)

// WindowExtremes scans bars[from..to] (inclusive) and returns the highest high and lowest low
// along with the indices where they occur.
func WindowExtremes(bars []model.OHLCV, from, to int) (high, low float64, highIdx, lowIdx int, err error) {
	if from < 0 || to >= len(bars) || from > to {
		return 0, 0, -1, -1, errors.New("window out of range")
	}
	high = math.Inf(-1)
	low = math.Inf(1)
	for i := from; i <= to; i++ {
		if bars[i].High > high {
			high = bars[i].High
			highIdx = i
		}
		if bars[i].Low < low {
			low = bars[i].Low
			lowIdx = i
		}
	}
	return high, low, highIdx, lowIdx, nil
}

// RangeThird places price within the [low, high] range split into thirds.
// The upper boundary belongs to the high third; the lower boundary belongs to the middle third.
func RangeThird(price, high, low float64) (model.RangePosition, error) {
	if high < low {
		return "", errors.New("high must be >= low")
	}
	third := (high - low) / 3
	switch {
	case price >= high-third:
		return model.RangeHigh, nil
	case price < low+third:
		return model.RangeLow, nil
	default:
		return model.RangeMid, nil
	}
}
