package detector

import "math"

const heightDetectorName = "height"

// Height compares the pattern height, as a fraction of the breakout price, to the median for its type.
type Height struct {
	Ratio  float64
	Median float64
	Tall   bool
}

// ClassifyHeight returns tall when (high-low)/breakoutPrice exceeds median.
// A non-positive breakout price is treated as tall.
func ClassifyHeight(patternHigh, patternLow float64, breakoutPrice *float64, median float64) (*Height, error) {
	if breakoutPrice == nil || math.IsNaN(*breakoutPrice) {
		return nil, fail(heightDetectorName, ErrMissingBreakoutPrice)
	}
	if patternHigh <= patternLow {
		return nil, fail(heightDetectorName, ErrInsufficientHeight)
	}
	if *breakoutPrice <= 0 {
		return &Height{Ratio: math.Inf(1), Median: median, Tall: true}, nil
	}
	ratio := (patternHigh - patternLow) / *breakoutPrice
	return &Height{Ratio: ratio, Median: median, Tall: IsTall(ratio, median)}, nil
}

// IsTall reports whether ratio is strictly above the median.
func IsTall(ratio, median float64) bool {
	return ratio > median
}
