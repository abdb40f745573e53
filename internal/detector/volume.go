package detector

import (
	"errors"

	"PatternGrader/internal/calculator"
	"PatternGrader/internal/model"
	"PatternGrader/internal/series"
)

// HeavyVolumeRatio is the breakout-day volume multiple of the trailing average that counts as heavy.
const HeavyVolumeRatio = 1.25

const (
	volumeTrendDetectorName    = "volume trend"
	breakoutVolumeDetectorName = "breakout volume"
)

// VolumeTrend is the least-squares slope of volume across the pattern.
type VolumeTrend struct {
	// Slope is measured with x increasing toward the breakout.
	Slope float64
	Bars  int
	Trend model.VolumeTrend
}

// EstimateVolumeTrend regresses volume on bar order over bars[from..to].
// A negative slope means volume fell into the breakout; zero or positive is rising.
func EstimateVolumeTrend(s *model.Series, from, to int) (*VolumeTrend, error) {
	if from < 0 || to >= len(s.Bars) || from > to {
		return nil, fail(volumeTrendDetectorName, ErrWindowOutOfRange)
	}
	vols := make([]float64, 0, to-from+1)
	for i := from; i <= to; i++ {
		vols = append(vols, s.Bars[i].Volume)
	}
	slope, err := calculator.LinearSlope(vols)
	if err != nil {
		if errors.Is(err, calculator.ErrZeroDenominator) {
			return nil, fail(volumeTrendDetectorName, ErrDegenerateRegression)
		}
		return nil, fail(volumeTrendDetectorName, err)
	}
	trend := model.VolumeUp
	if slope < 0 {
		trend = model.VolumeDown
	}
	return &VolumeTrend{Slope: slope, Bars: len(vols), Trend: trend}, nil
}

// BreakoutVolume compares breakout-day volume to the trailing average.
type BreakoutVolume struct {
	Volume  float64
	Average float64
	From    int
	To      int
	Heavy   bool
}

// EvaluateBreakoutVolume averages volume over the window ending the bar before the breakout
// (65 bars intraday, 3 calendar months daily) and flags heavy at 125% or more.
func EvaluateBreakoutVolume(s *model.Series, cal series.Calendar, breakout int) (*BreakoutVolume, error) {
	if breakout < 0 || breakout >= len(s.Bars) {
		return nil, fail(breakoutVolumeDetectorName, ErrBreakoutNotFound)
	}
	from := cal.VolumeWindowStart(s.Bars, breakout)
	to := breakout - 1
	if from > to {
		return nil, fail(breakoutVolumeDetectorName, ErrNotEnoughData)
	}
	avg, err := calculator.AverageVolume(s.Bars, from, to)
	if err != nil {
		return nil, fail(breakoutVolumeDetectorName, ErrNotEnoughData)
	}
	vol := s.Bars[breakout].Volume
	return &BreakoutVolume{
		Volume:  vol,
		Average: avg,
		From:    from,
		To:      to,
		Heavy:   IsHeavy(vol, avg),
	}, nil
}

// IsHeavy reports whether volume is at least HeavyVolumeRatio times average.
func IsHeavy(volume, average float64) bool {
	return volume >= HeavyVolumeRatio*average
}
