package calculator

import (
	"errors"

	"PatternGrader/internal/model"
)

// CalculateSMA computes the simple average of all values.
func CalculateSMA(values []float64) (float64, error) {
	if len(values) == 0 {
		return 0, errors.New("not enough data for average")
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values)), nil
}

// AverageVolume returns the mean volume of bars[from..to] (inclusive).
func AverageVolume(bars []model.OHLCV, from, to int) (float64, error) {
	if from < 0 || to >= len(bars) || from > to {
		return 0, errors.New("not enough data for average volume")
	}
	return CalculateSMA(extractVolumes(bars[from : to+1]))
}

func extractVolumes(bars []model.OHLCV) []float64 {
	vols := make([]float64, len(bars))
	for i, b := range bars {
		vols[i] = b.Volume
	}
	return vols
}
