package calculator

import "errors"

// ErrZeroDenominator is returned when the regression has no spread in x.
var ErrZeroDenominator = errors.New("cannot compute regression: zero denominator")

// LinearSlope fits y against x = 1..n by ordinary least squares and returns the slope.
func LinearSlope(ys []float64) (float64, error) {
	var sumX, sumY, sumXX, sumXY float64
	n := float64(len(ys))
	for i, y := range ys {
		x := float64(i + 1)
		sumX += x
		sumY += y
		sumXX += x * x
		sumXY += x * y
	}
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0, ErrZeroDenominator
	}
	return (n*sumXY - sumX*sumY) / denom, nil
}
