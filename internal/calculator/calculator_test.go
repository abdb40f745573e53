package calculator

import (
	"errors"
	"math"
	"testing"
	"time"

	"PatternGrader/internal/model"
)

func TestLinearSlope(t *testing.T) {
	tests := []struct {
		name string
		ys   []float64
		want float64
	}{
		{"increasing", []float64{1, 2, 3, 4}, 1},
		{"decreasing", []float64{10, 8, 6, 4, 2}, -2},
		{"constant", []float64{5, 5, 5}, 0},
	}
	for _, tt := range tests {
		got, err := LinearSlope(tt.ys)
		if err != nil {
			t.Fatalf("%s: %v", tt.name, err)
		}
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("%s: expected %v, got %v", tt.name, tt.want, got)
		}
	}
	for _, ys := range [][]float64{nil, {42}} {
		if _, err := LinearSlope(ys); !errors.Is(err, ErrZeroDenominator) {
			t.Errorf("%v: expected ErrZeroDenominator, got %v", ys, err)
		}
	}
}

func TestRangeThird(t *testing.T) {
	tests := []struct {
		price float64
		want  model.RangePosition
	}{
		{100, model.RangeHigh},
		{90, model.RangeHigh},
		{85, model.RangeMid},
		{80, model.RangeMid},
		{79.9, model.RangeLow},
		{70, model.RangeLow},
	}
	for _, tt := range tests {
		got, err := RangeThird(tt.price, 100, 70)
		if err != nil {
			t.Fatal(err)
		}
		if got != tt.want {
			t.Errorf("price %v: expected %s, got %s", tt.price, tt.want, got)
		}
	}
	if _, err := RangeThird(1, 70, 100); err == nil {
		t.Error("expected error for inverted range")
	}
}

func TestWindowExtremes(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := []model.OHLCV{
		{Time: base, High: 5, Low: 3},
		{Time: base.AddDate(0, 0, 1), High: 9, Low: 4},
		{Time: base.AddDate(0, 0, 2), High: 7, Low: 1},
		{Time: base.AddDate(0, 0, 3), High: 20, Low: 0.5},
	}
	high, low, hi, li, err := WindowExtremes(bars, 0, 2)
	if err != nil {
		t.Fatal(err)
	}
	if high != 9 || low != 1 || hi != 1 || li != 2 {
		t.Errorf("expected high 9@1 low 1@2, got %v@%d %v@%d", high, hi, low, li)
	}
	if _, _, _, _, err := WindowExtremes(bars, 2, 1); err == nil {
		t.Error("expected error for empty window")
	}
}

func TestAverageVolume(t *testing.T) {
	bars := []model.OHLCV{{Volume: 100}, {Volume: 200}, {Volume: 300}, {Volume: 1000}}
	avg, err := AverageVolume(bars, 0, 2)
	if err != nil {
		t.Fatal(err)
	}
	if avg != 200 {
		t.Errorf("expected 200, got %v", avg)
	}
	if _, err := AverageVolume(bars, 3, 4); err == nil {
		t.Error("expected error for out-of-range window")
	}
}
