package model

import (
	"testing"
	"time"
)

func TestOccurrence_Earliest(t *testing.T) {
	a := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	b := time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name     string
		from, to time.Time
		want     time.Time
	}{
		{"ordered", a, b, a},
		{"swapped", b, a, a},
		{"no end", a, time.Time{}, a},
		{"no start", time.Time{}, b, b},
	}
	for _, tt := range tests {
		if got := (Occurrence{From: tt.from, To: tt.to}).Earliest(); !got.Equal(tt.want) {
			t.Errorf("%s: expected %s, got %s", tt.name, tt.want, got)
		}
	}
}
