package model

import "time"

// OHLCV represents a single candlestick bar.
type OHLCV struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Series is an ordered (oldest first) run of bars for one symbol.
// Intraday switches date comparisons from calendar days to full timestamps.
type Series struct {
	Symbol   string
	Bars     []OHLCV
	Intraday bool
}

// Len returns the number of bars.
func (s *Series) Len() int { return len(s.Bars) }

// Last returns the index of the newest bar, or -1 when the series is empty.
func (s *Series) Last() int { return len(s.Bars) - 1 }
