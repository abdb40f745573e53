package model

import (
	"fmt"
	"strings"
	"time"
)

// Direction is the declared breakout direction of a pattern.
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

// ParseDirection accepts "up"/"down" and a few common spellings.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "up", "upward", "u", "long":
		return DirectionUp, nil
	case "down", "downward", "d", "short":
		return DirectionDown, nil
	}
	return "", fmt.Errorf("unknown breakout direction %q", s)
}

// Occurrence is a labeled pattern as supplied by the caller, addressed by dates.
type Occurrence struct {
	Pattern   string
	Direction Direction
	From      time.Time
	To        time.Time
	// Breakout is the zero time when the breakout has not happened yet.
	Breakout time.Time
	// BreakoutPrice is nil when the caller has not established it.
	BreakoutPrice *float64
	// PatternHigh/PatternLow override the window extremes when non-zero.
	PatternHigh float64
	PatternLow  float64
}

// Earliest returns the earlier of From and To, ignoring a zero date.
func (o Occurrence) Earliest() time.Time {
	if o.To.IsZero() || (!o.From.IsZero() && o.From.Before(o.To)) {
		return o.From
	}
	return o.To
}

// PatternWindow is an occurrence resolved onto bar indices.
// Start <= End always holds; Breakout is -1 when the breakout bar is not in the series.
type PatternWindow struct {
	Start         int
	End           int
	Breakout      int
	BreakoutPrice float64
	Direction     Direction
}

// HasBreakout reports whether the breakout bar was located.
func (w PatternWindow) HasBreakout() bool { return w.Breakout >= 0 }
