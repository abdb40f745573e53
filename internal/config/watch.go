package config

import (
	"fmt"
	"strings"
	"time"

	"PatternGrader/internal/model"
)

// Watch is one labeled pattern occurrence to score.
type Watch struct {
	Symbol    string `yaml:"symbol"`
	Pattern   string `yaml:"pattern"`
	Direction string `yaml:"direction"`
	// Dates accept "2006-01-02" or "2006-01-02 15:04" (UTC).
	From          string   `yaml:"from"`
	To            string   `yaml:"to"`
	Breakout      string   `yaml:"breakout"`
	BreakoutPrice *float64 `yaml:"breakout_price"`
	PatternHigh   float64  `yaml:"pattern_high"`
	PatternLow    float64  `yaml:"pattern_low"`
	Intraday      bool     `yaml:"intraday"`
	// Answers pre-resolves features; detectors skip anything set here.
	Answers model.FeatureSet `yaml:"answers"`
}

var dateLayouts = []string{"2006-01-02 15:04", "2006-01-02T15:04:05Z07:00", "2006-01-02"}

// ParseDate parses a watchlist date in UTC.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}

// Label is a short human-readable name for the entry.
func (w *Watch) Label() string {
	return fmt.Sprintf("%s %s (%s)", w.Symbol, w.Pattern, w.Direction)
}

// Validate checks required fields, dates and answer values.
func (w *Watch) Validate() error {
	if w.Symbol == "" {
		return fmt.Errorf("symbol is required")
	}
	if w.Pattern == "" {
		return fmt.Errorf("%s: pattern is required", w.Symbol)
	}
	if _, err := w.Occurrence(); err != nil {
		return fmt.Errorf("%s: %w", w.Symbol, err)
	}
	for _, f := range model.Features {
		v := w.Answers.Value(f)
		if v == "" {
			continue
		}
		if !allowed(f, v) {
			return fmt.Errorf("%s: answer %s=%q not one of %v", w.Symbol, f, v, model.FeatureValues[f])
		}
	}
	return nil
}

// Occurrence converts the entry into the evaluator's input.
func (w *Watch) Occurrence() (model.Occurrence, error) {
	dir, err := model.ParseDirection(w.Direction)
	if err != nil {
		return model.Occurrence{}, err
	}
	from, err := ParseDate(w.From)
	if err != nil {
		return model.Occurrence{}, fmt.Errorf("from: %w", err)
	}
	to, err := ParseDate(w.To)
	if err != nil {
		return model.Occurrence{}, fmt.Errorf("to: %w", err)
	}
	occ := model.Occurrence{
		Pattern:       w.Pattern,
		Direction:     dir,
		From:          from,
		To:            to,
		BreakoutPrice: w.BreakoutPrice,
		PatternHigh:   w.PatternHigh,
		PatternLow:    w.PatternLow,
	}
	if w.Breakout != "" {
		if occ.Breakout, err = ParseDate(w.Breakout); err != nil {
			return model.Occurrence{}, fmt.Errorf("breakout: %w", err)
		}
	}
	return occ, nil
}

func allowed(f model.Feature, v string) bool {
	for _, a := range model.FeatureValues[f] {
		if a == v {
			return true
		}
	}
	return false
}
