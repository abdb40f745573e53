package strategy

import (
	"fmt"
	"strings"

	"PatternGrader/internal/model"
)

// Verdicts maps a total score to a reading, highest first.
var Verdicts = []struct {
	MinScore int
	Label    string
}{
	{4, "strong"},
	{1, "above average"},
	{-2, "below average"},
}

// DefaultVerdict is the reading for totals below every threshold.
const DefaultVerdict = "weak"

// mapVerdict maps a total score to its reading.
func mapVerdict(total int) string {
	for _, v := range Verdicts {
		if total >= v.MinScore {
			return v.Label
		}
	}
	return DefaultVerdict
}

// IncompleteFeaturesError is returned when scoring is attempted before every feature is resolved.
type IncompleteFeaturesError struct {
	Missing []model.Feature
}

func (e *IncompleteFeaturesError) Error() string {
	names := make([]string, len(e.Missing))
	for i, f := range e.Missing {
		names[i] = string(f)
	}
	return "unresolved features: " + strings.Join(names, ", ")
}

// Score looks up the rule for pattern and direction and sums the ten feature contributions.
// It performs no detection; every feature in fs must already be resolved.
func (t *Table) Score(pattern string, dir model.Direction, fs *model.FeatureSet) (*model.ScoreResult, error) {
	p, err := t.Lookup(pattern)
	if err != nil {
		return nil, err
	}
	if dir != model.DirectionUp && dir != model.DirectionDown {
		return nil, fmt.Errorf("%s %q: %w", p.Name, dir, ErrNoRuleForDirection)
	}
	rule, err := p.Rule(dir)
	if err != nil {
		return nil, err
	}
	if missing := fs.Missing(); len(missing) > 0 {
		return nil, &IncompleteFeaturesError{Missing: missing}
	}

	res := &model.ScoreResult{
		Pattern:       p.Name,
		Direction:     dir,
		TableVersion:  t.Version,
		Contributions: make([]model.Contribution, 0, len(model.Features)),
	}
	for _, f := range model.Features {
		value := fs.Value(f)
		pts, ok := t.points(rule, f)[value]
		if !ok {
			return nil, fmt.Errorf("%s=%q: %w", f, value, ErrInvalidFeatureValue)
		}
		res.Contributions = append(res.Contributions, model.Contribution{Feature: f, Value: value, Points: pts})
		res.Total += pts
	}
	res.Verdict = mapVerdict(res.Total)
	return res, nil
}
