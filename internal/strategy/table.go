package strategy

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"PatternGrader/internal/model"
)

//go:embed rules.yaml
var defaultRules []byte

var (
	ErrUnknownPattern      = errors.New("unknown pattern type")
	ErrNoRuleForDirection  = errors.New("no rule for breakout direction")
	ErrInvalidFeatureValue = errors.New("invalid feature value")
)

// DirectionAny marks a rule that applies to both breakout directions.
const DirectionAny = "any"

// Rule maps each feature value to its contribution for one pattern and direction.
type Rule struct {
	Direction    string
	MedianHeight float64
	Points       map[model.Feature]map[string]int
}

// Pattern is one entry of the score table.
type Pattern struct {
	Name    string
	Aliases []string
	rules   map[string]*Rule
}

// Directional reports whether the pattern scores each breakout direction separately.
func (p *Pattern) Directional() bool {
	_, hasAny := p.rules[DirectionAny]
	return !hasAny
}

// Rule returns the rule for a breakout direction.
func (p *Pattern) Rule(dir model.Direction) (*Rule, error) {
	if r, ok := p.rules[DirectionAny]; ok {
		return r, nil
	}
	if r, ok := p.rules[string(dir)]; ok {
		return r, nil
	}
	return nil, fmt.Errorf("%s %q: %w", p.Name, dir, ErrNoRuleForDirection)
}

// Rules returns the pattern's rules, any first, then up, then down.
func (p *Pattern) Rules() []*Rule {
	var out []*Rule
	for _, d := range []string{DirectionAny, string(model.DirectionUp), string(model.DirectionDown)} {
		if r, ok := p.rules[d]; ok {
			out = append(out, r)
		}
	}
	return out
}

// Table is the immutable pattern score table. Safe for concurrent use.
type Table struct {
	Version    string
	capDefault map[string]int
	byKey      map[string]*Pattern
	patterns   []*Pattern
}

type tableDoc struct {
	Version          string         `yaml:"version"`
	MarketCapDefault map[string]int `yaml:"market_cap_default"`
	Patterns         []struct {
		Name    string    `yaml:"name"`
		Aliases []string  `yaml:"aliases"`
		Rules   []ruleDoc `yaml:"rules"`
	} `yaml:"patterns"`
}

type ruleDoc struct {
	Direction    string                    `yaml:"direction"`
	MedianHeight float64                   `yaml:"median_height"`
	Features     map[string]map[string]int `yaml:",inline"`
}

// DefaultTable parses the rule table compiled into the binary.
func DefaultTable() (*Table, error) {
	return ParseTable(defaultRules)
}

// LoadTable reads a rule table from path, or returns the built-in table when path is empty.
func LoadTable(path string) (*Table, error) {
	if path == "" {
		return DefaultTable()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules: %w", err)
	}
	return ParseTable(data)
}

// ParseTable decodes and validates a YAML rule table.
func ParseTable(data []byte) (*Table, error) {
	var doc tableDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse rules: %w", err)
	}
	if len(doc.Patterns) == 0 {
		return nil, errors.New("rules: no patterns defined")
	}

	t := &Table{
		Version:    doc.Version,
		capDefault: map[string]int{string(model.CapSmall): 1, string(model.CapMedium): 0, string(model.CapLarge): -1},
		byKey:      make(map[string]*Pattern),
	}
	if doc.MarketCapDefault != nil {
		if err := checkPoints(model.FeatureMarketCap, doc.MarketCapDefault); err != nil {
			return nil, fmt.Errorf("rules: market_cap_default: %w", err)
		}
		t.capDefault = doc.MarketCapDefault
	}

	for _, pd := range doc.Patterns {
		if strings.TrimSpace(pd.Name) == "" {
			return nil, errors.New("rules: pattern without a name")
		}
		p := &Pattern{Name: pd.Name, Aliases: pd.Aliases, rules: make(map[string]*Rule)}
		for _, rd := range pd.Rules {
			r, err := buildRule(rd)
			if err != nil {
				return nil, fmt.Errorf("rules: %s: %w", pd.Name, err)
			}
			if _, dup := p.rules[r.Direction]; dup {
				return nil, fmt.Errorf("rules: %s: duplicate %s rule", pd.Name, r.Direction)
			}
			p.rules[r.Direction] = r
		}
		if err := checkCoverage(p); err != nil {
			return nil, fmt.Errorf("rules: %s: %w", pd.Name, err)
		}
		for _, name := range append([]string{pd.Name}, pd.Aliases...) {
			key := normalizeName(name)
			if prev, ok := t.byKey[key]; ok {
				return nil, fmt.Errorf("rules: name %q used by both %s and %s", name, prev.Name, pd.Name)
			}
			t.byKey[key] = p
		}
		t.patterns = append(t.patterns, p)
	}
	return t, nil
}

func buildRule(rd ruleDoc) (*Rule, error) {
	dir := strings.ToLower(strings.TrimSpace(rd.Direction))
	switch dir {
	case DirectionAny, string(model.DirectionUp), string(model.DirectionDown):
	default:
		return nil, fmt.Errorf("unknown direction %q", rd.Direction)
	}
	if rd.MedianHeight <= 0 {
		return nil, fmt.Errorf("%s rule: median_height must be positive", dir)
	}
	r := &Rule{Direction: dir, MedianHeight: rd.MedianHeight, Points: make(map[model.Feature]map[string]int)}
	for name, points := range rd.Features {
		f := model.Feature(name)
		if _, known := model.FeatureValues[f]; !known {
			return nil, fmt.Errorf("%s rule: unknown feature %q", dir, name)
		}
		if err := checkPoints(f, points); err != nil {
			return nil, fmt.Errorf("%s rule: %s: %w", dir, name, err)
		}
		r.Points[f] = points
	}
	for _, f := range model.Features {
		if f == model.FeatureMarketCap {
			continue
		}
		if _, ok := r.Points[f]; !ok {
			return nil, fmt.Errorf("%s rule: missing feature %q", dir, f)
		}
	}
	return r, nil
}

func checkPoints(f model.Feature, points map[string]int) error {
	allowed := model.FeatureValues[f]
	for _, v := range allowed {
		p, ok := points[v]
		if !ok {
			return fmt.Errorf("missing value %q", v)
		}
		if p < -1 || p > 1 {
			return fmt.Errorf("value %q: contribution %d outside -1..1", v, p)
		}
	}
	if len(points) != len(allowed) {
		return fmt.Errorf("unexpected values (want %s)", strings.Join(allowed, ", "))
	}
	return nil
}

func checkCoverage(p *Pattern) error {
	_, hasAny := p.rules[DirectionAny]
	_, up := p.rules[string(model.DirectionUp)]
	_, down := p.rules[string(model.DirectionDown)]
	switch {
	case hasAny && (up || down):
		return errors.New("mixes an any rule with directional rules")
	case !hasAny && !(up && down):
		return errors.New("needs an any rule or both up and down rules")
	}
	return nil
}

// Lookup finds a pattern by name or alias, ignoring case and punctuation.
func (t *Table) Lookup(name string) (*Pattern, error) {
	if p, ok := t.byKey[normalizeName(name)]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("%q: %w", name, ErrUnknownPattern)
}

// Rule returns the rule for a pattern and breakout direction.
func (t *Table) Rule(name string, dir model.Direction) (*Rule, error) {
	p, err := t.Lookup(name)
	if err != nil {
		return nil, err
	}
	return p.Rule(dir)
}

// MedianHeight returns the median height ratio for a pattern and breakout direction.
func (t *Table) MedianHeight(name string, dir model.Direction) (float64, error) {
	r, err := t.Rule(name, dir)
	if err != nil {
		return 0, err
	}
	return r.MedianHeight, nil
}

// Patterns returns the table entries sorted by name.
func (t *Table) Patterns() []*Pattern {
	out := make([]*Pattern, len(t.patterns))
	copy(out, t.patterns)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (t *Table) points(r *Rule, f model.Feature) map[string]int {
	if p, ok := r.Points[f]; ok {
		return p
	}
	if f == model.FeatureMarketCap {
		return t.capDefault
	}
	return nil
}

var nameReplacer = strings.NewReplacer("-", " ", "_", " ", "&", " and ", ",", " ", ".", " ")

func normalizeName(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(nameReplacer.Replace(s))), " ")
}
