package model

// Contribution is a single feature's signed share of the total score.
type Contribution struct {
	Feature Feature
	Value   string
	Points  int
}

// ScoreResult is the final output of the score table.
type ScoreResult struct {
	Pattern       string
	Direction     Direction
	TableVersion  string
	Contributions []Contribution // always the ten Features, in order
	Total         int
	Verdict       string
}

// Points returns the contribution of one feature.
func (r *ScoreResult) Points(f Feature) int {
	for _, c := range r.Contributions {
		if c.Feature == f {
			return c.Points
		}
	}
	return 0
}
