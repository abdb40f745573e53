package model

// TrendLength buckets the length of the price trend leading into a pattern.
type TrendLength string

const (
	TrendShort        TrendLength = "short"
	TrendIntermediate TrendLength = "intermediate"
	TrendLong         TrendLength = "long"
)

// RangePosition places a price within the trailing yearly high-low range.
type RangePosition string

const (
	RangeLow  RangePosition = "low"
	RangeMid  RangePosition = "mid"
	RangeHigh RangePosition = "high"
)

// MarketCap is the company size bucket.
type MarketCap string

const (
	CapSmall  MarketCap = "small"
	CapMedium MarketCap = "medium"
	CapLarge  MarketCap = "large"
)

// VolumeTrend is the sign of the volume regression over the pattern.
type VolumeTrend string

const (
	VolumeUp   VolumeTrend = "up"
	VolumeDown VolumeTrend = "down"
)

// Answer is a yes/no judgment that may still be unresolved (empty).
type Answer string

const (
	Yes Answer = "yes"
	No  Answer = "no"
)

// AnswerOf converts a bool into an Answer.
func AnswerOf(b bool) Answer {
	if b {
		return Yes
	}
	return No
}

// Feature names one of the ten scored dimensions.
type Feature string

const (
	FeatureTrend          Feature = "trend"
	FeatureYearlyRange    Feature = "yearly_range"
	FeatureMarketCap      Feature = "market_cap"
	FeatureFlatBase       Feature = "flat_base"
	FeatureHCR            Feature = "hcr"
	FeatureTall           Feature = "tall"
	FeatureVolumeTrend    Feature = "volume_trend"
	FeatureBreakoutVolume Feature = "breakout_volume"
	FeatureThrowback      Feature = "throwback"
	FeatureBreakoutGap    Feature = "breakout_gap"
)

// Features lists the ten scored dimensions in report order.
var Features = []Feature{
	FeatureTrend,
	FeatureYearlyRange,
	FeatureMarketCap,
	FeatureFlatBase,
	FeatureHCR,
	FeatureTall,
	FeatureVolumeTrend,
	FeatureBreakoutVolume,
	FeatureThrowback,
	FeatureBreakoutGap,
}

// FeatureValues lists the accepted values for each feature.
var FeatureValues = map[Feature][]string{
	FeatureTrend:          {string(TrendShort), string(TrendIntermediate), string(TrendLong)},
	FeatureYearlyRange:    {string(RangeLow), string(RangeMid), string(RangeHigh)},
	FeatureMarketCap:      {string(CapSmall), string(CapMedium), string(CapLarge)},
	FeatureFlatBase:       {string(Yes), string(No)},
	FeatureHCR:            {string(Yes), string(No)},
	FeatureTall:           {string(Yes), string(No)},
	FeatureVolumeTrend:    {string(VolumeUp), string(VolumeDown)},
	FeatureBreakoutVolume: {string(Yes), string(No)},
	FeatureThrowback:      {string(Yes), string(No)},
	FeatureBreakoutGap:    {string(Yes), string(No)},
}

// FeatureSet accumulates the classifications for one scoring request.
// Empty fields are unresolved.
type FeatureSet struct {
	Trend       TrendLength   `yaml:"trend,omitempty" json:"trend,omitempty"`
	YearlyRange RangePosition `yaml:"yearly_range,omitempty" json:"yearly_range,omitempty"`
	MarketCap   MarketCap     `yaml:"market_cap,omitempty" json:"market_cap,omitempty"`
	FlatBase    Answer        `yaml:"flat_base,omitempty" json:"flat_base,omitempty"`
	HCR         Answer        `yaml:"hcr,omitempty" json:"hcr,omitempty"`
	Tall        Answer        `yaml:"tall,omitempty" json:"tall,omitempty"`
	VolumeTrend VolumeTrend   `yaml:"volume_trend,omitempty" json:"volume_trend,omitempty"`
	// BreakoutVolume is Yes when breakout-day volume is heavy.
	BreakoutVolume Answer `yaml:"breakout_volume,omitempty" json:"breakout_volume,omitempty"`
	Throwback      Answer `yaml:"throwback,omitempty" json:"throwback,omitempty"`
	BreakoutGap    Answer `yaml:"breakout_gap,omitempty" json:"breakout_gap,omitempty"`
}

// Value returns the raw value of a feature ("" when unresolved).
func (f *FeatureSet) Value(name Feature) string {
	switch name {
	case FeatureTrend:
		return string(f.Trend)
	case FeatureYearlyRange:
		return string(f.YearlyRange)
	case FeatureMarketCap:
		return string(f.MarketCap)
	case FeatureFlatBase:
		return string(f.FlatBase)
	case FeatureHCR:
		return string(f.HCR)
	case FeatureTall:
		return string(f.Tall)
	case FeatureVolumeTrend:
		return string(f.VolumeTrend)
	case FeatureBreakoutVolume:
		return string(f.BreakoutVolume)
	case FeatureThrowback:
		return string(f.Throwback)
	case FeatureBreakoutGap:
		return string(f.BreakoutGap)
	}
	return ""
}

// Missing lists the features that are still unresolved.
func (f *FeatureSet) Missing() []Feature {
	var out []Feature
	for _, name := range Features {
		if f.Value(name) == "" {
			out = append(out, name)
		}
	}
	return out
}

// Merge overlays every resolved field of other onto f.
func (f *FeatureSet) Merge(other FeatureSet) {
	if other.Trend != "" {
		f.Trend = other.Trend
	}
	if other.YearlyRange != "" {
		f.YearlyRange = other.YearlyRange
	}
	if other.MarketCap != "" {
		f.MarketCap = other.MarketCap
	}
	if other.FlatBase != "" {
		f.FlatBase = other.FlatBase
	}
	if other.HCR != "" {
		f.HCR = other.HCR
	}
	if other.Tall != "" {
		f.Tall = other.Tall
	}
	if other.VolumeTrend != "" {
		f.VolumeTrend = other.VolumeTrend
	}
	if other.BreakoutVolume != "" {
		f.BreakoutVolume = other.BreakoutVolume
	}
	if other.Throwback != "" {
		f.Throwback = other.Throwback
	}
	if other.BreakoutGap != "" {
		f.BreakoutGap = other.BreakoutGap
	}
}
