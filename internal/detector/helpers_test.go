package detector

import (
	"time"

	"PatternGrader/internal/model"
)

var day0 = time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)

// flatSeries builds n bars one calendar day (or one hour when intraday) apart, all at price p.
func flatSeries(n int, p float64, intraday bool) *model.Series {
	step := 24 * time.Hour
	if intraday {
		step = time.Hour
	}
	bars := make([]model.OHLCV, n)
	for i := range bars {
		bars[i] = model.OHLCV{
			Time:   day0.Add(time.Duration(i) * step),
			Open:   p,
			High:   p + 1,
			Low:    p - 1,
			Close:  p,
			Volume: 100,
		}
	}
	return &model.Series{Symbol: "TEST", Bars: bars, Intraday: intraday}
}

func setPrice(b *model.OHLCV, p, spread float64) {
	b.Open = p
	b.Close = p
	b.High = p + spread
	b.Low = p - spread
}
