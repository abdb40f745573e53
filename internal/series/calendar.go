package series

import (
	"time"

	"PatternGrader/internal/model"
)

// Calendar captures how a series kind compares dates and measures elapsed time.
// Daily series compare calendar dates and measure distance in calendar days;
// intraday series compare full timestamps and measure distance in bars.
type Calendar interface {
	Name() string
	// Key normalizes a timestamp for equality and ordering.
	Key(t time.Time) time.Time
	// Distance returns the elapsed units from bar from to bar to.
	Distance(bars []model.OHLCV, from, to int) float64
	// LookbackIndex returns the earliest index no more than units before idx.
	LookbackIndex(bars []model.OHLCV, idx int, units float64) int
	// VolumeWindowStart returns the first index of the trailing average-volume window for breakout bar b.
	VolumeWindowStart(bars []model.OHLCV, b int) int
}

// IntradayVolumeBars is the trailing window for intraday breakout volume.
const IntradayVolumeBars = 65

// DailyVolumeMonths is the trailing window for daily breakout volume.
const DailyVolumeMonths = 3

// CalendarFor returns the calendar matching the series kind.
func CalendarFor(s *model.Series) Calendar {
	if s.Intraday {
		return Intraday{}
	}
	return Daily{}
}

// Daily compares bars by calendar date, ignoring time of day.
type Daily struct{}

func (Daily) Name() string { return "daily" }

func (Daily) Key(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (c Daily) Distance(bars []model.OHLCV, from, to int) float64 {
	return c.Key(bars[to].Time).Sub(c.Key(bars[from].Time)).Hours() / 24
}

func (c Daily) LookbackIndex(bars []model.OHLCV, idx int, units float64) int {
	k := idx
	for k > 0 && c.Distance(bars, k-1, idx) <= units {
		k--
	}
	return k
}

func (c Daily) VolumeWindowStart(bars []model.OHLCV, b int) int {
	from := c.Key(bars[b].Time).AddDate(0, -DailyVolumeMonths, 0)
	k := b
	for k > 0 && !c.Key(bars[k-1].Time).Before(from) {
		k--
	}
	return k
}

// Intraday compares bars by full timestamp.
type Intraday struct{}

func (Intraday) Name() string { return "intraday" }

func (Intraday) Key(t time.Time) time.Time { return t }

func (Intraday) Distance(_ []model.OHLCV, from, to int) float64 {
	return float64(to - from)
}

func (Intraday) LookbackIndex(_ []model.OHLCV, idx int, units float64) int {
	k := idx - int(units)
	if k < 0 {
		k = 0
	}
	return k
}

func (Intraday) VolumeWindowStart(_ []model.OHLCV, b int) int {
	k := b - IntradayVolumeBars
	if k < 0 {
		k = 0
	}
	return k
}

// IndexAtOrBefore scans backward from the newest bar and returns the first
// bar whose key is <= t, or -1 if every bar is later.
func IndexAtOrBefore(bars []model.OHLCV, cal Calendar, t time.Time) int {
	key := cal.Key(t)
	for i := len(bars) - 1; i >= 0; i-- {
		if !cal.Key(bars[i].Time).After(key) {
			return i
		}
	}
	return -1
}

// IndexOf returns the bar whose key equals t, or -1.
func IndexOf(bars []model.OHLCV, cal Calendar, t time.Time) int {
	key := cal.Key(t)
	for i := len(bars) - 1; i >= 0; i-- {
		k := cal.Key(bars[i].Time)
		if k.Equal(key) {
			return i
		}
		if k.Before(key) {
			break
		}
	}
	return -1
}
