package series

import (
	"errors"
	"fmt"
	"log"
	"time"

	"PatternGrader/internal/model"
)

// ErrEmptySeries is returned when there are no bars to resolve against.
var ErrEmptySeries = errors.New("series has no bars")

const dateLayout = "2006-01-02 15:04"

// Resolution is an occurrence mapped onto bar indices.
type Resolution struct {
	Window model.PatternWindow
	// From and To are the effective dates after swapping and clamping.
	From     time.Time
	To       time.Time
	Adjusted bool
	Notices  []string
}

// Resolver maps requested dates onto bar indices.
type Resolver struct {
	Calendar Calendar
	// Quiet suppresses the adjustment notices in the log.
	Quiet bool
}

// NewResolver creates a resolver using the calendar that matches the series kind.
func NewResolver(s *model.Series, quiet bool) *Resolver {
	return &Resolver{Calendar: CalendarFor(s), Quiet: quiet}
}

// Resolve swaps reversed dates, snaps out-of-range dates to the series bounds
// and locates the start, end and breakout bars.
func (r *Resolver) Resolve(s *model.Series, occ model.Occurrence) (*Resolution, error) {
	if s == nil || len(s.Bars) == 0 {
		return nil, ErrEmptySeries
	}
	cal := r.Calendar
	if cal == nil {
		cal = CalendarFor(s)
	}

	res := &Resolution{From: occ.From, To: occ.To}
	if cal.Key(res.From).After(cal.Key(res.To)) {
		res.From, res.To = res.To, res.From
		res.note(fmt.Sprintf("start date after end date, swapped to %s .. %s",
			res.From.Format(dateLayout), res.To.Format(dateLayout)))
	}

	first, last := s.Bars[0].Time, s.Bars[s.Last()].Time
	res.From = clamp(cal, res, "start", res.From, first, last)
	res.To = clamp(cal, res, "end", res.To, first, last)

	start := IndexAtOrBefore(s.Bars, cal, res.From)
	end := IndexAtOrBefore(s.Bars, cal, res.To)
	if start < 0 || end < 0 {
		return nil, fmt.Errorf("resolve window %s .. %s: no bar found", res.From.Format(dateLayout), res.To.Format(dateLayout))
	}
	if start > end {
		start = end
	}

	breakout := -1
	if !occ.Breakout.IsZero() {
		breakout = IndexOf(s.Bars, cal, occ.Breakout)
	}

	res.Window = model.PatternWindow{
		Start:     start,
		End:       end,
		Breakout:  breakout,
		Direction: occ.Direction,
	}
	if occ.BreakoutPrice != nil {
		res.Window.BreakoutPrice = *occ.BreakoutPrice
	}

	if !r.Quiet {
		for _, n := range res.Notices {
			log.Printf("[WARN] %s %s: %s", s.Symbol, occ.Pattern, n)
		}
	}
	return res, nil
}

func clamp(cal Calendar, res *Resolution, label string, t, first, last time.Time) time.Time {
	key := cal.Key
	switch {
	case key(t).Before(key(first)):
		res.note(fmt.Sprintf("%s date %s before first bar, using %s", label, t.Format(dateLayout), first.Format(dateLayout)))
		return first
	case key(t).After(key(last)):
		res.note(fmt.Sprintf("%s date %s after last bar, using %s", label, t.Format(dateLayout), last.Format(dateLayout)))
		return last
	}
	return t
}

func (res *Resolution) note(msg string) {
	res.Adjusted = true
	res.Notices = append(res.Notices, msg)
}
