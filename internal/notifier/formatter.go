package notifier

import (
	"fmt"
	"html"
	"strings"
	"time"

	"PatternGrader/internal/evaluator"
	"PatternGrader/internal/model"
	"PatternGrader/internal/recorder"
	"PatternGrader/internal/strategy"
)

const dateLayout = "2006-01-02"

func arrow(dir model.Direction) string {
	if dir == model.DirectionDown {
		return "↓"
	}
	return "↑"
}

func verdictIcon(verdict string) string {
	switch verdict {
	case "strong":
		return "🟢"
	case "above average":
		return "🟡"
	case "below average":
		return "🟠"
	default:
		return "🔴"
	}
}

// FormatEvaluation formats one scored pattern into a Telegram message.
func FormatEvaluation(ev *evaluator.Evaluation) string {
	var b strings.Builder
	occ := ev.Occurrence
	res := ev.Score

	b.WriteString(fmt.Sprintf("📐 <b>%s</b> %s | %s\n", html.EscapeString(res.Pattern), arrow(res.Direction), html.EscapeString(ev.Symbol)))
	if ev.Resolution != nil {
		b.WriteString(fmt.Sprintf("Window: %s .. %s (%s)\n",
			ev.Resolution.From.Format(dateLayout), ev.Resolution.To.Format(dateLayout), ev.Calendar))
		for _, n := range ev.Resolution.Notices {
			b.WriteString(fmt.Sprintf("⚠️ %s\n", html.EscapeString(n)))
		}
	}
	if !occ.Breakout.IsZero() {
		b.WriteString(fmt.Sprintf("Breakout: %s", occ.Breakout.Format(dateLayout)))
		if occ.BreakoutPrice != nil {
			b.WriteString(fmt.Sprintf(" @ %.2f", *occ.BreakoutPrice))
		}
		b.WriteString("\n")
	}
	b.WriteString(fmt.Sprintf("Pattern: %.2f .. %.2f\n\n", ev.PatternLow, ev.PatternHigh))

	b.WriteString("🔎 <b>Features:</b>\n")
	for _, c := range res.Contributions {
		line := fmt.Sprintf("  %s: %s %+d", c.Feature, c.Value, c.Points)
		if d := Detail(ev, c.Feature); d != "" {
			line += fmt.Sprintf(" <i>(%s)</i>", html.EscapeString(d))
		}
		b.WriteString(line + "\n")
	}
	b.WriteString("  ─────────────────\n")
	b.WriteString(fmt.Sprintf("  Total: %+d %s %s\n", res.Total, verdictIcon(res.Verdict), res.Verdict))
	return b.String()
}

// Detail explains how a feature was resolved: detector output, or "manual" for caller answers.
func Detail(ev *evaluator.Evaluation, f model.Feature) string {
	switch f {
	case model.FeatureTrend:
		if ev.Trend == nil {
			return "manual"
		}
		if ev.Trend.Index < 0 {
			return fmt.Sprintf("no reversal within %.0f %s", ev.Trend.Length, unit(ev))
		}
		return fmt.Sprintf("%.0f %s from bar %d", ev.Trend.Length, unit(ev), ev.Trend.Index)
	case model.FeatureYearlyRange:
		if ev.YearlyRange == nil {
			return "manual"
		}
		return fmt.Sprintf("range %.2f .. %.2f", ev.YearlyRange.Low, ev.YearlyRange.High)
	case model.FeatureTall:
		if ev.Height == nil {
			return "manual"
		}
		return fmt.Sprintf("height %.4f vs median %.4f", ev.Height.Ratio, ev.Height.Median)
	case model.FeatureVolumeTrend:
		if ev.VolumeTrend == nil {
			return "manual"
		}
		return fmt.Sprintf("slope %.1f over %d bars", ev.VolumeTrend.Slope, ev.VolumeTrend.Bars)
	case model.FeatureBreakoutVolume:
		if ev.BreakoutVolume == nil {
			return "manual"
		}
		bv := ev.BreakoutVolume
		return fmt.Sprintf("%.0f vs avg %.0f", bv.Volume, bv.Average)
	}
	return ""
}

func unit(ev *evaluator.Evaluation) string {
	if ev.Calendar == "intraday" {
		return "bars"
	}
	return "days"
}

// FormatFailure reports an entry that could not be scored.
func FormatFailure(label string, err error) string {
	return fmt.Sprintf("❌ <b>%s</b>\n%s\n", html.EscapeString(label), html.EscapeString(err.Error()))
}

// FormatSummary is the header of a rescoring run.
func FormatSummary(scored, failed int, at time.Time) string {
	return fmt.Sprintf("📊 <b>PatternGrader rescoring</b> | %s\nScored: %d | Failed: %d\n",
		at.Format("2006-01-02 15:04"), scored, failed)
}

// FormatPatterns lists the score table entries and their median heights.
func FormatPatterns(tbl *strategy.Table) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📚 <b>Score table</b> %s\n\n", html.EscapeString(tbl.Version)))
	for _, p := range tbl.Patterns() {
		var medians []string
		for _, r := range p.Rules() {
			medians = append(medians, fmt.Sprintf("%s %.4f", r.Direction, r.MedianHeight))
		}
		b.WriteString(fmt.Sprintf("• %s: %s\n", html.EscapeString(p.Name), strings.Join(medians, ", ")))
	}
	return b.String()
}

// FormatHistory lists recent records, newest first.
func FormatHistory(rows []recorder.Record) string {
	if len(rows) == 0 {
		return "No evaluations recorded yet."
	}
	var b strings.Builder
	b.WriteString("🗂 <b>Recent evaluations</b>\n\n")
	for _, r := range rows {
		when := r.Time().Format("01-02 15:04")
		if r.Failed() {
			b.WriteString(fmt.Sprintf("%s %s %s ❌ %s\n", when, html.EscapeString(r.Symbol), html.EscapeString(r.Pattern), html.EscapeString(r.Error)))
			continue
		}
		b.WriteString(fmt.Sprintf("%s %s %s %s: %+d %s\n", when, html.EscapeString(r.Symbol),
			html.EscapeString(r.Pattern), r.Direction, r.Total, r.Verdict))
	}
	return b.String()
}

// HelpText lists the bot commands.
const HelpText = `Available commands:
• /rescore [SYMBOL] - rescore the watchlist (or one symbol)
• /history [SYMBOL] - recent evaluations
• /patterns - score table entries
• /help - this message`
