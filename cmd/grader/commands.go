package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"PatternGrader/internal/config"
	"PatternGrader/internal/evaluator"
	"PatternGrader/internal/model"
	"PatternGrader/internal/notifier"
	"PatternGrader/internal/recorder"
	"PatternGrader/internal/scheduler"
)

func newScoreCmd() *cobra.Command {
	var (
		w             config.Watch
		breakoutPrice float64
		format        string
		save          bool
		answers       = map[model.Feature]*string{}
	)
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score one pattern occurrence",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("breakout-price") {
				w.BreakoutPrice = &breakoutPrice
			}
			for f, v := range answers {
				setAnswer(&w.Answers, f, *v)
			}
			if err := w.Validate(); err != nil {
				return err
			}

			a, err := setup(save)
			if err != nil {
				return err
			}
			defer a.close()

			ctx, cancel := signalContext()
			defer cancel()

			ev, err := a.scheduler(ctx, nil).EvaluateWatch(ctx, w)
			if err != nil {
				return err
			}
			if save {
				id, err := a.rec.Record(recorder.NewRecord(ev))
				if err != nil {
					return err
				}
				fmt.Printf("Recorded as %s\n", id)
			}
			if format == "json" {
				return printJSON(ev)
			}
			printEvaluation(ev)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&w.Symbol, "symbol", "", "ticker symbol")
	f.StringVar(&w.Pattern, "pattern", "", "pattern type, e.g. \"Cup with handle\"")
	f.StringVar(&w.Direction, "direction", "up", "breakout direction: up, down")
	f.StringVar(&w.From, "from", "", "pattern start date (2006-01-02 or \"2006-01-02 15:04\")")
	f.StringVar(&w.To, "to", "", "pattern end date")
	f.StringVar(&w.Breakout, "breakout", "", "breakout date (empty if not yet broken out)")
	f.Float64Var(&breakoutPrice, "breakout-price", 0, "breakout price")
	f.Float64Var(&w.PatternHigh, "high", 0, "pattern high (default: highest high in the window)")
	f.Float64Var(&w.PatternLow, "low", 0, "pattern low (default: lowest low in the window)")
	f.BoolVar(&w.Intraday, "intraday", false, "use intraday bars")
	f.StringVar(&format, "format", "table", "output format: table, json")
	f.BoolVar(&save, "save", false, "record the evaluation in history")
	for _, af := range []struct {
		flag    string
		feature model.Feature
		usage   string
	}{
		{"flat-base", model.FeatureFlatBase, "flat base before the pattern: yes, no"},
		{"hcr", model.FeatureHCR, "horizontal consolidation in the way: yes, no"},
		{"throwback", model.FeatureThrowback, "throwback or pullback expected: yes, no"},
		{"gap", model.FeatureBreakoutGap, "breakout gap: yes, no"},
		{"market-cap", model.FeatureMarketCap, "market cap: small, medium, large (default: looked up)"},
		{"trend", model.FeatureTrend, "override trend length: short, intermediate, long"},
		{"yearly-range", model.FeatureYearlyRange, "override yearly range position: low, mid, high"},
		{"tall", model.FeatureTall, "override tallness: yes, no"},
		{"volume-trend", model.FeatureVolumeTrend, "override volume trend: up, down"},
		{"breakout-volume", model.FeatureBreakoutVolume, "override heavy breakout volume: yes, no"},
	} {
		answers[af.feature] = f.String(af.flag, "", af.usage)
	}
	cmd.MarkFlagRequired("symbol")
	cmd.MarkFlagRequired("pattern")
	cmd.MarkFlagRequired("from")
	cmd.MarkFlagRequired("to")
	return cmd
}

func setAnswer(fs *model.FeatureSet, f model.Feature, v string) {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "" {
		return
	}
	var other model.FeatureSet
	switch f {
	case model.FeatureTrend:
		other.Trend = model.TrendLength(v)
	case model.FeatureYearlyRange:
		other.YearlyRange = model.RangePosition(v)
	case model.FeatureMarketCap:
		other.MarketCap = model.MarketCap(v)
	case model.FeatureFlatBase:
		other.FlatBase = model.Answer(v)
	case model.FeatureHCR:
		other.HCR = model.Answer(v)
	case model.FeatureTall:
		other.Tall = model.Answer(v)
	case model.FeatureVolumeTrend:
		other.VolumeTrend = model.VolumeTrend(v)
	case model.FeatureBreakoutVolume:
		other.BreakoutVolume = model.Answer(v)
	case model.FeatureThrowback:
		other.Throwback = model.Answer(v)
	case model.FeatureBreakoutGap:
		other.BreakoutGap = model.Answer(v)
	}
	fs.Merge(other)
}

func printEvaluation(ev *evaluator.Evaluation) {
	res := ev.Score
	fmt.Printf("%s %s (%s breakout, table %s)\n", ev.Symbol, res.Pattern, res.Direction, res.TableVersion)
	if ev.Resolution != nil {
		fmt.Printf("Window: %s .. %s, %s bars %d..%d\n",
			ev.Resolution.From.Format("2006-01-02 15:04"), ev.Resolution.To.Format("2006-01-02 15:04"),
			ev.Calendar, ev.Resolution.Window.Start, ev.Resolution.Window.End)
	}
	fmt.Printf("Pattern range: %.2f .. %.2f\n\n", ev.PatternLow, ev.PatternHigh)

	table := tablewriter.NewTable(os.Stdout,
		tablewriter.WithHeader([]string{"Feature", "Value", "Points", "Detail"}),
	)
	for _, c := range res.Contributions {
		table.Append([]string{
			string(c.Feature),
			c.Value,
			fmt.Sprintf("%+d", c.Points),
			notifier.Detail(ev, c.Feature),
		})
	}
	table.Render()
	fmt.Printf("\nTotal: %+d (%s)\n", res.Total, res.Verdict)
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newBatchCmd() *cobra.Command {
	var symbol string
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Score every watchlist entry and record the results",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(true)
			if err != nil {
				return err
			}
			defer a.close()
			if len(a.cfg.Watchlist) == 0 {
				return fmt.Errorf("watchlist is empty in %s", cfgFile)
			}

			ctx, cancel := signalContext()
			defer cancel()

			bar := progressbar.NewOptions(len(a.cfg.Watchlist),
				progressbar.OptionEnableColorCodes(true),
				progressbar.OptionShowCount(),
				progressbar.OptionSetWidth(40),
				progressbar.OptionSetDescription("Scoring"),
				progressbar.OptionSetTheme(progressbar.Theme{
					Saucer:        "[green]█[reset]",
					SaucerHead:    "[green]█[reset]",
					SaucerPadding: "░",
					BarStart:      "[",
					BarEnd:        "]",
				}),
			)
			results := a.scheduler(ctx, nil).Rescore(ctx, symbol, func(scheduler.Result) {
				bar.Add(1)
			})
			bar.Finish()
			fmt.Println()

			printResults(results)
			return nil
		},
	}
	cmd.Flags().StringVar(&symbol, "symbol", "", "only score entries for this symbol")
	return cmd
}

func printResults(results []scheduler.Result) {
	table := tablewriter.NewTable(os.Stdout,
		tablewriter.WithHeader([]string{"Symbol", "Pattern", "Dir", "Total", "Verdict", "Error"}),
	)
	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			table.Append([]string{r.Watch.Symbol, r.Watch.Pattern, r.Watch.Direction, "", "", truncate(r.Err.Error(), 60)})
			continue
		}
		res := r.Evaluation.Score
		table.Append([]string{r.Watch.Symbol, res.Pattern, string(res.Direction), fmt.Sprintf("%+d", res.Total), res.Verdict, ""})
	}
	table.Render()
	fmt.Printf("\nScored %d, failed %d\n", len(results)-failed, failed)
}

func newPatternsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "patterns",
		Short: "List the score table's patterns and median heights",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(false)
			if err != nil {
				return err
			}
			defer a.close()

			fmt.Printf("Score table %s: %d patterns\n\n", a.table.Version, len(a.table.Patterns()))
			table := tablewriter.NewTable(os.Stdout,
				tablewriter.WithHeader([]string{"Pattern", "Direction", "Median height", "Aliases"}),
			)
			for _, p := range a.table.Patterns() {
				for _, r := range p.Rules() {
					table.Append([]string{p.Name, r.Direction, fmt.Sprintf("%.4f", r.MedianHeight), strings.Join(p.Aliases, ", ")})
				}
			}
			table.Render()
			return nil
		},
	}
}

func newHistoryCmd() *cobra.Command {
	var (
		symbol string
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recently recorded evaluations",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(true)
			if err != nil {
				return err
			}
			defer a.close()

			rows, err := a.rec.History(symbol, limit)
			if err != nil {
				return err
			}
			if len(rows) == 0 {
				fmt.Println("No evaluations recorded yet.")
				return nil
			}
			table := tablewriter.NewTable(os.Stdout,
				tablewriter.WithHeader([]string{"Time", "Symbol", "Pattern", "Dir", "Window", "Total", "Verdict", "Error"}),
			)
			for _, r := range rows {
				total := ""
				if !r.Failed() {
					total = fmt.Sprintf("%+d", r.Total)
				}
				table.Append([]string{
					r.Time().Format("2006-01-02 15:04"),
					r.Symbol,
					r.Pattern,
					r.Direction,
					r.StartDate + " .. " + r.EndDate,
					total,
					r.Verdict,
					truncate(r.Error, 40),
				})
			}
			table.Render()
			return nil
		},
	}
	cmd.Flags().StringVar(&symbol, "symbol", "", "only show this symbol")
	cmd.Flags().IntVar(&limit, "limit", 20, "number of records")
	return cmd
}

// truncate shortens s to n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
