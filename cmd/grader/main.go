package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"PatternGrader/internal/collector"
	"PatternGrader/internal/config"
	"PatternGrader/internal/evaluator"
	"PatternGrader/internal/notifier"
	"PatternGrader/internal/recorder"
	"PatternGrader/internal/scheduler"
	"PatternGrader/internal/strategy"
)

var (
	cfgFile string
	quiet   bool
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	rootCmd := &cobra.Command{
		Use:   "grader",
		Short: "Score chart pattern occurrences against historical performance",
		Long: `PatternGrader measures the features of a labeled chart pattern (trend length,
yearly range position, height, volume trend, breakout volume), combines them with
your own answers and scores the result against the pattern's historical table.

Examples:
  grader score --symbol AAPL --pattern "Big M" --direction down \
      --from 2024-01-02 --to 2024-02-15 --breakout 2024-02-20 --breakout-price 181.5 \
      --flat-base no --hcr no --throwback yes --gap no
  grader batch
  grader patterns
  grader history --symbol AAPL`,
		SilenceUsage: true,
	}

	defaultCfg := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		defaultCfg = v
	}
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", defaultCfg, "config file path")
	rootCmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "suppress window adjustment warnings")

	rootCmd.AddCommand(newScoreCmd(), newBatchCmd(), newPatternsCmd(), newHistoryCmd(), newServeCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app bundles the components every subcommand shares.
type app struct {
	cfg   *config.Config
	table *strategy.Table
	col   *collector.Collector
	eval  *evaluator.Evaluator
	rec   recorder.Recorder
}

func setup(withRecorder bool) (*app, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	table, err := strategy.LoadTable(cfg.Strategy.RulesFile)
	if err != nil {
		return nil, fmt.Errorf("load rules: %w", err)
	}

	var fetcher collector.Fetcher
	if cfg.DataSource.BaseURL != "" {
		fetcher = collector.NewVsTraderFetcher(cfg.DataSource.BaseURL, cfg.DataSource.APIKey, cfg.Proxy, cfg.DataSource.RequestsPerSecond)
	} else {
		fetcher = collector.NewYahooFetcher(cfg.Proxy, cfg.DataSource.RequestsPerSecond)
	}
	log.Printf("[INFO] data source: %s, rules %s", fetcher.Name(), table.Version)

	col := collector.NewCollector(fetcher)
	col.HistoryDays = cfg.DataSource.HistoryDays
	col.IntradayInterval = cfg.DataSource.IntradayInterval
	col.IntradayDays = cfg.DataSource.IntradayDays
	col.SmallCapLimit = cfg.Strategy.SmallCapLimit
	col.LargeCapLimit = cfg.Strategy.LargeCapLimit

	a := &app{
		cfg:   cfg,
		table: table,
		col:   col,
		eval:  evaluator.New(table, quiet || cfg.Strategy.Quiet),
		rec:   recorder.NewNoopRecorder(),
	}
	if withRecorder && cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
		if err != nil {
			log.Printf("[WARN] init sqlite recorder failed, using noop: %v", err)
		} else {
			a.rec = sr
		}
	}
	return a, nil
}

func (a *app) close() {
	if err := a.rec.Close(); err != nil {
		log.Printf("[WARN] close recorder: %v", err)
	}
}

// scheduler builds a scheduler over the configured watchlist; tn may be nil.
func (a *app) scheduler(ctx context.Context, tn scheduler.Sender) *scheduler.Scheduler {
	return scheduler.NewScheduler(ctx, a.col, a.eval, tn, a.rec, a.cfg.Watchlist)
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func newServeCmd() *cobra.Command {
	var runOnStart bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Rescore the watchlist on schedule and answer Telegram commands",
		RunE: func(cmd *cobra.Command, args []string) error {
			log.Println("[INFO] PatternGrader starting...")
			a, err := setup(true)
			if err != nil {
				return err
			}
			defer a.close()
			if err := a.cfg.ValidateTelegram(); err != nil {
				return fmt.Errorf("config validation: %w", err)
			}

			ctx, cancel := signalContext()
			defer cancel()

			tn := notifier.NewTelegramNotifier(a.cfg.Telegram.BotToken, a.cfg.Telegram.ChatID, a.cfg.Proxy)
			sched := a.scheduler(ctx, tn)
			if err := sched.Register(a.cfg.Schedule.RescoreCron); err != nil {
				return err
			}
			sched.Start()
			defer sched.Stop()

			go tn.StartPolling(ctx, sched.HandleCommand)
			log.Println("[INFO] Telegram polling started")

			if runOnStart || os.Getenv("RUN_ON_START") == "true" {
				log.Println("[INFO] run on start enabled, rescoring now")
				go sched.RunNow()
			}

			log.Printf("[INFO] PatternGrader is running with %d watchlist entries. Press Ctrl+C to stop.", len(a.cfg.Watchlist))
			<-ctx.Done()
			log.Println("[INFO] shutdown signal received, stopping...")
			return nil
		},
	}
	cmd.Flags().BoolVar(&runOnStart, "run-on-start", false, "rescore the watchlist immediately")
	return cmd
}
