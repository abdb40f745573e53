package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"PatternGrader/internal/model"
)

const sampleConfig = `
telegram:
  bot_token: "file-token"
  chat_id: "42"
strategy:
  small_cap_limit: 2000000000
watchlist:
  - symbol: ACME
    pattern: Big M
    direction: down
    from: 2024-01-02
    to: 2024-02-15
    breakout: 2024-02-20
    breakout_price: 41.5
    answers:
      flat_base: "no"
      hcr: "no"
      throwback: "yes"
      breakout_gap: "no"
  - symbol: INTRA
    pattern: Flag
    direction: up
    from: "2024-03-01 10:00"
    to: "2024-03-01 15:00"
    intraday: true
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_FileEnvAndDefaults(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "env-token")
	t.Setenv("SQLITE_PATH", "")
	cfg, err := Load(writeConfig(t, sampleConfig))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Telegram.BotToken != "env-token" {
		t.Errorf("expected env override, got %q", cfg.Telegram.BotToken)
	}
	if cfg.Telegram.ChatID != "42" {
		t.Errorf("expected chat id from file, got %q", cfg.Telegram.ChatID)
	}
	if cfg.Strategy.SmallCapLimit != 2e9 || cfg.Strategy.LargeCapLimit != 10e9 {
		t.Errorf("expected cap limits 2e9/10e9, got %v/%v", cfg.Strategy.SmallCapLimit, cfg.Strategy.LargeCapLimit)
	}
	if cfg.Schedule.RescoreCron == "" || cfg.Database.SQLitePath == "" || cfg.DataSource.HistoryDays != 750 {
		t.Errorf("expected defaults applied, got %+v", cfg)
	}
	if len(cfg.Watchlist) != 2 {
		t.Fatalf("expected 2 watchlist entries, got %d", len(cfg.Watchlist))
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected valid config, got %v", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.DataSource.IntradayInterval != "60m" {
		t.Errorf("expected default interval, got %q", cfg.DataSource.IntradayInterval)
	}
}

func TestWatch_Occurrence(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig))
	if err != nil {
		t.Fatal(err)
	}
	w := cfg.Watchlist[0]
	occ, err := w.Occurrence()
	if err != nil {
		t.Fatal(err)
	}
	if occ.Direction != model.DirectionDown || occ.Pattern != "Big M" {
		t.Errorf("unexpected occurrence %+v", occ)
	}
	if !occ.Breakout.Equal(time.Date(2024, 2, 20, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected breakout %s", occ.Breakout)
	}
	if occ.BreakoutPrice == nil || *occ.BreakoutPrice != 41.5 {
		t.Errorf("expected breakout price 41.5, got %v", occ.BreakoutPrice)
	}
	if w.Answers.Throwback != model.Yes || w.Answers.Trend != "" {
		t.Errorf("expected throwback answered and trend left to the detector, got %+v", w.Answers)
	}

	intra, err := cfg.Watchlist[1].Occurrence()
	if err != nil {
		t.Fatal(err)
	}
	if intra.From.Hour() != 10 || !intra.Breakout.IsZero() || intra.BreakoutPrice != nil {
		t.Errorf("unexpected intraday occurrence %+v", intra)
	}
}

func TestWatch_Validate(t *testing.T) {
	base := Watch{Symbol: "X", Pattern: "Flag", Direction: "up", From: "2024-01-01", To: "2024-01-10"}
	tests := []struct {
		name    string
		mutate  func(w *Watch)
		wantErr string
	}{
		{"valid", func(w *Watch) {}, ""},
		{"no symbol", func(w *Watch) { w.Symbol = "" }, "symbol is required"},
		{"bad direction", func(w *Watch) { w.Direction = "sideways" }, "direction"},
		{"bad date", func(w *Watch) { w.To = "10/01/2024" }, "invalid date"},
		{"bad answer", func(w *Watch) { w.Answers.FlatBase = "maybe" }, "flat_base"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := base
			tt.mutate(&w)
			err := w.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}
