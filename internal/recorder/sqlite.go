package recorder

import (
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// SQLiteRecorder persists evaluation history to a SQLite database.
type SQLiteRecorder struct {
	db *sqlx.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode so the CLI can read history while the daemon writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Printf("[INFO] sqlite recorder opened: %s", dbPath)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS evaluations (
			id              TEXT PRIMARY KEY,
			timestamp       INTEGER NOT NULL,
			symbol          TEXT NOT NULL,
			pattern         TEXT NOT NULL,
			direction       TEXT,
			calendar        TEXT,
			start_date      TEXT,
			end_date        TEXT,
			breakout_date   TEXT,
			breakout_price  REAL,
			pattern_high    REAL,
			pattern_low     REAL,
			trend           TEXT,
			yearly_range    TEXT,
			market_cap      TEXT,
			flat_base       TEXT,
			hcr             TEXT,
			tall            TEXT,
			volume_trend    TEXT,
			breakout_volume TEXT,
			throwback       TEXT,
			breakout_gap    TEXT,
			total           INTEGER,
			verdict         TEXT,
			table_version   TEXT,
			error           TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_evaluations_ts ON evaluations(timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_evaluations_symbol ON evaluations(symbol, timestamp)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

const insertEvaluation = `INSERT INTO evaluations
	(id, timestamp, symbol, pattern, direction, calendar,
	 start_date, end_date, breakout_date, breakout_price, pattern_high, pattern_low,
	 trend, yearly_range, market_cap, flat_base, hcr, tall,
	 volume_trend, breakout_volume, throwback, breakout_gap,
	 total, verdict, table_version, error)
	VALUES
	(:id, :timestamp, :symbol, :pattern, :direction, :calendar,
	 :start_date, :end_date, :breakout_date, :breakout_price, :pattern_high, :pattern_low,
	 :trend, :yearly_range, :market_cap, :flat_base, :hcr, :tall,
	 :volume_trend, :breakout_volume, :throwback, :breakout_gap,
	 :total, :verdict, :table_version, :error)`

func (r *SQLiteRecorder) Record(rec *Record) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if _, err := r.db.NamedExec(insertEvaluation, rec); err != nil {
		return "", fmt.Errorf("insert evaluation: %w", err)
	}
	return rec.ID, nil
}

func (r *SQLiteRecorder) History(symbol string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 20
	}
	var (
		rows []Record
		err  error
	)
	if symbol == "" {
		err = r.db.Select(&rows, `SELECT * FROM evaluations ORDER BY timestamp DESC, rowid DESC LIMIT ?`, limit)
	} else {
		err = r.db.Select(&rows, `SELECT * FROM evaluations WHERE symbol = ? ORDER BY timestamp DESC, rowid DESC LIMIT ?`, symbol, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("select history: %w", err)
	}
	return rows, nil
}

func (r *SQLiteRecorder) Close() error {
	log.Println("[INFO] closing sqlite recorder")
	return r.db.Close()
}
