package recorder

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"VaultSentinel/internal/model"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// SQLiteRecorder persists history to a SQLite database.
type SQLiteRecorder struct {
	db  *sql.DB
	mu  sync.Mutex
	log *zap.Logger
	now func() time.Time
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, log *zap.Logger) (*SQLiteRecorder, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode so readers do not block the bot while it writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, log: log, now: time.Now}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Info("sqlite recorder opened", zap.String("path", dbPath))
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS balance_ticks (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp INTEGER NOT NULL,
			kind      TEXT NOT NULL,
			currency  TEXT,
			baseline  REAL,
			current   REAL,
			skim      REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_ticks_ts ON balance_ticks(timestamp)`,

		`CREATE TABLE IF NOT EXISTS skim_events (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp     INTEGER NOT NULL,
			operation_id  TEXT NOT NULL,
			currency      TEXT,
			kind          TEXT,
			amount        REAL,
			outcome       TEXT NOT NULL,
			reason        TEXT,
			balance_after REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_skims_ts ON skim_events(timestamp)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordTick(t *model.TickResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO balance_ticks
		(timestamp, kind, currency, baseline, current, skim)
		VALUES (?,?,?,?,?,?)`,
		r.now().UnixMilli(), string(t.Kind), t.Currency, t.Before, t.Current, t.Skim,
	)
	return err
}

func (r *SQLiteRecorder) RecordSkim(evt *model.SkimEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO skim_events
		(timestamp, operation_id, currency, kind, amount, outcome, reason, balance_after)
		VALUES (?,?,?,?,?,?,?,?)`,
		r.now().UnixMilli(), evt.OperationID, evt.Currency, string(evt.Kind),
		evt.Amount, string(evt.Outcome), evt.Reason, evt.BalanceAfter,
	)
	return err
}

// RecentSkims returns up to limit skim events, newest first.
func (r *SQLiteRecorder) RecentSkims(limit int) ([]model.SkimEvent, error) {
	if limit <= 0 {
		limit = 20
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.db.Query(`SELECT operation_id, currency, kind, amount, outcome, reason, balance_after
		FROM skim_events ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query skims: %w", err)
	}
	defer rows.Close()

	var out []model.SkimEvent
	for rows.Next() {
		var (
			e             model.SkimEvent
			kind, outcome string
		)
		if err := rows.Scan(&e.OperationID, &e.Currency, &kind, &e.Amount, &outcome, &e.Reason, &e.BalanceAfter); err != nil {
			return nil, fmt.Errorf("scan skim: %w", err)
		}
		e.Kind, e.Outcome = model.TickKind(kind), model.SkimOutcome(outcome)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	r.log.Info("closing sqlite recorder")
	return r.db.Close()
}
