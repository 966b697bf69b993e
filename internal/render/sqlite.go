package render

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLiteSink keeps the current records in SQLite for dashboards to read.
// Each render replaces the previous contents; no history is kept.
type SQLiteSink struct {
	db  *sql.DB
	mu  sync.Mutex
	Now func() time.Time
}

// NewSQLiteSink opens (or creates) the SQLite database and runs migrations.
func NewSQLiteSink(dbPath string) (*SQLiteSink, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL lets readers query the view while a render is being written.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	s := &SQLiteSink{db: db, Now: time.Now}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Printf("[INFO] sqlite sink opened: %s", dbPath)
	return s, nil
}

func (s *SQLiteSink) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS instrument_view (
			source       TEXT NOT NULL,
			symbol       TEXT NOT NULL,
			price        TEXT,
			quotes       TEXT,
			transactions TEXT,
			error        TEXT,
			updated_at   TEXT,
			PRIMARY KEY (source, symbol)
		)`,
		`CREATE TABLE IF NOT EXISTS indicator_view (
			source     TEXT NOT NULL,
			symbol     TEXT NOT NULL,
			interval   TEXT NOT NULL,
			period     INTEGER,
			rsi        TEXT,
			zone       TEXT,
			last_close TEXT,
			samples    INTEGER,
			PRIMARY KEY (source, symbol, interval)
		)`,
		`CREATE TABLE IF NOT EXISTS render_frame (
			frame_id    TEXT PRIMARY KEY,
			rendered_at TEXT NOT NULL,
			instruments INTEGER NOT NULL
		)`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:40], err)
		}
	}
	return nil
}

// Render replaces the view with records and stamps it with a new frame id,
// so readers polling render_frame can tell when the view changed.
func (s *SQLiteSink) Render(records []Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("sqlite render: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM indicator_view`); err != nil {
		return fmt.Errorf("sqlite render: clear indicators: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM instrument_view`); err != nil {
		return fmt.Errorf("sqlite render: clear instruments: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM render_frame`); err != nil {
		return fmt.Errorf("sqlite render: clear frame: %w", err)
	}
	if _, err := tx.Exec(`INSERT INTO render_frame (frame_id, rendered_at, instruments) VALUES (?,?,?)`,
		uuid.NewString(), s.Now().Format(time.RFC3339), len(records),
	); err != nil {
		return fmt.Errorf("sqlite render: stamp frame: %w", err)
	}

	for _, r := range records {
		quotes, err := jsonText(r.Quotes)
		if err != nil {
			return fmt.Errorf("sqlite render: %s quotes: %w", r.Symbol, err)
		}
		txs, err := jsonText(r.Transactions)
		if err != nil {
			return fmt.Errorf("sqlite render: %s transactions: %w", r.Symbol, err)
		}
		if _, err := tx.Exec(`INSERT OR REPLACE INTO instrument_view
			(source, symbol, price, quotes, transactions, error, updated_at)
			VALUES (?,?,?,?,?,?,?)`,
			r.Source, r.Symbol, r.Price, quotes, txs, r.Error, r.UpdatedAt,
		); err != nil {
			return fmt.Errorf("sqlite render: insert %s: %w", r.Symbol, err)
		}

		for _, ind := range r.Indicators {
			if _, err := tx.Exec(`INSERT OR REPLACE INTO indicator_view
				(source, symbol, interval, period, rsi, zone, last_close, samples)
				VALUES (?,?,?,?,?,?,?,?)`,
				r.Source, r.Symbol, ind.Interval, ind.Period, ind.RSI, ind.Zone, ind.LastClose, ind.Samples,
			); err != nil {
				return fmt.Errorf("sqlite render: insert %s %s: %w", r.Symbol, ind.Interval, err)
			}
		}
	}

	return tx.Commit()
}

// Frame returns the id and instrument count of the current view.
func (s *SQLiteSink) Frame() (string, int, error) {
	var id string
	var n int
	err := s.db.QueryRow(`SELECT frame_id, instruments FROM render_frame`).Scan(&id, &n)
	if err != nil {
		return "", 0, fmt.Errorf("read frame: %w", err)
	}
	return id, n, nil
}

func (s *SQLiteSink) Close() error {
	log.Println("[INFO] closing sqlite sink")
	return s.db.Close()
}

// jsonText stores empty slices as NULL.
func jsonText[T any](v []T) (sql.NullString, error) {
	if len(v) == 0 {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}
