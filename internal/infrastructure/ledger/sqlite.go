// Package ledger хранит исход разрешения каждого просканированного идентификатора.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"roi-harvester/internal/domain/entity"
	"roi-harvester/internal/domain/port"
)

const schema = `CREATE TABLE IF NOT EXISTS scan_outcomes (
	identifier  INTEGER PRIMARY KEY,
	reason      TEXT NOT NULL,
	source_path TEXT NOT NULL DEFAULT '',
	error       TEXT NOT NULL DEFAULT '',
	scanned_at  DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_scan_outcomes_reason ON scan_outcomes(reason);`

// SQLiteLedger журнал исходов в SQLite.
type SQLiteLedger struct {
	db  *sql.DB
	now func() time.Time
}

// Open открывает (или создаёт) журнал по пути path; ":memory:" - журнал в памяти.
func Open(path string) (*SQLiteLedger, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("ledger path is required")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create ledger directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// Одно соединение: база в памяти живёт, пока оно открыто.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	l := &SQLiteLedger{db: db, now: time.Now}
	if err := l.init(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return l, nil
}

func (l *SQLiteLedger) init(ctx context.Context) error {
	if _, err := l.db.ExecContext(ctx, "PRAGMA journal_mode = WAL;"); err != nil {
		return fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := l.db.ExecContext(ctx, "PRAGMA busy_timeout = 5000;"); err != nil {
		return fmt.Errorf("set busy timeout: %w", err)
	}
	if _, err := l.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Close закрывает базу
func (l *SQLiteLedger) Close() error {
	if l == nil || l.db == nil {
		return nil
	}
	return l.db.Close()
}

// Record сохраняет исход; повторное сканирование идентификатора перезаписывает запись.
func (l *SQLiteLedger) Record(ctx context.Context, id int64, res entity.Resolution) error {
	var errText string
	if res.Err != nil {
		errText = res.Err.Error()
	}
	_, err := l.db.ExecContext(ctx, `INSERT INTO scan_outcomes (identifier, reason, source_path, error, scanned_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(identifier) DO UPDATE SET
			reason = excluded.reason,
			source_path = excluded.source_path,
			error = excluded.error,
			scanned_at = excluded.scanned_at`,
		id, string(res.Reason), res.Record.SourcePath, errText, l.now().UTC())
	if err != nil {
		return fmt.Errorf("record outcome %d: %w", id, err)
	}
	return nil
}

// Outcome одна запись журнала.
type Outcome struct {
	Identifier int64         `json:"identifier"`
	Reason     entity.Reason `json:"reason"`
	SourcePath string        `json:"source_path,omitempty"`
	Error      string        `json:"error,omitempty"`
	ScannedAt  time.Time     `json:"scanned_at"`
}

// Get возвращает запись по идентификатору; ok=false если её нет.
func (l *SQLiteLedger) Get(ctx context.Context, id int64) (Outcome, bool, error) {
	var o Outcome
	var reason string
	err := l.db.QueryRowContext(ctx,
		`SELECT identifier, reason, source_path, error, scanned_at FROM scan_outcomes WHERE identifier = ?`, id).
		Scan(&o.Identifier, &reason, &o.SourcePath, &o.Error, &o.ScannedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Outcome{}, false, nil
	}
	if err != nil {
		return Outcome{}, false, fmt.Errorf("get outcome %d: %w", id, err)
	}
	o.Reason = entity.Reason(reason)
	return o, true, nil
}

// Counts возвращает число записей по каждой причине.
func (l *SQLiteLedger) Counts(ctx context.Context) (map[entity.Reason]int, error) {
	rows, err := l.db.QueryContext(ctx, `SELECT reason, COUNT(*) FROM scan_outcomes GROUP BY reason`)
	if err != nil {
		return nil, fmt.Errorf("count outcomes: %w", err)
	}
	defer rows.Close()

	out := make(map[entity.Reason]int)
	for rows.Next() {
		var reason string
		var n int
		if err := rows.Scan(&reason, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		out[entity.Reason(reason)] = n
	}
	return out, rows.Err()
}

var _ port.ScanLedger = (*SQLiteLedger)(nil)

// Noop журнал, который ничего не хранит.
type Noop struct{}

// Record ничего не делает
func (Noop) Record(ctx context.Context, id int64, res entity.Resolution) error { return nil }

var _ port.ScanLedger = Noop{}
