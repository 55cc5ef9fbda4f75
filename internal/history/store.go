package history

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

	"discrip/internal/ripping"
)

// Store manages run history persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Title is one persisted title row.
type Title struct {
	Index     int
	Path      string
	Success   bool
	SizeBytes int64
	Message   string
}

// Run is one persisted run with its titles.
type Run struct {
	RunID        string
	Device       string
	Label        string
	OutputDir    string
	Outcome      string
	FinalState   string
	ExitCode     int
	Error        string
	Ejected      bool
	HookFailures int
	Started      time.Time
	Duration     time.Duration
	Titles       []Title
}

// TitlesOK counts successful titles.
func (r Run) TitlesOK() int {
	n := 0
	for _, t := range r.Titles {
		if t.Success {
			n++
		}
	}
	return n
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// Open initializes or connects to the history database at path.
func Open(ctx context.Context, path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("history database path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure history directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// One writer; watch mode records runs from a single goroutine.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// RecordRun persists a finished run and its titles in one transaction.
// Recording the same run ID twice replaces the earlier row.
func (s *Store) RecordRun(ctx context.Context, res ripping.Result) error {
	if s == nil || s.db == nil {
		return errors.New("history store is not open")
	}
	if strings.TrimSpace(res.RunID) == "" {
		return errors.New("run id is required")
	}
	return retryOnBusy(ctx, func() error {
		return s.recordRun(ctx, res)
	})
}

func (s *Store) recordRun(ctx context.Context, res ripping.Result) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin record tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	errMsg := ""
	if res.Err != nil {
		errMsg = res.Err.Error()
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM runs WHERE run_id = ?", res.RunID); err != nil {
		return fmt.Errorf("replace run: %w", err)
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO runs (
		run_id, device, label, output_dir, outcome, final_state, exit_code,
		error_message, ejected, hook_failures, started_at, duration_ms
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		res.RunID,
		res.Device,
		res.Label,
		res.OutputDir,
		res.Outcome.String(),
		string(res.State()),
		res.ExitCode(),
		errMsg,
		boolToInt(res.Ejected),
		len(res.HookFailures),
		res.Started.UTC().Format(time.RFC3339Nano),
		res.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for _, title := range res.Titles {
		_, err := tx.ExecContext(ctx, `INSERT INTO titles (
			run_id, title_index, path, success, size_bytes, message
		) VALUES (?, ?, ?, ?, ?, ?)`,
			res.RunID, title.Index, title.Path, boolToInt(title.Success), title.SizeBytes, title.Message)
		if err != nil {
			return fmt.Errorf("insert title %d: %w", title.Index, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run: %w", err)
	}
	return nil
}

// Recent returns up to limit runs, newest first. A non-positive limit returns all runs.
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("history store is not open")
	}
	query := `SELECT run_id, device, label, output_dir, outcome, final_state, exit_code,
		error_message, ejected, hook_failures, started_at, duration_ms
		FROM runs ORDER BY started_at DESC, run_id DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	// Close before issuing title queries; the pool has a single connection.
	_ = rows.Close()

	for i := range runs {
		titles, err := s.titles(ctx, runs[i].RunID)
		if err != nil {
			return nil, err
		}
		runs[i].Titles = titles
	}
	return runs, nil
}

func (s *Store) titles(ctx context.Context, runID string) ([]Title, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT title_index, path, success, size_bytes, message
		FROM titles WHERE run_id = ? ORDER BY title_index`, runID)
	if err != nil {
		return nil, fmt.Errorf("query titles: %w", err)
	}
	defer rows.Close()

	var titles []Title
	for rows.Next() {
		var (
			t       Title
			success int
		)
		if err := rows.Scan(&t.Index, &t.Path, &success, &t.SizeBytes, &t.Message); err != nil {
			return nil, fmt.Errorf("scan title: %w", err)
		}
		t.Success = success != 0
		titles = append(titles, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate titles: %w", err)
	}
	return titles, nil
}

func scanRun(rows *sql.Rows) (Run, error) {
	var (
		run        Run
		ejected    int
		startedRaw string
		durationMS int64
	)
	if err := rows.Scan(
		&run.RunID,
		&run.Device,
		&run.Label,
		&run.OutputDir,
		&run.Outcome,
		&run.FinalState,
		&run.ExitCode,
		&run.Error,
		&ejected,
		&run.HookFailures,
		&startedRaw,
		&durationMS,
	); err != nil {
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	started, err := time.Parse(time.RFC3339Nano, startedRaw)
	if err != nil {
		return Run{}, fmt.Errorf("parse started_at %q: %w", startedRaw, err)
	}
	run.Started = started
	run.Ejected = ejected != 0
	run.Duration = time.Duration(durationMS) * time.Millisecond
	return run, nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code()&0xff == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}
