package storage

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"proplens/models"
)

// SQLiteStore is the local run journal: one row per saved-search
// execution plus run-scoped event rows, kept for operational
// inspection without needing the Postgres side.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS search_runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		search_name TEXT NOT NULL,
		location TEXT NOT NULL,
		started_at DATETIME NOT NULL,
		finished_at DATETIME,
		status TEXT NOT NULL,
		listings_found INTEGER DEFAULT 0,
		snapshot_key TEXT DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS run_logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER,
		timestamp DATETIME NOT NULL,
		level TEXT NOT NULL,
		message TEXT NOT NULL,
		scraper TEXT DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_search_runs_started ON search_runs(started_at);
	CREATE INDEX IF NOT EXISTS idx_run_logs_run ON run_logs(run_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) CreateRun(run *models.SearchRun) (int64, error) {
	res, err := s.db.Exec(`
		INSERT INTO search_runs (session_id, search_name, location, started_at, status, listings_found, snapshot_key)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.SessionID.String(), run.SearchName, run.Location, run.StartedAt, run.Status, run.ListingsFound, run.SnapshotKey,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *SQLiteStore) UpdateRun(run *models.SearchRun) error {
	_, err := s.db.Exec(`
		UPDATE search_runs
		SET finished_at = ?, status = ?, listings_found = ?, snapshot_key = ?
		WHERE id = ?`,
		run.FinishedAt, run.Status, run.ListingsFound, run.SnapshotKey, run.ID,
	)
	return err
}

// LogEvent records a run-scoped event. runID may be nil for events
// outside any run.
func (s *SQLiteStore) LogEvent(runID *int64, level models.LogLevel, message, scraper string) error {
	_, err := s.db.Exec(`
		INSERT INTO run_logs (run_id, timestamp, level, message, scraper)
		VALUES (?, ?, ?, ?, ?)`,
		runID, time.Now().UTC(), string(level), message, scraper,
	)
	return err
}

// RecentRuns returns the newest runs first.
func (s *SQLiteStore) RecentRuns(limit int) ([]models.SearchRun, error) {
	rows, err := s.db.Query(`
		SELECT id, session_id, search_name, location, started_at, finished_at, status, listings_found, snapshot_key
		FROM search_runs
		ORDER BY started_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []models.SearchRun
	for rows.Next() {
		var run models.SearchRun
		var sessionID string
		err := rows.Scan(&run.ID, &sessionID, &run.SearchName, &run.Location,
			&run.StartedAt, &run.FinishedAt, &run.Status, &run.ListingsFound, &run.SnapshotKey)
		if err != nil {
			return nil, err
		}
		if parsed, err := uuid.Parse(sessionID); err == nil {
			run.SessionID = parsed
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
