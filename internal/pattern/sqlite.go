package pattern

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ShayCichocki/hive/pkg/models"
)

// SQLiteStore provides SQLite-backed pattern storage.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
	alpha  float64
	mu     sync.RWMutex
}

// OpenSQLite opens (creating if necessary) a pattern database at the given path.
// It creates parent directories, enables WAL mode for concurrent reads, and
// applies pending schema migrations. Alpha is the EMA weight for duration updates.
func OpenSQLite(dbPath string, alpha float64) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Enable WAL mode for concurrent reads
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	s := &SQLiteStore{
		db:     conn,
		dbPath: dbPath,
		alpha:  alpha,
	}

	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, err
	}

	return s, nil
}

// migrate applies all pending schema migrations.
func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_version table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("get schema version: %w", err)
	}

	migrations := []struct {
		version int
		sql     string
	}{
		{1, migrationV1Patterns},
		{2, migrationV2ExecutionRecords},
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}

		if _, err := tx.Exec(m.sql); err != nil {
			tx.Rollback()
			return fmt.Errorf("apply migration v%d: %w", m.version, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", m.version); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration v%d: %w", m.version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// Migration SQL statements
const migrationV1Patterns = `
CREATE TABLE IF NOT EXISTS patterns (
	category TEXT NOT NULL,
	agent_id TEXT NOT NULL,
	success_count INTEGER NOT NULL DEFAULT 0,
	failure_count INTEGER NOT NULL DEFAULT 0,
	avg_duration_ms REAL NOT NULL DEFAULT 0,
	last_updated DATETIME NOT NULL,
	PRIMARY KEY (category, agent_id)
);
`

const migrationV2ExecutionRecords = `
CREATE TABLE IF NOT EXISTS execution_records (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	task_id TEXT NOT NULL,
	agent_id TEXT NOT NULL,
	attempt INTEGER NOT NULL,
	success INTEGER NOT NULL,
	duration_ms REAL NOT NULL,
	error TEXT,
	started_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_execution_records_task_id ON execution_records(task_id);
CREATE INDEX IF NOT EXISTS idx_execution_records_agent_id ON execution_records(agent_id);
`

// Get returns the pattern for (category, agentID), or a default-zero pattern
// when the pair has never been observed.
func (s *SQLiteStore) Get(category, agentID string) (*models.Pattern, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p := &models.Pattern{Category: category, AgentID: agentID}

	var avgMs float64
	var lastUpdated string
	err := s.db.QueryRow(`
		SELECT success_count, failure_count, avg_duration_ms, last_updated
		FROM patterns
		WHERE category = ? AND agent_id = ?
	`, category, agentID).Scan(&p.SuccessCount, &p.FailureCount, &avgMs, &lastUpdated)

	if err == sql.ErrNoRows {
		return p, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query pattern %s: %w", Key(category, agentID), err)
	}

	p.AvgDuration = time.Duration(avgMs * float64(time.Millisecond))
	p.LastUpdated, _ = parseTime(lastUpdated)
	return p, nil
}

// Update merges one execution outcome into the pattern row for the key.
// The read-modify-write runs in a transaction so concurrent updates to the
// same key serialize instead of clobbering each other.
func (s *SQLiteStore) Update(category, agentID string, success bool, duration time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var avgMs float64
	var total int64
	err = tx.QueryRow(`
		SELECT success_count + failure_count, avg_duration_ms
		FROM patterns
		WHERE category = ? AND agent_id = ?
	`, category, agentID).Scan(&total, &avgMs)
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("read pattern %s: %w", Key(category, agentID), err)
	}

	observedMs := float64(duration) / float64(time.Millisecond)
	newAvg := observedMs
	if total > 0 && avgMs > 0 {
		newAvg = s.alpha*observedMs + (1-s.alpha)*avgMs
	}

	successInc, failureInc := 0, 0
	if success {
		successInc = 1
	} else {
		failureInc = 1
	}

	_, err = tx.Exec(`
		INSERT INTO patterns (category, agent_id, success_count, failure_count, avg_duration_ms, last_updated)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(category, agent_id) DO UPDATE SET
			success_count = success_count + excluded.success_count,
			failure_count = failure_count + excluded.failure_count,
			avg_duration_ms = excluded.avg_duration_ms,
			last_updated = excluded.last_updated
	`, category, agentID, successInc, failureInc, newAvg, formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("merge pattern %s: %w", Key(category, agentID), err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit pattern update: %w", err)
	}

	return nil
}

// Record appends an execution record.
func (s *SQLiteStore) Record(rec models.ExecutionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	successInt := 0
	if rec.Success {
		successInt = 1
	}

	_, err := s.db.Exec(`
		INSERT INTO execution_records (task_id, agent_id, attempt, success, duration_ms, error, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, rec.TaskID, rec.AgentID, rec.Attempt, successInt,
		float64(rec.Duration)/float64(time.Millisecond),
		nullString(rec.Error), formatTime(rec.StartedAt))
	if err != nil {
		return fmt.Errorf("insert execution record: %w", err)
	}

	return nil
}

// RecordsForTask returns the execution history of a task in append order.
func (s *SQLiteStore) RecordsForTask(taskID string) ([]models.ExecutionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT task_id, agent_id, attempt, success, duration_ms, error, started_at
		FROM execution_records
		WHERE task_id = ?
		ORDER BY id ASC
	`, taskID)
	if err != nil {
		return nil, fmt.Errorf("query execution records: %w", err)
	}
	defer rows.Close()

	var records []models.ExecutionRecord
	for rows.Next() {
		var rec models.ExecutionRecord
		var successInt int
		var durationMs float64
		var errMsg sql.NullString
		var startedAt string

		if err := rows.Scan(&rec.TaskID, &rec.AgentID, &rec.Attempt, &successInt,
			&durationMs, &errMsg, &startedAt); err != nil {
			return nil, fmt.Errorf("scan execution record: %w", err)
		}

		rec.Success = successInt == 1
		rec.Duration = time.Duration(durationMs * float64(time.Millisecond))
		if errMsg.Valid {
			rec.Error = errMsg.String
		}
		rec.StartedAt, _ = parseTime(startedAt)

		records = append(records, rec)
	}

	return records, rows.Err()
}

// All returns every stored pattern.
func (s *SQLiteStore) All() ([]models.Pattern, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT category, agent_id, success_count, failure_count, avg_duration_ms, last_updated
		FROM patterns
		ORDER BY category, agent_id
	`)
	if err != nil {
		return nil, fmt.Errorf("query patterns: %w", err)
	}
	defer rows.Close()

	var patterns []models.Pattern
	for rows.Next() {
		var p models.Pattern
		var avgMs float64
		var lastUpdated string

		if err := rows.Scan(&p.Category, &p.AgentID, &p.SuccessCount, &p.FailureCount,
			&avgMs, &lastUpdated); err != nil {
			return nil, fmt.Errorf("scan pattern: %w", err)
		}

		p.AvgDuration = time.Duration(avgMs * float64(time.Millisecond))
		p.LastUpdated, _ = parseTime(lastUpdated)

		patterns = append(patterns, p)
	}

	return patterns, rows.Err()
}

// Import bulk-loads patterns, replacing existing rows for the same keys.
// Used by snapshot restore.
func (s *SQLiteStore) Import(patterns []models.Pattern) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, p := range patterns {
		_, err := tx.Exec(`
			INSERT INTO patterns (category, agent_id, success_count, failure_count, avg_duration_ms, last_updated)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(category, agent_id) DO UPDATE SET
				success_count = excluded.success_count,
				failure_count = excluded.failure_count,
				avg_duration_ms = excluded.avg_duration_ms,
				last_updated = excluded.last_updated
		`, p.Category, p.AgentID, p.SuccessCount, p.FailureCount,
			float64(p.AvgDuration)/float64(time.Millisecond), formatTime(p.LastUpdated))
		if err != nil {
			return fmt.Errorf("import pattern %s: %w", Key(p.Category, p.AgentID), err)
		}
	}

	return tx.Commit()
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// Path returns the path to the database file.
func (s *SQLiteStore) Path() string {
	return s.dbPath
}

// Helper functions

// formatTime formats a time.Time for SQLite storage.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTime parses a time string from SQLite.
func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

// nullString converts a string to sql.NullString, treating empty as null.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// Verify SQLiteStore implements Store and Restorer at compile time.
var (
	_ Store    = (*SQLiteStore)(nil)
	_ Restorer = (*SQLiteStore)(nil)
)
