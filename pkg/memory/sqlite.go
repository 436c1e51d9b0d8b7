package memory

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/glebarez/go-sqlite"
)

// SQLiteStore keeps locator history in a local sqlite database. This is the
// default store for single-machine runs.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open memory database: %w", err)
	}

	const schema = `CREATE TABLE IF NOT EXISTS locator_attempts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		page_key TEXT NOT NULL,
		element_kind TEXT NOT NULL,
		locator TEXT NOT NULL,
		success INTEGER NOT NULL,
		error TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_locator_attempts_page
		ON locator_attempts (page_key, element_kind, id);`

	if _, err := db.Exec(schema); err != nil {
		db.Close()

		return nil, fmt.Errorf("failed to initialize memory schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) ShouldAvoidLocator(ctx context.Context, pageKey, elementKind, locator string) (bool, error) {
	// Only the most recent attempts for the page/kind pair count, so an old
	// string of failures does not blacklist a locator forever.
	const query = `SELECT COUNT(*) FROM (
		SELECT locator, success FROM locator_attempts
		WHERE page_key = ? AND element_kind = ?
		ORDER BY id DESC LIMIT ?
	) WHERE locator = ? AND success = 0`

	var failures int

	err := s.db.QueryRowContext(ctx, query, pageKey, elementKind, recentWindow, locator).Scan(&failures)
	if err != nil {
		return false, fmt.Errorf("failed to query locator history: %w", err)
	}

	return failures >= avoidThreshold, nil
}

func (s *SQLiteStore) BestLocators(ctx context.Context, pageKey, elementKind string, limit int) ([]string, error) {
	const query = `SELECT locator FROM locator_attempts
		WHERE page_key = ? AND element_kind = ? AND success = 1
		GROUP BY locator
		ORDER BY COUNT(*) DESC, MAX(id) DESC
		LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, pageKey, elementKind, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query best locators: %w", err)
	}
	defer rows.Close()

	locators := make([]string, 0, limit)

	for rows.Next() {
		var locator string
		if err := rows.Scan(&locator); err != nil {
			return nil, err
		}

		locators = append(locators, locator)
	}

	return locators, rows.Err()
}

func (s *SQLiteStore) RecordOutcome(ctx context.Context, pageKey, elementKind, locator string, success bool, actionErr string) error {
	const query = `INSERT INTO locator_attempts (page_key, element_kind, locator, success, error)
		VALUES (?, ?, ?, ?, ?)`

	successFlag := 0
	if success {
		successFlag = 1
	}

	_, err := s.db.ExecContext(ctx, query, pageKey, elementKind, locator, successFlag, actionErr)
	if err != nil {
		return fmt.Errorf("failed to record locator outcome: %w", err)
	}

	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
