package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

const milestonesSchema = `
CREATE TABLE IF NOT EXISTS milestones (
	id TEXT PRIMARY KEY,
	escrow_tx_hash TEXT NOT NULL,
	owner_address TEXT NOT NULL,
	offer_sequence INTEGER NOT NULL,
	fulfillment_b64 TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'LOCKED',
	created_at TIMESTAMP NOT NULL,
	released_tx_hash TEXT,
	released_at TIMESTAMP
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_milestone_owner_seq
ON milestones(owner_address, offer_sequence);
`

// OpenSQLite opens (creating if needed) the milestone database at path and
// ensures the schema exists. WAL mode so list reads do not block the
// release writer; busy_timeout so concurrent writers queue instead of
// failing.
func OpenSQLite(path string, log *zap.Logger) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on", path)
	sqlDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}

	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, err
	}

	if _, err := sqlDB.Exec(milestonesSchema); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("apply sqlite schema: %w", err)
	}

	log.Info("sqlite database ready", zap.String("path", path))
	return sqlDB, nil
}
