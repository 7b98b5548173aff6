// Package database opens the ledger's sqlite store and applies its embedded
// schema migrations.
package database

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Open opens the ledger database at path, creating the file if missing.
// Foreign keys are enforced and writers wait out short lock contention
// instead of failing with SQLITE_BUSY immediately.
func Open(path string) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	// single connection: sqlite has one writer, and import batches must not
	// interleave with conflict lookups on a second connection
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	return db, nil
}

// WithTx runs fn inside a transaction, committing on success and rolling
// back on error. Import batches commit through this.
func WithTx(db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// Now returns UTC truncated to seconds, the resolution stored timestamps
// carry. Duplicate-window comparisons rely on every timestamp having the
// same precision.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}
