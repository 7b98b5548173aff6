package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAndMigrate(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, Migrate(db))
	// second run is a no-op
	require.NoError(t, Migrate(db))

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM users WHERE id='local'`).Scan(&n))
	assert.Equal(t, 1, n, "default user seeded")

	var fk int
	require.NoError(t, db.QueryRow(`PRAGMA foreign_keys`).Scan(&fk))
	assert.Equal(t, 1, fk, "foreign keys enforced")
}

func TestNowIsSecondPrecisionUTC(t *testing.T) {
	n := Now()
	assert.Zero(t, n.Nanosecond())
	assert.Equal(t, "UTC", n.Location().String())
}
