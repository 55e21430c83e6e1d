package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeDriver(t *testing.T) {
	for in, want := range map[string]string{
		"":           DriverPostgres,
		"postgres":   DriverPostgres,
		"PostgreSQL": DriverPostgres,
		"sqlite":     DriverSQLite,
		"sqlite3":    DriverSQLite,
	} {
		got, err := NormalizeDriver(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := NormalizeDriver("mysql")
	assert.Error(t, err)
}

func TestOpenSQLiteMemory(t *testing.T) {
	sqlDB, err := Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	_, err = sqlDB.Exec(`CREATE TABLE t (v INTEGER)`)
	require.NoError(t, err)
	_, err = sqlDB.Exec(`INSERT INTO t (v) VALUES ($1)`, 7)
	require.NoError(t, err)

	var v int
	require.NoError(t, sqlDB.QueryRow(`SELECT v FROM t`).Scan(&v))
	assert.Equal(t, 7, v)
}

func TestOpenRejectsEmptyDSN(t *testing.T) {
	_, err := Open("postgres", "  ")
	assert.Error(t, err)
}
