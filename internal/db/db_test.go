package db

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenForTesting(t *testing.T) {
	d, err := OpenForTesting()
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, d.Close()) })

	assert.NoError(t, d.Ping())
}

func TestMigrationsApply(t *testing.T) {
	d, err := OpenForTesting()
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, d.Close()) })

	for _, table := range []string{"products", "answers"} {
		var name string
		err := d.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		assert.NoError(t, err)
		assert.Equal(t, table, name)
	}
}

func TestOpenForTestingIsolated(t *testing.T) {
	first, err := OpenForTesting()
	require.NoError(t, err)
	t.Cleanup(func() { _ = first.Close() })

	second, err := OpenForTesting()
	require.NoError(t, err)
	t.Cleanup(func() { _ = second.Close() })

	_, err = first.Exec(`INSERT INTO products (image_hash, storage_key, description) VALUES ('h', 'k', 'd')`)
	require.NoError(t, err)

	var count int
	require.NoError(t, second.QueryRow("SELECT COUNT(*) FROM products").Scan(&count))
	assert.Zero(t, count)
}

func TestOpenFileReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ingredia.db")

	d, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, d.Close())

	// Already-applied migrations are skipped on the second open.
	d, err = Open(path)
	require.NoError(t, err)
	assert.NoError(t, d.Close())
}
