package database

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAndMigrate(t *testing.T) {
	db, err := Open(Config{Path: filepath.Join(t.TempDir(), "nested", "bar.db")})
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, Migrate(db))
	require.NoError(t, Migrate(db), "migrate must be idempotent")

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM cocktails`).Scan(&n))
	assert.Zero(t, n)
}

func TestClassify(t *testing.T) {
	db, err := Open(Config{Path: filepath.Join(t.TempDir(), "bar.db")})
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, Migrate(db))

	_, err = db.Exec(`INSERT INTO ingredients (id, name) VALUES ('i1', 'Gin')`)
	require.NoError(t, err)

	_, err = db.Exec(`INSERT INTO ingredients (id, name) VALUES ('i2', 'gin')`)
	require.Error(t, err)
	assert.True(t, errors.Is(Classify(err), ErrConflict))

	_, err = db.Exec(`INSERT INTO cocktails (id, name) VALUES ('c1', 'Martini')`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO recipe_lines (cocktail_id, position, ingredient_id) VALUES ('c1', 0, 'i1')`)
	require.NoError(t, err)

	_, err = db.Exec(`DELETE FROM ingredients WHERE id = 'i1'`)
	require.Error(t, err)
	assert.True(t, errors.Is(Classify(err), ErrInUse))

	plain := errors.New("boom")
	assert.Equal(t, plain, Classify(plain))
}
