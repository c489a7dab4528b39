package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "token.json")

	require.Error(t, saveToken(path, ""))
	require.NoError(t, saveToken(path, "abc.def.ghi"))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	got, err := readToken(path)
	require.NoError(t, err)
	assert.Equal(t, "abc.def.ghi", got)

	require.NoError(t, clearToken(path))
	require.NoError(t, clearToken(path), "clearing twice is fine")
	_, err = readToken(path)
	assert.Error(t, err)
}

func TestWebsocketURL(t *testing.T) {
	got, err := websocketURL("http://localhost:8080", "/ws")
	require.NoError(t, err)
	assert.Equal(t, "ws://localhost:8080/ws", got)

	got, err = websocketURL("https://bar.example.com/api", "/ws")
	require.NoError(t, err)
	assert.Equal(t, "wss://bar.example.com/ws", got)
}

func TestAPIError(t *testing.T) {
	assert.Equal(t, "name required", apiError([]byte(`{"error":"name required"}`)))
	assert.Equal(t, "bad gateway", apiError([]byte("bad gateway\n")))
}

func TestImportExportLocal(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "bar.db")
	in := filepath.Join(dir, "in.csv")
	out := filepath.Join(dir, "out.csv")

	csv := "cocktail,glass,method,garnish,tags,ingredient,amount,unit\n" +
		"Daiquiri,coupe,shake,lime wheel,sour;classic,White Rum,60,ml\n" +
		"Daiquiri,coupe,shake,lime wheel,sour;classic,Lime Juice,30,ml\n"
	require.NoError(t, os.WriteFile(in, []byte(csv), 0o644))

	rootCmd.SetArgs([]string{"--db", db, "import", in})
	require.NoError(t, rootCmd.Execute())

	rootCmd.SetArgs([]string{"--db", db, "export", out})
	require.NoError(t, rootCmd.Execute())

	b, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(b), "Daiquiri,coupe,shake,lime wheel,sour;classic,White Rum,60,ml")
	assert.Contains(t, string(b), "Lime Juice")
}
