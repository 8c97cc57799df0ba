package main

import (
	"bytes"
	"context"
	stdsql "database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
	_ "modernc.org/sqlite"
)

func setup(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "app.db")
	db, err := stdsql.Open("sqlite", dbPath)
	require.NoError(t, err)
	for _, stmt := range []string{
		`CREATE TABLE users (id INTEGER PRIMARY KEY, email TEXT NOT NULL)`,
		`INSERT INTO users (email) VALUES ('a@example.com'), ('b@example.com')`,
	} {
		_, err := db.Exec(stmt)
		require.NoError(t, err)
	}
	require.NoError(t, db.Close())

	confPath := filepath.Join(dir, "record.yaml")
	conf := "database:\n  dialect: sqlite\n  path: " + dbPath + "\n"
	require.NoError(t, os.WriteFile(confPath, []byte(conf), 0o600))
	return confPath
}

func TestRun(t *testing.T) {
	confPath := setup(t)
	var stdout, stderr bytes.Buffer

	code := run(context.Background(), []string{"-c", confPath, "--counts", "users"}, &stdout, &stderr)
	require.Equal(t, exitSuccess, code, stderr.String())

	var report Report
	require.NoError(t, yaml.Unmarshal(stdout.Bytes(), &report))
	assert.Equal(t, "sqlite", report.Dialect)
	require.Len(t, report.Tables, 1)
	users := report.Tables[0]
	assert.Equal(t, "users", users.Name)
	require.Len(t, users.Columns, 2)
	assert.Equal(t, "id", users.Columns[0].Name)
	assert.Equal(t, "email", users.Columns[1].Name)
	require.NotNil(t, users.Rows)
	assert.Equal(t, int64(2), *users.Rows)
}

func TestRunErrors(t *testing.T) {
	confPath := setup(t)
	var stdout, stderr bytes.Buffer

	assert.Equal(t, exitUsage, run(context.Background(), []string{"-c", confPath}, &stdout, &stderr))
	assert.Equal(t, exitUsage, run(context.Background(), []string{"--bogus"}, &stdout, &stderr))

	stderr.Reset()
	code := run(context.Background(), []string{"-c", confPath, "missing"}, &stdout, &stderr)
	assert.Equal(t, exitError, code)
	assert.Contains(t, stderr.String(), "missing")
}
