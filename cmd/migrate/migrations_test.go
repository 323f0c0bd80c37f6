package main

import (
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"testing"

	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var migrationName = regexp.MustCompile(`^\d{5}_[a-z0-9_]+\.sql$`)

func repoMigrationsDir(t *testing.T) string {
	t.Helper()
	_, thisFile, _, ok := runtime.Caller(0)
	require.True(t, ok)
	return filepath.Join(filepath.Dir(thisFile), "..", "..", "db", "migrations")
}

func TestMigrations_VersionsAreContiguous(t *testing.T) {
	migrations, err := goose.CollectMigrations(repoMigrationsDir(t), 0, goose.MaxVersion)
	require.NoError(t, err)
	require.NotEmpty(t, migrations)

	for i, m := range migrations {
		assert.EqualValues(t, i+1, m.Version, "migration %s", filepath.Base(m.Source))
	}
}

func TestMigrations_FileLayout(t *testing.T) {
	dir := repoMigrationsDir(t)
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)

	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".sql" {
			continue
		}
		t.Run(e.Name(), func(t *testing.T) {
			assert.Regexp(t, migrationName, e.Name())

			b, err := os.ReadFile(filepath.Join(dir, e.Name()))
			require.NoError(t, err)
			body := string(b)

			up := strings.Index(body, "-- +goose Up")
			down := strings.Index(body, "-- +goose Down")
			require.GreaterOrEqual(t, up, 0, "missing Up section")
			require.Greater(t, down, up, "Down section must follow Up")

			for _, table := range regexp.MustCompile(`CREATE TABLE (\w+)`).FindAllStringSubmatch(body[up:down], -1) {
				assert.Contains(t, body[down:], "DROP TABLE IF EXISTS "+table[1], "Down leaves %s behind", table[1])
			}
		})
	}
}

func TestRun_RequiresDSNAndName(t *testing.T) {
	t.Setenv("DB_DSN", "")
	assert.ErrorIs(t, run("up", ""), errMissingDSN)
	assert.Error(t, run("create", ""))
}
