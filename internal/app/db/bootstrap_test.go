package db

import (
	"io/fs"
	"regexp"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

var createTable = regexp.MustCompile(`(?i)CREATE TABLE (IF NOT EXISTS )?(\w+)`)

func TestBootstrapSchema_OnlyAddsWhatTheCoreTouches(t *testing.T) {
	files, err := fs.Glob(embedMigrations, "migrations/*.sql")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	var tables []string
	for _, name := range files {
		raw, err := fs.ReadFile(embedMigrations, name)
		require.NoError(t, err)
		sql := string(raw)

		up, down, found := strings.Cut(sql, "-- +goose Down")
		require.True(t, found, "%s has no Down section", name)
		require.NotContains(t, strings.ToUpper(down), "DROP", "%s must not drop write-path tables", name)
		require.NotContains(t, strings.ToUpper(up), "ALTER", "%s must not alter existing tables", name)
		require.NotContains(t, strings.ToUpper(up), "DROP", name)

		for _, m := range createTable.FindAllStringSubmatch(up, -1) {
			require.NotEmpty(t, m[1], "table %s must be created with IF NOT EXISTS", m[2])
			tables = append(tables, strings.ToLower(m[2]))
		}
	}

	sort.Strings(tables)
	require.Equal(t, []string{"channel_members", "messages", "users"}, tables)
}
