package migration

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrations_ArePaired(t *testing.T) {
	ups, err := fs.Glob(embeddedMigrations, migrationsDir+"/*.up.sql")
	require.NoError(t, err)
	require.Len(t, ups, 4)

	for _, up := range ups {
		down := strings.TrimSuffix(up, ".up.sql") + ".down.sql"
		_, err := fs.Stat(embeddedMigrations, down)
		assert.NoError(t, err, down)
	}
}

func TestEmbeddedMigrations_CreateEveryTable(t *testing.T) {
	ups, err := fs.Glob(embeddedMigrations, migrationsDir+"/*.up.sql")
	require.NoError(t, err)

	var all strings.Builder
	for _, up := range ups {
		body, err := fs.ReadFile(embeddedMigrations, up)
		require.NoError(t, err)
		all.Write(body)
	}
	for _, table := range []string{
		"tax_rates", "vendor_tax_settings", "tax_exemptions",
		"document_number_counters", "documents", "document_items", "document_tax_lines",
		"audit_logs",
	} {
		assert.Contains(t, all.String(), "CREATE TABLE IF NOT EXISTS "+table+" (", table)
	}
}
