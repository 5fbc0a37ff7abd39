package migrate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersions_EmbeddedInOrder(t *testing.T) {
	versions, err := Versions()
	require.NoError(t, err)
	assert.Equal(t, []string{"0001_run_history", "0002_propagation_failures"}, versions)
}

func TestMigrations_CreateExpectedTables(t *testing.T) {
	body, err := migrationsFS.ReadFile("migrations/0001_run_history.sql")
	require.NoError(t, err)
	assert.Contains(t, string(body), "CREATE TABLE IF NOT EXISTS run_history")

	body, err = migrationsFS.ReadFile("migrations/0002_propagation_failures.sql")
	require.NoError(t, err)
	assert.Contains(t, string(body), "CREATE TABLE IF NOT EXISTS propagation_failures")
}
