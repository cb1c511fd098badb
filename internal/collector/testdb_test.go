package collector

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aristath/cryptostrat/internal/database"
)

func openTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.New(database.Config{
		Path:    filepath.Join(t.TempDir(), "collector_test.db"),
		Name:    "collector_test",
		Profile: database.ProfileBacktest,
	})
	require.NoError(t, err)
	require.NoError(t, db.Migrate())
	t.Cleanup(func() { db.Close() })
	return db
}
