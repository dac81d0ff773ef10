package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orlandiv/internal/config"
	"orlandiv/internal/domain"
)

func TestOpenSQLiteMigratesSiteTables(t *testing.T) {
	cfg := &config.DatabaseConfig{URL: "sqlite:///" + filepath.Join(t.TempDir(), "site.db")}

	conn, err := Open(cfg)
	require.NoError(t, err)
	t.Cleanup(func() {
		sqlDB, _ := conn.DB()
		_ = sqlDB.Close()
	})

	for _, table := range append([]string{"users"}, domain.Tables...) {
		assert.True(t, conn.Migrator().HasTable(table), table)
	}
	assert.NoError(t, Ping(conn))
}

func TestOpenStoresFeaturesAsJSON(t *testing.T) {
	conn, err := Open(&config.DatabaseConfig{URL: "sqlite:///" + filepath.Join(t.TempDir(), "site.db")})
	require.NoError(t, err)

	work := &domain.SampleWork{Title: "Shop", Category: "E-commerce", Features: []string{"Cart", "Payments"}}
	require.NoError(t, conn.Create(work).Error)
	assert.NotEmpty(t, work.ID)

	var loaded domain.SampleWork
	require.NoError(t, conn.First(&loaded, "id = ?", work.ID).Error)
	assert.Equal(t, []string{"Cart", "Payments"}, []string(loaded.Features))
}
