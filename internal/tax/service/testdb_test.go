package service

import (
	"fmt"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var taxSchema = []string{
	`CREATE TABLE tax_rates (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		code TEXT NOT NULL UNIQUE,
		description TEXT,
		rate NUMERIC NOT NULL,
		rate_type TEXT NOT NULL,
		applies_to TEXT NOT NULL,
		applies_to_foreigners_only BOOLEAN NOT NULL DEFAULT 0,
		is_inclusive BOOLEAN NOT NULL DEFAULT 0,
		is_active BOOLEAN NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE TABLE vendor_tax_settings (
		id INTEGER PRIMARY KEY,
		vendor_id INTEGER NOT NULL,
		tax_rate_id INTEGER NOT NULL,
		is_enabled BOOLEAN NOT NULL,
		override_rate NUMERIC,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		UNIQUE (vendor_id, tax_rate_id)
	)`,
	`CREATE TABLE tax_exemptions (
		id INTEGER PRIMARY KEY,
		vendor_id INTEGER NOT NULL,
		tax_rate_id INTEGER NOT NULL,
		name TEXT NOT NULL,
		exemption_type TEXT NOT NULL,
		conditions JSON NOT NULL,
		valid_from DATETIME,
		valid_to DATETIME,
		is_active BOOLEAN NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{})
	require.NoError(t, err)
	for _, stmt := range taxSchema {
		require.NoError(t, db.Exec(stmt).Error)
	}
	t.Cleanup(func() {
		sqlDB, err := db.DB()
		if err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}
