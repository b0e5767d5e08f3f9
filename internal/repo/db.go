// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file contains database bootstrapping helpers for
// SQLite (pure Go driver), schema migration, and default-setting seeding.
package repo

import (
	"os"
	"path/filepath"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"daddygpt/internal/domain"
)

// OpenSQLite opens (or creates) a SQLite database and applies PRAGMAs.
func OpenSQLite(path string) (*gorm.DB, error) {
	// Fail early if parent directory does not exist (instead of sqlite "out of memory (14)" on Windows).
	if dir := filepath.Dir(path); dir != "." {
		if _, err := os.Stat(dir); err != nil {
			return nil, err
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	// PRAGMAs
	db.Exec("PRAGMA journal_mode=WAL;")
	db.Exec("PRAGMA synchronous=NORMAL;")
	db.Exec("PRAGMA foreign_keys=ON;")
	db.Exec("PRAGMA busy_timeout=5000;")

	return db, nil
}

// AutoMigrate creates any missing tables and indexes. It never drops or
// rewrites existing data, so it is safe to run on every startup.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.Setting{},
		&domain.Feature{},
		&domain.Admin{},
		&domain.PendingAdmin{},
		&domain.Ban{},
		&domain.PendingBan{},
		&domain.SystemPrompt{},
		&domain.User{},
		&domain.UserChange{},
		&domain.Message{},
	)
}

// DefaultSettings are seeded on startup only where the key is absent, so
// admin edits survive restarts.
var DefaultSettings = map[string]string{
	"bot_enabled":             "1",
	"backup_enabled":          "0",
	"features_global_enabled": "1",
	"trigger_name":            "daddygpt",
	"bot_display_name":        "DaddyGPT",
	"persona":                 "Helpful, safe, bilingual (Arabic/English) assistant.",
}

// SeedDefaultSettings inserts every default setting that does not already
// exist. Existing values are left untouched.
func SeedDefaultSettings(db *gorm.DB) error {
	for k, v := range DefaultSettings {
		res := db.Exec(
			"INSERT INTO settings(key, value) VALUES(?, ?) ON CONFLICT(key) DO NOTHING",
			k, v,
		)
		if res.Error != nil {
			return res.Error
		}
	}
	return nil
}

// now returns the current UTC time; row timestamps are always stored in UTC.
func now() time.Time { return time.Now().UTC() }
