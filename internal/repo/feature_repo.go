// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Feature
// catalog.
package repo

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"daddygpt/internal/domain"
)

// NormalizeFeatureName lower-cases and trims a feature name.
func NormalizeFeatureName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// JoinCommands flattens a command list into the stored comma-separated form,
// stripping slashes and empties.
func JoinCommands(commands []string) string {
	out := make([]string, 0, len(commands))
	for _, c := range commands {
		c = strings.TrimPrefix(strings.TrimSpace(c), "/")
		if c != "" {
			out = append(out, c)
		}
	}
	return strings.Join(out, ",")
}

// SplitCommands parses the stored comma-separated command column.
func SplitCommands(commands string) []string {
	var out []string
	for _, c := range strings.Split(commands, ",") {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	return out
}

// EnsureFeature inserts the feature row if absent and refreshes its
// descriptive metadata (scope, description, commands) if present. The
// enabled flag is written only on insert, so an admin's toggle survives a
// registration pass after a code reload.
func EnsureFeature(db *gorm.DB, name, scope, description string, commands []string, enabledDefault bool) error {
	name = NormalizeFeatureName(name)
	if name == "" {
		return errors.New("feature name is empty")
	}
	cmds := JoinCommands(commands)
	ts := now()
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(
			`INSERT INTO features(name, scope, description, commands, enabled, created_at, updated_at)
			 VALUES(?,?,?,?,?,?,?) ON CONFLICT(name) DO NOTHING`,
			name, scope, description, cmds, enabledDefault, ts, ts,
		).Error; err != nil {
			return err
		}
		// Metadata refresh; deliberately leaves enabled untouched.
		return tx.Exec(
			"UPDATE features SET scope=?, description=?, commands=?, updated_at=? WHERE name=?",
			scope, description, cmds, ts, name,
		).Error
	})
}

// GetFeature fetches a feature by (normalized) name; nil when unknown.
func GetFeature(db *gorm.DB, name string) (*domain.Feature, error) {
	var f domain.Feature
	err := db.Where("name = ?", NormalizeFeatureName(name)).First(&f).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// ListFeatures returns all features ordered by name.
func ListFeatures(db *gorm.DB) ([]domain.Feature, error) {
	var out []domain.Feature
	err := db.Order("name ASC").Find(&out).Error
	return out, err
}

// ListFeaturesByEnabled returns features filtered by toggle state, by name.
func ListFeaturesByEnabled(db *gorm.DB, enabled bool) ([]domain.Feature, error) {
	var out []domain.Feature
	err := db.Where("enabled = ?", enabled).Order("name ASC").Find(&out).Error
	return out, err
}

// SetFeatureEnabled flips the per-feature toggle.
func SetFeatureEnabled(db *gorm.DB, name string, enabled bool) error {
	return db.Exec(
		"UPDATE features SET enabled=?, updated_at=? WHERE name=?",
		enabled, now(), NormalizeFeatureName(name),
	).Error
}

// IsFeatureEnabled reports the per-feature toggle; unknown features are off.
func IsFeatureEnabled(db *gorm.DB, name string) (bool, error) {
	f, err := GetFeature(db, name)
	if err != nil {
		return false, err
	}
	return f != nil && f.Enabled, nil
}
