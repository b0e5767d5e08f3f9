// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for key/value
// settings.
package repo

import (
	"errors"

	"gorm.io/gorm"

	"daddygpt/internal/domain"
)

// GetSetting returns the value for key, or "" with found=false when absent.
func GetSetting(db *gorm.DB, key string) (string, bool, error) {
	var s domain.Setting
	err := db.Where("key = ?", key).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return s.Value, true, nil
}

// SetSetting inserts or overwrites the value for key (last write wins).
func SetSetting(db *gorm.DB, key, value string) error {
	return db.Exec(
		"INSERT INTO settings(key, value) VALUES(?, ?) ON CONFLICT(key) DO UPDATE SET value=excluded.value",
		key, value,
	).Error
}

// SettingBool reads a setting and interprets "1" as true. Missing keys and
// read errors are reported as false; boolean settings are always seeded.
func SettingBool(db *gorm.DB, key string) bool {
	v, ok, err := GetSetting(db, key)
	return err == nil && ok && v == "1"
}
