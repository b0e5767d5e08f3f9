// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for admin-managed
// system prompts.
package repo

import (
	"gorm.io/gorm"

	"daddygpt/internal/domain"
)

// EnabledPrompts returns the text of all enabled prompts in ascending id
// order, the order they are concatenated into the system message.
func EnabledPrompts(db *gorm.DB) ([]string, error) {
	var out []string
	err := db.Model(&domain.SystemPrompt{}).
		Where("enabled = ?", true).
		Order("id ASC").
		Pluck("prompt", &out).Error
	return out, err
}

// ListPrompts returns all prompts in ascending id order.
func ListPrompts(db *gorm.DB) ([]domain.SystemPrompt, error) {
	var out []domain.SystemPrompt
	err := db.Order("id ASC").Find(&out).Error
	return out, err
}

// AddPrompt appends a new enabled prompt.
func AddPrompt(db *gorm.DB, prompt string) error {
	return db.Create(&domain.SystemPrompt{
		Prompt:    prompt,
		Enabled:   true,
		CreatedAt: now(),
	}).Error
}

// SetPrompt replaces the text of an existing prompt.
func SetPrompt(db *gorm.DB, id int64, prompt string) error {
	return db.Model(&domain.SystemPrompt{}).Where("id = ?", id).Update("prompt", prompt).Error
}

// TogglePrompt flips a prompt's enabled flag.
func TogglePrompt(db *gorm.DB, id int64, enabled bool) error {
	return db.Model(&domain.SystemPrompt{}).Where("id = ?", id).Update("enabled", enabled).Error
}

// DeletePrompt removes one prompt by id.
func DeletePrompt(db *gorm.DB, id int64) error {
	return db.Where("id = ?", id).Delete(&domain.SystemPrompt{}).Error
}

// ClearPrompts removes every prompt.
func ClearPrompts(db *gorm.DB) error {
	return db.Exec("DELETE FROM system_prompts").Error
}
