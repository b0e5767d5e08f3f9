// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the user
// directory and its append-only change log.
package repo

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"daddygpt/internal/domain"
)

// UpsertUser inserts or updates the directory row for userID.
//
// On insert both first-seen and last-seen are set. On update, every mutable
// field (username, first name, last name) whose new value differs from the
// stored one gets a UserChange row appended before the overwrite; the change
// rows and the overwrite commit in one transaction so the log never
// disagrees with the row. First-seen is never touched after insert.
func UpsertUser(db *gorm.DB, userID int64, username, firstName, lastName string) error {
	ts := now()
	return db.Transaction(func(tx *gorm.DB) error {
		var existing domain.User
		err := tx.Where("user_id = ?", userID).First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return tx.Create(&domain.User{
				UserID:    userID,
				Username:  username,
				FirstName: firstName,
				LastName:  lastName,
				FirstSeen: ts,
				LastSeen:  ts,
			}).Error
		}
		if err != nil {
			return err
		}

		track := func(field, oldVal, newVal string) error {
			if oldVal == newVal {
				return nil
			}
			return tx.Create(&domain.UserChange{
				UserID:    userID,
				Field:     field,
				OldValue:  oldVal,
				NewValue:  newVal,
				ChangedAt: ts,
			}).Error
		}
		if err := track("username", existing.Username, username); err != nil {
			return err
		}
		if err := track("first_name", existing.FirstName, firstName); err != nil {
			return err
		}
		if err := track("last_name", existing.LastName, lastName); err != nil {
			return err
		}

		return tx.Model(&domain.User{}).Where("user_id = ?", userID).Updates(map[string]any{
			"username":   username,
			"first_name": firstName,
			"last_name":  lastName,
			"last_seen":  ts,
		}).Error
	})
}

// GetUser fetches a directory row by id; nil when never seen.
func GetUser(db *gorm.DB, userID int64) (*domain.User, error) {
	var u domain.User
	err := db.Where("user_id = ?", userID).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// SearchUsers matches the query against id, username, and names (substring,
// case-folded by SQLite LIKE), most recently seen first.
func SearchUsers(db *gorm.DB, query string, limit int) ([]domain.User, error) {
	like := "%" + strings.TrimSpace(query) + "%"
	var out []domain.User
	q := db.Where(
		`CAST(user_id AS TEXT) LIKE ? OR IFNULL(username,'') LIKE ? OR IFNULL(first_name,'') LIKE ? OR IFNULL(last_name,'') LIKE ?`,
		like, like, like, like,
	).Order("last_seen DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&out).Error
	return out, err
}

// UserChanges returns the most recent change-log rows for a user, newest
// first.
func UserChanges(db *gorm.DB, userID int64, limit int) ([]domain.UserChange, error) {
	var out []domain.UserChange
	q := db.Where("user_id = ?", userID).Order("changed_at DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&out).Error
	return out, err
}

// UserIDByUsername resolves a username (with or without @) to the last id it
// was seen on; 0 when unknown.
func UserIDByUsername(db *gorm.DB, username string) (int64, error) {
	u := NormalizeUsername(username)
	if u == "" {
		return 0, nil
	}
	var row domain.User
	err := db.Where("LOWER(username) = ?", u).Order("last_seen DESC").First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return row.UserID, nil
}
