// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for admin
// membership and bans, including the username-keyed pending records that are
// resolved once a numeric id is observed.
package repo

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"daddygpt/internal/domain"
)

// NormalizeUsername strips a leading @ and lower-cases. Pending records are
// keyed by this form.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(username), "@"))
}

// ---------- admins ----------

// AdminCount returns the number of admin rows.
func AdminCount(db *gorm.DB) (int64, error) {
	var n int64
	err := db.Model(&domain.Admin{}).Count(&n).Error
	return n, err
}

// IsAdmin reports admin membership for a numeric user id.
func IsAdmin(db *gorm.DB, userID int64) (bool, error) {
	var n int64
	err := db.Model(&domain.Admin{}).Where("user_id = ?", userID).Count(&n).Error
	return n > 0, err
}

// ListAdmins returns all admin ids in ascending order.
func ListAdmins(db *gorm.DB) ([]int64, error) {
	var ids []int64
	err := db.Model(&domain.Admin{}).Order("user_id ASC").Pluck("user_id", &ids).Error
	return ids, err
}

// AddAdmin grants admin to a numeric id. Idempotent.
func AddAdmin(db *gorm.DB, userID int64) error {
	return db.Exec(
		"INSERT INTO admins(user_id, added_at) VALUES(?, ?) ON CONFLICT(user_id) DO NOTHING",
		userID, now(),
	).Error
}

// RemoveAdmin revokes admin from a numeric id. No-op if absent.
func RemoveAdmin(db *gorm.DB, userID int64) error {
	return db.Where("user_id = ?", userID).Delete(&domain.Admin{}).Error
}

// AddPendingAdmin records a username-keyed admin grant to be applied when
// that username's id is first observed. Idempotent.
func AddPendingAdmin(db *gorm.DB, username string) error {
	return db.Exec(
		"INSERT INTO admins_pending(username, added_at) VALUES(?, ?) ON CONFLICT(username) DO NOTHING",
		NormalizeUsername(username), now(),
	).Error
}

// ResolvePendingAdmin applies a matching pending admin grant for (id,
// username): the pending row is deleted and the id added to admins, in one
// transaction. No-op when username is empty or nothing matches; safe to call
// on every observed message.
func ResolvePendingAdmin(db *gorm.DB, userID int64, username string) error {
	u := NormalizeUsername(username)
	if u == "" {
		return nil
	}
	return db.Transaction(func(tx *gorm.DB) error {
		res := tx.Where("username = ?", u).Delete(&domain.PendingAdmin{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		return AddAdmin(tx, userID)
	})
}

// ---------- bans ----------

// IsBanned reports whether the id is banned, or (when username is non-empty)
// whether a pending username ban exists.
func IsBanned(db *gorm.DB, userID int64, username string) (bool, error) {
	var n int64
	if err := db.Model(&domain.Ban{}).Where("user_id = ?", userID).Count(&n).Error; err != nil {
		return false, err
	}
	if n > 0 {
		return true, nil
	}
	u := NormalizeUsername(username)
	if u == "" {
		return false, nil
	}
	if err := db.Model(&domain.PendingBan{}).Where("username = ?", u).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

// BanID bans a numeric id, replacing any previous ban record for it.
func BanID(db *gorm.DB, userID int64, username, reason string) error {
	return db.Exec(
		"INSERT OR REPLACE INTO bans(user_id, username, reason, banned_at) VALUES(?,?,?,?)",
		userID, username, reason, now(),
	).Error
}

// BanPending records a username-keyed ban applied when that username's id is
// first observed.
func BanPending(db *gorm.DB, username, reason string) error {
	return db.Exec(
		"INSERT OR REPLACE INTO bans_pending(username, reason, banned_at) VALUES(?,?,?)",
		NormalizeUsername(username), reason, now(),
	).Error
}

// UnbanID removes an id ban. No-op if absent.
func UnbanID(db *gorm.DB, userID int64) error {
	return db.Where("user_id = ?", userID).Delete(&domain.Ban{}).Error
}

// UnbanPending removes a pending username ban. No-op if absent.
func UnbanPending(db *gorm.DB, username string) error {
	return db.Where("username = ?", NormalizeUsername(username)).Delete(&domain.PendingBan{}).Error
}

// ResolvePendingBan materializes a matching pending username ban into an
// id-keyed ban: the pending row is deleted and the id banned with the pending
// reason, in one transaction. No-op when username is empty or nothing
// matches; safe to call on every observed message.
func ResolvePendingBan(db *gorm.DB, userID int64, username string) error {
	u := NormalizeUsername(username)
	if u == "" {
		return nil
	}
	return db.Transaction(func(tx *gorm.DB) error {
		var pending domain.PendingBan
		err := tx.Where("username = ?", u).First(&pending).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := tx.Where("username = ?", u).Delete(&domain.PendingBan{}).Error; err != nil {
			return err
		}
		return BanID(tx, userID, username, pending.Reason)
	})
}

// ListBans returns the most recent bans, newest first.
func ListBans(db *gorm.DB, limit int) ([]domain.Ban, error) {
	var out []domain.Ban
	q := db.Order("banned_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&out).Error
	return out, err
}

// GetBan fetches the ban record for an id; nil when not banned.
func GetBan(db *gorm.DB, userID int64) (*domain.Ban, error) {
	var b domain.Ban
	err := db.Where("user_id = ?", userID).First(&b).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}
