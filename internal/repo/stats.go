// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides aggregate counts for the /stats command.
package repo

import "gorm.io/gorm"

// Counts holds per-table row totals shown to admins.
type Counts struct {
	Users    int64
	Messages int64
	Admins   int64
	Bans     int64
	Prompts  int64
}

// CountAll gathers row counts with raw COUNTs so a missing table surfaces as
// an error rather than a silent zero.
func CountAll(db *gorm.DB) (Counts, error) {
	var c Counts
	for _, q := range []struct {
		table string
		dst   *int64
	}{
		{"users", &c.Users},
		{"messages", &c.Messages},
		{"admins", &c.Admins},
		{"bans", &c.Bans},
		{"system_prompts", &c.Prompts},
	} {
		if err := db.Raw("SELECT COUNT(*) FROM " + q.table).Scan(q.dst).Error; err != nil {
			return c, err
		}
	}
	return c, nil
}
