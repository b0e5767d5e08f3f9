// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the append-only
// message log.
package repo

import (
	"gorm.io/gorm"

	"daddygpt/internal/domain"
)

// LogMessage appends one row to the message log. userID may be nil for
// system-originated entries. Errors always propagate; silent message loss is
// not acceptable.
func LogMessage(db *gorm.DB, chatID int64, chatType string, userID *int64, role, text string, tgMessageID, replyTo *int64) (*domain.Message, error) {
	m := &domain.Message{
		ChatID:           chatID,
		ChatType:         chatType,
		UserID:           userID,
		Role:             role,
		Text:             text,
		TGMessageID:      tgMessageID,
		ReplyToTGMessage: replyTo,
		CreatedAt:        now(),
	}
	return m, db.Create(m).Error
}

// RecentDialog returns up to limit most recent user/assistant turns for the
// exact (chat, user) pair, oldest first. Scoping by both keys keeps group
// chats from leaking one user's dialog into another's context.
func RecentDialog(db *gorm.DB, chatID, userID int64, limit int) ([]domain.Message, error) {
	var out []domain.Message
	q := db.
		Where("chat_id = ? AND user_id = ? AND role IN ('user','assistant')", chatID, userID).
		Order("created_at DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	// Reverse into chronological order.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// UserConversation returns a user's most recent messages across all chats,
// oldest first.
func UserConversation(db *gorm.DB, userID int64, limit int) ([]domain.Message, error) {
	var out []domain.Message
	q := db.Where("user_id = ?", userID).Order("created_at DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// SearchUserMessages returns a user's messages whose text contains query
// (substring), oldest first.
func SearchUserMessages(db *gorm.DB, userID int64, query string, limit int) ([]domain.Message, error) {
	var out []domain.Message
	q := db.
		Where("user_id = ? AND text LIKE ?", userID, "%"+query+"%").
		Order("created_at DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}
