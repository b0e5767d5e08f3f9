// Package domain defines the persistence models for the bot's state store:
// settings, features, admins, bans, the user directory with its change log,
// the message log, and system prompts. These types are mapped with GORM and
// form the core data layer of the application.
package domain

import "time"

// Chat-type and role values stored on Message rows. They mirror the values
// delivered by the transport so the log can be filtered without translation.
const (
	ChatTypePrivate    = "private"
	ChatTypeGroup      = "group"
	ChatTypeSupergroup = "supergroup"

	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Feature scopes. A "user" feature is callable by any non-banned user; an
// "admin" feature is callable by admins only, regardless of toggles.
const (
	ScopeUser  = "user"
	ScopeAdmin = "admin"
)

// Setting is a single key/value configuration entry. Last write wins.
type Setting struct {
	Key   string `gorm:"type:varchar(64);primaryKey"`
	Value string `gorm:"type:text;not null"`
}

// TableName returns the database table name for Setting.
func (Setting) TableName() string { return "settings" }

// Feature is the persisted record of an optional capability.
//
// Fields:
//   - Name: unique lower-cased identifier; immutable once created.
//   - Scope: "user" or "admin" (enforced by DB constraint).
//   - Description: short human-readable summary shown in listings.
//   - Commands: comma-separated command names (no leading slash).
//   - Enabled: admin-controlled toggle; survives metadata refreshes.
type Feature struct {
	Name        string `gorm:"type:varchar(64);primaryKey"`
	Scope       string `gorm:"type:varchar(16);not null;check:scope IN ('user','admin')"`
	Description string `gorm:"type:text;not null;default:''"`
	Commands    string `gorm:"type:text;not null;default:''"`
	Enabled     bool   `gorm:"not null;default:true"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TableName returns the database table name for Feature.
func (Feature) TableName() string { return "features" }

// Admin marks a numeric user id as an administrator. Membership is boolean;
// there are no roles.
type Admin struct {
	UserID  int64 `gorm:"primaryKey;autoIncrement:false"`
	AddedAt time.Time
}

// TableName returns the database table name for Admin.
func (Admin) TableName() string { return "admins" }

// PendingAdmin defers an admin grant keyed by username until that username's
// numeric id is first observed. Consumed exactly once on resolution.
type PendingAdmin struct {
	Username string `gorm:"type:varchar(64);primaryKey"`
	AddedAt  time.Time
}

// TableName returns the database table name for PendingAdmin.
func (PendingAdmin) TableName() string { return "admins_pending" }

// Ban records a banned numeric user id with an optional reason.
type Ban struct {
	UserID   int64  `gorm:"primaryKey;autoIncrement:false"`
	Username string `gorm:"type:varchar(64)"`
	Reason   string `gorm:"type:text"`
	BannedAt time.Time
}

// TableName returns the database table name for Ban.
func (Ban) TableName() string { return "bans" }

// PendingBan defers a ban keyed by username until that username's numeric id
// is first observed, at which point it is materialized as a Ban and deleted.
type PendingBan struct {
	Username string `gorm:"type:varchar(64);primaryKey"`
	Reason   string `gorm:"type:text"`
	BannedAt time.Time
}

// TableName returns the database table name for PendingBan.
func (PendingBan) TableName() string { return "bans_pending" }

// SystemPrompt is an admin-managed prompt fragment. All enabled prompts are
// concatenated, in ascending id order, into the system message sent to the
// inference backend.
type SystemPrompt struct {
	ID        int64  `gorm:"primaryKey;autoIncrement"`
	Prompt    string `gorm:"type:text;not null"`
	Enabled   bool   `gorm:"not null;default:true"`
	CreatedAt time.Time
}

// TableName returns the database table name for SystemPrompt.
func (SystemPrompt) TableName() string { return "system_prompts" }

// User is one row per observed account. The id is stable; username and names
// are mutable and every observed change appends a UserChange row.
type User struct {
	UserID    int64  `gorm:"primaryKey;autoIncrement:false"`
	Username  string `gorm:"type:varchar(64);index:idx_users_username"`
	FirstName string `gorm:"type:varchar(128)"`
	LastName  string `gorm:"type:varchar(128)"`
	FirstSeen time.Time
	LastSeen  time.Time
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// UserChange is an append-only audit entry written when a mutable User field
// is observed with a new value. Never updated or deleted.
type UserChange struct {
	ID        int64  `gorm:"primaryKey;autoIncrement"`
	UserID    int64  `gorm:"not null;index:idx_user_changes_user"`
	Field     string `gorm:"type:varchar(32);not null"`
	OldValue  string `gorm:"type:text"`
	NewValue  string `gorm:"type:text"`
	ChangedAt time.Time
}

// TableName returns the database table name for UserChange.
func (UserChange) TableName() string { return "user_changes" }

// Message is one append-only entry in the conversation log.
//
// Assistant replies are stored with the *requesting* user's id, not the
// bot's, so per-(chat,user) dialog retrieval stays scoped in group chats.
// UserID is nil only for system-originated entries.
type Message struct {
	ID               int64  `gorm:"primaryKey;autoIncrement"`
	ChatID           int64  `gorm:"not null;index:idx_messages_chat_time,priority:1"`
	ChatType         string `gorm:"type:varchar(16);not null"`
	UserID           *int64 `gorm:"index:idx_messages_user_time,priority:1"`
	Role             string `gorm:"type:varchar(16);not null;check:role IN ('user','assistant','system')"`
	Text             string `gorm:"type:text;not null"`
	TGMessageID      *int64
	ReplyToTGMessage *int64
	CreatedAt        time.Time `gorm:"index:idx_messages_chat_time,priority:2;index:idx_messages_user_time,priority:2"`
}

// TableName returns the database table name for Message.
func (Message) TableName() string { return "messages" }
