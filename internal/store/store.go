// Package store exposes the bot's durable state behind a single
// mutual-exclusion boundary. Handlers run concurrently, so every read and
// write goes through one mutex here; with messaging throughput low relative
// to local SQLite latency, serializing reads too is a simplicity win over a
// reader/writer split. Every write commits before the call returns.
//
// No method performs network I/O, and callers must not hold results of one
// call as a lock over another: inference and transport calls happen outside
// this boundary, on data already read.
package store

import (
	"sync"

	"gorm.io/gorm"

	"daddygpt/internal/domain"
	"daddygpt/internal/repo"
)

// Store owns all persistent entities. Construct with Open or New; the zero
// value is not usable.
type Store struct {
	mu sync.Mutex
	db *gorm.DB
}

// Open opens the SQLite database at path and initializes the schema and
// default settings. Safe to call on every startup: migration is
// create-if-absent and seeding only fills missing keys.
func Open(path string) (*Store, error) {
	db, err := repo.OpenSQLite(path)
	if err != nil {
		return nil, err
	}
	s := New(db)
	if err := s.Init(); err != nil {
		return nil, err
	}
	return s, nil
}

// New wraps an already-open GORM handle. Used by tests and by Open.
func New(db *gorm.DB) *Store { return &Store{db: db} }

// Init migrates the schema and seeds default settings. Idempotent.
func (s *Store) Init() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := repo.AutoMigrate(s.db); err != nil {
		return err
	}
	return repo.SeedDefaultSettings(s.db)
}

// View runs fn with the underlying handle while holding the store lock. It
// exists for bulk operations (backup export/import) that need multi-table
// consistency; fn must not call back into Store methods.
func (s *Store) View(fn func(db *gorm.DB) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.db)
}

// ---------- settings ----------

// GetSetting returns the value for key and whether it exists.
func (s *Store) GetSetting(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return repo.GetSetting(s.db, key)
}

// SetSetting writes a setting; last write wins.
func (s *Store) SetSetting(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return repo.SetSetting(s.db, key, value)
}

// SettingOr returns the setting value, or def when absent or unreadable.
func (s *Store) SettingOr(key, def string) string {
	v, ok, err := s.GetSetting(key)
	if err != nil || !ok || v == "" {
		return def
	}
	return v
}

// BotEnabled reports the global bot switch.
func (s *Store) BotEnabled() bool { return s.settingBool("bot_enabled") }

// BackupEnabled reports whether the daily backup task should run.
func (s *Store) BackupEnabled() bool { return s.settingBool("backup_enabled") }

// FeaturesGlobalEnabled reports the all-features switch.
func (s *Store) FeaturesGlobalEnabled() bool { return s.settingBool("features_global_enabled") }

// SetFeaturesGlobalEnabled flips the all-features switch.
func (s *Store) SetFeaturesGlobalEnabled(enabled bool) error {
	v := "0"
	if enabled {
		v = "1"
	}
	return s.SetSetting("features_global_enabled", v)
}

func (s *Store) settingBool(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return repo.SettingBool(s.db, key)
}

// ---------- features ----------

// EnsureFeature upserts a feature row, preserving an existing enabled flag.
func (s *Store) EnsureFeature(name, scope, description string, commands []string, enabledDefault bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return repo.EnsureFeature(s.db, name, scope, description, commands, enabledDefault)
}

// GetFeature fetches a feature by name; nil when unknown.
func (s *Store) GetFeature(name string) (*domain.Feature, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return repo.GetFeature(s.db, name)
}

// ListFeatures returns all features ordered by name.
func (s *Store) ListFeatures() ([]domain.Feature, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return repo.ListFeatures(s.db)
}

// ListFeaturesByEnabled returns features filtered by toggle state.
func (s *Store) ListFeaturesByEnabled(enabled bool) ([]domain.Feature, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return repo.ListFeaturesByEnabled(s.db, enabled)
}

// SetFeatureEnabled flips a feature's toggle.
func (s *Store) SetFeatureEnabled(name string, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return repo.SetFeatureEnabled(s.db, name, enabled)
}

// IsFeatureEnabled reports a feature's toggle; unknown features are off.
func (s *Store) IsFeatureEnabled(name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return repo.IsFeatureEnabled(s.db, name)
}

// ---------- admins / bans ----------

// IsAdmin reports admin membership for a numeric id.
func (s *Store) IsAdmin(userID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return repo.IsAdmin(s.db, userID)
}

// AdminCount returns the number of admins.
func (s *Store) AdminCount() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return repo.AdminCount(s.db)
}

// ListAdmins returns all admin ids.
func (s *Store) ListAdmins() ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return repo.ListAdmins(s.db)
}

// AddAdmin grants admin to a numeric id.
func (s *Store) AddAdmin(userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return repo.AddAdmin(s.db, userID)
}

// RemoveAdmin revokes admin from a numeric id.
func (s *Store) RemoveAdmin(userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return repo.RemoveAdmin(s.db, userID)
}

// AddPendingAdmin queues an admin grant keyed by username.
func (s *Store) AddPendingAdmin(username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return repo.AddPendingAdmin(s.db, username)
}

// ResolvePendingAdmin applies a matching pending admin grant; no-op
// otherwise. Safe to call redundantly.
func (s *Store) ResolvePendingAdmin(userID int64, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return repo.ResolvePendingAdmin(s.db, userID, username)
}

// IsBanned reports an id ban or, when username is non-empty, a pending
// username ban.
func (s *Store) IsBanned(userID int64, username string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return repo.IsBanned(s.db, userID, username)
}

// BanID bans a numeric id.
func (s *Store) BanID(userID int64, username, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return repo.BanID(s.db, userID, username, reason)
}

// BanPending queues a ban keyed by username.
func (s *Store) BanPending(username, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return repo.BanPending(s.db, username, reason)
}

// UnbanID removes an id ban.
func (s *Store) UnbanID(userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return repo.UnbanID(s.db, userID)
}

// UnbanPending removes a pending username ban.
func (s *Store) UnbanPending(username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return repo.UnbanPending(s.db, username)
}

// ResolvePendingBan materializes a matching pending ban; no-op otherwise.
// Safe to call redundantly.
func (s *Store) ResolvePendingBan(userID int64, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return repo.ResolvePendingBan(s.db, userID, username)
}

// ListBans returns the most recent bans, newest first.
func (s *Store) ListBans(limit int) ([]domain.Ban, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return repo.ListBans(s.db, limit)
}

// GetBan fetches the ban record for an id; nil when not banned.
func (s *Store) GetBan(userID int64) (*domain.Ban, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return repo.GetBan(s.db, userID)
}

// ---------- users ----------

// UpsertUser inserts or updates a directory row, appending change-log rows
// for every mutated field.
func (s *Store) UpsertUser(userID int64, username, firstName, lastName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return repo.UpsertUser(s.db, userID, username, firstName, lastName)
}

// GetUser fetches a directory row; nil when never seen.
func (s *Store) GetUser(userID int64) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return repo.GetUser(s.db, userID)
}

// SearchUsers matches id/username/names by substring.
func (s *Store) SearchUsers(query string, limit int) ([]domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return repo.SearchUsers(s.db, query, limit)
}

// UserChanges returns a user's recent change-log rows, newest first.
func (s *Store) UserChanges(userID int64, limit int) ([]domain.UserChange, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return repo.UserChanges(s.db, userID, limit)
}

// UserIDByUsername resolves a username to a numeric id; 0 when unknown.
func (s *Store) UserIDByUsername(username string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return repo.UserIDByUsername(s.db, username)
}

// ---------- messages ----------

// LogMessage appends one message-log row.
func (s *Store) LogMessage(chatID int64, chatType string, userID *int64, role, text string, tgMessageID, replyTo *int64) (*domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return repo.LogMessage(s.db, chatID, chatType, userID, role, text, tgMessageID, replyTo)
}

// RecentDialog returns the (chat, user) dialog window, oldest first.
func (s *Store) RecentDialog(chatID, userID int64, limit int) ([]domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return repo.RecentDialog(s.db, chatID, userID, limit)
}

// UserConversation returns a user's recent messages across chats.
func (s *Store) UserConversation(userID int64, limit int) ([]domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return repo.UserConversation(s.db, userID, limit)
}

// SearchUserMessages returns a user's messages containing query.
func (s *Store) SearchUserMessages(userID int64, query string, limit int) ([]domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return repo.SearchUserMessages(s.db, userID, query, limit)
}

// ---------- prompts ----------

// EnabledPrompts returns enabled prompt texts in ascending id order.
func (s *Store) EnabledPrompts() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return repo.EnabledPrompts(s.db)
}

// ListPrompts returns all prompts in ascending id order.
func (s *Store) ListPrompts() ([]domain.SystemPrompt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return repo.ListPrompts(s.db)
}

// AddPrompt appends a new enabled prompt.
func (s *Store) AddPrompt(prompt string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return repo.AddPrompt(s.db, prompt)
}

// SetPrompt replaces a prompt's text.
func (s *Store) SetPrompt(id int64, prompt string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return repo.SetPrompt(s.db, id, prompt)
}

// TogglePrompt flips a prompt's enabled flag.
func (s *Store) TogglePrompt(id int64, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return repo.TogglePrompt(s.db, id, enabled)
}

// DeletePrompt removes one prompt.
func (s *Store) DeletePrompt(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return repo.DeletePrompt(s.db, id)
}

// ClearPrompts removes every prompt.
func (s *Store) ClearPrompts() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return repo.ClearPrompts(s.db)
}

// ---------- stats ----------

// CountAll gathers per-table row counts.
func (s *Store) CountAll() (repo.Counts, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return repo.CountAll(s.db)
}
