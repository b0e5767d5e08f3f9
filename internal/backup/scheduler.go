package backup

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"daddygpt/internal/store"
)

// Sender delivers a finished snapshot file, or a failure notice, to one
// admin chat.
type Sender interface {
	SendDocument(ctx context.Context, chatID int64, path, caption string) (int64, error)
	SendMessage(ctx context.Context, chatID int64, text string, replyToMessageID int64) (int64, error)
}

// Scheduler produces a daily xlsx snapshot and sends it to every admin.
type Scheduler struct {
	store  *store.Store
	sender Sender
	dir    string
	loc    *time.Location
	hour   int
}

// NewScheduler builds a Scheduler that fires once a day at hour o'clock in
// the given IANA timezone.
func NewScheduler(st *store.Store, sender Sender, dir, timezone string, hour int) (*Scheduler, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("backup timezone %q: %w", timezone, err)
	}
	return &Scheduler{store: st, sender: sender, dir: dir, loc: loc, hour: hour}, nil
}

// nextRun returns the next hour-o'clock instant strictly after now.
func (s *Scheduler) nextRun(now time.Time) time.Time {
	local := now.In(s.loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), s.hour, 0, 0, 0, s.loc)
	if !next.After(local) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// Run blocks until ctx is done, firing a backup at each scheduled instant.
// The daily backup only runs while the backup_enabled setting is on, so
// admins can pause it without stopping the bot.
func (s *Scheduler) Run(ctx context.Context) {
	for {
		next := s.nextRun(time.Now())
		log.Info().Time("next", next).Msg("backup scheduled")

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		if !s.store.BackupEnabled() {
			log.Debug().Msg("backup disabled, skipping")
			continue
		}
		if err := s.RunOnce(ctx); err != nil {
			log.Error().Err(err).Msg("daily backup failed")
			s.notifyFailure(ctx, err)
		}
	}
}

// RunOnce exports a snapshot now and delivers it to every admin,
// regardless of the backup_enabled setting.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	path, err := s.Export()
	if err != nil {
		return err
	}

	admins, err := s.store.ListAdmins()
	if err != nil {
		return err
	}
	caption := "Daily backup " + time.Now().In(s.loc).Format("2006-01-02")
	for _, id := range admins {
		if _, err := s.sender.SendDocument(ctx, id, path, caption); err != nil {
			log.Warn().Err(err).Int64("admin", id).Msg("backup delivery failed")
		}
	}
	return nil
}

// notifyFailure tells every admin that the scheduled backup failed.
func (s *Scheduler) notifyFailure(ctx context.Context, cause error) {
	admins, err := s.store.ListAdmins()
	if err != nil {
		log.Error().Err(err).Msg("admin list unavailable for failure notice")
		return
	}
	text := "Daily backup failed: " + cause.Error()
	for _, id := range admins {
		if _, err := s.sender.SendMessage(ctx, id, text, 0); err != nil {
			log.Warn().Err(err).Int64("admin", id).Msg("failure notice undelivered")
		}
	}
}

// Export writes a timestamped snapshot into the backup directory and
// returns its path.
func (s *Scheduler) Export() (string, error) {
	name := fmt.Sprintf("backup_%s.xlsx", time.Now().In(s.loc).Format("20060102_150405"))
	path := filepath.Join(s.dir, name)

	err := s.store.View(func(db *gorm.DB) error { return ExportXLSX(db, path) })
	if err != nil {
		return "", err
	}
	return path, nil
}
