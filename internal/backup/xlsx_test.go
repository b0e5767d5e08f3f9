package backup

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"daddygpt/internal/domain"
	"daddygpt/internal/store"
)

func exportStore(st *store.Store, path string) error {
	return st.View(func(db *gorm.DB) error { return ExportXLSX(db, path) })
}

func importStore(st *store.Store, path string) error {
	return st.View(func(db *gorm.DB) error { return ImportXLSX(db, path) })
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	return st
}

func i64(v int64) *int64 { return &v }

func TestExportImportRoundTrip(t *testing.T) {
	st := newTestStore(t)
	if err := st.AddAdmin(7); err != nil {
		t.Fatalf("AddAdmin: %v", err)
	}
	if err := st.UpsertUser(1, "alice", "Alice", ""); err != nil {
		t.Fatalf("UpsertUser: %v", err)
	}
	if _, err := st.LogMessage(10, domain.ChatTypePrivate, i64(1), domain.RoleUser, "hello there", nil, nil); err != nil {
		t.Fatalf("LogMessage: %v", err)
	}
	if err := st.AddPrompt("Always be brief."); err != nil {
		t.Fatalf("AddPrompt: %v", err)
	}

	path := filepath.Join(t.TempDir(), "out", "snapshot.xlsx")
	if err := exportStore(st, path); err != nil {
		t.Fatalf("export: %v", err)
	}

	// Wipe into a fresh store and import.
	dst := newTestStore(t)
	if err := importStore(dst, path); err != nil {
		t.Fatalf("import: %v", err)
	}

	admin, err := dst.IsAdmin(7)
	if err != nil || !admin {
		t.Fatalf("admin not restored: %v %v", admin, err)
	}
	u, err := dst.GetUser(1)
	if err != nil || u == nil || u.Username != "alice" {
		t.Fatalf("user not restored: %+v %v", u, err)
	}
	msgs, err := dst.RecentDialog(10, 1, 20)
	if err != nil || len(msgs) != 1 || msgs[0].Text != "hello there" {
		t.Fatalf("messages not restored: %+v %v", msgs, err)
	}
	prompts, err := dst.EnabledPrompts()
	if err != nil || len(prompts) != 1 || prompts[0] != "Always be brief." {
		t.Fatalf("prompts not restored: %v %v", prompts, err)
	}
}

func TestExportHasSheetPerTable(t *testing.T) {
	st := newTestStore(t)
	path := filepath.Join(t.TempDir(), "snapshot.xlsx")
	if err := exportStore(st, path); err != nil {
		t.Fatalf("export: %v", err)
	}

	wb, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer wb.Close()

	got := make(map[string]bool)
	for _, name := range wb.GetSheetList() {
		got[name] = true
	}
	for _, table := range tables {
		if !got[table] {
			t.Fatalf("missing sheet %q, have %v", table, wb.GetSheetList())
		}
	}
}

func TestImportMissingSheetLeavesTableAlone(t *testing.T) {
	// Build a workbook that only carries settings.
	wb := excelize.NewFile()
	if err := wb.SetSheetName(wb.GetSheetName(0), "settings"); err != nil {
		t.Fatalf("rename sheet: %v", err)
	}
	hdr := []any{"key", "value"}
	row := []any{"trigger_name", "jarvis"}
	if err := wb.SetSheetRow("settings", "A1", &hdr); err != nil {
		t.Fatalf("header: %v", err)
	}
	if err := wb.SetSheetRow("settings", "A2", &row); err != nil {
		t.Fatalf("row: %v", err)
	}
	path := filepath.Join(t.TempDir(), "partial.xlsx")
	if err := wb.SaveAs(path); err != nil {
		t.Fatalf("save: %v", err)
	}

	st := newTestStore(t)
	if err := st.AddAdmin(7); err != nil {
		t.Fatalf("AddAdmin: %v", err)
	}
	if err := importStore(st, path); err != nil {
		t.Fatalf("import: %v", err)
	}

	if trig := st.SettingOr("trigger_name", ""); trig != "jarvis" {
		t.Fatalf("setting not replaced: %q", trig)
	}
	admin, err := st.IsAdmin(7)
	if err != nil || !admin {
		t.Fatalf("admins table must be untouched: %v %v", admin, err)
	}
}

func TestSchedulerNextRun(t *testing.T) {
	st := newTestStore(t)
	s, err := NewScheduler(st, nil, t.TempDir(), "Asia/Hebron", 2)
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}
	loc, _ := time.LoadLocation("Asia/Hebron")

	before := time.Date(2026, 3, 10, 1, 30, 0, 0, loc)
	next := s.nextRun(before)
	if next.Hour() != 2 || next.Day() != 10 {
		t.Fatalf("nextRun(%v) = %v", before, next)
	}

	after := time.Date(2026, 3, 10, 2, 0, 0, 0, loc)
	next = s.nextRun(after)
	if next.Day() != 11 {
		t.Fatalf("run at exactly the boundary must schedule tomorrow, got %v", next)
	}
}

type fakeSender struct {
	docs  map[int64]string
	texts map[int64]string
}

func (f *fakeSender) SendDocument(_ context.Context, chatID int64, path, _ string) (int64, error) {
	if f.docs == nil {
		f.docs = map[int64]string{}
	}
	f.docs[chatID] = path
	return 1, nil
}

func (f *fakeSender) SendMessage(_ context.Context, chatID int64, text string, _ int64) (int64, error) {
	if f.texts == nil {
		f.texts = map[int64]string{}
	}
	f.texts[chatID] = text
	return 1, nil
}

func TestRunOnceDeliversToEveryAdmin(t *testing.T) {
	st := newTestStore(t)
	for _, id := range []int64{7, 8} {
		if err := st.AddAdmin(id); err != nil {
			t.Fatalf("AddAdmin: %v", err)
		}
	}
	sender := &fakeSender{}
	s, err := NewScheduler(st, sender, t.TempDir(), "Asia/Hebron", 2)
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}

	if err := s.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if len(sender.docs) != 2 {
		t.Fatalf("deliveries = %v", sender.docs)
	}
	for id, path := range sender.docs {
		if !strings.HasSuffix(path, ".xlsx") {
			t.Fatalf("admin %d got %q", id, path)
		}
	}
}

func TestSchedulerRejectsBadTimezone(t *testing.T) {
	st := newTestStore(t)
	if _, err := NewScheduler(st, nil, t.TempDir(), "Mars/Olympus", 2); err == nil {
		t.Fatalf("expected error for unknown timezone")
	}
}
