package bot

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"gorm.io/gorm"

	"daddygpt/internal/config"
	"daddygpt/internal/domain"
	"daddygpt/internal/feature"
	"daddygpt/internal/ollama"
	"daddygpt/internal/policy"
	"daddygpt/internal/store"
	"daddygpt/internal/telegram"
)

type sentMessage struct {
	ChatID  int64
	Text    string
	ReplyTo int64
}

type fakeTransport struct {
	mu        sync.Mutex
	messages  []sentMessage
	documents []string
	nextID    int64
}

func (f *fakeTransport) GetMe(context.Context) (*telegram.User, error) {
	return &telegram.User{ID: 99, IsBot: true, Username: "DaddyGPTBot"}, nil
}

func (f *fakeTransport) GetUpdates(context.Context, int64, time.Duration) ([]telegram.Update, int64, error) {
	return nil, 0, nil
}

func (f *fakeTransport) SendMessage(_ context.Context, chatID int64, text string, replyTo int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.messages = append(f.messages, sentMessage{ChatID: chatID, Text: text, ReplyTo: replyTo})
	return f.nextID, nil
}

func (f *fakeTransport) SendChatAction(context.Context, int64, string) error { return nil }

func (f *fakeTransport) SendDocument(_ context.Context, _ int64, path, _ string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.documents = append(f.documents, path)
	return 1, nil
}

func (f *fakeTransport) SendAudio(context.Context, int64, string, string) (int64, error) {
	return 1, nil
}

func (f *fakeTransport) SendVideo(context.Context, int64, string, string) (int64, error) {
	return 1, nil
}

func (f *fakeTransport) GetFile(context.Context, string) (*telegram.File, error) {
	return &telegram.File{FilePath: "documents/x"}, nil
}

func (f *fakeTransport) DownloadFileTo(context.Context, string, string, int64) (int64, error) {
	return 0, nil
}

func (f *fakeTransport) sent() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]sentMessage, len(f.messages))
	copy(out, f.messages)
	return out
}

func (f *fakeTransport) lastText(t *testing.T) string {
	t.Helper()
	msgs := f.sent()
	if len(msgs) == 0 {
		t.Fatalf("no messages sent")
	}
	return msgs[len(msgs)-1].Text
}

type fakeLLM struct {
	reply string
	got   []ollama.Message
}

func (f *fakeLLM) Chat(_ context.Context, messages []ollama.Message) (string, error) {
	f.got = messages
	return f.reply, nil
}

func (f *fakeLLM) Model() string { return "gemma3:1b" }

func newTestBot(t *testing.T) (*Bot, *fakeTransport, *fakeLLM, *store.Store) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	cfg.Cooldown = 0 // tests manage their own cooldown expectations
	cfg.Backup.Dir = t.TempDir()

	tg := &fakeTransport{}
	llm := &fakeLLM{reply: "hello from the model"}
	b := New(cfg, st, tg, llm, feature.NewRegistry(st))
	b.me = telegram.User{ID: 99, IsBot: true, Username: "DaddyGPTBot"}
	return b, tg, llm, st
}

func privateMsg(userID int64, username, text string) *telegram.Message {
	return &telegram.Message{
		MessageID: 1,
		Chat:      &telegram.Chat{ID: userID, Type: domain.ChatTypePrivate},
		From:      &telegram.User{ID: userID, Username: username, FirstName: "U"},
		Text:      text,
	}
}

func groupMsg(userID int64, text string) *telegram.Message {
	return &telegram.Message{
		MessageID: 2,
		Chat:      &telegram.Chat{ID: -500, Type: domain.ChatTypeGroup},
		From:      &telegram.User{ID: userID, Username: "member", FirstName: "M"},
		Text:      text,
	}
}

func TestPrivateMessageGetsReplyAndIsLogged(t *testing.T) {
	b, tg, llm, st := newTestBot(t)
	ctx := context.Background()

	out := b.dispatch(ctx, privateMsg(1, "alice", "hi there"))
	if out != outcomeHandled {
		t.Fatalf("outcome = %s", out)
	}
	if got := tg.lastText(t); got != "hello from the model" {
		t.Fatalf("reply = %q", got)
	}

	// Both sides logged under the requesting user.
	dialog, err := st.RecentDialog(1, 1, 20)
	if err != nil {
		t.Fatalf("RecentDialog: %v", err)
	}
	if len(dialog) != 2 || dialog[0].Role != domain.RoleUser || dialog[1].Role != domain.RoleAssistant {
		t.Fatalf("dialog = %+v", dialog)
	}

	// The model saw a system message first, then the logged user turn.
	if len(llm.got) < 2 || llm.got[0].Role != domain.RoleSystem {
		t.Fatalf("model context = %+v", llm.got)
	}
	if llm.got[len(llm.got)-1].Content != "hi there" {
		t.Fatalf("last turn = %+v", llm.got[len(llm.got)-1])
	}
}

func TestBannedUserSilentlyIgnored(t *testing.T) {
	b, tg, _, st := newTestBot(t)
	ctx := context.Background()

	if err := st.BanID(5, "troll", "spam"); err != nil {
		t.Fatalf("BanID: %v", err)
	}
	out := b.dispatch(ctx, privateMsg(5, "troll", "let me in"))
	if out != outcomeBanned {
		t.Fatalf("outcome = %s", out)
	}
	if len(tg.sent()) != 0 {
		t.Fatalf("banned user must get no reply, got %v", tg.sent())
	}
}

func TestDisabledBotAdminBypass(t *testing.T) {
	b, tg, _, st := newTestBot(t)
	ctx := context.Background()

	if err := st.SetSetting("bot_enabled", "0"); err != nil {
		t.Fatalf("SetSetting: %v", err)
	}
	if out := b.dispatch(ctx, privateMsg(1, "alice", "hello?")); out != outcomeDisabled {
		t.Fatalf("outcome = %s", out)
	}
	if len(tg.sent()) != 0 {
		t.Fatalf("disabled bot must stay silent for users")
	}

	if err := st.AddAdmin(7); err != nil {
		t.Fatalf("AddAdmin: %v", err)
	}
	if out := b.dispatch(ctx, privateMsg(7, "boss", "still alive?")); out != outcomeHandled {
		t.Fatalf("admin outcome = %s", out)
	}
}

func TestGroupAddressing(t *testing.T) {
	b, tg, llm, _ := newTestBot(t)
	ctx := context.Background()

	if out := b.dispatch(ctx, groupMsg(3, "just chatting with friends")); out != outcomeUnaddressed {
		t.Fatalf("outcome = %s", out)
	}
	if len(tg.sent()) != 0 {
		t.Fatalf("unaddressed group message must be ignored")
	}

	if out := b.dispatch(ctx, groupMsg(3, "daddygpt: what's up?")); out != outcomeHandled {
		t.Fatalf("outcome = %s", out)
	}
	// The trigger prefix is stripped before logging and inference.
	if llm.got[len(llm.got)-1].Content != "what's up?" {
		t.Fatalf("cleaned text = %q", llm.got[len(llm.got)-1].Content)
	}
}

func TestGroupReplyToBotIsAddressed(t *testing.T) {
	b, _, _, _ := newTestBot(t)
	ctx := context.Background()

	msg := groupMsg(3, "tell me more")
	msg.ReplyTo = &telegram.Message{MessageID: 42, From: &telegram.User{ID: 99, IsBot: true}}
	if out := b.dispatch(ctx, msg); out != outcomeHandled {
		t.Fatalf("outcome = %s", out)
	}
}

func TestTriggerChangeTakesEffect(t *testing.T) {
	b, _, _, st := newTestBot(t)
	ctx := context.Background()

	if err := st.SetSetting("trigger_name", "jarvis"); err != nil {
		t.Fatalf("SetSetting: %v", err)
	}
	if out := b.dispatch(ctx, groupMsg(3, "daddygpt hello")); out != outcomeUnaddressed {
		t.Fatalf("old trigger must stop matching, outcome = %s", out)
	}
	if out := b.dispatch(ctx, groupMsg(3, "jarvis hello")); out != outcomeHandled {
		t.Fatalf("new trigger must match, outcome = %s", out)
	}
}

func TestCooldownDropsRapidMessages(t *testing.T) {
	b, _, _, st := newTestBot(t)
	b.gate = policy.NewGate(st, policy.NewCooldown(time.Hour))
	ctx := context.Background()

	if out := b.dispatch(ctx, privateMsg(1, "alice", "one")); out != outcomeHandled {
		t.Fatalf("first outcome = %s", out)
	}
	if out := b.dispatch(ctx, privateMsg(1, "alice", "two")); out != outcomeLimited {
		t.Fatalf("second outcome = %s", out)
	}
}

func TestPendingBanAppliesOnFirstContact(t *testing.T) {
	b, tg, _, st := newTestBot(t)
	ctx := context.Background()

	if err := st.BanPending("lurker", "spam"); err != nil {
		t.Fatalf("BanPending: %v", err)
	}
	out := b.dispatch(ctx, privateMsg(42, "lurker", "first message"))
	if out != outcomeBanned {
		t.Fatalf("outcome = %s", out)
	}
	if len(tg.sent()) != 0 {
		t.Fatalf("pending ban must apply before any reply")
	}
	ban, err := st.GetBan(42)
	if err != nil || ban == nil || ban.Reason != "spam" {
		t.Fatalf("ban = %+v, %v", ban, err)
	}
}

func TestEmptyModelReplyPlaceholder(t *testing.T) {
	b, tg, llm, _ := newTestBot(t)
	llm.reply = "   "
	ctx := context.Background()

	if out := b.dispatch(ctx, privateMsg(1, "alice", "hi")); out != outcomeHandled {
		t.Fatalf("outcome = %s", out)
	}
	if got := tg.lastText(t); got != "…" {
		t.Fatalf("reply = %q, want placeholder", got)
	}
}

func TestLongReplyIsChunked(t *testing.T) {
	b, tg, llm, _ := newTestBot(t)
	b.cfg.ChunkLen = 50
	llm.reply = strings.Repeat("line one\n", 20)
	ctx := context.Background()

	if out := b.dispatch(ctx, privateMsg(1, "alice", "talk a lot")); out != outcomeHandled {
		t.Fatalf("outcome = %s", out)
	}
	msgs := tg.sent()
	if len(msgs) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(msgs))
	}
	// Only the first chunk replies to the incoming message.
	if msgs[0].ReplyTo == 0 {
		t.Fatalf("first chunk must be a reply")
	}
	for _, m := range msgs[1:] {
		if m.ReplyTo != 0 {
			t.Fatalf("later chunks must not be replies: %+v", m)
		}
	}
}

func TestMessageLogFailureStopsUpdate(t *testing.T) {
	b, tg, llm, st := newTestBot(t)
	ctx := context.Background()

	if err := st.View(func(db *gorm.DB) error { return db.Exec("DROP TABLE messages").Error }); err != nil {
		t.Fatalf("drop table: %v", err)
	}

	if out := b.dispatch(ctx, privateMsg(1, "alice", "hi")); out != outcomeError {
		t.Fatalf("outcome = %s, want %s", out, outcomeError)
	}
	if llm.got != nil {
		t.Fatalf("inference ran after a failed message log")
	}
	if msgs := tg.sent(); len(msgs) != 0 {
		t.Fatalf("reply sent after a failed message log: %v", msgs)
	}
}

func TestUserUpsertFailureStopsUpdate(t *testing.T) {
	b, tg, llm, st := newTestBot(t)
	ctx := context.Background()

	if err := st.View(func(db *gorm.DB) error { return db.Exec("DROP TABLE users").Error }); err != nil {
		t.Fatalf("drop table: %v", err)
	}

	if out := b.dispatch(ctx, privateMsg(1, "alice", "hi")); out != outcomeError {
		t.Fatalf("outcome = %s, want %s", out, outcomeError)
	}
	if llm.got != nil || len(tg.sent()) != 0 {
		t.Fatalf("pipeline continued after a failed upsert")
	}
}
