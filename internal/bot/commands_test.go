package bot

import (
	"context"
	"strconv"
	"strings"
	"testing"

	"daddygpt/internal/domain"
	"daddygpt/internal/feature"
)

func TestParseCommand(t *testing.T) {
	b, _, _, _ := newTestBot(t)

	cases := []struct {
		in   string
		cmd  string
		args string
	}{
		{"/help", "help", ""},
		{"/HELP", "help", ""},
		{"/ban 123 spamming links", "ban", "123 spamming links"},
		{"/help@DaddyGPTBot", "help", ""},
		{"/help@daddygptbot extra", "help", "extra"},
		{"/help@SomeOtherBot", "", ""},
	}
	for _, tc := range cases {
		cmd, args := b.parseCommand(tc.in)
		if cmd != tc.cmd || args != tc.args {
			t.Fatalf("parseCommand(%q) = (%q, %q), want (%q, %q)", tc.in, cmd, args, tc.cmd, tc.args)
		}
	}
}

func TestHelpAvailableToEveryone(t *testing.T) {
	b, tg, _, _ := newTestBot(t)
	ctx := context.Background()

	if out := b.dispatch(ctx, privateMsg(1, "alice", "/help")); out != outcomeCommand {
		t.Fatalf("outcome = %s", out)
	}
	got := tg.lastText(t)
	if !strings.Contains(got, "daddygpt") || !strings.Contains(got, "@DaddyGPTBot") {
		t.Fatalf("help text = %q", got)
	}
}

func TestAdminCommandsDeniedForUsers(t *testing.T) {
	b, tg, _, _ := newTestBot(t)
	ctx := context.Background()

	for _, cmd := range []string{"/stats", "/commands", "/admins_list", "/ban 5", "/export_db", "/prompts_list"} {
		b.dispatch(ctx, privateMsg(1, "alice", cmd))
		if got := tg.lastText(t); got != "Admin only." {
			t.Fatalf("%s reply = %q", cmd, got)
		}
	}
}

func TestBotToggle(t *testing.T) {
	b, tg, _, st := newTestBot(t)
	ctx := context.Background()
	if err := st.AddAdmin(7); err != nil {
		t.Fatalf("AddAdmin: %v", err)
	}

	b.dispatch(ctx, privateMsg(7, "boss", "/bot_disable"))
	if got := tg.lastText(t); got != "Bot enabled: false" {
		t.Fatalf("reply = %q", got)
	}
	if st.BotEnabled() {
		t.Fatalf("bot still enabled")
	}

	b.dispatch(ctx, privateMsg(7, "boss", "/bot_enable"))
	if !st.BotEnabled() {
		t.Fatalf("bot not re-enabled")
	}
}

func TestAdminAddByIDAndPendingByUsername(t *testing.T) {
	b, tg, _, st := newTestBot(t)
	ctx := context.Background()
	if err := st.AddAdmin(7); err != nil {
		t.Fatalf("AddAdmin: %v", err)
	}

	b.dispatch(ctx, privateMsg(7, "boss", "/admin_add 123"))
	if admin, _ := st.IsAdmin(123); !admin {
		t.Fatalf("id grant not applied")
	}

	b.dispatch(ctx, privateMsg(7, "boss", "/admin_add @newmod"))
	if got := tg.lastText(t); !strings.Contains(got, "pending admin") {
		t.Fatalf("reply = %q", got)
	}
	// The pending grant applies when that username shows up.
	b.dispatch(ctx, privateMsg(555, "newmod", "hello"))
	if admin, _ := st.IsAdmin(555); !admin {
		t.Fatalf("pending grant not applied on first contact")
	}

	b.dispatch(ctx, privateMsg(7, "boss", "/admin_remove 123"))
	if admin, _ := st.IsAdmin(123); admin {
		t.Fatalf("admin not removed")
	}
}

func TestBanLifecycle(t *testing.T) {
	b, tg, _, st := newTestBot(t)
	ctx := context.Background()
	if err := st.AddAdmin(7); err != nil {
		t.Fatalf("AddAdmin: %v", err)
	}

	b.dispatch(ctx, privateMsg(7, "boss", "/ban 50 posting spam"))
	ban, err := st.GetBan(50)
	if err != nil || ban == nil || ban.Reason != "posting spam" {
		t.Fatalf("ban = %+v, %v", ban, err)
	}

	b.dispatch(ctx, privateMsg(7, "boss", "/ban_info 50"))
	if got := tg.lastText(t); !strings.Contains(got, "posting spam") {
		t.Fatalf("ban_info = %q", got)
	}

	b.dispatch(ctx, privateMsg(7, "boss", "/bans_list"))
	if got := tg.lastText(t); !strings.HasPrefix(got, "Bans:") {
		t.Fatalf("bans_list = %q", got)
	}

	b.dispatch(ctx, privateMsg(7, "boss", "/unban 50"))
	if banned, _ := st.IsBanned(50, ""); banned {
		t.Fatalf("unban not applied")
	}
}

func TestPromptLifecycle(t *testing.T) {
	b, tg, _, st := newTestBot(t)
	ctx := context.Background()
	if err := st.AddAdmin(7); err != nil {
		t.Fatalf("AddAdmin: %v", err)
	}

	b.dispatch(ctx, privateMsg(7, "boss", "/prompt_add Always answer briefly."))
	prompts, err := st.EnabledPrompts()
	if err != nil || len(prompts) != 1 {
		t.Fatalf("prompts = %v, %v", prompts, err)
	}

	rows, err := st.ListPrompts()
	if err != nil || len(rows) != 1 {
		t.Fatalf("ListPrompts: %v, %v", rows, err)
	}
	id := rows[0].ID

	b.dispatch(ctx, privateMsg(7, "boss", "/prompt_disable "+strconv.FormatInt(id, 10)))
	if prompts, _ := st.EnabledPrompts(); len(prompts) != 0 {
		t.Fatalf("prompt still enabled")
	}

	b.dispatch(ctx, privateMsg(7, "boss", "/prompts_clear"))
	if got := tg.lastText(t); got != "All prompts cleared." {
		t.Fatalf("reply = %q", got)
	}
}


func TestPersonaTriggerBotname(t *testing.T) {
	b, tg, _, st := newTestBot(t)
	ctx := context.Background()
	if err := st.AddAdmin(7); err != nil {
		t.Fatalf("AddAdmin: %v", err)
	}

	b.dispatch(ctx, privateMsg(7, "boss", "/persona_set Friendly pirate."))
	if v := st.SettingOr("persona", ""); v != "Friendly pirate." {
		t.Fatalf("persona = %q", v)
	}

	b.dispatch(ctx, privateMsg(7, "boss", "/trigger_set jarvis"))
	b.dispatch(ctx, privateMsg(7, "boss", "/trigger_show"))
	if got := tg.lastText(t); got != "jarvis" {
		t.Fatalf("trigger_show = %q", got)
	}

	b.dispatch(ctx, privateMsg(7, "boss", "/botname_set Jarvis"))
	if v := st.SettingOr("bot_display_name", ""); v != "Jarvis" {
		t.Fatalf("bot_display_name = %q", v)
	}
}

func TestUserInspection(t *testing.T) {
	b, tg, _, st := newTestBot(t)
	ctx := context.Background()
	if err := st.AddAdmin(7); err != nil {
		t.Fatalf("AddAdmin: %v", err)
	}

	// Seed a tracked user via a plain message.
	b.dispatch(ctx, privateMsg(42, "walter", "hi"))

	b.dispatch(ctx, privateMsg(7, "boss", "/users walter"))
	if got := tg.lastText(t); !strings.Contains(got, "42") {
		t.Fatalf("users = %q", got)
	}

	b.dispatch(ctx, privateMsg(7, "boss", "/user @walter"))
	if got := tg.lastText(t); !strings.Contains(got, "User 42") {
		t.Fatalf("user = %q", got)
	}

	b.dispatch(ctx, privateMsg(7, "boss", "/stats"))
	if got := tg.lastText(t); !strings.Contains(got, "- users:") {
		t.Fatalf("stats = %q", got)
	}
}

func TestChatExportSendsDocument(t *testing.T) {
	b, tg, _, st := newTestBot(t)
	ctx := context.Background()
	if err := st.AddAdmin(7); err != nil {
		t.Fatalf("AddAdmin: %v", err)
	}
	b.dispatch(ctx, privateMsg(42, "walter", "something memorable"))

	b.dispatch(ctx, privateMsg(7, "boss", "/chat 42"))
	if len(tg.documents) != 1 {
		t.Fatalf("expected 1 document, got %d", len(tg.documents))
	}

	b.dispatch(ctx, privateMsg(7, "boss", "/chat_search 42 memorable"))
	if len(tg.documents) != 2 {
		t.Fatalf("expected search transcript, got %d documents", len(tg.documents))
	}
}

func TestExportDBSendsWorkbook(t *testing.T) {
	b, tg, _, st := newTestBot(t)
	ctx := context.Background()
	if err := st.AddAdmin(7); err != nil {
		t.Fatalf("AddAdmin: %v", err)
	}

	b.dispatch(ctx, privateMsg(7, "boss", "/export_db"))
	if len(tg.documents) != 1 || !strings.HasSuffix(tg.documents[0], ".xlsx") {
		t.Fatalf("documents = %v", tg.documents)
	}
}

func TestFeatureCommandGating(t *testing.T) {
	b, tg, _, st := newTestBot(t)
	ctx := context.Background()

	stub := stubFeature{}
	b.registry.Register(stub)
	if err := b.registry.Sync(); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	b.dispatch(ctx, privateMsg(1, "alice", "/echo hello"))
	if got := tg.lastText(t); got != "echo: hello" {
		t.Fatalf("feature reply = %q", got)
	}

	if err := st.SetFeatureEnabled("echo", false); err != nil {
		t.Fatalf("SetFeatureEnabled: %v", err)
	}
	b.dispatch(ctx, privateMsg(1, "alice", "/echo hello"))
	if got := tg.lastText(t); got != "This feature is currently disabled." {
		t.Fatalf("disabled reply = %q", got)
	}

	if err := st.SetFeatureEnabled("echo", true); err != nil {
		t.Fatalf("SetFeatureEnabled: %v", err)
	}
	if err := st.SetFeaturesGlobalEnabled(false); err != nil {
		t.Fatalf("SetFeaturesGlobalEnabled: %v", err)
	}
	b.dispatch(ctx, privateMsg(1, "alice", "/echo hello"))
	if got := tg.lastText(t); got != "All features are currently disabled by admin." {
		t.Fatalf("global-off reply = %q", got)
	}
}

func TestFeatureCommandsIgnoredForBannedUsers(t *testing.T) {
	b, tg, _, st := newTestBot(t)
	ctx := context.Background()
	b.registry.Register(stubFeature{})
	if err := b.registry.Sync(); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if err := st.BanID(5, "mallory", "spam"); err != nil {
		t.Fatalf("BanID: %v", err)
	}

	b.dispatch(ctx, privateMsg(5, "mallory", "/echo sneak"))
	if msgs := tg.sent(); len(msgs) != 0 {
		t.Fatalf("banned user got a reply: %v", msgs)
	}
}

type stubFeature struct{}

func (stubFeature) Descriptor() feature.Descriptor {
	return feature.Descriptor{
		Name:        "echo",
		Scope:       domain.ScopeUser,
		Description: "echoes its arguments",
		Commands:    []string{"echo"},
	}
}

func (stubFeature) Handle(ctx context.Context, req feature.Request, out feature.Responder) error {
	return out.Reply(ctx, "echo: "+req.Args)
}

func TestFeaturesListing(t *testing.T) {
	b, tg, _, st := newTestBot(t)
	ctx := context.Background()
	b.registry.Register(stubFeature{})
	if err := b.registry.Sync(); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	// Normal user sees the enabled user features.
	b.dispatch(ctx, privateMsg(1, "alice", "/features"))
	if got := tg.lastText(t); !strings.Contains(got, "echo") || strings.Contains(got, "global_enabled") {
		t.Fatalf("user listing = %q", got)
	}

	// Admin sees status and the global switch.
	if err := st.AddAdmin(7); err != nil {
		t.Fatalf("AddAdmin: %v", err)
	}
	b.dispatch(ctx, privateMsg(7, "boss", "/features"))
	if got := tg.lastText(t); !strings.Contains(got, "global_enabled=true") || !strings.Contains(got, "ENABLED") {
		t.Fatalf("admin listing = %q", got)
	}
}
