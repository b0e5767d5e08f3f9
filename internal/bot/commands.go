package bot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"daddygpt/internal/backup"
	"daddygpt/internal/domain"
	"daddygpt/internal/feature"
	"daddygpt/internal/metrics"
	"daddygpt/internal/telegram"
	"daddygpt/internal/utils"
)

// maxCommandReply keeps command output inside a single transport message.
const maxCommandReply = 3800

// importMaxBytes caps admin xlsx uploads.
const importMaxBytes = 25 * 1024 * 1024

func userHelpText(triggerName, botUsername string) string {
	return "Help / المساعدة\n\n" +
		"Private chat: just send a message.\n" +
		"المحادثة الخاصة: أرسل رسالتك مباشرة.\n\n" +
		"Groups: talk to me by one of these:\n" +
		fmt.Sprintf("• `%s مرحبا` or `%s hello`\n", triggerName, triggerName) +
		fmt.Sprintf("• `@%s hello`\n", botUsername) +
		"• Reply to one of my messages\n\n" +
		"Commands:\n" +
		"/help – this message\n" +
		"/features – list enabled features\n"
}

func adminCommandsText() string {
	return "Admin commands:\n" +
		"/commands\n" +
		"/bot_enable | /bot_disable\n" +
		"/backup_enable | /backup_disable\n" +
		"/reload\n" +
		"\nFeatures:\n" +
		"/features\n" +
		"/enabled_features | /disabled_features\n" +
		"/feature_enable <name> | /feature_disable <name>\n" +
		"/features_enable_all | /features_disable_all\n" +
		"\nModeration / data:\n" +
		"/admins_list\n" +
		"/admin_add <id|@username>\n" +
		"/admin_remove <id>\n" +
		"/ban <id|@username> [reason]\n" +
		"/unban <id|@username>\n" +
		"/bans_list\n" +
		"/ban_info <id|@username>\n" +
		"/prompts_list\n" +
		"/prompt_add <text>\n" +
		"/prompt_set <id> <text>\n" +
		"/prompt_enable <id> | /prompt_disable <id>\n" +
		"/prompt_del <id> | /prompts_clear\n" +
		"/persona_set <text> | /persona_show\n" +
		"/trigger_set <word> | /trigger_show\n" +
		"/botname_set <name> | /botname_show\n" +
		"/users <query>\n" +
		"/user <id|@username>\n" +
		"/chat <id|@username> [limit]\n" +
		"/chat_search <id|@username> <query> [limit]\n" +
		"/stats\n" +
		"/export_db\n" +
		"Send .xlsx with caption: /import_db\n"
}

// parseCommand splits "/cmd@BotName rest of args" into the command (lower,
// no slash) and the raw args. A mention of a different bot yields "".
func (b *Bot) parseCommand(text string) (string, string) {
	rest := ""
	head := text
	if i := strings.IndexAny(text, " \t\n"); i >= 0 {
		head, rest = text[:i], strings.TrimSpace(text[i+1:])
	}
	head = strings.TrimPrefix(head, "/")
	if i := strings.IndexByte(head, '@'); i >= 0 {
		mention := head[i+1:]
		head = head[:i]
		if !strings.EqualFold(mention, b.me.Username) {
			return "", ""
		}
	}
	return strings.ToLower(head), rest
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// resolveIDOrUsername turns "12345" or "@name" into a user id, or 0.
func (b *Bot) resolveIDOrUsername(token string) int64 {
	token = strings.TrimSpace(token)
	if token == "" {
		return 0
	}
	if id, err := strconv.ParseInt(token, 10, 64); err == nil && id > 0 {
		return id
	}
	if strings.HasPrefix(token, "@") {
		id, err := b.store.UserIDByUsername(token)
		if err != nil {
			log.Error().Err(err).Msg("username lookup failed")
			return 0
		}
		return id
	}
	return 0
}

// requireAdmin replies "Admin only." and returns false for non-admins.
func (b *Bot) requireAdmin(ctx context.Context, msg *telegram.Message) bool {
	admin, err := b.store.IsAdmin(msg.From.ID)
	if err != nil {
		log.Error().Err(err).Msg("admin check failed")
		return false
	}
	if !admin {
		b.reply(ctx, msg, "Admin only.")
		return false
	}
	return true
}

func (b *Bot) handleCommand(ctx context.Context, msg *telegram.Message, text string) {
	cmd, args := b.parseCommand(text)
	if cmd == "" {
		return
	}
	metrics.CommandsTotal.WithLabelValues(cmd).Inc()

	switch cmd {
	case "start", "help":
		trig := b.store.SettingOr("trigger_name", "daddygpt")
		b.reply(ctx, msg, userHelpText(trig, b.me.Username))

	case "commands":
		if b.requireAdmin(ctx, msg) {
			b.reply(ctx, msg, adminCommandsText())
		}

	case "reload":
		b.cmdReload(ctx, msg)

	case "bot_enable", "bot_disable":
		if !b.requireAdmin(ctx, msg) {
			return
		}
		enabled := cmd == "bot_enable"
		b.setBoolSetting(ctx, msg, "bot_enabled", enabled, fmt.Sprintf("Bot enabled: %v", enabled))

	case "backup_enable", "backup_disable":
		if !b.requireAdmin(ctx, msg) {
			return
		}
		enabled := cmd == "backup_enable"
		b.setBoolSetting(ctx, msg, "backup_enabled", enabled, fmt.Sprintf("Daily 2AM backup enabled: %v", enabled))

	case "features":
		b.cmdFeatures(ctx, msg)

	case "enabled_features":
		b.cmdFeaturesByEnabled(ctx, msg, true)

	case "disabled_features":
		b.cmdFeaturesByEnabled(ctx, msg, false)

	case "feature_enable", "feature_disable":
		b.cmdFeatureToggle(ctx, msg, args, cmd == "feature_enable")

	case "features_enable_all", "features_disable_all":
		if !b.requireAdmin(ctx, msg) {
			return
		}
		enabled := cmd == "features_enable_all"
		if err := b.store.SetFeaturesGlobalEnabled(enabled); err != nil {
			b.replyError(ctx, msg, err)
			return
		}
		b.reply(ctx, msg, fmt.Sprintf("All features enabled: %v", enabled))

	case "admins_list":
		b.cmdAdminsList(ctx, msg)

	case "admin_add":
		b.cmdAdminAdd(ctx, msg, args)

	case "admin_remove":
		b.cmdAdminRemove(ctx, msg, args)

	case "ban":
		b.cmdBan(ctx, msg, args)

	case "unban":
		b.cmdUnban(ctx, msg, args)

	case "bans_list":
		b.cmdBansList(ctx, msg)

	case "ban_info":
		b.cmdBanInfo(ctx, msg, args)

	case "prompts_list":
		b.cmdPromptsList(ctx, msg)

	case "prompt_add":
		b.cmdPromptAdd(ctx, msg, args)

	case "prompt_set":
		b.cmdPromptSet(ctx, msg, args)

	case "prompt_enable", "prompt_disable":
		b.cmdPromptToggle(ctx, msg, args, cmd == "prompt_enable")

	case "prompt_del":
		b.cmdPromptDel(ctx, msg, args)

	case "prompts_clear":
		if !b.requireAdmin(ctx, msg) {
			return
		}
		if err := b.store.ClearPrompts(); err != nil {
			b.replyError(ctx, msg, err)
			return
		}
		b.reply(ctx, msg, "All prompts cleared.")

	case "persona_show":
		if b.requireAdmin(ctx, msg) {
			b.reply(ctx, msg, b.store.SettingOr("persona", ""))
		}
	case "persona_set":
		b.cmdSetSetting(ctx, msg, "persona", args, "Usage: /persona_set <text>", "Persona updated.")

	case "trigger_show":
		if b.requireAdmin(ctx, msg) {
			b.reply(ctx, msg, b.store.SettingOr("trigger_name", "daddygpt"))
		}
	case "trigger_set":
		b.cmdSetSetting(ctx, msg, "trigger_name", args, "Usage: /trigger_set <word>", "Trigger updated.")

	case "botname_show":
		if b.requireAdmin(ctx, msg) {
			b.reply(ctx, msg, b.store.SettingOr("bot_display_name", ""))
		}
	case "botname_set":
		b.cmdSetSetting(ctx, msg, "bot_display_name", args, "Usage: /botname_set <name>", "Bot display name updated.")

	case "users":
		b.cmdUsers(ctx, msg, args)

	case "user":
		b.cmdUser(ctx, msg, args)

	case "chat":
		b.cmdChat(ctx, msg, args)

	case "chat_search":
		b.cmdChatSearch(ctx, msg, args)

	case "stats":
		b.cmdStats(ctx, msg)

	case "export_db":
		b.cmdExportDB(ctx, msg)

	case "import_db":
		if b.requireAdmin(ctx, msg) {
			b.reply(ctx, msg, "Send a .xlsx document with the caption /import_db to import.")
		}

	default:
		if f := b.registry.ByCommand(cmd); f != nil {
			b.invokeFeature(ctx, msg, f, cmd, args)
		}
	}
}

func (b *Bot) replyError(ctx context.Context, msg *telegram.Message, err error) {
	log.Error().Err(err).Msg("command failed")
	b.reply(ctx, msg, "Error: "+err.Error())
}

func (b *Bot) setBoolSetting(ctx context.Context, msg *telegram.Message, key string, enabled bool, confirmation string) {
	value := "0"
	if enabled {
		value = "1"
	}
	if err := b.store.SetSetting(key, value); err != nil {
		b.replyError(ctx, msg, err)
		return
	}
	b.reply(ctx, msg, confirmation)
}

func (b *Bot) cmdSetSetting(ctx context.Context, msg *telegram.Message, key, args, usage, confirmation string) {
	if !b.requireAdmin(ctx, msg) {
		return
	}
	value := strings.TrimSpace(args)
	if value == "" {
		b.reply(ctx, msg, usage)
		return
	}
	if err := b.store.SetSetting(key, value); err != nil {
		b.replyError(ctx, msg, err)
		return
	}
	b.reply(ctx, msg, confirmation)
}

// cmdReload re-syncs the feature registry and reports its state. Features
// are compiled in, so this refreshes database rows and surfaces load
// errors without restarting the process.
func (b *Bot) cmdReload(ctx context.Context, msg *telegram.Message) {
	if !b.requireAdmin(ctx, msg) {
		return
	}
	if err := b.registry.Sync(); err != nil {
		b.replyError(ctx, msg, err)
		return
	}
	n := len(b.registry.Features())
	if errs := b.registry.LoadErrors(); len(errs) > 0 {
		b.reply(ctx, msg, fmt.Sprintf("Reloaded %d feature(s), %d failed:\n%s", n, len(errs), strings.Join(errs, "\n")))
		return
	}
	b.reply(ctx, msg, fmt.Sprintf("Reloaded %d feature(s).", n))
}

// ---- feature listing and toggles ----

func formatFeatureRow(f domain.Feature) string {
	cmdShow := ""
	if first := strings.TrimSpace(strings.SplitN(f.Commands, ",", 2)[0]); first != "" {
		cmdShow = " /" + first
	}
	status := "disabled"
	if f.Enabled {
		status = "ENABLED"
	}
	var tail []string
	if f.Scope != "" {
		tail = append(tail, f.Scope)
	}
	if desc := strings.TrimSpace(f.Description); desc != "" {
		tail = append(tail, desc)
	}
	return strings.TrimSpace(fmt.Sprintf("• %s%s — %s (%s)", f.Name, cmdShow, status, strings.Join(tail, "; ")))
}

func (b *Bot) cmdFeatures(ctx context.Context, msg *telegram.Message) {
	admin, err := b.store.IsAdmin(msg.From.ID)
	if err != nil {
		log.Error().Err(err).Msg("admin check failed")
		return
	}

	if admin {
		rows, err := b.store.ListFeatures()
		if err != nil {
			b.replyError(ctx, msg, err)
			return
		}
		if len(rows) == 0 {
			b.reply(ctx, msg, "No features registered.")
			return
		}
		lines := []string{fmt.Sprintf("Features (global_enabled=%v):", b.store.FeaturesGlobalEnabled()), ""}
		if errs := b.registry.LoadErrors(); len(errs) > 0 {
			lines = append(lines, "Load errors:")
			for _, e := range errs {
				lines = append(lines, "• "+e)
			}
			lines = append(lines, "")
		}
		for _, f := range rows {
			lines = append(lines, formatFeatureRow(f))
		}
		b.reply(ctx, msg, truncate(strings.Join(lines, "\n"), maxCommandReply))
		return
	}

	if !b.store.FeaturesGlobalEnabled() {
		b.reply(ctx, msg, "All features are currently disabled by admin.")
		return
	}
	rows, err := b.store.ListFeatures()
	if err != nil {
		b.replyError(ctx, msg, err)
		return
	}
	lines := []string{"Enabled features:", ""}
	n := 0
	for _, f := range rows {
		if f.Scope != domain.ScopeUser || !f.Enabled {
			continue
		}
		n++
		cmdShow := ""
		if first := strings.TrimSpace(strings.SplitN(f.Commands, ",", 2)[0]); first != "" {
			cmdShow = "/" + first
		}
		if desc := strings.TrimSpace(f.Description); desc != "" {
			lines = append(lines, fmt.Sprintf("• %s (%s) — %s", f.Name, cmdShow, desc))
		} else {
			lines = append(lines, fmt.Sprintf("• %s (%s)", f.Name, cmdShow))
		}
	}
	if n == 0 {
		b.reply(ctx, msg, "No enabled features.")
		return
	}
	b.reply(ctx, msg, truncate(strings.Join(lines, "\n"), maxCommandReply))
}

func (b *Bot) cmdFeaturesByEnabled(ctx context.Context, msg *telegram.Message, enabled bool) {
	if !b.requireAdmin(ctx, msg) {
		return
	}
	rows, err := b.store.ListFeaturesByEnabled(enabled)
	if err != nil {
		b.replyError(ctx, msg, err)
		return
	}
	header := "Enabled features:"
	empty := "No enabled features."
	if !enabled {
		header = "Disabled features:"
		empty = "No disabled features."
	}
	if len(rows) == 0 {
		b.reply(ctx, msg, empty)
		return
	}
	lines := make([]string, 0, len(rows))
	for _, f := range rows {
		lines = append(lines, formatFeatureRow(f))
	}
	b.reply(ctx, msg, truncate(header+"\n\n"+strings.Join(lines, "\n"), maxCommandReply))
}

func (b *Bot) cmdFeatureToggle(ctx context.Context, msg *telegram.Message, args string, enabled bool) {
	if !b.requireAdmin(ctx, msg) {
		return
	}
	name := strings.ToLower(strings.TrimSpace(args))
	if name == "" {
		b.reply(ctx, msg, "Usage: /feature_enable <name> OR /feature_disable <name>")
		return
	}
	row, err := b.store.GetFeature(name)
	if err != nil {
		b.replyError(ctx, msg, err)
		return
	}
	if row == nil {
		b.reply(ctx, msg, "Unknown feature: "+name)
		return
	}
	if err := b.store.SetFeatureEnabled(name, enabled); err != nil {
		b.replyError(ctx, msg, err)
		return
	}
	b.reply(ctx, msg, fmt.Sprintf("Feature '%s' enabled=%v", name, enabled))
}

// invokeFeature gates and runs a registered feature command.
func (b *Bot) invokeFeature(ctx context.Context, msg *telegram.Message, f feature.Feature, cmd, args string) {
	admin, err := b.store.IsAdmin(msg.From.ID)
	if err != nil {
		log.Error().Err(err).Msg("admin check failed")
		return
	}
	if !admin {
		banned, err := b.store.IsBanned(msg.From.ID, msg.From.Username)
		if err != nil {
			log.Error().Err(err).Msg("ban check failed")
			return
		}
		if banned {
			return
		}
		if !b.store.BotEnabled() {
			b.reply(ctx, msg, "Bot is currently disabled by admin.")
			return
		}
	}

	name := f.Descriptor().Name
	verdict, err := b.registry.Gate(name, admin)
	if err != nil {
		b.replyError(ctx, msg, err)
		return
	}
	if verdict != feature.Allowed {
		b.reply(ctx, msg, feature.DenialText(verdict, name))
		return
	}

	req := feature.Request{
		ChatID:   msg.Chat.ID,
		ChatType: msg.Chat.Type,
		UserID:   msg.From.ID,
		Username: msg.From.Username,
		Admin:    admin,
		Command:  cmd,
		Args:     args,
	}
	if err := f.Handle(ctx, req, b.responderFor(msg)); err != nil {
		log.Warn().Err(err).Str("feature", name).Msg("feature failed")
	}
}

// ---- admins ----

func (b *Bot) cmdAdminsList(ctx context.Context, msg *telegram.Message) {
	if !b.requireAdmin(ctx, msg) {
		return
	}
	admins, err := b.store.ListAdmins()
	if err != nil {
		b.replyError(ctx, msg, err)
		return
	}
	lines := make([]string, 0, len(admins))
	for _, id := range admins {
		lines = append(lines, strconv.FormatInt(id, 10))
	}
	b.reply(ctx, msg, "Admins:\n"+strings.Join(lines, "\n"))
}

func (b *Bot) cmdAdminAdd(ctx context.Context, msg *telegram.Message, args string) {
	if !b.requireAdmin(ctx, msg) {
		return
	}
	target := strings.TrimSpace(args)
	if target == "" {
		b.reply(ctx, msg, "Usage: /admin_add <id|@username>")
		return
	}
	if id, err := strconv.ParseInt(target, 10, 64); err == nil && id > 0 {
		if err := b.store.AddAdmin(id); err != nil {
			b.replyError(ctx, msg, err)
			return
		}
		b.reply(ctx, msg, "Added admin id "+target)
		return
	}
	if err := b.store.AddPendingAdmin(target); err != nil {
		b.replyError(ctx, msg, err)
		return
	}
	b.reply(ctx, msg, "Added pending admin. They become admin after they message the bot once.")
}

func (b *Bot) cmdAdminRemove(ctx context.Context, msg *telegram.Message, args string) {
	if !b.requireAdmin(ctx, msg) {
		return
	}
	id, err := strconv.ParseInt(strings.TrimSpace(args), 10, 64)
	if err != nil || id <= 0 {
		b.reply(ctx, msg, "Usage: /admin_remove <id>")
		return
	}
	if err := b.store.RemoveAdmin(id); err != nil {
		b.replyError(ctx, msg, err)
		return
	}
	b.reply(ctx, msg, fmt.Sprintf("Removed admin id %d", id))
}

// ---- bans ----

func (b *Bot) cmdBan(ctx context.Context, msg *telegram.Message, args string) {
	if !b.requireAdmin(ctx, msg) {
		return
	}
	fields := strings.SplitN(strings.TrimSpace(args), " ", 2)
	target := strings.TrimSpace(fields[0])
	if target == "" {
		b.reply(ctx, msg, "Usage: /ban <id|@username> [reason]")
		return
	}
	reason := "banned"
	if len(fields) > 1 && strings.TrimSpace(fields[1]) != "" {
		reason = strings.TrimSpace(fields[1])
	}
	if id, err := strconv.ParseInt(target, 10, 64); err == nil && id > 0 {
		if err := b.store.BanID(id, "", reason); err != nil {
			b.replyError(ctx, msg, err)
			return
		}
		b.reply(ctx, msg, "Banned id "+target)
		return
	}
	if err := b.store.BanPending(target, reason); err != nil {
		b.replyError(ctx, msg, err)
		return
	}
	b.reply(ctx, msg, "Banned pending username (applies when they message the bot).")
}

func (b *Bot) cmdUnban(ctx context.Context, msg *telegram.Message, args string) {
	if !b.requireAdmin(ctx, msg) {
		return
	}
	target := strings.TrimSpace(args)
	if target == "" {
		b.reply(ctx, msg, "Usage: /unban <id|@username>")
		return
	}
	if id, err := strconv.ParseInt(target, 10, 64); err == nil && id > 0 {
		if err := b.store.UnbanID(id); err != nil {
			b.replyError(ctx, msg, err)
			return
		}
		b.reply(ctx, msg, "Unbanned id "+target)
		return
	}
	if err := b.store.UnbanPending(target); err != nil {
		b.replyError(ctx, msg, err)
		return
	}
	b.reply(ctx, msg, "Unbanned pending username.")
}

func (b *Bot) cmdBansList(ctx context.Context, msg *telegram.Message) {
	if !b.requireAdmin(ctx, msg) {
		return
	}
	rows, err := b.store.ListBans(200)
	if err != nil {
		b.replyError(ctx, msg, err)
		return
	}
	if len(rows) == 0 {
		b.reply(ctx, msg, "No bans.")
		return
	}
	lines := make([]string, 0, len(rows))
	for _, r := range rows {
		username := r.Username
		if username == "" {
			username = "-"
		}
		lines = append(lines, fmt.Sprintf("%d  @%s  %s", r.UserID, username, r.Reason))
	}
	b.reply(ctx, msg, truncate("Bans:\n"+strings.Join(lines, "\n"), maxCommandReply))
}

func (b *Bot) cmdBanInfo(ctx context.Context, msg *telegram.Message, args string) {
	if !b.requireAdmin(ctx, msg) {
		return
	}
	if strings.TrimSpace(args) == "" {
		b.reply(ctx, msg, "Usage: /ban_info <id|@username>")
		return
	}
	uid := b.resolveIDOrUsername(args)
	if uid == 0 {
		b.reply(ctx, msg, "User not found (they must have messaged the bot at least once for @username lookup).")
		return
	}
	ban, err := b.store.GetBan(uid)
	if err != nil {
		b.replyError(ctx, msg, err)
		return
	}
	if ban == nil {
		b.reply(ctx, msg, "Not banned.")
		return
	}
	username := ban.Username
	if username == "" {
		username = "-"
	}
	b.reply(ctx, msg, fmt.Sprintf("Banned: %d @%s\nReason: %s", ban.UserID, username, ban.Reason))
}

// ---- prompts ----

func (b *Bot) cmdPromptsList(ctx context.Context, msg *telegram.Message) {
	if !b.requireAdmin(ctx, msg) {
		return
	}
	rows, err := b.store.ListPrompts()
	if err != nil {
		b.replyError(ctx, msg, err)
		return
	}
	if len(rows) == 0 {
		b.reply(ctx, msg, "No prompts.")
		return
	}
	lines := make([]string, 0, len(rows))
	for _, p := range rows {
		lines = append(lines, fmt.Sprintf("#%d enabled=%v :: %s", p.ID, p.Enabled, p.Prompt))
	}
	b.reply(ctx, msg, truncate(strings.Join(lines, "\n\n"), maxCommandReply))
}

func (b *Bot) cmdPromptAdd(ctx context.Context, msg *telegram.Message, args string) {
	if !b.requireAdmin(ctx, msg) {
		return
	}
	text := strings.TrimSpace(args)
	if text == "" {
		b.reply(ctx, msg, "Usage: /prompt_add <text>")
		return
	}
	if len(text) > 4000 {
		b.reply(ctx, msg, "Prompt too long.")
		return
	}
	if err := b.store.AddPrompt(text); err != nil {
		b.replyError(ctx, msg, err)
		return
	}
	b.reply(ctx, msg, "Prompt added.")
}

func (b *Bot) cmdPromptSet(ctx context.Context, msg *telegram.Message, args string) {
	if !b.requireAdmin(ctx, msg) {
		return
	}
	fields := strings.SplitN(strings.TrimSpace(args), " ", 2)
	id, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil || len(fields) < 2 || strings.TrimSpace(fields[1]) == "" {
		b.reply(ctx, msg, "Usage: /prompt_set <id> <text>")
		return
	}
	text := strings.TrimSpace(fields[1])
	if len(text) > 4000 {
		b.reply(ctx, msg, "Prompt too long.")
		return
	}
	if err := b.store.SetPrompt(id, text); err != nil {
		b.replyError(ctx, msg, err)
		return
	}
	b.reply(ctx, msg, "Prompt updated.")
}

func (b *Bot) cmdPromptToggle(ctx context.Context, msg *telegram.Message, args string, enabled bool) {
	if !b.requireAdmin(ctx, msg) {
		return
	}
	id, err := strconv.ParseInt(strings.TrimSpace(args), 10, 64)
	if err != nil {
		b.reply(ctx, msg, "Usage: /prompt_enable <id> OR /prompt_disable <id>")
		return
	}
	if err := b.store.TogglePrompt(id, enabled); err != nil {
		b.replyError(ctx, msg, err)
		return
	}
	b.reply(ctx, msg, fmt.Sprintf("Prompt #%d enabled=%v", id, enabled))
}

func (b *Bot) cmdPromptDel(ctx context.Context, msg *telegram.Message, args string) {
	if !b.requireAdmin(ctx, msg) {
		return
	}
	id, err := strconv.ParseInt(strings.TrimSpace(args), 10, 64)
	if err != nil {
		b.reply(ctx, msg, "Usage: /prompt_del <id>")
		return
	}
	if err := b.store.DeletePrompt(id); err != nil {
		b.replyError(ctx, msg, err)
		return
	}
	b.reply(ctx, msg, "Prompt deleted.")
}

// ---- user inspection ----

func (b *Bot) cmdUsers(ctx context.Context, msg *telegram.Message, args string) {
	if !b.requireAdmin(ctx, msg) {
		return
	}
	query := strings.TrimSpace(args)
	if query == "" {
		b.reply(ctx, msg, "Usage: /users <query>")
		return
	}
	rows, err := b.store.SearchUsers(query, 30)
	if err != nil {
		b.replyError(ctx, msg, err)
		return
	}
	if len(rows) == 0 {
		b.reply(ctx, msg, "No matches.")
		return
	}
	lines := make([]string, 0, len(rows))
	for _, u := range rows {
		username := u.Username
		if username == "" {
			username = "-"
		}
		name := strings.TrimSpace(u.FirstName + " " + u.LastName)
		lines = append(lines, strings.TrimSpace(fmt.Sprintf("%d  @%s  %s", u.UserID, username, name)))
	}
	b.reply(ctx, msg, truncate(strings.Join(lines, "\n"), maxCommandReply))
}

func (b *Bot) cmdUser(ctx context.Context, msg *telegram.Message, args string) {
	if !b.requireAdmin(ctx, msg) {
		return
	}
	if strings.TrimSpace(args) == "" {
		b.reply(ctx, msg, "Usage: /user <id|@username>")
		return
	}
	uid := b.resolveIDOrUsername(args)
	if uid == 0 {
		b.reply(ctx, msg, "User not found (they must have messaged the bot at least once for @username lookup).")
		return
	}
	u, err := b.store.GetUser(uid)
	if err != nil {
		b.replyError(ctx, msg, err)
		return
	}
	if u == nil {
		b.reply(ctx, msg, "User not found.")
		return
	}
	changes, err := b.store.UserChanges(uid, 30)
	if err != nil {
		b.replyError(ctx, msg, err)
		return
	}
	username := u.Username
	if username == "" {
		username = "-"
	}
	lines := []string{
		fmt.Sprintf("User %d", uid),
		"username: @" + username,
		"name: " + strings.TrimSpace(u.FirstName+" "+u.LastName),
	}
	if len(changes) > 0 {
		lines = append(lines, "\nRecent changes:")
		for _, c := range changes {
			lines = append(lines, fmt.Sprintf("- %s: %s -> %s", c.Field, c.OldValue, c.NewValue))
		}
	}
	b.reply(ctx, msg, truncate(strings.Join(lines, "\n"), maxCommandReply))
}

// sendTranscript writes role-tagged lines to a temp file and uploads it.
func (b *Bot) sendTranscript(ctx context.Context, msg *telegram.Message, rows []domain.Message, pattern, caption string) {
	lines := make([]string, 0, len(rows))
	for _, m := range rows {
		lines = append(lines, fmt.Sprintf("[%s] %s", m.Role, strings.ReplaceAll(m.Text, "\r", "")))
	}

	f, err := os.CreateTemp("", pattern)
	if err != nil {
		b.replyError(ctx, msg, err)
		return
	}
	path := f.Name()
	defer os.Remove(path)

	if _, err := f.WriteString(strings.Join(lines, "\n\n")); err != nil {
		f.Close()
		b.replyError(ctx, msg, err)
		return
	}
	if err := f.Close(); err != nil {
		b.replyError(ctx, msg, err)
		return
	}
	if _, err := b.tg.SendDocument(ctx, msg.Chat.ID, path, caption); err != nil {
		b.replyError(ctx, msg, err)
	}
}

func (b *Bot) cmdChat(ctx context.Context, msg *telegram.Message, args string) {
	if !b.requireAdmin(ctx, msg) {
		return
	}
	fields := strings.Fields(args)
	if len(fields) < 1 {
		b.reply(ctx, msg, "Usage: /chat <id|@username> [limit]")
		return
	}
	uid := b.resolveIDOrUsername(fields[0])
	if uid == 0 {
		b.reply(ctx, msg, "User not found.")
		return
	}
	limit := 200
	if len(fields) >= 2 {
		limit = utils.LimitArg(fields[1], 200, 2000)
	}
	rows, err := b.store.UserConversation(uid, limit)
	if err != nil {
		b.replyError(ctx, msg, err)
		return
	}
	if len(rows) == 0 {
		b.reply(ctx, msg, "No messages.")
		return
	}
	b.sendTranscript(ctx, msg, rows,
		fmt.Sprintf("user_%d_chat_*.txt", uid),
		fmt.Sprintf("Chat export for %d", uid))
}

func (b *Bot) cmdChatSearch(ctx context.Context, msg *telegram.Message, args string) {
	if !b.requireAdmin(ctx, msg) {
		return
	}
	fields := strings.Fields(args)
	if len(fields) < 2 {
		b.reply(ctx, msg, "Usage: /chat_search <id|@username> <query> [limit]")
		return
	}
	uid := b.resolveIDOrUsername(fields[0])
	if uid == 0 {
		b.reply(ctx, msg, "User not found.")
		return
	}
	query := fields[1]
	limit := 200
	if len(fields) >= 3 {
		limit = utils.LimitArg(fields[2], 200, 2000)
	}
	rows, err := b.store.SearchUserMessages(uid, query, limit)
	if err != nil {
		b.replyError(ctx, msg, err)
		return
	}
	if len(rows) == 0 {
		b.reply(ctx, msg, "No matches.")
		return
	}
	b.sendTranscript(ctx, msg, rows,
		fmt.Sprintf("user_%d_search_*.txt", uid),
		fmt.Sprintf("Search results for %d: '%s'", uid, query))
}

// ---- stats, export, import ----

func (b *Bot) cmdStats(ctx context.Context, msg *telegram.Message) {
	if !b.requireAdmin(ctx, msg) {
		return
	}
	counts, err := b.store.CountAll()
	if err != nil {
		b.replyError(ctx, msg, err)
		return
	}
	b.reply(ctx, msg, "Stats:\n"+
		fmt.Sprintf("- users: %d\n", counts.Users)+
		fmt.Sprintf("- messages: %d\n", counts.Messages)+
		fmt.Sprintf("- admins: %d\n", counts.Admins)+
		fmt.Sprintf("- bans: %d\n", counts.Bans)+
		fmt.Sprintf("- prompts: %d\n", counts.Prompts)+
		fmt.Sprintf("- bot_enabled: %v\n", b.store.BotEnabled())+
		fmt.Sprintf("- backup_enabled: %v\n", b.store.BackupEnabled()))
}

func (b *Bot) cmdExportDB(ctx context.Context, msg *telegram.Message) {
	if !b.requireAdmin(ctx, msg) {
		return
	}
	name := fmt.Sprintf("manual_%s.xlsx", time.Now().Format("2006-01-02_15-04-05"))
	path := filepath.Join(b.cfg.Backup.Dir, name)
	err := b.store.View(func(db *gorm.DB) error { return backup.ExportXLSX(db, path) })
	if err != nil {
		b.replyError(ctx, msg, err)
		return
	}
	if _, err := b.tg.SendDocument(ctx, msg.Chat.ID, path, "DB export: "+name); err != nil {
		b.replyError(ctx, msg, err)
	}
}

// handleImport restores the database from an admin-uploaded xlsx carrying
// the /import_db caption.
func (b *Bot) handleImport(ctx context.Context, msg *telegram.Message) {
	if !b.requireAdmin(ctx, msg) {
		return
	}
	doc := msg.Document
	if !strings.HasSuffix(strings.ToLower(doc.FileName), ".xlsx") {
		b.reply(ctx, msg, "Please send a .xlsx file.")
		return
	}
	if doc.FileSize > importMaxBytes {
		b.reply(ctx, msg, "File too large (max 25MB).")
		return
	}

	file, err := b.tg.GetFile(ctx, doc.FileID)
	if err != nil {
		b.replyError(ctx, msg, err)
		return
	}
	tmp, err := os.CreateTemp("", "import_*.xlsx")
	if err != nil {
		b.replyError(ctx, msg, err)
		return
	}
	path := tmp.Name()
	tmp.Close()
	defer os.Remove(path)

	if _, err := b.tg.DownloadFileTo(ctx, file.FilePath, path, importMaxBytes); err != nil {
		b.replyError(ctx, msg, err)
		return
	}
	err = b.store.View(func(db *gorm.DB) error { return backup.ImportXLSX(db, path) })
	if err != nil {
		b.reply(ctx, msg, "Import failed: "+err.Error())
		return
	}
	b.reply(ctx, msg, "Import completed (tables replaced).")
}
