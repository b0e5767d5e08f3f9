// Package bot runs the dispatch loop: it long-polls the transport, fans
// updates out to a worker pool, and routes each message through user
// tracking, access gating, addressing, command handling, and inference.
package bot

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"daddygpt/internal/chat"
	"daddygpt/internal/config"
	"daddygpt/internal/domain"
	"daddygpt/internal/feature"
	"daddygpt/internal/metrics"
	"daddygpt/internal/ollama"
	"daddygpt/internal/policy"
	"daddygpt/internal/store"
	"daddygpt/internal/telegram"
)

// Transport is the subset of the Bot API client the dispatcher uses.
type Transport interface {
	GetMe(ctx context.Context) (*telegram.User, error)
	GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]telegram.Update, int64, error)
	SendMessage(ctx context.Context, chatID int64, text string, replyToMessageID int64) (int64, error)
	SendChatAction(ctx context.Context, chatID int64, action string) error
	SendDocument(ctx context.Context, chatID int64, path, caption string) (int64, error)
	SendAudio(ctx context.Context, chatID int64, path, caption string) (int64, error)
	SendVideo(ctx context.Context, chatID int64, path, caption string) (int64, error)
	GetFile(ctx context.Context, fileID string) (*telegram.File, error)
	DownloadFileTo(ctx context.Context, filePath, dstPath string, maxBytes int64) (int64, error)
}

// Inference is the model backend.
type Inference interface {
	Chat(ctx context.Context, messages []ollama.Message) (string, error)
	Model() string
}

// Bot owns the dispatch loop and all its collaborators.
type Bot struct {
	cfg      config.Config
	store    *store.Store
	tg       Transport
	llm      Inference
	gate     *policy.Gate
	registry *feature.Registry
	builder  *chat.ContextBuilder

	me telegram.User

	mu        sync.Mutex
	addresser *chat.Addresser
	addrTrig  string
}

// New wires a Bot. Call Run to start polling.
func New(cfg config.Config, st *store.Store, tg Transport, llm Inference, registry *feature.Registry) *Bot {
	return &Bot{
		cfg:      cfg,
		store:    st,
		tg:       tg,
		llm:      llm,
		gate:     policy.NewGate(st, policy.NewCooldown(cfg.Cooldown)),
		registry: registry,
		builder:  chat.NewContextBuilder(st, cfg.DialogWindow),
	}
}

// Me returns the bot's own identity, valid after Run has started.
func (b *Bot) Me() telegram.User { return b.me }

// addresserFor returns a group addressing resolver for the current trigger
// word, recompiling only when an admin changed it.
func (b *Bot) addresserFor() *chat.Addresser {
	trigger := b.store.SettingOr("trigger_name", "daddygpt")

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.addresser == nil || b.addrTrig != trigger {
		b.addresser = chat.NewAddresser(b.me.ID, b.me.Username, trigger)
		b.addrTrig = trigger
	}
	return b.addresser
}

// Run polls for updates until ctx is done. Pending updates accumulated
// while the bot was down are drained and discarded first, matching a fresh
// start rather than replaying a backlog into the model.
func (b *Bot) Run(ctx context.Context) error {
	me, err := b.tg.GetMe(ctx)
	if err != nil {
		return err
	}
	b.me = *me
	log.Info().Str("username", me.Username).Int64("id", me.ID).Msg("bot started")

	offset := b.drainPending(ctx)

	updates := make(chan telegram.Update)
	var wg sync.WaitGroup
	for i := 0; i < b.cfg.Telegram.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for up := range updates {
				b.handleUpdate(ctx, up)
			}
		}()
	}

	for ctx.Err() == nil {
		batch, next, err := b.tg.GetUpdates(ctx, offset, b.cfg.Telegram.PollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			if !telegram.IsPollTimeout(err) {
				log.Warn().Err(err).Msg("poll failed")
				time.Sleep(2 * time.Second)
			}
			continue
		}
		offset = next
		for _, up := range batch {
			select {
			case updates <- up:
			case <-ctx.Done():
			}
		}
	}

	close(updates)
	wg.Wait()
	return ctx.Err()
}

// drainPending acknowledges whatever queued up while the bot was offline.
func (b *Bot) drainPending(ctx context.Context) int64 {
	var offset int64
	dropped := 0
	for {
		batch, next, err := b.tg.GetUpdates(ctx, offset, time.Second)
		if err != nil || len(batch) == 0 {
			break
		}
		dropped += len(batch)
		offset = next
	}
	if dropped > 0 {
		log.Info().Int("count", dropped).Msg("skipped pending updates")
	}
	return offset
}

func (b *Bot) handleUpdate(ctx context.Context, up telegram.Update) {
	metrics.InflightHandlers.Inc()
	defer metrics.InflightHandlers.Dec()

	msg := up.Message
	if msg == nil || msg.Chat == nil || msg.From == nil || msg.From.IsBot {
		return
	}
	chatType := msg.Chat.Type

	logger := log.With().
		Str("correlation_id", uuid.NewString()).
		Int64("update_id", up.UpdateID).
		Logger()
	ctx = logger.WithContext(ctx)

	outcome := b.dispatch(ctx, msg)
	metrics.UpdatesTotal.WithLabelValues(chatType, outcome).Inc()
	logger.Debug().Str("chat_type", chatType).Str("outcome", outcome).Msg("update handled")
}

// Dispatch outcomes for metrics.
const (
	outcomeHandled     = "handled"
	outcomeCommand     = "command"
	outcomeBanned      = "dropped_banned"
	outcomeLimited     = "dropped_limited"
	outcomeDisabled    = "dropped_disabled"
	outcomeUnaddressed = "dropped_unaddressed"
	outcomeSkipped     = "skipped"
	outcomeError       = "error"
)

func (b *Bot) dispatch(ctx context.Context, msg *telegram.Message) string {
	user := msg.From

	// Track the sender and apply any pending admin/ban that matches the
	// username now that we can tie it to an ID. A failed upsert fails the
	// whole update; continuing would let the message through untracked.
	if err := b.store.UpsertUser(user.ID, user.Username, user.FirstName, user.LastName); err != nil {
		log.Error().Err(err).Int64("user", user.ID).Msg("user upsert failed")
		return outcomeError
	}
	if err := b.store.ResolvePendingAdmin(user.ID, user.Username); err != nil {
		log.Error().Err(err).Msg("pending admin resolve failed")
	}
	if err := b.store.ResolvePendingBan(user.ID, user.Username); err != nil {
		log.Error().Err(err).Msg("pending ban resolve failed")
	}

	// Documents are only meaningful as admin imports.
	if msg.Document != nil {
		if strings.HasPrefix(strings.TrimSpace(msg.Caption), "/import_db") {
			b.handleImport(ctx, msg)
			return outcomeCommand
		}
		return outcomeSkipped
	}

	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return outcomeSkipped
	}

	if strings.HasPrefix(text, "/") {
		b.handleCommand(ctx, msg, text)
		return outcomeCommand
	}

	return b.handleChat(ctx, msg, text)
}

// handleChat runs the inference path for a plain text message.
func (b *Bot) handleChat(ctx context.Context, msg *telegram.Message, text string) string {
	user := msg.From
	admin, err := b.store.IsAdmin(user.ID)
	if err != nil {
		log.Error().Err(err).Msg("admin check failed")
		return outcomeError
	}

	// Admins can keep talking to a disabled bot to verify it still works.
	if !admin && !b.store.BotEnabled() {
		return outcomeDisabled
	}

	decision, err := b.gate.Admit(user.ID, user.Username)
	if err != nil {
		log.Error().Err(err).Msg("gate failed")
		return outcomeError
	}
	switch {
	case decision.Banned:
		return outcomeBanned
	case decision.Limited:
		return outcomeLimited
	}

	cleaned := text
	if msg.Chat.Type == domain.ChatTypeGroup || msg.Chat.Type == domain.ChatTypeSupergroup {
		var replyToUser int64
		if msg.ReplyTo != nil && msg.ReplyTo.From != nil {
			replyToUser = msg.ReplyTo.From.ID
		}
		ok, stripped := b.addresserFor().Resolve(text, replyToUser)
		if !ok {
			return outcomeUnaddressed
		}
		cleaned = stripped
	}

	var replyTo *int64
	if msg.ReplyTo != nil {
		replyTo = &msg.ReplyTo.MessageID
	}
	// Failing to record the user turn fails the update; otherwise the
	// assistant side would be logged with no paired user row.
	if _, err := b.store.LogMessage(msg.Chat.ID, msg.Chat.Type, &user.ID, domain.RoleUser, cleaned, &msg.MessageID, replyTo); err != nil {
		log.Error().Err(err).Msg("message log failed")
		return outcomeError
	}

	messages, err := b.builder.Build(msg.Chat.ID, user.ID)
	if err != nil {
		log.Error().Err(err).Msg("context build failed")
		return outcomeError
	}

	_ = b.tg.SendChatAction(ctx, msg.Chat.ID, "typing")

	start := time.Now()
	reply, err := b.llm.Chat(ctx, messages)
	metrics.ObserveInference(start, err)
	if err != nil {
		log.Warn().Err(err).Msg("inference failed")
		reply = "LLM error: " + err.Error()
	}

	for i, part := range chat.Split(reply, b.cfg.ChunkLen) {
		var inReplyTo int64
		if i == 0 {
			inReplyTo = msg.MessageID
		}
		sentID, err := b.tg.SendMessage(ctx, msg.Chat.ID, part, inReplyTo)
		if err != nil {
			log.Warn().Err(err).Msg("reply send failed")
			continue
		}
		metrics.RepliesTotal.Inc()

		// The assistant reply is tied to the requesting user so the
		// per-user dialog window sees both sides.
		origID := msg.MessageID
		if _, err := b.store.LogMessage(msg.Chat.ID, msg.Chat.Type, &user.ID, domain.RoleAssistant, part, &sentID, &origID); err != nil {
			log.Error().Err(err).Msg("reply log failed")
		}
	}
	return outcomeHandled
}

// reply sends text as a reply to msg, ignoring transport failures beyond a
// log line; command feedback is best effort.
func (b *Bot) reply(ctx context.Context, msg *telegram.Message, text string) {
	if _, err := b.tg.SendMessage(ctx, msg.Chat.ID, text, msg.MessageID); err != nil {
		log.Warn().Err(err).Int64("chat", msg.Chat.ID).Msg("reply failed")
	}
}
