package chat

import (
	"fmt"
	"strings"

	"daddygpt/internal/domain"
	"daddygpt/internal/ollama"
)

// ContextStore is the subset of storage the context builder reads.
type ContextStore interface {
	SettingOr(key, fallback string) string
	EnabledPrompts() ([]string, error)
	RecentDialog(chatID, userID int64, limit int) ([]domain.Message, error)
}

// ContextBuilder assembles the message list sent to the model: one system
// message describing the bot, followed by the recent per-user dialog in the
// chat, oldest first, followed by nothing (the newest user turn is already
// in the dialog because it is logged before the build).
type ContextBuilder struct {
	store  ContextStore
	window int
}

// NewContextBuilder builds dialog contexts with up to window recent turns.
func NewContextBuilder(store ContextStore, window int) *ContextBuilder {
	if window < 1 {
		window = 20
	}
	return &ContextBuilder{store: store, window: window}
}

// SystemMessage renders the system prompt from the stored display name,
// persona, and enabled extra prompts.
func (b *ContextBuilder) SystemMessage() (string, error) {
	botName := b.store.SettingOr("bot_display_name", "Bot")
	persona := b.store.SettingOr("persona", "")
	prompts, err := b.store.EnabledPrompts()
	if err != nil {
		return "", err
	}

	lines := []string{
		fmt.Sprintf("You are %s.", botName),
		"You support Arabic and English naturally (reply in the user's language when possible).",
		"Be concise, helpful, and safe.",
		"Persona: " + persona,
	}
	if len(prompts) > 0 {
		lines = append(lines, "System prompts:")
		for _, p := range prompts {
			lines = append(lines, "- "+p)
		}
	}
	return strings.TrimSpace(strings.Join(lines, "\n")), nil
}

// Build returns the full message list for one inference call for the given
// (chat, user) dialog.
func (b *ContextBuilder) Build(chatID, userID int64) ([]ollama.Message, error) {
	system, err := b.SystemMessage()
	if err != nil {
		return nil, err
	}
	recent, err := b.store.RecentDialog(chatID, userID, b.window)
	if err != nil {
		return nil, err
	}

	msgs := make([]ollama.Message, 0, len(recent)+1)
	msgs = append(msgs, ollama.Message{Role: domain.RoleSystem, Content: system})
	for _, m := range recent {
		msgs = append(msgs, ollama.Message{Role: m.Role, Content: m.Text})
	}
	return msgs, nil
}
