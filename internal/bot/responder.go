package bot

import (
	"context"

	"daddygpt/internal/feature"
	"daddygpt/internal/telegram"
)

// responder adapts the transport to the feature.Responder interface for one
// originating message.
type responder struct {
	tg      Transport
	chatID  int64
	replyTo int64
}

func (b *Bot) responderFor(msg *telegram.Message) feature.Responder {
	return responder{tg: b.tg, chatID: msg.Chat.ID, replyTo: msg.MessageID}
}

func (r responder) Reply(ctx context.Context, text string) error {
	_, err := r.tg.SendMessage(ctx, r.chatID, text, r.replyTo)
	return err
}

func (r responder) SendAudio(ctx context.Context, path, caption string) error {
	_, err := r.tg.SendAudio(ctx, r.chatID, path, caption)
	return err
}

func (r responder) SendVideo(ctx context.Context, path, caption string) error {
	_, err := r.tg.SendVideo(ctx, r.chatID, path, caption)
	return err
}

func (r responder) SendDocument(ctx context.Context, path, caption string) error {
	_, err := r.tg.SendDocument(ctx, r.chatID, path, caption)
	return err
}

func (r responder) ChatAction(ctx context.Context, action string) error {
	return r.tg.SendChatAction(ctx, r.chatID, action)
}
