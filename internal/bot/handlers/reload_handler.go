package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// NewReloadHandler returns a handler for the /blessings_reload command. It
// refetches the holiday calendar; on failure the previous cache stays in
// effect and the error is reported to the caller.
func NewReloadHandler(deps HandlerDeps) bot.HandlerFunc {
	return reloadHandler{deps}.Handle
}

type reloadHandler struct {
	deps HandlerDeps
}

func (h reloadHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "reload")
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	log.InfoContext(ctx, "Admin requested holiday reload", "chat_id", chatID)

	reloadCtx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	var text string
	if err := h.deps.Holidays.Reload(reloadCtx); err != nil {
		log.ErrorContext(ctx, "Holiday reload failed", "error", err)
		text = fmt.Sprintf(h.deps.Config.Messages.ReloadError, err)
	} else {
		text = fmt.Sprintf(h.deps.Config.Messages.ReloadSuccess, h.deps.Holidays.Len())
	}

	if _, err := b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: text}); err != nil {
		log.ErrorContext(ctx, "Failed to send reload response", "error", err, "chat_id", chatID)
	}
}
