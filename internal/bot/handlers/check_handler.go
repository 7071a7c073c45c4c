package handlers

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// NewCheckHandler returns a handler for the /blessings_check command, a
// read-only query of today's holiday status.
func NewCheckHandler(deps HandlerDeps) bot.HandlerFunc {
	return checkHandler{deps}.Handle
}

type checkHandler struct {
	deps HandlerDeps
}

func (h checkHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "check")
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	msgs := h.deps.Config.Messages

	var text string
	record, ok := h.deps.Holidays.Today()
	switch {
	case !ok:
		text = msgs.CheckNoRecord
	case record.IsHoliday && record.IsFirstDay:
		text = fmt.Sprintf(msgs.CheckFirstDay, record.Name)
	case record.IsHoliday:
		text = fmt.Sprintf(msgs.CheckHoliday, record.Name)
	default:
		text = msgs.CheckWorkday
	}

	if _, err := b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: text}); err != nil {
		log.ErrorContext(ctx, "Failed to send check response", "error", err, "chat_id", chatID)
	}
}
