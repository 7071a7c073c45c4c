package handlers

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/chengmaomao/sendblessings/internal/dispatch"
)

// NewManualHandler returns a handler for the /blessings_manual command. It
// forces one dispatch cycle delivered only to the invoking session. A
// holiday name may follow the command; without one, today must be a
// holiday.
func NewManualHandler(deps HandlerDeps) bot.HandlerFunc {
	return manualHandler{deps}.Handle
}

type manualHandler struct {
	deps HandlerDeps
}

func (h manualHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "manual")
	if update.Message == nil {
		return
	}
	chat := update.Message.Chat
	msgs := h.deps.Config.Messages

	holidayName := commandArgument(update.Message.Text)
	if holidayName == "" {
		record, ok := h.deps.Holidays.Today()
		if !ok || !record.IsHoliday {
			h.reply(ctx, b, chat.ID, msgs.ManualNotHoliday)
			return
		}
		holidayName = record.Name
	}

	log.InfoContext(ctx, "Admin requested manual blessing", "holiday", holidayName, "chat_id", chat.ID)

	kind := dispatch.KindGroup
	if chat.Type == "private" {
		kind = dispatch.KindFriend
	}
	target := dispatch.Target{Platform: "telegram", Kind: kind, ID: strconv.FormatInt(chat.ID, 10)}

	result, err := h.deps.Dispatcher.DispatchTo(ctx, holidayName, []dispatch.Target{target})
	switch {
	case errors.Is(err, dispatch.ErrDispatchInProgress):
		h.reply(ctx, b, chat.ID, msgs.ManualBusy)
	case err != nil:
		log.ErrorContext(ctx, "Manual dispatch failed", "error", err)
		h.reply(ctx, b, chat.ID, msgs.GeneralError)
	case result.Failed > 0:
		h.reply(ctx, b, chat.ID, msgs.GeneralError)
	default:
		h.reply(ctx, b, chat.ID, msgs.ManualDone)
	}
}

func (h manualHandler) reply(ctx context.Context, b *bot.Bot, chatID int64, text string) {
	if _, err := b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: text}); err != nil {
		h.deps.Logger.ErrorContext(ctx, "Failed to send manual response", "error", err, "chat_id", chatID)
	}
}

// commandArgument extracts the free-text argument after the command word,
// e.g. "/blessings_manual 端午节" -> "端午节".
func commandArgument(text string) string {
	parts := strings.SplitN(strings.TrimSpace(text), " ", 2)
	if len(parts) < 2 {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
