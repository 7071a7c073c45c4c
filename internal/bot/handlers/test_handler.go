package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/chengmaomao/sendblessings/internal/dispatch"
)

// NewTestHandler returns a handler for the /blessings_test command. It
// sends a lightweight probe message to every configured target to validate
// reachability and reports the per-target outcome.
func NewTestHandler(deps HandlerDeps) bot.HandlerFunc {
	return testHandler{deps}.Handle
}

type testHandler struct {
	deps HandlerDeps
}

func (h testHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "test")
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID
	msgs := h.deps.Config.Messages

	if len(h.deps.Dispatcher.Targets()) == 0 {
		h.reply(ctx, b, chatID, msgs.TestNoTargets)
		return
	}

	log.InfoContext(ctx, "Admin requested target reachability test", "targets", len(h.deps.Dispatcher.Targets()))

	sent, failedTargets, err := h.deps.Dispatcher.SendProbe(ctx, msgs.TestProbe)
	if errors.Is(err, dispatch.ErrDispatchInProgress) {
		h.reply(ctx, b, chatID, msgs.ManualBusy)
		return
	}

	text := fmt.Sprintf(msgs.TestReport, sent, len(failedTargets))
	if len(failedTargets) > 0 {
		names := make([]string, 0, len(failedTargets))
		for _, t := range failedTargets {
			names = append(names, t.String())
		}
		text += "\n失败会话: " + strings.Join(names, ", ")
	}
	h.reply(ctx, b, chatID, text)
}

func (h testHandler) reply(ctx context.Context, b *bot.Bot, chatID int64, text string) {
	if _, err := b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: text}); err != nil {
		h.deps.Logger.ErrorContext(ctx, "Failed to send test response", "error", err, "chat_id", chatID)
	}
}
