package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/chengmaomao/sendblessings/internal/config"
	"github.com/chengmaomao/sendblessings/internal/dispatch"
)

// Platform is the platform tag used in dispatch targets handled here.
const Platform = "telegram"

// Messenger implements dispatch.Messenger on top of the Telegram Bot API.
type Messenger struct {
	bot *bot.Bot
	log *slog.Logger
}

// NewMessenger creates a Telegram-backed messenger.
func NewMessenger(b *bot.Bot, logger *slog.Logger) *Messenger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Messenger{
		bot: b,
		log: logger.With("component", "telegram_messenger"),
	}
}

// SendText delivers a plain text message to the target chat.
func (m *Messenger) SendText(ctx context.Context, target dispatch.Target, text string) error {
	chatID, err := chatIDOf(target)
	if err != nil {
		return err
	}

	_, err = m.bot.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: text})
	if err != nil {
		return fmt.Errorf("failed to send message to %s: %w", target.String(), err)
	}
	return nil
}

// SendPhoto delivers an image with a caption. Local files are uploaded;
// anything else (a URL or a path relayed to the protocol client's host) is
// passed through by reference.
func (m *Messenger) SendPhoto(ctx context.Context, target dispatch.Target, caption, photoPath string) error {
	chatID, err := chatIDOf(target)
	if err != nil {
		return err
	}

	params := &bot.SendPhotoParams{ChatID: chatID, Caption: caption}

	f, openErr := os.Open(photoPath)
	if openErr == nil {
		defer f.Close()
		params.Photo = &models.InputFileUpload{Filename: filepath.Base(photoPath), Data: f}
	} else {
		m.log.DebugContext(ctx, "Photo not readable locally, sending by reference", "path", photoPath)
		params.Photo = &models.InputFileString{Data: photoPath}
	}

	_, err = m.bot.SendPhoto(ctx, params)
	if err != nil {
		return fmt.Errorf("failed to send photo to %s: %w", target.String(), err)
	}
	return nil
}

func chatIDOf(target dispatch.Target) (int64, error) {
	id, err := strconv.ParseInt(target.ID, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid telegram chat id %q: %w", target.ID, err)
	}
	return id, nil
}

// TargetsFromConfig builds the dispatch fan-out list from the configured
// group and friend chat ids.
func TargetsFromConfig(cfg config.TelegramConfig) []dispatch.Target {
	targets := make([]dispatch.Target, 0, len(cfg.TargetGroups)+len(cfg.TargetFriends))
	for _, id := range cfg.TargetGroups {
		targets = append(targets, dispatch.Target{Platform: Platform, Kind: dispatch.KindGroup, ID: strconv.FormatInt(id, 10)})
	}
	for _, id := range cfg.TargetFriends {
		targets = append(targets, dispatch.Target{Platform: Platform, Kind: dispatch.KindFriend, ID: strconv.FormatInt(id, 10)})
	}
	return targets
}

