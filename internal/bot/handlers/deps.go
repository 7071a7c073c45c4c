package handlers

import (
	"log/slog"

	"github.com/chengmaomao/sendblessings/internal/config"
	"github.com/chengmaomao/sendblessings/internal/dispatch"
	"github.com/chengmaomao/sendblessings/internal/holiday"
)

// HandlerDeps provides dependencies for Telegram command handlers.
type HandlerDeps struct {
	Logger     *slog.Logger
	Config     *config.Config
	Holidays   *holiday.Cache
	Dispatcher *dispatch.Dispatcher
}
