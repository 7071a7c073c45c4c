// Package tasks implements the scheduled tasks of the blessing bot: the
// daily holiday check, image directory cleanup, calendar preloading, and
// delivery ledger maintenance.
package tasks

import (
	"log/slog"

	"github.com/chengmaomao/sendblessings/internal/config"
	"github.com/chengmaomao/sendblessings/internal/database"
	"github.com/chengmaomao/sendblessings/internal/dispatch"
	"github.com/chengmaomao/sendblessings/internal/holiday"
	"github.com/chengmaomao/sendblessings/internal/imagegen"
)

// TaskDeps contains all dependencies required by scheduled tasks.
type TaskDeps struct {
	Logger     *slog.Logger
	Config     *config.Config
	Holidays   *holiday.Cache
	Dispatcher *dispatch.Dispatcher
	Generator  *imagegen.Generator
	Store      database.Store
}
