// Package config provides configuration loading, validation, and management
// for the blessing bot. It handles reading from YAML files, environment
// overrides, default values, and validating configuration parameters.
package config

import (
	"time"

	"github.com/go-telegram/bot/models"
)

// Config defines the application configuration parameters for all components
// of the blessing bot: logging, Telegram delivery, holiday calendar, blessing
// composition, image generation, NAP relay, scheduling, and storage.
type Config struct {
	Logger    LoggerConfig    `mapstructure:"logger"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Holiday   HolidayConfig   `mapstructure:"holiday"`
	Blessing  BlessingConfig  `mapstructure:"blessing"`
	Image     ImageConfig     `mapstructure:"image"`
	NAP       NAPConfig       `mapstructure:"nap"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Messages  MessagesConfig  `mapstructure:"messages"`
}

// LoggerConfig controls log level and output format.
type LoggerConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

// TelegramConfig holds the bot token, the administrator, and the delivery
// targets for scheduled dispatches. Group and friend ids are kept separate
// because Telegram addresses both through chat ids but the bot reports them
// differently.
type TelegramConfig struct {
	Token         string  `mapstructure:"token"          validate:"required"`
	AdminUserID   int64   `mapstructure:"admin_user_id"  validate:"required,gt=0"`
	TargetGroups  []int64 `mapstructure:"target_groups"`
	TargetFriends []int64 `mapstructure:"target_friends"`

	// BotInfo is populated at runtime after GetMe, not from the config file.
	BotInfo *models.User `mapstructure:"-"`
}

// HolidayConfig configures the holiday calendar cache.
type HolidayConfig struct {
	CacheFile string        `mapstructure:"cache_file" validate:"required"`
	SourceURL string        `mapstructure:"source_url" validate:"required,url"`
	Timeout   time.Duration `mapstructure:"timeout"    validate:"min=1s,max=5m"`
}

// BlessingConfig configures the LLM used for composing blessing texts.
type BlessingConfig struct {
	APIKey          string        `mapstructure:"api_key"`
	Model           string        `mapstructure:"model"`
	Timeout         time.Duration `mapstructure:"timeout"     validate:"min=1s,max=10m"`
	MaxRetries      int           `mapstructure:"max_retries" validate:"min=0,max=10"`
	RetryDelay      time.Duration `mapstructure:"retry_delay"`
	SearchGrounding bool          `mapstructure:"search_grounding"`
}

// ImageConfig configures the OpenRouter-compatible image generation client.
type ImageConfig struct {
	Enabled          bool            `mapstructure:"enabled"`
	APIKeys          []string        `mapstructure:"api_keys"`
	BaseURL          string          `mapstructure:"base_url"           validate:"omitempty,url"`
	Model            string          `mapstructure:"model"`
	MaxRetryAttempts int             `mapstructure:"max_retry_attempts" validate:"min=1,max=10"`
	RequestTimeout   time.Duration   `mapstructure:"request_timeout"    validate:"min=1s,max=10m"`
	ImagesDir        string          `mapstructure:"images_dir"         validate:"required"`
	MaxAge           time.Duration   `mapstructure:"max_age"            validate:"min=1m"`
	Reference        ReferenceConfig `mapstructure:"reference"`
}

// ReferenceConfig configures optional reference images embedded into the
// image generation request.
type ReferenceConfig struct {
	Enabled   bool     `mapstructure:"enabled"`
	Paths     []string `mapstructure:"paths"`
	MaxImages int      `mapstructure:"max_images" validate:"min=1,max=10"`
}

// NAPConfig configures the optional NAP file relay. An empty or "localhost"
// address disables relaying and deliveries use the local file path.
type NAPConfig struct {
	Address string        `mapstructure:"address"`
	Port    int           `mapstructure:"port"    validate:"min=1,max=65535"`
	Timeout time.Duration `mapstructure:"timeout" validate:"min=1s,max=10m"`
}

// TaskConfig enables a scheduled task and sets its cron schedule.
type TaskConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule"`
}

// SchedulerConfig maps task names to their schedules.
type SchedulerConfig struct {
	Tasks map[string]TaskConfig `mapstructure:"tasks"`
}

// DatabaseConfig configures the delivery ledger.
type DatabaseConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

// MessagesConfig holds user-facing response texts for the command surface.
type MessagesConfig struct {
	Welcome          string `mapstructure:"welcome"`
	Unauthorized     string `mapstructure:"unauthorized"`
	GeneralError     string `mapstructure:"general_error"`
	ReloadSuccess    string `mapstructure:"reload_success"`
	ReloadError      string `mapstructure:"reload_error"`
	CheckFirstDay    string `mapstructure:"check_first_day"`
	CheckHoliday     string `mapstructure:"check_holiday"`
	CheckWorkday     string `mapstructure:"check_workday"`
	CheckNoRecord    string `mapstructure:"check_no_record"`
	ManualNotHoliday string `mapstructure:"manual_not_holiday"`
	ManualBusy       string `mapstructure:"manual_busy"`
	ManualDone       string `mapstructure:"manual_done"`
	TestNoTargets    string `mapstructure:"test_no_targets"`
	TestProbe        string `mapstructure:"test_probe"`
	TestReport       string `mapstructure:"test_report"`
}
