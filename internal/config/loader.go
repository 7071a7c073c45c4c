package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// LoadConfig reads configuration from the given YAML file, layers BLESS_*
// environment variables on top, applies defaults for optional fields, and
// validates the result. A missing config file is allowed; everything then
// comes from defaults and the environment.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetEnvPrefix("BLESS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file %q: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.json", false)

	v.SetDefault("holiday.cache_file", "data/holidays.json")
	v.SetDefault("holiday.source_url", "https://raw.githubusercontent.com/NateScarlet/holiday-cn/master")
	v.SetDefault("holiday.timeout", 30*time.Second)

	v.SetDefault("blessing.model", "gemini-2.0-flash")
	v.SetDefault("blessing.timeout", 2*time.Minute)
	v.SetDefault("blessing.max_retries", 2)
	v.SetDefault("blessing.retry_delay", 5*time.Second)
	v.SetDefault("blessing.search_grounding", true)

	v.SetDefault("image.enabled", true)
	v.SetDefault("image.base_url", "https://openrouter.ai/api")
	v.SetDefault("image.model", "google/gemini-2.5-flash-image-preview:free")
	v.SetDefault("image.max_retry_attempts", 3)
	v.SetDefault("image.request_timeout", 60*time.Second)
	v.SetDefault("image.images_dir", "data/images")
	v.SetDefault("image.max_age", 15*time.Minute)
	v.SetDefault("image.reference.max_images", 3)

	v.SetDefault("nap.address", "localhost")
	v.SetDefault("nap.port", 3658)
	v.SetDefault("nap.timeout", 60*time.Second)

	v.SetDefault("scheduler.tasks.daily_blessing.enabled", true)
	v.SetDefault("scheduler.tasks.daily_blessing.schedule", "0 0 8 * * *")
	v.SetDefault("scheduler.tasks.image_cleanup.enabled", true)
	v.SetDefault("scheduler.tasks.image_cleanup.schedule", "0 */10 * * * *")
	v.SetDefault("scheduler.tasks.holiday_refresh.enabled", true)
	v.SetDefault("scheduler.tasks.holiday_refresh.schedule", "0 30 6 31 12 *")
	v.SetDefault("scheduler.tasks.ledger_maintenance.enabled", true)
	v.SetDefault("scheduler.tasks.ledger_maintenance.schedule", "0 0 4 * * 0")

	v.SetDefault("database.path", "data/ledger.db")

	v.SetDefault("messages.welcome", "你好！我会在节假日第一天为大家送上祝福。管理员可使用 /blessings_check 等命令。")
	v.SetDefault("messages.unauthorized", "仅管理员可使用此命令。")
	v.SetDefault("messages.general_error", "操作失败，请稍后重试。")
	v.SetDefault("messages.reload_success", "节假日数据已重新加载，共 %d 条记录。")
	v.SetDefault("messages.reload_error", "重新加载失败: %s")
	v.SetDefault("messages.check_first_day", "今天是 %s 的第一天！")
	v.SetDefault("messages.check_holiday", "今天是假期，但不是第一天：%s")
	v.SetDefault("messages.check_workday", "今天不是假期。")
	v.SetDefault("messages.check_no_record", "未找到今天的记录，请使用 /blessings_reload 重新加载数据。")
	v.SetDefault("messages.manual_not_holiday", "今天不是假期，请在命令后指定节日名称。")
	v.SetDefault("messages.manual_busy", "已有一次祝福派发正在进行，请稍后再试。")
	v.SetDefault("messages.manual_done", "手动祝福已发送！")
	v.SetDefault("messages.test_no_targets", "未配置目标会话，请在配置中添加 target_groups 或 target_friends。")
	v.SetDefault("messages.test_probe", "🎉 这是一条测试消息，用于验证目标会话配置是否正确。")
	v.SetDefault("messages.test_report", "测试完成！成功 %d 个，失败 %d 个。")
}
