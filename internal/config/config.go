// Package config provides configuration loading and validation for the
// anti-spam bot. Values come from defaults, an optional YAML file, and
// ANTISPAM_-prefixed environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-telegram/bot/models"
	"github.com/spf13/viper"
)

// Config defines the application configuration.
type Config struct {
	Logger     LoggerConfig     `mapstructure:"logger"`
	Telegram   TelegramConfig   `mapstructure:"telegram"`
	Gemini     GeminiConfig     `mapstructure:"gemini"`
	Moderation ModerationConfig `mapstructure:"moderation"`
	State      StateConfig      `mapstructure:"state"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Scheduler  SchedulerConfig  `mapstructure:"scheduler"`
}

// LoggerConfig controls log level and output format.
type LoggerConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

// TelegramConfig holds the bot token plus the bot identity resolved at startup.
type TelegramConfig struct {
	Token string `mapstructure:"token" validate:"required"`

	// BotInfo is populated at runtime via GetMe, not from the config file.
	BotInfo *models.User `mapstructure:"-"`
}

// GeminiConfig configures the classifier client.
type GeminiConfig struct {
	APIKey            string  `mapstructure:"api_key" validate:"required"`
	Model             string  `mapstructure:"model" validate:"required"`
	Temperature       float32 `mapstructure:"temperature" validate:"min=0,max=2"`
	MaxRetries        int     `mapstructure:"max_retries" validate:"min=0"`
	RetryDelaySeconds int     `mapstructure:"retry_delay_seconds" validate:"min=0"`
}

// ModerationConfig tunes the rate filter and enforcement behavior.
// CheckThreshold serves double duty: messages beyond it skip classification,
// and a user whose counter exceeds it counts as trusted for dismiss actions.
type ModerationConfig struct {
	CheckThreshold  uint64        `mapstructure:"check_threshold" validate:"gt=0"`
	ContextMessages int           `mapstructure:"context_messages" validate:"gt=0"`
	MuteDuration    time.Duration `mapstructure:"mute_duration" validate:"required"`
}

// StateConfig locates the state snapshot file.
type StateConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

// DatabaseConfig locates the moderation audit database.
type DatabaseConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

// SchedulerConfig holds the scheduled task table keyed by task name.
type SchedulerConfig struct {
	Tasks map[string]TaskConfig `mapstructure:"tasks"`
}

// TaskConfig enables a named task and sets its cron schedule
// (six-field, with seconds).
type TaskConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule"`
}

// LoadConfig reads configuration from the given YAML file (which may be
// absent), layered over defaults and under environment variables, then
// validates the result.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetEnvPrefix("ANTISPAM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine: defaults plus environment variables
		// can fully configure the bot.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.json", false)

	// Registered with empty defaults so environment-only values are visible
	// to Unmarshal.
	v.SetDefault("telegram.token", "")
	v.SetDefault("gemini.api_key", "")

	v.SetDefault("gemini.model", "gemini-2.5-flash")
	v.SetDefault("gemini.temperature", 0.2)
	v.SetDefault("gemini.max_retries", 2)
	v.SetDefault("gemini.retry_delay_seconds", 2)

	v.SetDefault("moderation.check_threshold", 20)
	v.SetDefault("moderation.context_messages", 5)
	v.SetDefault("moderation.mute_duration", 24*time.Hour)

	v.SetDefault("state.path", "state.json")
	v.SetDefault("database.path", "antispam.db")

	v.SetDefault("scheduler.tasks.state_snapshot.enabled", true)
	v.SetDefault("scheduler.tasks.state_snapshot.schedule", "*/5 * * * * *")
	v.SetDefault("scheduler.tasks.sql_maintenance.enabled", true)
	v.SetDefault("scheduler.tasks.sql_maintenance.schedule", "0 0 4 * * *")
}
