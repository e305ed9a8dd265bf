package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Default values applied before reading any configuration source.
const (
	defaultPort                  = 8080
	defaultLogLevel              = "info"
	defaultRedisAddr             = "localhost:6379"
	defaultReminderOffsetMinutes = 60
	defaultReminderTarget        = "reminder-send"
	defaultExpirationTarget      = "expiration-check"
	defaultPollIntervalSeconds   = 30
	defaultSweepCron             = "@every 5m"
	defaultQueueName             = "taskward:notifications"
	defaultChannel               = "taskward:expirations"
	defaultAdminAddress          = "ops@taskward.dev"
	defaultOpsGroup              = "ops"
)

// Load reads configuration from environment variables and an optional
// config.yaml in the working directory. Environment variables use the
// TASKWARD_ prefix with underscores separating nested keys (e.g.
// TASKWARD_SERVER_PORT). Environment variables take precedence over file
// values, which take precedence over defaults.
//
// Returns a populated Config or an error if loading/validation fails.
func Load() (*Config, error) {
	v := viper.New()

	// Defaults keep every feature path usable out of the box; the admin
	// address and reminder offset are the source system's fixed values,
	// overridable here.
	v.SetDefault("server.port", defaultPort)
	v.SetDefault("server.log_level", defaultLogLevel)
	v.SetDefault("database.url", "")
	v.SetDefault("redis.addr", defaultRedisAddr)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.ops_group", defaultOpsGroup)
	v.SetDefault("schedule.reminder_offset_minutes", defaultReminderOffsetMinutes)
	v.SetDefault("schedule.reminder_target", defaultReminderTarget)
	v.SetDefault("schedule.expiration_target", defaultExpirationTarget)
	v.SetDefault("schedule.poll_interval_seconds", defaultPollIntervalSeconds)
	v.SetDefault("schedule.sweep_cron", defaultSweepCron)
	v.SetDefault("queue.name", defaultQueueName)
	v.SetDefault("notify.channel", defaultChannel)
	v.SetDefault("notify.admin_address", defaultAdminAddress)

	// Optional config file; absence is not an error.
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Environment variables: TASKWARD_SERVER_PORT -> server.port
	v.SetEnvPrefix("TASKWARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}
