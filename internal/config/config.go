package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
//
// Only the server group is strictly required: every other group powers one
// feature path and, when left unset, degrades that path to a logged no-op
// instead of failing startup.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"   validate:"required"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Schedule ScheduleConfig `mapstructure:"schedule"`
	Queue    QueueConfig    `mapstructure:"queue"`
	Notify   NotifyConfig   `mapstructure:"notify"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"omitempty,url"`
}

// RedisConfig contains connection settings for the Redis instance backing
// the durable scheduler, the notification queue, and the pub/sub channel.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db" validate:"gte=0"`
}

// AuthConfig contains bearer-token verification settings. Tokens are issued
// by the external identity provider; this service only verifies them.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret" validate:"omitempty,min=32"`
	// OpsGroup is the group claim required on internal trigger endpoints.
	OpsGroup string `mapstructure:"ops_group"`
}

// ScheduleConfig configures the one-shot schedule machinery.
type ScheduleConfig struct {
	// ReminderOffsetMinutes is how long before a task's deadline the
	// reminder schedule fires. Defaults to 60.
	ReminderOffsetMinutes int `mapstructure:"reminder_offset_minutes" validate:"gt=0"`

	// ReminderTarget and ExpirationTarget name the callback targets invoked
	// when a schedule of the corresponding purpose fires. When a target is
	// empty, creation of schedules for that purpose is skipped with a log
	// line rather than treated as an error.
	ReminderTarget   string `mapstructure:"reminder_target"`
	ExpirationTarget string `mapstructure:"expiration_target"`

	// PollIntervalSeconds is how often the in-process poller checks for due
	// schedules.
	PollIntervalSeconds int `mapstructure:"poll_interval_seconds" validate:"gt=0"`

	// SweepCron is the cron spec for the periodic full-scan expiration sweep.
	SweepCron string `mapstructure:"sweep_cron"`
}

// QueueConfig identifies the durable notification queue.
type QueueConfig struct {
	Name string `mapstructure:"name"`
}

// NotifyConfig contains notification channel settings.
type NotifyConfig struct {
	Channel string `mapstructure:"channel"`
	// AdminAddress receives the admin-oriented copy of every expiration
	// notification.
	AdminAddress string `mapstructure:"admin_address" validate:"omitempty,email"`
}
