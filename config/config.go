package config

import (
	"fmt"

	"github.com/spf13/viper"
)

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

type DatabaseConfig struct {
	DSN          string `mapstructure:"dsn"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

type SchedulerConfig struct {
	// standard 5-field cron expressions
	ReminderSpec   string `mapstructure:"reminder_spec"`
	RecurrenceSpec string `mapstructure:"recurrence_spec"`
}

type SMTPConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	From     string `mapstructure:"from"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	SMTP      SMTPConfig      `mapstructure:"smtp"`
}

// Load reads configuration from the given file (default "config.yaml" in the
// working directory) with CHORECAST_-prefixed environment overrides.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.addr", ":5000")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("scheduler.reminder_spec", "0 8 * * *")
	v.SetDefault("scheduler.recurrence_spec", "0 2 * * *")

	if path == "" {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	} else {
		v.SetConfigFile(path)
	}

	v.SetEnvPrefix("CHORECAST")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if c.Database.DSN == "" {
		return nil, fmt.Errorf("database.dsn is required")
	}

	return &c, nil
}
