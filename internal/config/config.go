package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds runtime configuration for the larva analysis worker.
type Config struct {
	DBURL         string        `mapstructure:"db_url"`
	RedisURL      string        `mapstructure:"redis_url"`
	RedisQueue    string        `mapstructure:"redis_queue"`
	WorkerCount   int           `mapstructure:"worker_count"`
	JobBufferSize int           `mapstructure:"job_buffer_size"`
	ReplyPrefix   string        `mapstructure:"reply_prefix"`
	ReplyTTL      time.Duration `mapstructure:"reply_ttl"`
	StoreDriver   string        `mapstructure:"store_driver"`
	SQLitePath    string        `mapstructure:"sqlite_path"`
	LogLevel      string        `mapstructure:"log_level"`
}

var keys = []string{
	"db_url", "redis_url", "redis_queue", "worker_count", "job_buffer_size",
	"reply_prefix", "reply_ttl", "store_driver", "sqlite_path", "log_level",
}

// Load builds a Config from environment variables (DB_URL, REDIS_URL, ...),
// optionally layered over the file named by CONFIG_FILE.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, k := range keys {
		if err := v.BindEnv(k); err != nil {
			return nil, fmt.Errorf("bind %s: %w", k, err)
		}
	}

	if path := v.GetString("config_file"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("redis_queue", "larva_analysis")
	v.SetDefault("worker_count", 1)
	v.SetDefault("job_buffer_size", 16)
	v.SetDefault("reply_prefix", "larva_analysis:reply:")
	v.SetDefault("reply_ttl", "10m")
	v.SetDefault("store_driver", "postgres")
	v.SetDefault("sqlite_path", "file:replays.db?_pragma=busy_timeout(5000)")
	v.SetDefault("log_level", "info")
}

// Validate checks that the required settings are present.
func (c *Config) Validate() error {
	switch strings.ToLower(c.StoreDriver) {
	case "postgres", "postgresql":
		if c.DBURL == "" {
			return fmt.Errorf("DB_URL is required")
		}
	case "sqlite":
	default:
		return fmt.Errorf("STORE_DRIVER must be postgres or sqlite, got %q", c.StoreDriver)
	}

	if c.RedisURL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}
	if c.WorkerCount < 1 {
		return fmt.Errorf("WORKER_COUNT must be at least 1")
	}
	if c.JobBufferSize < 0 {
		return fmt.Errorf("JOB_BUFFER_SIZE must not be negative")
	}
	if c.ReplyTTL <= 0 {
		return fmt.Errorf("REPLY_TTL must be positive")
	}
	return nil
}
