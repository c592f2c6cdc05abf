package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"CONFIG_FILE", "DB_URL", "REDIS_URL", "REDIS_QUEUE", "WORKER_COUNT", "JOB_BUFFER_SIZE",
		"REPLY_PREFIX", "REPLY_TTL", "STORE_DRIVER", "SQLITE_PATH", "LOG_LEVEL",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("DB_URL", "postgres://localhost/replays")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.RedisQueue != "larva_analysis" {
		t.Errorf("RedisQueue = %q", cfg.RedisQueue)
	}
	if cfg.WorkerCount != 1 || cfg.JobBufferSize != 16 {
		t.Errorf("workers = %d, buffer = %d", cfg.WorkerCount, cfg.JobBufferSize)
	}
	if cfg.ReplyTTL != 10*time.Minute {
		t.Errorf("ReplyTTL = %v", cfg.ReplyTTL)
	}
	if cfg.StoreDriver != "postgres" || cfg.LogLevel != "info" {
		t.Errorf("driver = %q, level = %q", cfg.StoreDriver, cfg.LogLevel)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("REDIS_URL", "redis://cache:6379/1")
	t.Setenv("STORE_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", "/tmp/replays.db")
	t.Setenv("WORKER_COUNT", "4")
	t.Setenv("REPLY_TTL", "90s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.WorkerCount != 4 {
		t.Errorf("WorkerCount = %d, want 4", cfg.WorkerCount)
	}
	if cfg.ReplyTTL != 90*time.Second {
		t.Errorf("ReplyTTL = %v", cfg.ReplyTTL)
	}
	if cfg.SQLitePath != "/tmp/replays.db" {
		t.Errorf("SQLitePath = %q", cfg.SQLitePath)
	}
}

func TestLoadConfigFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "worker.yaml")
	content := "db_url: postgres://file/replays\nredis_url: redis://file:6379/0\nredis_queue: from_file\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("REDIS_QUEUE", "from_env")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DBURL != "postgres://file/replays" {
		t.Errorf("DBURL = %q", cfg.DBURL)
	}
	if cfg.RedisQueue != "from_env" {
		t.Errorf("environment must win over the file, got %q", cfg.RedisQueue)
	}
}

func TestLoadMissingRequired(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "no db url", env: map[string]string{"REDIS_URL": "redis://localhost:6379/0"}},
		{name: "no redis url", env: map[string]string{"DB_URL": "postgres://localhost/replays"}},
		{name: "bad driver", env: map[string]string{"REDIS_URL": "redis://x", "STORE_DRIVER": "mongo"}},
		{name: "zero workers", env: map[string]string{"REDIS_URL": "redis://x", "DB_URL": "postgres://x", "WORKER_COUNT": "0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Errorf("expected an error")
			}
		})
	}
}
