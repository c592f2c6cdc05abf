package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"larvaworker/internal/config"
	"larvaworker/internal/db"
	"larvaworker/internal/logging"
	"larvaworker/internal/processor"
	queue "larvaworker/internal/queue"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logging.Logger().Errorf("config load failed: %v", err)
		os.Exit(1)
	}

	if err := logging.SetLevel(cfg.LogLevel); err != nil {
		logging.Logger().Warnf("invalid log level %q, using info: %v", cfg.LogLevel, err)
	}
	logger := logging.Logger()

	source, err := db.NewSource(ctx, cfg)
	if err != nil {
		logger.Errorf("recording store setup failed: %v", err)
		os.Exit(1)
	}
	defer source.Close()

	if sqliteSource, ok := source.(*db.SQLiteReader); ok {
		if err := sqliteSource.Init(ctx); err != nil {
			logger.Errorf("sqlite schema init failed: %v", err)
			os.Exit(1)
		}
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Errorf("invalid redis url: %v", err)
		os.Exit(1)
	}

	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()

	q := queue.NewRedisQueue(redisClient)
	proc := processor.NewAnalysisProcessor(ctx, source, q, cfg.ReplyPrefix, cfg.ReplyTTL)

	handler := func(payload []byte) error {
		return proc.Handle(payload)
	}

	logger.Infof("larva worker using %s store, queue %s", cfg.StoreDriver, cfg.RedisQueue)

	// Use concurrent processing if worker count > 1
	if cfg.WorkerCount > 1 {
		logger.Infof("starting concurrent consumption with %d workers", cfg.WorkerCount)
		if err := q.ConsumeConcurrent(ctx, cfg.RedisQueue, cfg.WorkerCount, cfg.JobBufferSize, handler); err != nil && ctx.Err() == nil {
			logger.Errorf("queue consumption ended: %v", err)
			os.Exit(1)
		}
	} else {
		logger.Infof("starting single-threaded consumption")
		if err := q.Consume(ctx, cfg.RedisQueue, handler); err != nil && ctx.Err() == nil {
			logger.Errorf("queue consumption ended: %v", err)
			os.Exit(1)
		}
	}
}
