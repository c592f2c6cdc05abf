package queue

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"larvaworker/internal/logging"
)

const (
	defaultAnalysisQueueKey = "larva_analysis"
	retrySuffix             = ":retry"
	dlqSuffix               = ":dlq"
	retryCounterSuffix      = ":retry-count:"
	maxRetryAttempts        = 3
	brPopBlock              = 5 * time.Second
)

// permanentError marks a handler failure that a retry cannot fix.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent wraps err so the job is moved to the DLQ without retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was wrapped with Permanent.
func IsPermanent(err error) bool {
	var pe *permanentError
	return errors.As(err, &pe)
}

// RedisQueue implements queue operations using Redis lists.
type RedisQueue struct {
	client *redis.Client
	key    string
}

// NewRedisQueue builds a Redis-backed queue helper.
func NewRedisQueue(client *redis.Client) *RedisQueue {
	return &RedisQueue{client: client, key: defaultAnalysisQueueKey}
}

// Reply pushes a response onto a reply list and bounds its lifetime with ttl.
func (q *RedisQueue) Reply(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	pipe := q.client.TxPipeline()
	pipe.RPush(ctx, key, payload)
	pipe.Expire(ctx, key, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("publish reply to %s: %w", key, err)
	}
	return nil
}

// Consume uses BRPOP to deliver jobs to the handler until the context is canceled.
func (q *RedisQueue) Consume(ctx context.Context, queueName string, handler func([]byte) error) error {
	logger := logging.Logger()
	if queueName == "" {
		queueName = q.key
	}
	retryKey := queueName + retrySuffix
	dlqKey := queueName + dlqSuffix

	for {
		if ctx.Err() != nil {
			logger.Warnf("redis consumer exiting: %v", ctx.Err())
			return ctx.Err()
		}

		payload, ok := q.pop(ctx, queueName, retryKey)
		if !ok {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			continue
		}
		q.dispatch(ctx, queueName, retryKey, dlqKey, payload, handler, "consumer")
	}
}

// ConsumeConcurrent uses BRPOP to feed jobs to a worker pool for concurrent processing.
func (q *RedisQueue) ConsumeConcurrent(ctx context.Context, queueName string, workerCount, bufferSize int, handler func([]byte) error) error {
	logger := logging.Logger()
	if queueName == "" {
		queueName = q.key
	}
	retryKey := queueName + retrySuffix
	dlqKey := queueName + dlqSuffix

	jobChan := make(chan []byte, bufferSize)
	var wg sync.WaitGroup

	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			name := fmt.Sprintf("worker %d", workerID)
			for payload := range jobChan {
				q.dispatch(ctx, queueName, retryKey, dlqKey, payload, handler, name)
			}
			logger.Infof("%s: exiting", name)
		}(i)
	}

	logger.Infof("started %d concurrent workers for queue %s", workerCount, queueName)

	stop := func() error {
		close(jobChan)
		wg.Wait()
		return ctx.Err()
	}

	for {
		if ctx.Err() != nil {
			logger.Warnf("redis consumer exiting: %v", ctx.Err())
			return stop()
		}

		payload, ok := q.pop(ctx, queueName, retryKey)
		if !ok {
			if ctx.Err() != nil {
				return stop()
			}
			continue
		}

		select {
		case jobChan <- payload:
		case <-ctx.Done():
			return stop()
		}
	}
}

// pop blocks for the next job, preferring the retry list.
func (q *RedisQueue) pop(ctx context.Context, queueName, retryKey string) ([]byte, bool) {
	logger := logging.Logger()
	result, err := q.client.BRPop(ctx, brPopBlock, retryKey, queueName).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false
		}
		if ctx.Err() != nil {
			logger.Warnf("redis BRPOP canceled: %v", ctx.Err())
			return nil, false
		}
		logger.Warnf("redis BRPOP error: %v", err)
		return nil, false
	}
	if len(result) < 2 {
		return nil, false
	}
	return []byte(result[1]), true
}

// dispatch runs the handler and routes failures to the retry list or the DLQ.
func (q *RedisQueue) dispatch(ctx context.Context, queueName, retryKey, dlqKey string, payload []byte, handler func([]byte) error, who string) {
	logger := logging.Logger()
	err := handler(payload)
	if err == nil {
		_ = q.clearRetryCounter(ctx, queueName, payload)
		return
	}

	if IsPermanent(err) {
		logger.Warnf("%s: permanent handler error, moving job to DLQ: %v", who, err)
		if err := q.client.LPush(ctx, dlqKey, payload).Err(); err != nil {
			logger.Errorf("%s: DLQ push failed: %v", who, err)
		}
		_ = q.clearRetryCounter(ctx, queueName, payload)
		return
	}

	logger.Warnf("%s: handler error, scheduling retry: %v", who, err)
	if err := q.handleRetry(ctx, queueName, retryKey, dlqKey, payload); err != nil {
		logger.Errorf("%s: retry handling failed: %v", who, err)
	}
}

func (q *RedisQueue) handleRetry(ctx context.Context, baseQueue, retryKey, dlqKey string, payload []byte) error {
	logger := logging.Logger()
	attempt, err := q.incrementRetryCounter(ctx, baseQueue, payload)
	if err != nil {
		return err
	}
	if attempt > maxRetryAttempts {
		logger.Warnf("moving job to DLQ after %d attempts", attempt-1)
		_ = q.client.LPush(ctx, dlqKey, payload).Err()
		_ = q.clearRetryCounter(ctx, baseQueue, payload)
		return nil
	}
	return q.client.LPush(ctx, retryKey, payload).Err()
}

func (q *RedisQueue) incrementRetryCounter(ctx context.Context, queueName string, payload []byte) (int64, error) {
	key := retryCounterKey(queueName, payload)
	count, err := q.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	_ = q.client.Expire(ctx, key, 24*time.Hour).Err()
	return count, nil
}

func (q *RedisQueue) clearRetryCounter(ctx context.Context, queueName string, payload []byte) error {
	key := retryCounterKey(queueName, payload)
	return q.client.Del(ctx, key).Err()
}

func retryCounterKey(queue string, payload []byte) string {
	sum := sha256.Sum256(payload)
	return fmt.Sprintf("%s%s%s", queue, retryCounterSuffix, hex.EncodeToString(sum[:]))
}
