package recovery

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/kbukum/diarlive/errors"
	"github.com/kbukum/diarlive/logger"
)

// RedisQueue pushes jobs onto a Redis list. Consumers BRPOP from the
// other end.
type RedisQueue struct {
	rdb *goredis.Client
	key string
	log *logger.Logger
}

// NewRedisQueue connects to Redis and verifies the connection.
func NewRedisQueue(ctx context.Context, cfg RedisConfig, log *logger.Logger) (*RedisQueue, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})
	pingCtx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}
	log.Info("Recovery queue connected", logger.F{
		"backend": BackendRedis,
		"addr":    cfg.Addr,
		"key":     cfg.Key,
	})
	return NewRedisQueueFromClient(rdb, cfg.Key, log), nil
}

// NewRedisQueueFromClient wraps an existing client.
func NewRedisQueueFromClient(rdb *goredis.Client, key string, log *logger.Logger) *RedisQueue {
	return &RedisQueue{rdb: rdb, key: key, log: log}
}

func (q *RedisQueue) Name() string { return BackendRedis }

func (q *RedisQueue) Enqueue(ctx context.Context, job Job) error {
	if err := job.Validate(); err != nil {
		return err
	}
	data, err := job.Marshal()
	if err != nil {
		return fmt.Errorf("marshal recovery job: %w", err)
	}
	start := time.Now()
	if err := q.rdb.LPush(ctx, q.key, data).Err(); err != nil {
		return errors.RecoveryFailed(job.MeetingID, err)
	}
	q.log.Debug("Recovery job pushed", logger.F{
		logger.FieldMeetingID: job.MeetingID,
		"job_id":              job.ID,
		logger.FieldDuration:  time.Since(start).Milliseconds(),
	})
	return nil
}

// Len reports the number of jobs waiting in the list.
func (q *RedisQueue) Len(ctx context.Context) (int64, error) {
	return q.rdb.LLen(ctx, q.key).Result()
}

// Ping checks the connection.
func (q *RedisQueue) Ping(ctx context.Context) error {
	return q.rdb.Ping(ctx).Err()
}

// Close closes the client.
func (q *RedisQueue) Close() error {
	return q.rdb.Close()
}
