// Package scheduler queues deferred CRM write-back retries on redis via
// asynq. The synchronous attempt (and its failure) has already been surfaced
// to the caller by the time anything lands here; the queue only tries to
// close the gap afterwards.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"roofquote_backend/platform/config"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

type Client struct {
	client *asynq.Client
	queue  string
}

// WritebackScheduler enqueues deferred write-back retries.
type WritebackScheduler interface {
	ScheduleWritebackRetry(ctx context.Context, payload WritebackRetryPayload, delay time.Duration) error
}

func NewClient(cfg config.SchedulerConfig) (*Client, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL)
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	return &Client{
		client: asynq.NewClient(opt),
		queue:  queue,
	}, nil
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// ScheduleWritebackRetry enqueues the retry to run after the given delay.
// Safe on a nil client so callers without redis configured need no branching.
func (c *Client) ScheduleWritebackRetry(ctx context.Context, payload WritebackRetryPayload, delay time.Duration) error {
	if c == nil || c.client == nil {
		return nil
	}

	task, err := NewWritebackRetryTask(payload)
	if err != nil {
		return err
	}

	_, err = c.client.EnqueueContext(ctx, task,
		asynq.ProcessIn(delay),
		asynq.Queue(c.queue),
		asynq.MaxRetry(5),
	)
	return err
}

func redisClientOpt(redisURL string) (asynq.RedisClientOpt, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}

	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: opt.TLSConfig,
	}, nil
}
