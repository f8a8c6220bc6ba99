package queue

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultRedisPrefix = "storefront:queue"

// RedisDriver keeps ready jobs in a list (LPUSH/BRPOP) and delayed jobs in
// a sorted set scored by the Unix time they become due. Due jobs are moved
// to the list by whichever worker pops next.
type RedisDriver struct {
	rdb        redis.UniversalClient
	readyKey   string
	delayedKey string
	poll       time.Duration
}

// NewRedisDriver creates a driver on rdb, usually the client shared with
// pkg/cache. prefix namespaces the keys; empty uses "storefront:queue".
func NewRedisDriver(rdb redis.UniversalClient, prefix string) *RedisDriver {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &RedisDriver{
		rdb:        rdb,
		readyKey:   prefix + ":jobs",
		delayedKey: prefix + ":delayed",
		poll:       time.Second,
	}
}

func (d *RedisDriver) Push(ctx context.Context, payload []byte) error {
	if err := d.rdb.LPush(ctx, d.readyKey, payload).Err(); err != nil {
		return fmt.Errorf("queue/redis: push: %w", err)
	}
	return nil
}

// Pop promotes due delayed jobs and then waits up to one poll interval for
// a ready job.
func (d *RedisDriver) Pop(ctx context.Context) ([]byte, error) {
	if err := d.promote(ctx); err != nil {
		return nil, err
	}
	result, err := d.rdb.BRPop(ctx, d.poll, d.readyKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("queue/redis: pop: %w", err)
	}
	if len(result) < 2 {
		return nil, nil
	}
	return []byte(result[1]), nil
}

func (d *RedisDriver) PushDelayed(ctx context.Context, payload []byte, delay time.Duration) error {
	due := float64(time.Now().Add(delay).UnixMilli())
	if err := d.rdb.ZAdd(ctx, d.delayedKey, redis.Z{Score: due, Member: string(payload)}).Err(); err != nil {
		return fmt.Errorf("queue/redis: push delayed: %w", err)
	}
	return nil
}

// promote moves due jobs to the ready list. ZREM decides which worker owns
// a job, so concurrent workers never push it twice.
func (d *RedisDriver) promote(ctx context.Context) error {
	now := strconv.FormatInt(time.Now().UnixMilli(), 10)
	due, err := d.rdb.ZRangeByScore(ctx, d.delayedKey, &redis.ZRangeBy{Min: "-inf", Max: now}).Result()
	if err != nil {
		return fmt.Errorf("queue/redis: scan delayed: %w", err)
	}
	for _, job := range due {
		removed, err := d.rdb.ZRem(ctx, d.delayedKey, job).Result()
		if err != nil {
			return fmt.Errorf("queue/redis: claim delayed: %w", err)
		}
		if removed == 0 {
			continue
		}
		if err := d.rdb.LPush(ctx, d.readyKey, job).Err(); err != nil {
			return fmt.Errorf("queue/redis: promote: %w", err)
		}
	}
	return nil
}

// Pending reports ready and delayed job counts.
func (d *RedisDriver) Pending(ctx context.Context) (ready, delayed int64, err error) {
	if ready, err = d.rdb.LLen(ctx, d.readyKey).Result(); err != nil {
		return 0, 0, fmt.Errorf("queue/redis: llen: %w", err)
	}
	if delayed, err = d.rdb.ZCard(ctx, d.delayedKey).Result(); err != nil {
		return 0, 0, fmt.Errorf("queue/redis: zcard: %w", err)
	}
	return ready, delayed, nil
}
