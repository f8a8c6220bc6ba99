package queue

import (
	"context"
	"errors"
	"time"

	"github.com/artisanmart/storefront/pkg/logger"
)

var ErrQueueFull = errors.New("queue: memory queue is full")

// MemoryDriver is a channel-backed driver. Jobs do not survive a restart.
type MemoryDriver struct {
	ch     chan []byte
	onDrop func(error)
}

// NewMemoryDriver creates an in-memory queue holding up to 1000 jobs.
func NewMemoryDriver() *MemoryDriver {
	return newMemoryDriver(1000)
}

func newMemoryDriver(size int) *MemoryDriver {
	return &MemoryDriver{ch: make(chan []byte, size)}
}

func (d *MemoryDriver) Push(ctx context.Context, payload []byte) error {
	select {
	case d.ch <- payload:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrQueueFull
	}
}

func (d *MemoryDriver) Pop(ctx context.Context) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case payload := <-d.ch:
		return payload, nil
	}
}

// PushDelayed holds payload in a timer until it is due. A job that comes
// due while the queue is full is logged and dropped.
func (d *MemoryDriver) PushDelayed(_ context.Context, payload []byte, delay time.Duration) error {
	time.AfterFunc(delay, func() {
		if err := d.Push(context.Background(), payload); err != nil {
			logger.Error("queue: delayed dispatch failed", "driver", "memory", "error", err)
			if d.onDrop != nil {
				d.onDrop(err)
			}
		}
	})
	return nil
}

// Len reports how many jobs are waiting.
func (d *MemoryDriver) Len() int { return len(d.ch) }
