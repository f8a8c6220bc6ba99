package event_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/artisanmart/storefront/pkg/event"
	"github.com/artisanmart/storefront/pkg/workerpool"
)

func TestFireRunsListenersInOrderAndJoinsErrors(t *testing.T) {
	bus := event.NewBus(nil)
	var order []string
	bus.Listen("order.placed", "receipt", func(_ context.Context, p any) error {
		order = append(order, "receipt:"+p.(string))
		return errors.New("smtp down")
	})
	bus.Listen("order.placed", "push", func(_ context.Context, p any) error {
		order = append(order, "push:"+p.(string))
		return nil
	})

	err := bus.Fire(context.Background(), "order.placed", "ORD-1")
	assert.ErrorContains(t, err, "receipt: smtp down")
	assert.Equal(t, []string{"receipt:ORD-1", "push:ORD-1"}, order)
	assert.Equal(t, []string{"receipt", "push"}, bus.Listeners("order.placed"))
	assert.NoError(t, bus.Fire(context.Background(), "unknown", nil))
}

func TestFireAsyncSurvivesFailuresAndPanics(t *testing.T) {
	pool := workerpool.New(2)
	bus := event.NewBus(pool)

	var ran atomic.Int32
	bus.Listen("product.restocked", "fails", func(context.Context, any) error {
		ran.Add(1)
		return errors.New("nope")
	})
	bus.Listen("product.restocked", "panics", func(context.Context, any) error {
		ran.Add(1)
		panic("bad listener")
	})
	bus.Listen("product.restocked", "works", func(context.Context, any) error {
		ran.Add(1)
		return nil
	})

	bus.FireAsync("product.restocked", uint(1))
	pool.Shutdown()

	assert.EqualValues(t, 3, ran.Load())
}

func TestFireAsyncAfterShutdownDrops(t *testing.T) {
	pool := workerpool.New(1)
	pool.Shutdown()
	bus := event.NewBus(pool)

	var ran atomic.Bool
	bus.Listen("e", "l", func(context.Context, any) error { ran.Store(true); return nil })
	bus.FireAsync("e", nil)
	assert.False(t, ran.Load())
}
