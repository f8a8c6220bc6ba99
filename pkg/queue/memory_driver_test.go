package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryDriverReportsDroppedDelayedJob(t *testing.T) {
	d := newMemoryDriver(1)
	dropped := make(chan error, 1)
	d.onDrop = func(err error) { dropped <- err }

	require.NoError(t, d.Push(context.Background(), []byte("first")))
	require.NoError(t, d.PushDelayed(context.Background(), []byte("retry"), 10*time.Millisecond))

	select {
	case err := <-dropped:
		assert.ErrorIs(t, err, ErrQueueFull)
	case <-time.After(2 * time.Second):
		t.Fatal("full queue did not report the dropped job")
	}
	assert.Equal(t, 1, d.Len())
}

func TestMemoryDriverDeliversDelayedJob(t *testing.T) {
	d := newMemoryDriver(1)
	require.NoError(t, d.PushDelayed(context.Background(), []byte("retry"), 10*time.Millisecond))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	payload, err := d.Pop(ctx)
	require.NoError(t, err)
	assert.Equal(t, "retry", string(payload))
}
