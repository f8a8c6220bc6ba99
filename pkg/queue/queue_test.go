package queue_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artisanmart/storefront/pkg/database"
	"github.com/artisanmart/storefront/pkg/queue"
)

type echoJob struct {
	Val  string `json:"val"`
	seen chan string
}

func (echoJob) JobName() string { return "echo" }

func (j *echoJob) Handle(context.Context) error {
	j.seen <- j.Val
	return nil
}

type failJob struct {
	calls *atomic.Int32
}

func (failJob) JobName() string { return "fail" }

func (j *failJob) Handle(context.Context) error {
	j.calls.Add(1)
	return errors.New("always fails")
}

func noBackoff(int) time.Duration { return 0 }

func TestDispatchAndProcess(t *testing.T) {
	seen := make(chan string, 1)
	m := queue.NewManager(queue.NewMemoryDriver())
	m.Register("echo", func() queue.Job { return &echoJob{seen: seen} })

	ctx, cancel := context.WithCancel(context.Background())
	defer func() { cancel(); m.Wait() }()
	m.Start(ctx, 2)

	require.NoError(t, m.Dispatch(ctx, &echoJob{Val: "hello"}))

	select {
	case v := <-seen:
		assert.Equal(t, "hello", v)
	case <-time.After(2 * time.Second):
		t.Fatal("job was not processed")
	}
}

func TestExhaustedJobIsPersisted(t *testing.T) {
	db, err := database.OpenMemory()
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&queue.FailedJobRecord{}))

	var calls atomic.Int32
	d := queue.NewMemoryDriver()
	m := queue.NewManager(d, queue.WithMaxRetry(2), queue.WithBackoff(noBackoff), queue.WithFailedJobStore(db))
	m.Register("fail", func() queue.Job { return &failJob{calls: &calls} })

	ctx := context.Background()
	require.NoError(t, m.Dispatch(ctx, &failJob{}))
	raw, err := d.Pop(ctx)
	require.NoError(t, err)
	require.NoError(t, m.Process(ctx, raw))

	assert.EqualValues(t, 2, calls.Load())
	require.Len(t, m.FailedJobs(), 1)
	assert.Equal(t, "always fails", m.FailedJobs()[0].Err)

	stored, err := m.StoredFailedJobs(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "fail", stored[0].JobType)
	assert.Equal(t, 2, stored[0].Attempts)

	require.NoError(t, m.RetryFailed(ctx, stored[0].ID))
	assert.Equal(t, 1, d.Len())
	stored, err = m.StoredFailedJobs(ctx)
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestProcessRejectsUnknownJob(t *testing.T) {
	m := queue.NewManager(queue.NewMemoryDriver())
	err := m.Process(context.Background(), []byte(`{"type":"ghost","payload":{}}`))
	assert.ErrorIs(t, err, queue.ErrUnknownJob)
}

func TestDispatchAfterWaitsForDelay(t *testing.T) {
	d := queue.NewMemoryDriver()
	m := queue.NewManager(d)
	require.NoError(t, m.DispatchAfter(context.Background(), &echoJob{Val: "later"}, 50*time.Millisecond))
	assert.Equal(t, 0, d.Len())
	assert.Eventually(t, func() bool { return d.Len() == 1 }, time.Second, 10*time.Millisecond)
}

func TestRedisDriverPromotesDelayedJobs(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	d := queue.NewRedisDriver(rdb, "test:queue")
	ctx := context.Background()

	require.NoError(t, d.Push(ctx, []byte("now")))
	require.NoError(t, d.PushDelayed(ctx, []byte("soon"), 20*time.Millisecond))

	ready, delayed, err := d.Pending(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, ready)
	assert.EqualValues(t, 1, delayed)

	got, err := d.Pop(ctx)
	require.NoError(t, err)
	assert.Equal(t, "now", string(got))

	time.Sleep(30 * time.Millisecond)
	got, err = d.Pop(ctx)
	require.NoError(t, err)
	assert.Equal(t, "soon", string(got))

	ready, delayed, err = d.Pending(ctx)
	require.NoError(t, err)
	assert.Zero(t, ready)
	assert.Zero(t, delayed)
}
