package cache_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artisanmart/storefront/pkg/cache"
)

type item struct {
	Name  string `json:"name"`
	Price string `json:"price"`
}

func newStore(t *testing.T) (*cache.Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return cache.New(rdb, "test:"), mr
}

func TestSetGetDel(t *testing.T) {
	s, mr := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "products:1", item{Name: "Mug", Price: "12.50"}, time.Minute))
	assert.True(t, mr.Exists("test:products:1"))

	var got item
	require.True(t, s.Get(ctx, "products:1", &got))
	assert.Equal(t, "Mug", got.Name)

	require.NoError(t, s.Del(ctx, "products:1"))
	assert.False(t, s.Get(ctx, "products:1", &got))
}

func TestDelPrefix(t *testing.T) {
	s, mr := newStore(t)
	ctx := context.Background()
	for _, k := range []string{"products:list:a", "products:list:b", "products:1"} {
		require.NoError(t, s.Set(ctx, k, 1, time.Minute))
	}

	require.NoError(t, s.DelPrefix(ctx, "products:list:"))
	assert.False(t, mr.Exists("test:products:list:a"))
	assert.False(t, mr.Exists("test:products:list:b"))
	assert.True(t, mr.Exists("test:products:1"))
}

func TestRememberLoadsOnceUnderContention(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	var loads atomic.Int32
	release := make(chan struct{})
	load := func(context.Context) (any, error) {
		loads.Add(1)
		<-release
		return []item{{Name: "Vase"}}, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var out []item
			assert.NoError(t, s.Remember(ctx, "products:list:x", time.Minute, &out, load))
			assert.Equal(t, "Vase", out[0].Name)
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	assert.EqualValues(t, 1, loads.Load())

	var out []item
	require.NoError(t, s.Remember(ctx, "products:list:x", time.Minute, &out, func(context.Context) (any, error) {
		t.Fatal("expected a cache hit")
		return nil, nil
	}))
}

func TestRememberPropagatesErrors(t *testing.T) {
	s, _ := newStore(t)
	var out []item
	err := s.Remember(context.Background(), "k", time.Minute, &out, func(context.Context) (any, error) {
		return nil, errors.New("db down")
	})
	assert.EqualError(t, err, "db down")
}

func TestDisabledStore(t *testing.T) {
	s := cache.New(nil, "")
	ctx := context.Background()
	assert.False(t, s.Enabled())
	require.NoError(t, s.Set(ctx, "k", 1, time.Minute))
	require.NoError(t, s.DelPrefix(ctx, "k"))

	var n int
	require.NoError(t, s.Remember(ctx, "k", time.Minute, &n, func(context.Context) (any, error) { return 5, nil }))
	assert.Equal(t, 5, n)
}
