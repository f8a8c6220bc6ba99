package schedule_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artisanmart/storefront/pkg/schedule"
)

func at(s string) time.Time {
	t, err := time.Parse("2006-01-02 15:04:05", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestParseCron(t *testing.T) {
	valid := []string{"* * * * *", "*/15 * * * *", "0 3 * * 1-5", "0,30 9-17 * * *", "5 0 1 1,7 0", "0 0 * * 7", "10-50/10 * * * *"}
	for _, expr := range valid {
		_, err := schedule.ParseCron(expr)
		assert.NoError(t, err, expr)
	}

	invalid := []string{"", "* * * *", "60 * * * *", "* 24 * * *", "*/0 * * * *", "a * * * *", "5-1 * * * *", "* * 0 * *"}
	for _, expr := range invalid {
		_, err := schedule.ParseCron(expr)
		assert.Error(t, err, expr)
	}
}

func TestCronMatch(t *testing.T) {
	spec, err := schedule.ParseCron("0,30 9-17 * * 1-5")
	require.NoError(t, err)

	assert.True(t, spec.Match(at("2026-10-19 09:30:00")))  // Monday
	assert.False(t, spec.Match(at("2026-10-19 09:15:00")))
	assert.False(t, spec.Match(at("2026-10-18 09:30:00"))) // Sunday
	assert.False(t, spec.Match(at("2026-10-19 18:00:00")))

	sunday, err := schedule.ParseCron("0 0 * * 7")
	require.NoError(t, err)
	assert.True(t, sunday.Match(at("2026-10-18 00:00:00")))

	next, ok := spec.Next(at("2026-10-16 17:30:00")) // Friday evening
	require.True(t, ok)
	assert.Equal(t, at("2026-10-19 09:00:00"), next)
}

func TestCronEntryFiresOncePerMinute(t *testing.T) {
	s := schedule.New()
	var runs atomic.Int32
	require.NoError(t, s.Cron("* * * * *").Name("tick").Run(func(context.Context) { runs.Add(1) }))

	ctx := context.Background()
	assert.Equal(t, []string{"tick"}, s.RunDue(ctx, at("2026-10-19 10:00:00")))
	assert.Empty(t, s.RunDue(ctx, at("2026-10-19 10:00:01")))
	assert.Empty(t, s.RunDue(ctx, at("2026-10-19 10:00:59")))
	assert.Equal(t, []string{"tick"}, s.RunDue(ctx, at("2026-10-19 10:01:00")))
	s.Wait()

	assert.EqualValues(t, 2, runs.Load())
}

func TestIntervalEntry(t *testing.T) {
	s := schedule.New()
	var runs atomic.Int32
	require.NoError(t, s.Every(10).Seconds().Name("sweep").Run(func(context.Context) { runs.Add(1) }))

	ctx := context.Background()
	start := at("2026-10-19 10:00:00")
	s.RunDue(ctx, start)
	s.RunDue(ctx, start.Add(5*time.Second))
	s.RunDue(ctx, start.Add(10*time.Second))
	s.Wait()

	assert.EqualValues(t, 2, runs.Load())
}

func TestWithoutOverlappingSkipsWhileRunning(t *testing.T) {
	s := schedule.New()
	release := make(chan struct{})
	started := make(chan struct{}, 2)
	require.NoError(t, s.Every(1).Seconds().Name("slow").WithoutOverlapping().Run(func(context.Context) {
		started <- struct{}{}
		<-release
	}))

	ctx := context.Background()
	start := at("2026-10-19 10:00:00")
	assert.Len(t, s.RunDue(ctx, start), 1)
	<-started
	assert.Empty(t, s.RunDue(ctx, start.Add(2*time.Second)))
	close(release)
	s.Wait()
}

func TestPanickingTaskRunsAfterHook(t *testing.T) {
	s := schedule.New()
	var after atomic.Bool
	require.NoError(t, s.Every(1).Minutes().Name("boom").
		After(func(context.Context) { after.Store(true) }).
		Run(func(context.Context) { panic("boom") }))

	s.RunDue(context.Background(), time.Now())
	s.Wait()
	assert.True(t, after.Load())
}

func TestRegisterReplaceAndRemove(t *testing.T) {
	s := schedule.New()
	noop := func(context.Context) {}

	assert.Error(t, s.Cron("bogus").Name("bad").Run(noop))
	require.NoError(t, s.Cron("0 * * * *").Name("export.1").Run(noop))
	require.NoError(t, s.Cron("30 2 * * *").Name("export.1").Run(noop))
	require.NoError(t, s.Hourly().Name("a.sweep").Run(noop))

	list := s.List()
	require.Len(t, list, 2)
	assert.Equal(t, "a.sweep", list[0].ID)
	assert.Equal(t, "every 1h0m0s", list[0].Frequency)
	assert.Equal(t, "30 2 * * *", list[1].Frequency)

	assert.True(t, s.Remove("export.1"))
	assert.False(t, s.Remove("export.1"))
	assert.Len(t, s.List(), 1)
}
