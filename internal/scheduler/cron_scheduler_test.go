package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noop(context.Context) {}

func TestNewCronScheduler(t *testing.T) {
	s, err := NewCronScheduler("0 12 * * *", nil, noop)
	require.NoError(t, err)
	assert.Equal(t, time.Local, s.loc)
}

func TestNewCronScheduler_Invalid(t *testing.T) {
	tests := []struct {
		name string
		spec string
		job  Job
	}{
		{"bad expression", "not a cron", noop},
		{"too many fields", "0 0 12 * * * *", noop},
		{"nil job", "0 12 * * *", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewCronScheduler(tt.spec, time.UTC, tt.job)
			assert.Error(t, err)
			assert.Nil(t, s)
		})
	}
}

func TestCronScheduler_NextUsesLocation(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	s, err := NewCronScheduler("0 12 * * *", loc, noop)
	require.NoError(t, err)

	// 15:00 UTC is 11:00 in New York during DST.
	now := time.Date(2024, 6, 1, 15, 0, 0, 0, time.UTC)
	next := s.Next(now)
	assert.True(t, next.Equal(time.Date(2024, 6, 1, 12, 0, 0, 0, loc)), "got %s", next)
	assert.Equal(t, loc, next.Location())

	// Just after noon local, the next run is tomorrow.
	now = time.Date(2024, 6, 1, 16, 0, 1, 0, time.UTC)
	next = s.Next(now)
	assert.True(t, next.Equal(time.Date(2024, 6, 2, 12, 0, 0, 0, loc)), "got %s", next)
}

func TestCronScheduler_RunsAndStops(t *testing.T) {
	var calls atomic.Int32
	ran := make(chan struct{}, 8)

	s, err := NewCronScheduler("@every 1s", time.UTC, func(ctx context.Context) {
		calls.Add(1)
		assert.NotNil(t, ctx)
		ran <- struct{}{}
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	s.Start(ctx)

	select {
	case <-ran:
	case <-time.After(3 * time.Second):
		t.Fatal("job was not triggered")
	}

	cancel()
	select {
	case <-s.Done():
	case <-time.After(3 * time.Second):
		t.Fatal("scheduler did not stop")
	}

	stopped := calls.Load()
	time.Sleep(1500 * time.Millisecond)
	assert.Equal(t, stopped, calls.Load())
}

func TestCronScheduler_SkipsOverlappingTicks(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})

	s, err := NewCronScheduler("@every 1s", time.UTC, func(ctx context.Context) {
		calls.Add(1)
		select {
		case <-release:
		case <-ctx.Done():
		}
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)

	time.Sleep(3500 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())

	close(release)
	cancel()
	<-s.Done()
}

func TestCronScheduler_RecoversFromPanic(t *testing.T) {
	var calls atomic.Int32

	s, err := NewCronScheduler("@every 1s", time.UTC, func(context.Context) {
		calls.Add(1)
		panic("boom")
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)

	assert.Eventually(t, func() bool { return calls.Load() >= 2 }, 4*time.Second, 100*time.Millisecond)
	cancel()
	<-s.Done()
}

func TestCronLogger(t *testing.T) {
	entry := logrus.NewEntry(logrus.New())
	l := cronLogger{entry: entry}

	assert.NotPanics(t, func() {
		l.Info("schedule", "now", time.Now(), "entry", 1)
		l.Error(errors.New("boom"), "panic", "stack", "...")
		l.Info("odd", "dangling")
	})
}

func TestFieldsOf(t *testing.T) {
	fields := fieldsOf([]interface{}{"a", 1, 2, "b", "dangling"})
	assert.Equal(t, logrus.Fields{"a": 1, "2": "b"}, fields)
}
