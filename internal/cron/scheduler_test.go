package cron

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJob_RunsWrappedFunc(t *testing.T) {
	var calls int32
	job := NewJob("atr:BTCUSDT", func() error {
		atomic.AddInt32(&calls, 1)
		return nil
	})
	assert.Equal(t, "atr:BTCUSDT", job.Name())
	require.NoError(t, job.Run())
	require.NoError(t, job.Run())
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestNewContextJob_PassesFixedContext(t *testing.T) {
	type key struct{}
	ctx := context.WithValue(context.Background(), key{}, "v")
	var seen any
	job := NewContextJob("liquidation_stream", ctx, func(c context.Context) error {
		seen = c.Value(key{})
		return nil
	})
	require.NoError(t, job.Run())
	assert.Equal(t, "v", seen)
}

func TestNewContextJob_PropagatesError(t *testing.T) {
	wantErr := errors.New("boom")
	job := NewContextJob("funding", context.Background(), func(c context.Context) error {
		return wantErr
	})
	assert.ErrorIs(t, job.Run(), wantErr)
}

func TestScheduler_AddJobRunsOnSchedule(t *testing.T) {
	s := New(zerolog.Nop())
	done := make(chan struct{}, 1)
	job := NewJob("tick", func() error {
		select {
		case done <- struct{}{}:
		default:
		}
		return nil
	})
	require.NoError(t, s.AddJob("* * * * * *", job))
	s.Start()
	defer s.Stop()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("job did not fire within 2s of a 1s schedule")
	}
}

func TestScheduler_JobErrorDoesNotStopScheduler(t *testing.T) {
	s := New(zerolog.Nop())
	var runs int32
	job := NewJob("failing", func() error {
		atomic.AddInt32(&runs, 1)
		return errors.New("transient failure")
	})
	require.NoError(t, s.AddJob("* * * * * *", job))
	s.Start()
	defer s.Stop()

	time.Sleep(2200 * time.Millisecond)
	assert.GreaterOrEqual(t, atomic.LoadInt32(&runs), int32(2))
}

func TestScheduler_AddJobRejectsInvalidSchedule(t *testing.T) {
	s := New(zerolog.Nop())
	err := s.AddJob("not a cron expression", NewJob("noop", func() error { return nil }))
	assert.Error(t, err)
}
