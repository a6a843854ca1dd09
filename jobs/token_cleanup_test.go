package jobs

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

type countingCleaner struct {
	calls atomic.Int32
	err   error
}

func (c *countingCleaner) CleanupExpiredTokens(context.Context) (int64, error) {
	c.calls.Add(1)
	return 1, c.err
}

func TestTokenCleanupJobRunsImmediatelyAndOnTick(t *testing.T) {
	cleaner := &countingCleaner{}
	job := NewTokenCleanupJob(cleaner, 10*time.Millisecond, zerolog.Nop())

	job.Start(context.Background())
	require.Eventually(t, func() bool { return cleaner.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
	job.Stop()

	after := cleaner.calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, cleaner.calls.Load())
}

func TestTokenCleanupJobStopsWithContext(t *testing.T) {
	cleaner := &countingCleaner{err: errors.New("db down")}
	job := NewTokenCleanupJob(cleaner, time.Hour, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	job.Start(ctx)
	require.Eventually(t, func() bool { return cleaner.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-job.done:
	case <-time.After(time.Second):
		t.Fatal("job did not stop on context cancel")
	}
}
