package syncengine

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTriggerSoonerDeadlineWins(t *testing.T) {
	tr := newTrigger("t", time.Hour, time.Now)
	tr.arm(time.Hour)
	assert.Greater(t, tr.next(), 59*time.Minute)

	tr.arm(time.Millisecond)
	assert.LessOrEqual(t, tr.next(), time.Millisecond)

	tr.arm(time.Hour)
	assert.LessOrEqual(t, tr.next(), time.Millisecond, "a later arm never postpones a pending run")
}

func TestTriggerCoalescesArms(t *testing.T) {
	tr := newTrigger("t", time.Hour, time.Now)
	for i := 0; i < 5; i++ {
		tr.arm(0)
	}
	var runs atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		tr.run(ctx, func(context.Context) { runs.Add(1) })
	}()

	require.Eventually(t, func() bool { return runs.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, int32(1), runs.Load())
	assert.Greater(t, tr.next(), 59*time.Minute)

	tr.arm(0)
	require.Eventually(t, func() bool { return runs.Load() == 2 }, time.Second, time.Millisecond)

	cancel()
	<-done
}

func TestTriggerPeriodic(t *testing.T) {
	tr := newTrigger("t", 5*time.Millisecond, time.Now)
	var runs atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go tr.run(ctx, func(context.Context) { runs.Add(1) })
	require.Eventually(t, func() bool { return runs.Load() >= 3 }, time.Second, time.Millisecond)
}

// An arm during a run schedules the next run right after it.
func TestTriggerArmDuringRun(t *testing.T) {
	tr := newTrigger("t", time.Hour, time.Now)
	var runs atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	tr.arm(0)
	go tr.run(ctx, func(context.Context) {
		if runs.Add(1) == 1 {
			tr.arm(0)
		}
	})
	require.Eventually(t, func() bool { return runs.Load() == 2 }, time.Second, time.Millisecond)
}
