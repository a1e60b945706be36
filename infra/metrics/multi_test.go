package metrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/evsync/core/ack"
	"github.com/kilianp07/evsync/core/events"
	"github.com/kilianp07/evsync/core/factory"
	coremetrics "github.com/kilianp07/evsync/core/metrics"
	"github.com/kilianp07/evsync/internal/eventbus"
)

type recordSink struct {
	outcomes, depths int
	dropped          chan int
	closed           bool
}

func (r *recordSink) RecordOutcome(coremetrics.Outcome) error {
	r.outcomes++
	return nil
}

func (r *recordSink) RecordQueueDepth(coremetrics.QueueDepth) error {
	r.depths++
	return nil
}

func (r *recordSink) RecordNotForwarded(n coremetrics.NotForwarded) error {
	r.dropped <- n.Records
	return nil
}

func (r *recordSink) Close() error {
	r.closed = true
	return nil
}

type failingSink struct{}

func (failingSink) RecordOutcome(coremetrics.Outcome) error { return errors.New("down") }

func TestMultiSink(t *testing.T) {
	s1 := &recordSink{}
	s2 := &recordSink{}
	m := NewMultiSink(s1, s2, coremetrics.NopSink{})
	require.NoError(t, m.RecordOutcome(coremetrics.Outcome{}))
	require.NoError(t, m.RecordQueueDepth(coremetrics.QueueDepth{}))
	assert.Equal(t, 1, s1.outcomes)
	assert.Equal(t, 1, s2.depths)
	require.NoError(t, m.Close())
	assert.True(t, s1.closed)

	assert.Error(t, NewMultiSink(failingSink{}, s1).RecordOutcome(coremetrics.Outcome{}))
}

func TestNewSinkFromConfig(t *testing.T) {
	m, err := NewSink(coremetrics.Config{})
	require.NoError(t, err)
	require.Len(t, m.Sinks, 1)

	m, err = NewSink(coremetrics.Config{Sinks: []factory.ModuleConfig{{Type: "nop"}}})
	require.NoError(t, err)
	assert.Len(t, m.Sinks, 1)

	_, err = NewSink(coremetrics.Config{Sinks: []factory.ModuleConfig{{Type: "graphite"}}})
	assert.Error(t, err)
}

func TestEventCollectorRecordsRejectedCDRs(t *testing.T) {
	bus := eventbus.New[eventbus.Event](4)
	sink := &recordSink{dropped: make(chan int, 1)}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	StartEventCollector(ctx, bus, sink)

	require.Eventually(t, func() bool {
		return bus.Publish(events.CDRRejectedEvent{AdapterID: "a1", Records: make([]ack.NotForwarded, 2)}) == 1
	}, time.Second, time.Millisecond)
	select {
	case n := <-sink.dropped:
		assert.Equal(t, 2, n)
	case <-time.After(time.Second):
		t.Fatal("rejected records not recorded")
	}
}
