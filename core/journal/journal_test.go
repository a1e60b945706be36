package journal

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/evsync/core/ack"
	"github.com/kilianp07/evsync/core/events"
	"github.com/kilianp07/evsync/core/logger"
	"github.com/kilianp07/evsync/core/model"
	"github.com/kilianp07/evsync/internal/eventbus"
)

var t0 = time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

func TestFromDispatch(t *testing.T) {
	a := ack.Partial("1 of 2 records forwarded", []ack.NotForwarded{{Record: model.ChargeDetailRecord{SessionID: "s2"}, Reason: "implausible"}}, nil, 1500*time.Millisecond)
	e := FromDispatch(events.DispatchEvent{AdapterID: "a", Path: events.PathCDR, Items: 2, Ack: a, Time: t0})
	assert.Equal(t, Entry{
		Timestamp:    t0,
		AdapterID:    "a",
		Path:         "cdr",
		Kind:         ack.KindPartial.String(),
		Items:        2,
		Description:  "1 of 2 records forwarded",
		RuntimeMS:    1500,
		NotForwarded: []string{"s2"},
	}, e)
}

func TestQueryMatchesAndTail(t *testing.T) {
	e := Entry{Timestamp: t0, Path: "delta", Kind: "success"}
	assert.True(t, Query{}.Matches(e))
	assert.True(t, Query{Start: t0, End: t0, Path: "delta", Kind: "success"}.Matches(e))
	assert.False(t, Query{Start: t0.Add(time.Second)}.Matches(e))
	assert.False(t, Query{End: t0.Add(-time.Second)}.Matches(e))
	assert.False(t, Query{Path: "status"}.Matches(e))
	assert.False(t, Query{Kind: "failure"}.Matches(e))

	entries := []Entry{{Items: 1}, {Items: 2}, {Items: 3}}
	assert.Equal(t, []Entry{{Items: 2}, {Items: 3}}, Query{Limit: 2}.Tail(entries))
	assert.Len(t, Query{}.Tail(entries), 3)
}

type memStore struct {
	mu      sync.Mutex
	entries []Entry
}

func (m *memStore) Append(_ context.Context, e Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	return nil
}

func (m *memStore) Query(_ context.Context, q Query) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Entry
	for _, e := range m.entries {
		if q.Matches(e) {
			out = append(out, e)
		}
	}
	return q.Tail(out), nil
}

func (m *memStore) Close() error { return nil }

func TestCollect(t *testing.T) {
	bus := eventbus.New[eventbus.Event](8)
	sub := bus.Subscribe()
	store := &memStore{}
	done := make(chan struct{})
	go func() {
		defer close(done)
		Collect(context.Background(), sub, store, logger.Nop{})
	}()

	bus.Publish(events.ContentionEvent{Timer: "status-flush"})
	bus.Publish(events.DispatchEvent{Path: events.PathDelta, Ack: ack.Success("ok", 0), Time: t0})

	require.Eventually(t, func() bool {
		out, _ := store.Query(context.Background(), Query{})
		return len(out) == 1
	}, time.Second, time.Millisecond)
	out, _ := store.Query(context.Background(), Query{})
	assert.Equal(t, "delta", out[0].Path)

	bus.Close()
	<-done
}
