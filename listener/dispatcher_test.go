package listener_test

import (
	"sync"
	"testing"
	"time"

	"github.com/krisalay/session-cache/internal/logging"
	"github.com/krisalay/session-cache/listener"
	"github.com/krisalay/session-cache/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func event(key string, reason types.RemovalReason) types.RemovalEvent[string] {
	return types.RemovalEvent[string]{Key: types.NewCompositeKey(key, "s"), Value: "v-" + key, Reason: reason}
}

func TestSyncDispatcher_DeliversInline(t *testing.T) {
	var got []types.RemovalEvent[string]
	d := listener.NewSyncDispatcher[string](func(ev types.RemovalEvent[string]) {
		got = append(got, ev)
	}, logging.NewNop())

	d.Dispatch(event("a", types.Removed))
	d.Dispatch(event("b", types.Expired))
	d.Close()

	require.Len(t, got, 2)
	assert.Equal(t, "v-a", got[0].Value)
	assert.Equal(t, types.Expired, got[1].Reason)
}

func TestSyncDispatcher_ContainsListenerPanic(t *testing.T) {
	calls := 0
	d := listener.NewSyncDispatcher[string](func(types.RemovalEvent[string]) {
		calls++
		panic("boom")
	}, logging.NewNop())

	assert.NotPanics(t, func() {
		d.Dispatch(event("a", types.Removed))
		d.Dispatch(event("b", types.Removed))
	})
	assert.Equal(t, 2, calls)
}

func TestAsyncDispatcher_DrainsOnClose(t *testing.T) {
	var mu sync.Mutex
	var got []string

	d := listener.NewAsyncDispatcher[string](func(ev types.RemovalEvent[string]) {
		time.Sleep(time.Millisecond)
		mu.Lock()
		got = append(got, ev.Key.Key())
		mu.Unlock()
	}, 16, logging.NewNop())

	for _, k := range []string{"a", "b", "c"} {
		d.Dispatch(event(k, types.Removed))
	}
	d.Close()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"a", "b", "c"}, got)
	assert.Zero(t, d.Dropped())
}

func TestAsyncDispatcher_DropsWhenFull(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)

	d := listener.NewAsyncDispatcher[string](func(types.RemovalEvent[string]) {
		select {
		case started <- struct{}{}:
		default:
		}
		<-release
	}, 1, logging.NewNop())

	d.Dispatch(event("first", types.Removed)) // taken by the worker
	<-started
	d.Dispatch(event("second", types.Removed)) // fills the buffer
	d.Dispatch(event("third", types.Removed))  // dropped

	assert.Equal(t, int64(1), d.Dropped())

	close(release)
	d.Close()
}

func TestAsyncDispatcher_DispatchAfterCloseIsIgnored(t *testing.T) {
	d := listener.NewAsyncDispatcher[string](func(types.RemovalEvent[string]) {
		t.Error("listener called after close")
	}, 4, logging.NewNop())

	d.Close()
	assert.NotPanics(t, func() {
		d.Dispatch(event("late", types.Expired))
		d.Close()
	})
}
