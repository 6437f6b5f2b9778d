package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/krisalay/session-cache/engine"
	"github.com/krisalay/session-cache/expiration"
	"github.com/krisalay/session-cache/listener"
	"github.com/krisalay/session-cache/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu     sync.Mutex
	events []types.RemovalEvent[string]
}

func (r *recorder) listen(ev types.RemovalEvent[string]) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *recorder) reasons() []types.RemovalReason {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]types.RemovalReason, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Reason
	}
	return out
}

func newManualStore(t *testing.T) (*ShardedStore[string], *expiration.ManualScheduler, *recorder) {
	t.Helper()
	sched := expiration.NewManualScheduler(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	rec := &recorder{}
	eng := engine.NewCacheEngine[string](sched, listener.NewSyncDispatcher[string](rec.listen, nil), nil, nil)
	return NewShardedStore(4, eng), sched, rec
}

func key(k, s string) types.CompositeKey { return types.NewCompositeKey(k, s) }

func TestShardedStore_RoundsShardsToPowerOfTwo(t *testing.T) {
	eng := engine.NewCacheEngine[string](nil, nil, nil, nil)

	assert.Len(t, NewShardedStore(5, eng).shards, 8)
	assert.Len(t, NewShardedStore(1, eng).shards, 1)
	assert.Len(t, NewShardedStore(0, eng).shards, DefaultShards)
}

func TestShardedStore_PutRejectsInvalidInput(t *testing.T) {
	s, _, rec := newManualStore(t)
	_, err := s.Put(key("k", "s"), "v", NoExpiration)
	require.NoError(t, err)

	_, err = s.Put(key("", "s"), "v", NoExpiration)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = s.Put(key("k", "s"), "", NoExpiration)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	assert.Equal(t, 1, s.Count())
	v, _ := s.Get(key("k", "s"))
	assert.Equal(t, "v", v)
	assert.Empty(t, rec.reasons())
}

func TestIsAbsent(t *testing.T) {
	var nilPtr *int
	var nilSlice []byte
	var nilMap map[string]int
	var nilErr error
	zero := 0

	for name, tc := range map[string]struct {
		v      any
		absent bool
	}{
		"nil":          {nil, true},
		"nil pointer":  {nilPtr, true},
		"nil slice":    {nilSlice, true},
		"nil map":      {nilMap, true},
		"nil iface":    {nilErr, true},
		"empty string": {"", true},
		"string":       {"x", false},
		"zero int":     {0, false},
		"pointer":      {&zero, false},
		"empty slice":  {[]byte{}, false},
		"struct":       {struct{}{}, false},
	} {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.absent, isAbsent(tc.v))
		})
	}
}

func TestShardedStore_PutReportsPreviousValue(t *testing.T) {
	s, _, rec := newManualStore(t)

	existed, err := s.Put(key("k", "s"), "v1", NoExpiration)
	require.NoError(t, err)
	assert.False(t, existed)

	existed, err = s.Put(key("K", "S"), "v2", NoExpiration)
	require.NoError(t, err)
	assert.True(t, existed)

	assert.Equal(t, 1, s.Count())
	assert.Equal(t, []types.RemovalReason{types.Replaced}, rec.reasons())
	assert.Equal(t, "v1", rec.events[0].Value)
}

func TestShardedStore_ExpiresAfterTTL(t *testing.T) {
	s, sched, rec := newManualStore(t)
	_, err := s.Put(key("k", "s"), "v", 50*time.Millisecond)
	require.NoError(t, err)

	sched.Advance(49 * time.Millisecond)
	v, ok := s.Get(key("k", "s"))
	assert.True(t, ok)
	assert.Equal(t, "v", v)

	sched.Advance(time.Millisecond)
	assert.Equal(t, 0, s.Count(), "the expiration action removes the entry without a read")
	_, ok = s.Get(key("k", "s"))
	assert.False(t, ok)
	assert.Equal(t, []types.RemovalReason{types.Expired}, rec.reasons())
}

func TestShardedStore_StaleTimerDoesNotRemoveNewerValue(t *testing.T) {
	s, sched, _ := newManualStore(t)

	_, _ = s.Put(key("K", "S"), "v1", 50*time.Millisecond)
	_, _ = s.Put(key("K", "S"), "v2", NoExpiration)

	sched.Advance(100 * time.Millisecond)
	assert.Zero(t, sched.Pending())

	v, ok := s.Get(key("K", "S"))
	require.True(t, ok)
	assert.Equal(t, "v2", v)
}

func TestShardedStore_OverwriteWithNewTTLKeepsOnlyTheNewDeadline(t *testing.T) {
	s, sched, _ := newManualStore(t)

	_, _ = s.Put(key("K", "S"), "v1", 50*time.Millisecond)
	sched.Advance(30 * time.Millisecond)
	_, _ = s.Put(key("K", "S"), "v2", 50*time.Millisecond)

	sched.Advance(20 * time.Millisecond) // first timer fires here
	v, ok := s.Get(key("K", "S"))
	require.True(t, ok)
	assert.Equal(t, "v2", v)

	sched.Advance(30 * time.Millisecond)
	_, ok = s.Get(key("K", "S"))
	assert.False(t, ok)
}

func TestShardedStore_ClearNeutralizesPendingTimers(t *testing.T) {
	s, sched, _ := newManualStore(t)

	_, _ = s.Put(key("K", "S"), "v1", 50*time.Millisecond)
	assert.Equal(t, 1, s.Clear())
	_, _ = s.Put(key("K", "S"), "v2", NoExpiration)

	sched.Advance(time.Second)
	v, ok := s.Get(key("K", "S"))
	require.True(t, ok)
	assert.Equal(t, "v2", v)
}

func TestShardedStore_RemovedEntryTimerIsNoop(t *testing.T) {
	s, sched, rec := newManualStore(t)

	_, _ = s.Put(key("K", "S"), "v1", 50*time.Millisecond)
	assert.True(t, s.Remove(key("k", "s")))
	assert.False(t, s.Remove(key("k", "s")))

	sched.Advance(time.Second)
	assert.Equal(t, []types.RemovalReason{types.Removed}, rec.reasons())
}

func TestShardedStore_LazyExpiryWhenSchedulingFails(t *testing.T) {
	s, sched, rec := newManualStore(t)
	sched.Stop()

	_, err := s.Put(key("K", "S"), "v", 50*time.Millisecond)
	require.NoError(t, err, "a scheduling failure does not fail the write")

	_, ok := s.Get(key("K", "S"))
	assert.True(t, ok)

	sched.Advance(50 * time.Millisecond)
	assert.Empty(t, s.GetAllByPrimaryKey("K"))
	assert.Equal(t, time.Duration(-2), s.TTL(key("K", "S")))

	_, ok = s.Get(key("K", "S"))
	assert.False(t, ok)
	assert.Equal(t, 0, s.Count())
	assert.Equal(t, []types.RemovalReason{types.Expired}, rec.reasons())
}

func TestShardedStore_PutOverExpiredEntryIsNotAnUpdate(t *testing.T) {
	s, sched, rec := newManualStore(t)
	sched.Stop()

	_, _ = s.Put(key("K", "S"), "v1", 10*time.Millisecond)
	sched.Advance(10 * time.Millisecond)

	existed, err := s.Put(key("K", "S"), "v2", NoExpiration)
	require.NoError(t, err)
	assert.False(t, existed)
	assert.Equal(t, []types.RemovalReason{types.Expired}, rec.reasons())
}

func TestShardedStore_GetAllByPrimaryKey(t *testing.T) {
	s, _, _ := newManualStore(t)
	_, _ = s.Put(key("K", "S1"), "A", NoExpiration)
	_, _ = s.Put(key("k", "S2"), "B", NoExpiration)
	_, _ = s.Put(key("K", ""), "C", NoExpiration)
	_, _ = s.Put(key("other", "S1"), "D", NoExpiration)

	assert.ElementsMatch(t, []string{"A", "B", "C"}, s.GetAllByPrimaryKey("k"))

	none := s.GetAllByPrimaryKey("missing")
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestShardedStore_RemoveAllByPrimaryKey(t *testing.T) {
	s, _, _ := newManualStore(t)
	_, _ = s.Put(key("K", "S1"), "A", NoExpiration)
	_, _ = s.Put(key("K", "S2"), "B", NoExpiration)
	_, _ = s.Put(key("J", "S1"), "C", NoExpiration)

	assert.Equal(t, 2, s.RemoveAllByPrimaryKey("k"))
	assert.Equal(t, 0, s.RemoveAllByPrimaryKey("k"))
	assert.Equal(t, 1, s.Count())
}

func TestShardedStore_RemoveAllBySession(t *testing.T) {
	s, _, rec := newManualStore(t)
	_, _ = s.Put(key("a", "S1"), "1", NoExpiration)
	_, _ = s.Put(key("b", "s1"), "2", NoExpiration)
	_, _ = s.Put(key("a", "S2"), "3", NoExpiration)
	_, _ = s.Put(key("a", ""), "4", NoExpiration)
	_, _ = s.Put(key("c", ""), "5", NoExpiration)

	assert.Equal(t, 2, s.RemoveAllBySession("S1"))
	assert.ElementsMatch(t, []string{"3", "4"}, s.GetAllByPrimaryKey("a"))

	assert.Equal(t, 2, s.RemoveAllBySession(""))
	assert.Equal(t, []string{"3"}, s.GetAllByPrimaryKey("a"))
	assert.Equal(t, 1, s.Count())

	for _, r := range rec.reasons() {
		assert.Equal(t, types.Removed, r)
	}
}

func TestShardedStore_TTL(t *testing.T) {
	s, sched, _ := newManualStore(t)
	_, _ = s.Put(key("forever", "s"), "v", NoExpiration)
	_, _ = s.Put(key("short", "s"), "v", time.Minute)

	assert.Equal(t, time.Duration(-1), s.TTL(key("forever", "s")))
	assert.Equal(t, time.Duration(-2), s.TTL(key("missing", "s")))
	assert.Equal(t, time.Minute, s.TTL(key("short", "s")))

	sched.Advance(15 * time.Second)
	assert.Equal(t, 45*time.Second, s.TTL(key("SHORT", "S")))
}

func TestShardedStore_SealRejectsWrites(t *testing.T) {
	s, _, rec := newManualStore(t)
	_, _ = s.Put(key("a", "s"), "1", NoExpiration)
	_, _ = s.Put(key("b", "s"), "2", NoExpiration)

	assert.Equal(t, 2, s.Seal())
	assert.True(t, s.IsEmpty())
	assert.Equal(t, []types.RemovalReason{types.Cleared, types.Cleared}, rec.reasons())

	_, err := s.Put(key("a", "s"), "1", NoExpiration)
	assert.ErrorIs(t, err, ErrClosed)
	assert.True(t, s.IsEmpty())
}

func TestShardedStore_RealTimersRaceAgainstOverwrites(t *testing.T) {
	eng := engine.NewCacheEngine[string](nil, nil, nil, nil)
	s := NewShardedStore(8, eng)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			k := key(fmt.Sprintf("key-%d", g), "s")
			for i := 0; i < 200; i++ {
				_, _ = s.Put(k, fmt.Sprintf("tmp-%d", i), time.Millisecond)
			}
			_, _ = s.Put(k, "final", NoExpiration)
		}()
	}
	wg.Wait()

	time.Sleep(50 * time.Millisecond)

	for g := 0; g < 8; g++ {
		v, ok := s.Get(key(fmt.Sprintf("key-%d", g), "s"))
		require.True(t, ok)
		assert.Equal(t, "final", v)
	}
	assert.Equal(t, 8, s.Count())
}
