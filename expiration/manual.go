package expiration

import (
	"sort"
	"sync"
	"time"
)

type manualTask struct {
	due time.Time
	seq uint64
	fn  func()
}

/*
ManualScheduler is a Scheduler whose clock only moves when Advance is called.

It makes expiration deterministic: tests (and simulations) can write an entry
with a 50ms TTL, overwrite it, advance the clock and assert on the result
without sleeping. Due actions run synchronously inside Advance, in due order,
after the scheduler's own lock is released.
*/
type ManualScheduler struct {
	mu      sync.Mutex
	now     time.Time
	seq     uint64
	tasks   []manualTask
	stopped bool
}

// NewManualScheduler starts the clock at start.
func NewManualScheduler(start time.Time) *ManualScheduler {
	return &ManualScheduler{now: start}
}

func (m *ManualScheduler) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *ManualScheduler) AfterFunc(d time.Duration, f func()) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stopped {
		return ErrStopped
	}
	m.seq++
	m.tasks = append(m.tasks, manualTask{due: m.now.Add(d), seq: m.seq, fn: f})
	return nil
}

// Advance moves the clock forward by d and runs every action that became due.
func (m *ManualScheduler) Advance(d time.Duration) {
	m.mu.Lock()
	m.now = m.now.Add(d)
	now := m.now

	var due, pending []manualTask
	for _, t := range m.tasks {
		if t.due.After(now) {
			pending = append(pending, t)
		} else {
			due = append(due, t)
		}
	}
	m.tasks = pending
	m.mu.Unlock()

	sort.Slice(due, func(i, j int) bool {
		if due[i].due.Equal(due[j].due) {
			return due[i].seq < due[j].seq
		}
		return due[i].due.Before(due[j].due)
	})
	for _, t := range due {
		t.fn()
	}
}

// Pending returns how many actions have not fired yet.
func (m *ManualScheduler) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tasks)
}

// Stop makes every later AfterFunc fail with ErrStopped and drops pending actions.
func (m *ManualScheduler) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopped = true
	m.tasks = nil
}
