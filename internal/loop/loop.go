package loop

import (
	"context"
	"log/slog"
	"sync"
)

// Loop is a cooperative task queue. Tasks run one at a time, each to
// completion, in the order they were posted. A task posted while a turn is
// running is deferred to the next turn, so Post never runs anything inline.
type Loop struct {
	mu    sync.Mutex
	queue []func()

	wakeMu sync.Mutex    // serialises broadcast
	wakeCh chan struct{} // closed-and-replaced to wake Run
}

// New returns an empty loop.
func New() *Loop {
	return &Loop{wakeCh: make(chan struct{})}
}

// Post schedules task for a later turn.
func (l *Loop) Post(task func()) {
	l.mu.Lock()
	l.queue = append(l.queue, task)
	l.mu.Unlock()
	l.broadcast()
}

// Len returns the number of queued tasks.
func (l *Loop) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

// RunOnce runs one turn: every task queued before the call. It returns the
// number of tasks run.
func (l *Loop) RunOnce() int {
	l.mu.Lock()
	batch := l.queue
	l.queue = nil
	l.mu.Unlock()

	for _, task := range batch {
		run(task)
	}
	return len(batch)
}

// Drain runs turns until the queue is empty and returns the total number of
// tasks run.
func (l *Loop) Drain() int {
	var total int
	for {
		n := l.RunOnce()
		if n == 0 {
			return total
		}
		total += n
	}
}

// Run drives turns until ctx is done. Tasks still queued at that point are
// left in place.
func (l *Loop) Run(ctx context.Context) error {
	for {
		ch := l.waiter()

		if l.RunOnce() > 0 {
			continue
		}

		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// broadcast wakes Run by closing the current wake channel and replacing it.
func (l *Loop) broadcast() {
	l.wakeMu.Lock()
	ch := l.wakeCh
	l.wakeCh = make(chan struct{})
	l.wakeMu.Unlock()
	close(ch)
}

// waiter returns the current wake channel. It must be obtained before the
// queue is checked so a concurrent Post cannot be missed.
func (l *Loop) waiter() <-chan struct{} {
	l.wakeMu.Lock()
	ch := l.wakeCh
	l.wakeMu.Unlock()
	return ch
}

func run(task func()) {
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("loop: task panicked", "panic", r)
		}
	}()
	task()
}
