// Package mainloop provides the host main thread: one goroutine that runs
// posted tasks in submission order.
package mainloop

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

const logPrefix = "mainloop:loop"

const defaultQueueSize = 256

// Loop is a serial executor. Tasks posted before Stop run in order on the loop
// goroutine; tasks posted after Stop run inline on the caller. Post never
// blocks, so tasks running on the loop may post more tasks.
type Loop struct {
	wake chan struct{}
	done chan struct{}

	mu       sync.Mutex
	queue    []func()
	started  bool
	stopping bool
}

// New creates a Loop whose queue starts with room for size tasks and grows
// past it. Non-positive sizes use the default.
func New(size int) *Loop {
	if size <= 0 {
		size = defaultQueueSize
	}
	return &Loop{
		wake:  make(chan struct{}, 1),
		done:  make(chan struct{}),
		queue: make([]func(), 0, size),
	}
}

// Start launches the loop goroutine. Calling it again has no effect.
func (l *Loop) Start() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.started || l.stopping {
		return
	}
	l.started = true
	go l.run()
}

func (l *Loop) run() {
	defer close(l.done)
	for {
		task, ok := l.next()
		if !ok {
			return
		}
		if task == nil {
			<-l.wake
			continue
		}
		task()
	}
}

// next pops the head of the queue. It returns a nil task when the queue is
// empty and the loop should wait, and false once stopped and drained.
func (l *Loop) next() (func(), bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.queue) == 0 {
		return nil, !l.stopping
	}
	task := l.queue[0]
	l.queue[0] = nil
	l.queue = l.queue[1:]
	return task, true
}

func (l *Loop) signal() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Post queues task for the loop goroutine.
func (l *Loop) Post(task func()) {
	if task == nil {
		return
	}
	l.mu.Lock()
	if l.stopping {
		l.mu.Unlock()
		slog.Debug(fmt.Sprintf("%s - loop stopped, running task inline", logPrefix))
		task()
		return
	}
	l.queue = append(l.queue, task)
	l.mu.Unlock()
	l.signal()
}

// Pending returns the number of queued tasks.
func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

// Stop refuses new tasks and waits until the queued ones have run or ctx ends.
func (l *Loop) Stop(ctx context.Context) error {
	l.mu.Lock()
	if l.stopping {
		l.mu.Unlock()
		return nil
	}
	l.stopping = true
	started := l.started
	l.mu.Unlock()

	if !started {
		for {
			task, ok := l.next()
			if !ok || task == nil {
				return nil
			}
			task()
		}
	}
	l.signal()

	select {
	case <-l.done:
		slog.Info(fmt.Sprintf("%s - main loop drained", logPrefix))
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%s - failed to drain main loop: %w", logPrefix, ctx.Err())
	}
}
