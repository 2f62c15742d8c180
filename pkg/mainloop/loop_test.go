package mainloop

import (
	"context"
	"sync"
	"testing"
	"time"
)

const loopTestPrefix = "mainloop:loop_test"

func TestLoop_RunsInOrderOnOneGoroutine(t *testing.T) {
	l := New(4)
	l.Start()
	l.Start()

	var mu sync.Mutex
	var order []int
	for i := 0; i < 50; i++ {
		i := i
		l.Post(func() {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := l.Stop(ctx); err != nil {
		t.Fatalf("%s - Stop: %v", loopTestPrefix, err)
	}
	if len(order) != 50 {
		t.Fatalf("%s - ran %d tasks, want 50", loopTestPrefix, len(order))
	}
	for i, v := range order {
		if v != i {
			t.Fatalf("%s - order[%d] = %d", loopTestPrefix, i, v)
		}
	}
}

func TestLoop_PostAfterStopRunsInline(t *testing.T) {
	l := New(0)
	l.Start()
	if err := l.Stop(context.Background()); err != nil {
		t.Fatalf("%s - Stop: %v", loopTestPrefix, err)
	}
	ran := false
	l.Post(func() { ran = true })
	if !ran {
		t.Errorf("%s - task posted after Stop should run inline", loopTestPrefix)
	}
	if err := l.Stop(context.Background()); err != nil {
		t.Errorf("%s - second Stop: %v", loopTestPrefix, err)
	}
}

func TestLoop_StopWithoutStartDrains(t *testing.T) {
	l := New(8)
	count := 0
	l.Post(func() { count++ })
	l.Post(func() { count++ })
	l.Post(nil)
	if err := l.Stop(context.Background()); err != nil {
		t.Fatalf("%s - Stop: %v", loopTestPrefix, err)
	}
	if count != 2 {
		t.Errorf("%s - count = %d, want 2", loopTestPrefix, count)
	}
}

func TestLoop_StopHonoursContext(t *testing.T) {
	l := New(1)
	l.Start()
	release := make(chan struct{})
	l.Post(func() { <-release })

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := l.Stop(ctx); err == nil {
		t.Errorf("%s - expected context error while a task blocks", loopTestPrefix)
	}
	close(release)
}

func TestLoop_PostFromLoopDoesNotBlock(t *testing.T) {
	l := New(1)
	l.Start()

	done := make(chan []string, 1)
	l.Post(func() {
		var mu sync.Mutex
		var order []string
		record := func(s string) {
			mu.Lock()
			order = append(order, s)
			mu.Unlock()
		}
		record("outer")
		l.Post(func() { record("first") })
		l.Post(func() { record("second") })
		l.Post(func() {
			record("third")
			mu.Lock()
			done <- append([]string(nil), order...)
			mu.Unlock()
		})
	})

	select {
	case order := <-done:
		want := []string{"outer", "first", "second", "third"}
		if len(order) != len(want) {
			t.Fatalf("%s - order = %v, want %v", loopTestPrefix, order, want)
		}
		for i := range want {
			if order[i] != want[i] {
				t.Errorf("%s - order[%d] = %q, want %q", loopTestPrefix, i, order[i], want[i])
			}
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("%s - tasks posted from the loop goroutine never ran", loopTestPrefix)
	}

	if err := l.Stop(context.Background()); err != nil {
		t.Errorf("%s - Stop: %v", loopTestPrefix, err)
	}
}

func TestLoop_PostBeyondCapacityDoesNotBlock(t *testing.T) {
	l := New(2)
	posted := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			l.Post(func() {})
		}
		close(posted)
	}()
	select {
	case <-posted:
	case <-time.After(5 * time.Second):
		t.Fatalf("%s - Post blocked on a queue past its initial capacity", loopTestPrefix)
	}
	if got := l.Pending(); got != 10 {
		t.Errorf("%s - Pending = %d, want 10", loopTestPrefix, got)
	}
	if err := l.Stop(context.Background()); err != nil {
		t.Fatalf("%s - Stop: %v", loopTestPrefix, err)
	}
	if got := l.Pending(); got != 0 {
		t.Errorf("%s - Pending after Stop = %d, want 0", loopTestPrefix, got)
	}
}
