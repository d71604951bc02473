package world

import (
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"
)

func TestSchedulerPriorityOrder(t *testing.T) {
	s := newScheduler(1, 64, slog.Default())
	t.Cleanup(s.close)

	// Occupy the single worker so that the queue builds up before any of
	// the ordered tasks run.
	gate := make(chan struct{})
	started := make(chan struct{})
	if err := s.schedule(ChunkPos{}, 0, func() {
		close(started)
		<-gate
	}); err != nil {
		t.Fatalf("schedule gate: %v", err)
	}
	<-started

	var mu sync.Mutex
	var order []int64
	for _, priority := range []int64{9, 1, -4, 25, 4} {
		p := priority
		if err := s.schedule(ChunkPos{}, p, func() {
			mu.Lock()
			order = append(order, p)
			mu.Unlock()
		}); err != nil {
			t.Fatalf("schedule %v: %v", p, err)
		}
	}
	close(gate)

	deadline := time.Now().Add(5 * time.Second)
	for {
		mu.Lock()
		n := len(order)
		mu.Unlock()
		if n == 5 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("only %v of 5 tasks ran", n)
		}
		time.Sleep(10 * time.Millisecond)
	}
	want := []int64{-4, 1, 4, 9, 25}
	for i, p := range want {
		if order[i] != p {
			t.Fatalf("tasks ran in order %v, expected %v", order, want)
		}
	}
}

func TestSchedulerSaturation(t *testing.T) {
	s := newScheduler(1, 2, slog.Default())

	gate := make(chan struct{})
	started := make(chan struct{})
	if err := s.schedule(ChunkPos{}, 0, func() {
		close(started)
		<-gate
	}); err != nil {
		t.Fatalf("schedule gate: %v", err)
	}
	<-started

	// Fill the queue up to its limit, then overflow it.
	for i := range 2 {
		if err := s.schedule(ChunkPos{}, 0, func() {}); err != nil {
			t.Fatalf("schedule %v: %v", i, err)
		}
	}
	if err := s.schedule(ChunkPos{}, 0, func() {}); !errors.Is(err, ErrQueueSaturated) {
		t.Fatalf("expected ErrQueueSaturated, got %v", err)
	}
	if s.Saturation() == 0 {
		t.Fatal("saturation counter not incremented")
	}

	close(gate)
	s.close()

	// After the queue drained, scheduling is rejected because the scheduler
	// closed, not because of saturation.
	if err := s.schedule(ChunkPos{}, 0, func() {}); !errors.Is(err, ErrQueueSaturated) {
		t.Fatalf("expected rejection after close, got %v", err)
	}
}

func TestSchedulerDrainsOnClose(t *testing.T) {
	s := newScheduler(2, 64, slog.Default())

	var mu sync.Mutex
	ran := 0
	for range 32 {
		if err := s.schedule(ChunkPos{}, 0, func() {
			mu.Lock()
			ran++
			mu.Unlock()
		}); err != nil {
			t.Fatalf("schedule: %v", err)
		}
	}
	s.close()

	mu.Lock()
	defer mu.Unlock()
	if ran != 32 {
		t.Fatalf("%v of 32 tasks ran before close returned", ran)
	}
}

func TestSchedulerLaterRunsAfterClose(t *testing.T) {
	s := newScheduler(1, 4, slog.Default())

	done := make(chan struct{})
	s.scheduleLater(ChunkPos{}, 0, 50*time.Millisecond, func() {
		close(done)
	})
	s.close()

	// The delayed task must still run: it carries a save.
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("delayed task never ran after close")
	}
}
