package world

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestStoreSingleFlight(t *testing.T) {
	s := newStore()
	pos := ChunkPos{3, -7}

	var wg sync.WaitGroup
	var created atomic.Int32
	const n = 64
	wg.Add(n)
	for range n {
		go func() {
			defer wg.Done()
			if _, isNew := s.acquire(pos); isNew {
				created.Add(1)
			}
		}()
	}
	wg.Wait()

	if c := created.Load(); c != 1 {
		t.Fatalf("%v acquirers created the column, expected exactly 1", c)
	}
	col, ok := s.get(pos)
	if !ok {
		t.Fatal("column missing after acquire")
	}
	col.mu.Lock()
	refs := col.refs
	col.mu.Unlock()
	if refs != n {
		t.Fatalf("column has %v references, expected %v", refs, n)
	}
	if s.len() != 1 {
		t.Fatalf("store holds %v columns, expected 1", s.len())
	}
}

func TestStoreExpired(t *testing.T) {
	s := newStore()
	pos := ChunkPos{0, 0}

	col, _ := s.acquire(pos)
	col.markActive()

	if got := s.expired(time.Now().Add(time.Hour)); len(got) != 0 {
		t.Fatalf("referenced column reported as expired")
	}
	s.release(pos, time.Millisecond*50)
	if got := s.expired(time.Now()); len(got) != 0 {
		t.Fatalf("column expired before its unload delay passed")
	}
	got := s.expired(time.Now().Add(time.Second))
	if len(got) != 1 || got[0] != col {
		t.Fatalf("expected the released column to expire, got %v", got)
	}
	if col.State() != StateSaving {
		t.Fatalf("expired column in state %v, expected %v", col.State(), StateSaving)
	}
	// A column is returned once: the state change takes it out of the scan.
	if got := s.expired(time.Now().Add(time.Second)); len(got) != 0 {
		t.Fatalf("column expired twice")
	}
}

func TestStoreReacquireClearsDeadline(t *testing.T) {
	s := newStore()
	pos := ChunkPos{5, 5}

	col, _ := s.acquire(pos)
	col.markActive()
	s.release(pos, 0)

	// Acquiring again must cancel the pending eviction.
	s.acquire(pos)
	if got := s.expired(time.Now().Add(time.Hour)); len(got) != 0 {
		t.Fatalf("reacquired column still expired")
	}
}

func TestStoreRollback(t *testing.T) {
	s := newStore()
	pos := ChunkPos{-2, 9}

	col, isNew := s.acquire(pos)
	if !isNew {
		t.Fatal("first acquire did not create the column")
	}
	s.rollback(pos)

	if _, ok := s.get(pos); ok {
		t.Fatal("column still present after rollback")
	}
	select {
	case <-col.ready:
	default:
		t.Fatal("rollback must release waiters on the column")
	}
	if _, isNew = s.acquire(pos); !isNew {
		t.Fatal("acquire after rollback did not create a fresh column")
	}
}
