package world

import (
	"sync"
	"time"

	"github.com/Mili-ssm/Pumpkin/server/world/chunk"
)

// State is the lifecycle state of a Column held in memory. Columns move
// through these states in a fixed order: a column is never generated twice
// and never lit before its terrain exists.
type State uint8

const (
	// StateUnloaded is the state of a column that holds no data yet, or
	// whose data was released after a save.
	StateUnloaded State = iota
	// StateLoading is the state of a column whose data is being read from
	// the Provider.
	StateLoading
	// StateGenerating is the state of a column whose terrain is being
	// produced by the Generator, after the Provider returned no data.
	StateGenerating
	// StateLighting is the state of a column whose terrain exists but whose
	// light is still being calculated.
	StateLighting
	// StateActive is the state of a column that is fully usable: simulated,
	// mutable and visible to viewers.
	StateActive
	// StateSaving is the state of a column whose data is being written to
	// the Provider before eviction.
	StateSaving
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateUnloaded:
		return "unloaded"
	case StateLoading:
		return "loading"
	case StateGenerating:
		return "generating"
	case StateLighting:
		return "lighting"
	case StateActive:
		return "active"
	case StateSaving:
		return "saving"
	}
	return "invalid"
}

// Column represents the data of a single chunk position held in memory,
// together with the lifecycle bookkeeping of that data. Fields of a Column
// are guarded by its mutex, except where noted.
type Column struct {
	pos ChunkPos

	mu    sync.Mutex
	state State
	c     *chunk.Chunk
	// modified is true when the column's data differs from what the Provider
	// holds, either because it was newly generated or mutated.
	modified bool
	// faulted is true when the Generator panicked while producing this
	// column. Faulted columns hold placeholder data that is never saved.
	faulted bool
	// spread is true once light has been exchanged with all eight
	// neighbouring columns.
	spread bool
	// refs is the number of Loaders currently interested in this column.
	refs int
	// unloadAt is the time after which the column may be evicted. It is only
	// meaningful while refs is zero.
	unloadAt time.Time
	// saveAttempts counts consecutive failed saves of this column.
	saveAttempts int
	// loadAttempts counts consecutive failed loads of this column.
	loadAttempts int

	// ready is closed once the column reaches StateActive for the first
	// time. It must only be closed through markActive.
	ready chan struct{}

	// loaders are the loaders that currently hold a reference to this
	// column, in no particular order.
	loaders []*Loader
}

// newColumn returns a Column in StateLoading for the position passed.
func newColumn(pos ChunkPos) *Column {
	return &Column{pos: pos, state: StateLoading, ready: make(chan struct{})}
}

// State returns the current lifecycle state of the column.
func (col *Column) State() State {
	col.mu.Lock()
	defer col.mu.Unlock()
	return col.state
}

// Ready checks if the column has reached StateActive at least once, without
// blocking.
func (col *Column) Ready() bool {
	select {
	case <-col.ready:
		return true
	default:
		return false
	}
}

// WaitReady blocks until the column reaches StateActive for the first time.
func (col *Column) WaitReady() {
	<-col.ready
}

// Chunk returns the chunk data of the column. It must only be called once
// the column is ready: before that, the data is owned by a worker.
func (col *Column) Chunk() *chunk.Chunk {
	col.mu.Lock()
	defer col.mu.Unlock()
	return col.c
}

// Faulted reports if the Generator faulted while producing this column. The
// data held by a faulted column is a placeholder.
func (col *Column) Faulted() bool {
	col.mu.Lock()
	defer col.mu.Unlock()
	return col.faulted
}

// setState moves the column to the state passed.
func (col *Column) setState(s State) {
	col.mu.Lock()
	col.state = s
	col.mu.Unlock()
}

// markActive moves the column to StateActive and wakes any goroutines
// blocked in WaitReady.
func (col *Column) markActive() {
	col.mu.Lock()
	col.state = StateActive
	col.mu.Unlock()

	select {
	case <-col.ready:
	default:
		close(col.ready)
	}
}
