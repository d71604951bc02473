package world

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/segmentio/fasthash/fnv1a"
)

// storeShardCount is the number of shards the column store is split into.
// Sharding keeps lock contention low when many workers finish chunk tasks at
// the same time.
const storeShardCount = 32

// store holds all columns of a World currently in memory, sharded by a hash
// of their position. The store itself does not decide lifecycle: it only
// guarantees that at most one Column exists per position.
type store struct {
	shards [storeShardCount]storeShard
	count  atomic.Int64
}

type storeShard struct {
	mu   sync.Mutex
	cols map[ChunkPos]*Column
}

// newStore returns an initialised store.
func newStore() *store {
	s := &store{}
	for i := range s.shards {
		s.shards[i].cols = make(map[ChunkPos]*Column)
	}
	return s
}

// shard returns the shard responsible for the position passed.
func (s *store) shard(pos ChunkPos) *storeShard {
	h := fnv1a.HashUint64(uint64(uint32(pos[0]))<<32 | uint64(uint32(pos[1])))
	return &s.shards[h%storeShardCount]
}

// acquire obtains the column at the position passed, creating it if it does
// not exist, and adds a reference to it. The bool returned is true if the
// column was created by this call: exactly one caller observes true per
// column lifetime, and that caller is responsible for scheduling the task
// that fills the column.
func (s *store) acquire(pos ChunkPos) (*Column, bool) {
	sh := s.shard(pos)
	sh.mu.Lock()
	col, ok := sh.cols[pos]
	if !ok {
		col = newColumn(pos)
		sh.cols[pos] = col
		s.count.Add(1)
	}
	sh.mu.Unlock()

	col.mu.Lock()
	col.refs++
	col.unloadAt = time.Time{}
	col.mu.Unlock()
	return col, !ok
}

// release drops a reference from the column at the position passed. Once the
// last reference is dropped, the column becomes an eviction candidate after
// the delay passed.
func (s *store) release(pos ChunkPos, delay time.Duration) {
	sh := s.shard(pos)
	sh.mu.Lock()
	col, ok := sh.cols[pos]
	sh.mu.Unlock()
	if !ok {
		return
	}

	col.mu.Lock()
	if col.refs > 0 {
		col.refs--
	}
	if col.refs == 0 {
		col.unloadAt = time.Now().Add(delay)
	}
	col.mu.Unlock()
}

// rollback removes a column created by acquire whose task could not be
// scheduled, so that a later acquire may try again.
func (s *store) rollback(pos ChunkPos) {
	sh := s.shard(pos)
	sh.mu.Lock()
	if col, ok := sh.cols[pos]; ok {
		delete(sh.cols, pos)
		s.count.Add(-1)
		col.markActive()
	}
	sh.mu.Unlock()
}

// get returns the column at the position passed, if one exists.
func (s *store) get(pos ChunkPos) (*Column, bool) {
	sh := s.shard(pos)
	sh.mu.Lock()
	col, ok := sh.cols[pos]
	sh.mu.Unlock()
	return col, ok
}

// active returns the column at the position passed if it exists and is in
// StateActive. It never blocks.
func (s *store) active(pos ChunkPos) (*Column, bool) {
	col, ok := s.get(pos)
	if !ok {
		return nil, false
	}
	col.mu.Lock()
	a := col.state == StateActive
	col.mu.Unlock()
	if !a {
		return nil, false
	}
	return col, true
}

// removeIfUnreferenced deletes the column at the position passed and releases
// its data, unless a reference to it exists. A column that was re-acquired
// while its save was in flight is returned to StateActive and kept instead.
// The check and the removal happen under both the shard and the column lock,
// so no acquire can slip in between them.
func (s *store) removeIfUnreferenced(pos ChunkPos) bool {
	sh := s.shard(pos)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	col, ok := sh.cols[pos]
	if !ok {
		return false
	}
	col.mu.Lock()
	defer col.mu.Unlock()
	if col.refs > 0 {
		col.state = StateActive
		return false
	}
	delete(sh.cols, pos)
	s.count.Add(-1)
	col.state = StateUnloaded
	col.c = nil
	return true
}

// all returns a snapshot of all columns currently in the store.
func (s *store) all() []*Column {
	cols := make([]*Column, 0, s.count.Load())
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.Lock()
		for _, col := range sh.cols {
			cols = append(cols, col)
		}
		sh.mu.Unlock()
	}
	return cols
}

// expired returns all columns without references whose unload delay has
// passed and that are in StateActive. Returned columns are moved to
// StateSaving so that they are not returned twice.
func (s *store) expired(now time.Time) []*Column {
	var out []*Column
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.Lock()
		for _, col := range sh.cols {
			col.mu.Lock()
			if col.refs == 0 && col.state == StateActive && !col.unloadAt.IsZero() && col.unloadAt.Before(now) {
				col.state = StateSaving
				out = append(out, col)
			}
			col.mu.Unlock()
		}
		sh.mu.Unlock()
	}
	return out
}

// len returns the number of columns currently held by the store.
func (s *store) len() int {
	return int(s.count.Load())
}
