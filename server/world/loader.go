package world

import (
	"errors"
	"slices"
	"sync"

	"github.com/Mili-ssm/Pumpkin/server/world/chunk"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
)

// Loader implements the loading of the world around a position. Loaders with
// a radius are created and can be moved to load and unload chunks around it
// as the position of the Loader changes. Each chunk held by a Loader is
// referenced in the world's store: a chunk is only evicted once no Loader
// references it anymore.
type Loader struct {
	r      int
	w      *World
	viewer Viewer
	id     uuid.UUID

	mu     sync.RWMutex
	pos    ChunkPos
	moved  bool
	closed bool

	// loadQueue holds the positions of chunks within the radius that have
	// not yet been requested, sorted nearest first.
	loadQueue []ChunkPos
	// pending holds positions requested from the world that have not yet
	// become active.
	pending map[ChunkPos]struct{}
	// loaded holds positions of chunks that are active and viewed.
	loaded map[ChunkPos]struct{}
}

// NewLoader creates a new loader using the chunk radius passed. Chunks will
// be loaded from the world passed and the viewer passed is notified of
// chunks as they arrive and leave.
func NewLoader(chunkRadius int, world *World, v Viewer) *Loader {
	l := &Loader{
		r: chunkRadius, w: world, viewer: v, id: uuid.New(),
		pending: map[ChunkPos]struct{}{}, loaded: map[ChunkPos]struct{}{},
	}
	world.addWorldViewer(l)
	return l
}

// World returns the World the Loader loads chunks of.
func (l *Loader) World() *World {
	return l.w
}

// ID returns the unique ID of the Loader.
func (l *Loader) ID() uuid.UUID {
	return l.id
}

// ChangeRadius changes the maximum chunk radius of the Loader, releasing
// chunks beyond the new radius right away.
func (l *Loader) ChangeRadius(_ *Tx, r int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.r = r
	l.evictUnused()
	l.populateLoadQueue()
}

// Move moves the loader to the position passed. The position is translated
// to a chunk position to load chunks around.
func (l *Loader) Move(_ *Tx, pos mgl64.Vec3) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	chunkPos := chunkPosFromVec3(pos)
	if chunkPos == l.pos && l.moved {
		return
	}
	l.pos, l.moved = chunkPos, true
	l.evictUnused()
	l.populateLoadQueue()
}

// Load requests up to n chunks from the Loader's load queue, nearest chunks
// first. Load does not block: chunks requested arrive asynchronously and are
// shown to the viewer once active. If the world's worker queue is saturated,
// Load stops early and the remaining chunks are retried on a later call.
func (l *Loader) Load(_ *Tx, n int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed || l.w == nil {
		return
	}
	for range n {
		if len(l.loadQueue) == 0 {
			return
		}
		pos := l.loadQueue[0]

		col, err := l.w.acquireChunk(pos, l, l.pos.distSq(pos))
		if errors.Is(err, ErrQueueSaturated) {
			// Leave the position at the head of the queue and retry on a
			// later tick when the workers have caught up.
			return
		}
		l.loadQueue = l.loadQueue[1:]

		if col.Ready() {
			l.loaded[pos] = struct{}{}
			if l.viewer != nil {
				l.viewer.ViewChunk(pos, col.Chunk())
			}
			continue
		}
		l.pending[pos] = struct{}{}
		if col.Ready() {
			// The column became active between the acquire and the pending
			// insertion, so its activation notice was missed. Promote it
			// right away.
			delete(l.pending, pos)
			l.loaded[pos] = struct{}{}
			if l.viewer != nil {
				l.viewer.ViewChunk(pos, col.Chunk())
			}
		}
	}
}

// Chunk attempts to return a chunk at the given ChunkPos. The second return
// value is true only if a chunk at that position is currently loaded and
// viewed by this Loader.
func (l *Loader) Chunk(pos ChunkPos) (*chunk.Chunk, bool) {
	l.mu.RLock()
	_, ok := l.loaded[pos]
	l.mu.RUnlock()
	if !ok {
		return nil, false
	}
	col, ok := l.w.store.active(pos)
	if !ok {
		return nil, false
	}
	return col.Chunk(), true
}

// Close closes the loader. All chunks held by it are released, making them
// eviction candidates once no other Loader references them.
func (l *Loader) Close(_ *Tx) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.closed = true
	for pos := range l.loaded {
		delete(l.loaded, pos)
		l.w.releaseChunk(pos, l)
		if l.viewer != nil {
			l.viewer.ViewChunkUnload(pos)
		}
	}
	for pos := range l.pending {
		delete(l.pending, pos)
		l.w.releaseChunk(pos, l)
	}
	l.loadQueue = nil
	l.w.removeWorldViewer(l)
	l.viewer = nil
}

// chunkActivated is called by the world once a chunk requested by this
// Loader becomes active.
func (l *Loader) chunkActivated(pos ChunkPos, c *chunk.Chunk) {
	l.mu.Lock()
	if _, ok := l.pending[pos]; !ok {
		l.mu.Unlock()
		return
	}
	delete(l.pending, pos)
	l.loaded[pos] = struct{}{}
	v := l.viewer
	l.mu.Unlock()

	if v != nil {
		v.ViewChunk(pos, c)
	}
}

// inRange checks if the position passed falls within the footprint of the
// Loader: the square of (2r+1)x(2r+1) chunks centred on its position.
func (l *Loader) inRange(pos ChunkPos) bool {
	dx, dz := int(pos[0]-l.pos[0]), int(pos[1]-l.pos[1])
	if dx < 0 {
		dx = -dx
	}
	if dz < 0 {
		dz = -dz
	}
	return dx <= l.r && dz <= l.r
}

// evictUnused releases all chunks held by the Loader that are no longer
// within its radius.
func (l *Loader) evictUnused() {
	for pos := range l.loaded {
		if !l.inRange(pos) {
			delete(l.loaded, pos)
			l.w.releaseChunk(pos, l)
			if l.viewer != nil {
				l.viewer.ViewChunkUnload(pos)
			}
		}
	}
	for pos := range l.pending {
		if !l.inRange(pos) {
			delete(l.pending, pos)
			l.w.releaseChunk(pos, l)
		}
	}
}

// populateLoadQueue rebuilds the load queue of the Loader: all positions
// within the radius that are neither loaded nor pending, sorted nearest
// first.
func (l *Loader) populateLoadQueue() {
	queue := l.loadQueue[:0]
	r := int32(l.r)
	for dx := -r; dx <= r; dx++ {
		for dz := -r; dz <= r; dz++ {
			pos := ChunkPos{l.pos[0] + dx, l.pos[1] + dz}
			if _, ok := l.loaded[pos]; ok {
				continue
			}
			if _, ok := l.pending[pos]; ok {
				continue
			}
			queue = append(queue, pos)
		}
	}
	slices.SortFunc(queue, func(a, b ChunkPos) int {
		return int(l.pos.distSq(a) - l.pos.distSq(b))
	})
	l.loadQueue = queue
}
