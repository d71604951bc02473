package world

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Mili-ssm/Pumpkin/server/block/cube"
	"github.com/Mili-ssm/Pumpkin/server/world/chunk"
	"github.com/go-gl/mathgl/mgl64"
)

// memProvider is an in-memory Provider that stores encoded chunk payloads. It
// can be primed to fail loads or saves to exercise the error paths of the
// world.
type memProvider struct {
	mu            sync.Mutex
	cols          map[ChunkPos][]byte
	failLoad      map[ChunkPos]error
	failLoadTimes map[ChunkPos]int
	failStores    int
	stores        int
	settingsSave  int

	// onStore and onFlush, when set, run at the start of StoreColumn and
	// Flush. Tests use them to hold a save or flush in flight.
	onStore func(pos ChunkPos)
	onFlush func()
}

func newMemProvider() *memProvider {
	return &memProvider{
		cols:          map[ChunkPos][]byte{},
		failLoad:      map[ChunkPos]error{},
		failLoadTimes: map[ChunkPos]int{},
	}
}

func (p *memProvider) Settings(*Settings) {}

func (p *memProvider) SaveSettings(*Settings) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.settingsSave++
}

func (p *memProvider) LoadColumn(pos ChunkPos) (*chunk.Chunk, error) {
	p.mu.Lock()
	if err, ok := p.failLoad[pos]; ok {
		if n := p.failLoadTimes[pos]; n > 1 {
			p.failLoadTimes[pos] = n - 1
		} else {
			delete(p.failLoad, pos)
			delete(p.failLoadTimes, pos)
		}
		p.mu.Unlock()
		return nil, err
	}
	data, ok := p.cols[pos]
	p.mu.Unlock()
	if !ok {
		return nil, ErrNotFound
	}
	return chunk.DecodeDisk(data)
}

func (p *memProvider) StoreColumn(pos ChunkPos, c *chunk.Chunk) error {
	p.mu.Lock()
	hook := p.onStore
	p.mu.Unlock()
	if hook != nil {
		hook(pos)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failStores > 0 {
		p.failStores--
		return errors.New("disk full")
	}
	p.cols[pos] = chunk.EncodeDisk(c)
	p.stores++
	return nil
}

func (p *memProvider) Flush() error {
	p.mu.Lock()
	hook := p.onFlush
	p.mu.Unlock()
	if hook != nil {
		hook()
	}
	return nil
}

func (p *memProvider) Close() error { return nil }

func (p *memProvider) setOnStore(hook func(pos ChunkPos)) {
	p.mu.Lock()
	p.onStore = hook
	p.mu.Unlock()
}

func (p *memProvider) has(pos ChunkPos) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.cols[pos]
	return ok
}

// markerGenerator fills a fixed marker block into every chunk it generates
// and counts its calls.
type markerGenerator struct {
	rid     uint32
	calls   atomic.Int32
	panicky bool
}

func (g *markerGenerator) GenerateChunk(pos ChunkPos, c *chunk.Chunk) {
	g.calls.Add(1)
	if g.panicky {
		panic("broken generator")
	}
	c.SetBlock(0, 0, 0, 0, g.rid)
}

// loadChunk attaches a loader of radius 0 at the chunk position passed and
// polls until the chunk is active.
func loadChunk(t *testing.T, w *World, pos ChunkPos) *Loader {
	t.Helper()
	l := NewLoader(0, w, nopViewer{})
	<-w.Exec(func(tx *Tx) {
		l.Move(tx, mgl64.Vec3{float64(pos[0]) * 16, 0, float64(pos[1]) * 16})
	})
	deadline := time.Now().Add(5 * time.Second)
	for {
		<-w.Exec(func(tx *Tx) {
			l.Load(tx, 4)
		})
		if _, ok := l.Chunk(pos); ok {
			return l
		}
		if time.Now().After(deadline) {
			t.Fatalf("chunk %v was never loaded", pos)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestWorldGeneratesMissingChunks(t *testing.T) {
	prov := newMemProvider()
	gen := &markerGenerator{rid: MustBlockRuntimeID("minecraft:stone")}
	w := Config{Provider: prov, Generator: gen}.New()
	t.Cleanup(func() { w.Close() })

	pos := ChunkPos{1, -2}
	loadChunk(t, w, pos)

	<-w.Exec(func(tx *Tx) {
		if rid := tx.Block(cube.Pos{int(pos[0]) * 16, 0, int(pos[1]) * 16}); rid != gen.rid {
			t.Errorf("generated chunk misses marker block, got %v", rid)
		}
	})
	if c := gen.calls.Load(); c != 1 {
		t.Fatalf("generator ran %v times, expected 1", c)
	}
}

func TestWorldLoadsStoredChunks(t *testing.T) {
	prov := newMemProvider()
	gen := &markerGenerator{rid: MustBlockRuntimeID("minecraft:stone")}

	w := Config{Provider: prov, Generator: gen}.New()
	pos := ChunkPos{0, 0}
	loadChunk(t, w, pos)
	if err := w.Close(); err != nil {
		t.Fatalf("close world: %v", err)
	}

	if !prov.has(pos) {
		t.Fatal("modified chunk not saved on close")
	}
	prov.mu.Lock()
	saves := prov.settingsSave
	prov.mu.Unlock()
	if saves == 0 {
		t.Fatal("settings not saved on close")
	}

	// A fresh world over the same provider must read the chunk back rather
	// than generating it again.
	w = Config{Provider: prov, Generator: gen}.New()
	t.Cleanup(func() { w.Close() })
	loadChunk(t, w, pos)

	<-w.Exec(func(tx *Tx) {
		if rid := tx.Block(cube.Pos{0, 0, 0}); rid != gen.rid {
			t.Errorf("stored chunk lost its marker block, got %v", rid)
		}
	})
	if c := gen.calls.Load(); c != 1 {
		t.Fatalf("generator ran %v times, expected 1", c)
	}
}

func TestWorldRegeneratesCorruptChunks(t *testing.T) {
	prov := newMemProvider()
	pos := ChunkPos{4, 4}
	prov.failLoad[pos] = fmt.Errorf("checksum mismatch: %w", ErrCorruptData)

	gen := &markerGenerator{rid: MustBlockRuntimeID("minecraft:stone")}
	w := Config{Provider: prov, Generator: gen}.New()
	loadChunk(t, w, pos)

	if c := gen.calls.Load(); c != 1 {
		t.Fatalf("generator ran %v times for corrupt chunk, expected 1", c)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close world: %v", err)
	}
	// The regenerated chunk replaces the corrupt data on disk.
	if !prov.has(pos) {
		t.Fatal("regenerated chunk not saved over the corrupt data")
	}
}

func TestWorldRetriesFailedLoads(t *testing.T) {
	prov := newMemProvider()
	pos := ChunkPos{2, 2}
	stone := MustBlockRuntimeID("minecraft:stone")

	c := chunk.New(airRID, cube.Range{-64, 319})
	c.SetBlock(3, 0, 3, 0, stone)
	prov.cols[pos] = chunk.EncodeDisk(c)
	prov.failLoad[pos] = errors.New("input/output error")

	gen := &markerGenerator{rid: stone}
	w := Config{Provider: prov, Generator: gen}.New()
	loadChunk(t, w, pos)

	// The transient read error is retried, so the disk data comes through and
	// the generator never runs.
	if calls := gen.calls.Load(); calls != 0 {
		t.Fatalf("generator ran %v times after a transient read error, expected 0", calls)
	}
	<-w.Exec(func(tx *Tx) {
		if rid := tx.Block(cube.Pos{int(pos[0])*16 + 3, 0, int(pos[1])*16 + 3}); rid != stone {
			t.Errorf("chunk loaded after retry misses its block, got %v", rid)
		}
	})
	if err := w.Close(); err != nil {
		t.Fatalf("close world: %v", err)
	}
	// The chunk was never modified in memory, so nothing is written back.
	if prov.stores != 0 {
		t.Fatalf("unmodified chunk was stored %v times", prov.stores)
	}
}

func TestWorldLoadGivesUpAfterRetries(t *testing.T) {
	prov := newMemProvider()
	pos := ChunkPos{2, 2}
	stone := MustBlockRuntimeID("minecraft:stone")

	c := chunk.New(airRID, cube.Range{-64, 319})
	c.SetBlock(3, 0, 3, 0, stone)
	prov.cols[pos] = chunk.EncodeDisk(c)
	prov.failLoad[pos] = errors.New("input/output error")
	prov.failLoadTimes[pos] = maxLoadAttempts

	gen := &markerGenerator{rid: stone}
	w := Config{Provider: prov, Generator: gen}.New()
	t.Cleanup(func() { w.Close() })

	l := NewLoader(0, w, nopViewer{})
	<-w.Exec(func(tx *Tx) {
		l.Move(tx, mgl64.Vec3{float64(pos[0]) * 16, 0, float64(pos[1]) * 16})
		l.Load(tx, 4)
	})

	col, ok := w.store.get(pos)
	if !ok {
		t.Fatal("column not acquired")
	}
	done := make(chan struct{})
	go func() {
		col.WaitReady()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(15 * time.Second):
		t.Fatal("column never activated after repeated load errors")
	}

	// A persistent read error activates a placeholder so no loader hangs, but
	// the generator never runs and the data on disk stays untouched.
	if calls := gen.calls.Load(); calls != 0 {
		t.Fatalf("generator ran %v times for a chunk with data on disk, expected 0", calls)
	}
	<-w.Exec(func(tx *Tx) {
		if rid := tx.Block(cube.Pos{int(pos[0])*16 + 3, 0, int(pos[1])*16 + 3}); rid != airRID {
			t.Errorf("placeholder chunk holds %v, expected air", rid)
		}
	})
	if prov.stores != 0 {
		t.Fatalf("placeholder was stored %v times over existing data", prov.stores)
	}
}

func TestWorldGenerationFault(t *testing.T) {
	prov := newMemProvider()
	gen := &markerGenerator{rid: MustBlockRuntimeID("minecraft:stone"), panicky: true}
	w := Config{Provider: prov, Generator: gen}.New()

	pos := ChunkPos{0, 0}
	loadChunk(t, w, pos)

	// The column activates with a placeholder so that loaders do not hang.
	<-w.Exec(func(tx *Tx) {
		if rid := tx.Block(cube.Pos{0, 0, 0}); rid != airRID {
			t.Errorf("placeholder chunk holds %v, expected air", rid)
		}
	})
	col, ok := w.store.get(pos)
	if !ok {
		t.Fatal("column missing after generation fault")
	}
	if !col.Faulted() {
		t.Fatal("column not marked faulted after generator panic")
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close world: %v", err)
	}
	if prov.has(pos) {
		t.Fatal("faulted chunk was saved to disk")
	}
}

func TestWorldEvictsAfterGracePeriod(t *testing.T) {
	prov := newMemProvider()
	gen := &markerGenerator{rid: MustBlockRuntimeID("minecraft:stone")}
	w := Config{Provider: prov, Generator: gen, UnloadDelay: 100 * time.Millisecond}.New()
	t.Cleanup(func() { w.Close() })

	pos := ChunkPos{0, 0}
	l := loadChunk(t, w, pos)

	// While the loader references the chunk, it must not be evicted.
	time.Sleep(1500 * time.Millisecond)
	if _, ok := l.Chunk(pos); !ok {
		t.Fatal("referenced chunk was evicted")
	}

	<-w.Exec(func(tx *Tx) {
		l.Close(tx)
	})
	deadline := time.Now().Add(10 * time.Second)
	for !prov.has(pos) || w.LoadedChunkCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("chunk not saved and evicted: stored=%v, loaded=%v", prov.has(pos), w.LoadedChunkCount())
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestWorldEvictionAbortsOnReacquire(t *testing.T) {
	prov := newMemProvider()
	entered := make(chan struct{})
	release := make(chan struct{})
	prov.onStore = func(ChunkPos) {
		entered <- struct{}{}
		<-release
	}
	gen := &markerGenerator{rid: MustBlockRuntimeID("minecraft:stone")}
	w := Config{Provider: prov, Generator: gen, UnloadDelay: 100 * time.Millisecond}.New()
	t.Cleanup(func() { w.Close() })

	pos := ChunkPos{0, 0}
	l := loadChunk(t, w, pos)
	<-w.Exec(func(tx *Tx) {
		tx.SetBlock(cube.Pos{1, 0, 1}, gen.rid, 0)
		l.Close(tx)
	})

	// The eviction save is now in flight, held open by the provider hook.
	<-entered
	prov.setOnStore(nil)

	// Re-acquire the chunk while it is being saved. The eviction must be
	// aborted: a column is only removed at a reference count of zero.
	l2 := NewLoader(0, w, nopViewer{})
	<-w.Exec(func(tx *Tx) {
		l2.Move(tx, mgl64.Vec3{})
		l2.Load(tx, 4)
	})
	if _, ok := l2.Chunk(pos); !ok {
		t.Fatal("chunk could not be re-acquired during its save")
	}
	close(release)

	deadline := time.Now().Add(5 * time.Second)
	for !prov.has(pos) {
		if time.Now().After(deadline) {
			t.Fatal("eviction save never finished")
		}
		time.Sleep(10 * time.Millisecond)
	}
	if n := w.LoadedChunkCount(); n != 1 {
		t.Fatalf("referenced chunk was evicted: %v chunks loaded, expected 1", n)
	}
	if _, ok := l2.Chunk(pos); !ok {
		t.Fatal("referenced chunk was evicted while a loader held it")
	}
	<-w.Exec(func(tx *Tx) {
		if rid := tx.Block(cube.Pos{1, 0, 1}); rid != gen.rid {
			t.Errorf("chunk data lost after aborted eviction, got %v", rid)
		}
	})
}

func TestWorldAutosaveKeepsChunkUsable(t *testing.T) {
	prov := newMemProvider()
	entered := make(chan struct{}, 1)
	release := make(chan struct{})
	prov.onStore = func(ChunkPos) {
		select {
		case entered <- struct{}{}:
		default:
		}
		<-release
	}
	gen := &markerGenerator{rid: MustBlockRuntimeID("minecraft:stone")}
	w := Config{Provider: prov, Generator: gen, SaveInterval: 200 * time.Millisecond}.New()
	t.Cleanup(func() { w.Close() })

	pos := ChunkPos{0, 0}
	loadChunk(t, w, pos)
	marker := MustBlockRuntimeID("minecraft:glowstone")
	<-w.Exec(func(tx *Tx) {
		tx.SetBlock(cube.Pos{1, 0, 1}, marker, 0)
	})

	// The autosave is now in flight, held open by the provider hook. The
	// chunk stays active throughout: reads see the stored blocks and writes
	// are applied, not dropped.
	<-entered
	prov.setOnStore(nil)
	go func() {
		time.Sleep(50 * time.Millisecond)
		close(release)
	}()

	<-w.Exec(func(tx *Tx) {
		if rid := tx.Block(cube.Pos{1, 0, 1}); rid != marker {
			t.Errorf("read during autosave returned %v, expected the marker block", rid)
		}
		tx.SetBlock(cube.Pos{2, 0, 2}, marker, 0)
	})
	<-w.Exec(func(tx *Tx) {
		if rid := tx.Block(cube.Pos{2, 0, 2}); rid != marker {
			t.Errorf("write issued during autosave was dropped, got %v", rid)
		}
	})
}

func TestWorldTickerNotBlockedByFlush(t *testing.T) {
	prov := newMemProvider()
	release := make(chan struct{})
	prov.onFlush = func() {
		<-release
	}

	gen := &markerGenerator{rid: MustBlockRuntimeID("minecraft:stone")}
	w := Config{Provider: prov, Generator: gen, SaveInterval: 100 * time.Millisecond}.New()
	t.Cleanup(func() { w.Close() })
	// Runs before the world closes, so its workers are not stuck in the hook.
	t.Cleanup(func() { close(release) })

	loadChunk(t, w, ChunkPos{0, 0})

	// Give the save interval time to fire, so a flush is blocked on a worker.
	time.Sleep(300 * time.Millisecond)

	// The ticker must keep running while the flush hangs.
	before := w.CurrentTick()
	time.Sleep(time.Second)
	if after := w.CurrentTick(); after-before < 10 {
		t.Fatalf("ticker stalled during a hanging flush: advanced %v ticks in a second", after-before)
	}
}

func TestWorldRetriesFailedSaves(t *testing.T) {
	prov := newMemProvider()
	prov.failStores = 2
	gen := &markerGenerator{rid: MustBlockRuntimeID("minecraft:stone")}
	w := Config{Provider: prov, Generator: gen, UnloadDelay: 100 * time.Millisecond}.New()
	t.Cleanup(func() { w.Close() })

	pos := ChunkPos{0, 0}
	l := loadChunk(t, w, pos)
	<-w.Exec(func(tx *Tx) {
		l.Close(tx)
	})

	// Two saves fail, the third succeeds after backoff.
	deadline := time.Now().Add(15 * time.Second)
	for !prov.has(pos) {
		if time.Now().After(deadline) {
			t.Fatal("chunk never saved despite retries")
		}
		time.Sleep(50 * time.Millisecond)
	}
}

func TestWorldSetBlockUpdatesLight(t *testing.T) {
	prov := newMemProvider()
	w := Config{Provider: prov, Generator: NopGenerator{}}.New()
	t.Cleanup(func() { w.Close() })

	loadChunk(t, w, ChunkPos{0, 0})

	torch := MustBlockRuntimeID("minecraft:torch")
	<-w.Exec(func(tx *Tx) {
		tx.SetBlock(cube.Pos{8, 0, 8}, torch, 0)
		if rid := tx.Block(cube.Pos{8, 0, 8}); rid != torch {
			t.Fatalf("block not set, got %v", rid)
		}
		c, ok := tx.Chunk(ChunkPos{0, 0})
		if !ok {
			t.Fatal("chunk not active after SetBlock")
		}
		if l := c.BlockLight(8, 0, 8); l != 14 {
			t.Errorf("block light at torch = %v, expected 14", l)
		}
		if l := c.BlockLight(8, 3, 8); l != 11 {
			t.Errorf("block light 3 above torch = %v, expected 11", l)
		}
		if l := tx.SkyLight(cube.Pos{8, 1, 8}); l != 15 {
			t.Errorf("sky light above torch = %v, expected 15", l)
		}
	})
}

// countingWrapHandler wraps another Handler and counts chunk activations.
type countingWrapHandler struct {
	Handler
	active *atomic.Int32
}

func (h countingWrapHandler) HandleChunkActive(tx *Tx, pos ChunkPos) {
	h.active.Add(1)
	h.Handler.HandleChunkActive(tx, pos)
}

func TestWorldHandlerWrap(t *testing.T) {
	var active atomic.Int32
	SetHandlerWrap(func(_ *World, h Handler) Handler {
		return countingWrapHandler{Handler: h, active: &active}
	})
	t.Cleanup(func() { SetHandlerWrap(nil) })

	prov := newMemProvider()
	gen := &markerGenerator{rid: MustBlockRuntimeID("minecraft:stone")}
	w := Config{Provider: prov, Generator: gen}.New()
	t.Cleanup(func() { w.Close() })

	w.Handle(NopHandler{})
	loadChunk(t, w, ChunkPos{0, 0})

	deadline := time.Now().Add(5 * time.Second)
	for active.Load() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("wrapped handler never saw a chunk activation")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

// slabGenerator paves the bottom four layers of every chunk it generates.
type slabGenerator struct {
	rid uint32
}

func (g slabGenerator) GenerateChunk(_ ChunkPos, c *chunk.Chunk) {
	for x := uint8(0); x < 16; x++ {
		for z := uint8(0); z < 16; z++ {
			for y := int16(0); y < 4; y++ {
				c.SetBlock(x, y, z, 0, g.rid)
			}
		}
	}
}

// randomTickHandler counts the random block ticks offered to it.
type randomTickHandler struct {
	NopHandler
	hits *atomic.Int32
}

func (h randomTickHandler) HandleBlockRandomTick(*Tx, cube.Pos, uint32) {
	h.hits.Add(1)
}

func TestWorldRandomTicks(t *testing.T) {
	prov := newMemProvider()
	gen := slabGenerator{rid: MustBlockRuntimeID("minecraft:stone")}
	w := Config{Provider: prov, Generator: gen}.New()
	t.Cleanup(func() { w.Close() })

	var hits atomic.Int32
	w.Handle(randomTickHandler{hits: &hits})

	loadChunk(t, w, ChunkPos{0, 0})

	deadline := time.Now().Add(5 * time.Second)
	for hits.Load() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("no block within simulation distance received a random tick")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestWorldReadOnly(t *testing.T) {
	prov := newMemProvider()
	gen := &markerGenerator{rid: MustBlockRuntimeID("minecraft:stone")}
	w := Config{Provider: prov, Generator: gen, ReadOnly: true}.New()

	pos := ChunkPos{0, 0}
	loadChunk(t, w, pos)
	if err := w.Close(); err != nil {
		t.Fatalf("close world: %v", err)
	}
	if prov.has(pos) {
		t.Fatal("read-only world wrote chunk data")
	}
}
