package world

import (
	"errors"
	"math"
	"math/rand/v2"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Mili-ssm/Pumpkin/server/block/cube"
	"github.com/Mili-ssm/Pumpkin/server/world/chunk"
)

// World manages the chunks of a voxel world: loading them from disk,
// generating missing ones, calculating their light and saving and evicting
// them once no Loader needs them anymore. World provides a synchronised
// state: all block reads and writes happen through transactions executed one
// at a time, while chunk I/O and generation run on a pool of workers that
// never blocks those transactions.
type World struct {
	conf Config
	ra   cube.Range

	queue        chan transaction
	queueClosing chan struct{}
	queueing     sync.WaitGroup

	o sync.Once

	set     *Settings
	handler atomic.Pointer[Handler]

	closing chan struct{}
	running sync.WaitGroup

	store *store
	sched *scheduler

	viewerMu sync.Mutex
	viewers  map[*Loader]Viewer

	r *rand.Rand

	tps atomic.Uint64

	lastSave time.Time
}

// transaction is a type that may be added to the transaction queue of a
// World. Its Run method is called when the transaction is taken out of the
// queue.
type transaction interface {
	Run(w *World)
}

// New creates a new initialised world. The world may be used right away, but
// it will not be saved or loaded from files until it has been given a
// different provider than the default. (NopProvider) By default, the name of
// the world will be 'World'.
func New() *World {
	var conf Config
	return conf.New()
}

// Name returns the display name of the world.
func (w *World) Name() string {
	w.set.Lock()
	defer w.set.Unlock()
	return w.set.Name
}

// Range returns the range in blocks of the World (min and max).
func (w *World) Range() cube.Range {
	return w.ra
}

// Seed returns the seed used to generate the terrain of the World.
func (w *World) Seed() int64 {
	w.set.Lock()
	defer w.set.Unlock()
	return w.set.Seed
}

// Spawn returns the spawn of the world. Every world has a spawn point which
// may be changed using SetSpawn.
func (w *World) Spawn() cube.Pos {
	if w == nil {
		return cube.Pos{}
	}
	w.set.Lock()
	defer w.set.Unlock()
	return w.set.Spawn
}

// SetSpawn sets the spawn of the world to a different position.
func (w *World) SetSpawn(pos cube.Pos) {
	if w == nil {
		return
	}
	w.set.Lock()
	defer w.set.Unlock()
	w.set.Spawn = pos
}

// CurrentTick returns the current tick counter of the world.
func (w *World) CurrentTick() int64 {
	if w == nil {
		return 0
	}
	w.set.Lock()
	defer w.set.Unlock()
	return w.set.CurrentTick
}

// Time returns the current time of the world. The time is incremented every
// 1/20th of a second.
func (w *World) Time() int {
	if w == nil {
		return 0
	}
	w.set.Lock()
	defer w.set.Unlock()
	return int(w.set.Time)
}

// SetTime sets the new time of the world.
func (w *World) SetTime(new int) {
	if w == nil {
		return
	}
	w.set.Lock()
	defer w.set.Unlock()
	w.set.Time = int64(new)
}

// TPS returns the current average ticks per second of the world. The value
// is averaged over the last tpsSampleSize ticks and may be zero if no
// samples have been recorded yet.
func (w *World) TPS() float64 {
	return math.Float64frombits(w.tps.Load())
}

// LoadedChunkCount returns the number of chunks currently kept in memory by
// the world.
func (w *World) LoadedChunkCount() int {
	return w.store.len()
}

// QueueSaturation returns the number of chunk tasks rejected so far because
// the worker queue was full.
func (w *World) QueueSaturation() uint64 {
	return w.sched.Saturation()
}

// ExecFunc is a function that performs a synchronised transaction on a
// World.
type ExecFunc func(tx *Tx)

// Exec performs a synchronised transaction f on a World. Exec returns a
// channel that is closed once the transaction is complete.
func (w *World) Exec(f ExecFunc) <-chan struct{} {
	c := make(chan struct{})
	w.queue <- normalTransaction{c: c, f: f}
	return c
}

// handleTransactions continuously reads transactions from the queue and runs
// them.
func (w *World) handleTransactions() {
	for {
		select {
		case tx := <-w.queue:
			tx.Run(w)
		case <-w.queueClosing:
			w.queueing.Done()
			return
		}
	}
}

// Handle changes the current Handler of the world. As a result, events
// called by the world will call the methods of the Handler passed. Handle
// sets the world's Handler to NopHandler if nil is passed.
func (w *World) Handle(h Handler) {
	if w == nil {
		return
	}
	if h == nil {
		h = NopHandler{}
	}
	h = wrapHandler(w, h)
	w.handler.Store(&h)
}

// Handler returns the Handler of the world.
func (w *World) Handler() Handler {
	if w == nil {
		return NopHandler{}
	}
	return *w.handler.Load()
}

// block reads a block from the position passed. Chunks that are not active
// read as air: transactions never wait for disk or generation.
func (w *World) block(pos cube.Pos) uint32 {
	if pos.OutOfBounds(w.ra) {
		// Fast way out.
		return airRID
	}
	col, ok := w.store.active(chunkPosFromBlockPos(pos))
	if !ok {
		return airRID
	}
	col.mu.Lock()
	defer col.mu.Unlock()
	return col.c.Block(uint8(pos[0]), int16(pos[1]), uint8(pos[2]), 0)
}

// setBlock writes a block to the position passed and updates the light
// around it. Writes to chunks that are not active are dropped.
func (w *World) setBlock(pos cube.Pos, rid uint32, layer uint8) {
	if pos.OutOfBounds(w.ra) {
		// Fast way out.
		return
	}
	chunkPos := chunkPosFromBlockPos(pos)
	col, ok := w.store.active(chunkPos)
	if !ok {
		return
	}
	x, y, z := uint8(pos[0]), int16(pos[1]), uint8(pos[2])

	col.mu.Lock()
	before := col.c.Block(x, y, z, layer)
	col.c.SetBlock(x, y, z, layer, rid)
	col.modified = true
	loaders := slices.Clone(col.loaders)
	col.mu.Unlock()

	if lightChanged(before, rid) {
		w.relightArea(chunkPos)
	}

	for _, l := range loaders {
		if l.viewer != nil {
			l.viewer.ViewBlockUpdate(pos, rid, layer)
		}
	}
}

// lightChanged checks if replacing one block by another influences the light
// around it. Swapping blocks with identical emission and filter levels does
// not.
func lightChanged(before, after uint32) bool {
	if before == after {
		return false
	}
	return blockProperties(before).LightEmission != blockProperties(after).LightEmission ||
		blockProperties(before).LightFilter != blockProperties(after).LightFilter
}

// biome reads the biome ID at the position passed, or 0 if the chunk at the
// position is not active.
func (w *World) biome(pos cube.Pos) uint32 {
	if pos.OutOfBounds(w.ra) {
		return 0
	}
	col, ok := w.store.active(chunkPosFromBlockPos(pos))
	if !ok {
		return 0
	}
	col.mu.Lock()
	defer col.mu.Unlock()
	return col.c.Biome(uint8(pos[0]), int16(pos[1]), uint8(pos[2]))
}

// setBiome sets the biome ID at the position passed, if the chunk at that
// position is active.
func (w *World) setBiome(pos cube.Pos, id uint32) {
	if pos.OutOfBounds(w.ra) {
		return
	}
	col, ok := w.store.active(chunkPosFromBlockPos(pos))
	if !ok {
		return
	}
	col.mu.Lock()
	col.c.SetBiome(uint8(pos[0]), int16(pos[1]), uint8(pos[2]), id)
	col.modified = true
	col.mu.Unlock()
}

// light returns the light level at the position passed. This is the highest
// of the sky and block light. The light value returned is a value in the
// range 0-15, where 0 means there is no light present, whereas 15 means the
// block is fully lit.
func (w *World) light(pos cube.Pos) uint8 {
	if pos[1] < w.ra[0] {
		// Fast way out.
		return 0
	}
	if pos[1] > w.ra[1] {
		// Above the rest of the world, so full skylight.
		return 15
	}
	col, ok := w.store.active(chunkPosFromBlockPos(pos))
	if !ok {
		return 0
	}
	col.mu.Lock()
	defer col.mu.Unlock()
	return col.c.Light(uint8(pos[0]), int16(pos[1]), uint8(pos[2]))
}

// skyLight returns the skylight level at the position passed. This light
// level is not influenced by blocks that emit light, such as torches.
func (w *World) skyLight(pos cube.Pos) uint8 {
	if pos[1] < w.ra[0] {
		// Fast way out.
		return 0
	}
	if pos[1] > w.ra[1] {
		// Above the rest of the world, so full skylight.
		return 15
	}
	col, ok := w.store.active(chunkPosFromBlockPos(pos))
	if !ok {
		return 0
	}
	col.mu.Lock()
	defer col.mu.Unlock()
	return col.c.SkyLight(uint8(pos[0]), int16(pos[1]), uint8(pos[2]))
}

// highestBlock looks up the highest non-air block in the World at a
// specific x and z. The y value of the highest block is returned, or the
// bottom of the world range if no blocks were present in the column.
func (w *World) highestBlock(x, z int) int {
	col, ok := w.store.active(ChunkPos{int32(x >> 4), int32(z >> 4)})
	if !ok {
		return w.ra[0]
	}
	col.mu.Lock()
	defer col.mu.Unlock()
	return int(col.c.HighestBlock(uint8(x), uint8(z)))
}

// acquireChunk obtains a reference to the column at the position passed on
// behalf of the loader passed. If the column did not exist yet, a task to
// load or generate it is scheduled with the priority passed. acquireChunk
// returns ErrQueueSaturated if the task could not be scheduled, in which
// case no reference is held and the caller should retry later.
func (w *World) acquireChunk(pos ChunkPos, l *Loader, priority int64) (*Column, error) {
	col, created := w.store.acquire(pos)

	col.mu.Lock()
	col.loaders = append(col.loaders, l)
	col.mu.Unlock()

	if !created {
		return col, nil
	}
	if err := w.sched.schedule(pos, priority, func() { w.runLoadTask(col) }); err != nil {
		col.mu.Lock()
		if i := slices.Index(col.loaders, l); i != -1 {
			col.loaders = slices.Delete(col.loaders, i, i+1)
		}
		col.mu.Unlock()
		w.store.rollback(pos)
		return nil, err
	}
	return col, nil
}

// releaseChunk drops the reference of the loader passed to the column at the
// position passed. The column becomes an eviction candidate once its last
// reference is dropped.
func (w *World) releaseChunk(pos ChunkPos, l *Loader) {
	if col, ok := w.store.get(pos); ok {
		col.mu.Lock()
		if i := slices.Index(col.loaders, l); i != -1 {
			col.loaders = slices.Delete(col.loaders, i, i+1)
		}
		col.mu.Unlock()
	}
	w.store.release(pos, w.conf.UnloadDelay)
}

// runLoadTask fills the column passed: it loads the chunk from the Provider
// or, if the Provider has no data for it, generates it. The chunk's light is
// then calculated before the column becomes active. runLoadTask always
// leaves the column active so that no goroutine waits forever, even when
// loading and generation both fail.
func (w *World) runLoadTask(col *Column) {
	pos := col.pos
	c, err := w.conf.Provider.LoadColumn(pos)
	switch {
	case err == nil:
	case errors.Is(err, ErrNotFound):
		c = w.generate(pos, col)
	case errors.Is(err, ErrCorruptData):
		// Corrupt data is discarded and the chunk regenerated. The save that
		// follows overwrites the broken data on disk.
		w.conf.Log.Error("load chunk: corrupt data, regenerating: "+err.Error(), "X", pos[0], "Z", pos[1])
		c = w.generate(pos, col)
	default:
		// An I/O error does not mean the data is gone. Retry with backoff
		// before falling back to a placeholder.
		col.mu.Lock()
		col.loadAttempts++
		attempts := col.loadAttempts
		col.mu.Unlock()

		if attempts < maxLoadAttempts {
			w.conf.Log.Error("load chunk: "+err.Error(), "X", pos[0], "Z", pos[1], "attempt", attempts)
			w.sched.scheduleLater(pos, 0, time.Duration(attempts)*500*time.Millisecond, func() {
				w.runLoadTask(col)
			})
			return
		}
		// The load keeps failing. Activate a placeholder so that no loader
		// hangs, but leave the data on disk untouched by keeping the column
		// unmodified.
		w.conf.Log.Error("load chunk: giving up, activating placeholder: "+err.Error(), "X", pos[0], "Z", pos[1])
		c = chunk.New(airRID, w.ra)
	}

	col.mu.Lock()
	col.c = c
	col.state = StateLighting
	col.mu.Unlock()

	chunk.FillLight(chunk.NewLightArea([]*chunk.Chunk{c}, int(pos[0]), int(pos[1]), 1))

	col.markActive()
	w.spreadAround(pos)

	col.mu.Lock()
	loaders := slices.Clone(col.loaders)
	col.mu.Unlock()
	for _, l := range loaders {
		l.chunkActivated(pos, c)
	}

	w.Exec(func(tx *Tx) {
		w.Handler().HandleChunkActive(tx, pos)
	})
}

// generate produces the terrain of a chunk through the Generator of the
// world. A panicking Generator does not bring down the worker: the fault is
// logged with the seed and position needed to reproduce it, and a
// placeholder chunk is returned with the column marked faulted so that the
// placeholder is never saved to disk.
func (w *World) generate(pos ChunkPos, col *Column) (c *chunk.Chunk) {
	col.setState(StateGenerating)
	c = chunk.New(airRID, w.ra)

	defer func() {
		if rec := recover(); rec != nil {
			fault := GenerationFault{Pos: pos, Seed: w.Seed(), Reason: rec}
			w.conf.Log.Error("generate chunk: "+fault.Error(), "X", pos[0], "Z", pos[1], "seed", fault.Seed)

			col.mu.Lock()
			col.faulted = true
			col.mu.Unlock()
			c = chunk.New(airRID, w.ra)
		}
	}()

	w.conf.Generator.GenerateChunk(pos, c)

	col.mu.Lock()
	col.modified = true
	col.mu.Unlock()
	return c
}

// spreadAround exchanges light across the borders of any chunk around the
// position passed that now has all of its neighbours active. Light inside a
// single chunk is correct as soon as the chunk activates; border light can
// only settle once both sides exist.
func (w *World) spreadAround(centre ChunkPos) {
	for x := int32(-1); x <= 1; x++ {
		for z := int32(-1); z <= 1; z++ {
			w.spreadLight(ChunkPos{centre[0] + x, centre[1] + z})
		}
	}
}

// spreadLight spreads the light of the chunk at the position passed to its
// neighbours, if the chunk and all eight neighbours are active and the
// spread has not happened before.
func (w *World) spreadLight(pos ChunkPos) {
	cols := make([]*Column, 0, 9)
	for z := int32(-1); z <= 1; z++ {
		for x := int32(-1); x <= 1; x++ {
			col, ok := w.store.active(ChunkPos{pos[0] + x, pos[1] + z})
			if !ok {
				// Not all surrounding chunks were active: stop spreading
				// light. The spread happens once the last neighbour arrives.
				return
			}
			cols = append(cols, col)
		}
	}
	centre := cols[4]
	centre.mu.Lock()
	if centre.spread {
		centre.mu.Unlock()
		return
	}
	centre.spread = true
	centre.mu.Unlock()

	// Lock the columns in a fixed order so that two overlapping spreads
	// cannot deadlock.
	locked := slices.Clone(cols)
	slices.SortFunc(locked, func(a, b *Column) int {
		if a.pos[0] != b.pos[0] {
			return int(a.pos[0] - b.pos[0])
		}
		return int(a.pos[1] - b.pos[1])
	})
	for _, col := range locked {
		col.mu.Lock()
	}
	c := make([]*chunk.Chunk, 9)
	for i, col := range cols {
		c[i] = col.c
	}
	chunk.SpreadLight(chunk.NewLightArea(c, int(pos[0])-1, int(pos[1])-1, 3))
	for _, col := range locked {
		col.mu.Unlock()
	}
}

// relightArea recalculates the light of the 3x3 chunk area centred on the
// position passed. It is called after block mutations that influence light.
// Chunks in the area that are not active are skipped: their light settles
// when they activate and spread.
func (w *World) relightArea(pos ChunkPos) {
	cols := make([]*Column, 0, 9)
	for z := int32(-1); z <= 1; z++ {
		for x := int32(-1); x <= 1; x++ {
			col, ok := w.store.active(ChunkPos{pos[0] + x, pos[1] + z})
			if !ok {
				// Fall back to relighting just the mutated chunk.
				if centre, ok := w.store.active(pos); ok {
					centre.mu.Lock()
					chunk.FillLight(chunk.NewLightArea([]*chunk.Chunk{centre.c}, int(pos[0]), int(pos[1]), 1))
					centre.spread = false
					centre.mu.Unlock()
				}
				return
			}
			cols = append(cols, col)
		}
	}
	locked := slices.Clone(cols)
	slices.SortFunc(locked, func(a, b *Column) int {
		if a.pos[0] != b.pos[0] {
			return int(a.pos[0] - b.pos[0])
		}
		return int(a.pos[1] - b.pos[1])
	})
	for _, col := range locked {
		col.mu.Lock()
	}
	c := make([]*chunk.Chunk, 9)
	for i, col := range cols {
		c[i] = col.c
	}
	a := chunk.NewLightArea(c, int(pos[0])-1, int(pos[1])-1, 3)
	chunk.FillLight(a)
	chunk.SpreadLight(a)
	for _, col := range locked {
		col.mu.Unlock()
	}
}

// maxSaveAttempts is the number of times a chunk save is retried with
// backoff before the chunk is kept in memory instead. maxLoadAttempts bounds
// the retries of a failing chunk load the same way before a placeholder is
// activated.
const (
	maxSaveAttempts = 5
	maxLoadAttempts = 5
)

// runSaveTask saves the column passed and, if evict is true, removes it from
// memory afterwards. Failed saves are retried with backoff; a column whose
// saves keep failing stays in memory so that its data is not lost.
func (w *World) runSaveTask(col *Column, evict bool) {
	if !evict {
		w.saveInPlace(col)
		return
	}
	pos := col.pos

	col.mu.Lock()
	if col.refs > 0 {
		// A loader re-acquired the column between eviction scan and save.
		col.state = StateActive
		col.mu.Unlock()
		return
	}
	c, modified, faulted := col.c, col.modified, col.faulted
	col.mu.Unlock()

	if modified && !faulted && !w.conf.ReadOnly {
		c.Compact()
		if err := w.conf.Provider.StoreColumn(pos, c); err != nil {
			col.mu.Lock()
			col.saveAttempts++
			attempts := col.saveAttempts
			col.mu.Unlock()

			if attempts < maxSaveAttempts {
				w.conf.Log.Error("save chunk: "+err.Error(), "X", pos[0], "Z", pos[1], "attempt", attempts)
				w.sched.scheduleLater(pos, -1, time.Duration(attempts)*500*time.Millisecond, func() {
					w.runSaveTask(col, evict)
				})
				return
			}
			// The save keeps failing. Keep the chunk in memory so its data
			// survives until a later save succeeds.
			w.conf.Log.Error("save chunk: giving up, keeping chunk in memory: "+err.Error(), "X", pos[0], "Z", pos[1])
			col.mu.Lock()
			col.state = StateActive
			col.saveAttempts = 0
			col.unloadAt = time.Now().Add(w.conf.SaveInterval)
			col.mu.Unlock()
			return
		}
		col.mu.Lock()
		col.modified = false
		col.saveAttempts = 0
		col.mu.Unlock()
	}
	// A loader may have re-acquired the column while the save was running:
	// removal is aborted atomically when any reference exists.
	w.store.removeIfUnreferenced(pos)
}

// saveInPlace writes a modified column to the Provider without taking it out
// of StateActive: transactions keep reading and writing the chunk throughout
// a routine save. The write happens under the column lock, so only writes to
// this one chunk wait for the disk write to finish.
func (w *World) saveInPlace(col *Column) {
	pos := col.pos

	col.mu.Lock()
	if col.state != StateActive || !col.modified || col.faulted || w.conf.ReadOnly {
		col.mu.Unlock()
		return
	}
	col.c.Compact()
	err := w.conf.Provider.StoreColumn(pos, col.c)
	if err == nil {
		col.modified = false
		col.saveAttempts = 0
		col.mu.Unlock()
		return
	}
	col.saveAttempts++
	attempts := col.saveAttempts
	col.mu.Unlock()

	if attempts < maxSaveAttempts {
		w.conf.Log.Error("save chunk: "+err.Error(), "X", pos[0], "Z", pos[1], "attempt", attempts)
		w.sched.scheduleLater(pos, -1, time.Duration(attempts)*500*time.Millisecond, func() {
			w.saveInPlace(col)
		})
		return
	}
	w.conf.Log.Error("save chunk: giving up until the next save interval: "+err.Error(), "X", pos[0], "Z", pos[1])
	col.mu.Lock()
	col.saveAttempts = 0
	col.mu.Unlock()
}

// scheduleEvictions finds all columns whose unload delay has expired and
// schedules save tasks for them. It is called from the ticker. The Handler
// and viewers are notified before the save starts, so that a final flush of
// pending state may still happen.
func (w *World) scheduleEvictions(tx *Tx) {
	for _, col := range w.store.expired(time.Now()) {
		pos := col.pos
		w.Handler().HandleChunkUnload(tx, pos)
		w.viewerMu.Lock()
		for _, v := range w.viewers {
			v.ViewChunkUnload(pos)
		}
		w.viewerMu.Unlock()

		col := col
		if err := w.sched.schedule(pos, -1, func() { w.runSaveTask(col, true) }); err != nil {
			// Queue full: return the column to its active state and retry on
			// a later tick.
			col.setState(StateActive)
		}
	}
}

// saveAll schedules in-place save tasks for every modified active column.
// Columns stay active while they save: a routine save never makes a chunk
// unreadable. saveAll performs no provider I/O itself, so it is safe to call
// from the ticker.
func (w *World) saveAll() {
	if w.conf.ReadOnly {
		return
	}
	for _, col := range w.store.all() {
		col.mu.Lock()
		due := col.state == StateActive && col.modified && !col.faulted
		col.mu.Unlock()
		if !due {
			continue
		}
		col := col
		if err := w.sched.schedule(col.pos, -1, func() { w.runSaveTask(col, false) }); err != nil {
			// Queue full: the column stays modified and is picked up again on
			// the next save interval.
			continue
		}
	}
	w.set.Lock()
	set := *w.set
	w.set.Unlock()
	// The settings write and the sync go through the worker pool too, after
	// the chunk saves scheduled above.
	w.sched.scheduleLater(ChunkPos{}, 0, 0, func() {
		w.conf.Provider.SaveSettings(&set)
		if err := w.conf.Provider.Flush(); err != nil {
			w.conf.Log.Error("flush provider: " + err.Error())
		}
	})
}

// Save saves all chunks currently in memory to the Provider and flushes it.
func (w *World) Save() {
	<-w.Exec(func(tx *Tx) { w.saveAll() })
	if err := w.conf.Provider.Flush(); err != nil {
		w.conf.Log.Error("flush provider: " + err.Error())
	}
}

// addWorldViewer registers the Loader passed with the world.
func (w *World) addWorldViewer(l *Loader) {
	w.viewerMu.Lock()
	w.viewers[l] = l.viewer
	w.viewerMu.Unlock()
}

// removeWorldViewer removes the Loader passed from the world.
func (w *World) removeWorldViewer(l *Loader) {
	w.viewerMu.Lock()
	delete(w.viewers, l)
	w.viewerMu.Unlock()
}

// Close closes the world and saves all chunks currently loaded.
func (w *World) Close() error {
	w.o.Do(w.close)
	return nil
}

// close stops the World from ticking, saves all chunks to the Provider and
// updates the world's settings.
func (w *World) close() {
	<-w.Exec(func(tx *Tx) {
		// Let user code run anything that needs to be finished before
		// closing.
		w.Handler().HandleClose(tx)
		w.Handle(NopHandler{})
	})

	close(w.closing)
	w.running.Wait()

	// Stop the workers. Pending loads and saves finish before close
	// returns, so every column ends in a settled state.
	w.sched.close()

	w.conf.Log.Debug("Saving chunks in memory to disk...")
	for _, col := range w.store.all() {
		col.mu.Lock()
		c, modified, faulted := col.c, col.modified, col.faulted
		col.mu.Unlock()
		if c == nil || !modified || faulted || w.conf.ReadOnly {
			continue
		}
		c.Compact()
		if err := w.conf.Provider.StoreColumn(col.pos, c); err != nil {
			w.conf.Log.Error("save chunk: "+err.Error(), "X", col.pos[0], "Z", col.pos[1])
		}
	}
	w.set.Lock()
	set := *w.set
	w.set.Unlock()
	w.conf.Provider.SaveSettings(&set)

	close(w.queueClosing)
	w.queueing.Wait()

	w.conf.Log.Debug("Closing provider...")
	if err := w.conf.Provider.Close(); err != nil {
		w.conf.Log.Error("close world provider: " + err.Error())
	}
}
