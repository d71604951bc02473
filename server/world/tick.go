package world

import (
	"math"
	"time"

	"github.com/Mili-ssm/Pumpkin/server/block/cube"
	"github.com/Mili-ssm/Pumpkin/server/internal/txguard"
)

// ticker implements World ticking methods.
type ticker struct {
	interval time.Duration
}

const (
	tpsSampleSize       = 20
	tpsWarningThreshold = 19.0
)

// tickLoop starts ticking the World 20 times every second, updating the
// time, scanning for expired chunks and triggering periodic saves.
func (t ticker) tickLoop(w *World) {
	tc := time.NewTicker(t.interval)
	defer tc.Stop()
	lastTick := time.Now()
	var (
		durationSum time.Duration
		ticksCount  int
		warned      bool
	)
	for {
		select {
		case <-tc.C:
			tickStart := time.Now()
			duration := tickStart.Sub(lastTick)
			lastTick = tickStart
			if duration > 0 {
				durationSum += duration
				ticksCount++
				if ticksCount >= tpsSampleSize {
					avg := durationSum / time.Duration(ticksCount)
					if avg > 0 {
						tps := 1.0 / avg.Seconds()
						w.tps.Store(math.Float64bits(tps))
						if tps < tpsWarningThreshold {
							if !warned {
								w.conf.Log.Warn("TPS dropped below threshold.", "tps", tps)
								warned = true
							}
						} else if warned {
							warned = false
						}
					} else {
						w.tps.Store(math.Float64bits(0))
					}
					durationSum = 0
					ticksCount = 0
				}
			}
			<-w.Exec(t.tick)
		case <-w.closing:
			// World is being closed: Stop ticking and get rid of a task.
			w.running.Done()
			return
		}
	}
}

// tick performs a tick on the World: the time advances, expired chunks are
// scheduled for eviction and modified chunks are saved on the world's save
// interval.
func (t ticker) tick(tx *Tx) {
	w := tx.World()

	w.set.Lock()
	w.set.CurrentTick++
	if w.set.TimeCycle {
		w.set.Time++
	}
	tick := w.set.CurrentTick
	w.set.Unlock()

	if tick%20 == 0 {
		// Handlers run user code: a handler that retains an expired Tx must
		// not be able to stall the ticker.
		txguard.Run(func() {
			w.scheduleEvictions(tx)
		})
	}

	if w.lastSave.IsZero() {
		w.lastSave = time.Now()
	}
	if !w.conf.ReadOnly && time.Since(w.lastSave) >= w.conf.SaveInterval {
		w.lastSave = time.Now()
		// saveAll only schedules work: the disk writes, the settings save and
		// the flush all happen on the workers.
		w.saveAll()
	}

	t.tickSimulation(w, tx)
}

// randomTickCount is the number of random block ticks attempted per non-empty
// sub chunk of a simulated chunk per tick.
const randomTickCount = 3

// tickSimulation delivers random block ticks to active chunks within the
// simulation distance of a Loader. Chunks covered by several loaders are
// ticked once.
func (t ticker) tickSimulation(w *World, tx *Tx) {
	dist := int32(w.conf.SimulationDistance)

	w.viewerMu.Lock()
	loaders := make([]*Loader, 0, len(w.viewers))
	for l := range w.viewers {
		loaders = append(loaders, l)
	}
	w.viewerMu.Unlock()

	ticked := map[ChunkPos]struct{}{}
	for _, l := range loaders {
		l.mu.RLock()
		centre, moved := l.pos, l.moved
		l.mu.RUnlock()
		if !moved {
			// The loader was never positioned in the world.
			continue
		}
		for dx := -dist; dx <= dist; dx++ {
			for dz := -dist; dz <= dist; dz++ {
				pos := ChunkPos{centre[0] + dx, centre[1] + dz}
				if _, ok := ticked[pos]; ok {
					continue
				}
				ticked[pos] = struct{}{}
				w.randomTickChunk(tx, pos)
			}
		}
	}
}

// blockTick is a random tick collected under the column lock and dispatched
// to the Handler after it is released, so that the Handler may mutate the
// chunk.
type blockTick struct {
	pos cube.Pos
	rid uint32
}

// randomTickChunk picks random block positions in every non-empty sub chunk
// of the chunk at the position passed and offers the non-air ones to the
// Handler.
func (w *World) randomTickChunk(tx *Tx, pos ChunkPos) {
	col, ok := w.store.active(pos)
	if !ok {
		return
	}
	var ticks []blockTick

	col.mu.Lock()
	c := col.c
	for i, sub := range c.Sub() {
		if sub.Empty() {
			continue
		}
		base := int(c.SubY(int16(i)))
		for range randomTickCount {
			x, y, z := uint8(w.r.IntN(16)), uint8(w.r.IntN(16)), uint8(w.r.IntN(16))
			rid := sub.Block(x, y, z, 0)
			if rid == airRID {
				continue
			}
			ticks = append(ticks, blockTick{
				pos: cube.Pos{int(pos[0])<<4 | int(x), base + int(y), int(pos[1])<<4 | int(z)},
				rid: rid,
			})
		}
	}
	col.mu.Unlock()

	h := w.Handler()
	for _, bt := range ticks {
		h.HandleBlockRandomTick(tx, bt.pos, bt.rid)
	}
}
