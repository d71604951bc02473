package world

import (
	"github.com/Mili-ssm/Pumpkin/server/block/cube"
	"github.com/Mili-ssm/Pumpkin/server/internal/txguard"
	"github.com/Mili-ssm/Pumpkin/server/world/chunk"
)

// Tx represents a synchronised transaction performed on a World. Most
// operations on a World can only be called through a transaction obtained by
// calling (*World).Exec. Transactions are not safe for use by multiple
// goroutines concurrently.
type Tx struct {
	closed bool
	w      *World
}

// Range returns the lower and upper bounds of the World that the Tx is
// operating on.
func (tx *Tx) Range() cube.Range {
	return tx.w.ra
}

// World returns the World of the Tx.
func (tx *Tx) World() *World {
	return tx.w
}

// Block reads a block from the position passed. If the chunk at that
// position is not active, air is returned: reads through a transaction never
// block on disk or generation.
func (tx *Tx) Block(pos cube.Pos) uint32 {
	tx.panicIfClosed()
	return tx.w.block(pos)
}

// SetBlock writes a block to the position passed. If the chunk at that
// position is not active, the write is dropped. The light of the chunk and,
// where necessary, its neighbours is updated incrementally.
func (tx *Tx) SetBlock(pos cube.Pos, rid uint32, layer uint8) {
	tx.panicIfClosed()
	tx.w.setBlock(pos, rid, layer)
}

// Biome reads the biome ID at the position passed, or 0 if the chunk at
// that position is not active.
func (tx *Tx) Biome(pos cube.Pos) uint32 {
	tx.panicIfClosed()
	return tx.w.biome(pos)
}

// SetBiome sets the biome ID at the position passed, if the chunk at that
// position is active.
func (tx *Tx) SetBiome(pos cube.Pos, id uint32) {
	tx.panicIfClosed()
	tx.w.setBiome(pos, id)
}

// Light returns the light level at the position passed. This is the highest
// of the sky and block light at the position.
func (tx *Tx) Light(pos cube.Pos) uint8 {
	tx.panicIfClosed()
	return tx.w.light(pos)
}

// SkyLight returns the sky light level at the position passed, unaffected by
// light emitted by blocks.
func (tx *Tx) SkyLight(pos cube.Pos) uint8 {
	tx.panicIfClosed()
	return tx.w.skyLight(pos)
}

// HighestBlock returns the Y value of the highest non-air block at the x
// and z passed, or the bottom of the world range if the chunk there is not
// active.
func (tx *Tx) HighestBlock(x, z int) int {
	tx.panicIfClosed()
	return tx.w.highestBlock(x, z)
}

// Chunk returns the chunk at a position if it is active. The chunk returned
// must not be retained after the transaction ends.
func (tx *Tx) Chunk(pos ChunkPos) (*chunk.Chunk, bool) {
	tx.panicIfClosed()
	col, ok := tx.w.store.active(pos)
	if !ok {
		return nil, false
	}
	return col.Chunk(), true
}

// close marks the transaction as finished, so that any future use panics.
func (tx *Tx) close() {
	tx.closed = true
}

// panicIfClosed panics if the transaction is used after it finished. Helper
// code that may hold on to an expired Tx can recover through the txguard
// package.
func (tx *Tx) panicIfClosed() {
	if tx.closed {
		panic(txguard.ClosedPanicMessage)
	}
}

// normalTransaction is a transaction that runs a function and closes the
// channel passed when done.
type normalTransaction struct {
	c chan struct{}
	f ExecFunc
}

// Run runs the transaction function and closes the done channel.
func (ntx normalTransaction) Run(w *World) {
	tx := &Tx{w: w}
	ntx.f(tx)
	tx.close()
	close(ntx.c)
}
