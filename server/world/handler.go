package world

import "github.com/Mili-ssm/Pumpkin/server/block/cube"

// Handler handles events that happen during the lifecycle of chunks in a
// World. Handlers are called on the world's transaction goroutine, so their
// methods must return quickly.
type Handler interface {
	// HandleChunkActive handles a chunk at a position becoming active, after
	// it was loaded or generated and lit. The chunk may be read through the
	// Tx passed.
	HandleChunkActive(tx *Tx, pos ChunkPos)
	// HandleChunkUnload handles a chunk at a position being evicted from
	// memory. The chunk is saved after this method returns, so the Handler
	// may perform final mutations through the Tx passed.
	HandleChunkUnload(tx *Tx, pos ChunkPos)
	// HandleBlockRandomTick handles a random tick of the block at a position
	// within the simulation distance of a Loader. The block may be mutated
	// through the Tx passed.
	HandleBlockRandomTick(tx *Tx, pos cube.Pos, rid uint32)
	// HandleClose handles the World being closed. HandleClose is called
	// before the final save of all chunks in memory.
	HandleClose(tx *Tx)
}

// NopHandler implements the Handler interface but does not execute any code
// when an event is called. The default Handler of worlds is set to
// NopHandler. Users may embed NopHandler to avoid having to implement each
// method.
type NopHandler struct{}

// Compile time check to make sure NopHandler implements Handler.
var _ Handler = NopHandler{}

func (NopHandler) HandleChunkActive(*Tx, ChunkPos)            {}
func (NopHandler) HandleChunkUnload(*Tx, ChunkPos)            {}
func (NopHandler) HandleBlockRandomTick(*Tx, cube.Pos, uint32) {}
func (NopHandler) HandleClose(*Tx)                            {}
