package world

import (
	"github.com/Mili-ssm/Pumpkin/server/block/cube"
	"github.com/Mili-ssm/Pumpkin/server/world/chunk"
)

// Viewer is a party that observes a part of the world through a Loader. A
// Viewer is notified of chunks that come into or go out of view and of block
// changes within chunks it views.
type Viewer interface {
	// ViewChunk is called when a chunk within the view of the Viewer becomes
	// active. The chunk passed must not be retained or mutated: it is owned
	// by the world.
	ViewChunk(pos ChunkPos, c *chunk.Chunk)
	// ViewChunkUnload is called when a chunk within the view of the Viewer
	// is about to leave memory, either because the Viewer moved away or
	// because the chunk is evicted.
	ViewChunkUnload(pos ChunkPos)
	// ViewBlockUpdate is called when a block in a chunk viewed changes.
	ViewBlockUpdate(pos cube.Pos, rid uint32, layer uint8)
}

// NopViewer is a Viewer implementation that does not do anything when
// called. It may be embedded by structs that need to implement only part of
// the Viewer interface.
type NopViewer struct{}

// Compile time check to make sure NopViewer implements Viewer.
var _ Viewer = NopViewer{}

func (NopViewer) ViewChunk(ChunkPos, *chunk.Chunk)        {}
func (NopViewer) ViewChunkUnload(ChunkPos)                {}
func (NopViewer) ViewBlockUpdate(cube.Pos, uint32, uint8) {}
