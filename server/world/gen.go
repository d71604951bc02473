package world

import "github.com/Mili-ssm/Pumpkin/server/world/chunk"

// Generator handles the generating of newly created chunks. Worlds have one
// generator which is used to generate chunks when the provider of the world
// cannot find a chunk at a given chunk position.
// GenerateChunk is called from multiple worker goroutines at the same time
// and must therefore be safe for concurrent use. The chunk passed is owned
// exclusively by the caller for the duration of the call. Generators must be
// deterministic: generating the same position twice with the same seed must
// produce identical chunks.
type Generator interface {
	// GenerateChunk generates a chunk at a chunk position passed. The chunk
	// passed to this method is always empty.
	GenerateChunk(pos ChunkPos, c *chunk.Chunk)
}

// NopGenerator is the default generator a World. It places no blocks in the
// world, resulting in a void world.
type NopGenerator struct{}

// Compile time check to make sure NopGenerator implements Generator.
var _ Generator = NopGenerator{}

// GenerateChunk ...
func (NopGenerator) GenerateChunk(ChunkPos, *chunk.Chunk) {}
