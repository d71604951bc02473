package chunk

import (
	"github.com/Mili-ssm/Pumpkin/server/block/cube"
)

// Chunk is a segment in the world with a size of 16x16 blocks horizontally
// and the full height of the world vertically. It forms the smallest unit of
// loading, generation and persistence.
type Chunk struct {
	// r holds the vertical range of the chunk in blocks.
	r cube.Range
	// air is the runtime ID of air.
	air uint32
	// recalculateHeightMap is true if the chunk's height map should be
	// recalculated on the next call to HeightMap.
	recalculateHeightMap bool
	// heightMap is the height map of the chunk: The highest light blocking
	// block for every column.
	heightMap HeightMap
	// sub holds all sub chunks of the chunk, one for every 16 blocks of
	// height, ordered from bottom to top.
	sub []*SubChunk
	// biomes holds the biome IDs of the chunk, with one paletted storage for
	// every sub chunk.
	biomes []*PalettedStorage
}

// New initialises a new chunk filled with air and returns it, so that it may
// be used.
func New(air uint32, r cube.Range) *Chunk {
	n := (r.Height() >> 4) + 1
	sub, biomes := make([]*SubChunk, n), make([]*PalettedStorage, n)
	for i := 0; i < n; i++ {
		sub[i] = NewSubChunk(air)
		biomes[i] = emptyStorage(0)
	}
	return &Chunk{
		r:         r,
		air:       air,
		sub:       sub,
		biomes:    biomes,
		heightMap: make(HeightMap, 256),
	}
}

// Range returns the cube.Range of the Chunk as passed to New.
func (chunk *Chunk) Range() cube.Range {
	return chunk.r
}

// Sub returns a list of all sub chunks present in the chunk.
func (chunk *Chunk) Sub() []*SubChunk {
	return chunk.sub
}

// Air returns the runtime ID of air as passed to New.
func (chunk *Chunk) Air() uint32 {
	return chunk.air
}

// Block returns the runtime ID of the block at a given x, y and z in a chunk
// at the given layer. If no block is set at this position, the runtime ID of
// air is returned.
func (chunk *Chunk) Block(x uint8, y int16, z uint8, layer uint8) uint32 {
	sub := chunk.SubChunk(y)
	if sub.Empty() && layer == 0 {
		return chunk.air
	}
	return sub.Block(x, uint8(y)&15, z, layer)
}

// SetBlock sets the runtime ID of a block at a given x, y and z in a chunk at
// the given layer.
func (chunk *Chunk) SetBlock(x uint8, y int16, z uint8, layer uint8, block uint32) {
	i := chunk.SubIndex(y)
	if i < 0 || i >= int16(len(chunk.sub)) {
		return
	}
	chunk.sub[i].SetBlock(x, uint8(y)&15, z, layer, block)
	chunk.recalculateHeightMap = true
}

// Biome returns the biome ID at a specific column in the chunk.
func (chunk *Chunk) Biome(x uint8, y int16, z uint8) uint32 {
	i := chunk.SubIndex(y)
	if i < 0 || i >= int16(len(chunk.biomes)) {
		return 0
	}
	return chunk.biomes[i].At(x, uint8(y)&15, z)
}

// SetBiome sets the biome ID at a specific column in the chunk.
func (chunk *Chunk) SetBiome(x uint8, y int16, z uint8, biome uint32) {
	i := chunk.SubIndex(y)
	if i < 0 || i >= int16(len(chunk.biomes)) {
		return
	}
	chunk.biomes[i].Set(x, uint8(y)&15, z, biome)
}

// Light returns the light level at a specific position in the chunk. It is
// the highest of the sky and block light.
func (chunk *Chunk) Light(x uint8, y int16, z uint8) uint8 {
	ux := uint8(y) & 15
	sub := chunk.SubChunk(y)
	sky := sub.SkyLight(x, ux, z)
	if sky == 15 {
		// The sky light was already on the maximum value, so return it
		// without checking block light.
		return sky
	}
	if block := sub.BlockLight(x, ux, z); block > sky {
		return block
	}
	return sky
}

// SkyLight returns the sky light level at a specific position in the chunk.
func (chunk *Chunk) SkyLight(x uint8, y int16, z uint8) uint8 {
	return chunk.SubChunk(y).SkyLight(x, uint8(y)&15, z)
}

// BlockLight returns the block light level at a specific position in the
// chunk.
func (chunk *Chunk) BlockLight(x uint8, y int16, z uint8) uint8 {
	return chunk.SubChunk(y).BlockLight(x, uint8(y)&15, z)
}

// HighestLightBlocker iterates from the highest non-empty sub chunk downwards
// to find the Y value of the highest block that blocks light at a specific x
// and z in the chunk.
func (chunk *Chunk) HighestLightBlocker(x, z uint8) int16 {
	return chunk.HeightMap().At(x, z)
}

// HighestBlock iterates from the highest non-empty sub chunk downwards to
// find the Y value of the highest non-air block at a specific x and z in the
// chunk.
func (chunk *Chunk) HighestBlock(x, z uint8) int16 {
	for index := int16(len(chunk.sub)) - 1; index >= 0; index-- {
		if sub := chunk.sub[index]; !sub.Empty() {
			for y := int16(15); y >= 0; y-- {
				if rid := sub.Block(x, uint8(y), z, 0); rid != chunk.air {
					return chunk.SubY(index) + y
				}
			}
		}
	}
	return int16(chunk.r[0])
}

// HeightMap returns the height map of the chunk, recalculating it if any
// blocks changed since the last recalculation.
func (chunk *Chunk) HeightMap() HeightMap {
	if chunk.recalculateHeightMap {
		chunk.calculateHeightMap()
		chunk.recalculateHeightMap = false
	}
	return chunk.heightMap
}

// calculateHeightMap fills the height map of the chunk with the Y value of
// the highest light blocking block of each column.
func (chunk *Chunk) calculateHeightMap() {
	highestY := int16(chunk.r[0])
	for index := int16(len(chunk.sub)) - 1; index >= 0; index-- {
		if !chunk.sub[index].Empty() {
			highestY = chunk.SubY(index) + 15
			break
		}
	}
	for x := uint8(0); x < 16; x++ {
		for z := uint8(0); z < 16; z++ {
			chunk.heightMap.Set(x, z, int16(chunk.r[0]))
			for y := highestY; y >= int16(chunk.r[0]); y-- {
				if FilteringBlocks[chunk.Block(x, y, z, 0)] > 0 {
					chunk.heightMap.Set(x, z, y)
					break
				}
			}
		}
	}
}

// SubChunk finds the correct SubChunk in the Chunk by a Y value.
func (chunk *Chunk) SubChunk(y int16) *SubChunk {
	i := chunk.SubIndex(y)
	if i < 0 {
		i = 0
	} else if i >= int16(len(chunk.sub)) {
		i = int16(len(chunk.sub)) - 1
	}
	return chunk.sub[i]
}

// SubIndex returns the sub chunk index matching the y value passed.
func (chunk *Chunk) SubIndex(y int16) int16 {
	return (y - int16(chunk.r[0])) >> 4
}

// SubY returns the Y value of the first block in the sub chunk at the index
// passed.
func (chunk *Chunk) SubY(index int16) int16 {
	return (index << 4) + int16(chunk.r[0])
}

// Compact compacts the chunk as much as possible, getting rid of any sub
// chunks that are empty and compacting all storages in the sub chunks to
// occupy as little space as possible.
func (chunk *Chunk) Compact() {
	for _, sub := range chunk.sub {
		sub.Compact()
	}
}

// Equal checks if the blocks and biomes of two chunks are identical at every
// position. Light is not compared.
func (chunk *Chunk) Equal(other *Chunk) bool {
	if chunk.r != other.r || len(chunk.sub) != len(other.sub) {
		return false
	}
	for x := uint8(0); x < 16; x++ {
		for z := uint8(0); z < 16; z++ {
			for y := int16(chunk.r[0]); y <= int16(chunk.r[1]); y++ {
				if chunk.Block(x, y, z, 0) != other.Block(x, y, z, 0) {
					return false
				}
				if chunk.Biome(x, y, z) != other.Biome(x, y, z) {
					return false
				}
			}
		}
	}
	return true
}
