package generator

import (
	"github.com/Mili-ssm/Pumpkin/server/world"
	"github.com/Mili-ssm/Pumpkin/server/world/chunk"
)

// Flat generates flat worlds: a bedrock floor, a number of dirt layers and a
// grass surface, identical for every chunk. It is primarily useful for
// testing, as its output is trivially predictable.
type Flat struct {
	biome  uint32
	layers []uint32
}

// NewFlat creates a Flat generator with the default layer stack: one layer
// of bedrock, two layers of dirt and one layer of grass.
func NewFlat() Flat {
	return FlatWithLayers([]string{
		"minecraft:bedrock",
		"minecraft:dirt",
		"minecraft:dirt",
		"minecraft:grass_block",
	})
}

// FlatWithLayers creates a Flat generator placing the block layers passed
// from the bottom of the world range upwards.
func FlatWithLayers(names []string) Flat {
	b, _ := world.BiomeByName("minecraft:plains")
	f := Flat{biome: b.ID}
	for _, name := range names {
		f.layers = append(f.layers, world.MustBlockRuntimeID(name))
	}
	return f
}

// GenerateChunk ...
func (f Flat) GenerateChunk(_ world.ChunkPos, c *chunk.Chunk) {
	r := c.Range()
	for x := uint8(0); x < 16; x++ {
		for z := uint8(0); z < 16; z++ {
			for i, rid := range f.layers {
				c.SetBlock(x, int16(r.Min()+i), z, 0, rid)
			}
			for y := r.Min(); y <= r.Max(); y++ {
				c.SetBiome(x, int16(y), z, f.biome)
			}
		}
	}
}
