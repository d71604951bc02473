package generator

import (
	"testing"

	"github.com/Mili-ssm/Pumpkin/server/block/cube"
	"github.com/Mili-ssm/Pumpkin/server/world"
	"github.com/Mili-ssm/Pumpkin/server/world/chunk"
)

var testRange = cube.Range{-64, 319}

func generate(g world.Generator, pos world.ChunkPos) *chunk.Chunk {
	c := chunk.New(world.MustBlockRuntimeID("minecraft:air"), testRange)
	g.GenerateChunk(pos, c)
	return c
}

func TestOverworldDeterministic(t *testing.T) {
	positions := []world.ChunkPos{{0, 0}, {3, -5}, {-100, 250}, {1, 1}}
	for _, pos := range positions {
		a := generate(NewOverworld(42), pos)
		b := generate(NewOverworld(42), pos)
		if !a.Equal(b) {
			t.Errorf("chunk %v differs between two generators with the same seed", pos)
		}
		// The same generator instance must also reproduce the chunk.
		g := NewOverworld(42)
		if !generate(g, pos).Equal(generate(g, pos)) {
			t.Errorf("chunk %v differs between two runs of one generator", pos)
		}
	}
}

func TestOverworldSeedChangesTerrain(t *testing.T) {
	pos := world.ChunkPos{0, 0}
	a := generate(NewOverworld(1), pos)
	b := generate(NewOverworld(2), pos)
	if a.Equal(b) {
		t.Fatal("different seeds produced identical terrain")
	}
}

func TestOverworldBedrockFloor(t *testing.T) {
	c := generate(NewOverworld(7), world.ChunkPos{2, 2})
	bedrock := world.MustBlockRuntimeID("minecraft:bedrock")
	for x := uint8(0); x < 16; x++ {
		for z := uint8(0); z < 16; z++ {
			if rid := c.Block(x, int16(testRange[0]), z, 0); rid != bedrock {
				t.Fatalf("block at bottom of column (%v, %v) = %v, expected bedrock", x, z, rid)
			}
		}
	}
}

func TestOverworldSeaLevel(t *testing.T) {
	g := NewOverworld(7)
	pos := world.ChunkPos{0, 0}
	c := generate(g, pos)
	air := world.MustBlockRuntimeID("minecraft:air")
	water := world.MustBlockRuntimeID("minecraft:water")

	for x := uint8(0); x < 16; x++ {
		for z := uint8(0); z < 16; z++ {
			height := g.heightAt(int(x), int(z))
			if height >= waterHeight {
				continue
			}
			// Columns below sea level are flooded up to it.
			if rid := c.Block(x, waterHeight, z, 0); rid != water {
				t.Fatalf("column (%v, %v) below sea level holds %v at sea level, expected water", x, z, rid)
			}
		}
	}
	// Above the terrain and the sea there is only air.
	for x := uint8(0); x < 16; x++ {
		for z := uint8(0); z < 16; z++ {
			top := g.heightAt(int(x), int(z))
			if top < waterHeight {
				top = waterHeight
			}
			if rid := c.Block(x, int16(top+40), z, 0); rid != air {
				t.Fatalf("column (%v, %v) holds %v far above the surface", x, z, rid)
			}
		}
	}
}

func TestOverworldBiomesAssigned(t *testing.T) {
	c := generate(NewOverworld(7), world.ChunkPos{5, -3})
	for x := uint8(0); x < 16; x += 5 {
		for z := uint8(0); z < 16; z += 5 {
			id := c.Biome(x, 64, z)
			if _, ok := world.BiomeByID(id); !ok {
				t.Fatalf("column (%v, %v) assigned unknown biome %v", x, z, id)
			}
		}
	}
}

func TestOverworldPopulationOrderIndependent(t *testing.T) {
	// Features that cross a chunk border must produce the same blocks in a
	// chunk regardless of whether its neighbours were generated at all:
	// every chunk derives the features of its neighbours deterministically.
	g := NewOverworld(99)
	pos := world.ChunkPos{10, 10}

	a := generate(g, pos)
	for x := int32(-1); x <= 1; x++ {
		for z := int32(-1); z <= 1; z++ {
			if x != 0 || z != 0 {
				generate(g, world.ChunkPos{pos[0] + x, pos[1] + z})
			}
		}
	}
	b := generate(g, pos)
	if !a.Equal(b) {
		t.Fatal("chunk contents depend on neighbour generation order")
	}
}

func TestFlatLayers(t *testing.T) {
	c := generate(NewFlat(), world.ChunkPos{0, 0})
	bottom := int16(testRange[0])

	expect := []string{"minecraft:bedrock", "minecraft:dirt", "minecraft:dirt", "minecraft:grass_block"}
	for i, name := range expect {
		want := world.MustBlockRuntimeID(name)
		if rid := c.Block(4, bottom+int16(i), 4, 0); rid != want {
			t.Fatalf("layer %v = %v, expected %v", i, rid, name)
		}
	}
	if rid := c.Block(4, bottom+4, 4, 0); rid != world.MustBlockRuntimeID("minecraft:air") {
		t.Fatalf("block above the layers = %v, expected air", rid)
	}
}
