package chunk

import (
	"testing"

	"github.com/Mili-ssm/Pumpkin/server/block/cube"
)

const (
	testAir uint32 = iota
	testStone
	testTorch
	testWater
)

// setupTestBlocks installs a minimal block table for tests: air, stone, a
// torch-like emitter and water.
func setupTestBlocks(t *testing.T) {
	t.Helper()
	oldFilter, oldLight := FilteringBlocks, LightBlocks
	FilteringBlocks = []uint8{0, 15, 0, 2}
	LightBlocks = []uint8{0, 0, 14, 0}
	t.Cleanup(func() {
		FilteringBlocks, LightBlocks = oldFilter, oldLight
	})
}

func TestChunkSetBlock(t *testing.T) {
	r := cube.Range{-64, 319}
	c := New(testAir, r)

	if rid := c.Block(8, 0, 8, 0); rid != testAir {
		t.Fatalf("expected air in a fresh chunk, got %v", rid)
	}
	positions := [][3]int16{{0, -64, 0}, {15, 319, 15}, {7, 0, 9}, {3, -1, 3}}
	for _, pos := range positions {
		c.SetBlock(uint8(pos[0]), pos[1], uint8(pos[2]), 0, testStone)
	}
	for _, pos := range positions {
		if rid := c.Block(uint8(pos[0]), pos[1], uint8(pos[2]), 0); rid != testStone {
			t.Errorf("block at (%v, %v, %v) = %v, expected stone", pos[0], pos[1], pos[2], rid)
		}
	}
	if rid := c.Block(8, 0, 8, 0); rid != testAir {
		t.Errorf("untouched position changed to %v", rid)
	}
}

func TestChunkSecondLayer(t *testing.T) {
	c := New(testAir, cube.Range{0, 63})
	c.SetBlock(4, 10, 4, 1, testWater)

	if rid := c.Block(4, 10, 4, 1); rid != testWater {
		t.Fatalf("layer 1 block = %v, expected water", rid)
	}
	if rid := c.Block(4, 10, 4, 0); rid != testAir {
		t.Fatalf("layer 0 block = %v, expected air", rid)
	}
}

func TestChunkBiomes(t *testing.T) {
	c := New(testAir, cube.Range{-64, 319})
	c.SetBiome(3, -60, 12, 21)
	c.SetBiome(3, 300, 12, 2)

	if b := c.Biome(3, -60, 12); b != 21 {
		t.Errorf("biome at y=-60 = %v, expected 21", b)
	}
	if b := c.Biome(3, 300, 12); b != 2 {
		t.Errorf("biome at y=300 = %v, expected 2", b)
	}
	if b := c.Biome(3, 0, 12); b != 0 {
		t.Errorf("unset biome = %v, expected 0", b)
	}
}

func TestChunkHighestBlock(t *testing.T) {
	setupTestBlocks(t)
	c := New(testAir, cube.Range{-64, 319})

	if y := c.HighestBlock(5, 5); y != -64 {
		t.Fatalf("highest block of empty column = %v, expected -64", y)
	}
	c.SetBlock(5, 40, 5, 0, testStone)
	c.SetBlock(5, -30, 5, 0, testStone)
	if y := c.HighestBlock(5, 5); y != 40 {
		t.Fatalf("highest block = %v, expected 40", y)
	}
	if y := c.HighestLightBlocker(5, 5); y != 40 {
		t.Fatalf("highest light blocker = %v, expected 40", y)
	}
	// A torch does not block light, so the height map must not move up.
	c.SetBlock(5, 41, 5, 0, testTorch)
	if y := c.HighestLightBlocker(5, 5); y != 40 {
		t.Fatalf("highest light blocker after torch = %v, expected 40", y)
	}
	if y := c.HighestBlock(5, 5); y != 41 {
		t.Fatalf("highest block after torch = %v, expected 41", y)
	}
}
