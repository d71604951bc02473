package region

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/Mili-ssm/Pumpkin/server/block/cube"
	"github.com/Mili-ssm/Pumpkin/server/world"
	"github.com/Mili-ssm/Pumpkin/server/world/chunk"
)

func testChunk() *chunk.Chunk {
	c := chunk.New(0, cube.Range{-64, 319})
	for x := uint8(0); x < 16; x++ {
		for z := uint8(0); z < 16; z++ {
			for y := int16(-64); y < 60; y++ {
				c.SetBlock(x, y, z, 0, 1)
			}
			c.SetBiome(x, 0, z, 4)
		}
	}
	c.SetBlock(8, 60, 8, 0, 2)
	return c
}

func TestProviderRoundTrip(t *testing.T) {
	p, err := Config{}.New(t.TempDir())
	if err != nil {
		t.Fatalf("create provider: %v", err)
	}
	t.Cleanup(func() { p.Close() })

	c := testChunk()
	// Positions in different region files, including negative coordinates.
	positions := []world.ChunkPos{{0, 0}, {31, 31}, {32, 0}, {-1, -1}, {-500, 700}}
	for _, pos := range positions {
		if err := p.StoreColumn(pos, c); err != nil {
			t.Fatalf("store column %v: %v", pos, err)
		}
	}
	for _, pos := range positions {
		got, err := p.LoadColumn(pos)
		if err != nil {
			t.Fatalf("load column %v: %v", pos, err)
		}
		if !got.Equal(c) {
			t.Fatalf("column %v read back differently", pos)
		}
	}
}

func TestProviderNotFound(t *testing.T) {
	p, err := Config{}.New(t.TempDir())
	if err != nil {
		t.Fatalf("create provider: %v", err)
	}
	t.Cleanup(func() { p.Close() })

	if _, err := p.LoadColumn(world.ChunkPos{1, 2}); !errors.Is(err, world.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	// Storing a neighbour creates the region file, but the position asked
	// for is still absent.
	if err := p.StoreColumn(world.ChunkPos{1, 3}, testChunk()); err != nil {
		t.Fatalf("store column: %v", err)
	}
	if _, err := p.LoadColumn(world.ChunkPos{1, 2}); !errors.Is(err, world.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestProviderCorruptColumn(t *testing.T) {
	dir := t.TempDir()
	p, err := Config{Compression: "none"}.New(dir)
	if err != nil {
		t.Fatalf("create provider: %v", err)
	}
	pos := world.ChunkPos{0, 0}
	if err := p.StoreColumn(pos, testChunk()); err != nil {
		t.Fatalf("store column: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("close provider: %v", err)
	}

	path := filepath.Join(dir, "region", "r.0.0.mcr")
	raw, err := os.OpenFile(path, os.O_RDWR, 0644)
	if err != nil {
		t.Fatalf("open raw: %v", err)
	}
	b := []byte{0xff}
	if _, err := raw.WriteAt(b, int64(headerSectors*sectorSize)+4+1+8+64); err != nil {
		t.Fatalf("write raw: %v", err)
	}
	raw.Close()

	p, err = Config{Compression: "none"}.New(dir)
	if err != nil {
		t.Fatalf("reopen provider: %v", err)
	}
	t.Cleanup(func() { p.Close() })
	if _, err := p.LoadColumn(pos); !errors.Is(err, world.ErrCorruptData) {
		t.Fatalf("expected ErrCorruptData, got %v", err)
	}
}

func TestProviderSettings(t *testing.T) {
	dir := t.TempDir()
	p, err := Config{}.New(dir)
	if err != nil {
		t.Fatalf("create provider: %v", err)
	}

	set := &world.Settings{Name: "Overworld", Spawn: cube.Pos{16, 70, -32}, Time: 6000, TimeCycle: true, CurrentTick: 1234, Seed: -99}
	p.SaveSettings(set)
	if err := p.Close(); err != nil {
		t.Fatalf("close provider: %v", err)
	}

	p, err = Config{}.New(dir)
	if err != nil {
		t.Fatalf("reopen provider: %v", err)
	}
	t.Cleanup(func() { p.Close() })
	got := &world.Settings{}
	p.Settings(got)

	if got.Name != set.Name || got.Spawn != set.Spawn || got.Time != set.Time ||
		!got.TimeCycle || got.CurrentTick != set.CurrentTick || got.Seed != set.Seed {
		t.Fatalf("settings read back differently: %+v", got)
	}
}

func TestProviderFileCap(t *testing.T) {
	p, err := Config{MaxOpenFiles: 2}.New(t.TempDir())
	if err != nil {
		t.Fatalf("create provider: %v", err)
	}
	t.Cleanup(func() { p.Close() })

	c := testChunk()
	// Four distinct region files with a cap of two open at once.
	for _, pos := range []world.ChunkPos{{0, 0}, {32, 0}, {64, 0}, {96, 0}} {
		if err := p.StoreColumn(pos, c); err != nil {
			t.Fatalf("store column %v: %v", pos, err)
		}
	}
	p.mu.Lock()
	open := len(p.files)
	p.mu.Unlock()
	if open > 2 {
		t.Fatalf("%v region files open, expected at most 2", open)
	}
	// Columns in evicted files are still readable: the file is reopened.
	got, err := p.LoadColumn(world.ChunkPos{0, 0})
	if err != nil {
		t.Fatalf("load column from evicted file: %v", err)
	}
	if !got.Equal(c) {
		t.Fatal("column from evicted file read back differently")
	}
}
