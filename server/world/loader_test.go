package world

import (
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
)

// nopViewer implements Viewer with no-ops to avoid depending on the
// production session implementation for tests.
type nopViewer struct{ NopViewer }

func TestLoaderLoadsOuterRing(t *testing.T) {
	conf := Config{
		Provider:  NopProvider{},
		Generator: NopGenerator{},
	}
	w := conf.New()
	t.Cleanup(func() {
		if err := w.Close(); err != nil {
			t.Fatalf("failed closing world: %v", err)
		}
	})

	loader := NewLoader(2, w, nopViewer{})

	<-w.Exec(func(tx *Tx) {
		loader.Move(tx, mgl64.Vec3{})
	})

	target := ChunkPos{2, 0}
	deadline := time.Now().Add(5 * time.Second)
	for {
		<-w.Exec(func(tx *Tx) {
			loader.Load(tx, 32)
		})
		if _, ok := loader.Chunk(target); ok {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("chunk %v was never loaded", target)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestLoaderLoadsFullSquare(t *testing.T) {
	conf := Config{
		Provider:  NopProvider{},
		Generator: NopGenerator{},
	}
	w := conf.New()
	t.Cleanup(func() {
		if err := w.Close(); err != nil {
			t.Fatalf("failed closing world: %v", err)
		}
	})

	loader := NewLoader(2, w, nopViewer{})

	<-w.Exec(func(tx *Tx) {
		loader.Move(tx, mgl64.Vec3{})
	})

	// A loader of radius 2 keeps the whole 5x5 square of chunks around its
	// position loaded, corners included.
	count := func() int {
		n := 0
		for dx := int32(-2); dx <= 2; dx++ {
			for dz := int32(-2); dz <= 2; dz++ {
				if _, ok := loader.Chunk(ChunkPos{dx, dz}); ok {
					n++
				}
			}
		}
		return n
	}
	deadline := time.Now().Add(5 * time.Second)
	for count() != 25 {
		<-w.Exec(func(tx *Tx) {
			loader.Load(tx, 32)
		})
		if time.Now().After(deadline) {
			t.Fatalf("loader holds %v of the 25 chunks in its square", count())
		}
		time.Sleep(10 * time.Millisecond)
	}
	if _, ok := loader.Chunk(ChunkPos{2, 2}); !ok {
		t.Fatal("corner chunk of the square was not loaded")
	}

	// Moving one chunk east trades the western edge for a new eastern one.
	<-w.Exec(func(tx *Tx) {
		loader.Move(tx, mgl64.Vec3{16, 0, 0})
	})
	if _, ok := loader.Chunk(ChunkPos{-2, 0}); ok {
		t.Fatal("chunk behind the loader still held after moving")
	}
	deadline = time.Now().Add(5 * time.Second)
	for {
		<-w.Exec(func(tx *Tx) {
			loader.Load(tx, 32)
		})
		if _, ok := loader.Chunk(ChunkPos{3, 0}); ok {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("new eastern edge chunk was never loaded")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestLoaderEvictsChunksOutsideRadius(t *testing.T) {
	conf := Config{
		Provider:  NopProvider{},
		Generator: NopGenerator{},
	}
	w := conf.New()
	t.Cleanup(func() {
		if err := w.Close(); err != nil {
			t.Fatalf("failed closing world: %v", err)
		}
	})

	loader := NewLoader(2, w, nopViewer{})

	<-w.Exec(func(tx *Tx) {
		loader.Move(tx, mgl64.Vec3{})
	})

	target := ChunkPos{2, 0}
	deadline := time.Now().Add(5 * time.Second)
	for {
		<-w.Exec(func(tx *Tx) {
			loader.Load(tx, 32)
		})
		if _, ok := loader.Chunk(target); ok {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("chunk %v was never loaded", target)
		}
		time.Sleep(10 * time.Millisecond)
	}

	<-w.Exec(func(tx *Tx) {
		loader.Move(tx, mgl64.Vec3{0, 0, 96})
	})

	if _, ok := loader.Chunk(target); ok {
		t.Fatalf("chunk %v was not evicted after moving outside radius", target)
	}
}
