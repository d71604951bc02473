package world

import "github.com/Mili-ssm/Pumpkin/server/world/chunk"

// Provider represents a value that may provide world data to a World struct.
// It is the source of truth of the world's chunks and settings on disk.
// Implementations must be safe for concurrent use: chunk saves and loads of
// different positions run on multiple worker goroutines at once.
type Provider interface {
	// Settings loads the settings of the world from the provider into the
	// Settings struct passed. Fields for which the provider holds no value
	// are left untouched.
	Settings(set *Settings)
	// SaveSettings saves the settings passed to the provider.
	SaveSettings(set *Settings)
	// LoadColumn reads a chunk from the provider at the position passed. If
	// no chunk is stored there, ErrNotFound is returned. If data exists but
	// cannot be decoded, the error returned wraps ErrCorruptData.
	LoadColumn(pos ChunkPos) (*chunk.Chunk, error)
	// StoreColumn writes a chunk to the provider at the position passed.
	StoreColumn(pos ChunkPos, c *chunk.Chunk) error
	// Flush forces any buffered writes to be written out to disk.
	Flush() error
	// Close closes the provider, flushing remaining data first.
	Close() error
}

// NopProvider implements a Provider that does not store any data to disk.
// Chunks loaded through it are always ErrNotFound, so worlds using it
// generate every chunk.
type NopProvider struct{}

// Compile time check to make sure NopProvider implements Provider.
var _ Provider = NopProvider{}

func (NopProvider) Settings(*Settings)                        {}
func (NopProvider) SaveSettings(*Settings)                    {}
func (NopProvider) LoadColumn(ChunkPos) (*chunk.Chunk, error) { return nil, ErrNotFound }
func (NopProvider) StoreColumn(ChunkPos, *chunk.Chunk) error  { return nil }
func (NopProvider) Flush() error                              { return nil }
func (NopProvider) Close() error                              { return nil }
