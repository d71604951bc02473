package world

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by a Provider when no chunk data exists at the
	// position requested. It is not an error condition: the chunk will be
	// generated instead.
	ErrNotFound = errors.New("chunk not found")
	// ErrCorruptData is returned (or wrapped) by a Provider when chunk data
	// exists but cannot be decoded, for example because a checksum does not
	// match or the payload is truncated. Corrupt chunks are discarded and
	// regenerated.
	ErrCorruptData = errors.New("chunk data corrupt")
	// ErrQueueSaturated is returned when the worker queue of a World is full
	// and no further tasks are accepted. Callers should retry on a later
	// tick.
	ErrQueueSaturated = errors.New("worker queue saturated")
)

// GenerationFault is the error recorded when the generator of a World panics
// while producing a chunk. The chunk affected is replaced by a placeholder
// and marked faulted so that the broken data is never persisted.
type GenerationFault struct {
	// Pos is the position of the chunk that the generator faulted on.
	Pos ChunkPos
	// Seed is the world seed active at the time of the fault.
	Seed int64
	// Reason is the value recovered from the generator's panic.
	Reason any
}

// Error implements the error interface.
func (f GenerationFault) Error() string {
	return fmt.Sprintf("generator fault at chunk %v (seed %v): %v", f.Pos, f.Seed, f.Reason)
}
