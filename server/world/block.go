package world

import (
	"sort"
	"strings"
	"sync"

	"github.com/Mili-ssm/Pumpkin/server/world/chunk"
	"github.com/brentp/intintmap"
	"github.com/cespare/xxhash/v2"
)

// BlockState holds a combination of a block name and the properties that,
// together, identify exactly one state of that block. Two BlockStates with
// the same name and properties always resolve to the same runtime ID.
type BlockState struct {
	// Name is the namespaced identifier of the block, such as
	// 'minecraft:stone'.
	Name string
	// Properties is a map of the properties of the block state, such as the
	// direction a log is facing.
	Properties map[string]string
}

// BlockProperties describes how a block state behaves in the world. The
// values here drive light propagation and generation, not rendering.
type BlockProperties struct {
	// LightEmission is the amount of light emitted by the block, between 0
	// and 15.
	LightEmission uint8
	// LightFilter is the amount of light subtracted from light passing
	// through the block, between 0 and 15. Fully opaque blocks have a filter
	// of 15.
	LightFilter uint8
	// Solid specifies if the block is fully solid. Features such as trees
	// and grass only generate on top of solid blocks.
	Solid bool
	// Replaceable specifies if the block may be overwritten freely by
	// generated features, as air, water and tall grass may.
	Replaceable bool
}

var (
	blockMu sync.RWMutex
	// blockStates and blockProps are indexed by runtime ID.
	blockStates []BlockState
	blockProps  []BlockProperties
	// stateRuntimeIDs maps the hash of a block state to its runtime ID.
	stateRuntimeIDs = intintmap.New(1024, 0.75)

	finaliseOnce sync.Once
)

// RegisterBlock registers a block state with the properties passed and
// returns the runtime ID assigned to it. Registering the same state twice
// panics: runtime IDs must be stable for the lifetime of the process.
func RegisterBlock(s BlockState, props BlockProperties) uint32 {
	blockMu.Lock()
	defer blockMu.Unlock()

	h := int64(stateHash(s))
	if _, ok := stateRuntimeIDs.Get(h); ok {
		panic("world: block state " + s.Name + " registered twice")
	}
	rid := uint32(len(blockStates))
	blockStates = append(blockStates, s)
	blockProps = append(blockProps, props)
	stateRuntimeIDs.Put(h, int64(rid))
	return rid
}

// BlockRuntimeID looks up the runtime ID of a block state. The bool returned
// is false if the state was never registered.
func BlockRuntimeID(s BlockState) (uint32, bool) {
	blockMu.RLock()
	defer blockMu.RUnlock()

	rid, ok := stateRuntimeIDs.Get(int64(stateHash(s)))
	return uint32(rid), ok
}

// BlockByRuntimeID looks up the block state registered under a runtime ID.
func BlockByRuntimeID(rid uint32) (BlockState, bool) {
	blockMu.RLock()
	defer blockMu.RUnlock()

	if rid >= uint32(len(blockStates)) {
		return BlockState{}, false
	}
	return blockStates[rid], true
}

// blockProperties returns the behaviour of the block state under a runtime
// ID. Unknown runtime IDs behave as fully opaque stone.
func blockProperties(rid uint32) BlockProperties {
	blockMu.RLock()
	defer blockMu.RUnlock()

	if rid >= uint32(len(blockProps)) {
		return BlockProperties{LightFilter: 15, Solid: true}
	}
	return blockProps[rid]
}

// finaliseBlockRegistry builds the light lookup tables consulted during
// light propagation. It is called once before the first World is created:
// blocks registered after that point do not influence lighting.
func finaliseBlockRegistry() {
	finaliseOnce.Do(func() {
		blockMu.Lock()
		defer blockMu.Unlock()

		chunk.FilteringBlocks = make([]uint8, len(blockProps))
		chunk.LightBlocks = make([]uint8, len(blockProps))
		for rid, props := range blockProps {
			chunk.FilteringBlocks[rid] = props.LightFilter
			chunk.LightBlocks[rid] = props.LightEmission
		}
	})
}

// stateHash produces a hash unique to the name and properties of a block
// state. Properties are hashed in sorted key order so that map iteration
// order does not influence the result.
func stateHash(s BlockState) uint64 {
	if len(s.Properties) == 0 {
		return xxhash.Sum64String(s.Name)
	}
	keys := make([]string, 0, len(s.Properties))
	for k := range s.Properties {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(s.Name)
	for _, k := range keys {
		b.WriteByte(0)
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(s.Properties[k])
	}
	return xxhash.Sum64String(b.String())
}
