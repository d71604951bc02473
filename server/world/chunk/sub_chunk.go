package chunk

// SubChunk is a cube of blocks located in a chunk. It has a size of 16x16x16
// blocks and forms part of a stack that forms a Chunk.
type SubChunk struct {
	air        uint32
	storages   []*PalettedStorage
	blockLight []uint8
	skyLight   []uint8
}

// NewSubChunk creates a new sub chunk. All sub chunks should be created
// through this function.
func NewSubChunk(air uint32) *SubChunk {
	return &SubChunk{air: air}
}

// Empty checks if the SubChunk is considered empty. This is the case if the
// SubChunk has 0 block storages or if it has a single one that is completely
// filled with air.
func (sub *SubChunk) Empty() bool {
	return len(sub.storages) == 0 || (len(sub.storages) == 1 && len(sub.storages[0].palette.values) == 1 && sub.storages[0].palette.values[0] == sub.air)
}

// Layer returns a certain block storage/layer from a sub chunk. If no layer
// at the index exists, the layer is created, as well as all layers between
// the current highest layer and the new highest layer.
func (sub *SubChunk) Layer(layer uint8) *PalettedStorage {
	for uint8(len(sub.storages)) <= layer {
		// Keep appending to storages until the requested layer is achieved.
		sub.storages = append(sub.storages, emptyStorage(sub.air))
	}
	return sub.storages[layer]
}

// Layers returns all layers in the sub chunk.
func (sub *SubChunk) Layers() []*PalettedStorage {
	return sub.storages
}

// Block returns the runtime ID of the block located at the given X, Y and Z.
// X, Y and Z must be in a range of 0-15.
func (sub *SubChunk) Block(x, y, z byte, layer uint8) uint32 {
	if uint8(len(sub.storages)) <= layer {
		return sub.air
	}
	return sub.storages[layer].At(x, y, z)
}

// SetBlock sets the given block runtime ID at the given X, Y and Z. X, Y and
// Z must be in a range of 0-15.
func (sub *SubChunk) SetBlock(x, y, z byte, layer uint8, block uint32) {
	if uint8(len(sub.storages)) <= layer && block == sub.air {
		// Air on a non-existing layer: nothing to do.
		return
	}
	sub.Layer(layer).Set(x, y, z, block)
}

// BlockLight returns the block light value at a specific position in the sub
// chunk.
func (sub *SubChunk) BlockLight(x, y, z byte) uint8 {
	if sub.blockLight == nil {
		return 0
	}
	return nibbleAt(sub.blockLight, x, y, z)
}

// SetBlockLight sets the block light value at a specific position in the sub
// chunk.
func (sub *SubChunk) SetBlockLight(x, y, z byte, level uint8) {
	if sub.blockLight == nil {
		sub.blockLight = make([]uint8, 2048)
	}
	setNibbleAt(sub.blockLight, x, y, z, level)
}

// SkyLight returns the sky light value at a specific position in the sub
// chunk.
func (sub *SubChunk) SkyLight(x, y, z byte) uint8 {
	if sub.skyLight == nil {
		return 0
	}
	return nibbleAt(sub.skyLight, x, y, z)
}

// SetSkyLight sets the sky light value at a specific position in the sub
// chunk.
func (sub *SubChunk) SetSkyLight(x, y, z byte, level uint8) {
	if sub.skyLight == nil {
		sub.skyLight = make([]uint8, 2048)
	}
	setNibbleAt(sub.skyLight, x, y, z, level)
}

// ClearLight wipes all light data from the sub chunk so that it may be
// recalculated from scratch.
func (sub *SubChunk) ClearLight() {
	sub.blockLight, sub.skyLight = nil, nil
}

// Compact cleans the garbage from all block storages that sub chunk contains,
// so that they may be cleanly written to a database.
func (sub *SubChunk) Compact() {
	newStorages := make([]*PalettedStorage, 0, len(sub.storages))
	for _, storage := range sub.storages {
		storage.compact()
		if len(storage.palette.values) == 1 && storage.palette.values[0] == sub.air {
			// Storage holds only air: Dump it.
			continue
		}
		newStorages = append(newStorages, storage)
	}
	sub.storages = newStorages
}

// nibbleIndex converts in-sub-chunk coordinates to an index into a 2048 byte
// nibble array plus the shift of the nibble within the byte.
func nibbleIndex(x, y, z byte) (index uint16, shift uint8) {
	i := (uint16(x) << 8) | (uint16(z) << 4) | uint16(y)
	return i >> 1, uint8(i&1) << 2
}

// nibbleAt reads a 4-bit value from the nibble array passed.
func nibbleAt(data []uint8, x, y, z byte) uint8 {
	i, shift := nibbleIndex(x&15, y&15, z&15)
	return (data[i] >> shift) & 0xf
}

// setNibbleAt writes a 4-bit value to the nibble array passed.
func setNibbleAt(data []uint8, x, y, z byte, v uint8) {
	i, shift := nibbleIndex(x&15, y&15, z&15)
	data[i] = (data[i] &^ (0xf << shift)) | (v << shift)
}
