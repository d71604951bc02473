package chunk

// PalettedStorage is a storage of 4096 blocks encoded in a variable amount of
// uint32s, storages may have values with a bit size per block of 0, 1, 2, 3,
// 4, 5, 6, 8 or 16 bits.
// 3 of these formats have additional padding in every uint32 and an
// additional uint32 at the end, to cater for the blocks that don't fit. This
// padding is present when the storage has a block size of 3, 5 or 6 bytes.
// Methods on PalettedStorage must not be called simultaneously from multiple
// goroutines.
type PalettedStorage struct {
	// bitsPerIndex is the amount of bits required to store one block. The
	// number of blocks that fit in one uint32 is 32 / bitsPerIndex.
	bitsPerIndex uint16
	// filledBitsPerIndex returns the amount of blocks that are actually
	// filled per uint32.
	filledBitsPerIndex uint16
	// indexMask is the equivalent of 1 << bitsPerIndex - 1.
	indexMask uint32

	// palette holds all the unique values found in the storage.
	palette *Palette
	// indices contains the actual indices, packed according to bitsPerIndex.
	indices []uint32
}

// newPalettedStorage creates a new block storage using the uint32 slice as
// the indices and the palette passed.
func newPalettedStorage(indices []uint32, palette *Palette) *PalettedStorage {
	var (
		bitsPerIndex       = uint16(len(indices) * 32 / 4096)
		indexMask          = (uint32(1) << bitsPerIndex) - 1
		filledBitsPerIndex uint16
	)
	if bitsPerIndex != 0 {
		filledBitsPerIndex = 32 / bitsPerIndex * bitsPerIndex
	}
	return &PalettedStorage{bitsPerIndex: bitsPerIndex, filledBitsPerIndex: filledBitsPerIndex, indexMask: indexMask, indices: indices, palette: palette}
}

// emptyStorage creates a PalettedStorage filled completely with a single
// value.
func emptyStorage(v uint32) *PalettedStorage {
	return newPalettedStorage([]uint32{}, newPalette(0, []uint32{v}))
}

// Palette returns the Palette of the PalettedStorage.
func (storage *PalettedStorage) Palette() *Palette {
	return storage.palette
}

// At returns the value of the PalettedStorage at a given x, y and z.
func (storage *PalettedStorage) At(x, y, z byte) uint32 {
	return storage.palette.Value(storage.paletteIndex(x&15, y&15, z&15))
}

// Set sets a value at a specific x, y and z. The Palette and PalettedStorage
// are expanded automatically to make space for the value, should that be
// needed.
func (storage *PalettedStorage) Set(x, y, z byte, v uint32) {
	index := storage.palette.Index(v)
	if index == -1 {
		// The value wasn't yet in the palette, so add it.
		var resize bool
		if index, resize = storage.palette.Add(v); resize {
			// Adding the value caused the palette to grow past the maximum
			// size of the current storage, so re-pack all indices.
			storage.resize(storage.palette.size)
		}
	}
	storage.setPaletteIndex(x&15, y&15, z&15, uint16(index))
}

// paletteIndex looks up the Palette index at a given x, y and z value in the
// PalettedStorage.
func (storage *PalettedStorage) paletteIndex(x, y, z byte) uint16 {
	if storage.bitsPerIndex == 0 {
		return 0
	}
	offset := (uint16(x) << 8) | (uint16(z) << 4) | uint16(y)

	uint32Offset := offset / (storage.filledBitsPerIndex / storage.bitsPerIndex)
	bitOffset := offset % (storage.filledBitsPerIndex / storage.bitsPerIndex) * storage.bitsPerIndex

	w := storage.indices[uint32Offset]
	return uint16((w >> bitOffset) & storage.indexMask)
}

// setPaletteIndex sets the palette index at a specific x, y and z to the new
// value passed.
func (storage *PalettedStorage) setPaletteIndex(x, y, z byte, i uint16) {
	if storage.bitsPerIndex == 0 {
		return
	}
	offset := (uint16(x) << 8) | (uint16(z) << 4) | uint16(y)

	uint32Offset := offset / (storage.filledBitsPerIndex / storage.bitsPerIndex)
	bitOffset := offset % (storage.filledBitsPerIndex / storage.bitsPerIndex) * storage.bitsPerIndex

	w := &storage.indices[uint32Offset]
	*w = (*w &^ (storage.indexMask << bitOffset)) | (uint32(i) << bitOffset)
}

// resize re-packs the indices of the PalettedStorage to a new palette size.
func (storage *PalettedStorage) resize(newSize paletteSize) {
	if newSize == paletteSize(storage.bitsPerIndex) {
		return
	}
	newStorage := newPalettedStorage(make([]uint32, newSize.uint32s()), storage.palette)
	for x := byte(0); x < 16; x++ {
		for y := byte(0); y < 16; y++ {
			for z := byte(0); z < 16; z++ {
				newStorage.setPaletteIndex(x, y, z, storage.paletteIndex(x, y, z))
			}
		}
	}
	// Set the new storage.
	*storage = *newStorage
}

// compact clears unused indices from the palette of the PalettedStorage and
// re-packs the remaining indices into the smallest storage able to hold them.
func (storage *PalettedStorage) compact() {
	usedIndices := make([]bool, storage.palette.Len())
	for x := byte(0); x < 16; x++ {
		for y := byte(0); y < 16; y++ {
			for z := byte(0); z < 16; z++ {
				usedIndices[storage.paletteIndex(x, y, z)] = true
			}
		}
	}
	newValues := make([]uint32, 0, len(usedIndices))
	conversion := make([]uint16, len(usedIndices))

	for index, used := range usedIndices {
		if used {
			conversion[index] = uint16(len(newValues))
			newValues = append(newValues, storage.palette.values[index])
		}
	}
	size := paletteSizeFor(len(newValues))
	newStorage := newPalettedStorage(make([]uint32, size.uint32s()), newPalette(size, newValues))

	for x := byte(0); x < 16; x++ {
		for y := byte(0); y < 16; y++ {
			for z := byte(0); z < 16; z++ {
				newStorage.setPaletteIndex(x, y, z, conversion[storage.paletteIndex(x, y, z)])
			}
		}
	}
	*storage = *newStorage
}

// Equal checks if two PalettedStorages hold the same values at every
// position.
func (storage *PalettedStorage) Equal(other *PalettedStorage) bool {
	for x := byte(0); x < 16; x++ {
		for y := byte(0); y < 16; y++ {
			for z := byte(0); z < 16; z++ {
				if storage.At(x, y, z) != other.At(x, y, z) {
					return false
				}
			}
		}
	}
	return true
}
