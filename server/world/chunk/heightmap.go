package chunk

// HeightMap represents the height map of a chunk. It holds the y value of the
// highest light blocking block of each column in the chunk.
type HeightMap []int16

// At returns the height map value at a specific column.
func (h HeightMap) At(x, z uint8) int16 {
	return h[(uint16(x)<<4)|uint16(z)]
}

// Set changes the height map value at a specific column.
func (h HeightMap) Set(x, z uint8, val int16) {
	h[(uint16(x)<<4)|uint16(z)] = val
}
