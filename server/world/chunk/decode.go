package chunk

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/Mili-ssm/Pumpkin/server/block/cube"
)

// ErrVersionMismatch is returned by DecodeDisk when the payload carries a
// schema version that is neither the current version nor one that can be
// migrated forward.
var ErrVersionMismatch = errors.New("chunk payload version not supported")

// DecodeDisk decodes a byte payload produced by EncodeDisk (or by an older
// version of it) back into a Chunk. Payloads of the previous schema version
// are migrated transparently.
func DecodeDisk(data []byte) (*Chunk, error) {
	buf := bytes.NewBuffer(data)
	version, err := buf.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("read version: %w", err)
	}
	switch version {
	case DiskVersion:
		return decodeCurrent(buf)
	case legacyDiskVersion:
		return decodeLegacy(buf)
	default:
		return nil, fmt.Errorf("%w: version %v", ErrVersionMismatch, version)
	}
}

// decodeCurrent decodes a payload of the current schema version.
func decodeCurrent(buf *bytes.Buffer) (*Chunk, error) {
	c, n, err := decodeHeader(buf)
	if err != nil {
		return nil, err
	}
	for i := 0; i < n; i++ {
		if c.sub[i], err = decodeSubChunk(buf, c.air); err != nil {
			return nil, fmt.Errorf("sub chunk %v: %w", i, err)
		}
	}
	for i := 0; i < n; i++ {
		if c.biomes[i], err = decodeStorage(buf); err != nil {
			return nil, fmt.Errorf("biomes %v: %w", i, err)
		}
	}
	c.recalculateHeightMap = true
	return c, nil
}

// decodeLegacy decodes a payload of the legacy schema version and migrates
// it: The legacy version stored a single 256 byte biome column array for the
// whole chunk, which is expanded into one paletted storage per sub chunk.
func decodeLegacy(buf *bytes.Buffer) (*Chunk, error) {
	c, n, err := decodeHeader(buf)
	if err != nil {
		return nil, err
	}
	for i := 0; i < n; i++ {
		if c.sub[i], err = decodeSubChunk(buf, c.air); err != nil {
			return nil, fmt.Errorf("sub chunk %v: %w", i, err)
		}
	}
	var biomes [256]byte
	if _, err := io.ReadFull(buf, biomes[:]); err != nil {
		return nil, fmt.Errorf("legacy biomes: %w", err)
	}
	for x := uint8(0); x < 16; x++ {
		for z := uint8(0); z < 16; z++ {
			id := uint32(biomes[(uint16(z)<<4)|uint16(x)])
			for y := int16(c.r[0]); y <= int16(c.r[1]); y++ {
				c.SetBiome(x, y, z, id)
			}
		}
	}
	c.recalculateHeightMap = true
	return c, nil
}

// decodeHeader reads the range, air runtime ID and sub chunk count shared by
// all payload versions and returns a chunk shaped to hold them.
func decodeHeader(buf *bytes.Buffer) (*Chunk, int, error) {
	min, err := readInt32(buf)
	if err != nil {
		return nil, 0, fmt.Errorf("read range: %w", err)
	}
	max, err := readInt32(buf)
	if err != nil {
		return nil, 0, fmt.Errorf("read range: %w", err)
	}
	air, err := readUint32(buf)
	if err != nil {
		return nil, 0, fmt.Errorf("read air: %w", err)
	}
	count, err := buf.ReadByte()
	if err != nil {
		return nil, 0, fmt.Errorf("read sub chunk count: %w", err)
	}
	r := cube.Range{int(min), int(max)}
	// Validate before allocating anything: a forged range would otherwise
	// drive an oversized sub chunk allocation.
	if max < min {
		return nil, 0, fmt.Errorf("invalid range %v", r)
	}
	if n := (r.Height() >> 4) + 1; n != int(count) {
		return nil, 0, fmt.Errorf("payload holds %v sub chunks, range %v requires %v", count, r, n)
	}
	c := New(air, r)
	return c, int(count), nil
}

// decodeSubChunk reads a single sub chunk including its light arrays.
func decodeSubChunk(buf *bytes.Buffer, air uint32) (*SubChunk, error) {
	layers, err := buf.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("read layer count: %w", err)
	}
	sub := NewSubChunk(air)
	for i := byte(0); i < layers; i++ {
		storage, err := decodeStorage(buf)
		if err != nil {
			return nil, fmt.Errorf("layer %v: %w", i, err)
		}
		sub.storages = append(sub.storages, storage)
	}
	if sub.blockLight, err = readLight(buf); err != nil {
		return nil, fmt.Errorf("block light: %w", err)
	}
	if sub.skyLight, err = readLight(buf); err != nil {
		return nil, fmt.Errorf("sky light: %w", err)
	}
	return sub, nil
}

// decodeStorage reads a PalettedStorage written by encodeStorage.
func decodeStorage(buf *bytes.Buffer) (*PalettedStorage, error) {
	sizeByte, err := buf.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("read palette size: %w", err)
	}
	size := paletteSize(sizeByte)
	valid := false
	for _, s := range sizes {
		if s == size {
			valid = true
			break
		}
	}
	if !valid {
		return nil, fmt.Errorf("invalid palette size %v", sizeByte)
	}
	count, err := readUint32(buf)
	if err != nil {
		return nil, fmt.Errorf("read palette length: %w", err)
	}
	if count == 0 || count > 4096 {
		return nil, fmt.Errorf("invalid palette length %v", count)
	}
	values := make([]uint32, count)
	for i := range values {
		if values[i], err = readUint32(buf); err != nil {
			return nil, fmt.Errorf("read palette value: %w", err)
		}
	}
	indices := make([]uint32, size.uint32s())
	for i := range indices {
		if indices[i], err = readUint32(buf); err != nil {
			return nil, fmt.Errorf("read indices: %w", err)
		}
	}
	return newPalettedStorage(indices, newPalette(size, values)), nil
}

// readLight reads a light nibble array written by writeLight.
func readLight(buf *bytes.Buffer) ([]uint8, error) {
	present, err := buf.ReadByte()
	if err != nil {
		return nil, err
	}
	if present == 0 {
		return nil, nil
	}
	light := make([]uint8, 2048)
	if _, err := io.ReadFull(buf, light); err != nil {
		return nil, err
	}
	return light, nil
}

func readInt32(buf *bytes.Buffer) (int32, error) {
	v, err := readUint32(buf)
	return int32(v), err
}

func readUint32(buf *bytes.Buffer) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(buf, b[:]); err != nil {
		return 0, err
	}
	var v uint32
	v = uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
	return v, nil
}
