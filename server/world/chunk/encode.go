package chunk

import (
	"bytes"
	"encoding/binary"
)

const (
	// DiskVersion is the current version of the serialised chunk payload
	// written to disk. Decoding supports this version and, through explicit
	// migration, the version before it.
	DiskVersion = 2
	// legacyDiskVersion is the previous payload version, which stored biomes
	// as a single column array rather than one paletted storage per sub
	// chunk.
	legacyDiskVersion = 1

	// NetworkVersion is the version tag of the network payload layout
	// produced by EncodeNetwork. Consumers must reject payloads carrying a
	// different version.
	NetworkVersion = 3
)

// EncodeDisk encodes the chunk passed to a versioned byte payload that may
// be stored on disk and later decoded using DecodeDisk.
func EncodeDisk(c *Chunk) []byte {
	buf := bytes.NewBuffer(make([]byte, 0, 4096))
	buf.WriteByte(DiskVersion)

	writeInt32(buf, int32(c.r[0]))
	writeInt32(buf, int32(c.r[1]))
	writeUint32(buf, c.air)

	buf.WriteByte(byte(len(c.sub)))
	for _, sub := range c.sub {
		encodeSubChunk(buf, sub)
	}
	for _, b := range c.biomes {
		encodeStorage(buf, b)
	}
	return buf.Bytes()
}

// EncodeNetwork encodes the chunk passed to the fixed network byte layout:
// a version tag followed by, for every sub chunk, the palette table, the
// block index array, the biome array and both light arrays.
func EncodeNetwork(c *Chunk) []byte {
	buf := bytes.NewBuffer(make([]byte, 0, 8192))
	buf.WriteByte(NetworkVersion)

	writeInt32(buf, int32(c.r[0]))
	writeInt32(buf, int32(c.r[1]))

	buf.WriteByte(byte(len(c.sub)))
	for i, sub := range c.sub {
		encodeStorage(buf, sub.Layer(0))
		encodeStorage(buf, c.biomes[i])
		writeLight(buf, sub.blockLight)
		writeLight(buf, sub.skyLight)
	}
	return buf.Bytes()
}

// encodeSubChunk writes the layers and light arrays of a single sub chunk.
func encodeSubChunk(buf *bytes.Buffer, sub *SubChunk) {
	buf.WriteByte(byte(len(sub.storages)))
	for _, storage := range sub.storages {
		encodeStorage(buf, storage)
	}
	writeLight(buf, sub.blockLight)
	writeLight(buf, sub.skyLight)
}

// encodeStorage writes a PalettedStorage as its palette followed by the
// packed indices.
func encodeStorage(buf *bytes.Buffer, storage *PalettedStorage) {
	buf.WriteByte(byte(storage.palette.size))
	writeUint32(buf, uint32(len(storage.palette.values)))
	for _, v := range storage.palette.values {
		writeUint32(buf, v)
	}
	for _, w := range storage.indices {
		writeUint32(buf, w)
	}
}

// writeLight writes a light nibble array prefixed with a presence byte, so
// that all-dark arrays occupy a single byte.
func writeLight(buf *bytes.Buffer, light []uint8) {
	if light == nil {
		buf.WriteByte(0)
		return
	}
	buf.WriteByte(1)
	buf.Write(light)
}

func writeInt32(buf *bytes.Buffer, v int32) {
	writeUint32(buf, uint32(v))
}

func writeUint32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}
