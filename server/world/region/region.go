package region

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
)

// A region file stores a 32x32 square of chunks. The file is divided into
// 4KiB sectors: the first two hold the location and timestamp tables, the
// rest hold chunk payloads. Each location entry packs the first sector of a
// chunk's payload and the number of sectors it spans.
const (
	// ChunksPerRegion is the width in chunks of the square a region file
	// covers.
	ChunksPerRegion = 32

	sectorSize    = 4096
	headerSectors = 2
	tableEntries  = ChunksPerRegion * ChunksPerRegion
)

// Compression schemes of chunk payloads. The scheme used is recorded per
// chunk, so a region file may mix schemes and files written with a different
// configuration remain readable.
const (
	CompressionGZip byte = 1
	CompressionZlib byte = 2
	CompressionNone byte = 3
	CompressionZstd byte = 4
)

// ErrCorrupt is wrapped by errors returned when a region file holds data
// that cannot be read back: a truncated payload, an unknown compression
// scheme or a checksum mismatch.
var ErrCorrupt = errors.New("region data corrupt")

// location is an entry of the location table: the first sector of a chunk's
// payload and the payload's length in sectors. A zero location means the
// chunk is not present.
type location struct {
	offset  uint32
	sectors uint32
}

// span is a run of unused sectors available for reuse.
type span struct {
	offset  uint32
	sectors uint32
}

// File is an open region file. All methods are safe for concurrent use.
type File struct {
	mu         sync.Mutex
	f          *os.File
	locations  [tableEntries]location
	timestamps [tableEntries]uint32
	// free holds runs of sectors no longer referenced by the location
	// table, kept sorted by offset. Rewritten chunks reuse these before the
	// file grows.
	free []span
	// end is the first sector past the current end of the file.
	end         uint32
	dirtyHeader bool
}

// Open opens the region file at the path passed, creating it with empty
// tables if it does not exist.
func Open(path string) (*File, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("open region file: %w", err)
	}
	r := &File{f: f, end: headerSectors}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("stat region file: %w", err)
	}
	if info.Size() == 0 {
		// Fresh file: write the empty header so the file is well-formed
		// even if no chunk is ever stored.
		if err := r.writeHeader(); err != nil {
			_ = f.Close()
			return nil, err
		}
		return r, nil
	}
	if err := r.readHeader(); err != nil {
		_ = f.Close()
		return nil, err
	}
	r.buildFreeList(uint32((info.Size() + sectorSize - 1) / sectorSize))
	return r, nil
}

// readHeader reads the location and timestamp tables.
func (r *File) readHeader() error {
	header := make([]byte, headerSectors*sectorSize)
	if _, err := r.f.ReadAt(header, 0); err != nil {
		return fmt.Errorf("read region header: %w (%w)", err, ErrCorrupt)
	}
	for i := 0; i < tableEntries; i++ {
		loc := binary.BigEndian.Uint32(header[i*4:])
		r.locations[i] = location{offset: loc >> 8, sectors: loc & 0xff}
		r.timestamps[i] = binary.BigEndian.Uint32(header[sectorSize+i*4:])
	}
	return nil
}

// writeHeader writes the location and timestamp tables back to the file.
func (r *File) writeHeader() error {
	header := make([]byte, headerSectors*sectorSize)
	for i := 0; i < tableEntries; i++ {
		loc := r.locations[i]
		binary.BigEndian.PutUint32(header[i*4:], loc.offset<<8|loc.sectors&0xff)
		binary.BigEndian.PutUint32(header[sectorSize+i*4:], r.timestamps[i])
	}
	if _, err := r.f.WriteAt(header, 0); err != nil {
		return fmt.Errorf("write region header: %w", err)
	}
	r.dirtyHeader = false
	return nil
}

// buildFreeList finds all sector runs between the header and the end of the
// file that no location references.
func (r *File) buildFreeList(fileSectors uint32) {
	used := make([]span, 0, tableEntries)
	for _, loc := range r.locations {
		if loc.sectors > 0 {
			used = append(used, span{offset: loc.offset, sectors: loc.sectors})
		}
	}
	sort.Slice(used, func(i, j int) bool { return used[i].offset < used[j].offset })

	r.end = headerSectors
	r.free = r.free[:0]
	for _, u := range used {
		if u.offset > r.end {
			r.free = append(r.free, span{offset: r.end, sectors: u.offset - r.end})
		}
		if next := u.offset + u.sectors; next > r.end {
			r.end = next
		}
	}
	if fileSectors > r.end {
		r.end = fileSectors
	}
}

// index returns the table index of the chunk at the region-local coordinates
// passed.
func index(x, z int) int {
	return (x & 31) | (z&31)<<5
}

// Chunk reads the payload of the chunk at the region-local coordinates
// passed. The bool returned is false if the region holds no data for the
// chunk.
func (r *File) Chunk(x, z int) ([]byte, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	loc := r.locations[index(x, z)]
	if loc.sectors == 0 {
		return nil, false, nil
	}
	buf := make([]byte, loc.sectors*sectorSize)
	if _, err := r.f.ReadAt(buf, int64(loc.offset)*sectorSize); err != nil {
		return nil, true, fmt.Errorf("read chunk payload: %w (%w)", err, ErrCorrupt)
	}
	n := binary.BigEndian.Uint32(buf)
	if n < 1 || n > uint32(len(buf))-4 {
		return nil, true, fmt.Errorf("chunk payload length %v out of bounds: %w", n, ErrCorrupt)
	}
	payload, err := decompress(buf[4], buf[5:4+n])
	if err != nil {
		return nil, true, err
	}
	if len(payload) < 8 {
		return nil, true, fmt.Errorf("chunk payload too short for checksum: %w", ErrCorrupt)
	}
	sum, data := binary.BigEndian.Uint64(payload), payload[8:]
	if xxhash.Sum64(data) != sum {
		return nil, true, fmt.Errorf("chunk checksum mismatch: %w", ErrCorrupt)
	}
	return data, true, nil
}

// StoreChunk writes the payload of the chunk at the region-local coordinates
// passed, compressed with the scheme passed. The sectors previously used by
// the chunk are released for reuse. The header is only rewritten on Flush.
func (r *File) StoreChunk(x, z int, data []byte, scheme byte, timestamp uint32) error {
	sum := make([]byte, 8+len(data))
	binary.BigEndian.PutUint64(sum, xxhash.Sum64(data))
	copy(sum[8:], data)

	compressed, err := compress(scheme, sum)
	if err != nil {
		return err
	}

	buf := make([]byte, ((5+len(compressed))+sectorSize-1)/sectorSize*sectorSize)
	binary.BigEndian.PutUint32(buf, uint32(len(compressed)+1))
	buf[4] = scheme
	copy(buf[5:], compressed)
	sectors := uint32(len(buf) / sectorSize)
	if sectors > 0xff {
		// The location table stores the sector count in a single byte. A
		// larger payload would write a header that silently truncates it.
		return fmt.Errorf("chunk payload spans %v sectors, at most 255 fit a location entry", sectors)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	i := index(x, z)
	old := r.locations[i]

	offset := r.allocate(sectors)
	if _, err := r.f.WriteAt(buf, int64(offset)*sectorSize); err != nil {
		// The allocation is lost but the old data is still referenced.
		return fmt.Errorf("write chunk payload: %w", err)
	}
	r.locations[i] = location{offset: offset, sectors: sectors}
	r.timestamps[i] = timestamp
	r.dirtyHeader = true

	if old.sectors > 0 {
		r.release(old)
	}
	return nil
}

// allocate finds the smallest free span that fits the number of sectors
// passed, growing the file if none does.
func (r *File) allocate(sectors uint32) uint32 {
	best := -1
	for i, s := range r.free {
		if s.sectors < sectors {
			continue
		}
		if best == -1 || s.sectors < r.free[best].sectors {
			best = i
		}
	}
	if best == -1 {
		offset := r.end
		r.end += sectors
		return offset
	}
	s := r.free[best]
	offset := s.offset
	if s.sectors == sectors {
		r.free = append(r.free[:best], r.free[best+1:]...)
	} else {
		r.free[best] = span{offset: s.offset + sectors, sectors: s.sectors - sectors}
	}
	return offset
}

// release returns the sectors of a location to the free list, merging with
// adjacent free spans.
func (r *File) release(loc location) {
	s := span{offset: loc.offset, sectors: loc.sectors}
	i := sort.Search(len(r.free), func(i int) bool { return r.free[i].offset > s.offset })
	r.free = append(r.free, span{})
	copy(r.free[i+1:], r.free[i:])
	r.free[i] = s

	// Merge with the next span, then with the previous one.
	if i+1 < len(r.free) && r.free[i].offset+r.free[i].sectors == r.free[i+1].offset {
		r.free[i].sectors += r.free[i+1].sectors
		r.free = append(r.free[:i+1], r.free[i+2:]...)
	}
	if i > 0 && r.free[i-1].offset+r.free[i-1].sectors == r.free[i].offset {
		r.free[i-1].sectors += r.free[i].sectors
		r.free = append(r.free[:i], r.free[i+1:]...)
	}
	// A span at the end of the file shrinks the file instead.
	if n := len(r.free); n > 0 && r.free[n-1].offset+r.free[n-1].sectors == r.end {
		r.end = r.free[n-1].offset
		r.free = r.free[:n-1]
	}
}

// Flush writes the header tables if any chunk was stored since the last
// flush and syncs the file to disk.
func (r *File) Flush() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.dirtyHeader {
		if err := r.writeHeader(); err != nil {
			return err
		}
	}
	return r.f.Sync()
}

// Close flushes and closes the file.
func (r *File) Close() error {
	if err := r.Flush(); err != nil {
		_ = r.f.Close()
		return err
	}
	return r.f.Close()
}

var (
	zstdEncoder, _ = zstd.NewWriter(nil)
	zstdDecoder, _ = zstd.NewReader(nil)
)

// compress compresses the data passed with the scheme passed.
func compress(scheme byte, data []byte) ([]byte, error) {
	switch scheme {
	case CompressionNone:
		return data, nil
	case CompressionZstd:
		return zstdEncoder.EncodeAll(data, nil), nil
	case CompressionZlib:
		buf := new(bytes.Buffer)
		w := zlib.NewWriter(buf)
		if _, err := w.Write(data); err != nil {
			return nil, fmt.Errorf("compress chunk: %w", err)
		}
		if err := w.Close(); err != nil {
			return nil, fmt.Errorf("compress chunk: %w", err)
		}
		return buf.Bytes(), nil
	case CompressionGZip:
		buf := new(bytes.Buffer)
		w := gzip.NewWriter(buf)
		if _, err := w.Write(data); err != nil {
			return nil, fmt.Errorf("compress chunk: %w", err)
		}
		if err := w.Close(); err != nil {
			return nil, fmt.Errorf("compress chunk: %w", err)
		}
		return buf.Bytes(), nil
	}
	return nil, fmt.Errorf("unknown compression scheme %v", scheme)
}

// decompress decompresses a chunk payload according to the scheme recorded
// with it.
func decompress(scheme byte, data []byte) ([]byte, error) {
	switch scheme {
	case CompressionNone:
		return data, nil
	case CompressionZstd:
		out, err := zstdDecoder.DecodeAll(data, nil)
		if err != nil {
			return nil, fmt.Errorf("decompress chunk: %w (%w)", err, ErrCorrupt)
		}
		return out, nil
	case CompressionZlib:
		rc, err := zlib.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decompress chunk: %w (%w)", err, ErrCorrupt)
		}
		defer rc.Close()
		out, err := io.ReadAll(rc)
		if err != nil {
			return nil, fmt.Errorf("decompress chunk: %w (%w)", err, ErrCorrupt)
		}
		return out, nil
	case CompressionGZip:
		rc, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decompress chunk: %w (%w)", err, ErrCorrupt)
		}
		defer rc.Close()
		out, err := io.ReadAll(rc)
		if err != nil {
			return nil, fmt.Errorf("decompress chunk: %w (%w)", err, ErrCorrupt)
		}
		return out, nil
	}
	return nil, fmt.Errorf("unknown compression scheme %v: %w", scheme, ErrCorrupt)
}
