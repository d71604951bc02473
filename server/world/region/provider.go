package region

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/Mili-ssm/Pumpkin/server/world"
	"github.com/Mili-ssm/Pumpkin/server/world/chunk"
	"github.com/pelletier/go-toml"
)

// Config holds the settings of a region Provider.
type Config struct {
	// Log is the Logger used for non-fatal provider errors. If nil,
	// slog.Default() is set.
	Log *slog.Logger
	// Compression selects the compression scheme of newly written chunks:
	// "zlib", "gzip", "zstd" or "none". Chunks written with other schemes
	// remain readable. The default is "zlib".
	Compression string
	// FlushInterval is the interval at which buffered region headers are
	// written to disk. If non-positive, a default of 5 seconds is used.
	FlushInterval time.Duration
	// MaxOpenFiles caps the number of region files kept open at once. Once
	// exceeded, the least recently used file is flushed and closed. If
	// non-positive, a default of 64 is used.
	MaxOpenFiles int
}

// Provider implements world.Provider storage backed by region files in a
// directory, with the world settings in a level.toml file next to them.
type Provider struct {
	conf   Config
	dir    string
	scheme byte

	mu sync.Mutex
	// files are the region files currently open, with order tracking use
	// recency for eviction. The most recently used region is at the end.
	files map[[2]int32]*File
	order [][2]int32

	closing chan struct{}
	done    sync.WaitGroup
}

// levelData is the TOML representation of world settings on disk.
type levelData struct {
	Name        string `toml:"name"`
	SpawnX      int    `toml:"spawn_x"`
	SpawnY      int    `toml:"spawn_y"`
	SpawnZ      int    `toml:"spawn_z"`
	Time        int64  `toml:"time"`
	TimeCycle   bool   `toml:"time_cycle"`
	CurrentTick int64  `toml:"current_tick"`
	Seed        int64  `toml:"seed"`
}

// New creates a Provider reading and writing region files in the directory
// passed. The directory is created if it does not exist; failure to do so is
// returned as an error, as no world data could be saved at all.
func (conf Config) New(dir string) (*Provider, error) {
	if conf.Log == nil {
		conf.Log = slog.Default()
	}
	if conf.FlushInterval <= 0 {
		conf.FlushInterval = time.Second * 5
	}
	if conf.MaxOpenFiles <= 0 {
		conf.MaxOpenFiles = 64
	}
	scheme, err := schemeByName(conf.Compression)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Join(dir, "region"), 0755); err != nil {
		return nil, fmt.Errorf("create world directory: %w", err)
	}
	p := &Provider{
		conf: conf, dir: dir, scheme: scheme,
		files:   make(map[[2]int32]*File),
		closing: make(chan struct{}),
	}
	p.done.Add(1)
	go p.flushLoop()
	return p, nil
}

// schemeByName maps a compression name from the configuration to its scheme
// byte.
func schemeByName(name string) (byte, error) {
	switch name {
	case "", "zlib":
		return CompressionZlib, nil
	case "gzip":
		return CompressionGZip, nil
	case "zstd":
		return CompressionZstd, nil
	case "none":
		return CompressionNone, nil
	}
	return 0, fmt.Errorf("unknown compression scheme %q", name)
}

// Settings loads the world settings from the level.toml file of the world
// directory, leaving the settings passed untouched if the file does not
// exist.
func (p *Provider) Settings(set *world.Settings) {
	data, err := os.ReadFile(filepath.Join(p.dir, "level.toml"))
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			p.conf.Log.Error("load level.toml: " + err.Error())
		}
		return
	}
	var level levelData
	if err := toml.Unmarshal(data, &level); err != nil {
		p.conf.Log.Error("decode level.toml: " + err.Error())
		return
	}
	set.Lock()
	defer set.Unlock()
	set.Name = level.Name
	set.Spawn = [3]int{level.SpawnX, level.SpawnY, level.SpawnZ}
	set.Time = level.Time
	set.TimeCycle = level.TimeCycle
	set.CurrentTick = level.CurrentTick
	set.Seed = level.Seed
}

// SaveSettings writes the world settings to the level.toml file of the world
// directory.
func (p *Provider) SaveSettings(set *world.Settings) {
	set.Lock()
	level := levelData{
		Name:        set.Name,
		SpawnX:      set.Spawn[0],
		SpawnY:      set.Spawn[1],
		SpawnZ:      set.Spawn[2],
		Time:        set.Time,
		TimeCycle:   set.TimeCycle,
		CurrentTick: set.CurrentTick,
		Seed:        set.Seed,
	}
	set.Unlock()

	data, err := toml.Marshal(level)
	if err != nil {
		p.conf.Log.Error("encode level.toml: " + err.Error())
		return
	}
	if err := os.WriteFile(filepath.Join(p.dir, "level.toml"), data, 0644); err != nil {
		p.conf.Log.Error("save level.toml: " + err.Error())
	}
}

// LoadColumn reads a chunk from the region file holding the position passed.
func (p *Provider) LoadColumn(pos world.ChunkPos) (*chunk.Chunk, error) {
	f, err := p.file(pos[0]>>5, pos[1]>>5, false)
	if err != nil {
		return nil, err
	}
	if f == nil {
		return nil, world.ErrNotFound
	}
	data, found, err := f.Chunk(int(pos[0]), int(pos[1]))
	if err != nil {
		if errors.Is(err, ErrCorrupt) {
			return nil, fmt.Errorf("%w: %w", world.ErrCorruptData, err)
		}
		return nil, err
	}
	if !found {
		return nil, world.ErrNotFound
	}
	c, err := chunk.DecodeDisk(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", world.ErrCorruptData, err)
	}
	return c, nil
}

// StoreColumn writes a chunk to the region file holding the position passed.
func (p *Provider) StoreColumn(pos world.ChunkPos, c *chunk.Chunk) error {
	f, err := p.file(pos[0]>>5, pos[1]>>5, true)
	if err != nil {
		return err
	}
	return f.StoreChunk(int(pos[0]), int(pos[1]), chunk.EncodeDisk(c), p.scheme, uint32(time.Now().Unix()))
}

// file returns the open region file at the region coordinates passed,
// opening it if needed. When create is false and the file does not exist on
// disk, nil is returned without error.
func (p *Provider) file(rx, rz int32, create bool) (*File, error) {
	key := [2]int32{rx, rz}

	p.mu.Lock()
	defer p.mu.Unlock()

	if f, ok := p.files[key]; ok {
		p.touch(key)
		return f, nil
	}
	path := filepath.Join(p.dir, "region", fmt.Sprintf("r.%v.%v.mcr", rx, rz))
	if !create {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
	}
	f, err := Open(path)
	if err != nil {
		return nil, err
	}
	p.files[key] = f
	p.order = append(p.order, key)
	p.evictFiles()
	return f, nil
}

// touch moves the region key passed to the most-recently-used end of the
// order list.
func (p *Provider) touch(key [2]int32) {
	if i := slices.Index(p.order, key); i != -1 {
		p.order = append(slices.Delete(p.order, i, i+1), key)
	}
}

// evictFiles closes the least recently used region files until the open
// file count is within the configured cap. Called with p.mu held.
func (p *Provider) evictFiles() {
	for len(p.files) > p.conf.MaxOpenFiles {
		key := p.order[0]
		p.order = p.order[1:]
		f := p.files[key]
		delete(p.files, key)
		if err := f.Close(); err != nil {
			p.conf.Log.Error("close region file: "+err.Error(), "region_x", key[0], "region_z", key[1])
		}
	}
}

// flushLoop periodically flushes all open region files until the provider
// closes.
func (p *Provider) flushLoop() {
	defer p.done.Done()
	t := time.NewTicker(p.conf.FlushInterval)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			if err := p.Flush(); err != nil {
				p.conf.Log.Error("flush region files: " + err.Error())
			}
		case <-p.closing:
			return
		}
	}
}

// Flush writes the buffered headers of all open region files and syncs them
// to disk.
func (p *Provider) Flush() error {
	p.mu.Lock()
	files := make([]*File, 0, len(p.files))
	for _, f := range p.files {
		files = append(files, f)
	}
	p.mu.Unlock()

	var errs []error
	for _, f := range files {
		if err := f.Flush(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close flushes and closes all open region files.
func (p *Provider) Close() error {
	close(p.closing)
	p.done.Wait()

	p.mu.Lock()
	defer p.mu.Unlock()
	var errs []error
	for key, f := range p.files {
		if err := f.Close(); err != nil {
			errs = append(errs, err)
		}
		delete(p.files, key)
	}
	p.order = p.order[:0]
	return errors.Join(errs...)
}

// Compile time check to make sure Provider implements world.Provider.
var _ world.Provider = (*Provider)(nil)
