// Package mcdb implements world.Provider storage backed by a leveldb
// database. It stores the same chunk payloads as the region package, making
// the two formats interchangeable per world.
package mcdb

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/Mili-ssm/Pumpkin/server/world"
	"github.com/Mili-ssm/Pumpkin/server/world/chunk"
	"github.com/df-mc/goleveldb/leveldb"
	"github.com/df-mc/goleveldb/leveldb/opt"
	"github.com/pelletier/go-toml"
)

// keyVersion tags chunk payload keys. Future key kinds (entities, block
// entities) get their own tags.
const keyVersion = 'v'

// Config holds the settings of an mcdb Provider.
type Config struct {
	// Log is the Logger used for non-fatal provider errors. If nil,
	// slog.Default() is set.
	Log *slog.Logger
	// BlockSize is the leveldb block size in bytes. The default is 16KiB,
	// which performs well for chunk-sized values.
	BlockSize int
}

// Provider implements world.Provider storage in a leveldb database.
type Provider struct {
	conf Config
	dir  string
	db   *leveldb.DB
}

// New creates a Provider storing chunks in a leveldb database under the
// directory passed. The database is created if it does not exist.
func (conf Config) New(dir string) (*Provider, error) {
	if conf.Log == nil {
		conf.Log = slog.Default()
	}
	if conf.BlockSize == 0 {
		conf.BlockSize = 16 * opt.KiB
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create world directory: %w", err)
	}
	db, err := leveldb.OpenFile(filepath.Join(dir, "db"), &opt.Options{
		BlockSize: conf.BlockSize,
	})
	if err != nil {
		return nil, fmt.Errorf("open leveldb database: %w", err)
	}
	return &Provider{conf: conf, dir: dir, db: db}, nil
}

// chunkKey produces the database key of the chunk at the position passed.
func chunkKey(pos world.ChunkPos) []byte {
	key := make([]byte, 9)
	binary.LittleEndian.PutUint32(key, uint32(pos[0]))
	binary.LittleEndian.PutUint32(key[4:], uint32(pos[1]))
	key[8] = keyVersion
	return key
}

// Settings loads the world settings from the level.toml file next to the
// database, leaving the settings passed untouched if the file does not
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

// SaveSettings writes the world settings to the level.toml file next to the
// database.
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

// LoadColumn reads a chunk from the database at the position passed.
func (p *Provider) LoadColumn(pos world.ChunkPos) (*chunk.Chunk, error) {
	data, err := p.db.Get(chunkKey(pos), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, world.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read chunk: %w", err)
	}
	c, err := chunk.DecodeDisk(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", world.ErrCorruptData, err)
	}
	return c, nil
}

// StoreColumn writes a chunk to the database at the position passed.
func (p *Provider) StoreColumn(pos world.ChunkPos, c *chunk.Chunk) error {
	return p.db.Put(chunkKey(pos), chunk.EncodeDisk(c), nil)
}

// Flush is a no-op: leveldb writes through its own log.
func (p *Provider) Flush() error {
	return nil
}

// Close closes the database.
func (p *Provider) Close() error {
	return p.db.Close()
}

// Compile time check to make sure Provider implements world.Provider.
var _ world.Provider = (*Provider)(nil)
