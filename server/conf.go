package server

import (
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"time"

	"github.com/Mili-ssm/Pumpkin/server/world"
	"github.com/Mili-ssm/Pumpkin/server/world/generator"
	"github.com/Mili-ssm/Pumpkin/server/world/mcdb"
	"github.com/Mili-ssm/Pumpkin/server/world/region"
)

// Config contains options for starting a world server.
type Config struct {
	// Log is the Logger to use for logging information. If nil, Log is set to
	// slog.Default().
	Log *slog.Logger
	// Name is the name of the server, used as the display name of the world it
	// hosts.
	Name string
	// WorldProvider is the world.Provider used for storing and loading world
	// data. If left as nil, world data will be newly created every time and
	// chunks will always be newly generated when loaded.
	WorldProvider world.Provider
	// ReadOnlyWorld specifies if the world should be read only. If set to
	// true, the WorldProvider won't be saved to at all.
	ReadOnlyWorld bool
	// Generator is the world.Generator used for chunks that have no data on
	// disk. If left as nil, an overworld generator seeded with Seed is used.
	Generator world.Generator
	// Seed controls the procedural generation of the world when no custom
	// generator is provided. A value of 0 is valid and results in a fixed
	// world layout.
	Seed int64
	// ViewDistance is the radius, measured in chunks, kept loaded around each
	// viewer attached to the world. If 0, a radius of 12 is used.
	ViewDistance int
	// SimulationDistance is the radius, in chunks, within which chunks are
	// ticked. It is capped to ViewDistance. If 0, a radius of 8 is used.
	SimulationDistance int
	// Workers controls the number of asynchronous workers dedicated to chunk
	// loading, generation and saving. If set to 0 or lower, the worker count
	// will be derived from the host's available CPUs.
	Workers int
	// QueueSize limits how many chunk jobs may wait for a worker. If set to 0
	// or lower, a size proportional to the worker count will be chosen.
	// Increase it alongside Workers if the logs report queue saturation.
	QueueSize int
	// UnloadDelay is how long a chunk must remain unreferenced before it is
	// saved and evicted. If 0, a delay of 5 seconds is used.
	UnloadDelay time.Duration
	// SaveInterval is the interval of the periodic autosave of modified
	// chunks. If 0, an interval of 5 minutes is used.
	SaveInterval time.Duration
}

// New creates a Server using fields of conf. The Server's world is created
// immediately and starts loading chunks once loaders are attached to it.
func (conf Config) New() *Server {
	if conf.Log == nil {
		conf.Log = slog.Default()
	}
	if conf.Name == "" {
		conf.Name = "World"
	}
	if conf.WorldProvider == nil {
		conf.WorldProvider = world.NopProvider{}
	}
	if conf.Generator == nil {
		conf.Generator = generator.NewOverworld(conf.Seed)
	}
	if conf.ViewDistance == 0 {
		conf.ViewDistance = 12
	}
	if conf.SimulationDistance == 0 {
		conf.SimulationDistance = 8
	}
	if conf.SimulationDistance > conf.ViewDistance {
		conf.SimulationDistance = conf.ViewDistance
	}
	if conf.Workers <= 0 {
		conf.Workers = runtime.GOMAXPROCS(0)
	}

	srv := &Server{conf: conf}
	srv.world = world.Config{
		Log:                conf.Log.With("world", conf.Name),
		Provider:           conf.WorldProvider,
		Generator:          conf.Generator,
		ReadOnly:           conf.ReadOnlyWorld,
		Workers:            conf.Workers,
		QueueSize:          conf.QueueSize,
		SimulationDistance: conf.SimulationDistance,
		UnloadDelay:        conf.UnloadDelay,
		SaveInterval:       conf.SaveInterval,
		RandSeed:           conf.Seed,
	}.New()
	return srv
}

// UserConfig is the user configuration for a world server. It holds settings
// that affect different aspects of the server, such as the storage format and
// chunk worker pool. UserConfig may be serialised and can be converted to a
// Config by calling UserConfig.Config().
type UserConfig struct {
	Server struct {
		// Name is the name of the server and of the world it hosts.
		Name string
	}
	World struct {
		// SaveData controls whether the world's data will be saved and
		// loaded. If false, an empty provider is used and every chunk is
		// generated anew when loaded.
		SaveData bool
		// Folder is the folder that the data of the world resides in.
		Folder string
		// Format selects the on-disk chunk format. Valid values are "region"
		// and "leveldb". Defaults to "region".
		Format string
		// Compression selects the compression scheme used for chunk payloads
		// in the region format. Valid values are "zlib", "gzip", "zstd" and
		// "none". Defaults to "zlib".
		Compression string
		// Seed controls the procedural generation of the world. This value is
		// passed directly to the terrain generator.
		Seed int64
		// ReadOnly prevents any modification of the world data on disk.
		ReadOnly bool
	}
	Chunks struct {
		// ViewDistance is the radius, in chunks, kept loaded around each
		// viewer. Set to 0 to use the default of 12.
		ViewDistance int
		// SimulationDistance is the radius, in chunks, within which chunks
		// are ticked. Set to 0 to use the default of 8.
		SimulationDistance int
		// Workers is the number of background workers dedicated to loading,
		// generating and saving chunks. Set to 0 to automatically select a
		// reasonable default based on the host's CPU count.
		Workers int
		// QueueSize determines how many chunk jobs can wait for a worker. Set
		// to 0 to use an automatically chosen size.
		QueueSize int
		// UnloadDelaySeconds is how long a chunk must remain out of range of
		// all viewers before it is saved and evicted. Set to 0 to use the
		// default of 5 seconds.
		UnloadDelaySeconds int
		// SaveIntervalMinutes is the interval of the periodic autosave. Set
		// to 0 to use the default of 5 minutes.
		SaveIntervalMinutes int
		// FlushIntervalSeconds bounds how much saved chunk data may be lost
		// on a crash: region headers and file contents are synced to disk at
		// this interval. Set to 0 to use the default of 5 seconds.
		FlushIntervalSeconds int
	}
}

// Config converts a UserConfig to a Config, so that it may be used for
// creating a Server. An error is returned if the world storage could not be
// opened.
func (uc UserConfig) Config(log *slog.Logger) (Config, error) {
	conf := Config{
		Log:                log,
		Name:               uc.Server.Name,
		ReadOnlyWorld:      uc.World.ReadOnly,
		Seed:               uc.World.Seed,
		ViewDistance:       uc.Chunks.ViewDistance,
		SimulationDistance: uc.Chunks.SimulationDistance,
		Workers:            uc.Chunks.Workers,
		QueueSize:          uc.Chunks.QueueSize,
		UnloadDelay:        time.Duration(uc.Chunks.UnloadDelaySeconds) * time.Second,
		SaveInterval:       time.Duration(uc.Chunks.SaveIntervalMinutes) * time.Minute,
	}
	if !uc.World.SaveData {
		return conf, nil
	}
	var err error
	switch format := strings.ToLower(strings.TrimSpace(uc.World.Format)); format {
	case "", "region":
		conf.WorldProvider, err = region.Config{
			Log:           log,
			Compression:   uc.World.Compression,
			FlushInterval: time.Duration(uc.Chunks.FlushIntervalSeconds) * time.Second,
		}.New(uc.World.Folder)
	case "leveldb":
		conf.WorldProvider, err = mcdb.Config{Log: log}.New(uc.World.Folder)
	default:
		return conf, fmt.Errorf("unknown chunk format %q", format)
	}
	if err != nil {
		return conf, fmt.Errorf("create world provider: %w", err)
	}
	return conf, nil
}

// DefaultConfig returns a configuration with the default values filled out.
func DefaultConfig() UserConfig {
	c := UserConfig{}
	c.Server.Name = "World"
	c.World.SaveData = true
	c.World.Folder = "world"
	c.World.Format = "region"
	c.World.Compression = "zlib"
	c.World.Seed = 0
	c.Chunks.ViewDistance = 12
	c.Chunks.SimulationDistance = 8
	return c
}
