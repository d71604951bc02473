package world

import (
	"log/slog"
	"math/rand/v2"
	"runtime"
	"time"

	"github.com/Mili-ssm/Pumpkin/server/block/cube"
)

// Config may be used to create a new World. It holds a variety of fields
// that influence the World.
type Config struct {
	// Log is the Logger that will be used to log errors and debug messages
	// to. If set to nil, slog.Default() is set.
	Log *slog.Logger
	// Range is the vertical range of the World in blocks. If left as its
	// zero value, a default range of -64 through 319 is used.
	Range cube.Range
	// Provider is the Provider implementation used to read and write world
	// data. If left as nil, Config.New sets this to NopProvider, in which
	// case no data is saved at all.
	Provider Provider
	// Generator is the Generator implementation used to generate new areas
	// of the world. If left as nil, Config.New sets this to NopGenerator, in
	// which case no blocks are generated at all.
	Generator Generator
	// ReadOnly specifies if the World should be read-only, meaning no new
	// data will be written to the Provider.
	ReadOnly bool
	// Workers specifies the number of goroutines that load, generate, light
	// and save chunks. If non-positive, runtime.GOMAXPROCS(0) workers are
	// started.
	Workers int
	// QueueSize is the maximum number of chunk tasks that may be pending at
	// once. Once full, further chunk requests are rejected until the queue
	// drains. If non-positive, a default of 1024 is used.
	QueueSize int
	// SimulationDistance is the radius in chunks around each Loader within
	// which blocks receive random ticks. If non-positive, a default of 8 is
	// used.
	SimulationDistance int
	// UnloadDelay is the duration a chunk without any loaders remains in
	// memory before it is saved and evicted. A short delay prevents chunks
	// from thrashing in and out of memory when a loader moves along a chunk
	// border. If non-positive, a default of 5 seconds is used.
	UnloadDelay time.Duration
	// SaveInterval is the interval at which modified chunks that remain
	// loaded are saved to the Provider. If non-positive, a default of 5
	// minutes is used.
	SaveInterval time.Duration
	// RandSeed is the seed used for world generation. If the Provider holds
	// a seed in its settings, that seed takes precedence.
	RandSeed int64
}

// New creates a World using the Config conf. The World is ticked and ready
// to use when returned.
func (conf Config) New() *World {
	if conf.Log == nil {
		conf.Log = slog.Default()
	}
	if conf.Range == (cube.Range{}) {
		conf.Range = cube.Range{-64, 319}
	}
	if conf.Provider == nil {
		conf.Provider = NopProvider{}
	}
	if conf.Generator == nil {
		conf.Generator = NopGenerator{}
	}
	if conf.Workers <= 0 {
		conf.Workers = runtime.GOMAXPROCS(0)
	}
	if conf.QueueSize <= 0 {
		conf.QueueSize = 1024
	}
	if conf.SimulationDistance <= 0 {
		conf.SimulationDistance = 8
	}
	if conf.UnloadDelay <= 0 {
		conf.UnloadDelay = time.Second * 5
	}
	if conf.SaveInterval <= 0 {
		conf.SaveInterval = time.Minute * 5
	}
	finaliseBlockRegistry()

	s := defaultSettings()
	s.Seed = conf.RandSeed
	conf.Provider.Settings(s)

	w := &World{
		conf:         conf,
		ra:           conf.Range,
		set:          s,
		queue:        make(chan transaction, 128),
		queueClosing: make(chan struct{}),
		closing:      make(chan struct{}),
		store:        newStore(),
		viewers:      map[*Loader]Viewer{},
		r:            rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	w.sched = newScheduler(conf.Workers, conf.QueueSize, conf.Log)
	var h Handler = NopHandler{}
	w.handler.Store(&h)

	w.running.Add(1)
	go (ticker{interval: time.Second / 20}).tickLoop(w)

	w.queueing.Add(1)
	go w.handleTransactions()
	return w
}
