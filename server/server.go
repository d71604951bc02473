package server

import (
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/Mili-ssm/Pumpkin/server/world"
)

// Server implements a world server. It hosts a single simulated world whose
// chunks are loaded, generated, lit and saved on demand as loaders move
// through it.
type Server struct {
	conf  Config
	world *world.World

	once sync.Once
}

// New creates a Server using a default Config. The Server's world is created
// immediately. To use a custom configuration, use Config.New() instead.
func New() *Server {
	return Config{}.New()
}

// World returns the world hosted by the Server. Loaders may be attached to it
// to start loading chunks.
func (srv *Server) World() *world.World {
	return srv.world
}

// ViewDistance returns the radius, in chunks, that loaders created for this
// Server should use.
func (srv *Server) ViewDistance() int {
	return srv.conf.ViewDistance
}

// SimulationDistance returns the radius, in chunks, within which chunks are
// ticked. It is never larger than ViewDistance.
func (srv *Server) SimulationDistance() int {
	return srv.conf.SimulationDistance
}

// Save forces a save of all modified chunks and world settings to disk.
func (srv *Server) Save() {
	srv.world.Save()
}

// CloseOnProgramEnd closes the server right before the program ends, so that
// all world data is saved. A callback may be passed which is called after the
// world has been closed.
func (srv *Server) CloseOnProgramEnd(callbacks ...func()) {
	c := make(chan os.Signal, 2)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		if err := srv.Close(); err != nil {
			srv.conf.Log.Error("close server: " + err.Error())
		}
		for _, cb := range callbacks {
			cb()
		}
		os.Exit(0)
	}()
}

// Close closes the server, saving and unloading all chunks of its world and
// closing the underlying storage. Close may be called only once.
func (srv *Server) Close() error {
	var err error
	srv.once.Do(func() {
		srv.conf.Log.Info("Closing server...")
		err = srv.world.Close()
	})
	return err
}
