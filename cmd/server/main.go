package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/Mili-ssm/Pumpkin/server"
	"github.com/Mili-ssm/Pumpkin/server/world"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/pelletier/go-toml"
)

func main() {
	log := slog.Default()

	conf, err := readConfig(log)
	if err != nil {
		log.Error(err.Error())
		os.Exit(1)
	}
	srv := conf.New()
	srv.CloseOnProgramEnd()

	w := srv.World()
	l := world.NewLoader(srv.ViewDistance(), w, world.NopViewer{})
	spawn := w.Spawn()
	<-w.Exec(func(tx *world.Tx) {
		l.Move(tx, mgl64.Vec3{float64(spawn[0]), float64(spawn[1]), float64(spawn[2])})
	})
	log.Info("Keeping spawn chunks loaded.", "radius", srv.ViewDistance())
	for {
		<-w.Exec(func(tx *world.Tx) {
			l.Load(tx, 16)
		})
		time.Sleep(time.Second / 20)
	}
}

// readConfig reads the configuration from the config.toml file, or creates the
// file if it does not yet exist.
func readConfig(log *slog.Logger) (server.Config, error) {
	c := server.DefaultConfig()
	if data, err := os.ReadFile("config.toml"); err == nil {
		if err := toml.Unmarshal(data, &c); err != nil {
			return server.Config{}, fmt.Errorf("decode config: %v", err)
		}
	} else if os.IsNotExist(err) {
		data, err := toml.Marshal(c)
		if err != nil {
			return server.Config{}, fmt.Errorf("encode default config: %v", err)
		}
		if err := os.WriteFile("config.toml", data, 0644); err != nil {
			return server.Config{}, fmt.Errorf("create default config: %v", err)
		}
	} else {
		return server.Config{}, fmt.Errorf("read config: %v", err)
	}
	return c.Config(log)
}
