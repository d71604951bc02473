package world

import (
	"sync"

	"github.com/Mili-ssm/Pumpkin/server/block/cube"
)

// Settings holds the settings of a World. These are typically saved to and
// loaded from the Provider assigned to the World.
type Settings struct {
	sync.Mutex

	// Name is the display name of the World.
	Name string
	// Spawn is the spawn position of the World.
	Spawn cube.Pos
	// Time is the current time of day of the World, in ticks.
	Time int64
	// TimeCycle specifies if the time should advance every tick.
	TimeCycle bool
	// CurrentTick is the total amount of ticks that have passed in the World.
	CurrentTick int64
	// Seed is the seed used to generate the World's terrain.
	Seed int64
}

// defaultSettings returns the default Settings for a new World.
func defaultSettings() *Settings {
	return &Settings{Name: "World", TimeCycle: true}
}
