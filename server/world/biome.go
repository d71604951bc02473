package world

import "sync"

// Biome is a region type of a world with a distinct climate. The temperature
// and rainfall of a biome decide which biome the generator assigns to a
// column.
type Biome struct {
	// ID is the numeric ID of the biome stored in chunk data.
	ID uint32
	// Name is the namespaced identifier of the biome.
	Name string
	// Temperature is the base temperature of the biome, roughly between -0.5
	// and 2.
	Temperature float64
	// Rainfall is the base rainfall of the biome, between 0 and 1.
	Rainfall float64
}

var (
	biomeMu      sync.RWMutex
	biomes       = map[uint32]Biome{}
	biomesByName = map[string]Biome{}
)

// RegisterBiome registers a biome so that chunks holding its ID decode to a
// known biome. Registering two biomes with the same ID panics.
func RegisterBiome(b Biome) {
	biomeMu.Lock()
	defer biomeMu.Unlock()

	if _, ok := biomes[b.ID]; ok {
		panic("world: biome ID registered twice")
	}
	biomes[b.ID] = b
	biomesByName[b.Name] = b
}

// BiomeByID looks up a biome by its numeric ID.
func BiomeByID(id uint32) (Biome, bool) {
	biomeMu.RLock()
	defer biomeMu.RUnlock()

	b, ok := biomes[id]
	return b, ok
}

// BiomeByName looks up a biome by its namespaced identifier.
func BiomeByName(name string) (Biome, bool) {
	biomeMu.RLock()
	defer biomeMu.RUnlock()

	b, ok := biomesByName[name]
	return b, ok
}

func init() {
	for _, b := range []Biome{
		{ID: 0, Name: "minecraft:ocean", Temperature: 0.5, Rainfall: 0.5},
		{ID: 1, Name: "minecraft:plains", Temperature: 0.8, Rainfall: 0.4},
		{ID: 2, Name: "minecraft:desert", Temperature: 2, Rainfall: 0},
		{ID: 3, Name: "minecraft:mountains", Temperature: 0.2, Rainfall: 0.3},
		{ID: 4, Name: "minecraft:forest", Temperature: 0.7, Rainfall: 0.8},
		{ID: 5, Name: "minecraft:taiga", Temperature: 0.25, Rainfall: 0.8},
		{ID: 6, Name: "minecraft:swamp", Temperature: 0.8, Rainfall: 0.9},
		{ID: 7, Name: "minecraft:river", Temperature: 0.5, Rainfall: 0.5},
		{ID: 12, Name: "minecraft:snowy_plains", Temperature: 0, Rainfall: 0.5},
		{ID: 16, Name: "minecraft:beach", Temperature: 0.8, Rainfall: 0.4},
		{ID: 21, Name: "minecraft:jungle", Temperature: 0.95, Rainfall: 0.9},
		{ID: 35, Name: "minecraft:savanna", Temperature: 1.2, Rainfall: 0},
	} {
		RegisterBiome(b)
	}
}
