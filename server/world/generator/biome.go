package generator

import (
	"math"

	"github.com/Mili-ssm/Pumpkin/server/world"
)

// biomeInfo couples a registered biome with the terrain parameters the
// generator derives from it.
type biomeInfo struct {
	biome world.Biome
	// elevMin and elevMax bound the terrain height of columns in this biome.
	elevMin, elevMax int
	// surface is the block forming the top layer of the terrain, filler the
	// three layers below it.
	surface, filler string
	// treeAttempts, grassAttempts and cactusAttempts are the number of
	// feature placements tried per chunk of this biome.
	treeAttempts, grassAttempts, cactusAttempts int
}

// biomeSelector assigns a biome to every column of the world based on three
// low-frequency noise fields: land shape, temperature and rainfall. The
// selection is pure: the same column always maps to the same biome.
type biomeSelector struct {
	land *octaveNoise
	temp *octaveNoise
	rain *octaveNoise

	byName map[string]biomeInfo
}

// newBiomeSelector creates a biomeSelector seeded from the seed passed.
func newBiomeSelector(seed int64) *biomeSelector {
	s := &biomeSelector{
		land:   newOctaveNoise(seed^0x1a2b3c4d, 3),
		temp:   newOctaveNoise(seed^0x5e6f7081, 2),
		rain:   newOctaveNoise(seed^0x23344556, 2),
		byName: make(map[string]biomeInfo),
	}
	for _, info := range []biomeInfo{
		{biome: mustBiome("minecraft:ocean"), elevMin: 30, elevMax: 58, surface: "minecraft:gravel", filler: "minecraft:gravel"},
		{biome: mustBiome("minecraft:river"), elevMin: 56, elevMax: 60, surface: "minecraft:sand", filler: "minecraft:sand"},
		{biome: mustBiome("minecraft:beach"), elevMin: 62, elevMax: 66, surface: "minecraft:sand", filler: "minecraft:sandstone"},
		{biome: mustBiome("minecraft:plains"), elevMin: 64, elevMax: 74, surface: "minecraft:grass_block", filler: "minecraft:dirt", treeAttempts: 1, grassAttempts: 24},
		{biome: mustBiome("minecraft:forest"), elevMin: 64, elevMax: 80, surface: "minecraft:grass_block", filler: "minecraft:dirt", treeAttempts: 6, grassAttempts: 8},
		{biome: mustBiome("minecraft:jungle"), elevMin: 64, elevMax: 82, surface: "minecraft:grass_block", filler: "minecraft:dirt", treeAttempts: 9, grassAttempts: 16},
		{biome: mustBiome("minecraft:taiga"), elevMin: 66, elevMax: 88, surface: "minecraft:grass_block", filler: "minecraft:dirt", treeAttempts: 5},
		{biome: mustBiome("minecraft:swamp"), elevMin: 60, elevMax: 66, surface: "minecraft:grass_block", filler: "minecraft:dirt", treeAttempts: 2, grassAttempts: 12},
		{biome: mustBiome("minecraft:desert"), elevMin: 64, elevMax: 74, surface: "minecraft:sand", filler: "minecraft:sandstone", cactusAttempts: 3},
		{biome: mustBiome("minecraft:savanna"), elevMin: 64, elevMax: 78, surface: "minecraft:grass_block", filler: "minecraft:dirt", treeAttempts: 1, grassAttempts: 20},
		{biome: mustBiome("minecraft:snowy_plains"), elevMin: 64, elevMax: 76, surface: "minecraft:snow_block", filler: "minecraft:dirt"},
		{biome: mustBiome("minecraft:mountains"), elevMin: 72, elevMax: 120, surface: "minecraft:stone", filler: "minecraft:stone"},
	} {
		s.byName[info.biome.Name] = info
	}
	return s
}

// mustBiome resolves a registered biome by name, panicking when absent. The
// selector only references the base vocabulary registered at init time.
func mustBiome(name string) world.Biome {
	b, ok := world.BiomeByName(name)
	if !ok {
		panic("generator: no biome registered under name " + name)
	}
	return b
}

// at returns the biome of the column at the block coordinates passed.
func (s *biomeSelector) at(x, z int) biomeInfo {
	const scale = 1.0 / 512

	land := s.land.at2(float64(x)*scale, float64(z)*scale)
	if land < -0.22 {
		return s.byName["minecraft:ocean"]
	}
	if math.Abs(land) < 0.016 {
		return s.byName["minecraft:river"]
	}
	if land < -0.18 {
		return s.byName["minecraft:beach"]
	}
	if land > 0.55 {
		return s.byName["minecraft:mountains"]
	}

	temp := s.temp.at2(float64(x)*scale, float64(z)*scale)*1.25 + 0.75
	rain := s.rain.at2(float64(x)*scale, float64(z)*scale)*0.5 + 0.5

	switch {
	case temp < 0.15:
		if rain > 0.5 {
			return s.byName["minecraft:taiga"]
		}
		return s.byName["minecraft:snowy_plains"]
	case temp > 1.4:
		if rain < 0.25 {
			return s.byName["minecraft:desert"]
		}
		return s.byName["minecraft:savanna"]
	case rain > 0.85:
		if temp > 0.9 {
			return s.byName["minecraft:jungle"]
		}
		return s.byName["minecraft:swamp"]
	case rain > 0.55:
		return s.byName["minecraft:forest"]
	default:
		return s.byName["minecraft:plains"]
	}
}
