package generator

import (
	"math/rand/v2"

	"github.com/Mili-ssm/Pumpkin/server/world"
	"github.com/Mili-ssm/Pumpkin/server/world/chunk"
)

// smoothSize is the radius in columns of the gaussian kernel used to blend
// the elevation ranges of adjacent biomes, so that biome borders do not
// produce cliffs.
const smoothSize = 2

var gaussianKernel = [5][5]float64{
	{1.4715177646858, 2.141045714076, 2.4261226388505, 2.141045714076, 1.4715177646858},
	{2.141045714076, 3.1152031322856, 3.5299876103384, 3.1152031322856, 2.141045714076},
	{2.4261226388505, 3.5299876103384, 4, 3.5299876103384, 2.4261226388505},
	{2.141045714076, 3.1152031322856, 3.5299876103384, 3.1152031322856, 2.141045714076},
	{1.4715177646858, 2.141045714076, 2.4261226388505, 2.141045714076, 1.4715177646858},
}

// waterHeight is the sea level of the overworld.
const waterHeight = 62

// Overworld generates overworld-like terrain: noise-based elevation shaped
// by biomes, carved caves, biome-specific ground cover and features such as
// trees and ore veins. Generation is fully deterministic in the seed and
// chunk position, and every stage works only on the chunk being generated:
// features of neighbouring chunks that reach across the border are computed
// from the neighbour's own deterministic state and clipped to this chunk.
type Overworld struct {
	seed int64

	terrain  *octaveNoise
	caves    *octaveNoise
	selector *biomeSelector

	bedrock uint32
	stone   uint32
	air     uint32
	water   uint32
}

// NewOverworld creates an Overworld generator using the seed passed.
func NewOverworld(seed int64) *Overworld {
	return &Overworld{
		seed:     seed,
		terrain:  newOctaveNoise(seed, 4),
		caves:    newOctaveNoise(seed^0x7fb5d329728ea185, 2),
		selector: newBiomeSelector(seed),
		bedrock:  world.MustBlockRuntimeID("minecraft:bedrock"),
		stone:    world.MustBlockRuntimeID("minecraft:stone"),
		air:      world.MustBlockRuntimeID("minecraft:air"),
		water:    world.MustBlockRuntimeID("minecraft:water"),
	}
}

// GenerateChunk generates the chunk at the position passed in stages:
// terrain shape, caves, surface cover, biome assignment and population.
func (g *Overworld) GenerateChunk(pos world.ChunkPos, c *chunk.Chunk) {
	baseX, baseZ := int(pos[0])<<4, int(pos[1])<<4

	var heights [16][16]int
	var infos [16][16]biomeInfo

	for x := 0; x < 16; x++ {
		for z := 0; z < 16; z++ {
			wx, wz := baseX+x, baseZ+z
			info := g.selector.at(wx, wz)
			infos[x][z] = info
			heights[x][z] = g.heightAt(wx, wz)

			g.terrainColumn(c, uint8(x), uint8(z), heights[x][z])
			g.biomeColumn(c, uint8(x), uint8(z), info.biome.ID)
		}
	}

	g.carveCaves(c, baseX, baseZ, heights)

	for x := 0; x < 16; x++ {
		for z := 0; z < 16; z++ {
			g.surfaceColumn(c, uint8(x), uint8(z), heights[x][z], infos[x][z])
		}
	}

	g.populate(pos, c)
}

// heightAt returns the terrain height of the column at the world block
// coordinates passed. The height is pure in the seed and position, so any
// chunk can compute the height of any column, including columns of chunks
// that were never generated.
func (g *Overworld) heightAt(wx, wz int) int {
	var minSum, maxSum, weightSum float64
	for sx := -smoothSize; sx <= smoothSize; sx++ {
		for sz := -smoothSize; sz <= smoothSize; sz++ {
			weight := gaussianKernel[sx+smoothSize][sz+smoothSize]
			adjacent := g.selector.at(wx+sx*4, wz+sz*4)

			minSum += float64(adjacent.elevMin) * weight
			maxSum += float64(adjacent.elevMax) * weight
			weightSum += weight
		}
	}
	minE, maxE := minSum/weightSum, maxSum/weightSum

	n := g.terrain.at2(float64(wx)/128, float64(wz)/128)*0.5 + 0.5
	return int(minE + n*(maxE-minE))
}

// terrainColumn fills a single column with bedrock, stone and water up to
// sea level.
func (g *Overworld) terrainColumn(c *chunk.Chunk, x, z uint8, height int) {
	r := c.Range()
	c.SetBlock(x, int16(r.Min()), z, 0, g.bedrock)
	for y := r.Min() + 1; y <= height; y++ {
		c.SetBlock(x, int16(y), z, 0, g.stone)
	}
	for y := height + 1; y <= waterHeight; y++ {
		c.SetBlock(x, int16(y), z, 0, g.water)
	}
}

// biomeColumn assigns the biome ID passed to the full column.
func (g *Overworld) biomeColumn(c *chunk.Chunk, x, z uint8, id uint32) {
	r := c.Range()
	for y := r.Min(); y <= r.Max(); y++ {
		c.SetBiome(x, int16(y), z, id)
	}
}

// carveCaves removes stone where the 3D cave noise exceeds a threshold,
// below the local surface. Carving never opens into water and leaves the
// bedrock floor intact.
func (g *Overworld) carveCaves(c *chunk.Chunk, baseX, baseZ int, heights [16][16]int) {
	const (
		threshold = 0.42
		scale     = 1.0 / 48
	)
	r := c.Range()
	for x := 0; x < 16; x++ {
		for z := 0; z < 16; z++ {
			top := heights[x][z] - 8
			if top <= waterHeight-8 {
				// Too close to the ocean floor: carving here floods.
				continue
			}
			for y := r.Min() + 1; y < top; y++ {
				n := g.caves.at3(float64(baseX+x)*scale, float64(y)*scale*2, float64(baseZ+z)*scale)
				if n > threshold {
					c.SetBlock(uint8(x), int16(y), uint8(z), 0, g.air)
				}
			}
		}
	}
}

// surfaceColumn replaces the top stone layers of a column by the surface and
// filler blocks of its biome. Columns whose cave carving removed the surface
// keep their stone edges.
func (g *Overworld) surfaceColumn(c *chunk.Chunk, x, z uint8, height int, info biomeInfo) {
	surface := world.MustBlockRuntimeID(info.surface)
	filler := world.MustBlockRuntimeID(info.filler)

	if c.Block(x, int16(height), z, 0) != g.stone {
		return
	}
	c.SetBlock(x, int16(height), z, 0, surface)
	for y := height - 1; y >= height-3 && y > c.Range().Min(); y-- {
		if c.Block(x, int16(y), z, 0) == g.stone {
			c.SetBlock(x, int16(y), z, 0, filler)
		}
	}
}

// chunkRand returns a deterministic source of randomness for the feature
// placement of the chunk at the position passed.
func (g *Overworld) chunkRand(pos world.ChunkPos) *rand.Rand {
	seed1 := uint64(0xdeadbeef) ^ (uint64(uint32(pos[0])) << 8) ^ uint64(uint32(pos[1])) ^ uint64(g.seed)
	seed2 := uint64(g.seed)*0x9e3779b97f4a7c15 + uint64(uint32(pos[0]))*31 + uint64(uint32(pos[1]))
	return rand.New(rand.NewPCG(seed1, seed2))
}

// populate places the features of the chunk at the position passed and of
// its eight neighbours, clipped to the chunk being generated. Because the
// features of every chunk derive purely from the seed, a neighbour's
// features come out identical whether that neighbour was generated before,
// after or never: cross-border placements need no communication between
// chunks.
func (g *Overworld) populate(pos world.ChunkPos, c *chunk.Chunk) {
	target := newClippedChunk(pos, c)
	for dx := int32(-1); dx <= 1; dx++ {
		for dz := int32(-1); dz <= 1; dz++ {
			src := world.ChunkPos{pos[0] + dx, pos[1] + dz}
			r := g.chunkRand(src)
			for _, p := range g.populators(src, r) {
				p.populate(target, r)
			}
		}
	}
}

// populators returns the feature populators of the chunk at the position
// passed, in placement order. Ore veins come before vegetation so that a
// vein can never cut through a placed tree.
func (g *Overworld) populators(pos world.ChunkPos, r *rand.Rand) []populator {
	// The biome at the chunk centre decides which vegetation is placed, the
	// way the surrounding terrain does.
	info := g.selector.at(int(pos[0])<<4|7, int(pos[1])<<4|7)

	ps := []populator{oreVeins(g, pos)}
	if info.treeAttempts > 0 {
		ps = append(ps, &treePopulator{g: g, pos: pos, attempts: info.treeAttempts})
	}
	if info.grassAttempts > 0 {
		ps = append(ps, &grassPopulator{g: g, pos: pos, attempts: info.grassAttempts})
	}
	if info.cactusAttempts > 0 {
		ps = append(ps, &cactusPopulator{g: g, pos: pos, attempts: info.cactusAttempts})
	}
	return ps
}
