package generator

import (
	"math/rand/v2"

	"github.com/Mili-ssm/Pumpkin/server/world"
	"github.com/Mili-ssm/Pumpkin/server/world/chunk"
)

// clippedChunk exposes a single chunk under world block coordinates,
// silently dropping writes that fall outside of it. Populators place
// features in world coordinates; the clipping confines their effect to the
// chunk being generated.
type clippedChunk struct {
	baseX, baseZ int
	c            *chunk.Chunk
}

func newClippedChunk(pos world.ChunkPos, c *chunk.Chunk) *clippedChunk {
	return &clippedChunk{baseX: int(pos[0]) << 4, baseZ: int(pos[1]) << 4, c: c}
}

// set writes a block at world coordinates if the position is inside the
// chunk.
func (cc *clippedChunk) set(wx, y, wz int, rid uint32) {
	x, z := wx-cc.baseX, wz-cc.baseZ
	if x < 0 || x > 15 || z < 0 || z > 15 || y < cc.c.Range().Min() || y > cc.c.Range().Max() {
		return
	}
	cc.c.SetBlock(uint8(x), int16(y), uint8(z), 0, rid)
}

// at reads a block at world coordinates, or air when outside the chunk.
func (cc *clippedChunk) at(wx, y, wz int) (uint32, bool) {
	x, z := wx-cc.baseX, wz-cc.baseZ
	if x < 0 || x > 15 || z < 0 || z > 15 || y < cc.c.Range().Min() || y > cc.c.Range().Max() {
		return 0, false
	}
	return cc.c.Block(uint8(x), int16(y), uint8(z), 0), true
}

// populator places one kind of feature for a single source chunk.
// Implementations must draw from the rand passed in an order that does not
// depend on the target chunk, so that a source chunk produces identical
// features no matter which of its nine surrounding chunks is being
// generated.
type populator interface {
	populate(target *clippedChunk, r *rand.Rand)
}

// oreType describes a kind of ore vein placed below the surface.
type oreType struct {
	block    string
	veins    int
	veinSize int
	minY     int
	maxY     int
}

// overworldOres is the ore distribution of the overworld.
var overworldOres = []oreType{
	{block: "minecraft:coal_ore", veins: 20, veinSize: 16, minY: 0, maxY: 128},
	{block: "minecraft:iron_ore", veins: 20, veinSize: 8, minY: 0, maxY: 64},
	{block: "minecraft:gold_ore", veins: 2, veinSize: 8, minY: 0, maxY: 32},
	{block: "minecraft:diamond_ore", veins: 1, veinSize: 7, minY: 0, maxY: 16},
	{block: "minecraft:dirt", veins: 20, veinSize: 32, minY: 0, maxY: 128},
	{block: "minecraft:gravel", veins: 10, veinSize: 16, minY: 0, maxY: 128},
}

// orePopulator places the ore veins of one source chunk.
type orePopulator struct {
	g   *Overworld
	pos world.ChunkPos
}

func oreVeins(g *Overworld, pos world.ChunkPos) *orePopulator {
	return &orePopulator{g: g, pos: pos}
}

func (o *orePopulator) populate(target *clippedChunk, r *rand.Rand) {
	baseX, baseZ := int(o.pos[0])<<4, int(o.pos[1])<<4
	for _, t := range overworldOres {
		rid := world.MustBlockRuntimeID(t.block)
		for range t.veins {
			wx := baseX + r.IntN(16)
			wz := baseZ + r.IntN(16)
			y := t.minY + r.IntN(t.maxY-t.minY)
			o.vein(target, r, wx, y, wz, t.veinSize, rid)
		}
	}
}

// vein grows a blob of up to size ore blocks by a random walk from the
// starting position, replacing only stone.
func (o *orePopulator) vein(target *clippedChunk, r *rand.Rand, wx, y, wz, size int, rid uint32) {
	for range size {
		if cur, ok := target.at(wx, y, wz); ok && cur == o.g.stone {
			target.set(wx, y, wz, rid)
		}
		switch r.IntN(6) {
		case 0:
			wx++
		case 1:
			wx--
		case 2:
			y++
		case 3:
			y = max(y-1, 1)
		case 4:
			wz++
		case 5:
			wz--
		}
	}
}

// treePopulator places oak trees on the surface of one source chunk.
type treePopulator struct {
	g        *Overworld
	pos      world.ChunkPos
	attempts int
}

func (t *treePopulator) populate(target *clippedChunk, r *rand.Rand) {
	log := world.MustBlockRuntimeID("minecraft:oak_log")
	leaves := world.MustBlockRuntimeID("minecraft:oak_leaves")
	baseX, baseZ := int(t.pos[0])<<4, int(t.pos[1])<<4

	for range t.attempts {
		wx := baseX + r.IntN(16)
		wz := baseZ + r.IntN(16)
		height := 4 + r.IntN(3)

		// Ground level comes from the pure height function rather than from
		// the target chunk, so the same draws happen for every target.
		ground := t.g.heightAt(wx, wz)
		if ground <= waterHeight {
			continue
		}
		base := ground + 1

		for y := base; y < base+height; y++ {
			target.set(wx, y, wz, log)
		}
		// Leaf blob: two full layers around the top of the trunk, then a
		// cross on top.
		for dy := height - 3; dy <= height-2; dy++ {
			for dx := -2; dx <= 2; dx++ {
				for dz := -2; dz <= 2; dz++ {
					if dx == 0 && dz == 0 {
						continue
					}
					target.set(wx+dx, base+dy, wz+dz, leaves)
				}
			}
		}
		for dx := -1; dx <= 1; dx++ {
			for dz := -1; dz <= 1; dz++ {
				if dx != 0 && dz != 0 {
					continue
				}
				target.set(wx+dx, base+height-1, wz+dz, leaves)
			}
		}
		target.set(wx, base+height, wz, leaves)
	}
}

// grassPopulator scatters short grass and the occasional flower on grass
// blocks of one source chunk.
type grassPopulator struct {
	g        *Overworld
	pos      world.ChunkPos
	attempts int
}

func (p *grassPopulator) populate(target *clippedChunk, r *rand.Rand) {
	grass := world.MustBlockRuntimeID("minecraft:short_grass")
	flowers := []uint32{
		world.MustBlockRuntimeID("minecraft:dandelion"),
		world.MustBlockRuntimeID("minecraft:poppy"),
	}
	grassBlock := world.MustBlockRuntimeID("minecraft:grass_block")
	baseX, baseZ := int(p.pos[0])<<4, int(p.pos[1])<<4

	for range p.attempts {
		wx := baseX + r.IntN(16)
		wz := baseZ + r.IntN(16)
		flower := r.IntN(16) == 0
		pick := r.IntN(len(flowers))

		ground := p.g.heightAt(wx, wz)
		if cur, ok := target.at(wx, ground, wz); !ok || cur != grassBlock {
			continue
		}
		if cur, ok := target.at(wx, ground+1, wz); ok && cur != p.g.air {
			continue
		}
		if flower {
			target.set(wx, ground+1, wz, flowers[pick])
		} else {
			target.set(wx, ground+1, wz, grass)
		}
	}
}

// cactusPopulator places cacti on sand in desert chunks.
type cactusPopulator struct {
	g        *Overworld
	pos      world.ChunkPos
	attempts int
}

func (p *cactusPopulator) populate(target *clippedChunk, r *rand.Rand) {
	cactus := world.MustBlockRuntimeID("minecraft:cactus")
	sand := world.MustBlockRuntimeID("minecraft:sand")
	baseX, baseZ := int(p.pos[0])<<4, int(p.pos[1])<<4

	for range p.attempts {
		wx := baseX + r.IntN(16)
		wz := baseZ + r.IntN(16)
		height := 1 + r.IntN(3)

		ground := p.g.heightAt(wx, wz)
		if cur, ok := target.at(wx, ground, wz); !ok || cur != sand {
			continue
		}
		for y := ground + 1; y <= ground+height; y++ {
			target.set(wx, y, wz, cactus)
		}
	}
}
