package chunk

import (
	"github.com/Mili-ssm/Pumpkin/server/block/cube"
)

// Area represents a square area of w by w chunks that light can be
// propagated across as a single unit. Cross-chunk propagation always happens
// through an Area so that no chunk is ever mutated outside of it.
type Area struct {
	baseX, baseZ int
	c            []*Chunk
	w            int
	r            cube.Range
}

// NewLightArea creates an Area from the chunks passed. The w parameter is
// the width of the area in chunks: len(c) must be equal to w*w. baseX and
// baseZ are the chunk coordinates of the lowest corner chunk of the area.
func NewLightArea(c []*Chunk, baseX, baseZ, w int) *Area {
	if len(c) != w*w {
		panic("area must be square")
	}
	return &Area{c: c, w: w, baseX: baseX << 4, baseZ: baseZ << 4, r: c[0].Range()}
}

// FillLight executes the light 'filling' stage: Both block light and sky
// light sources in all chunks of the Area are seeded and propagated until a
// fixed point is reached. Any previous light data is discarded first, so
// FillLight may also be used to re-light an area after block changes.
func FillLight(a *Area) {
	a.clearLight()
	queue := &lightQueue{}
	a.insertBlockLightNodes(queue)
	a.propagate(queue)
	a.insertSkyLightNodes(queue)
	a.propagate(queue)
}

// SpreadLight executes the light 'spreading' stage: Light values at the
// borders of all chunks in the Area are re-offered to their neighbours
// within the area, so that light crossing chunk boundaries settles to the
// same fixed point it would have reached in a single chunk.
func SpreadLight(a *Area) {
	queue := &lightQueue{}
	a.insertLightSpreadingNodes(queue, BlockLight)
	a.insertLightSpreadingNodes(queue, SkyLight)
	a.propagate(queue)
}

// clearLight wipes all light data of the chunks in the Area.
func (a *Area) clearLight() {
	for _, c := range a.c {
		for _, sub := range c.sub {
			sub.ClearLight()
		}
	}
}

// insertBlockLightNodes inserts block light nodes into the queue passed for
// every light emitting block found in the Area. Sub chunks whose palettes
// hold no light emitting blocks are skipped entirely.
func (a *Area) insertBlockLightNodes(queue *lightQueue) {
	a.eachChunk(func(c *Chunk, baseX, baseZ int) {
		for index, sub := range c.sub {
			if !anyBlockLight(sub) {
				continue
			}
			baseY := c.SubY(int16(index))
			for x := uint8(0); x < 16; x++ {
				for z := uint8(0); z < 16; z++ {
					for y := uint8(0); y < 16; y++ {
						rid := sub.Block(x, y, z, 0)
						if level := emissionLevel(rid); level > 0 {
							pos := lightNode{x: baseX + int(x), y: baseY + int16(y), z: baseZ + int(z), level: level, lt: BlockLight}
							a.setLight(pos.x, pos.y, pos.z, BlockLight, level)
							queue.push(pos)
						}
					}
				}
			}
		}
	})
}

// anyBlockLight checks if there are any blocks in the SubChunk passed that
// emit light.
func anyBlockLight(sub *SubChunk) bool {
	for _, layer := range sub.storages {
		for _, rid := range layer.palette.values {
			if emissionLevel(rid) > 0 {
				return true
			}
		}
	}
	return false
}

// insertSkyLightNodes inserts sky light nodes into the queue passed. Sky
// light is seeded at full level at the top of each column and attenuated by
// the filtering level of each block traversed downwards. Nodes are queued
// where the light may still spread sideways, which is the case wherever a
// neighbouring column reaches higher than the current one.
func (a *Area) insertSkyLightNodes(queue *lightQueue) {
	a.eachChunk(func(c *Chunk, baseX, baseZ int) {
		m := c.HeightMap()
		for x := uint8(0); x < 16; x++ {
			for z := uint8(0); z < 16; z++ {
				height := m.At(x, z)
				spreadBelow := a.highestNeighbour(baseX+int(x), baseZ+int(z)) + 1

				level := uint8(15)
				for y := int16(a.r[1]); y >= int16(a.r[0]); y-- {
					if y > height {
						// Above the highest light blocker, the column is in
						// direct sunlight.
						c.SubChunk(y).SetSkyLight(x, uint8(y)&15, z, 15)
						if y <= spreadBelow {
							queue.push(lightNode{x: baseX + int(x), y: y, z: baseZ + int(z), level: 15, lt: SkyLight})
						}
						continue
					}
					filter := filterLevel(c.Block(x, y, z, 0))
					if filter >= level {
						break
					}
					level -= filter
					c.SubChunk(y).SetSkyLight(x, uint8(y)&15, z, level)
					queue.push(lightNode{x: baseX + int(x), y: y, z: baseZ + int(z), level: level, lt: SkyLight})
				}
			}
		}
	})
}

// insertLightSpreadingNodes queues nodes for all border cells of the chunks
// in the Area that hold a light value that could travel into the adjacent
// chunk.
func (a *Area) insertLightSpreadingNodes(queue *lightQueue, lt lightType) {
	a.eachChunk(func(c *Chunk, baseX, baseZ int) {
		for x := uint8(0); x < 16; x++ {
			for z := uint8(0); z < 16; z++ {
				if x != 0 && x != 15 && z != 0 && z != 15 {
					continue
				}
				for y := int16(a.r[0]); y <= int16(a.r[1]); y++ {
					sub := c.SubChunk(y)
					var level uint8
					if lt == SkyLight {
						level = sub.SkyLight(x, uint8(y)&15, z)
					} else {
						level = sub.BlockLight(x, uint8(y)&15, z)
					}
					if level > 1 {
						queue.push(lightNode{x: baseX + int(x), y: y, z: baseZ + int(z), level: level, lt: lt})
					}
				}
			}
		}
	})
}

// propagate relaxes the queue until it is empty: Every node popped offers an
// attenuated light value to its six neighbours and neighbours whose stored
// value would increase are updated and queued in turn.
func (a *Area) propagate(queue *lightQueue) {
	for {
		n, ok := queue.pop()
		if !ok {
			return
		}
		for _, face := range cube.Faces() {
			pos := cube.Pos{n.x, int(n.y), n.z}.Side(face)
			x, y, z := pos[0], int16(pos[1]), pos[2]
			if y < int16(a.r[0]) || y > int16(a.r[1]) || !a.contains(x, z) {
				continue
			}
			filter := filterLevel(a.block(x, y, z))
			if filter+1 >= n.level {
				// All light is absorbed by the neighbour.
				continue
			}
			target := n.level - filter - 1
			if a.light(x, y, z, n.lt) >= target {
				continue
			}
			a.setLight(x, y, z, n.lt, target)
			queue.push(lightNode{x: x, y: y, z: z, level: target, lt: n.lt})
		}
	}
}

// eachChunk calls the function passed for every chunk in the Area with the
// base block coordinates of that chunk.
func (a *Area) eachChunk(f func(c *Chunk, baseX, baseZ int)) {
	for i, c := range a.c {
		cx, cz := i%a.w, i/a.w
		f(c, a.baseX+(cx<<4), a.baseZ+(cz<<4))
	}
}

// contains checks if the block x and z passed fall within the Area.
func (a *Area) contains(x, z int) bool {
	return x >= a.baseX && z >= a.baseZ && x < a.baseX+(a.w<<4) && z < a.baseZ+(a.w<<4)
}

// chunkAt returns the chunk in the Area that holds the block x and z passed.
func (a *Area) chunkAt(x, z int) *Chunk {
	cx, cz := (x-a.baseX)>>4, (z-a.baseZ)>>4
	return a.c[cz*a.w+cx]
}

// block returns the runtime ID of the block at the first layer of the
// position passed.
func (a *Area) block(x int, y int16, z int) uint32 {
	return a.chunkAt(x, z).Block(uint8(x)&15, y, uint8(z)&15, 0)
}

// light returns the light value of the given type at the position passed.
func (a *Area) light(x int, y int16, z int, lt lightType) uint8 {
	sub := a.chunkAt(x, z).SubChunk(y)
	if lt == SkyLight {
		return sub.SkyLight(uint8(x)&15, uint8(y)&15, uint8(z)&15)
	}
	return sub.BlockLight(uint8(x)&15, uint8(y)&15, uint8(z)&15)
}

// setLight updates the light value of the given type at the position passed.
func (a *Area) setLight(x int, y int16, z int, lt lightType, level uint8) {
	sub := a.chunkAt(x, z).SubChunk(y)
	if lt == SkyLight {
		sub.SetSkyLight(uint8(x)&15, uint8(y)&15, uint8(z)&15, level)
	} else {
		sub.SetBlockLight(uint8(x)&15, uint8(y)&15, uint8(z)&15, level)
	}
}

// highestNeighbour returns the Y value of the highest light blocking block
// in the four columns directly neighbouring the column at the block x and z
// passed. Columns outside of the Area are ignored.
func (a *Area) highestNeighbour(x, z int) int16 {
	highest := int16(a.r[0])
	for _, d := range [4][2]int{{-1, 0}, {1, 0}, {0, -1}, {0, 1}} {
		nx, nz := x+d[0], z+d[1]
		if !a.contains(nx, nz) {
			continue
		}
		if h := a.chunkAt(nx, nz).HeightMap().At(uint8(nx)&15, uint8(nz)&15); h > highest {
			highest = h
		}
	}
	return highest
}
