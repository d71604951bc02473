package world

import (
	"fmt"
	"math"

	"github.com/Mili-ssm/Pumpkin/server/block/cube"
	"github.com/go-gl/mathgl/mgl64"
)

// ChunkPos holds the position of a chunk. The type is provided as a utility
// struct for keeping track of a chunk's position. Chunks do not themselves
// keep track of that. Chunk positions are different from block positions in
// the way that increasing the X/Z by one means increasing the absolute value
// on the X/Z axis in terms of blocks by 16.
type ChunkPos [2]int32

// String implements fmt.Stringer.
func (p ChunkPos) String() string {
	return fmt.Sprintf("(%v, %v)", p[0], p[1])
}

// X returns the X coordinate of the chunk position.
func (p ChunkPos) X() int32 {
	return p[0]
}

// Z returns the Z coordinate of the chunk position.
func (p ChunkPos) Z() int32 {
	return p[1]
}

// distSq returns the squared distance in chunks between two chunk positions.
func (p ChunkPos) distSq(other ChunkPos) int64 {
	dx, dz := int64(p[0]-other[0]), int64(p[1]-other[1])
	return dx*dx + dz*dz
}

// chunkPosFromVec3 returns a chunk position from the Vec3 passed. The
// coordinates of the chunk position are those of the Vec3 divided by 16,
// then floored.
func chunkPosFromVec3(vec3 mgl64.Vec3) ChunkPos {
	return ChunkPos{
		int32(math.Floor(vec3[0])) >> 4,
		int32(math.Floor(vec3[2])) >> 4,
	}
}

// chunkPosFromBlockPos returns the position of the chunk a block position is
// in.
func chunkPosFromBlockPos(p cube.Pos) ChunkPos {
	return ChunkPos{int32(p[0] >> 4), int32(p[2] >> 4)}
}
