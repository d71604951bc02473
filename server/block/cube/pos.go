package cube

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Pos holds the position of a block. The position is represented of an array
// with an x, y and z value, where the y value is vertical.
type Pos [3]int

// X returns the X coordinate of the block position.
func (p Pos) X() int {
	return p[0]
}

// Y returns the Y coordinate of the block position.
func (p Pos) Y() int {
	return p[1]
}

// Z returns the Z coordinate of the block position.
func (p Pos) Z() int {
	return p[2]
}

// Add adds two block positions together and returns a new one with the sum of
// the two positions.
func (p Pos) Add(pos Pos) Pos {
	return Pos{p[0] + pos[0], p[1] + pos[1], p[2] + pos[2]}
}

// Side returns the position on the side of this block position, at a specific
// face.
func (p Pos) Side(face Face) Pos {
	switch face {
	case FaceUp:
		p[1]++
	case FaceDown:
		p[1]--
	case FaceNorth:
		p[2]--
	case FaceSouth:
		p[2]++
	case FaceWest:
		p[0]--
	case FaceEast:
		p[0]++
	}
	return p
}

// Vec3 returns a vec3 holding the same coordinates as the block position.
func (p Pos) Vec3() mgl64.Vec3 {
	return mgl64.Vec3{float64(p[0]), float64(p[1]), float64(p[2])}
}

// OutOfBounds checks if the position is out of bounds for the Range passed.
func (p Pos) OutOfBounds(r Range) bool {
	y := p[1]
	return y > r[1] || y < r[0]
}

// Neighbours calls the function passed for each of the block position's
// neighbours. If the Y value of a neighbour is out of bounds of the Range
// passed, the function will not be called for that position.
func (p Pos) Neighbours(f func(neighbour Pos), r Range) {
	for _, face := range faces {
		if s := p.Side(face); !s.OutOfBounds(r) {
			f(s)
		}
	}
}

// PosFromVec3 returns a block position from the Vec3 passed. The coordinates
// of the block position are those of the Vec3 floored.
func PosFromVec3(vec3 mgl64.Vec3) Pos {
	return Pos{
		int(math.Floor(vec3[0])),
		int(math.Floor(vec3[1])),
		int(math.Floor(vec3[2])),
	}
}
