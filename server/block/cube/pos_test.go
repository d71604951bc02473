package cube

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestPosFromVec3(t *testing.T) {
	cases := []struct {
		vec mgl64.Vec3
		pos Pos
	}{
		{mgl64.Vec3{0, 0, 0}, Pos{0, 0, 0}},
		{mgl64.Vec3{1.9, 2.5, 3.1}, Pos{1, 2, 3}},
		{mgl64.Vec3{-0.1, -1.5, -2.9}, Pos{-1, -2, -3}},
		{mgl64.Vec3{16, -16.0001, 0.9999}, Pos{16, -17, 0}},
	}
	for _, c := range cases {
		if got := PosFromVec3(c.vec); got != c.pos {
			t.Errorf("PosFromVec3(%v) = %v, expected %v", c.vec, got, c.pos)
		}
	}
}
