package mesh

import "github.com/Faultbox/midgard-fx/pkg/math"

// NewRectangle returns a CPU-resident quad covering clip space [-1,1]^2 at
// z = 0, facing -Z, with one texcoord set mapping the top-left corner to
// (0,0).
func NewRectangle() *Mesh {
	positions := []math.Vec3{
		{X: -1, Y: -1, Z: 0},
		{X: -1, Y: 1, Z: 0},
		{X: 1, Y: 1, Z: 0},
		{X: 1, Y: -1, Z: 0},
	}
	normals := []math.Vec3{
		{X: 0, Y: 0, Z: -1},
		{X: 0, Y: 0, Z: -1},
		{X: 0, Y: 0, Z: -1},
		{X: 0, Y: 0, Z: -1},
	}
	uv := []math.Vec2{
		{X: 0, Y: 1},
		{X: 0, Y: 0},
		{X: 1, Y: 0},
		{X: 1, Y: 1},
	}
	triangles := []math.UVec3{
		{X: 0, Y: 1, Z: 2},
		{X: 0, Y: 2, Z: 3},
	}

	m := NewFromData(positions, normals, [][]math.Vec2{uv}, triangles)
	m.Source.Path = "rectangle"
	return m
}
