package gpu

import "github.com/Faultbox/midgard-fx/pkg/math"

// TileSize is the edge of the square workgroup every compute pass is
// written for.
const TileSize = 16

// GroupCount returns the number of workgroups covering a width x height
// image with TileSize x TileSize tiles.
func GroupCount(width, height int) math.UVec3 {
	return math.UVec3{
		X: uint32(math.DivCeil(width, TileSize)),
		Y: uint32(math.DivCeil(height, TileSize)),
		Z: 1,
	}
}
