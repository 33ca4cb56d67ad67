package math

// Vec4 is a 4-component vector laid out like an HLSL/GLSL float4 / vec4,
// which is the unit of std140 constant-buffer arrays.
type Vec4 struct {
	X, Y, Z, W float32
}

// Vec4Zero is the zero vector.
var Vec4Zero = Vec4{}

// FromVec3 extends v with the given w component.
func FromVec3(v Vec3, w float32) Vec4 {
	return Vec4{v.X, v.Y, v.Z, w}
}

// XYZ drops the w component.
func (v Vec4) XYZ() Vec3 {
	return Vec3{v.X, v.Y, v.Z}
}

// UVec3 is a triple of unsigned integers: a triangle's vertex indices or a
// compute dispatch group count.
type UVec3 struct {
	X, Y, Z uint32
}

// UVec3Size is the size in bytes of a packed UVec3.
const UVec3Size = 12

// Vec2Size is the size in bytes of a packed Vec2.
const Vec2Size = 8

// DivCeil returns ceil(n / d) for positive d.
func DivCeil(n, d int) int {
	return (n + d - 1) / d
}
