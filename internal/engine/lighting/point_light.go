// Package lighting provides point lights and their constant-buffer encoding.
package lighting

import (
	"github.com/Faultbox/midgard-fx/pkg/math"
)

// MaxPointLights is the maximum number of point lights supported in shaders.
const MaxPointLights = 32

// PointLight represents a point light source for GPU upload.
type PointLight struct {
	Position math.Vec3 // World position
	Color    math.Vec3 // RGB color (0-1 range)
}

// NewPointLight creates a light, clamping color channels to 0-1.
func NewPointLight(position, color math.Vec3) PointLight {
	return PointLight{
		Position: position,
		Color: math.Vec3{
			X: clamp01(color.X),
			Y: clamp01(color.Y),
			Z: clamp01(color.Z),
		},
	}
}

// PositionVec4 returns the position as a float4 with w = 0.
func (l PointLight) PositionVec4() math.Vec4 { return math.FromVec3(l.Position, 0) }

// ColorVec4 returns the color as a float4 with w = 0.
func (l PointLight) ColorVec4() math.Vec4 { return math.FromVec3(l.Color, 0) }

// LightArray is the std140 light block shared by the multi-light shaders.
// Only the first Count slots are meaningful; the rest are always zero.
type LightArray struct {
	Count     uint32
	_         [3]uint32
	Positions [MaxPointLights]math.Vec4
	Colors    [MaxPointLights]math.Vec4
}

// Set overwrites the whole array from lights, truncating to MaxPointLights
// and zeroing every unused slot. It returns the encoded count.
func (a *LightArray) Set(lights []PointLight) int {
	count := len(lights)
	if count > MaxPointLights {
		count = MaxPointLights
	}

	for i := 0; i < count; i++ {
		a.Positions[i] = lights[i].PositionVec4()
		a.Colors[i] = lights[i].ColorVec4()
	}
	for i := count; i < MaxPointLights; i++ {
		a.Positions[i] = math.Vec4Zero
		a.Colors[i] = math.Vec4Zero
	}
	a.Count = uint32(count)
	return count
}

// EncodeLightArray returns a LightArray holding at most MaxPointLights of
// lights.
func EncodeLightArray(lights []PointLight) LightArray {
	var a LightArray
	a.Set(lights)
	return a
}

func clamp01(v float32) float32 {
	if v > 1 {
		return 1
	}
	if v < 0 {
		return 0
	}
	return v
}
