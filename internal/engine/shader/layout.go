// Package shader implements the compile / bind / unbind protocol shared by
// every GPU program the passes use.
//
// A Stage is one compiled program plus the slot contract described by its
// Layout: how many shader-resource inputs it reads (slots 0..n-1, in
// declaration order) and the size of its constant block (slot 0). Variants
// differ only in their Layout, so there is a single Stage type.
package shader

import (
	"encoding/binary"

	"github.com/Faultbox/midgard-fx/internal/engine/gpu"
	"github.com/Faultbox/midgard-fx/internal/engine/lighting"
	"github.com/Faultbox/midgard-fx/pkg/math"
)

// Layout is the binding contract of a stage.
type Layout struct {
	Name         string
	Kind         gpu.ShaderKind
	Inputs       int
	ConstantSize int
}

// Constant blocks. Field order and sizes follow std140: every member is a
// vec4 or a 16-byte aligned array of vec4.

// BlurConstants is the constant block of the blur stages.
type BlurConstants struct {
	CameraPosition math.Vec4
	LightPosition  math.Vec4
}

// ShadingConstants is the constant block of the single-light shading stage.
type ShadingConstants struct {
	CameraPosition math.Vec4
	LightPosition  math.Vec4
	LightColor     math.Vec4
}

// RaysConstants is the constant block of the single-light ray shading stage.
type RaysConstants struct {
	LightPosition math.Vec4
	LightColor    math.Vec4
}

// LightArrayConstants is the constant block of the shadowless shading stage.
type LightArrayConstants struct {
	CameraPosition math.Vec4
	Lights         lighting.LightArray
}

// RaysLightArrayConstants is the constant block of the shadowless ray
// shading stage.
type RaysLightArrayConstants struct {
	Lights lighting.LightArray
}

// Predefined layouts.
var (
	// BlurShadows reads position, normal, hard shadow, soft shadow and
	// distance to occluder. Used by the combined, horizontal and vertical
	// blur programs.
	BlurShadows = Layout{
		Name:         "blur_shadows",
		Kind:         gpu.KindCompute,
		Inputs:       5,
		ConstantSize: binary.Size(BlurConstants{}),
	}

	// ShadingEmissive reads emissive color only.
	ShadingEmissive = Layout{
		Name:   "shading_emissive",
		Kind:   gpu.KindCompute,
		Inputs: 1,
	}

	// Shading reads position, albedo, metalness, roughness, normal and
	// shadow for one light.
	Shading = Layout{
		Name:         "shading",
		Kind:         gpu.KindCompute,
		Inputs:       6,
		ConstantSize: binary.Size(ShadingConstants{}),
	}

	// ShadingRays reads ray origin, hit position, albedo, metalness,
	// roughness, normal and shadow for one light.
	ShadingRays = Layout{
		Name:         "shading_rays",
		Kind:         gpu.KindCompute,
		Inputs:       7,
		ConstantSize: binary.Size(RaysConstants{}),
	}

	// ShadingNoShadows reads position, albedo, metalness, roughness, normal
	// and ambient occlusion for up to lighting.MaxPointLights lights.
	ShadingNoShadows = Layout{
		Name:         "shading_no_shadows",
		Kind:         gpu.KindCompute,
		Inputs:       6,
		ConstantSize: binary.Size(LightArrayConstants{}),
	}

	// ShadingRaysNoShadows reads ray origin, hit position, albedo,
	// metalness, roughness and normal for up to lighting.MaxPointLights
	// lights.
	ShadingRaysNoShadows = Layout{
		Name:         "shading_rays_no_shadows",
		Kind:         gpu.KindCompute,
		Inputs:       6,
		ConstantSize: binary.Size(RaysLightArrayConstants{}),
	}

	MipmapMinValueVertex = Layout{
		Name: "mipmap_min_value",
		Kind: gpu.KindVertex,
	}

	// MipmapMinValueFragment reads the source mip level.
	MipmapMinValueFragment = Layout{
		Name:   "mipmap_min_value",
		Kind:   gpu.KindFragment,
		Inputs: 1,
	}

	// EdgeDistance reads the distance-to-edge texture.
	EdgeDistance = Layout{
		Name:   "edge_distance",
		Kind:   gpu.KindCompute,
		Inputs: 1,
	}
)

// EncodeConstants packs a constant block little-endian with no padding
// beyond what the block's own fields declare.
func EncodeConstants(block any) []byte {
	buf := make([]byte, 0, binary.Size(block))
	buf, err := binary.Append(buf, binary.LittleEndian, block)
	if err != nil {
		// Only reachable with a block that is not fixed-size.
		panic("shader: encoding constants: " + err.Error())
	}
	return buf
}
