package demo

import (
	"fmt"

	"github.com/Faultbox/midgard-fx/internal/engine/gpu"
)

// TextureWriter uploads CPU texels into a texture level.
type TextureWriter interface {
	WriteTexture(t *gpu.Texture, level int, data []byte) error
}

// textures holds every GPU image the passes read or write.
type textures struct {
	position, normal, rayOrigin *gpu.Texture
	albedo, emissive            *gpu.Texture
	metalness, roughness, ao    *gpu.Texture
	hardShadow, softShadow      *gpu.Texture
	distToOccluder, distToEdge  *gpu.Texture

	color    *gpu.Texture // shading target
	edgeDist *gpu.Texture // edge distance target
}

func createTextures(dev gpu.Device, width, height int) (*textures, error) {
	t := &textures{}
	specs := []struct {
		dst    **gpu.Texture
		label  string
		format gpu.Format
		bind   gpu.TextureBind
		levels int
	}{
		{&t.position, "position", gpu.FormatRGBA32Float, gpu.BindShaderResource, 1},
		{&t.normal, "normal", gpu.FormatRGBA32Float, gpu.BindShaderResource, 1},
		{&t.rayOrigin, "ray origin", gpu.FormatRGBA32Float, gpu.BindShaderResource, 1},
		{&t.albedo, "albedo", gpu.FormatRGBA8Unorm, gpu.BindShaderResource, 1},
		{&t.emissive, "emissive", gpu.FormatRGBA8Unorm, gpu.BindShaderResource, 1},
		{&t.metalness, "metalness", gpu.FormatR8Unorm, gpu.BindShaderResource, 1},
		{&t.roughness, "roughness", gpu.FormatR8Unorm, gpu.BindShaderResource, 1},
		{&t.ao, "ambient occlusion", gpu.FormatR8Unorm, gpu.BindShaderResource, 1},
		{&t.hardShadow, "hard shadow", gpu.FormatR8Unorm, gpu.BindShaderResource, 1},
		{&t.softShadow, "soft shadow", gpu.FormatR8Unorm, gpu.BindShaderResource, 1},
		{&t.distToOccluder, "distance to occluder", gpu.FormatR32Float,
			gpu.BindShaderResource | gpu.BindRenderTarget, gpu.MipCount(width, height)},
		{&t.distToEdge, "distance to edge", gpu.FormatR32Float, gpu.BindShaderResource, 1},
		{&t.color, "shaded color", gpu.FormatRGBA32Float, gpu.BindShaderResource | gpu.BindUnorderedAccess, 1},
		{&t.edgeDist, "edge distance", gpu.FormatR32Float, gpu.BindShaderResource | gpu.BindUnorderedAccess, 1},
	}

	for _, s := range specs {
		tex, err := dev.CreateTexture(gpu.TextureDesc{
			Label:     s.label,
			Width:     width,
			Height:    height,
			MipLevels: s.levels,
			Format:    s.format,
			Bind:      s.bind,
		})
		if err != nil {
			t.release(dev)
			return nil, gpu.WrapResource("creating "+s.label+" texture", err)
		}
		*s.dst = tex
	}
	return t, nil
}

// upload writes level 0 of every CPU-filled texture from f.
func (t *textures) upload(w TextureWriter, f *Frame) error {
	for _, u := range []struct {
		tex  *gpu.Texture
		data []byte
	}{
		{t.position, f.Position},
		{t.normal, f.Normal},
		{t.rayOrigin, f.RayOrigin},
		{t.albedo, f.Albedo},
		{t.emissive, f.Emissive},
		{t.metalness, f.Metalness},
		{t.roughness, f.Roughness},
		{t.ao, f.AO},
		{t.hardShadow, f.HardShadow},
		{t.softShadow, f.SoftShadow},
		{t.distToOccluder, f.DistToOccluder},
		{t.distToEdge, f.DistToEdge},
	} {
		if err := w.WriteTexture(u.tex, 0, u.data); err != nil {
			return fmt.Errorf("uploading frame: %w", err)
		}
	}
	return nil
}

func (t *textures) release(dev gpu.Device) {
	for _, tex := range []*gpu.Texture{
		t.position, t.normal, t.rayOrigin, t.albedo, t.emissive,
		t.metalness, t.roughness, t.ao, t.hardShadow, t.softShadow,
		t.distToOccluder, t.distToEdge, t.color, t.edgeDist,
	} {
		dev.ReleaseTexture(tex)
	}
}
