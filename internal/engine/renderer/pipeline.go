package renderer

import (
	"fmt"
	"unsafe"

	"github.com/go-gl/gl/v4.3-core/gl"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-fx/internal/engine/gpu"
	"github.com/Faultbox/midgard-fx/pkg/math"
)

// Vertex attribute locations the raster programs are written against.
const (
	attribPosition = 0
	attribNormal   = 1
	attribTexcoord = 2
)

func (r *Renderer) DisableRenderingPipeline() {
	gl.UseProgramStages(r.pipeline, gl.VERTEX_SHADER_BIT|gl.FRAGMENT_SHADER_BIT, 0)
	r.targets.Detach()
}

func (r *Renderer) DisableComputePipeline() {
	gl.UseProgramStages(r.pipeline, gl.COMPUTE_SHADER_BIT, 0)
	r.unbindImages(0)
}

func (r *Renderer) EnableComputeShader(program gpu.ProgramID) {
	gl.UseProgramStages(r.pipeline, gl.COMPUTE_SHADER_BIT, r.programName(program))
}

func (r *Renderer) EnableRenderingShaders(vertex, fragment gpu.ProgramID) {
	gl.UseProgramStages(r.pipeline, gl.VERTEX_SHADER_BIT, r.programName(vertex))
	gl.UseProgramStages(r.pipeline, gl.FRAGMENT_SHADER_BIT, r.programName(fragment))
}

func (r *Renderer) EnableRasterizerState(state gpu.StateID) {
	desc := r.raster[state]

	if desc.CullBack {
		gl.Enable(gl.CULL_FACE)
		gl.CullFace(gl.BACK)
	} else {
		gl.Disable(gl.CULL_FACE)
	}
	if desc.DepthClip {
		gl.Disable(gl.DEPTH_CLAMP)
	} else {
		gl.Enable(gl.DEPTH_CLAMP)
	}
	if desc.Wireframe {
		gl.PolygonMode(gl.FRONT_AND_BACK, gl.LINE)
	} else {
		gl.PolygonMode(gl.FRONT_AND_BACK, gl.FILL)
	}
	gl.Disable(gl.DEPTH_TEST)
}

func (r *Renderer) EnableBlendState(state gpu.StateID) {
	desc := r.blend[state]

	if desc.Enable {
		gl.Enable(gl.BLEND)
		gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)
	} else {
		gl.Disable(gl.BLEND)
	}
	gl.ColorMask(colorMask(desc.WriteMask))
}

func (r *Renderer) EnableUnorderedAccessTargets(targets []*gpu.Texture) {
	for i, t := range targets {
		tex, ok := r.lookupTexture(t)
		if !ok {
			r.log.Warn("unknown unordered access target", zap.Int("slot", i))
			gl.BindImageTexture(uint32(i), 0, 0, false, 0, gl.READ_WRITE, gl.R8)
			continue
		}
		gl.BindImageTexture(uint32(i), tex.name, 0, false, 0, gl.READ_WRITE, tex.format.internal)
	}
	r.unbindImages(len(targets))
	r.outputs = len(targets)
}

// unbindImages clears image units from keep up to the last bound one.
func (r *Renderer) unbindImages(keep int) {
	for i := keep; i < r.outputs; i++ {
		gl.BindImageTexture(uint32(i), 0, 0, false, 0, gl.READ_WRITE, gl.R8)
	}
	r.outputs = keep
}

func (r *Renderer) EnableRenderTargets(targets []*gpu.Texture, level int) {
	names := make([]uint32, 0, len(targets))
	width, height := 0, 0
	for _, t := range targets {
		tex, ok := r.lookupTexture(t)
		if !ok {
			continue
		}
		names = append(names, tex.name)
		width, height = t.Dimensions(level)
	}
	if err := r.targets.Attach(names, int32(level), int32(width), int32(height)); err != nil {
		r.log.Error("enabling render targets", zap.Int("level", level), zap.Error(err))
	}
}

func (r *Renderer) DisableRenderTargets() {
	r.targets.Detach()
}

func (r *Renderer) SetViewport(width, height int) {
	gl.Viewport(0, 0, int32(width), int32(height))
}

func (r *Renderer) SetShaderResources(kind gpu.ShaderKind, slot int, views []gpu.ViewID) {
	for i, id := range views {
		point := uint32(slot + i)
		v, ok := r.views[id]
		if !ok {
			// InvalidID or a released view: clear both binding kinds.
			gl.BindBufferBase(gl.SHADER_STORAGE_BUFFER, point, 0)
			gl.ActiveTexture(gl.TEXTURE0 + point)
			gl.BindTexture(gl.TEXTURE_2D, 0)
			continue
		}
		switch v.kind {
		case viewStorage:
			gl.BindBufferRange(gl.SHADER_STORAGE_BUFFER, point, v.name, 0, v.size)
		case viewSampled:
			gl.ActiveTexture(gl.TEXTURE0 + point)
			gl.BindTexture(gl.TEXTURE_2D, v.name)
		case viewImage:
			gl.BindImageTexture(point, v.name, v.level, false, 0, gl.READ_ONLY, v.format)
		}
	}
	gl.ActiveTexture(gl.TEXTURE0)
}

func (r *Renderer) UpdateConstants(buf gpu.BufferID, data []byte) error {
	b, ok := r.buffers[buf]
	if !ok {
		return fmt.Errorf("update constants: unknown buffer %d: %w", buf, gpu.ErrInvalidArgument)
	}
	if len(data) != b.desc.Size {
		return fmt.Errorf("update constants: %d bytes for buffer of %d: %w", len(data), b.desc.Size, gpu.ErrInvalidArgument)
	}
	gl.BindBuffer(gl.UNIFORM_BUFFER, b.name)
	gl.BufferSubData(gl.UNIFORM_BUFFER, 0, len(data), gl.Ptr(data))
	gl.BindBuffer(gl.UNIFORM_BUFFER, 0)
	return nil
}

func (r *Renderer) SetConstantBuffer(kind gpu.ShaderKind, slot int, buf gpu.BufferID) {
	var name uint32
	if b, ok := r.buffers[buf]; ok {
		name = b.name
	}
	gl.BindBufferBase(gl.UNIFORM_BUFFER, uint32(slot), name)
}

// Compute dispatches and makes the writes visible to every later read.
func (r *Renderer) Compute(groups math.UVec3) {
	gl.DispatchCompute(groups.X, groups.Y, groups.Z)
	gl.MemoryBarrier(gl.SHADER_IMAGE_ACCESS_BARRIER_BIT | gl.TEXTURE_FETCH_BARRIER_BIT |
		gl.SHADER_STORAGE_BARRIER_BIT | gl.FRAMEBUFFER_BARRIER_BIT)
}

// Draw renders an indexed triangle list. Positions feed attribute 0,
// normals attribute 1 and the first texcoord set attribute 2.
func (r *Renderer) Draw(d gpu.Drawable) error {
	bufs, err := d.DrawBuffers()
	if err != nil {
		return fmt.Errorf("drawing: %w", err)
	}
	positions, ok := r.buffers[bufs.Positions]
	if !ok {
		return fmt.Errorf("drawing: unknown position buffer: %w", gpu.ErrInvalidArgument)
	}
	triangles, ok := r.buffers[bufs.Triangles]
	if !ok {
		return fmt.Errorf("drawing: unknown triangle buffer: %w", gpu.ErrInvalidArgument)
	}

	gl.BindVertexArray(r.vao)
	r.attribute(attribPosition, positions.name, 3)
	if b, ok := r.buffers[bufs.Normals]; ok {
		r.attribute(attribNormal, b.name, 3)
	} else {
		gl.DisableVertexAttribArray(attribNormal)
	}
	if b, ok := r.buffers[bufs.Texcoords]; ok {
		r.attribute(attribTexcoord, b.name, 2)
	} else {
		gl.DisableVertexAttribArray(attribTexcoord)
	}

	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, triangles.name)
	gl.DrawElements(gl.TRIANGLES, int32(bufs.IndexCount), gl.UNSIGNED_INT, unsafe.Pointer(nil))

	gl.BindVertexArray(0)
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	return nil
}

func (r *Renderer) attribute(location uint32, buffer uint32, components int32) {
	gl.BindBuffer(gl.ARRAY_BUFFER, buffer)
	gl.VertexAttribPointer(location, components, gl.FLOAT, false, components*4, nil)
	gl.EnableVertexAttribArray(location)
}

func (r *Renderer) programName(id gpu.ProgramID) uint32 {
	return r.programs[id].name
}
