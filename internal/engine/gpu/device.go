package gpu

import "github.com/Faultbox/midgard-fx/pkg/math"

// Device creates and releases GPU resources.
//
// Release methods accept InvalidID (or a nil texture) and do nothing for it.
// Releasing a resource that is still bound is undefined.
type Device interface {
	// CreateBuffer allocates a buffer of desc.Size bytes, initialised from
	// data when data is non-nil.
	CreateBuffer(desc BufferDesc, data []byte) (BufferID, error)

	// CreateRawView creates a raw (byte-addressable) shader view over the
	// first elements 32-bit words of buf.
	CreateRawView(buf BufferID, elements int) (ViewID, error)

	// CreateTexture allocates a 2D texture and the views its bind flags imply.
	CreateTexture(desc TextureDesc) (*Texture, error)

	// CreateProgram compiles source for the given stage. A compiler
	// diagnostic is reported as *CompileError.
	CreateProgram(kind ShaderKind, source []byte, label string) (ProgramID, error)

	// CreateRasterizerState and CreateBlendState build immutable state objects.
	CreateRasterizerState(desc RasterizerDesc) (StateID, error)
	CreateBlendState(desc BlendDesc) (StateID, error)

	ReleaseBuffer(id BufferID)
	ReleaseView(id ViewID)
	ReleaseTexture(t *Texture)
	ReleaseProgram(id ProgramID)
	ReleaseState(id StateID)
}

// Core is the command-stream side of the facade: the pipeline core every pass
// orchestrator drives.
type Core interface {
	// DisableRenderingPipeline leaves raster mode: unbinds rendering shaders
	// and render targets.
	DisableRenderingPipeline()

	// DisableComputePipeline leaves compute mode: unbinds the compute program
	// and unordered-access targets. The pipeline is idle afterwards.
	DisableComputePipeline()

	// EnableComputeShader makes program the active compute program.
	EnableComputeShader(program ProgramID)

	// EnableRenderingShaders makes vertex and fragment the active raster
	// programs.
	EnableRenderingShaders(vertex, fragment ProgramID)

	EnableRasterizerState(state StateID)
	EnableBlendState(state StateID)

	// EnableUnorderedAccessTargets binds targets as writable compute outputs
	// in slot order, replacing previous output bindings.
	EnableUnorderedAccessTargets(targets []*Texture)

	// EnableRenderTargets binds mip level `level` of targets as render
	// targets, replacing previous render target bindings.
	EnableRenderTargets(targets []*Texture, level int)

	// DisableRenderTargets unbinds every render target.
	DisableRenderTargets()

	SetViewport(width, height int)

	// SetShaderResources binds views to consecutive input slots of the given
	// stage starting at slot. InvalidID entries clear the slot.
	SetShaderResources(kind ShaderKind, slot int, views []ViewID)

	// UpdateConstants overwrites the whole contents of a constant buffer.
	UpdateConstants(buf BufferID, data []byte) error

	// SetConstantBuffer binds buf at a constant slot of the given stage.
	SetConstantBuffer(kind ShaderKind, slot int, buf BufferID)

	// Compute dispatches the active compute program.
	Compute(groups math.UVec3)

	// Draw issues one indexed draw of d with the active raster state.
	Draw(d Drawable) error
}
