// Package gpu defines the graphics-API facade the engine passes are written
// against.
//
// Resources are referred to by opaque IDs. A backend (the OpenGL renderer, or
// the recording fake in gputest) maps IDs to its own objects. The zero ID is
// never handed out and means "nothing bound".
//
// Two interfaces split the facade:
//   - Device creates and releases resources (buffers, views, textures,
//     programs, fixed-function states).
//   - Core drives the single command stream: pipeline mode, program and
//     resource binding, viewport, draw and dispatch.
//
// All calls are expected from one goroutine. Commands execute in the order
// they are issued; nothing in the facade waits for the GPU.
package gpu

// BufferID is an opaque handle to a GPU buffer.
type BufferID uint64

// ViewID is an opaque handle to a shader-visible view of a buffer or texture.
type ViewID uint64

// TextureID is an opaque handle to a 2D texture.
type TextureID uint64

// ProgramID is an opaque handle to a compiled shader program.
type ProgramID uint64

// StateID is an opaque handle to a rasterizer or blend state object.
type StateID uint64

// InvalidID is the zero value, representing an absent resource.
const InvalidID = 0

// BufferUsage is a bitmask specifying how a buffer will be bound.
type BufferUsage uint32

// Buffer usage flags.
const (
	// BufferUsageVertex allows binding as a vertex stream.
	BufferUsageVertex BufferUsage = 1 << iota

	// BufferUsageIndex allows binding as an index stream.
	BufferUsageIndex

	// BufferUsageConstant allows binding as a constant (uniform) buffer.
	BufferUsageConstant

	// BufferUsageShaderResource allows creating shader-visible views.
	BufferUsageShaderResource

	// BufferUsageRaw makes the buffer byte-addressable from shaders.
	BufferUsageRaw
)

// BufferDesc describes a buffer to create.
type BufferDesc struct {
	Label string
	Size  int
	Usage BufferUsage
}

// Format is a texel format.
type Format uint32

// Texel formats used by the passes.
const (
	FormatR8Unorm Format = iota + 1
	FormatR32Float
	FormatRG32Float
	FormatRGBA8Unorm
	FormatRGBA32Float
)

// String returns the format name.
func (f Format) String() string {
	switch f {
	case FormatR8Unorm:
		return "R8Unorm"
	case FormatR32Float:
		return "R32Float"
	case FormatRG32Float:
		return "RG32Float"
	case FormatRGBA8Unorm:
		return "RGBA8Unorm"
	case FormatRGBA32Float:
		return "RGBA32Float"
	default:
		return "Unknown"
	}
}

// TextureBind is a bitmask of the ways a texture may be bound.
type TextureBind uint32

// Texture bind flags.
const (
	BindShaderResource TextureBind = 1 << iota
	BindUnorderedAccess
	BindRenderTarget
)

// ShaderKind is the pipeline stage a program runs in.
type ShaderKind int

const (
	KindCompute ShaderKind = iota
	KindVertex
	KindFragment
)

// String returns the stage name.
func (k ShaderKind) String() string {
	switch k {
	case KindCompute:
		return "compute"
	case KindVertex:
		return "vertex"
	case KindFragment:
		return "fragment"
	default:
		return "unknown"
	}
}

// ColorMask selects which channels a render target write touches.
type ColorMask uint8

// Color write mask bits.
const (
	MaskRed ColorMask = 1 << iota
	MaskGreen
	MaskBlue
	MaskAlpha

	MaskRGB = MaskRed | MaskGreen | MaskBlue
	MaskAll = MaskRGB | MaskAlpha
)

// RasterizerDesc describes fixed-function rasterizer state.
type RasterizerDesc struct {
	CullBack  bool
	DepthClip bool
	Wireframe bool
}

// BlendDesc describes blend state for render target 0.
type BlendDesc struct {
	Enable    bool
	WriteMask ColorMask
}

// DrawBuffers are the GPU streams needed to draw an indexed triangle list.
type DrawBuffers struct {
	Positions BufferID
	Normals   BufferID
	Texcoords BufferID // first texcoord set, InvalidID if none
	Triangles BufferID

	VertexCount int
	IndexCount  int
}

// Drawable is anything Core.Draw can render.
type Drawable interface {
	DrawBuffers() (DrawBuffers, error)
}
