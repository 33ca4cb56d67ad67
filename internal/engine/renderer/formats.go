package renderer

import (
	"fmt"

	"github.com/go-gl/gl/v4.3-core/gl"

	"github.com/Faultbox/midgard-fx/internal/engine/gpu"
)

// glFormat is the GL description of a gpu.Format.
type glFormat struct {
	internal    uint32
	pixelFormat uint32
	pixelType   uint32
	texelSize   int
}

func formatOf(f gpu.Format) (glFormat, error) {
	switch f {
	case gpu.FormatR8Unorm:
		return glFormat{gl.R8, gl.RED, gl.UNSIGNED_BYTE, 1}, nil
	case gpu.FormatR32Float:
		return glFormat{gl.R32F, gl.RED, gl.FLOAT, 4}, nil
	case gpu.FormatRG32Float:
		return glFormat{gl.RG32F, gl.RG, gl.FLOAT, 8}, nil
	case gpu.FormatRGBA8Unorm:
		return glFormat{gl.RGBA8, gl.RGBA, gl.UNSIGNED_BYTE, 4}, nil
	case gpu.FormatRGBA32Float:
		return glFormat{gl.RGBA32F, gl.RGBA, gl.FLOAT, 16}, nil
	default:
		return glFormat{}, fmt.Errorf("texture format %v: %w", f, gpu.ErrInvalidArgument)
	}
}

func shaderType(kind gpu.ShaderKind) (uint32, error) {
	switch kind {
	case gpu.KindCompute:
		return gl.COMPUTE_SHADER, nil
	case gpu.KindVertex:
		return gl.VERTEX_SHADER, nil
	case gpu.KindFragment:
		return gl.FRAGMENT_SHADER, nil
	default:
		return 0, fmt.Errorf("shader kind %v: %w", kind, gpu.ErrInvalidArgument)
	}
}

// bufferHint picks the BufferData usage hint. Constant buffers are
// rewritten every pass, everything else is uploaded once.
func bufferHint(usage gpu.BufferUsage) uint32 {
	if usage&gpu.BufferUsageConstant != 0 {
		return gl.DYNAMIC_DRAW
	}
	return gl.STATIC_DRAW
}

func colorMask(m gpu.ColorMask) (red, green, blue, alpha bool) {
	return m&gpu.MaskRed != 0, m&gpu.MaskGreen != 0, m&gpu.MaskBlue != 0, m&gpu.MaskAlpha != 0
}
