package shaders

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/midgard-fx/internal/engine/blur"
	"github.com/Faultbox/midgard-fx/internal/engine/mipmap"
	"github.com/Faultbox/midgard-fx/internal/engine/shader"
	"github.com/Faultbox/midgard-fx/internal/engine/shading"
)

// Every program source must declare exactly the inputs and constant block
// its layout binds.
func TestSourcesMatchLayouts(t *testing.T) {
	tests := []struct {
		path   string
		layout shader.Layout
	}{
		{blur.CombinedSource, shader.BlurShadows},
		{blur.HorizontalSource, shader.BlurShadows},
		{blur.VerticalSource, shader.BlurShadows},
		{blur.EdgeDistanceSource, shader.EdgeDistance},
		{shading.EmissiveSource, shader.ShadingEmissive},
		{shading.ShadingSource, shader.Shading},
		{shading.RaysSource, shader.ShadingRays},
		{shading.NoShadowsSource, shader.ShadingNoShadows},
		{shading.RaysNoShadowsSource, shader.ShadingRaysNoShadows},
		{mipmap.VertexSource, shader.MipmapMinValueVertex},
		{mipmap.FragmentSource, shader.MipmapMinValueFragment},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			src, err := fs.ReadFile(FS, tt.path)
			require.NoError(t, err)
			text := string(src)

			assert.True(t, strings.HasPrefix(text, "#version 430 core"))
			assert.Equal(t, tt.layout.Inputs, strings.Count(text, "uniform sampler2D"))
			assert.Equal(t, tt.layout.ConstantSize > 0, strings.Contains(text, "uniform Constants"))
			if tt.layout.ConstantSize > 0 {
				assert.Contains(t, text, "layout(std140, binding = 0)")
			}
		})
	}
}

func TestComputeSourcesUseTileSize(t *testing.T) {
	matches, err := fs.Glob(FS, "*.comp")
	require.NoError(t, err)
	require.NotEmpty(t, matches)

	for _, path := range matches {
		src, err := fs.ReadFile(FS, path)
		require.NoError(t, err)
		assert.Contains(t, string(src), "local_size_x = 16, local_size_y = 16", path)
	}
}
