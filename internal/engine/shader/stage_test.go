package shader

import (
	"errors"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/midgard-fx/internal/engine/gpu"
	"github.com/Faultbox/midgard-fx/internal/engine/gpu/gputest"
	"github.com/Faultbox/midgard-fx/internal/engine/lighting"
	"github.com/Faultbox/midgard-fx/pkg/math"
)

var sources = fstest.MapFS{
	"shaders/blur_shadows.comp":  {Data: []byte("#version 430\nvoid main() {}\n")},
	"shaders/edge_distance.comp": {Data: []byte("#version 430\nvoid main() {}\n")},
	"shaders/broken.comp":        {Data: []byte("#version 430\nvoid main( {}\n")},
}

func TestLayoutConstantSizes(t *testing.T) {
	tests := []struct {
		layout Layout
		want   int
	}{
		{BlurShadows, 32},
		{Shading, 48},
		{ShadingRays, 32},
		{ShadingNoShadows, 16 + 16 + 2*lighting.MaxPointLights*16},
		{ShadingRaysNoShadows, 16 + 2*lighting.MaxPointLights*16},
		{ShadingEmissive, 0},
		{MipmapMinValueVertex, 0},
		{MipmapMinValueFragment, 0},
		{EdgeDistance, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.layout.ConstantSize, tt.layout.Name)
		assert.Zero(t, tt.layout.ConstantSize%16, tt.layout.Name)
	}
}

func TestLayoutInputs(t *testing.T) {
	assert.Equal(t, 5, BlurShadows.Inputs)
	assert.Equal(t, 1, ShadingEmissive.Inputs)
	assert.Equal(t, 6, Shading.Inputs)
	assert.Equal(t, 7, ShadingRays.Inputs)
	assert.Equal(t, 6, ShadingNoShadows.Inputs)
	assert.Equal(t, 6, ShadingRaysNoShadows.Inputs)
	assert.Equal(t, 0, MipmapMinValueVertex.Inputs)
	assert.Equal(t, 1, MipmapMinValueFragment.Inputs)
	assert.Equal(t, 1, EdgeDistance.Inputs)
}

func TestCompile(t *testing.T) {
	dev := gputest.New()
	cc := NewCompileContext()
	s := NewStage(BlurShadows)

	assert.False(t, s.Compiled())
	assert.Zero(t, s.ID())

	require.NoError(t, s.Compile(cc, dev, sources, "shaders/blur_shadows.comp"))
	assert.True(t, s.Compiled())
	assert.Equal(t, uint64(1), s.ID())

	prog, ok := dev.Program(s.Program())
	require.True(t, ok)
	assert.Equal(t, gpu.KindCompute, prog.Kind)
	assert.Equal(t, "shaders/blur_shadows.comp", prog.Label)

	// the constant block
	assert.Equal(t, 1, dev.LiveBuffers())

	err := s.Compile(cc, dev, sources, "shaders/blur_shadows.comp")
	assert.ErrorIs(t, err, gpu.ErrAlreadyCompiled)
	assert.Equal(t, uint64(1), s.ID())
}

func TestCompileIDsIncrease(t *testing.T) {
	dev := gputest.New()
	cc := NewCompileContext()

	a := NewStage(EdgeDistance)
	b := NewStage(EdgeDistance)
	require.NoError(t, a.Compile(cc, dev, sources, "shaders/edge_distance.comp"))
	require.NoError(t, b.Compile(cc, dev, sources, "shaders/edge_distance.comp"))

	assert.Less(t, a.ID(), b.ID())
	assert.Equal(t, uint64(2), cc.Compiled())

	// A fresh context starts over.
	c := NewStage(EdgeDistance)
	require.NoError(t, c.Compile(NewCompileContext(), dev, sources, "shaders/edge_distance.comp"))
	assert.Equal(t, uint64(1), c.ID())
}

func TestCompileFailures(t *testing.T) {
	t.Run("missing source", func(t *testing.T) {
		dev := gputest.New()
		s := NewStage(EdgeDistance)
		err := s.Compile(NewCompileContext(), dev, sources, "shaders/nope.comp")
		assert.ErrorIs(t, err, gpu.ErrSourceNotFound)
		assert.False(t, s.Compiled())
	})

	t.Run("diagnostic", func(t *testing.T) {
		dev := gputest.New()
		dev.Diagnostics = map[string]string{"shaders/broken.comp": "0:2: syntax error"}
		cc := NewCompileContext()
		s := NewStage(EdgeDistance)

		err := s.Compile(cc, dev, sources, "shaders/broken.comp")
		var cerr *gpu.CompileError
		require.True(t, errors.As(err, &cerr))
		assert.Equal(t, "0:2: syntax error", cerr.Diagnostic)
		assert.False(t, s.Compiled())
		assert.Zero(t, cc.Compiled())
	})

	t.Run("constant buffer", func(t *testing.T) {
		dev := gputest.New()
		dev.FailBufferAt = 1
		s := NewStage(BlurShadows)

		err := s.Compile(NewCompileContext(), dev, sources, "shaders/blur_shadows.comp")
		var rerr *gpu.ResourceError
		require.True(t, errors.As(err, &rerr))
		assert.False(t, s.Compiled())
		assert.Len(t, dev.CallsOf("CreateProgram"), 1)
		assert.Len(t, dev.CallsOf("ReleaseProgram"), 1)
	})
}

func TestBindBeforeCompile(t *testing.T) {
	core := gputest.New()
	s := NewStage(EdgeDistance)

	assert.ErrorIs(t, s.Bind(core, nil, 1), gpu.ErrNotCompiled)
	assert.ErrorIs(t, s.Unbind(core), gpu.ErrNotCompiled)
	assert.Empty(t, core.Calls)
}

func TestBindUnbind(t *testing.T) {
	dev := gputest.New()
	s := NewStage(BlurShadows)
	require.NoError(t, s.Compile(NewCompileContext(), dev, sources, "shaders/blur_shadows.comp"))
	dev.Reset()

	constants := EncodeConstants(BlurConstants{
		CameraPosition: math.Vec4{X: 1, Y: 2, Z: 3},
		LightPosition:  math.Vec4{X: 4, Y: 5, Z: 6},
	})
	inputs := []gpu.ViewID{11, 12, 13, 14, 15}
	require.NoError(t, s.Bind(dev, constants, inputs...))

	for slot, want := range inputs {
		assert.Equal(t, want, dev.Resource(gpu.KindCompute, slot), "slot %d", slot)
	}
	assert.Equal(t, 5, dev.BoundResources(gpu.KindCompute))
	cb := dev.ConstantBuffer(gpu.KindCompute, 0)
	require.NotEqual(t, gpu.BufferID(gpu.InvalidID), cb)
	rec, ok := dev.Buffer(cb)
	require.True(t, ok)
	assert.Equal(t, constants, rec.Data)

	require.NoError(t, s.Unbind(dev))
	assert.Zero(t, dev.BoundResources(gpu.KindCompute))
	assert.Equal(t, gpu.BufferID(gpu.InvalidID), dev.ConstantBuffer(gpu.KindCompute, 0))
	assert.Equal(t, []string{
		"UpdateConstants", "SetConstantBuffer", "SetShaderResources",
		"SetShaderResources", "SetConstantBuffer",
	}, dev.Ops())
}

func TestUnbindClearsUnpopulatedSlots(t *testing.T) {
	dev := gputest.New()
	s := NewStage(ShadingNoShadows)
	require.NoError(t, s.Compile(NewCompileContext(), dev, fstest.MapFS{
		"s.comp": {Data: []byte("x")},
	}, "s.comp"))

	// A stale binding in the stage's range from some earlier pass.
	dev.SetShaderResources(gpu.KindCompute, 5, []gpu.ViewID{99})

	require.NoError(t, s.Unbind(dev))
	assert.Zero(t, dev.BoundResources(gpu.KindCompute))

	last := dev.CallsOf("SetShaderResources")
	assert.Len(t, last[len(last)-1].Args[2], ShadingNoShadows.Inputs)
}

func TestBindArgumentChecks(t *testing.T) {
	dev := gputest.New()
	s := NewStage(BlurShadows)
	require.NoError(t, s.Compile(NewCompileContext(), dev, sources, "shaders/blur_shadows.comp"))
	good := EncodeConstants(BlurConstants{})

	assert.ErrorIs(t, s.Bind(dev, good, 1, 2, 3), gpu.ErrInvalidArgument)
	assert.ErrorIs(t, s.Bind(dev, good[:16], 1, 2, 3, 4, 5), gpu.ErrInvalidArgument)
	assert.Zero(t, dev.BoundResources(gpu.KindCompute))
}

func TestRelease(t *testing.T) {
	dev := gputest.New()
	s := NewStage(BlurShadows)
	require.NoError(t, s.Compile(NewCompileContext(), dev, sources, "shaders/blur_shadows.comp"))

	s.Release(dev)
	assert.False(t, s.Compiled())
	assert.Zero(t, dev.LiveBuffers())
	assert.Equal(t, BlurShadows, s.Layout)
}

func TestEncodeLightArrayConstants(t *testing.T) {
	block := LightArrayConstants{
		CameraPosition: math.Vec4{X: 1},
		Lights: lighting.EncodeLightArray([]lighting.PointLight{
			lighting.NewPointLight(math.Vec3{X: 2}, math.Vec3{X: 1}),
		}),
	}
	data := EncodeConstants(block)
	require.Len(t, data, ShadingNoShadows.ConstantSize)

	// camera.x, then count at offset 16
	assert.Equal(t, []byte{0x00, 0x00, 0x80, 0x3f}, data[0:4])
	assert.Equal(t, []byte{1, 0, 0, 0}, data[16:20])
	// first light position.x = 2.0
	assert.Equal(t, []byte{0x00, 0x00, 0x00, 0x40}, data[32:36])
}
