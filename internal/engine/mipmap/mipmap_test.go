package mipmap

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/midgard-fx/internal/engine/gpu"
	"github.com/Faultbox/midgard-fx/internal/engine/gpu/gputest"
	"github.com/Faultbox/midgard-fx/internal/engine/shader"
)

var sources = fstest.MapFS{
	VertexSource:   {Data: []byte("vs")},
	FragmentSource: {Data: []byte("fs")},
}

func depthTexture(t *testing.T, dev gpu.Device, w, h int) *gpu.Texture {
	t.Helper()
	tex, err := dev.CreateTexture(gpu.TextureDesc{
		Label:     "depth",
		Width:     w,
		Height:    h,
		MipLevels: gpu.MipCount(w, h),
		Format:    gpu.FormatR32Float,
		Bind:      gpu.BindShaderResource | gpu.BindRenderTarget,
	})
	require.NoError(t, err)
	return tex
}

func setup(t *testing.T) (*gputest.Recorder, *Renderer) {
	t.Helper()
	rec := gputest.New()
	r := New(rec)
	require.NoError(t, r.Initialize(rec, shader.NewCompileContext(), sources))
	return rec, r
}

func TestInitialize(t *testing.T) {
	rec, r := setup(t)

	states := rec.CallsOf("CreateRasterizerState")
	require.Len(t, states, 1)
	assert.Equal(t, gpu.RasterizerDesc{}, states[0].Args[1])

	blends := rec.CallsOf("CreateBlendState")
	require.Len(t, blends, 1)
	assert.Equal(t, gpu.BlendDesc{WriteMask: gpu.MaskRGB}, blends[0].Args[1])

	assert.Len(t, rec.CallsOf("CreateProgram"), 2)
	assert.True(t, r.rectangle.IsGPUResident())

	err := r.Initialize(rec, shader.NewCompileContext(), sources)
	assert.ErrorIs(t, err, gpu.ErrAlreadyInitialized)
}

func TestInitializeFailure(t *testing.T) {
	rec := gputest.New()
	r := New(rec)

	err := r.Initialize(rec, shader.NewCompileContext(), fstest.MapFS{VertexSource: {Data: []byte("vs")}})
	assert.ErrorIs(t, err, gpu.ErrSourceNotFound)
	assert.Zero(t, rec.LiveBuffers())
	assert.False(t, r.rectangle.IsGPUResident())
	assert.ErrorIs(t, r.GenerateMipmapsMinValue(nil), gpu.ErrNotInitialized)
}

func TestNotInitialized(t *testing.T) {
	rec := gputest.New()
	r := New(rec)
	tex := depthTexture(t, rec, 8, 8)
	rec.Reset()

	assert.ErrorIs(t, r.GenerateMipmapsMinValue(tex), gpu.ErrNotInitialized)
	assert.Empty(t, rec.Calls)
}

func TestGenerateMipmapsMinValue(t *testing.T) {
	rec, r := setup(t)
	tex := depthTexture(t, rec, 64, 32)
	require.Equal(t, 7, tex.MipLevels())
	rec.Reset()

	require.NoError(t, r.GenerateMipmapsMinValue(tex))

	draws := rec.CallsOf("Draw")
	require.Len(t, draws, tex.MipLevels()-1)

	targets := rec.CallsOf("EnableRenderTargets")
	viewports := rec.CallsOf("SetViewport")
	require.Len(t, targets, len(draws))
	require.Len(t, viewports, len(draws))

	var fragmentBinds []gpu.ViewID
	for _, c := range rec.CallsOf("SetShaderResources") {
		if c.Args[0] == gpu.KindFragment {
			views := c.Args[2].([]gpu.ViewID)
			require.Len(t, views, 1)
			fragmentBinds = append(fragmentBinds, views[0])
		}
	}
	// bind, unbind per draw
	require.Len(t, fragmentBinds, 2*len(draws))

	for k := 0; k < len(draws); k++ {
		dst := k + 1
		w, h := tex.Dimensions(dst)
		assert.Equal(t, []any{w, h}, viewports[k].Args, "viewport of level %d", dst)
		assert.Equal(t, []gpu.TextureID{tex.ID}, targets[k].Args[0])
		assert.Equal(t, dst, targets[k].Args[1])
		assert.Equal(t, tex.LevelView(k), fragmentBinds[2*k], "input of level %d", dst)
		assert.Equal(t, gpu.ViewID(gpu.InvalidID), fragmentBinds[2*k+1])
	}

	ops := rec.Ops()
	assert.Equal(t, []string{"EnableRasterizerState", "EnableBlendState", "EnableRenderingShaders"}, ops[:3])
	assert.Equal(t, "DisableRenderTargets", ops[len(ops)-1])
	assert.Zero(t, rec.BoundResources(gpu.KindFragment))
	assert.Empty(t, rec.RenderTargets())

	// Each draw happens between its own target bind and the next one.
	var order []string
	for _, op := range ops {
		if op == "EnableRenderTargets" || op == "Draw" {
			order = append(order, op)
		}
	}
	for i := 0; i < len(order); i += 2 {
		assert.Equal(t, []string{"EnableRenderTargets", "Draw"}, order[i:i+2])
	}
}

func TestDrawUsesRectangle(t *testing.T) {
	rec, r := setup(t)
	tex := depthTexture(t, rec, 4, 4)
	rec.Reset()

	require.NoError(t, r.GenerateMipmapsMinValue(tex))
	want, err := r.rectangle.DrawBuffers()
	require.NoError(t, err)
	for _, d := range rec.CallsOf("Draw") {
		assert.Equal(t, want, d.Args[0])
	}
	assert.Equal(t, 6, want.IndexCount)
}

func TestSingleLevelIsNoop(t *testing.T) {
	rec, r := setup(t)
	tex, err := rec.CreateTexture(gpu.TextureDesc{
		Label: "flat", Width: 16, Height: 16, Format: gpu.FormatR32Float,
		Bind: gpu.BindShaderResource | gpu.BindRenderTarget,
	})
	require.NoError(t, err)
	rec.Reset()

	require.NoError(t, r.GenerateMipmapsMinValue(tex))
	assert.Empty(t, rec.Calls)
}

func TestRejectsNonRenderTarget(t *testing.T) {
	rec, r := setup(t)
	tex, err := rec.CreateTexture(gpu.TextureDesc{
		Label: "sampled", Width: 16, Height: 16, MipLevels: 5, Format: gpu.FormatR32Float,
		Bind: gpu.BindShaderResource,
	})
	require.NoError(t, err)

	assert.ErrorIs(t, r.GenerateMipmapsMinValue(tex), gpu.ErrInvalidArgument)
	assert.ErrorIs(t, r.GenerateMipmapsMinValue(nil), gpu.ErrInvalidArgument)
}

func TestRelease(t *testing.T) {
	rec, r := setup(t)
	r.Release(rec)

	assert.Zero(t, rec.LiveBuffers())
	assert.Zero(t, rec.LiveViews())
	assert.Len(t, rec.CallsOf("ReleaseState"), 2)
	assert.Len(t, rec.CallsOf("ReleaseProgram"), 2)
}
