package shader

import (
	"errors"
	"fmt"
	"io/fs"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-fx/internal/engine/gpu"
	"github.com/Faultbox/midgard-fx/internal/logger"
	"github.com/Faultbox/midgard-fx/pkg/math"
)

// CompileContext hands out stage identifiers. Identifiers increase
// monotonically within one context and are used for diagnostics only.
type CompileContext struct {
	last uint64
}

// NewCompileContext returns a context whose first identifier is 1.
func NewCompileContext() *CompileContext {
	return &CompileContext{}
}

// Next returns the next identifier.
func (c *CompileContext) Next() uint64 {
	c.last++
	return c.last
}

// Compiled returns how many identifiers have been handed out.
func (c *CompileContext) Compiled() uint64 {
	return c.last
}

// Stage is a compiled program bound according to its Layout.
type Stage struct {
	Layout Layout

	id        uint64
	label     string
	program   gpu.ProgramID
	constants gpu.BufferID
}

// NewStage returns an uncompiled stage with the given layout.
func NewStage(layout Layout) *Stage {
	return &Stage{Layout: layout}
}

// Compile reads path from fsys and builds the program, plus the constant
// buffer if the layout declares one. A stage compiles at most once.
func (s *Stage) Compile(cc *CompileContext, dev gpu.Device, fsys fs.FS, path string) error {
	if s.Compiled() {
		return fmt.Errorf("compiling %s: %w", path, gpu.ErrAlreadyCompiled)
	}

	src, err := fs.ReadFile(fsys, path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("compiling %s: %w", path, gpu.ErrSourceNotFound)
		}
		return fmt.Errorf("compiling %s: %w", path, err)
	}

	program, err := dev.CreateProgram(s.Layout.Kind, src, path)
	if err != nil {
		return fmt.Errorf("compiling %s: %w", path, err)
	}

	var constants gpu.BufferID
	if s.Layout.ConstantSize > 0 {
		constants, err = dev.CreateBuffer(gpu.BufferDesc{
			Label: path + " constants",
			Size:  s.Layout.ConstantSize,
			Usage: gpu.BufferUsageConstant,
		}, nil)
		if err != nil {
			dev.ReleaseProgram(program)
			return gpu.WrapResource("creating constant buffer for "+path, err)
		}
	}

	s.program = program
	s.constants = constants
	s.label = path
	s.id = cc.Next()

	logger.Named("shader").Debug("compiled",
		zap.String("path", path),
		zap.String("layout", s.Layout.Name),
		zap.Stringer("kind", s.Layout.Kind),
		zap.Uint64("id", s.id),
	)
	return nil
}

// Bind writes constants into the stage's constant buffer and binds inputs to
// slots 0..len(inputs)-1. len(inputs) must equal Layout.Inputs and
// len(constants) must equal Layout.ConstantSize.
func (s *Stage) Bind(core gpu.Core, constants []byte, inputs ...gpu.ViewID) error {
	if !s.Compiled() {
		return fmt.Errorf("binding %s: %w", s.Layout.Name, gpu.ErrNotCompiled)
	}
	if len(inputs) != s.Layout.Inputs {
		return fmt.Errorf("binding %s: %d inputs, want %d: %w",
			s.label, len(inputs), s.Layout.Inputs, gpu.ErrInvalidArgument)
	}
	if len(constants) != s.Layout.ConstantSize {
		return fmt.Errorf("binding %s: %d constant bytes, want %d: %w",
			s.label, len(constants), s.Layout.ConstantSize, gpu.ErrInvalidArgument)
	}

	if s.constants != gpu.InvalidID {
		if err := core.UpdateConstants(s.constants, constants); err != nil {
			return fmt.Errorf("binding %s: %w", s.label, err)
		}
		core.SetConstantBuffer(s.Layout.Kind, 0, s.constants)
	}
	if len(inputs) > 0 {
		core.SetShaderResources(s.Layout.Kind, 0, inputs)
	}
	return nil
}

// Unbind clears every input slot the stage owns and its constant slot.
func (s *Stage) Unbind(core gpu.Core) error {
	if !s.Compiled() {
		return fmt.Errorf("unbinding %s: %w", s.Layout.Name, gpu.ErrNotCompiled)
	}
	if s.Layout.Inputs > 0 {
		core.SetShaderResources(s.Layout.Kind, 0, make([]gpu.ViewID, s.Layout.Inputs))
	}
	if s.constants != gpu.InvalidID {
		core.SetConstantBuffer(s.Layout.Kind, 0, gpu.InvalidID)
	}
	return nil
}

// ID returns the identifier assigned at compile time, 0 before.
func (s *Stage) ID() uint64 { return s.id }

// Program returns the compiled program, InvalidID before compile.
func (s *Stage) Program() gpu.ProgramID { return s.program }

// Compiled reports whether Compile has succeeded.
func (s *Stage) Compiled() bool { return s.program != gpu.InvalidID }

// Release frees the program and constant buffer. The stage can be compiled
// again afterwards.
func (s *Stage) Release(dev gpu.Device) {
	dev.ReleaseBuffer(s.constants)
	dev.ReleaseProgram(s.program)
	*s = Stage{Layout: s.Layout}
}

// Dispatch runs a compute stage once: bind, enable the program and outputs,
// dispatch groups, unbind. The caller owns the pipeline mode around it.
func (s *Stage) Dispatch(core gpu.Core, groups math.UVec3, outputs []*gpu.Texture, constants []byte, inputs ...gpu.ViewID) error {
	if s.Layout.Kind != gpu.KindCompute {
		return fmt.Errorf("dispatching %s: %s stage: %w", s.Layout.Name, s.Layout.Kind, gpu.ErrInvalidArgument)
	}
	if err := s.Bind(core, constants, inputs...); err != nil {
		return err
	}
	core.EnableComputeShader(s.program)
	core.EnableUnorderedAccessTargets(outputs)
	core.Compute(groups)

	logger.Named("shader").Debug("dispatch",
		zap.String("path", s.label),
		zap.Uint32("groups_x", groups.X),
		zap.Uint32("groups_y", groups.Y),
	)
	return s.Unbind(core)
}
