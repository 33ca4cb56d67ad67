package gpu

import (
	"errors"
	"fmt"
)

// Precondition failures. Every operation returns these (possibly wrapped)
// from the call that detects the violation; nothing is retried.
var (
	ErrNotCPUResident     = errors.New("mesh not loaded in CPU memory")
	ErrNotGPUResident     = errors.New("mesh not loaded in GPU memory")
	ErrEmptyDataSet       = errors.New("data set is empty")
	ErrNoTriangles        = errors.New("mesh has no triangles")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrIndexOutOfRange    = errors.New("index out of range")
	ErrAlreadyCompiled    = errors.New("shader has already been compiled")
	ErrNotCompiled        = errors.New("shader hasn't been compiled yet")
	ErrSourceNotFound     = errors.New("shader source not found")
	ErrUnimplemented      = errors.New("operation not implemented")
	ErrNotInitialized     = errors.New("renderer not initialized")
	ErrAlreadyInitialized = errors.New("renderer already initialized")
)

// CompileError carries the shader compiler's diagnostic text.
type CompileError struct {
	Label      string
	Diagnostic string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("compiling %s: %s", e.Label, e.Diagnostic)
}

// ResourceError reports a backend failure while creating a resource.
type ResourceError struct {
	Op  string
	Err error
}

func (e *ResourceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ResourceError) Unwrap() error {
	return e.Err
}

// WrapResource wraps err from a creation call as a *ResourceError for op.
// A nil err stays nil.
func WrapResource(op string, err error) error {
	if err == nil {
		return nil
	}
	return &ResourceError{Op: op, Err: err}
}
