package common

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/hashicorp/go-multierror"
)

var (
	// ErrProcessExited is returned by every control operation once the traced process is gone
	ErrProcessExited = errors.New("no such process: the traced process has exited")

	// ErrNoDebugInfo is returned when an address has no function or line information
	ErrNoDebugInfo = errors.New("no debug information for this address")

	// ErrNoBreakpoint is returned when no breakpoint exists at an address
	ErrNoBreakpoint = errors.New("no breakpoint at address")
)

// TracedError contains an error and the list of origin frames
type TracedError struct {
	Err    error
	Frames []runtime.Frame
}

// Error implements error interface
func (err *TracedError) Error() string {
	return fmt.Sprint(err.Err)
}

// Unwrap returns the wrapped error
func (err *TracedError) Unwrap() error {
	return err.Err
}

// Trace returns the error message followed by the frames it passed through
func (err *TracedError) Trace() string {
	str := fmt.Sprint(err.Err)
	for _, frame := range err.Frames {
		str += fmt.Sprintf("\n[%s:%d]", frame.Function, frame.Line)
	}
	return str
}

// Error creates a new TracedError from 'e' or appends a new frame if 'e' is TracedError
func Error(e interface{}) error {
	if e == nil {
		return nil
	}

	frame := getLastFrame()

	switch err := e.(type) {
	case *TracedError:
		if err == nil {
			return nil
		}
		err.Frames = append(err.Frames, frame)
		return err

	case error:
		return &TracedError{
			Err:    err,
			Frames: []runtime.Frame{frame},
		}

	default:
		return &TracedError{
			Err:    fmt.Errorf("%v", e),
			Frames: []runtime.Frame{frame},
		}
	}
}

// Errorf creates a new TracedError using the provided format and args
func Errorf(format string, args ...interface{}) error {
	return &TracedError{
		Err:    fmt.Errorf(format, args...),
		Frames: []runtime.Frame{getLastFrame()},
	}
}

// MergeErrors merges multiple errors into a single TracedError
func MergeErrors(errs []error) error {
	var merged *multierror.Error
	for _, err := range errs {
		merged = multierror.Append(merged, err)
	}

	if merged.ErrorOrNil() == nil {
		return nil
	}

	return &TracedError{
		Err:    merged,
		Frames: []runtime.Frame{getLastFrame()},
	}
}

func getLastFrame() runtime.Frame {
	pc := make([]uintptr, 1)
	n := runtime.Callers(3, pc)
	frames := runtime.CallersFrames(pc[:n])
	frame, _ := frames.Next()

	return frame
}

// BreakpointError reports a failed peek or poke while patching a breakpoint
type BreakpointError struct {
	Addr uintptr
	Op   string
	Err  error
}

func (e *BreakpointError) Error() string {
	return fmt.Sprintf("breakpoint operation failed: %s at %#x: %v", e.Op, e.Addr, e.Err)
}

func (e *BreakpointError) Unwrap() error { return e.Err }

// MemoryError reports a failed memory access in the traced process
type MemoryError struct {
	Addr uintptr
	Op   string
	Err  error
}

func (e *MemoryError) Error() string {
	return fmt.Sprintf("memory %s at %#x failed: %v", e.Op, e.Addr, e.Err)
}

func (e *MemoryError) Unwrap() error { return e.Err }

// RegisterError reports a failed register fetch or commit
type RegisterError struct {
	Reg string
	Op  string
	Err error
}

func (e *RegisterError) Error() string {
	return fmt.Sprintf("register %s of %s failed: %v", e.Op, e.Reg, e.Err)
}

func (e *RegisterError) Unwrap() error { return e.Err }
