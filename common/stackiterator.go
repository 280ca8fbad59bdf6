package common

import (
	"fmt"

	"github.com/razzie/razdbg/arch"
)

// StackFrame is a function activation on the call stack
type StackFrame struct {
	PC        uintptr
	FrameBase uintptr
	Location  *SourceLocation // nil without debug info
}

func (f *StackFrame) String() string {
	if f.Location == nil {
		return fmt.Sprintf("%#x in ??", f.PC)
	}
	return fmt.Sprintf("%#x in %v", f.PC, f.Location)
}

// StackIterator iterates over stack frames by following the saved frame
// pointer chain. Code compiled without frame pointers yields a short stack.
type StackIterator struct {
	tracer *Tracer
	pc     uintptr
	fp     uintptr
	sp     uintptr
	frame  StackFrame
	depth  int
	done   bool
	err    error
}

// NewStackIterator returns a StackIterator starting at the current PC
func (t *Tracer) NewStackIterator() (*StackIterator, error) {
	if err := t.checkAlive(); err != nil {
		return nil, err
	}

	var pc, fp, sp uint64
	for _, reg := range []struct {
		r   arch.Register
		val *uint64
	}{{arch.PCReg, &pc}, {arch.FPReg, &fp}, {arch.SPReg, &sp}} {
		v, err := ReadRegister(t.proc, reg.r)
		if err != nil {
			return nil, Error(err)
		}
		*reg.val = v
	}

	return &StackIterator{
		tracer: t,
		pc:     uintptr(pc),
		fp:     uintptr(fp),
		sp:     uintptr(sp),
	}, nil
}

// Next steps the iterator to the next frame. Returns false if there are no more frames.
func (it *StackIterator) Next() bool {
	if it.done || it.err != nil || it.pc == 0 {
		return false
	}

	loc, _ := it.tracer.ResolveSourceLocation(it.pc)
	it.frame = StackFrame{PC: it.pc, FrameBase: it.fp, Location: loc}
	it.depth++

	it.done = !it.advance(loc)
	return true
}

// Frame returns the current stack frame
func (it *StackIterator) Frame() StackFrame {
	return it.frame
}

// Err returns the error message from the last iteration
func (it *StackIterator) Err() error {
	return it.err
}

func (it *StackIterator) advance(loc *SourceLocation) bool {
	ptr := SizeofPtr

	// stopped on the first instruction: the frame pointer is not pushed yet
	if it.depth == 1 && loc != nil && it.tracer.translator.ToStatic(it.pc) == loc.LowPC {
		retaddr, err := it.tracer.proc.PeekWord(it.sp)
		if err != nil {
			it.err = &MemoryError{Addr: it.sp, Op: "read", Err: err}
			return false
		}
		it.pc = uintptr(retaddr)
		return true
	}

	if it.fp == 0 {
		return false
	}

	retaddr, err := it.tracer.proc.PeekWord(it.fp + ptr)
	if err != nil {
		it.err = &MemoryError{Addr: it.fp + ptr, Op: "read", Err: err}
		return false
	}

	nextfp, err := it.tracer.proc.PeekWord(it.fp)
	if err != nil {
		it.err = &MemoryError{Addr: it.fp, Op: "read", Err: err}
		return false
	}

	// caller frames live at higher addresses
	if nextfp != 0 && uintptr(nextfp) <= it.fp {
		return false
	}

	it.pc = uintptr(retaddr)
	it.fp = uintptr(nextfp)
	return true
}

// Stacktrace returns at most maxDepth frames of the call stack
func (t *Tracer) Stacktrace(maxDepth int) ([]StackFrame, error) {
	it, err := t.NewStackIterator()
	if err != nil {
		return nil, err
	}

	var frames []StackFrame
	for len(frames) < maxDepth && it.Next() {
		frames = append(frames, it.Frame())
	}

	return frames, Error(it.Err())
}
