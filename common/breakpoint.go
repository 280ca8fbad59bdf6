package common

import (
	"github.com/razzie/razdbg/arch"
)

var trapInstructionSize = uintptr(arch.TrapInstructionSize)

// Memory is the word sized peek/poke access to a traced process
type Memory interface {
	PeekWord(addr uintptr) (uint64, error)
	PokeWord(addr uintptr, word uint64) error
}

// Breakpoint represents a software breakpoint
type Breakpoint struct {
	mem       Memory
	addr      uintptr
	enabled   bool
	savedData byte
	hits      int
}

// NewBreakpoint returns an initialized but disabled breakpoint
func NewBreakpoint(mem Memory, addr uintptr) *Breakpoint {
	return &Breakpoint{
		mem:     mem,
		addr:    addr,
		enabled: false,
	}
}

// Enable patches the trap instruction over the first byte at the address.
// Enabling an enabled breakpoint does nothing, so the saved byte always
// holds the original instruction.
func (bp *Breakpoint) Enable() error {
	if bp.enabled {
		return nil
	}

	word, err := bp.mem.PeekWord(bp.addr)
	if err != nil {
		return &BreakpointError{Addr: bp.addr, Op: "enable", Err: err}
	}

	saved := LowByte(word)
	patched := ReplaceLowByte(word, arch.TrapInstruction[0])

	err = bp.mem.PokeWord(bp.addr, patched)
	if err != nil {
		return &BreakpointError{Addr: bp.addr, Op: "enable", Err: err}
	}

	bp.savedData = saved
	bp.enabled = true
	return nil
}

// Disable restores the original byte, keeping the rest of the word as it is now
func (bp *Breakpoint) Disable() error {
	if !bp.enabled {
		return nil
	}

	word, err := bp.mem.PeekWord(bp.addr)
	if err != nil {
		return &BreakpointError{Addr: bp.addr, Op: "disable", Err: err}
	}

	err = bp.mem.PokeWord(bp.addr, ReplaceLowByte(word, bp.savedData))
	if err != nil {
		return &BreakpointError{Addr: bp.addr, Op: "disable", Err: err}
	}

	bp.enabled = false
	return nil
}

// IsEnabled returns whether the software breakpoint is set
func (bp *Breakpoint) IsEnabled() bool {
	return bp.enabled
}

// Address returns the runtime address of the breakpoint
func (bp *Breakpoint) Address() uintptr {
	return bp.addr
}

// SavedByte returns the original instruction byte; only meaningful while enabled
func (bp *Breakpoint) SavedByte() (byte, bool) {
	return bp.savedData, bp.enabled
}

// HitCount returns how many times the process stopped at this breakpoint
func (bp *Breakpoint) HitCount() int {
	return bp.hits
}
