package data

import (
	"debug/dwarf"

	"github.com/razzie/razdbg/common"
)

// FunctionEntry contains debug information about a function
type FunctionEntry struct {
	entry             DebugEntry
	ranges            [][2]uintptr
	Name              string
	LowPC             uintptr
	HighPC            uintptr
	BreakpointAddress uintptr
}

// NewFunctionEntry returns a new FunctionEntry
func NewFunctionEntry(cu *CUEntry, de DebugEntry) (*FunctionEntry, error) {
	name := de.Name()

	if de.entry.Tag != dwarf.TagSubprogram {
		return nil, common.Errorf("%s is not a function entry", name)
	}

	ranges, err := de.Ranges()
	if err != nil {
		return nil, common.Error(err)
	}
	if len(ranges) == 0 {
		return nil, common.Errorf("%s has no code", name)
	}

	fn := &FunctionEntry{
		entry:  de,
		ranges: ranges,
		Name:   name,
		LowPC:  ranges[0][0],
		HighPC: ranges[0][1],
	}

	fn.BreakpointAddress, err = fn.getBreakpointAddress(cu)
	if err != nil {
		de.data.log.Debugf("%s: %v", name, err)
	}

	return fn, nil
}

// ContainsPC returns whether the function covers the given static PC
func (fn *FunctionEntry) ContainsPC(pc uintptr) bool {
	return containsPC(fn.ranges, pc)
}

// getBreakpointAddress returns the first statement after the prologue,
// which is the second statement row of the function in the line table
func (fn *FunctionEntry) getBreakpointAddress(cu *CUEntry) (uintptr, error) {
	reader, err := cu.LineReader()
	if err != nil || reader == nil {
		return fn.LowPC, common.Errorf("no line table for %#x", fn.LowPC)
	}

	line, err := NewLineEntry(fn.LowPC, reader)
	if err != nil {
		return fn.LowPC, common.Error(err)
	}

	for {
		line, err = line.Next()
		if err != nil {
			return fn.LowPC, common.Error(err)
		}

		if line.Address >= fn.HighPC {
			break
		}

		if line.IsStmt && line.Address > fn.LowPC {
			return line.Address, nil
		}
	}

	return fn.LowPC, common.Errorf("no suitable breakpoint location for %#x", fn.LowPC)
}
