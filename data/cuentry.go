package data

import (
	"debug/dwarf"

	"github.com/razzie/razdbg/common"
)

// CUEntry contains debug information about a compilation unit
type CUEntry struct {
	entry     DebugEntry
	functions []*FunctionEntry
	Name      string
	Ranges    [][2]uintptr
}

// NewCUEntry returns a new CUEntry
func NewCUEntry(de DebugEntry) (*CUEntry, error) {
	if de.entry.Tag != dwarf.TagCompileUnit {
		return nil, common.Errorf("%s is not a compilation unit", de.Name())
	}

	ranges, err := de.Ranges()
	if err != nil {
		return nil, common.Error(err)
	}

	if len(ranges) == 0 {
		return nil, common.Errorf("%s CU doesn't have ranges", de.Name())
	}

	return &CUEntry{
		entry:  de,
		Name:   de.Name(),
		Ranges: ranges,
	}, nil
}

// ContainsPC returns whether this compilation unit covers the given static PC
func (cu *CUEntry) ContainsPC(pc uintptr) bool {
	return containsPC(cu.Ranges, pc)
}

func containsPC(ranges [][2]uintptr, pc uintptr) bool {
	for _, lowhigh := range ranges {
		if pc >= lowhigh[0] && pc < lowhigh[1] {
			return true
		}
	}
	return false
}

// GetFunctions returns the function debug entries that belongs to this CU
func (cu *CUEntry) GetFunctions() ([]*FunctionEntry, error) {
	if cu.functions != nil {
		return cu.functions, nil
	}

	children, err := cu.entry.Children(-1)
	if err != nil {
		return nil, common.Error(err)
	}

	funcs := make([]*FunctionEntry, 0)

	for _, de := range children {
		if de.entry.Tag != dwarf.TagSubprogram {
			continue
		}

		_, hasName := de.Val(dwarf.AttrName).(string)
		if !hasName {
			continue
		}

		f, err := NewFunctionEntry(cu, de)
		if err != nil {
			// declarations and inlined-only functions have no code
			continue
		}

		funcs = append(funcs, f)
	}

	cu.functions = funcs
	return funcs, nil
}

// FunctionAt returns the function that covers the given static PC
func (cu *CUEntry) FunctionAt(pc uintptr) (*FunctionEntry, error) {
	funcs, err := cu.GetFunctions()
	if err != nil {
		return nil, common.Error(err)
	}

	for _, fn := range funcs {
		if fn.ContainsPC(pc) {
			return fn, nil
		}
	}

	return nil, common.Errorf("%w: no function at pc: %#x", common.ErrNoDebugInfo, pc)
}

// LineReader returns a new line table reader of the CU
func (cu *CUEntry) LineReader() (*dwarf.LineReader, error) {
	reader, err := cu.entry.data.dwarfData.LineReader(cu.entry.entry)
	return reader, common.Error(err)
}

// LineEntryAt returns the line table row that covers the given static PC
func (cu *CUEntry) LineEntryAt(pc uintptr) (*LineEntry, error) {
	reader, err := cu.LineReader()
	if err != nil {
		return nil, common.Error(err)
	}
	if reader == nil {
		return nil, common.Errorf("%w: %s has no line table", common.ErrNoDebugInfo, cu.Name)
	}

	line, err := NewLineEntry(pc, reader)
	return line, common.Error(err)
}
