package data

import (
	"debug/dwarf"

	"github.com/razzie/razdbg/common"
)

// DebugEntry is a wrapper for dwarf.Entry for easier data access
type DebugEntry struct {
	data  *DebugData
	entry *dwarf.Entry
}

// Val returns the value for the given dwarf attribute
func (de *DebugEntry) Val(attr dwarf.Attr) interface{} {
	return de.entry.Val(attr)
}

// Name returns the name of the entry
func (de *DebugEntry) Name() string {
	name, ok := de.Val(dwarf.AttrName).(string)
	if !ok {
		return "?"
	}

	return name
}

// LowPC returns the low program counter of the entry
func (de *DebugEntry) LowPC() uintptr {
	lowpc, _ := de.Val(dwarf.AttrLowpc).(uint64)
	return uintptr(lowpc)
}

// HighPC returns the high program counter of the entry
func (de *DebugEntry) HighPC() uintptr {
	switch highpc := de.Val(dwarf.AttrHighpc).(type) {
	case uint64:
		return uintptr(highpc)
	case int64: // offset from low pc
		return de.LowPC() + uintptr(highpc)
	default:
		return 0
	}
}

// Children returns the child entries of this entry.
// maxDepth 0 means direct children only, negative means every descendant.
func (de *DebugEntry) Children(maxDepth int) ([]DebugEntry, error) {
	entries := make([]DebugEntry, 0)
	if !de.entry.Children {
		return entries, nil
	}

	reader := de.data.dwarfData.Reader()
	reader.Seek(de.entry.Offset)
	if _, err := reader.Next(); err != nil {
		return nil, common.Error(err)
	}

	depth := 0
	for {
		entry, err := reader.Next()
		if err != nil {
			return nil, common.Error(err)
		}
		if entry == nil {
			return entries, nil
		}

		if entry.Tag == 0 {
			depth--
			if depth < 0 {
				return entries, nil
			}
			continue
		}

		if depth <= maxDepth || maxDepth < 0 {
			entries = append(entries, DebugEntry{de.data, entry})
		}

		if entry.Children {
			depth++
		}
	}
}

// Ranges returns the PC ranges of the entry
func (de *DebugEntry) Ranges() ([][2]uintptr, error) {
	rng, err := de.data.dwarfData.Ranges(de.entry)
	if err != nil {
		return nil, common.Error(err)
	}

	ranges := make([][2]uintptr, 0, len(rng))
	for _, lowhigh := range rng {
		lowpc := uintptr(lowhigh[0])
		highpc := uintptr(lowhigh[1])
		ranges = append(ranges, [2]uintptr{lowpc, highpc})
	}

	return ranges, nil
}
