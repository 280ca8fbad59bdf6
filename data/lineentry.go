package data

import (
	"debug/dwarf"

	"github.com/razzie/razdbg/common"
)

// LineEntry contains debug information about a line in the source code
type LineEntry struct {
	reader   *dwarf.LineReader
	pos      dwarf.LineReaderPos
	Filename string
	Address  uintptr
	IsStmt   bool
	Line     uint
	Column   uint
}

// NewLineEntry returns the line entry that covers pc
func NewLineEntry(pc uintptr, reader *dwarf.LineReader) (*LineEntry, error) {
	var entry dwarf.LineEntry

	err := reader.SeekPC(uint64(pc), &entry)
	if err != nil {
		return nil, common.Errorf("%w: line entry not found for pc: %#x", common.ErrNoDebugInfo, pc)
	}

	return newLineEntry(reader, &entry), nil
}

func newLineEntry(reader *dwarf.LineReader, entry *dwarf.LineEntry) *LineEntry {
	line := &LineEntry{
		reader:  reader,
		pos:     reader.Tell(),
		Address: uintptr(entry.Address),
		IsStmt:  entry.IsStmt,
		Line:    uint(entry.Line),
		Column:  uint(entry.Column),
	}
	if entry.File != nil {
		line.Filename = entry.File.Name
	}
	return line
}

// Next returns the line entry following the current one
func (line *LineEntry) Next() (*LineEntry, error) {
	var entry dwarf.LineEntry

	line.reader.Seek(line.pos)
	err := line.reader.Next(&entry)
	if err != nil {
		return nil, common.Error(err)
	}

	return newLineEntry(line.reader, &entry), nil
}
