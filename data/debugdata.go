package data

import (
	"bytes"
	"compress/zlib"
	"debug/dwarf"
	"debug/elf"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-delve/delve/pkg/dwarf/frame"
	lru "github.com/hashicorp/golang-lru"
	"github.com/sirupsen/logrus"

	"github.com/razzie/razdbg/common"
	"github.com/razzie/razdbg/logflags"
)

// DefaultCacheSize is the number of resolved locations kept by default
const DefaultCacheSize = 1024

// DebugData contains debug information of an executable
type DebugData struct {
	elfData     *elf.File
	dwarfData   *dwarf.Data
	dwarfEndian binary.ByteOrder
	entryPoint  uintptr
	pie         bool
	units       []*CUEntry
	locations   *lru.Cache
	closer      io.Closer
	log         *logrus.Entry
}

// NewDebugData returns a new DebugData instance.
// The error wraps common.ErrNoDebugInfo if the file has no DWARF sections.
func NewDebugData(file *os.File, cacheSize int) (*DebugData, error) {
	elfData, err := elf.NewFile(file)
	if err != nil {
		return nil, common.Error(err)
	}

	dwarfData, err := elfData.DWARF()
	if err != nil {
		return nil, common.Errorf("%s: %w: %v", file.Name(), common.ErrNoDebugInfo, err)
	}

	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	locations, err := lru.New(cacheSize)
	if err != nil {
		return nil, common.Error(err)
	}

	d := &DebugData{
		elfData:     elfData,
		dwarfData:   dwarfData,
		dwarfEndian: common.ByteOrder,
		entryPoint:  uintptr(elfData.Entry),
		pie:         elfData.Type == elf.ET_DYN,
		locations:   locations,
		log:         logflags.SymbolsLogger().WithField("file", filepath.Base(file.Name())),
	}

	debugInfoData, _, _ := d.GetElfSection("debug_info")
	if debugInfoData != nil {
		d.dwarfEndian = frame.DwarfEndian(debugInfoData)
	}

	if err := d.loadCompilationUnits(); err != nil {
		return nil, common.Error(err)
	}

	d.log.Debugf("loaded %d compilation units", len(d.units))
	return d, nil
}

// Open opens the executable at path and loads its debug information.
// The file stays open until Close.
func Open(path string, cacheSize int) (*DebugData, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, common.Error(err)
	}

	d, err := NewDebugData(file, cacheSize)
	if err != nil {
		file.Close()
		return nil, err
	}

	d.closer = file
	return d, nil
}

// Close closes the file opened by Open
func (d *DebugData) Close() error {
	if d.closer == nil {
		return nil
	}
	return common.Error(d.closer.Close())
}

// EntryPoint returns the static entry point of the executable
func (d *DebugData) EntryPoint() uintptr {
	return d.entryPoint
}

// IsPIE returns whether the executable is position independent
func (d *DebugData) IsPIE() bool {
	return d.pie
}

// ByteOrder returns the byte order of the DWARF data
func (d *DebugData) ByteOrder() binary.ByteOrder {
	return d.dwarfEndian
}

// GetElfSection returns the given elf section content as a byte slice
func (d *DebugData) GetElfSection(name string) ([]byte, uintptr, error) {
	sec := d.elfData.Section("." + name)
	if sec != nil {
		data, err := sec.Data()
		return data, uintptr(sec.Addr), common.Error(err)
	}

	sec = d.elfData.Section(".z" + name)
	if sec == nil {
		return nil, 0, common.Errorf("could not find .%s or .z%s section", name, name)
	}

	b, err := sec.Data()
	if err != nil {
		return nil, 0, common.Error(err)
	}

	data, err := decompressMaybe(b)
	return data, uintptr(sec.Addr), common.Error(err)
}

func decompressMaybe(b []byte) ([]byte, error) {
	if len(b) < 12 || string(b[:4]) != "ZLIB" {
		// not compressed
		return b, nil
	}

	dlen := binary.BigEndian.Uint64(b[4:12])
	dbuf := make([]byte, dlen)
	r, err := zlib.NewReader(bytes.NewBuffer(b[12:]))
	if err != nil {
		return nil, err
	}
	if _, err := io.ReadFull(r, dbuf); err != nil {
		return nil, err
	}
	if err := r.Close(); err != nil {
		return nil, err
	}
	return dbuf, nil
}

func (d *DebugData) loadCompilationUnits() error {
	reader := d.dwarfData.Reader()

	for {
		entry, err := reader.Next()
		if err != nil {
			return common.Error(err)
		}
		if entry == nil {
			break
		}
		reader.SkipChildren()

		if entry.Tag != dwarf.TagCompileUnit {
			continue
		}

		cu, err := NewCUEntry(DebugEntry{d, entry})
		if err != nil {
			d.log.Debug(err)
			continue
		}

		d.units = append(d.units, cu)
	}

	return nil
}

// GetCompilationUnit returns the CU that covers the given static PC
func (d *DebugData) GetCompilationUnit(pc uintptr) (*CUEntry, error) {
	for _, cu := range d.units {
		if cu.ContainsPC(pc) {
			return cu, nil
		}
	}

	return nil, common.Errorf("%w: compilation unit not found for pc: %#x", common.ErrNoDebugInfo, pc)
}

// FunctionEntryAt returns the function that covers the given static PC
func (d *DebugData) FunctionEntryAt(pc uintptr) (*FunctionEntry, error) {
	cu, err := d.GetCompilationUnit(pc)
	if err != nil {
		return nil, err
	}

	fn, err := cu.FunctionAt(pc)
	return fn, common.Error(err)
}

// Locate returns the function and source line of the given static PC.
// Both must be known, otherwise the error wraps common.ErrNoDebugInfo.
func (d *DebugData) Locate(pc uintptr) (*common.SourceLocation, error) {
	if loc, found := d.locations.Get(pc); found {
		return loc.(*common.SourceLocation), nil
	}

	cu, err := d.GetCompilationUnit(pc)
	if err != nil {
		return nil, err
	}

	fn, err := cu.FunctionAt(pc)
	if err != nil {
		return nil, err
	}

	line, err := cu.LineEntryAt(pc)
	if err != nil {
		d.log.Debugf("no line info for %#x: %v", pc, err)
		return nil, err
	}

	loc := &common.SourceLocation{
		Function: fn.Name,
		LowPC:    fn.LowPC,
		HighPC:   fn.HighPC,
		File:     line.Filename,
		Line:     int(line.Line),
		Column:   int(line.Column),
	}

	d.locations.Add(pc, loc)
	return loc, nil
}

// GetFunctionAddresses returns the breakpoint addresses of the functions
// called name or, if exact is false, containing name. Functions missing from
// the debug info are looked up in the symbol table.
func (d *DebugData) GetFunctionAddresses(name string, exact bool) []uintptr {
	match := func(fn string) bool {
		if exact {
			return fn == name
		}
		return strings.Contains(fn, name)
	}

	var addresses []uintptr
	for _, cu := range d.units {
		funcs, err := cu.GetFunctions()
		if err != nil {
			d.log.Debug(err)
			continue
		}

		for _, fn := range funcs {
			if match(fn.Name) {
				addresses = append(addresses, fn.BreakpointAddress)
			}
		}
	}

	if len(addresses) == 0 {
		symbols, _ := d.elfData.Symbols()
		for _, sym := range symbols {
			if elf.ST_TYPE(sym.Info) == elf.STT_FUNC && sym.Value != 0 && match(sym.Name) {
				addresses = append(addresses, uintptr(sym.Value))
			}
		}
	}

	return uniqueSorted(addresses)
}

// LineAddress returns the first statement address of a source line.
// file matches any path ending with it.
func (d *DebugData) LineAddress(file string, line int) (uintptr, error) {
	var candidates []uintptr

	for _, cu := range d.units {
		reader, err := cu.LineReader()
		if err != nil || reader == nil {
			continue
		}

		var entry dwarf.LineEntry
		for reader.Next(&entry) == nil {
			if entry.File == nil || entry.Line != line || !entry.IsStmt || entry.EndSequence {
				continue
			}
			if !sameFile(entry.File.Name, file) {
				continue
			}
			candidates = append(candidates, uintptr(entry.Address))
		}
	}

	if len(candidates) == 0 {
		return 0, common.Errorf("%w: no code at %s:%d", common.ErrNoDebugInfo, file, line)
	}

	return uniqueSorted(candidates)[0], nil
}

func sameFile(path, file string) bool {
	if path == file {
		return true
	}
	return strings.HasSuffix(path, string(filepath.Separator)+strings.TrimPrefix(file, string(filepath.Separator)))
}

func uniqueSorted(addrs []uintptr) []uintptr {
	sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })

	var out []uintptr
	for _, addr := range addrs {
		if len(out) > 0 && out[len(out)-1] == addr {
			continue
		}
		out = append(out, addr)
	}
	return out
}

func (d *DebugData) String() string {
	kind := "EXEC"
	if d.pie {
		kind = "PIE"
	}
	return fmt.Sprintf("%s entry:%#x units:%d", kind, d.entryPoint, len(d.units))
}
