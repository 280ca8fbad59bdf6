package data

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/razzie/razdbg/common"
)

//go:noinline
func locateMe(n int) int {
	_, _, line, _ := runtime.Caller(0)
	return n + line
}

func openSelf(t *testing.T) *DebugData {
	exe, err := os.Executable()
	require.NoError(t, err)

	d, err := Open(exe, 16)
	if errors.Is(err, common.ErrNoDebugInfo) {
		t.Skip("test binary built without DWARF")
	}
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })

	if d.IsPIE() {
		t.Skip("function addresses are only static in a fixed position executable")
	}
	return d
}

func TestLocateFunction(t *testing.T) {
	d := openSelf(t)
	pc := reflect.ValueOf(locateMe).Pointer()

	loc, err := d.Locate(pc)
	require.NoError(t, err)
	assert.Equal(t, "github.com/razzie/razdbg/data.locateMe", loc.Function)
	assert.Equal(t, pc, loc.LowPC)
	assert.True(t, loc.HighPC > pc)
	assert.Equal(t, "debugdata_test.go", filepath.Base(loc.File))

	cached, err := d.Locate(pc)
	require.NoError(t, err)
	assert.Same(t, loc, cached)

	fn, err := d.FunctionEntryAt(pc + 1)
	require.NoError(t, err)
	assert.Equal(t, loc.Function, fn.Name)
}

func TestLocateMiss(t *testing.T) {
	d := openSelf(t)

	_, err := d.Locate(0)
	assert.True(t, errors.Is(err, common.ErrNoDebugInfo))

	_, err = d.FunctionEntryAt(0)
	assert.True(t, errors.Is(err, common.ErrNoDebugInfo))
}

func TestLocateWithoutFunctionOrLine(t *testing.T) {
	d := openSelf(t)
	require.NotEmpty(t, d.units)

	const low, high = 0x7fff0000, 0x7fff1000
	cu := &CUEntry{
		entry:     d.units[0].entry,
		Name:      "stub.c",
		Ranges:    [][2]uintptr{{low, high}},
		functions: []*FunctionEntry{},
	}
	d.units = append(d.units, cu)

	// covered by a compilation unit, but by no function
	_, err := d.Locate(low + 0x10)
	assert.True(t, errors.Is(err, common.ErrNoDebugInfo))
	assert.False(t, d.locations.Contains(uintptr(low+0x10)))

	// a function without line table rows
	cu.functions = []*FunctionEntry{{
		ranges: [][2]uintptr{{low, low + 0x100}},
		Name:   "stub",
		LowPC:  low,
		HighPC: low + 0x100,
	}}
	_, err = d.Locate(low + 0x10)
	assert.True(t, errors.Is(err, common.ErrNoDebugInfo))
	assert.False(t, d.locations.Contains(uintptr(low+0x10)))
}

func TestGetFunctionAddresses(t *testing.T) {
	d := openSelf(t)
	pc := reflect.ValueOf(locateMe).Pointer()

	addrs := d.GetFunctionAddresses("github.com/razzie/razdbg/data.locateMe", true)
	require.Len(t, addrs, 1)

	fn, err := d.FunctionEntryAt(pc)
	require.NoError(t, err)
	assert.True(t, fn.ContainsPC(addrs[0]), "breakpoint address inside the function")

	assert.Empty(t, d.GetFunctionAddresses("locateMe", true))
	assert.Contains(t, d.GetFunctionAddresses("data.locateMe", false), addrs[0])
}

func TestLineAddress(t *testing.T) {
	d := openSelf(t)
	_, file, _, ok := runtime.Caller(0)
	require.True(t, ok)

	line := locateMe(0)

	addr, err := d.LineAddress(filepath.Base(file), line)
	require.NoError(t, err)

	loc, err := d.Locate(addr)
	require.NoError(t, err)
	assert.Equal(t, line, loc.Line)
	assert.Equal(t, "github.com/razzie/razdbg/data.locateMe", loc.Function)

	_, err = d.LineAddress("no_such_file.go", 1)
	assert.True(t, errors.Is(err, common.ErrNoDebugInfo))
}

func TestEntryPoint(t *testing.T) {
	d := openSelf(t)

	assert.NotZero(t, d.EntryPoint())
	assert.False(t, d.IsPIE())
}
