package razdbg

import (
	"debug/elf"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/razzie/razdbg/arch"
	"github.com/razzie/razdbg/common"
)

const testProgram = "/bin/true"

func launchTestProgram(t *testing.T, disableASLR bool) *Debugger {
	if _, err := os.Stat(testProgram); err != nil {
		t.Skipf("%s not available", testProgram)
	}

	dbg, err := Launch([]string{testProgram}, Options{
		LaunchOptions: common.LaunchOptions{DisableASLR: disableASLR},
	})
	if errors.Is(err, unix.EPERM) {
		t.Skip("ptrace not permitted")
	}
	require.NoError(t, err)
	t.Cleanup(func() { dbg.Close(true) })
	return dbg
}

func staticEntry(t *testing.T, path string) uintptr {
	f, err := elf.Open(path)
	require.NoError(t, err)
	defer f.Close()
	return uintptr(f.Entry)
}

func TestLaunchAndContinue(t *testing.T) {
	dbg := launchTestProgram(t, false)

	evt, err := dbg.Continue()
	require.NoError(t, err)
	assert.True(t, evt.Exited)
	assert.Equal(t, 0, evt.ExitCode)

	_, err = dbg.Continue()
	assert.True(t, IsExited(err))
}

func TestBreakAtEntryPoint(t *testing.T) {
	dbg := launchTestProgram(t, true)
	entry := staticEntry(t, dbg.Program)

	bps, err := dbg.BreakAt(fmt.Sprintf("%#x", entry))
	require.NoError(t, err)
	require.Len(t, bps, 1)

	runtimeEntry := dbg.Translator().ToRuntime(entry)
	assert.Equal(t, runtimeEntry, bps[0].Address())

	evt, err := dbg.Continue()
	require.NoError(t, err)
	require.Equal(t, bps[0], evt.Breakpoint)
	assert.Equal(t, runtimeEntry+arch.TrapInstructionSize, evt.PC)

	regs, err := dbg.DumpRegisters()
	require.NoError(t, err)
	assert.Len(t, regs, arch.NumRegisters)

	evt, err = dbg.Continue()
	require.NoError(t, err)
	assert.True(t, evt.Exited)
	assert.Equal(t, 0, evt.ExitCode)
	assert.Equal(t, 1, bps[0].HitCount())
}

func TestRemoveBreakpointRestoresCode(t *testing.T) {
	dbg := launchTestProgram(t, false)
	entry := dbg.Translator().ToRuntime(staticEntry(t, dbg.Program))

	before, err := dbg.ReadMemory(entry)
	require.NoError(t, err)

	_, err = dbg.SetBreakpointAtRuntime(entry)
	require.NoError(t, err)

	patched, err := dbg.ReadMemory(entry)
	require.NoError(t, err)
	assert.Equal(t, arch.TrapInstruction[0], common.LowByte(patched))
	assert.Equal(t, before>>8, patched>>8)

	require.NoError(t, dbg.RemoveBreakpoint(dbg.Translator().ToStatic(entry)))

	after, err := dbg.ReadMemory(entry)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestBreakAtFunctionWithoutDebugInfo(t *testing.T) {
	dbg := launchTestProgram(t, false)
	if dbg.Debug != nil {
		t.Skipf("%s has debug info", dbg.Program)
	}

	_, err := dbg.BreakAt("main")
	assert.True(t, errors.Is(err, common.ErrNoDebugInfo))
}

func TestLaunchMissingProgram(t *testing.T) {
	_, err := Launch([]string{"/nonexistent/razdbg-test"}, Options{})
	assert.Error(t, err)

	_, err = Launch(nil, Options{})
	assert.Error(t, err)
}

// The kernel validates or masks the flags and segment registers on write,
// so only the general purpose registers and rip read back what was written.
var maskedRegisters = map[arch.Register]bool{
	arch.Rflags:  true,
	arch.Cs:      true,
	arch.Ss:      true,
	arch.Ds:      true,
	arch.Es:      true,
	arch.Fs:      true,
	arch.Gs:      true,
	arch.FsBase:  true,
	arch.GsBase:  true,
	arch.OrigRax: true,
}

func TestRegisterWriteReadBack(t *testing.T) {
	dbg := launchTestProgram(t, false)

	for i, r := range arch.Registers() {
		if maskedRegisters[r] {
			continue
		}

		orig, err := dbg.ReadRegister(r.String())
		require.NoError(t, err, r)

		value := uint64(0x0000112233440000) | uint64(i)
		require.NoError(t, dbg.WriteRegister(r.String(), value), r)

		got, err := dbg.ReadRegister(r.String())
		require.NoError(t, err, r)
		assert.Equal(t, value, got, r.String())

		require.NoError(t, dbg.WriteRegister(r.String(), orig), r)
	}

	evt, err := dbg.Continue()
	require.NoError(t, err)
	assert.True(t, evt.Exited)
	assert.Equal(t, 0, evt.ExitCode)
}
