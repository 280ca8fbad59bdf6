package common

import (
	"errors"
	"testing"

	"github.com/go-delve/delve/pkg/dwarf/regnum"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/razzie/razdbg/arch"
)

func TestRegisterRoundTrip(t *testing.T) {
	proc := newFakeProcess(opExit)

	for i, r := range arch.Registers() {
		value := uint64(0x1000 + i)
		require.NoError(t, WriteRegister(proc, r, value), r.String())

		got, err := ReadRegister(proc, r)
		require.NoError(t, err)
		assert.Equal(t, value, got, r.String())
	}

	// writes don't leak into other registers
	for i, r := range arch.Registers() {
		got, err := ReadRegister(proc, r)
		require.NoError(t, err)
		assert.Equal(t, uint64(0x1000+i), got, r.String())
	}
}

func TestWriteRegisterFailure(t *testing.T) {
	proc := newFakeProcess(opExit)
	proc.failSetRegs = true

	err := WriteRegister(proc, arch.Rax, 1)

	var regErr *RegisterError
	require.True(t, errors.As(err, &regErr))
	assert.Equal(t, "rax", regErr.Reg)
	assert.Equal(t, "write", regErr.Op)
	assert.True(t, errors.Is(err, unix.EPERM))
}

func TestReadRegisterOfExitedProcess(t *testing.T) {
	proc := newFakeProcess(opExit)
	proc.exited = true

	_, err := ReadRegister(proc, arch.Rip)
	var regErr *RegisterError
	require.True(t, errors.As(err, &regErr))
	assert.Equal(t, "read", regErr.Op)
}

func TestReadDwarfRegister(t *testing.T) {
	proc := newFakeProcess(opExit)
	proc.regs.Rsp = 0x7ffe0000
	proc.regs.Eflags = 0x246

	sp, err := ReadDwarfRegister(proc, regnum.AMD64_Rsp)
	require.NoError(t, err)
	assert.Equal(t, uint64(0x7ffe0000), sp)

	flags, err := ReadDwarfRegister(proc, regnum.AMD64_Rflags)
	require.NoError(t, err)
	assert.Equal(t, uint64(0x246), flags)

	_, err = ReadDwarfRegister(proc, 17)
	assert.True(t, errors.Is(err, arch.ErrNoDwarfRegister))
}

func TestGetDwarfRegs(t *testing.T) {
	proc := newFakeProcess(opExit)
	proc.regs.Rbp = 0x7ffe0010
	proc.regs.R15 = 15

	dregs, err := GetDwarfRegs(proc)
	require.NoError(t, err)
	assert.Equal(t, uint64(fakeBase), dregs.PC())
	assert.Equal(t, uint64(0x7ffe0010), dregs.BP())
	assert.Equal(t, uint64(15), dregs.Uint64Val(regnum.AMD64_R15))
}
