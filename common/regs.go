package common

import (
	"github.com/go-delve/delve/pkg/dwarf/op"
	"github.com/go-delve/delve/pkg/dwarf/regnum"
	"golang.org/x/sys/unix"

	"github.com/razzie/razdbg/arch"
)

// RegisterFile fetches and commits the whole register set of a traced process
type RegisterFile interface {
	GetRegs(regs *unix.PtraceRegs) error
	SetRegs(regs *unix.PtraceRegs) error
}

// ReadRegister returns the current value of a register
func ReadRegister(rf RegisterFile, r arch.Register) (uint64, error) {
	var regs unix.PtraceRegs
	if err := rf.GetRegs(&regs); err != nil {
		return 0, &RegisterError{Reg: r.String(), Op: "read", Err: err}
	}

	return r.Get(&regs), nil
}

// WriteRegister sets the value of a register, committing the whole register set
func WriteRegister(rf RegisterFile, r arch.Register, value uint64) error {
	var regs unix.PtraceRegs
	if err := rf.GetRegs(&regs); err != nil {
		return &RegisterError{Reg: r.String(), Op: "write", Err: err}
	}

	r.Set(&regs, value)

	if err := rf.SetRegs(&regs); err != nil {
		return &RegisterError{Reg: r.String(), Op: "write", Err: err}
	}

	return nil
}

// ReadDwarfRegister reads the register identified by its DWARF register number
func ReadDwarfRegister(rf RegisterFile, num int) (uint64, error) {
	r, err := arch.RegisterByDwarf(num)
	if err != nil {
		return 0, err
	}

	return ReadRegister(rf, r)
}

// GetDwarfRegs returns the current register values mapped to dwarf register numbers
func GetDwarfRegs(rf RegisterFile) (*op.DwarfRegisters, error) {
	var regs unix.PtraceRegs
	if err := rf.GetRegs(&regs); err != nil {
		return nil, &RegisterError{Reg: "all", Op: "read", Err: err}
	}

	dregs := op.NewDwarfRegisters(0, nil, ByteOrder,
		regnum.AMD64_Rip, regnum.AMD64_Rsp, regnum.AMD64_Rbp, 0)

	for _, r := range arch.Registers() {
		if num := r.DwarfNum(); num != arch.NoDwarfNum {
			dregs.AddReg(uint64(num), op.DwarfRegisterFromUint64(r.Get(&regs)))
		}
	}
	// the register table leaves rip unnumbered, DWARF calls it 16
	dregs.AddReg(regnum.AMD64_Rip, op.DwarfRegisterFromUint64(arch.PCReg.Get(&regs)))

	return dregs, nil
}
