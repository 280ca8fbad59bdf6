//go:build linux && amd64
// +build linux,amd64

package arch

import (
	"errors"
	"fmt"

	"github.com/go-delve/delve/pkg/dwarf/regnum"
	"golang.org/x/sys/unix"
)

// TrapInstruction contains the int3 trap instruction for x86-64 platform
var TrapInstruction = []byte{0xcc} // int3

// TrapInstructionSize is the amount the PC advances when the trap executes
const TrapInstructionSize = 1

// Register identifies a general purpose, pointer, flags or segment register
type Register int

// Registers of the x86-64 platform
const (
	Rax Register = iota
	Rbx
	Rcx
	Rdx
	Rdi
	Rsi
	Rbp
	Rsp
	R8
	R9
	R10
	R11
	R12
	R13
	R14
	R15
	Rip
	Rflags
	Cs
	OrigRax
	FsBase
	GsBase
	Fs
	Gs
	Ss
	Ds
	Es

	NumRegisters = int(iota)
)

// Special purpose registers
const (
	PCReg = Rip
	SPReg = Rsp
	FPReg = Rbp
)

// NoDwarfNum marks a register that has no DWARF register number
const NoDwarfNum = -1

var (
	// ErrUnknownRegister is returned when no register has the given name
	ErrUnknownRegister = errors.New("unknown register name")

	// ErrNoDwarfRegister is returned when no register has the given DWARF number
	ErrNoDwarfRegister = errors.New("register not representable in debug info")
)

type descriptor struct {
	ordinal int // index in the ptrace register dump
	dwarf   int
	name    string
}

// https://github.com/torvalds/linux/blob/master/arch/x86/include/uapi/asm/ptrace.h#L44
var descriptors = [NumRegisters]descriptor{
	R15:     {0, regnum.AMD64_R15, "r15"},
	R14:     {1, regnum.AMD64_R14, "r14"},
	R13:     {2, regnum.AMD64_R13, "r13"},
	R12:     {3, regnum.AMD64_R12, "r12"},
	Rbp:     {4, regnum.AMD64_Rbp, "rbp"},
	Rbx:     {5, regnum.AMD64_Rbx, "rbx"},
	R11:     {6, regnum.AMD64_R11, "r11"},
	R10:     {7, regnum.AMD64_R10, "r10"},
	R9:      {8, regnum.AMD64_R9, "r9"},
	R8:      {9, regnum.AMD64_R8, "r8"},
	Rax:     {10, regnum.AMD64_Rax, "rax"},
	Rcx:     {11, regnum.AMD64_Rcx, "rcx"},
	Rdx:     {12, regnum.AMD64_Rdx, "rdx"},
	Rsi:     {13, regnum.AMD64_Rsi, "rsi"},
	Rdi:     {14, regnum.AMD64_Rdi, "rdi"},
	OrigRax: {15, NoDwarfNum, "orig_rax"},
	Rip:     {16, NoDwarfNum, "rip"},
	Cs:      {17, regnum.AMD64_Cs, "cs"},
	Rflags:  {18, regnum.AMD64_Rflags, "eflags"},
	Rsp:     {19, regnum.AMD64_Rsp, "rsp"},
	Ss:      {20, regnum.AMD64_Ss, "ss"},
	FsBase:  {21, regnum.AMD64_Fs_base, "fs_base"},
	GsBase:  {22, regnum.AMD64_Gs_base, "gs_base"},
	Ds:      {23, regnum.AMD64_Ds, "ds"},
	Es:      {24, regnum.AMD64_Es, "es"},
	Fs:      {25, regnum.AMD64_Fs, "fs"},
	Gs:      {26, regnum.AMD64_Gs, "gs"},
}

// field accessors of unix.PtraceRegs, indexed by ordinal
var fields = [NumRegisters]func(*unix.PtraceRegs) *uint64{
	func(r *unix.PtraceRegs) *uint64 { return &r.R15 },
	func(r *unix.PtraceRegs) *uint64 { return &r.R14 },
	func(r *unix.PtraceRegs) *uint64 { return &r.R13 },
	func(r *unix.PtraceRegs) *uint64 { return &r.R12 },
	func(r *unix.PtraceRegs) *uint64 { return &r.Rbp },
	func(r *unix.PtraceRegs) *uint64 { return &r.Rbx },
	func(r *unix.PtraceRegs) *uint64 { return &r.R11 },
	func(r *unix.PtraceRegs) *uint64 { return &r.R10 },
	func(r *unix.PtraceRegs) *uint64 { return &r.R9 },
	func(r *unix.PtraceRegs) *uint64 { return &r.R8 },
	func(r *unix.PtraceRegs) *uint64 { return &r.Rax },
	func(r *unix.PtraceRegs) *uint64 { return &r.Rcx },
	func(r *unix.PtraceRegs) *uint64 { return &r.Rdx },
	func(r *unix.PtraceRegs) *uint64 { return &r.Rsi },
	func(r *unix.PtraceRegs) *uint64 { return &r.Rdi },
	func(r *unix.PtraceRegs) *uint64 { return &r.Orig_rax },
	func(r *unix.PtraceRegs) *uint64 { return &r.Rip },
	func(r *unix.PtraceRegs) *uint64 { return &r.Cs },
	func(r *unix.PtraceRegs) *uint64 { return &r.Eflags },
	func(r *unix.PtraceRegs) *uint64 { return &r.Rsp },
	func(r *unix.PtraceRegs) *uint64 { return &r.Ss },
	func(r *unix.PtraceRegs) *uint64 { return &r.Fs_base },
	func(r *unix.PtraceRegs) *uint64 { return &r.Gs_base },
	func(r *unix.PtraceRegs) *uint64 { return &r.Ds },
	func(r *unix.PtraceRegs) *uint64 { return &r.Es },
	func(r *unix.PtraceRegs) *uint64 { return &r.Fs },
	func(r *unix.PtraceRegs) *uint64 { return &r.Gs },
}

var (
	byName  map[string]Register
	byDwarf map[int]Register
	ordered []Register // ptrace dump order
)

func init() {
	if err := buildIndexes(); err != nil {
		panic(err)
	}
}

func buildIndexes() error {
	byName = make(map[string]Register, NumRegisters)
	byDwarf = make(map[int]Register, NumRegisters)
	ordered = make([]Register, NumRegisters)
	seen := make([]bool, NumRegisters)

	for i, d := range descriptors {
		r := Register(i)

		if d.name == "" {
			return fmt.Errorf("register %d has no descriptor", i)
		}
		if d.ordinal < 0 || d.ordinal >= NumRegisters || seen[d.ordinal] {
			return fmt.Errorf("register %s: bad ordinal %d", d.name, d.ordinal)
		}
		seen[d.ordinal] = true
		ordered[d.ordinal] = r

		if _, dup := byName[d.name]; dup {
			return fmt.Errorf("duplicate register name %s", d.name)
		}
		byName[d.name] = r

		if d.dwarf == NoDwarfNum {
			continue
		}
		if prev, dup := byDwarf[d.dwarf]; dup {
			return fmt.Errorf("registers %s and %s share DWARF number %d", prev, d.name, d.dwarf)
		}
		byDwarf[d.dwarf] = r
	}

	return nil
}

// Registers returns every register in ptrace dump order
func Registers() []Register {
	regs := make([]Register, len(ordered))
	copy(regs, ordered)
	return regs
}

// RegisterByName returns the register with the given display name
func RegisterByName(name string) (Register, error) {
	r, ok := byName[name]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownRegister, name)
	}
	return r, nil
}

// RegisterByDwarf returns the register with the given DWARF register number
func RegisterByDwarf(num int) (Register, error) {
	r, ok := byDwarf[num]
	if !ok {
		return 0, fmt.Errorf("%w: %d", ErrNoDwarfRegister, num)
	}
	return r, nil
}

func (r Register) valid() bool {
	return r >= 0 && int(r) < NumRegisters
}

// String returns the display name of the register
func (r Register) String() string {
	if !r.valid() {
		return fmt.Sprintf("Register(%d)", int(r))
	}
	return descriptors[r].name
}

// DwarfNum returns the DWARF number of the register or NoDwarfNum
func (r Register) DwarfNum() int {
	return descriptors[r].dwarf
}

// Get returns the value of the register from a register dump
func (r Register) Get(regs *unix.PtraceRegs) uint64 {
	return *fields[descriptors[r].ordinal](regs)
}

// Set overwrites the value of the register in a register dump
func (r Register) Set(regs *unix.PtraceRegs, value uint64) {
	*fields[descriptors[r].ordinal](regs) = value
}
