package common

import (
	"golang.org/x/sys/unix"
)

// Opcodes understood by fakeProcess
const (
	opNop  = 0x90
	opInc  = 0x48 // rax++
	opTrap = 0xcc
	opExit = 0xf4 // exit(rax)
)

const fakeBase = 0x400000

// fakeProcess interprets a one byte instruction set over a flat memory
// image, standing in for a ptrace'd process
type fakeProcess struct {
	mem     []byte
	regs    unix.PtraceRegs
	status  unix.WaitStatus
	pending bool
	exited  bool

	peeks, pokes int
	failPeekAt   map[uintptr]bool
	failSetRegs  bool

	// peeks at these addresses fail once they were written
	failPeekAfterPoke map[uintptr]bool
}

func newFakeProcess(code ...byte) *fakeProcess {
	mem := make([]byte, 0x100)
	copy(mem, code)

	p := &fakeProcess{
		mem:               mem,
		failPeekAt:        make(map[uintptr]bool),
		failPeekAfterPoke: make(map[uintptr]bool),
	}
	p.regs.Rip = fakeBase
	return p
}

func (p *fakeProcess) PID() int { return 4242 }

func (p *fakeProcess) inRange(addr uintptr) bool {
	return addr >= fakeBase && addr+8 <= fakeBase+uintptr(len(p.mem))
}

func (p *fakeProcess) PeekWord(addr uintptr) (uint64, error) {
	if p.exited {
		return 0, unix.ESRCH
	}
	if !p.inRange(addr) || p.failPeekAt[addr] {
		return 0, unix.EIO
	}
	p.peeks++
	off := addr - fakeBase
	return ByteOrder.Uint64(p.mem[off : off+8]), nil
}

func (p *fakeProcess) PokeWord(addr uintptr, word uint64) error {
	if p.exited {
		return unix.ESRCH
	}
	if !p.inRange(addr) {
		return unix.EIO
	}
	p.pokes++
	off := addr - fakeBase
	ByteOrder.PutUint64(p.mem[off:off+8], word)
	if p.failPeekAfterPoke[addr] {
		delete(p.failPeekAfterPoke, addr)
		p.failPeekAt[addr] = true
	}
	return nil
}

func (p *fakeProcess) GetRegs(regs *unix.PtraceRegs) error {
	if p.exited {
		return unix.ESRCH
	}
	*regs = p.regs
	return nil
}

func (p *fakeProcess) SetRegs(regs *unix.PtraceRegs) error {
	if p.exited {
		return unix.ESRCH
	}
	if p.failSetRegs {
		return unix.EPERM
	}
	p.regs = *regs
	return nil
}

func stoppedStatus(sig unix.Signal) unix.WaitStatus {
	return unix.WaitStatus(uint32(sig)<<8 | 0x7f)
}

func exitedStatus(code int) unix.WaitStatus {
	return unix.WaitStatus(uint32(code&0xff) << 8)
}

func signaledStatus(sig unix.Signal) unix.WaitStatus {
	return unix.WaitStatus(uint32(sig))
}

// step executes one instruction and reports whether execution must stop
func (p *fakeProcess) step() bool {
	off := uintptr(p.regs.Rip) - fakeBase
	if off >= uintptr(len(p.mem)) {
		p.status = stoppedStatus(unix.SIGSEGV)
		return true
	}

	p.regs.Rip++
	switch p.mem[off] {
	case opNop:
	case opInc:
		p.regs.Rax++
	case opTrap:
		p.status = stoppedStatus(unix.SIGTRAP)
		return true
	case opExit:
		p.status = exitedStatus(int(p.regs.Rax))
		p.exited = true
		return true
	default:
		p.regs.Rip--
		p.status = stoppedStatus(unix.SIGILL)
		return true
	}
	return false
}

func (p *fakeProcess) Cont(sig unix.Signal) error {
	if p.exited {
		return unix.ESRCH
	}
	// a delivered signal is fatal to the fake
	if sig != 0 {
		p.status = signaledStatus(sig)
		p.exited = true
		p.pending = true
		return nil
	}
	for i := 0; i < 10000; i++ {
		if p.step() {
			p.pending = true
			return nil
		}
	}
	panic("fake process runs forever")
}

func (p *fakeProcess) SingleStep() error {
	if p.exited {
		return unix.ESRCH
	}
	if !p.step() {
		p.status = stoppedStatus(unix.SIGTRAP)
	}
	p.pending = true
	return nil
}

func (p *fakeProcess) Wait() (unix.WaitStatus, error) {
	if !p.pending {
		return 0, unix.ECHILD
	}
	p.pending = false
	return p.status, nil
}

func (p *fakeProcess) Kill() error {
	p.exited = true
	return nil
}

func (p *fakeProcess) Detach() error {
	return nil
}

func (p *fakeProcess) byteAt(addr uintptr) byte {
	return p.mem[addr-fakeBase]
}

func resolvedTranslator(load uintptr) *AddressTranslator {
	at := NewAddressTranslator()
	if err := at.Resolve(load); err != nil {
		panic(err)
	}
	return at
}
