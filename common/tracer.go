package common

import (
	"fmt"
	"sort"

	"github.com/go-delve/delve/pkg/dwarf/op"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/razzie/razdbg/arch"
	"github.com/razzie/razdbg/logflags"
)

// Tracee is the set of trace primitives a Tracer drives
type Tracee interface {
	Memory
	RegisterFile
	PID() int
	Cont(sig unix.Signal) error
	SingleStep() error
	Wait() (unix.WaitStatus, error)
	Kill() error
	Detach() error
}

// SourceLocation is the function and source line of a static address
type SourceLocation struct {
	Function string
	LowPC    uintptr
	HighPC   uintptr
	File     string
	Line     int
	Column   int
}

func (loc *SourceLocation) String() string {
	if loc.File == "" {
		return loc.Function
	}
	return fmt.Sprintf("%s() %s:%d", loc.Function, loc.File, loc.Line)
}

// SymbolResolver maps static addresses to source locations.
// It returns ErrNoDebugInfo when the address is not covered.
type SymbolResolver interface {
	Locate(pc uintptr) (*SourceLocation, error)
}

// StopEvent is received when the traced process stops or exits
type StopEvent struct {
	Status     unix.WaitStatus
	Exited     bool
	ExitCode   int
	Signaled   bool // killed by Signal
	Signal     unix.Signal
	PC         uintptr
	Breakpoint *Breakpoint
}

func (evt *StopEvent) String() string {
	switch {
	case evt.Exited:
		return fmt.Sprintf("process exited with status %d", evt.ExitCode)
	case evt.Signaled:
		return fmt.Sprintf("process killed by %v", evt.Signal)
	case evt.Breakpoint != nil:
		return fmt.Sprintf("breakpoint hit at %#x", evt.Breakpoint.Address())
	default:
		return fmt.Sprintf("process stopped with %v at %#x", evt.Signal, evt.PC)
	}
}

// RegisterValue is a register and its value at the time of a dump
type RegisterValue struct {
	Reg   arch.Register
	Value uint64
}

// Tracer is a debugging session of a single traced process.
// It owns the breakpoints of the process; methods must not be called concurrently.
type Tracer struct {
	proc          Tracee
	translator    *AddressTranslator
	resolver      SymbolResolver
	breakpoints   map[uintptr]*Breakpoint
	atBreakpoint  *Breakpoint // set while stopped right after its trap
	deliverSignal unix.Signal
	exited        bool
	log           *logrus.Entry
}

// NewTracer returns a Tracer of a stopped process.
// resolver may be nil if the program has no debug info.
func NewTracer(proc Tracee, translator *AddressTranslator, resolver SymbolResolver) *Tracer {
	return &Tracer{
		proc:        proc,
		translator:  translator,
		resolver:    resolver,
		breakpoints: make(map[uintptr]*Breakpoint),
		log:         logflags.TracerLogger().WithField("pid", proc.PID()),
	}
}

// PID returns the process ID of the traced process
func (t *Tracer) PID() int {
	return t.proc.PID()
}

// Translator returns the address translator of the session
func (t *Tracer) Translator() *AddressTranslator {
	return t.translator
}

// Exited returns whether the session is over
func (t *Tracer) Exited() bool {
	return t.exited
}

func (t *Tracer) checkAlive() error {
	if t.exited {
		return ErrProcessExited
	}
	return nil
}

// SetBreakpoint sets a breakpoint at the given static address
func (t *Tracer) SetBreakpoint(addr uintptr) (*Breakpoint, error) {
	if err := t.checkAlive(); err != nil {
		return nil, err
	}

	return t.SetBreakpointAtRuntime(t.translator.ToRuntime(addr))
}

// SetBreakpointAtRuntime sets a breakpoint at the given runtime address,
// replacing the breakpoint already set there
func (t *Tracer) SetBreakpointAtRuntime(addr uintptr) (*Breakpoint, error) {
	if err := t.checkAlive(); err != nil {
		return nil, err
	}

	old, exists := t.breakpoints[addr]
	if exists {
		if err := old.Disable(); err != nil {
			return nil, Error(err)
		}
		delete(t.breakpoints, addr)
	}

	bp := NewBreakpoint(t.proc, addr)
	if err := bp.Enable(); err != nil {
		// the old trap already ran, so rewind onto the restored instruction
		if exists && t.atBreakpoint == old {
			t.atBreakpoint = nil
			if perr := t.SetPC(addr); perr != nil {
				return nil, MergeErrors([]error{err, perr})
			}
		}
		return nil, Error(err)
	}

	if exists && t.atBreakpoint == old {
		t.atBreakpoint = bp
	}

	t.breakpoints[addr] = bp
	t.log.Debugf("breakpoint set at %#x", addr)
	return bp, nil
}

// RemoveBreakpoint removes the breakpoint at the given static address
func (t *Tracer) RemoveBreakpoint(addr uintptr) error {
	if err := t.checkAlive(); err != nil {
		return err
	}

	addr = t.translator.ToRuntime(addr)
	bp, found := t.breakpoints[addr]
	if !found {
		return fmt.Errorf("%w: %#x", ErrNoBreakpoint, addr)
	}

	if err := bp.Disable(); err != nil {
		return Error(err)
	}
	delete(t.breakpoints, addr)

	// the trap already ran, the original instruction did not
	if t.atBreakpoint == bp {
		t.atBreakpoint = nil
		if err := t.SetPC(addr); err != nil {
			return Error(err)
		}
	}

	t.log.Debugf("breakpoint removed from %#x", addr)
	return nil
}

// BreakpointAt returns the breakpoint at the given static address
func (t *Tracer) BreakpointAt(addr uintptr) (*Breakpoint, error) {
	bp, found := t.breakpoints[t.translator.ToRuntime(addr)]
	if !found {
		return nil, fmt.Errorf("%w: %#x", ErrNoBreakpoint, addr)
	}
	return bp, nil
}

// Breakpoints returns the breakpoints ordered by address
func (t *Tracer) Breakpoints() []*Breakpoint {
	bps := make([]*Breakpoint, 0, len(t.breakpoints))
	for _, bp := range t.breakpoints {
		bps = append(bps, bp)
	}

	sort.Slice(bps, func(i, j int) bool {
		return bps[i].addr < bps[j].addr
	})
	return bps
}

// Continue resumes the process and blocks until it stops or exits
func (t *Tracer) Continue() (*StopEvent, error) {
	if err := t.checkAlive(); err != nil {
		return nil, err
	}

	evt, err := t.StepOverBreakpoint()
	if err != nil {
		return nil, Error(err)
	}
	if evt != nil && !isPlainTrap(evt) {
		return evt, nil
	}

	sig := t.deliverSignal
	t.deliverSignal = 0

	if err := t.proc.Cont(sig); err != nil {
		return nil, Error(err)
	}

	return t.waitForStop(false, 0)
}

// StepInstruction executes a single instruction
func (t *Tracer) StepInstruction() (*StopEvent, error) {
	if err := t.checkAlive(); err != nil {
		return nil, err
	}

	evt, err := t.StepOverBreakpoint()
	if err != nil || evt != nil {
		return evt, Error(err)
	}

	pc, err := t.GetPC()
	if err != nil {
		return nil, Error(err)
	}

	t.deliverSignal = 0
	if err := t.proc.SingleStep(); err != nil {
		return nil, Error(err)
	}

	return t.waitForStop(true, pc)
}

// StepOverBreakpoint executes the original instruction under the breakpoint
// the process is stopped at: rewinds the PC, disables the breakpoint,
// single steps and enables the breakpoint again. It returns nil if the
// process is not stopped at a breakpoint.
func (t *Tracer) StepOverBreakpoint() (*StopEvent, error) {
	bp := t.atBreakpoint
	t.atBreakpoint = nil

	if bp == nil || !bp.IsEnabled() {
		return nil, nil
	}

	pc, err := t.GetPC()
	if err != nil {
		return nil, Error(err)
	}
	if pc != bp.addr+trapInstructionSize {
		// moved away with SetPC
		return nil, nil
	}

	if err := t.SetPC(bp.addr); err != nil {
		return nil, Error(err)
	}

	if err := bp.Disable(); err != nil {
		return nil, Error(err)
	}

	if err := t.proc.SingleStep(); err != nil {
		return nil, Error(err)
	}

	evt, err := t.waitForStop(true, bp.addr)
	if err != nil {
		return nil, Error(err)
	}
	if evt.Exited || evt.Signaled {
		return evt, nil
	}

	if err := bp.Enable(); err != nil {
		return evt, Error(err)
	}

	return evt, nil
}

func isPlainTrap(evt *StopEvent) bool {
	return !evt.Exited && !evt.Signaled && evt.Signal == unix.SIGTRAP && evt.Breakpoint == nil
}

func (t *Tracer) waitForStop(stepping bool, stepFrom uintptr) (*StopEvent, error) {
	status, err := t.proc.Wait()
	if err != nil {
		return nil, Error(err)
	}

	evt := &StopEvent{Status: status}
	t.atBreakpoint = nil

	switch {
	case status.Exited():
		evt.Exited = true
		evt.ExitCode = status.ExitStatus()
		t.markExited()
		return evt, nil

	case status.Signaled():
		evt.Signaled = true
		evt.Signal = status.Signal()
		t.markExited()
		return evt, nil
	}

	evt.Signal = status.StopSignal()
	evt.PC, err = t.GetPC()
	if err != nil {
		return nil, Error(err)
	}

	switch evt.Signal {
	case unix.SIGTRAP:
		bp, found := t.breakpoints[evt.PC-trapInstructionSize]
		// a single step only hits the breakpoint it started on
		if found && bp.IsEnabled() && (!stepping || stepFrom == bp.addr) {
			bp.hits++
			t.atBreakpoint = bp
			evt.Breakpoint = bp
		}

	case unix.SIGSTOP:

	default:
		t.deliverSignal = evt.Signal
	}

	t.log.Debugf("stopped: %v", evt)
	return evt, nil
}

func (t *Tracer) markExited() {
	t.exited = true
	t.atBreakpoint = nil
	t.breakpoints = make(map[uintptr]*Breakpoint)
	t.log.Debug("process exited")
}

// ReadMemory reads a word from the memory of the process
func (t *Tracer) ReadMemory(addr uintptr) (uint64, error) {
	if err := t.checkAlive(); err != nil {
		return 0, err
	}

	word, err := t.proc.PeekWord(addr)
	if err != nil {
		return 0, &MemoryError{Addr: addr, Op: "read", Err: err}
	}
	return word, nil
}

// WriteMemory writes a word to the memory of the process
func (t *Tracer) WriteMemory(addr uintptr, value uint64) error {
	if err := t.checkAlive(); err != nil {
		return err
	}

	if err := t.proc.PokeWord(addr, value); err != nil {
		return &MemoryError{Addr: addr, Op: "write", Err: err}
	}
	return nil
}

// GetPC gets the program counter
func (t *Tracer) GetPC() (uintptr, error) {
	if err := t.checkAlive(); err != nil {
		return 0, err
	}

	pc, err := ReadRegister(t.proc, arch.PCReg)
	return uintptr(pc), err
}

// SetPC sets the program counter
func (t *Tracer) SetPC(pc uintptr) error {
	if err := t.checkAlive(); err != nil {
		return err
	}

	return WriteRegister(t.proc, arch.PCReg, uint64(pc))
}

// ReadRegister returns the value of the register with the given name
func (t *Tracer) ReadRegister(name string) (uint64, error) {
	if err := t.checkAlive(); err != nil {
		return 0, err
	}

	r, err := arch.RegisterByName(name)
	if err != nil {
		return 0, err
	}
	return ReadRegister(t.proc, r)
}

// WriteRegister sets the value of the register with the given name
func (t *Tracer) WriteRegister(name string, value uint64) error {
	if err := t.checkAlive(); err != nil {
		return err
	}

	r, err := arch.RegisterByName(name)
	if err != nil {
		return err
	}
	return WriteRegister(t.proc, r, value)
}

// DumpRegisters returns every register value in ptrace dump order
func (t *Tracer) DumpRegisters() ([]RegisterValue, error) {
	if err := t.checkAlive(); err != nil {
		return nil, err
	}

	var regs unix.PtraceRegs
	if err := t.proc.GetRegs(&regs); err != nil {
		return nil, &RegisterError{Reg: "all", Op: "read", Err: err}
	}

	values := make([]RegisterValue, 0, arch.NumRegisters)
	for _, r := range arch.Registers() {
		values = append(values, RegisterValue{Reg: r, Value: r.Get(&regs)})
	}
	return values, nil
}

// DwarfRegisters returns the registers keyed by DWARF register number
func (t *Tracer) DwarfRegisters() (*op.DwarfRegisters, error) {
	if err := t.checkAlive(); err != nil {
		return nil, err
	}

	return GetDwarfRegs(t.proc)
}

// ResolveSourceLocation returns the function and source line of a runtime address
func (t *Tracer) ResolveSourceLocation(pc uintptr) (*SourceLocation, error) {
	if t.resolver == nil {
		return nil, ErrNoDebugInfo
	}

	return t.resolver.Locate(t.translator.ToStatic(pc))
}

// Close disables every breakpoint and then kills or detaches the process
func (t *Tracer) Close(kill bool) error {
	if t.exited {
		return nil
	}

	var errors []error
	for _, bp := range t.breakpoints {
		if err := bp.Disable(); err != nil {
			errors = append(errors, err)
		}
	}

	if t.atBreakpoint != nil {
		if err := t.SetPC(t.atBreakpoint.addr); err != nil {
			errors = append(errors, err)
		}
	}

	var err error
	if kill {
		err = t.proc.Kill()
	} else {
		err = t.proc.Detach()
	}
	if err != nil {
		errors = append(errors, err)
	}

	t.markExited()
	return MergeErrors(errors)
}
