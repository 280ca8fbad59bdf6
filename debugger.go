// Package razdbg ties a traced process to the debug information of its
// executable.
package razdbg

import (
	"debug/elf"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/razzie/razdbg/common"
	"github.com/razzie/razdbg/data"
	"github.com/razzie/razdbg/logflags"
)

// Options configures a debugging session
type Options struct {
	common.LaunchOptions
	SymbolCacheSize int
}

// Debugger is a debugging session of a launched or attached process
type Debugger struct {
	*common.Tracer
	proc    *common.Process
	Program string
	Debug   *data.DebugData // nil if the program has no debug info
	log     *logrus.Entry
}

// Launch starts the program in argv stopped at its first instruction
func Launch(argv []string, opts Options) (*Debugger, error) {
	proc, err := common.Launch(argv, opts.LaunchOptions)
	if err != nil {
		return nil, common.Error(err)
	}

	dbg, err := newDebugger(proc, opts)
	if err != nil {
		proc.Kill()
		return nil, common.Error(err)
	}
	return dbg, nil
}

// Attach stops the running process pid and starts debugging it
func Attach(pid int, opts Options) (*Debugger, error) {
	proc, err := common.Attach(pid)
	if err != nil {
		return nil, common.Error(err)
	}

	dbg, err := newDebugger(proc, opts)
	if err != nil {
		proc.Detach()
		return nil, common.Error(err)
	}
	return dbg, nil
}

func newDebugger(proc *common.Process, opts Options) (*Debugger, error) {
	log := logflags.TracerLogger().WithField("pid", proc.PID())

	exe, err := proc.ExePath()
	if err != nil {
		return nil, common.Error(err)
	}

	dbg := &Debugger{
		proc:    proc,
		Program: exe,
		log:     log,
	}

	dbg.Debug, err = data.Open(exe, opts.SymbolCacheSize)
	if err != nil {
		log.Warnf("%s: debug info not loaded: %v", exe, err)
		dbg.Debug = nil
	}

	pie, err := dbg.isPIE()
	if err != nil {
		return nil, common.Error(err)
	}

	load, err := proc.LoadAddress(pie)
	if err != nil {
		return nil, common.Error(err)
	}

	translator := common.NewAddressTranslator()
	if err := translator.Resolve(load); err != nil {
		return nil, common.Error(err)
	}

	var resolver common.SymbolResolver
	if dbg.Debug != nil {
		resolver = dbg.Debug
	}

	dbg.Tracer = common.NewTracer(proc, translator, resolver)
	log.Debugf("%s loaded at %#x", exe, load)
	return dbg, nil
}

func (dbg *Debugger) isPIE() (bool, error) {
	if dbg.Debug != nil {
		return dbg.Debug.IsPIE(), nil
	}

	f, err := elf.Open(dbg.Program)
	if err != nil {
		return false, common.Error(err)
	}
	defer f.Close()

	return f.Type == elf.ET_DYN, nil
}

// BreakAt sets breakpoints at a location: a static address (0x401126),
// a function name (main) or a source line (main.c:12).
// It returns the breakpoints that were set.
func (dbg *Debugger) BreakAt(location string) ([]*common.Breakpoint, error) {
	loc, err := ParseLocation(location)
	if err != nil {
		return nil, err
	}

	addrs, err := dbg.resolveLocation(loc)
	if err != nil {
		return nil, err
	}

	bps := make([]*common.Breakpoint, 0, len(addrs))
	for _, addr := range addrs {
		bp, err := dbg.SetBreakpoint(addr)
		if err != nil {
			return bps, common.Error(err)
		}
		bps = append(bps, bp)
	}

	return bps, nil
}

func (dbg *Debugger) resolveLocation(loc *Location) ([]uintptr, error) {
	if loc.Kind == AddressLocation {
		return []uintptr{loc.Address}, nil
	}

	if dbg.Debug == nil {
		return nil, common.Errorf("%w: cannot resolve %v", common.ErrNoDebugInfo, loc)
	}

	switch loc.Kind {
	case FunctionLocation:
		addrs := dbg.Debug.GetFunctionAddresses(loc.Function, true)
		if len(addrs) == 0 {
			return nil, common.Errorf("function not found: %s", loc.Function)
		}
		return addrs, nil

	case LineLocation:
		addr, err := dbg.Debug.LineAddress(loc.File, loc.Line)
		if err != nil {
			return nil, common.Error(err)
		}
		return []uintptr{addr}, nil
	}

	return nil, common.Errorf("unknown location kind %d", loc.Kind)
}

// SharedLibs returns the shared libraries mapped into the process
func (dbg *Debugger) SharedLibs() ([]common.SharedLibrary, error) {
	if dbg.Exited() {
		return nil, common.ErrProcessExited
	}
	return dbg.proc.SharedLibs()
}

// Close ends the session, killing a launched process or detaching from it.
func (dbg *Debugger) Close(kill bool) error {
	var errs []error
	if err := dbg.Tracer.Close(kill); err != nil {
		errs = append(errs, err)
	}

	if dbg.Debug != nil {
		if err := dbg.Debug.Close(); err != nil {
			errs = append(errs, err)
		}
		dbg.Debug = nil
	}

	return common.MergeErrors(errs)
}

func (dbg *Debugger) String() string {
	status := "running"
	if dbg.Exited() {
		status = "exited"
	}
	return fmt.Sprintf("%s (pid %d, %s)", dbg.Program, dbg.PID(), status)
}

// IsExited reports whether err means the traced process is gone
func IsExited(err error) bool {
	return errors.Is(err, common.ErrProcessExited)
}
