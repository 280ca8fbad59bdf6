package common

import (
	"os"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/razzie/razdbg/logflags"
)

const (
	personalityGetPersonality = 0xffffffff // argument to pass to personality syscall to get the current personality
	_ADDR_NO_RANDOMIZE        = 0x0040000  // ADDR_NO_RANDOMIZE linux constant
)

// Process is a wrapper around Linux's ptrace API for a single traced process
type Process struct {
	pid    int
	thread *traceThread
}

// LaunchOptions controls how the traced process is started
type LaunchOptions struct {
	DisableASLR bool
	Dir         string
	Stdin       *os.File
	Stdout      *os.File
	Stderr      *os.File
}

// Launch starts argv[0] as a traced child. The child requests tracing before
// exec, so the returned process is already stopped at its first instruction.
func Launch(argv []string, opts LaunchOptions) (*Process, error) {
	if len(argv) == 0 {
		return nil, Errorf("program name not specified")
	}

	log := logflags.TracerLogger()
	p := &Process{thread: newTraceThread()}

	err := p.thread.exec(func() error {
		if opts.DisableASLR {
			oldPersonality, _, errno := syscall.Syscall(unix.SYS_PERSONALITY, personalityGetPersonality, 0, 0)
			if errno == 0 {
				newPersonality := oldPersonality | _ADDR_NO_RANDOMIZE
				syscall.Syscall(unix.SYS_PERSONALITY, newPersonality, 0, 0)
				defer syscall.Syscall(unix.SYS_PERSONALITY, oldPersonality, 0, 0)
			}
		}

		cmd := exec.Command(argv[0])
		cmd.Args = argv
		cmd.Dir = opts.Dir
		cmd.Stdin = fileOr(opts.Stdin, os.Stdin)
		cmd.Stdout = fileOr(opts.Stdout, os.Stdout)
		cmd.Stderr = fileOr(opts.Stderr, os.Stderr)
		cmd.SysProcAttr = &syscall.SysProcAttr{
			Ptrace:  true,
			Setpgid: true,
		}

		if err := cmd.Start(); err != nil {
			return err
		}
		p.pid = cmd.Process.Pid

		var status unix.WaitStatus
		if _, err := unix.Wait4(p.pid, &status, unix.WALL, nil); err != nil {
			return err
		}
		if !status.Stopped() {
			return Errorf("process %d did not stop after exec (status %#x)", p.pid, uint32(status))
		}

		return unix.PtraceSetOptions(p.pid, unix.PTRACE_O_EXITKILL)
	})
	if err != nil {
		p.thread.stop()
		return nil, Error(err)
	}

	log.Debugf("launched %v as pid %d", argv, p.pid)
	return p, nil
}

// Attach starts tracing a running process and waits until it stops
func Attach(pid int) (*Process, error) {
	log := logflags.TracerLogger()
	p := &Process{pid: pid, thread: newTraceThread()}

	err := p.thread.exec(func() error {
		if err := unix.PtraceAttach(pid); err != nil {
			return err
		}

		var status unix.WaitStatus
		_, err := unix.Wait4(pid, &status, unix.WALL, nil)
		return err
	})
	if err != nil {
		p.thread.stop()
		return nil, Error(err)
	}

	log.Debugf("attached to pid %d", pid)
	return p, nil
}

func fileOr(f, def *os.File) *os.File {
	if f != nil {
		return f
	}
	return def
}

// PID returns the process ID
func (p *Process) PID() int {
	return p.pid
}

// PeekWord reads one word from the process' memory
func (p *Process) PeekWord(addr uintptr) (uint64, error) {
	var buf [8]byte
	err := p.thread.exec(func() error {
		_, err := unix.PtracePeekData(p.pid, addr, buf[:])
		return err
	})
	if err != nil {
		return 0, err
	}

	return ByteOrder.Uint64(buf[:]), nil
}

// PokeWord writes one word to the process' memory
func (p *Process) PokeWord(addr uintptr, word uint64) error {
	var buf [8]byte
	ByteOrder.PutUint64(buf[:], word)

	return p.thread.exec(func() error {
		_, err := unix.PtracePokeData(p.pid, addr, buf[:])
		return err
	})
}

// PeekData reads arbitrary length data from the process' memory
func (p *Process) PeekData(addr uintptr, out []byte) error {
	return p.thread.exec(func() error {
		_, err := unix.PtracePeekData(p.pid, addr, out)
		return err
	})
}

// GetRegs fetches the whole register set
func (p *Process) GetRegs(regs *unix.PtraceRegs) error {
	return p.thread.exec(func() error {
		return unix.PtraceGetRegs(p.pid, regs)
	})
}

// SetRegs commits the whole register set
func (p *Process) SetRegs(regs *unix.PtraceRegs) error {
	return p.thread.exec(func() error {
		return unix.PtraceSetRegs(p.pid, regs)
	})
}

// Cont continues the traced process and delivers a signal (0 for none)
func (p *Process) Cont(sig unix.Signal) error {
	return p.thread.exec(func() error {
		return unix.PtraceCont(p.pid, int(sig))
	})
}

// SingleStep makes the process execute a single instruction
func (p *Process) SingleStep() error {
	return p.thread.exec(func() error {
		return unix.PtraceSingleStep(p.pid)
	})
}

// Wait blocks until the process stops, is killed or exits
func (p *Process) Wait() (unix.WaitStatus, error) {
	var status unix.WaitStatus
	err := p.thread.exec(func() error {
		for {
			_, err := unix.Wait4(p.pid, &status, unix.WALL, nil)
			if err == unix.EINTR {
				continue
			}
			return err
		}
	})
	if err == nil && (status.Exited() || status.Signaled()) {
		p.thread.stop()
	}

	return status, err
}

// Kill kills the process and reaps it
func (p *Process) Kill() error {
	err := p.thread.exec(func() error {
		if err := unix.Kill(p.pid, unix.SIGKILL); err != nil {
			return err
		}

		var status unix.WaitStatus
		_, err := unix.Wait4(p.pid, &status, unix.WALL, nil)
		return err
	})
	p.thread.stop()
	return err
}

// Detach stops tracing the process and lets it run
func (p *Process) Detach() error {
	err := p.thread.exec(func() error {
		return unix.PtraceDetach(p.pid)
	})
	p.thread.stop()
	return err
}
