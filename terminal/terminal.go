// Package terminal implements the line oriented razdbg front-end.
package terminal

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/go-delve/delve/pkg/dwarf/op"
	"github.com/go-delve/liner"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/razzie/razdbg/common"
	"github.com/razzie/razdbg/config"
	"github.com/razzie/razdbg/logflags"
)

const (
	terminalHighlightEscapeCode string = "\033[%2dm"
	terminalResetEscapeCode     string = "\033[0m"
	ansiBlue                           = 34
)

// Target is the debugging session driven by the commands
type Target interface {
	PID() int
	Exited() bool
	Continue() (*common.StopEvent, error)
	StepInstruction() (*common.StopEvent, error)
	BreakAt(location string) ([]*common.Breakpoint, error)
	RemoveBreakpoint(addr uintptr) error
	Breakpoints() []*common.Breakpoint
	ReadRegister(name string) (uint64, error)
	WriteRegister(name string, value uint64) error
	DumpRegisters() ([]common.RegisterValue, error)
	DwarfRegisters() (*op.DwarfRegisters, error)
	ReadMemory(addr uintptr) (uint64, error)
	WriteMemory(addr uintptr, value uint64) error
	ResolveSourceLocation(pc uintptr) (*common.SourceLocation, error)
	Stacktrace(maxDepth int) ([]common.StackFrame, error)
	SharedLibs() ([]common.SharedLibrary, error)
	Translator() *common.AddressTranslator
}

// Term represents the terminal running razdbg.
type Term struct {
	target Target
	conf   *config.Config
	prompt string
	line   *liner.State
	cmds   *Commands
	dumb   bool
	stdout io.Writer
	log    *logrus.Entry

	runningMutex sync.Mutex
	running      bool
}

// New returns a new Term reading commands with line editing.
func New(target Target, conf *config.Config) *Term {
	w, dumb := getColorableWriter()
	t := NewHeadless(target, conf, w)
	t.dumb = dumb
	t.line = liner.NewLiner()
	return t
}

// NewHeadless returns a Term that only executes commands, writing their output to w.
func NewHeadless(target Target, conf *config.Config, w io.Writer) *Term {
	if conf == nil {
		conf = config.Default()
	}

	cmds := DebugCommands()
	if conf.Aliases != nil {
		cmds.Merge(conf.Aliases)
	}

	prompt := conf.Prompt
	if prompt == "" {
		prompt = config.Default().Prompt
	}

	return &Term{
		target: target,
		conf:   conf,
		prompt: prompt,
		cmds:   cmds,
		dumb:   true,
		stdout: w,
		log:    logflags.TerminalLogger(),
	}
}

// Commands returns the command table of the terminal
func (t *Term) Commands() *Commands {
	return t.cmds
}

// Close returns the terminal to its previous mode.
func (t *Term) Close() {
	if t.line != nil {
		t.line.Close()
	}
}

// Call executes a single command line.
func (t *Term) Call(cmdstr string) error {
	return t.cmds.Call(cmdstr, t)
}

// run resumes the target, marking it as running so SIGINT can stop it
func (t *Term) run(fn func() (*common.StopEvent, error)) (*common.StopEvent, error) {
	t.runningMutex.Lock()
	t.running = true
	t.runningMutex.Unlock()

	defer func() {
		t.runningMutex.Lock()
		t.running = false
		t.runningMutex.Unlock()
	}()

	return fn()
}

func (t *Term) sigintGuard(ch <-chan os.Signal) {
	for range ch {
		t.runningMutex.Lock()
		running := t.running
		t.runningMutex.Unlock()

		if !running {
			continue
		}

		if err := unix.Kill(t.target.PID(), unix.SIGSTOP); err != nil {
			fmt.Fprintf(os.Stderr, "could not stop process: %v\n", err)
		}
	}
}

// Run begins running razdbg in the terminal.
func (t *Term) Run() (int, error) {
	defer t.Close()

	// Stop the traced process on SIGINT
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT)
	defer signal.Stop(ch)
	go t.sigintGuard(ch)

	t.line.SetCompleter(func(line string) []string {
		return t.cmds.Complete(line)
	})

	t.loadHistory()
	fmt.Fprintln(t.stdout, "Type 'help' for list of commands.")

	for {
		cmdstr, err := t.promptForInput()
		if err != nil {
			if err == io.EOF {
				fmt.Fprintln(t.stdout, "exit")
				return t.handleExit()
			}
			return 1, fmt.Errorf("prompt for input failed: %v", err)
		}

		if err := t.Call(cmdstr); err != nil {
			if _, ok := err.(ExitRequestError); ok {
				return t.handleExit()
			}
			var traced *common.TracedError
			if errors.As(err, &traced) {
				t.log.Debug(traced.Trace())
			}
			fmt.Fprintf(os.Stderr, "Command failed: %s\n", err)
		}
	}
}

// Println prints a line to the terminal.
func (t *Term) Println(prefix, str string) {
	if !t.dumb {
		terminalColorEscapeCode := fmt.Sprintf(terminalHighlightEscapeCode, ansiBlue)
		prefix = fmt.Sprintf("%s%s%s", terminalColorEscapeCode, prefix, terminalResetEscapeCode)
	}
	fmt.Fprintf(t.stdout, "%s%s\n", prefix, str)
}

func (t *Term) promptForInput() (string, error) {
	l, err := t.line.Prompt(t.prompt)
	if err != nil {
		return "", err
	}

	l = strings.TrimSuffix(l, "\n")
	if l != "" {
		t.line.AppendHistory(l)
	}

	return l, nil
}

func (t *Term) loadHistory() {
	if t.conf.HistoryFile == "" {
		return
	}

	f, err := os.Open(t.conf.HistoryFile)
	if err != nil {
		return
	}
	defer f.Close()

	if _, err := t.line.ReadHistory(f); err != nil {
		t.log.Debugf("could not read history: %v", err)
	}
}

func (t *Term) handleExit() (int, error) {
	if t.conf.HistoryFile != "" {
		if f, err := os.Create(t.conf.HistoryFile); err == nil {
			if _, err := t.line.WriteHistory(f); err != nil {
				fmt.Fprintln(os.Stderr, "readline history error:", err)
			}
			f.Close()
		}
	}

	return 0, nil
}
