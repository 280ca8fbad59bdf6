package terminal

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/cosiner/argv"
	"github.com/derekparker/trie"

	"github.com/razzie/razdbg/arch"
	"github.com/razzie/razdbg/common"
)

const maxStackDepth = 50

type cmdfunc func(t *Term, args string) error

type command struct {
	aliases        []string
	builtinAliases []string
	group          commandGroup
	helpMsg        string
	cmdFn          cmdfunc
}

// Returns true if the command string matches one of the aliases for this command
func (c command) match(cmdstr string) bool {
	for _, v := range c.aliases {
		if v == cmdstr {
			return true
		}
	}
	return false
}

// Commands represents the commands of the razdbg front-ends.
type Commands struct {
	cmds  []command
	index *trie.Trie // alias -> position in cmds
}

// ExitRequestError is returned when the user asked to quit.
type ExitRequestError struct{}

func (ere ExitRequestError) Error() string {
	return ""
}

var errNoCmd = errors.New("command not available")

// DebugCommands returns a Commands struct with default commands defined.
func DebugCommands() *Commands {
	c := &Commands{}

	c.cmds = []command{
		{aliases: []string{"help", "h"}, group: otherCmds, cmdFn: c.help, helpMsg: `Prints the help message.

	help [command]

Type "help" followed by the name of a command for more information about it.`},
		{aliases: []string{"break", "b"}, group: breakCmds, cmdFn: breakpoint, helpMsg: `Sets a breakpoint.

	break <location>

The location is one of:

	0x401126	a static address, as found in the executable
	main		a function name
	main.c:12	a source line`},
		{aliases: []string{"delete", "d"}, group: breakCmds, cmdFn: deleteBreakpoint, helpMsg: `Deletes a breakpoint.

	delete <address>

The address is the static address the breakpoint was set at.`},
		{aliases: []string{"breakpoints", "bp"}, group: breakCmds, cmdFn: breakpoints, helpMsg: "Print out info for active breakpoints."},
		{aliases: []string{"continue", "c"}, group: runCmds, cmdFn: cont, helpMsg: "Run until breakpoint or program termination."},
		{aliases: []string{"stepi", "si"}, group: runCmds, cmdFn: stepInstruction, helpMsg: "Single step a single cpu instruction."},
		{aliases: []string{"register"}, group: dataCmds, cmdFn: register, helpMsg: `Reads or writes a register.

	register dump
	register read <name>
	register write <name> <value>`},
		{aliases: []string{"regs"}, group: dataCmds, cmdFn: regs, helpMsg: `Print contents of CPU registers.

	regs [-dwarf]

With -dwarf only the registers known to the debug info are printed, by DWARF register number.`},
		{aliases: []string{"memory", "mem", "x"}, group: dataCmds, cmdFn: memory, helpMsg: `Reads or writes a word of memory.

	memory read <address>
	memory write <address> <value>

Addresses are runtime addresses.`},
		{aliases: []string{"where", "stack", "bt"}, group: stackCmds, cmdFn: stacktrace, helpMsg: "Print stack trace."},
		{aliases: []string{"libs"}, group: otherCmds, cmdFn: libraries, helpMsg: "List loaded dynamic libraries"},
		{aliases: []string{"quit", "exit", "q"}, group: otherCmds, cmdFn: exitCommand, helpMsg: "Exit the debugger."},
	}

	sort.Sort(byFirstAlias(c.cmds))
	c.buildIndex()
	return c
}

// byFirstAlias will sort by the first
// alias of a command.
type byFirstAlias []command

func (a byFirstAlias) Len() int           { return len(a) }
func (a byFirstAlias) Swap(i, j int)      { a[i], a[j] = a[j], a[i] }
func (a byFirstAlias) Less(i, j int) bool { return a[i].aliases[0] < a[j].aliases[0] }

func (c *Commands) buildIndex() {
	c.index = trie.New()
	for i, cmd := range c.cmds {
		for _, alias := range cmd.aliases {
			c.index.Add(alias, i)
		}
	}
}

// Merge takes aliases defined in the config struct and merges them with the default aliases.
func (c *Commands) Merge(allAliases map[string][]string) {
	for i := range c.cmds {
		if c.cmds[i].builtinAliases != nil {
			c.cmds[i].aliases = append(c.cmds[i].aliases[:0], c.cmds[i].builtinAliases...)
		}
	}
	for i := range c.cmds {
		if aliases, ok := allAliases[c.cmds[i].aliases[0]]; ok {
			if c.cmds[i].builtinAliases == nil {
				c.cmds[i].builtinAliases = make([]string, len(c.cmds[i].aliases))
				copy(c.cmds[i].builtinAliases, c.cmds[i].aliases)
			}
			c.cmds[i].aliases = append(c.cmds[i].aliases, aliases...)
		}
	}
	c.buildIndex()
}

// Find will look up the command function for the given command input.
// A unique prefix of an alias selects that command.
func (c *Commands) Find(cmdstr string) (cmdfunc, error) {
	if cmdstr == "" {
		return nullCommand, nil
	}

	i, err := c.lookup(cmdstr)
	if err != nil {
		return nil, err
	}
	return c.cmds[i].cmdFn, nil
}

func (c *Commands) lookup(cmdstr string) (int, error) {
	if node, found := c.index.Find(cmdstr); found {
		return node.Meta().(int), nil
	}

	matches := make(map[int]bool)
	var names []string
	for _, alias := range c.index.PrefixSearch(cmdstr) {
		node, _ := c.index.Find(alias)
		i := node.Meta().(int)
		if !matches[i] {
			matches[i] = true
			names = append(names, c.cmds[i].aliases[0])
		}
	}

	if len(names) == 0 {
		return -1, errNoCmd
	}
	if len(names) > 1 {
		sort.Strings(names)
		return -1, fmt.Errorf("ambiguous command %q: %s", cmdstr, strings.Join(names, ", "))
	}

	for i := range matches {
		return i, nil
	}
	return -1, errNoCmd
}

// Complete returns the aliases starting with prefix
func (c *Commands) Complete(prefix string) []string {
	completions := c.index.PrefixSearch(strings.ToLower(prefix))
	sort.Strings(completions)
	return completions
}

// Call takes a command to execute.
func (c *Commands) Call(cmdstr string, t *Term) error {
	vals := strings.SplitN(strings.TrimSpace(cmdstr), " ", 2)
	cmdname := vals[0]
	var args string
	if len(vals) > 1 {
		args = strings.TrimSpace(vals[1])
	}

	cmdFn, err := c.Find(cmdname)
	if err != nil {
		return err
	}

	t.log.Debugf("command %q args %q", cmdname, args)
	return cmdFn(t, args)
}

func nullCommand(t *Term, args string) error {
	return nil
}

func exitCommand(t *Term, args string) error {
	return ExitRequestError{}
}

func (c *Commands) help(t *Term, args string) error {
	if args != "" {
		i, err := c.lookup(args)
		if err != nil {
			return err
		}
		fmt.Fprintln(t.stdout, c.cmds[i].helpMsg)
		return nil
	}

	fmt.Fprintln(t.stdout, "The following commands are available:")

	for g := commandGroup(0); int(g) < numGroups; g++ {
		fmt.Fprintf(t.stdout, "\n%v:\n", g)
		w := new(tabwriter.Writer)
		w.Init(t.stdout, 0, 8, 0, '-', 0)
		for _, cmd := range c.cmds {
			if cmd.group != g {
				continue
			}
			h := cmd.helpMsg
			if idx := strings.Index(h, "\n"); idx >= 0 {
				h = h[:idx]
			}
			if len(cmd.aliases) > 1 {
				fmt.Fprintf(w, "    %s (alias: %s) \t %s\n", cmd.aliases[0], strings.Join(cmd.aliases[1:], " | "), h)
			} else {
				fmt.Fprintf(w, "    %s \t %s\n", cmd.aliases[0], h)
			}
		}
		if err := w.Flush(); err != nil {
			return err
		}
	}

	fmt.Fprintln(t.stdout)
	fmt.Fprintln(t.stdout, "Type help followed by a command for full documentation.")
	return nil
}

// splitArgs splits a command line the way a shell would, without expansion
func splitArgs(args string) ([]string, error) {
	v, err := argv.Argv(args,
		func(s string) (string, error) {
			return "", fmt.Errorf("backtick not supported in '%s'", s)
		},
		nil)
	if err != nil {
		return nil, err
	}
	if len(v) > 1 {
		return nil, fmt.Errorf("illegal command line '%s'", args)
	}
	if len(v) == 0 {
		return nil, nil
	}
	return v[0], nil
}

func parseUint(s string) (uint64, error) {
	v, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	return v, nil
}

func cont(t *Term, args string) error {
	evt, err := t.run(t.target.Continue)
	if err != nil {
		return err
	}
	t.printStop(evt)
	return nil
}

func stepInstruction(t *Term, args string) error {
	evt, err := t.run(t.target.StepInstruction)
	if err != nil {
		return err
	}
	t.printStop(evt)
	return nil
}

func breakpoint(t *Term, args string) error {
	if args == "" {
		return errors.New("not enough arguments")
	}

	bps, err := t.target.BreakAt(args)
	if err != nil {
		return err
	}

	for _, bp := range bps {
		fmt.Fprintf(t.stdout, "Breakpoint set at %s\n", t.formatAddress(bp.Address()))
	}
	return nil
}

func deleteBreakpoint(t *Term, args string) error {
	v, err := splitArgs(args)
	if err != nil {
		return err
	}
	if len(v) != 1 {
		return errors.New("wrong number of arguments: delete <address>")
	}

	addr, err := parseUint(v[0])
	if err != nil {
		return err
	}

	if err := t.target.RemoveBreakpoint(uintptr(addr)); err != nil {
		return err
	}
	fmt.Fprintf(t.stdout, "Breakpoint at %#x deleted\n", addr)
	return nil
}

func breakpoints(t *Term, args string) error {
	bps := t.target.Breakpoints()
	if len(bps) == 0 {
		fmt.Fprintln(t.stdout, "No breakpoints.")
		return nil
	}

	for i, bp := range bps {
		state := "enabled"
		if !bp.IsEnabled() {
			state = "disabled"
		}
		fmt.Fprintf(t.stdout, "Breakpoint %d at %s (%s, hit %d times)\n",
			i+1, t.formatAddress(bp.Address()), state, bp.HitCount())
	}
	return nil
}

func register(t *Term, args string) error {
	v, err := splitArgs(args)
	if err != nil {
		return err
	}
	if len(v) == 0 {
		return errors.New("not enough arguments: register dump|read|write")
	}

	switch v[0] {
	case "dump":
		return regs(t, "")

	case "read":
		if len(v) != 2 {
			return errors.New("wrong number of arguments: register read <name>")
		}
		val, err := t.target.ReadRegister(v[1])
		if err != nil {
			return err
		}
		t.Println(fmt.Sprintf("%-8s ", v[1]), fmt.Sprintf("%#016x", val))
		return nil

	case "write":
		if len(v) != 3 {
			return errors.New("wrong number of arguments: register write <name> <value>")
		}
		val, err := parseUint(v[2])
		if err != nil {
			return err
		}
		return t.target.WriteRegister(v[1], val)
	}

	return fmt.Errorf("unknown register command %q", v[0])
}

func regs(t *Term, args string) error {
	switch args {
	case "":
		values, err := t.target.DumpRegisters()
		if err != nil {
			return err
		}
		for _, rv := range values {
			t.Println(fmt.Sprintf("%-8s ", rv.Reg), fmt.Sprintf("%#016x", rv.Value))
		}
		return nil

	case "-dwarf":
		dregs, err := t.target.DwarfRegisters()
		if err != nil {
			return err
		}
		for _, r := range dwarfOrder() {
			num := r.DwarfNum()
			if r == arch.PCReg {
				num = int(dregs.PCRegNum)
			}
			t.Println(fmt.Sprintf("%2d %-8s ", num, r), fmt.Sprintf("%#016x", dregs.Uint64Val(uint64(num))))
		}
		return nil
	}

	return fmt.Errorf("unknown option %q", args)
}

// dwarfOrder returns the registers that have a DWARF number, ordered by it
func dwarfOrder() []arch.Register {
	var regs []arch.Register
	for _, r := range arch.Registers() {
		if r.DwarfNum() != arch.NoDwarfNum || r == arch.PCReg {
			regs = append(regs, r)
		}
	}

	num := func(r arch.Register) int {
		if r == arch.PCReg {
			return 16
		}
		return r.DwarfNum()
	}
	sort.Slice(regs, func(i, j int) bool { return num(regs[i]) < num(regs[j]) })
	return regs
}

func memory(t *Term, args string) error {
	v, err := splitArgs(args)
	if err != nil {
		return err
	}
	if len(v) < 2 {
		return errors.New("not enough arguments: memory read|write <address>")
	}

	addr, err := parseUint(v[1])
	if err != nil {
		return err
	}

	switch v[0] {
	case "read":
		if len(v) != 2 {
			return errors.New("wrong number of arguments: memory read <address>")
		}
		word, err := t.target.ReadMemory(uintptr(addr))
		if err != nil {
			return err
		}
		t.Println(fmt.Sprintf("%#x: ", addr), fmt.Sprintf("%#016x", word))
		return nil

	case "write":
		if len(v) != 3 {
			return errors.New("wrong number of arguments: memory write <address> <value>")
		}
		val, err := parseUint(v[2])
		if err != nil {
			return err
		}
		return t.target.WriteMemory(uintptr(addr), val)
	}

	return fmt.Errorf("unknown memory command %q", v[0])
}

func stacktrace(t *Term, args string) error {
	frames, err := t.target.Stacktrace(maxStackDepth)
	for i, frame := range frames {
		t.Println(fmt.Sprintf("%2d  ", i), frame.String())
	}
	return err
}

func libraries(t *Term, args string) error {
	libs, err := t.target.SharedLibs()
	if err != nil {
		return err
	}
	if len(libs) == 0 {
		fmt.Fprintln(t.stdout, "No shared libraries.")
		return nil
	}

	for i, lib := range libs {
		fmt.Fprintf(t.stdout, "%d. %#x %s\n", i, lib.StaticBase, lib.Name)
	}
	return nil
}

// formatAddress prints a runtime address with its static address and source location
func (t *Term) formatAddress(addr uintptr) string {
	static := t.target.Translator().ToStatic(addr)
	str := fmt.Sprintf("%#x", addr)
	if static != addr {
		str += fmt.Sprintf(" (static %#x)", static)
	}

	if loc, err := t.target.ResolveSourceLocation(addr); err == nil {
		str += " " + loc.String()
	}
	return str
}

func (t *Term) printStop(evt *common.StopEvent) {
	switch {
	case evt.Exited:
		fmt.Fprintf(t.stdout, "Process %d has exited with status %d\n", t.target.PID(), evt.ExitCode)
	case evt.Signaled:
		fmt.Fprintf(t.stdout, "Process %d was killed by %v\n", t.target.PID(), evt.Signal)
	case evt.Breakpoint != nil:
		t.Println("> ", fmt.Sprintf("Breakpoint hit at %s", t.formatAddress(evt.Breakpoint.Address())))
	default:
		t.Println("> ", fmt.Sprintf("Stopped (%v) at %s", evt.Signal, t.formatAddress(evt.PC)))
	}
}
