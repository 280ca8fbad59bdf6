// Package cmds implements the razdbg command line.
package cmds

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/razzie/razdbg"
	"github.com/razzie/razdbg/common"
	"github.com/razzie/razdbg/config"
	"github.com/razzie/razdbg/logflags"
	"github.com/razzie/razdbg/terminal"
	"github.com/razzie/razdbg/ui"
)

// Version is the razdbg release
const Version = "0.1.0"

const razdbgCommandLongDesc = `razdbg is a source level debugger for native Linux x86-64 programs.

It starts the program given after the flags (or attaches to a running
process) and stops it before its first instruction. Breakpoints, registers
and memory are then driven from an interactive prompt, or from a full
screen view with --tui.

Pass arguments to the program after '--':

	razdbg --disable-aslr -- ./a.out -v input.txt`

type startFunc func(opts razdbg.Options) (*razdbg.Debugger, error)

// New returns the razdbg root command.
func New() *cobra.Command {
	f := &flags{}

	rootCommand := &cobra.Command{
		Use:          "razdbg [flags] -- <program> [args]",
		Short:        "razdbg is a native debugger for Linux x86-64 programs.",
		Long:         razdbgCommandLongDesc,
		Args:         cobra.MinimumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			start := func(opts razdbg.Options) (*razdbg.Debugger, error) {
				return razdbg.Launch(args, opts)
			}
			return execute(f, cmd.Flags(), start, true)
		},
	}
	applyFlags(f, rootCommand.PersistentFlags())

	attachCommand := &cobra.Command{
		Use:   "attach <pid>",
		Short: "Attach to running process and begin debugging.",
		Long: `Attach to an already running process and begin debugging it.

The process is detached, not killed, when the debugger exits.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pid, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid pid: %s", args[0])
			}
			start := func(opts razdbg.Options) (*razdbg.Debugger, error) {
				return razdbg.Attach(pid, opts)
			}
			return execute(f, cmd.Flags(), start, false)
		},
	}

	versionCommand := &cobra.Command{
		Use:   "version",
		Short: "Prints version.",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "razdbg version %s\n", Version)
		},
	}

	rootCommand.AddCommand(attachCommand, versionCommand)
	return rootCommand
}

func loadConfig(f *flags, fs *pflag.FlagSet) *config.Config {
	conf, err := config.LoadConfig(f.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v, using defaults\n", err)
		conf = config.Default()
	}
	overrideConfig(conf, f, fs)
	return conf
}

func execute(f *flags, fs *pflag.FlagSet, start startFunc, kill bool) error {
	if err := logflags.Setup(f.log, f.logOutput, f.logDest); err != nil {
		return err
	}

	conf := loadConfig(f, fs)
	dbg, err := start(razdbg.Options{
		LaunchOptions: common.LaunchOptions{
			DisableASLR: conf.DisableASLR,
			Dir:         f.workingDir,
		},
		SymbolCacheSize: conf.SymbolCacheSize,
	})
	if err != nil {
		return err
	}

	status := 0
	if f.tui {
		err = ui.NewApp(dbg, conf).Run()
	} else {
		status, err = terminal.New(dbg, conf).Run()
	}

	if cerr := dbg.Close(kill); cerr != nil && !razdbg.IsExited(cerr) {
		err = common.MergeErrors([]error{err, cerr})
	}
	if err != nil {
		return err
	}
	if status != 0 {
		os.Exit(status)
	}
	return nil
}
