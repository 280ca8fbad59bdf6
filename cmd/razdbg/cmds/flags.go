package cmds

import (
	"github.com/spf13/pflag"

	"github.com/razzie/razdbg/config"
)

type flags struct {
	log         bool
	logOutput   string
	logDest     string
	configPath  string
	tui         bool
	theme       string
	disableASLR bool
	workingDir  string
}

func applyFlags(f *flags, fs *pflag.FlagSet) {
	fs.BoolVar(&f.log, "log", false, "Enable debugger logging.")
	fs.StringVar(&f.logOutput, "log-output", "", "Comma separated list of components that should produce debug output (tracer, symbols, terminal).")
	fs.StringVar(&f.logDest, "log-dest", "", "Writes logs to the specified file instead of stderr.")
	fs.StringVar(&f.configPath, "config", "", "Configuration file, defaults to ~/.razdbg/config.yml.")
	fs.BoolVar(&f.tui, "tui", false, "Start the full screen user interface.")
	fs.StringVar(&f.theme, "theme", "light", "Theme of the full screen user interface (light or dark).")
	fs.BoolVar(&f.disableASLR, "disable-aslr", false, "Start the program with address space randomization disabled.")
	fs.StringVar(&f.workingDir, "wd", "", "Working directory for running the program.")
}

// overrideConfig copies the flags given on the command line into conf
func overrideConfig(conf *config.Config, f *flags, fs *pflag.FlagSet) {
	if fs.Changed("theme") {
		conf.Theme = f.theme
	}
	if fs.Changed("disable-aslr") {
		conf.DisableASLR = f.disableASLR
	}
}
