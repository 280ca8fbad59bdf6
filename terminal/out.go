package terminal

import (
	"io"
	"os"
	"strings"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

// getColorableWriter returns stdout and whether it is a dumb terminal.
// Escape sequences are stripped when stdout is not a terminal.
func getColorableWriter() (io.Writer, bool) {
	dumb := strings.ToLower(os.Getenv("TERM")) == "dumb"
	if dumb || !isatty.IsTerminal(os.Stdout.Fd()) {
		return colorable.NewNonColorable(os.Stdout), true
	}
	return colorable.NewColorableStdout(), false
}
