package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rivo/tview"

	"github.com/razzie/razdbg/common"
	"github.com/razzie/razdbg/terminal"
)

// SetConsoleTitle sets the title of the terminal window
func SetConsoleTitle(title string) {
	fmt.Fprintf(os.Stdout, "\033]0;%s\007", title)
}

func colorize(text string) string {
	normal := currentTheme.TextColor
	highlight := currentTheme.HighlightTextColor
	return fmt.Sprintf("[%s]%s[%s]", highlight, text, normal)
}

func colorizeError(err error) string {
	return fmt.Sprintf("[%s]%s[%s]", currentTheme.ErrorTextColor, tview.Escape(err.Error()), currentTheme.TextColor)
}

// only the command name is completed
func getAutocompleteFunc(cmds *terminal.Commands) func(string) []string {
	return func(currentText string) (results []string) {
		if len(currentText) == 0 || strings.Contains(currentText, " ") {
			return
		}
		return cmds.Complete(currentText)
	}
}

// escapeWriter keeps command output from being parsed as color tags
type escapeWriter struct {
	w io.Writer
}

func (ew escapeWriter) Write(p []byte) (int, error) {
	if _, err := io.WriteString(ew.w, tview.Escape(string(p))); err != nil {
		return 0, err
	}
	return len(p), nil
}

// changedRegisters returns the registers whose value differs from prev
func changedRegisters(prev, cur []common.RegisterValue) map[int]bool {
	changed := make(map[int]bool)
	if len(prev) != len(cur) {
		return changed
	}
	for i := range cur {
		if prev[i].Value != cur[i].Value {
			changed[i] = true
		}
	}
	return changed
}
