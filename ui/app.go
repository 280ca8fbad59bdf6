// Package ui implements the full screen razdbg front-end on top of tview.
package ui

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"github.com/sirupsen/logrus"

	"github.com/razzie/razdbg/common"
	"github.com/razzie/razdbg/config"
	"github.com/razzie/razdbg/logflags"
	"github.com/razzie/razdbg/terminal"
)

// App handles the user interface
type App struct {
	*RootElement
	app    *tview.Application
	target terminal.Target
	term   *terminal.Term
	log    *logrus.Entry

	busy sync.Mutex
}

// NewApp returns a new App driving target
func NewApp(target terminal.Target, conf *config.Config) *App {
	if conf == nil {
		conf = config.Default()
	}
	if theme, found := Themes[conf.Theme]; found {
		theme.Apply()
	}

	root := NewRootElement(conf.Prompt)
	term := terminal.NewHeadless(target, conf, escapeWriter{root.Output})

	a := &App{
		RootElement: root,
		app:         tview.NewApplication(),
		target:      target,
		term:        term,
		log:         logflags.TerminalLogger(),
	}

	root.Output.SetChangedFunc(func() {
		a.app.Draw()
	})
	root.Input.SetAutocompleteFunc(getAutocompleteFunc(term.Commands()))
	root.Input.SetDoneFunc(func(key tcell.Key) {
		if key != tcell.KeyEnter {
			return
		}
		cmdstr := root.Input.GetText()
		root.Input.SetText("")
		go a.execute(cmdstr)
	})

	a.app.SetInputCapture(a.inputCapture)
	a.app.SetRoot(root, true).SetFocus(root.Input)
	return a
}

func (a *App) inputCapture(event *tcell.EventKey) *tcell.EventKey {
	switch event.Key() {
	case tcell.KeyF5:
		go a.execute("continue")
		return nil
	case tcell.KeyF10:
		go a.execute("stepi")
		return nil
	}
	return event
}

// execute runs one command; commands never run concurrently
func (a *App) execute(cmdstr string) {
	a.busy.Lock()
	defer a.busy.Unlock()

	fmt.Fprintln(a.Output, colorize("> "+tview.Escape(cmdstr)))

	err := a.term.Call(cmdstr)
	if err != nil {
		var exitErr terminal.ExitRequestError
		if errors.As(err, &exitErr) {
			a.app.Stop()
			return
		}
		a.log.Debugf("command %q failed: %v", cmdstr, err)
		fmt.Fprintln(a.Output, colorizeError(err))
	}

	values := a.registers()
	a.app.QueueUpdateDraw(func() {
		a.SetRegisters(values)
	})
}

// registers reads the register snapshot shown in the table. It must be
// called with busy held; nil means the process is gone.
func (a *App) registers() []common.RegisterValue {
	if a.target.Exited() {
		return nil
	}
	values, err := a.target.DumpRegisters()
	if err != nil {
		a.log.Debugf("failed to read registers: %v", err)
		return nil
	}
	return values
}

// Run runs the user interface until the user quits
func (a *App) Run() error {
	SetConsoleTitle("razdbg")

	a.busy.Lock()
	a.SetRegisters(a.registers())
	a.busy.Unlock()

	fmt.Fprintln(a.Output, "Type 'help' for list of commands. F5 continues, F10 steps one instruction.")
	return a.app.Run()
}
