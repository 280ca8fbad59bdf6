package ui

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/razzie/razdbg/common"
)

// RootElement is the root UI element: registers on the left, command
// output and the command line on the right
type RootElement struct {
	*tview.Flex
	Registers *tview.Table
	Output    *tview.TextView
	Input     *tview.InputField

	lastRegs []common.RegisterValue
}

// NewRootElement returns a new RootElement
func NewRootElement(prompt string) *RootElement {
	if currentTheme == nil {
		LightTheme.Apply()
	}

	regs := tview.NewTable()
	regs.SetBorder(true)
	regs.SetTitle(" Registers ")

	output := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true)
	output.SetBorder(true)
	output.SetTitle(" Output ")
	output.ScrollToEnd()

	input := tview.NewInputField().
		SetLabel(prompt).
		SetFieldWidth(0)

	right := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(output, 0, 1, false).
		AddItem(input, 1, 0, true)

	root := tview.NewFlex().
		AddItem(regs, 30, 0, false).
		AddItem(right, 0, 1, true)

	return &RootElement{
		Flex:      root,
		Registers: regs,
		Output:    output,
		Input:     input,
	}
}

// SetRegisters fills the register table, highlighting the values that
// changed since the previous call
func (root *RootElement) SetRegisters(values []common.RegisterValue) {
	changed := changedRegisters(root.lastRegs, values)
	highlight := tcell.GetColor(currentTheme.HighlightTextColor)

	root.Registers.Clear()
	for i, rv := range values {
		value := tview.NewTableCell(fmt.Sprintf("%#016x", rv.Value))
		if changed[i] {
			value.SetTextColor(highlight)
		}
		root.Registers.SetCell(i, 0, tview.NewTableCell(rv.Reg.String()))
		root.Registers.SetCell(i, 1, value)
	}
	root.lastRegs = values
}
