package ui

import (
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// Theme is a tview theme plus the color tags used in the output view
type Theme struct {
	tview.Theme
	TextColor          string
	HighlightTextColor string
	ErrorTextColor     string
}

var currentTheme *Theme

// LightTheme is black text on white background
var LightTheme = Theme{
	Theme: tview.Theme{
		PrimitiveBackgroundColor:    tcell.ColorWhite,
		ContrastBackgroundColor:     tcell.ColorLightGray,
		MoreContrastBackgroundColor: tcell.ColorSilver,
		BorderColor:                 tcell.ColorGray,
		TitleColor:                  tcell.ColorBlack,
		GraphicsColor:               tcell.ColorGray,
		PrimaryTextColor:            tcell.ColorBlack,
		SecondaryTextColor:          tcell.ColorNavy,
		TertiaryTextColor:           tcell.ColorGreen,
		InverseTextColor:            tcell.ColorWhite,
		ContrastSecondaryTextColor:  tcell.ColorDarkBlue,
	},
	TextColor:          "black",
	HighlightTextColor: "blue",
	ErrorTextColor:     "red",
}

// DarkTheme is tview's default look
var DarkTheme = Theme{
	Theme: tview.Theme{
		PrimitiveBackgroundColor:    tcell.ColorBlack,
		ContrastBackgroundColor:     tcell.ColorBlue,
		MoreContrastBackgroundColor: tcell.ColorGreen,
		BorderColor:                 tcell.ColorWhite,
		TitleColor:                  tcell.ColorWhite,
		GraphicsColor:               tcell.ColorWhite,
		PrimaryTextColor:            tcell.ColorWhite,
		SecondaryTextColor:          tcell.ColorYellow,
		TertiaryTextColor:           tcell.ColorGreen,
		InverseTextColor:            tcell.ColorBlue,
		ContrastSecondaryTextColor:  tcell.ColorDarkCyan,
	},
	TextColor:          "white",
	HighlightTextColor: "yellow",
	ErrorTextColor:     "red",
}

// Themes maps the names accepted by the --theme flag to themes
var Themes = map[string]*Theme{
	"light": &LightTheme,
	"dark":  &DarkTheme,
}

// Apply makes t the theme of every element created afterwards
func (t *Theme) Apply() {
	tview.Styles = t.Theme
	currentTheme = t
}
