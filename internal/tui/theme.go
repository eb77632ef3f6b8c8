package tui

import "github.com/gdamore/tcell/v2"

// Theme holds the color palette applied to all UI components.
type Theme struct {
	Name          string
	Background    tcell.Color
	Foreground    tcell.Color
	Border        tcell.Color
	Accent        tcell.Color
	SecondaryText tcell.Color
	SelectionBg   tcell.Color
	SelectionText tcell.Color
	HeaderBg      tcell.Color
}

// ThemeTags holds tview color tags derived from a theme for inline text
// markup.
type ThemeTags struct {
	Accent    string
	Secondary string
	Warning   string
	Error     string
	Success   string
}

var darkTheme = Theme{
	Name:          "dark",
	Background:    tcell.ColorDefault,
	Foreground:    tcell.ColorWhite,
	Border:        tcell.ColorGray,
	Accent:        tcell.ColorAqua,
	SecondaryText: tcell.ColorDarkGray,
	SelectionBg:   tcell.ColorDarkCyan,
	SelectionText: tcell.ColorWhite,
	HeaderBg:      tcell.ColorDarkSlateGray,
}

var lightTheme = Theme{
	Name:          "light",
	Background:    tcell.ColorWhite,
	Foreground:    tcell.ColorBlack,
	Border:        tcell.ColorDarkGray,
	Accent:        tcell.ColorBlue,
	SecondaryText: tcell.ColorGray,
	SelectionBg:   tcell.ColorLightBlue,
	SelectionText: tcell.ColorBlack,
	HeaderBg:      tcell.ColorLightGray,
}

// ResolveTheme maps a configured theme name to a palette, defaulting to
// dark.
func ResolveTheme(name string) Theme {
	switch name {
	case "light":
		return lightTheme
	default:
		return darkTheme
	}
}

// NewThemeTags derives inline markup tags from a theme.
func NewThemeTags(theme Theme) ThemeTags {
	if theme.Name == "light" {
		return ThemeTags{
			Accent:    "[blue]",
			Secondary: "[gray]",
			Warning:   "[darkorange]",
			Error:     "[red]",
			Success:   "[darkgreen]",
		}
	}
	return ThemeTags{
		Accent:    "[aqua]",
		Secondary: "[darkgray]",
		Warning:   "[yellow]",
		Error:     "[red]",
		Success:   "[green]",
	}
}
