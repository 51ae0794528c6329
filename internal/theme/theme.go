// Package theme provides color schemes for the theway map display
package theme

import "github.com/charmbracelet/lipgloss"

// Theme defines a color scheme for the map display and panels
type Theme struct {
	Name        string
	Description string

	// Primary colors
	Primary       lipgloss.Color
	PrimaryBright lipgloss.Color
	PrimaryDim    lipgloss.Color

	// Secondary colors
	Secondary       lipgloss.Color
	SecondaryBright lipgloss.Color

	// Status colors
	Success lipgloss.Color
	Warning lipgloss.Color
	Error   lipgloss.Color
	Info    lipgloss.Color

	// UI elements
	Border     lipgloss.Color
	BorderDim  lipgloss.Color
	Text       lipgloss.Color
	TextDim    lipgloss.Color
	Background lipgloss.Color
	Selected   lipgloss.Color

	// Map specific
	MapEmpty    string // hex color rasters are blended onto
	MapCursor   lipgloss.Color
	StartMarker lipgloss.Color
	EndMarker   lipgloss.Color
	Overlay     lipgloss.Color
}

// themes contains all available theme definitions
var themes = map[string]*Theme{
	"nautical": {
		Name:            "Nautical",
		Description:     "Chart blue with signal-colored markers",
		Primary:         lipgloss.Color("#2f80c0"),
		PrimaryBright:   lipgloss.Color("#5fb0f0"),
		PrimaryDim:      lipgloss.Color("#1a4870"),
		Secondary:       lipgloss.Color("#40c0c0"),
		SecondaryBright: lipgloss.Color("#80ffff"),
		Success:         lipgloss.Color("#40c060"),
		Warning:         lipgloss.Color("#f0c040"),
		Error:           lipgloss.Color("#f04040"),
		Info:            lipgloss.Color("#5fb0f0"),
		Border:          lipgloss.Color("#2f80c0"),
		BorderDim:       lipgloss.Color("#1a4870"),
		Text:            lipgloss.Color("#d0e0f0"),
		TextDim:         lipgloss.Color("#6080a0"),
		Background:      lipgloss.Color("0"),
		Selected:        lipgloss.Color("#f0c040"),
		MapEmpty:        "#0a1a2a",
		MapCursor:       lipgloss.Color("#ffffff"),
		StartMarker:     lipgloss.Color("#40e060"),
		EndMarker:       lipgloss.Color("#ff5050"),
		Overlay:         lipgloss.Color("#f0c040"),
	},
	"classic": {
		Name:            "Classic Green",
		Description:     "Traditional green phosphor display",
		Primary:         lipgloss.Color("28"),  // green
		PrimaryBright:   lipgloss.Color("46"),  // bright_green
		PrimaryDim:      lipgloss.Color("22"),  // dark_green
		Secondary:       lipgloss.Color("37"),  // cyan
		SecondaryBright: lipgloss.Color("51"),  // bright_cyan
		Success:         lipgloss.Color("46"),  // bright_green
		Warning:         lipgloss.Color("226"), // bright_yellow
		Error:           lipgloss.Color("196"), // bright_red
		Info:            lipgloss.Color("51"),  // bright_cyan
		Border:          lipgloss.Color("28"),  // green
		BorderDim:       lipgloss.Color("22"),  // dark_green
		Text:            lipgloss.Color("28"),  // green
		TextDim:         lipgloss.Color("22"),  // dark_green
		Background:      lipgloss.Color("0"),   // black
		Selected:        lipgloss.Color("226"), // bright_yellow
		MapEmpty:        "#000000",
		MapCursor:       lipgloss.Color("46"),  // bright_green
		StartMarker:     lipgloss.Color("51"),  // bright_cyan
		EndMarker:       lipgloss.Color("201"), // bright_magenta
		Overlay:         lipgloss.Color("226"), // bright_yellow
	},
	"amber": {
		Name:            "Amber",
		Description:     "Vintage amber monochrome display",
		Primary:         lipgloss.Color("178"), // yellow
		PrimaryBright:   lipgloss.Color("226"), // bright_yellow
		PrimaryDim:      lipgloss.Color("130"), // dark_orange
		Secondary:       lipgloss.Color("226"), // bright_yellow
		SecondaryBright: lipgloss.Color("231"), // bright_white
		Success:         lipgloss.Color("226"), // bright_yellow
		Warning:         lipgloss.Color("231"), // bright_white
		Error:           lipgloss.Color("196"), // bright_red
		Info:            lipgloss.Color("226"), // bright_yellow
		Border:          lipgloss.Color("178"), // yellow
		BorderDim:       lipgloss.Color("130"), // dark_orange
		Text:            lipgloss.Color("178"), // yellow
		TextDim:         lipgloss.Color("130"), // dark_orange
		Background:      lipgloss.Color("0"),   // black
		Selected:        lipgloss.Color("231"), // bright_white
		MapEmpty:        "#100800",
		MapCursor:       lipgloss.Color("231"), // bright_white
		StartMarker:     lipgloss.Color("46"),  // bright_green
		EndMarker:       lipgloss.Color("196"), // bright_red
		Overlay:         lipgloss.Color("226"), // bright_yellow
	},
	"night": {
		Name:            "Night Watch",
		Description:     "Dim red display that keeps night vision",
		Primary:         lipgloss.Color("#a02020"),
		PrimaryBright:   lipgloss.Color("#e04040"),
		PrimaryDim:      lipgloss.Color("#501010"),
		Secondary:       lipgloss.Color("#c06030"),
		SecondaryBright: lipgloss.Color("#f08050"),
		Success:         lipgloss.Color("#c06030"),
		Warning:         lipgloss.Color("#f08050"),
		Error:           lipgloss.Color("#ff4040"),
		Info:            lipgloss.Color("#c06030"),
		Border:          lipgloss.Color("#a02020"),
		BorderDim:       lipgloss.Color("#501010"),
		Text:            lipgloss.Color("#e04040"),
		TextDim:         lipgloss.Color("#802020"),
		Background:      lipgloss.Color("0"),
		Selected:        lipgloss.Color("#f08050"),
		MapEmpty:        "#000000",
		MapCursor:       lipgloss.Color("#ff6060"),
		StartMarker:     lipgloss.Color("#f08050"),
		EndMarker:       lipgloss.Color("#ff2020"),
		Overlay:         lipgloss.Color("#c06030"),
	},
	"high_contrast": {
		Name:            "High Contrast",
		Description:     "Maximum visibility white display",
		Primary:         lipgloss.Color("231"), // white
		PrimaryBright:   lipgloss.Color("231"), // bright_white
		PrimaryDim:      lipgloss.Color("249"), // grey70
		Secondary:       lipgloss.Color("51"),  // bright_cyan
		SecondaryBright: lipgloss.Color("231"), // bright_white
		Success:         lipgloss.Color("46"),  // bright_green
		Warning:         lipgloss.Color("226"), // bright_yellow
		Error:           lipgloss.Color("196"), // bright_red
		Info:            lipgloss.Color("51"),  // bright_cyan
		Border:          lipgloss.Color("231"), // white
		BorderDim:       lipgloss.Color("244"), // grey50
		Text:            lipgloss.Color("231"), // bright_white
		TextDim:         lipgloss.Color("249"), // grey70
		Background:      lipgloss.Color("0"),   // black
		Selected:        lipgloss.Color("226"), // bright_yellow
		MapEmpty:        "#000000",
		MapCursor:       lipgloss.Color("226"), // bright_yellow
		StartMarker:     lipgloss.Color("46"),  // bright_green
		EndMarker:       lipgloss.Color("196"), // bright_red
		Overlay:         lipgloss.Color("201"), // bright_magenta
	},
}

// order is the display order of the themes
var order = []string{"nautical", "classic", "amber", "night", "high_contrast"}

// Default is the theme used when none is configured
const Default = "nautical"

// Get returns a theme by name, defaults to nautical if not found
func Get(name string) *Theme {
	if t, ok := themes[name]; ok {
		return t
	}
	return themes[Default]
}

// Exists reports whether a theme with this key is defined
func Exists(name string) bool {
	_, ok := themes[name]
	return ok
}

// List returns all available theme names
func List() []string {
	names := make([]string, 0, len(themes))
	for _, name := range order {
		if _, ok := themes[name]; ok {
			names = append(names, name)
		}
	}
	return names
}

// Next returns the theme key after name, wrapping around
func Next(name string) string {
	for i, key := range order {
		if key == name {
			return order[(i+1)%len(order)]
		}
	}
	return order[0]
}

// ThemeInfo contains theme metadata for display
type ThemeInfo struct {
	Key         string
	Name        string
	Description string
}

// GetInfo returns information about all themes
func GetInfo() []ThemeInfo {
	info := make([]ThemeInfo, 0, len(order))
	for _, key := range order {
		if t, ok := themes[key]; ok {
			info = append(info, ThemeInfo{
				Key:         key,
				Name:        t.Name,
				Description: t.Description,
			})
		}
	}
	return info
}

// Style helpers for creating lipgloss styles

// PrimaryStyle returns a style using the primary color
func (t *Theme) PrimaryStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Primary)
}

// PrimaryBrightStyle returns a style using the bright primary color
func (t *Theme) PrimaryBrightStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.PrimaryBright)
}

// SecondaryStyle returns a style using the secondary color
func (t *Theme) SecondaryStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Secondary)
}

// BorderStyle returns a style using the border color
func (t *Theme) BorderStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Border)
}

// TextStyle returns a style using the text color
func (t *Theme) TextStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Text)
}

// TextDimStyle returns a style using the dim text color
func (t *Theme) TextDimStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.TextDim)
}

// SuccessStyle returns a style using the success color
func (t *Theme) SuccessStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Success)
}

// WarningStyle returns a style using the warning color
func (t *Theme) WarningStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Warning)
}

// ErrorStyle returns a style using the error color
func (t *Theme) ErrorStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Error)
}

// InfoStyle returns a style using the info color
func (t *Theme) InfoStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Info)
}
