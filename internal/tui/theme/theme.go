// Package theme holds the color palettes shared by the table output and the dashboard.
package theme

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/compte/internal/model"
)

// Theme maps color roles to terminal colors.
type Theme struct {
	Name string

	Surface      lipgloss.Color
	Border       lipgloss.Color
	BorderAccent lipgloss.Color

	TextDim   lipgloss.Color
	TextMuted lipgloss.Color
	Text      lipgloss.Color

	Accent    lipgloss.Color
	AccentDim lipgloss.Color

	// Semantic roles: money, tokens, warnings, errors, highlights.
	Cost      lipgloss.Color
	Tokens    lipgloss.Color
	Warn      lipgloss.Color
	Bad       lipgloss.Color
	Highlight lipgloss.Color
}

// FlexokiDark is the default palette.
var FlexokiDark = Theme{
	Name:         "flexoki-dark",
	Surface:      lipgloss.Color("#1C1B1A"),
	Border:       lipgloss.Color("#403E3C"),
	BorderAccent: lipgloss.Color("#3AA99F"),
	TextDim:      lipgloss.Color("#575653"),
	TextMuted:    lipgloss.Color("#878580"),
	Text:         lipgloss.Color("#FFFCF0"),
	Accent:       lipgloss.Color("#3AA99F"),
	AccentDim:    lipgloss.Color("#1A3533"),
	Cost:         lipgloss.Color("#879A39"),
	Tokens:       lipgloss.Color("#4385BE"),
	Warn:         lipgloss.Color("#DA702C"),
	Bad:          lipgloss.Color("#D14D41"),
	Highlight:    lipgloss.Color("#D0A215"),
}

// TokyoNight is a cool blue palette.
var TokyoNight = Theme{
	Name:         "tokyo-night",
	Surface:      lipgloss.Color("#24283B"),
	Border:       lipgloss.Color("#565F89"),
	BorderAccent: lipgloss.Color("#7AA2F7"),
	TextDim:      lipgloss.Color("#565F89"),
	TextMuted:    lipgloss.Color("#A9B1D6"),
	Text:         lipgloss.Color("#C0CAF5"),
	Accent:       lipgloss.Color("#7AA2F7"),
	AccentDim:    lipgloss.Color("#252B3F"),
	Cost:         lipgloss.Color("#9ECE6A"),
	Tokens:       lipgloss.Color("#7DCFFF"),
	Warn:         lipgloss.Color("#FF9E64"),
	Bad:          lipgloss.Color("#F7768E"),
	Highlight:    lipgloss.Color("#E0AF68"),
}

// Terminal sticks to the ANSI 16 colors.
var Terminal = Theme{
	Name:         "terminal",
	Surface:      lipgloss.Color("0"),
	Border:       lipgloss.Color("8"),
	BorderAccent: lipgloss.Color("6"),
	TextDim:      lipgloss.Color("8"),
	TextMuted:    lipgloss.Color("7"),
	Text:         lipgloss.Color("15"),
	Accent:       lipgloss.Color("6"),
	AccentDim:    lipgloss.Color("0"),
	Cost:         lipgloss.Color("2"),
	Tokens:       lipgloss.Color("4"),
	Warn:         lipgloss.Color("3"),
	Bad:          lipgloss.Color("1"),
	Highlight:    lipgloss.Color("11"),
}

// All lists the selectable palettes.
var All = []Theme{FlexokiDark, TokyoNight, Terminal}

// Active is the palette used for rendering.
var Active = FlexokiDark

// ByName returns the named palette, defaulting to FlexokiDark.
func ByName(name string) Theme {
	for _, t := range All {
		if t.Name == name {
			return t
		}
	}
	return FlexokiDark
}

// Names returns the selectable palette names.
func Names() []string {
	names := make([]string, len(All))
	for i, t := range All {
		names[i] = t.Name
	}
	return names
}

// SetActive selects the palette by name.
func SetActive(name string) {
	Active = ByName(name)
}

// ImpactColor picks the color for a tip's impact level.
func (t Theme) ImpactColor(impact string) lipgloss.Color {
	switch impact {
	case model.ImpactHigh:
		return t.Bad
	case model.ImpactMedium:
		return t.Warn
	case model.ImpactLow:
		return t.Highlight
	case model.ImpactPositive:
		return t.Cost
	}
	return t.Tokens
}
