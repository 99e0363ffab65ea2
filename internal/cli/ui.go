package cli

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/corepkg/extractor/pkg/resolve"
)

// =============================================================================
// Color Palette
// =============================================================================

var (
	colorCyan   = lipgloss.Color("36")
	colorGreen  = lipgloss.Color("35")
	colorYellow = lipgloss.Color("220")
	colorRed    = lipgloss.Color("167")
	colorWhite  = lipgloss.Color("255")
	colorGray   = lipgloss.Color("245")
	colorDim    = lipgloss.Color("240")
)

// =============================================================================
// Styles
// =============================================================================

var (
	styleTitle     = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	styleHighlight = lipgloss.NewStyle().Foreground(colorCyan)
	styleDim       = lipgloss.NewStyle().Foreground(colorDim)
	styleValue     = lipgloss.NewStyle().Foreground(colorWhite)

	styleIconSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	styleIconError   = lipgloss.NewStyle().Foreground(colorRed)
	styleIconWarning = lipgloss.NewStyle().Foreground(colorYellow)

	styleIncluded   = lipgloss.NewStyle().Foreground(colorGreen)
	styleBlocked    = lipgloss.NewStyle().Foreground(colorYellow)
	styleUnlicensed = lipgloss.NewStyle().Foreground(colorRed)
	styleExternal   = lipgloss.NewStyle().Foreground(colorGray)
)

// =============================================================================
// Icons
// =============================================================================

const (
	iconSuccess = "✓"
	iconError   = "✗"
	iconWarning = "!"
)

// styleForStatus returns the display style for an inclusion status.
func styleForStatus(s resolve.Status) lipgloss.Style {
	switch s {
	case resolve.StatusIncluded:
		return styleIncluded
	case resolve.StatusBlocked:
		return styleBlocked
	case resolve.StatusUnlicensed:
		return styleUnlicensed
	default:
		return styleExternal
	}
}

// =============================================================================
// Status Output
// =============================================================================

func printSuccess(format string, args ...any) {
	fmt.Println(styleIconSuccess.Render(iconSuccess) + " " + fmt.Sprintf(format, args...))
}

func printError(format string, args ...any) {
	fmt.Println(styleIconError.Render(iconError) + " " + fmt.Sprintf(format, args...))
}

func printWarning(format string, args ...any) {
	fmt.Println(styleIconWarning.Render(iconWarning) + " " + fmt.Sprintf(format, args...))
}
