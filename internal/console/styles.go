// Package console renders orchestrator output (check reports, sync
// summaries, structured errors) to the terminal, adapting color use to
// light/dark terminals and falling back to plain text when stdout is not
// a TTY.
package console

import "github.com/charmbracelet/lipgloss"

// Adaptive colors, one per status/severity this package renders. Light
// variants favor darker, more saturated tones for light-background
// terminals; dark variants favor brighter tones.
var (
	colorHealthy = lipgloss.AdaptiveColor{Light: "#27AE60", Dark: "#50FA7B"}
	colorDrifted = lipgloss.AdaptiveColor{Light: "#E67E22", Dark: "#FFB86C"}
	colorMissing = lipgloss.AdaptiveColor{Light: "#E67E22", Dark: "#FFB86C"}
	colorBroken  = lipgloss.AdaptiveColor{Light: "#D73737", Dark: "#FF5555"}
	colorError   = lipgloss.AdaptiveColor{Light: "#D73737", Dark: "#FF5555"}
	colorInfo    = lipgloss.AdaptiveColor{Light: "#2980B9", Dark: "#8BE9FD"}
	colorMuted   = lipgloss.AdaptiveColor{Light: "#6C7A89", Dark: "#6272A4"}
	colorPath    = lipgloss.AdaptiveColor{Light: "#8E44AD", Dark: "#BD93F9"}
)

var (
	styleHealthy = lipgloss.NewStyle().Foreground(colorHealthy).Bold(true)
	styleDrifted = lipgloss.NewStyle().Foreground(colorDrifted).Bold(true)
	styleMissing = lipgloss.NewStyle().Foreground(colorMissing).Bold(true)
	styleBroken  = lipgloss.NewStyle().Foreground(colorBroken).Bold(true)
	styleError   = lipgloss.NewStyle().Foreground(colorError).Bold(true)
	styleInfo    = lipgloss.NewStyle().Foreground(colorInfo)
	styleMuted   = lipgloss.NewStyle().Foreground(colorMuted)
	stylePath    = lipgloss.NewStyle().Foreground(colorPath)
)
