package console

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// isTTY reports whether stdout is attached to a terminal; output that
// would otherwise be colorized degrades to plain text when it is not
// (redirected to a file, piped into another process, CI logs).
func isTTY() bool {
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}

func applyStyle(style lipgloss.Style, text string) string {
	if isTTY() {
		return style.Render(text)
	}
	return text
}

// statusStyle picks the style for one of the four check-report statuses
// this package knows how to render: Healthy, Missing, Drifted, Broken.
func statusStyle(status string) lipgloss.Style {
	switch status {
	case "Healthy":
		return styleHealthy
	case "Drifted":
		return styleDrifted
	case "Missing":
		return styleMissing
	case "Broken":
		return styleBroken
	default:
		return styleMuted
	}
}

// RenderStatusLine formats one check-report row as "<status>  <path>  <detail>".
func RenderStatusLine(status, path, detail string) string {
	label := applyStyle(statusStyle(status), fmt.Sprintf("%-8s", status))
	pathText := applyStyle(stylePath, path)
	if detail == "" {
		return fmt.Sprintf("%s %s", label, pathText)
	}
	return fmt.Sprintf("%s %s %s", label, pathText, applyStyle(styleMuted, "("+detail+")"))
}

// Error renders a structured error line: "error: <message>".
func Error(message string) string {
	return fmt.Sprintf("%s %s", applyStyle(styleError, "error:"), message)
}

// Info renders an informational line: "info: <message>".
func Info(message string) string {
	return fmt.Sprintf("%s %s", applyStyle(styleInfo, "info:"), message)
}

// Success renders a confirmation line.
func Success(message string) string {
	return fmt.Sprintf("%s %s", applyStyle(styleHealthy, "✓"), message)
}

// Summary renders a one-line aggregate count, e.g. "3 healthy, 1 drifted, 0 missing, 0 broken".
func Summary(counts map[string]int) string {
	order := []string{"Healthy", "Drifted", "Missing", "Broken"}
	parts := make([]string, 0, len(order))
	for _, status := range order {
		parts = append(parts, applyStyle(statusStyle(status), fmt.Sprintf("%d %s", counts[status], strings.ToLower(status))))
	}
	return strings.Join(parts, ", ")
}
