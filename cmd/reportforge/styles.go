package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	colorSuccess = lipgloss.AdaptiveColor{Light: "28", Dark: "10"}
	colorWarning = lipgloss.AdaptiveColor{Light: "136", Dark: "11"}
	colorError   = lipgloss.AdaptiveColor{Light: "160", Dark: "9"}
	colorMuted   = lipgloss.AdaptiveColor{Light: "243", Dark: "244"}
	colorPrimary = lipgloss.AdaptiveColor{Light: "25", Dark: "33"}

	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorPrimary)
	successStyle = lipgloss.NewStyle().Foreground(colorSuccess)
	warningStyle = lipgloss.NewStyle().Foreground(colorWarning)
	errorStyle   = lipgloss.NewStyle().Foreground(colorError).Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(colorMuted)
	labelStyle   = lipgloss.NewStyle().Width(16).Foreground(colorMuted)
)

// printer writes styled status lines.
type printer struct {
	w io.Writer
}

func (p printer) title(s string) {
	fmt.Fprintln(p.w, titleStyle.Render(s))
}

func (p printer) ok(format string, args ...interface{}) {
	fmt.Fprintln(p.w, successStyle.Render("✓ "+fmt.Sprintf(format, args...)))
}

func (p printer) warn(format string, args ...interface{}) {
	fmt.Fprintln(p.w, warningStyle.Render("! "+fmt.Sprintf(format, args...)))
}

func (p printer) fail(format string, args ...interface{}) {
	fmt.Fprintln(p.w, errorStyle.Render("✗ "+fmt.Sprintf(format, args...)))
}

func (p printer) muted(format string, args ...interface{}) {
	fmt.Fprintln(p.w, mutedStyle.Render(fmt.Sprintf(format, args...)))
}

// field prints an aligned "label value" line.
func (p printer) field(label string, value interface{}) {
	fmt.Fprintln(p.w, lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(label), fmt.Sprint(value)))
}

// table prints rows as left-aligned columns padded to the widest cell.
func (p printer) table(header []string, rows [][]string) {
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && lipgloss.Width(cell) > widths[i] {
				widths[i] = lipgloss.Width(cell)
			}
		}
	}
	line := func(cells []string, style lipgloss.Style) string {
		parts := make([]string, len(cells))
		for i, c := range cells {
			parts[i] = style.Width(widths[i]).Render(c)
		}
		return strings.Join(parts, "  ")
	}
	fmt.Fprintln(p.w, line(header, lipgloss.NewStyle().Bold(true)))
	for _, row := range rows {
		fmt.Fprintln(p.w, line(row, lipgloss.NewStyle()))
	}
}
