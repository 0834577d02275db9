package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// BgStyle renders segments on one background color. Styling each word and
// joining with styled spaces avoids the gaps lipgloss leaves at ANSI resets.
// See: https://github.com/charmbracelet/lipgloss/discussions/78
type BgStyle struct {
	bg    lipgloss.Color
	space string
}

// NewBgStyle creates a background helper for bgColor.
func NewBgStyle(bgColor string) BgStyle {
	bg := lipgloss.Color(bgColor)
	return BgStyle{
		bg:    bg,
		space: lipgloss.NewStyle().Background(bg).Render(" "),
	}
}

// Render renders text with style on the background, spaces included.
func (b BgStyle) Render(text string, style lipgloss.Style) string {
	if text == "" {
		return ""
	}
	wordStyle := style.Background(b.bg)
	if !strings.Contains(text, " ") {
		return wordStyle.Render(text)
	}
	words := strings.Split(text, " ")
	for i, w := range words {
		if w != "" {
			words[i] = wordStyle.Render(w)
		}
	}
	return strings.Join(words, b.space)
}

// Spaces returns n styled spaces.
func (b BgStyle) Spaces(n int) string {
	return lipgloss.NewStyle().Background(b.bg).Render(strings.Repeat(" ", n))
}

// Join joins parts with a styled separator.
func (b BgStyle) Join(parts []string, sep string) string {
	return strings.Join(parts, lipgloss.NewStyle().Background(b.bg).Render(sep))
}

// renderBox draws a titled rounded border of the given outer size.
func (m Model) renderBox(title, content string, width, height int, focused bool) string {
	border := m.theme.Border
	if focused {
		border = m.theme.BorderFocus
	}
	innerW := maxInt(width-2, 1)
	innerH := maxInt(height-2, 1)

	lines := strings.Split(content, "\n")
	if len(lines) > innerH {
		lines = lines[:innerH]
	}
	body := lipgloss.NewStyle().
		Width(innerW).
		Height(innerH).
		Padding(0, 1).
		Render(strings.Join(lines, "\n"))

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(border)).
		Render(body)

	if title == "" {
		return box
	}
	// Overlay the title on the top border.
	rows := strings.SplitN(box, "\n", 2)
	label := lipgloss.NewStyle().
		Foreground(lipgloss.Color(m.theme.Accent)).
		Bold(true).
		Render(" " + truncate(title, maxInt(innerW-4, 1)) + " ")
	top := lipgloss.NewStyle().Foreground(lipgloss.Color(border)).Render("╭─") + label
	fill := innerW - 1 - lipgloss.Width(label)
	if fill > 0 {
		top += lipgloss.NewStyle().Foreground(lipgloss.Color(border)).Render(strings.Repeat("─", fill) + "╮")
	}
	if len(rows) == 2 {
		return top + "\n" + rows[1]
	}
	return top
}
