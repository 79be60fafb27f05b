package tui

import (
	"fmt"
	"strings"
)

func (m Model) viewLoading() string {
	if m.width == 0 || m.height == 0 {
		return fmt.Sprintf("\n\n   %s %s\n\n", m.spinner.View(), m.status)
	}
	return m.renderSplash(m.spinner.View() + " " + m.status)
}

func (m Model) viewIdle() string {
	hint := "Press any key to load comments, q to quit."
	if m.width == 0 || m.height == 0 {
		return "\n\n   " + hint + "\n"
	}
	return m.renderSplash(m.styles.Nav.Render(hint))
}

// renderSplash centers the logo with a status line under it
func (m Model) renderSplash(status string) string {
	logo := []string{
		"┌─┐┌─┐┌┬┐┌─┐┌┐┌┌┬┐┌─┐┬─┐┬┌─┐",
		"│  │ ││││├┤ │││ │ ├─┤├┬┘││ │",
		"└─┘└─┘┴ ┴└─┘┘└┘ ┴ ┴ ┴┴└─┴└─┘",
		"",
	}

	startRow := (m.height - len(logo) - 1) / 2

	var b strings.Builder
	for y := range m.height {
		switch {
		case y >= startRow && y < startRow+len(logo):
			b.WriteString(center(m.styles.Title.Render(logo[y-startRow]), logo[y-startRow], m.width))
		case y == startRow+len(logo):
			b.WriteString(center(status, status, m.width))
		}
		if y < m.height-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

// center pads styled so that its plain form sits in the middle of width
func center(styled, plain string, width int) string {
	pad := max(width-len([]rune(plain)), 0)
	return strings.Repeat(" ", pad/2) + styled
}
