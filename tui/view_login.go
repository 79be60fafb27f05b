package tui

import "github.com/charmbracelet/lipgloss"

// viewModal draws the open dialog in the middle of the screen
func (m Model) viewModal() string {
	dialog := m.modal.view(m.styles, m.spinner.View())
	if m.width == 0 || m.height == 0 {
		return dialog
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, dialog)
}
