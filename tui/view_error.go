package tui

import "fmt"

func (m Model) viewError() string {
	return fmt.Sprintf("\n\n   %s\n\n   Press R to retry or q to quit.\n", m.styles.Error.Render(m.messageFor(m.err)))
}
