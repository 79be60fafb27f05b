package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/njyeung/comentario/config"
	"github.com/njyeung/comentario/engine"
)

// Print writes a static, uncoloured rendering of v to w
func Print(w io.Writer, v engine.View, width int) error {
	cp := NewCommentsPanel(NewStyles(config.ThemeConfig{}, true))
	cp.SetSize(width, 0)
	cp.SetCards(v.Cards)

	lines := []string{fmt.Sprintf("%d comments, sorted by %s", v.Count, v.Policy.Label())}
	switch {
	case v.Page.IsFrozen:
		lines = append(lines, "This thread is frozen.")
	case v.Page.IsLocked:
		lines = append(lines, "This thread is locked.")
	}
	if v.Panel.Kind != engine.PanelNone {
		lines = append(lines, v.Panel.Message)
	}
	lines = append(lines, "")

	for i := range cp.rows {
		lines = append(lines, cp.renderRow(i, false)...)
		lines = append(lines, "")
	}

	_, err := io.WriteString(w, strings.Join(lines, "\n"))
	return err
}
