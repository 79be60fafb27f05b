package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/njyeung/comentario/engine"
	"github.com/njyeung/comentario/model"
)

func (m Model) viewBrowsing() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}
	s := m.styles
	v := m.view

	// Header: count, sort order and who is logged in
	var top []string
	title := s.Title.Render(fmt.Sprintf("%d comments", v.Count))
	if v.Count == 1 {
		title = s.Title.Render("1 comment")
	}
	title += s.Meta.Render("  sorted by " + v.Policy.Label())
	who := s.Nav.Render("not logged in")
	if v.Authenticated {
		who = s.Author.Render(v.Self.Name)
		if v.Page.IsModerator {
			who += " " + s.Badge.Render("mod")
		}
	}
	gap := max(m.width-lipgloss.Width(title)-lipgloss.Width(who), 1)
	top = append(top, title+strings.Repeat(" ", gap)+who)

	switch {
	case v.Page.IsFrozen:
		top = append(top, s.Notice.Render("This thread is frozen. Comments cannot be added or voted on."))
	case v.Page.IsLocked:
		top = append(top, s.Notice.Render("This thread is locked. You cannot add new comments."))
	}

	switch v.Panel.Kind {
	case engine.PanelError:
		top = append(top, s.Error.Render("Error: "+v.Panel.Message))
	case engine.PanelNotFound:
		top = append(top, s.Error.Render(v.Panel.Message))
	}
	top = append(top, "")

	var host model.CommentID
	var editorView string
	if m.editor != nil {
		host = m.editor.Editor().Host()
		editorView = m.editor.View()
		if host == model.RootID {
			top = append(top, editorView, "")
		}
	}

	// Footer: status, controls for the selected card, help
	var bottom []string
	if m.status != "" {
		bottom = append(bottom, s.Meta.Render(m.status))
	}
	if m.editor != nil {
		bottom = append(bottom, m.help.View(editorKeys))
	} else {
		if hint := m.panel.controlsHint(); hint != "" {
			bottom = append(bottom, s.Nav.Render(hint))
		}
		bottom = append(bottom, m.help.View(keys))
	}

	header := strings.Join(top, "\n")
	footer := strings.Join(bottom, "\n")
	m.panel.SetSize(m.width, max(m.height-lipgloss.Height(header)-lipgloss.Height(footer)-1, 1))
	body := m.panel.View(host, editorView)

	return header + "\n" + body + "\n\n" + footer
}
