package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/njyeung/comentario/engine"
)

// EditorPanel is the text box for the engine's single open editor
type EditorPanel struct {
	ed        *engine.Editor
	input     textarea.Model
	anonymous bool
	styles    Styles
}

// NewEditorPanel binds a textarea to ed
func NewEditorPanel(ed *engine.Editor, styles Styles, width int) *EditorPanel {
	ta := textarea.New()
	ta.ShowLineNumbers = false
	ta.Placeholder = "Add a comment"
	ta.SetWidth(max(width, 20))
	ta.SetHeight(4)
	ta.SetValue(ed.Text())
	ta.Focus()

	return &EditorPanel{
		ed:        ed,
		input:     ta,
		anonymous: ed.Anonymous(),
		styles:    styles,
	}
}

// Editor is the engine editor this panel edits
func (p *EditorPanel) Editor() *engine.Editor {
	return p.ed
}

func (p *EditorPanel) Value() string {
	return p.input.Value()
}

// Anonymous is the state of the anonymous checkbox
func (p *EditorPanel) Anonymous() bool {
	if p.ed.AnonymousLocked() {
		return true
	}
	return p.anonymous && p.ed.ShowsAnonymousOption()
}

// ToggleAnonymous flips the checkbox when the editor offers it
func (p *EditorPanel) ToggleAnonymous() {
	if p.ed.ShowsAnonymousOption() && !p.ed.AnonymousLocked() {
		p.anonymous = !p.anonymous
	}
}

func (p *EditorPanel) SetWidth(width int) {
	p.input.SetWidth(max(width, 20))
}

// Update forwards input to the textarea and keeps the editor text in step
func (p *EditorPanel) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	p.input, cmd = p.input.Update(msg)
	if p.input.Value() != p.ed.Text() {
		p.ed.SetText(p.input.Value())
	}
	return cmd
}

func (p *EditorPanel) View() string {
	s := p.styles

	var title string
	switch p.ed.Kind() {
	case engine.EditorReply:
		title = "Reply"
	case engine.EditorEdit:
		title = "Edit comment"
	default:
		title = "New comment"
	}

	lines := []string{s.Title.Render(title), p.input.View()}
	if p.ed.Invalid() {
		lines = append(lines, s.Error.Render("Please write something first."))
	}
	if p.ed.ShowsAnonymousOption() {
		box := "[ ]"
		if p.Anonymous() {
			box = "[x]"
		}
		label := box + " Comment anonymously"
		if p.ed.AnonymousLocked() {
			label += " (required)"
		}
		lines = append(lines, s.Meta.Render(label))
	}
	return s.Editor.Render(strings.Join(lines, "\n"))
}
