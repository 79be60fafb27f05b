package tui

import (
	"context"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/njyeung/comentario/engine"
)

// passwordMethod is the auth method key for email and password login
const passwordMethod = "commento"

// Messages sent by the prompter from engine goroutines
type (
	loginPromptMsg   struct{ reply chan error }
	confirmPromptMsg struct {
		question string
		reply    chan bool
	}
)

// prompter hands engine questions to the UI loop and waits for the answer
type prompter struct {
	prompts chan tea.Msg
}

func newPrompter() *prompter {
	return &prompter{prompts: make(chan tea.Msg)}
}

func (p *prompter) Login(ctx context.Context) error {
	reply := make(chan error, 1)
	select {
	case p.prompts <- loginPromptMsg{reply: reply}:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *prompter) Confirm(ctx context.Context, question string) (bool, error) {
	reply := make(chan bool, 1)
	select {
	case p.prompts <- confirmPromptMsg{question: question, reply: reply}:
	case <-ctx.Done():
		return false, ctx.Err()
	}
	select {
	case ok := <-reply:
		return ok, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

var _ engine.Prompter = (*prompter)(nil)

type modalKind int

const (
	modalLogin modalKind = iota
	modalSignup
	modalConfirm
)

// modal is the one dialog shown over the comments
type modal struct {
	kind     modalKind
	inputs   []textinput.Model
	focus    int
	question string
	err      string
	busy     bool

	password  bool
	providers []string
	provider  int

	// set when the engine is waiting on this dialog
	loginReply   chan error
	confirmReply chan bool
}

func newConfirmModal(question string, reply chan bool) *modal {
	return &modal{kind: modalConfirm, question: question, confirmReply: reply}
}

// newLoginModal builds the login dialog for the page's auth methods
func newLoginModal(methods map[string]bool, reply chan error) *modal {
	m := &modal{kind: modalLogin, loginReply: reply}
	for name, enabled := range methods {
		switch {
		case !enabled:
		case name == passwordMethod:
			m.password = true
		default:
			m.providers = append(m.providers, name)
		}
	}
	sort.Strings(m.providers)
	if len(methods) == 0 {
		m.password = true
	}
	if m.password {
		m.inputs = []textinput.Model{
			newInput("Email", false),
			newInput("Password", true),
		}
		m.inputs[0].Focus()
	}
	return m
}

// toSignup switches a login dialog to the signup form, keeping the email
func (m *modal) toSignup() {
	email := ""
	if len(m.inputs) > 0 {
		email = m.inputs[0].Value()
	}
	m.kind = modalSignup
	m.err = ""
	m.inputs = []textinput.Model{
		newInput("Name", false),
		newInput("Email", false),
		newInput("Website (optional)", false),
		newInput("Password", true),
	}
	m.inputs[1].SetValue(email)
	m.focus = 0
	m.inputs[0].Focus()
}

// toLogin switches back from signup
func (m *modal) toLogin() {
	email := m.value(1)
	m.kind = modalLogin
	m.err = ""
	m.inputs = []textinput.Model{
		newInput("Email", false),
		newInput("Password", true),
	}
	m.inputs[0].SetValue(email)
	m.focus = 0
	m.inputs[0].Focus()
}

func newInput(placeholder string, secret bool) textinput.Model {
	in := textinput.New()
	in.Placeholder = placeholder
	in.CharLimit = 256
	in.Width = 40
	if secret {
		in.EchoMode = textinput.EchoPassword
		in.EchoCharacter = '•'
	}
	return in
}

func (m *modal) value(i int) string {
	if i < 0 || i >= len(m.inputs) {
		return ""
	}
	return strings.TrimSpace(m.inputs[i].Value())
}

// cycle moves input focus by delta
func (m *modal) cycle(delta int) {
	if len(m.inputs) == 0 {
		return
	}
	m.inputs[m.focus].Blur()
	m.focus = (m.focus + delta + len(m.inputs)) % len(m.inputs)
	m.inputs[m.focus].Focus()
}

func (m *modal) update(msg tea.Msg) tea.Cmd {
	if len(m.inputs) == 0 {
		return nil
	}
	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return cmd
}

// selectedProvider is the OAuth provider ctrl+o would use
func (m *modal) selectedProvider() string {
	if len(m.providers) == 0 {
		return ""
	}
	return m.providers[m.provider%len(m.providers)]
}

// answerLogin releases an engine waiting on the login dialog
func (m *modal) answerLogin(err error) {
	if m.loginReply != nil {
		m.loginReply <- err
		m.loginReply = nil
	}
}

func (m *modal) answerConfirm(ok bool) {
	if m.confirmReply != nil {
		m.confirmReply <- ok
		m.confirmReply = nil
	}
}

func (m *modal) view(s Styles, spinner string) string {
	var lines []string
	switch m.kind {
	case modalConfirm:
		lines = append(lines, s.Title.Render("Confirm"), "", m.question, "", s.Nav.Render("y: yes  n: no"))
		return s.Dialog.Render(strings.Join(lines, "\n"))
	case modalSignup:
		lines = append(lines, s.Title.Render("Create an account"), "")
	default:
		lines = append(lines, s.Title.Render("Log in"), "")
	}

	for _, in := range m.inputs {
		lines = append(lines, in.View())
	}
	if m.kind == modalLogin && !m.password {
		lines = append(lines, s.Notice.Render("Password login is disabled on this page."))
	}
	if m.kind == modalLogin && len(m.providers) > 0 {
		var names []string
		for i, p := range m.providers {
			if i == m.provider%len(m.providers) {
				p = s.Cursor.Render("[" + p + "]")
			}
			names = append(names, p)
		}
		lines = append(lines, "", "Log in with: "+strings.Join(names, " "))
	}
	if m.err != "" {
		lines = append(lines, "", s.Error.Render(m.err))
	}
	if m.busy {
		lines = append(lines, "", spinner+" Working...")
	}

	lines = append(lines, "")
	switch m.kind {
	case modalSignup:
		lines = append(lines, s.Nav.Render("tab: next field  enter: sign up  ctrl+n: back to login  esc: cancel"))
	default:
		hint := "esc: cancel"
		if m.password {
			hint = "tab: next field  enter: log in  ctrl+n: sign up  " + hint
		}
		if len(m.providers) > 0 {
			hint += "  ctrl+p: next provider  ctrl+o: open provider"
		}
		lines = append(lines, s.Nav.Render(hint))
	}
	return s.Dialog.Render(strings.Join(lines, "\n"))
}
