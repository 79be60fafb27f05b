package tui

import (
	"context"
	"errors"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/njyeung/comentario/backend"
	"github.com/njyeung/comentario/config"
	"github.com/njyeung/comentario/engine"
	"github.com/njyeung/comentario/model"
)

// Messages
type (
	loadedMsg     struct{ err error }
	changedMsg    struct{}
	actionDoneMsg struct {
		action string
		err    error
	}
	authDoneMsg   struct{ err error }
	editorDoneMsg struct{ err error }
)

// State represents the app state
type state int

const (
	stateIdle state = iota
	stateLoading
	stateBrowsing
	stateError
)

// Options configures the UI
type Options struct {
	// Fragment is the URL fragment to focus after the first load
	Fragment string

	// AutoInit loads comments at startup instead of waiting for a key
	AutoInit bool

	Theme  config.ThemeConfig
	Plain  bool
	Logger engine.Logger
}

// Model is the Bubble Tea model
type Model struct {
	state    state
	ctx      context.Context
	eng      *engine.Engine
	prompter *prompter
	changes  chan struct{}
	opts     Options
	styles   Styles
	log      engine.Logger

	view   engine.View
	panel  *CommentsPanel
	editor *EditorPanel
	modal  *modal

	width   int
	height  int
	spinner spinner.Model
	help    help.Model
	err     error
	status  string

	submitting bool
}

// NewModel creates a new TUI model driving eng. The model installs itself
// as the engine's prompter.
func NewModel(ctx context.Context, eng *engine.Engine, opts Options) Model {
	styles := NewStyles(opts.Theme, opts.Plain)
	log := opts.Logger
	if log == nil {
		log = engine.NewNopLogger()
	}

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styles.Title

	m := Model{
		state:    stateIdle,
		ctx:      ctx,
		eng:      eng,
		prompter: newPrompter(),
		changes:  make(chan struct{}, 1),
		opts:     opts,
		styles:   styles,
		log:      log,
		panel:    NewCommentsPanel(styles),
		spinner:  s,
		help:     help.New(),
	}
	if opts.AutoInit {
		m.state = stateLoading
		m.status = "Loading comments..."
	}

	eng.SetPrompter(m.prompter)
	changes := m.changes
	eng.Subscribe(func() {
		select {
		case changes <- struct{}{}:
		default:
		}
	})
	return m
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spinner.Tick, m.waitForChange, m.waitForPrompt}
	if m.opts.AutoInit {
		cmds = append(cmds, m.load)
	}
	return tea.Batch(cmds...)
}

func (m Model) load() tea.Msg {
	if err := m.eng.Load(m.ctx); err != nil {
		return loadedMsg{err}
	}
	// an unknown comment id lands in the error panel
	_ = m.eng.Focus(m.opts.Fragment)
	return loadedMsg{}
}

func (m Model) waitForChange() tea.Msg {
	select {
	case <-m.changes:
		return changedMsg{}
	case <-m.ctx.Done():
		return nil
	}
}

func (m Model) waitForPrompt() tea.Msg {
	select {
	case msg := <-m.prompter.prompts:
		return msg
	case <-m.ctx.Done():
		return nil
	}
}

// run executes an engine action off the UI loop
func (m Model) run(action string, fn func(ctx context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return actionDoneMsg{action: action, err: fn(ctx)}
	}
}

// refresh pulls a new snapshot from the engine
func (m *Model) refresh() {
	m.view = m.eng.View()
	m.panel.SetCards(m.view.Cards)
	if id := m.eng.TakeFocus(); id != "" {
		m.panel.FocusOn(id)
	}

	switch {
	case m.view.Editor == nil:
		m.editor = nil
		m.submitting = false
	case m.editor == nil || m.editor.Editor() != m.view.Editor:
		m.editor = NewEditorPanel(m.view.Editor, m.styles, m.width-8)
		m.submitting = false
		if host := m.view.Editor.Host(); host != model.RootID {
			m.panel.FocusOn(host)
		}
	}
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.closeModal()
			return m, tea.Quit
		}
		switch {
		case m.modal != nil:
			return m.updateModal(msg)
		case m.editor != nil && m.state == stateBrowsing:
			return m.updateEditor(msg)
		}

		switch m.state {
		case stateIdle:
			if key.Matches(msg, keys.Quit) {
				return m, tea.Quit
			}
			m.state = stateLoading
			m.status = "Loading comments..."
			return m, m.load
		case stateError:
			switch {
			case key.Matches(msg, keys.Quit):
				return m, tea.Quit
			case key.Matches(msg, keys.Reload):
				m.state = stateLoading
				return m, m.load
			}
		case stateBrowsing:
			return m.updateBrowsing(msg)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.panel.SetSize(msg.Width, msg.Height)
		if m.editor != nil {
			m.editor.SetWidth(msg.Width - 8)
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case loadedMsg:
		m.refresh()
		m.status = ""
		if msg.err != nil && !m.view.Loaded {
			m.state = stateError
			m.err = msg.err
			return m, nil
		}
		m.state = stateBrowsing
		return m, nil

	case changedMsg:
		m.refresh()
		return m, m.waitForChange

	case loginPromptMsg:
		m.openLogin(msg.reply)
		return m, m.waitForPrompt

	case confirmPromptMsg:
		if m.modal != nil {
			msg.reply <- false
			return m, m.waitForPrompt
		}
		m.modal = newConfirmModal(msg.question, msg.reply)
		return m, m.waitForPrompt

	case actionDoneMsg:
		m.refresh()
		m.noteResult(msg.action, msg.err)
		return m, nil

	case editorDoneMsg:
		m.submitting = false
		m.refresh()
		if msg.err != nil && !errors.Is(msg.err, engine.ErrEmptyMarkdown) {
			m.noteResult("submit", msg.err)
		}
		return m, nil

	case authDoneMsg:
		m.refresh()
		if m.modal == nil {
			return m, nil
		}
		m.modal.busy = false
		switch {
		case m.view.Authenticated:
			m.modal.answerLogin(nil)
			m.modal = nil
			m.status = "Logged in as " + m.view.Self.Name
		case msg.err != nil:
			m.modal.err = m.messageFor(msg.err)
		default:
			m.modal.err = "Login was not completed."
		}
		return m, nil
	}

	return m, nil
}

// noteResult turns an action outcome into the status line. Backend
// failures are already in the engine's panel.
func (m *Model) noteResult(action string, err error) {
	switch {
	case err == nil:
		m.status = ""
	case errors.Is(err, engine.ErrControlUnavailable):
		m.status = "Not available for this comment."
	case errors.Is(err, context.Canceled):
	default:
		m.log.Debug("action returned error", "action", action, "err", err)
	}
}

func (m *Model) messageFor(err error) string {
	if m.view.Panel.Kind != engine.PanelNone {
		return m.view.Panel.Message
	}
	var apiErr *backend.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return err.Error()
}

func (m Model) updateBrowsing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, keys.Up):
		m.panel.Move(-1)
	case key.Matches(msg, keys.Down):
		m.panel.Move(1)
	case key.Matches(msg, keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	case key.Matches(msg, keys.Sort):
		p := m.eng.CycleSortPolicy()
		m.status = "Sorted by " + p.Label()
		m.refresh()
	case key.Matches(msg, keys.New):
		return m, m.run("new", m.eng.StartTopLevel)
	case key.Matches(msg, keys.Lock):
		if !m.view.Page.IsModerator {
			m.status = "Only moderators can lock this thread."
			return m, nil
		}
		return m, m.run("lock", m.eng.ToggleLock)
	case key.Matches(msg, keys.Login):
		if m.view.Authenticated {
			m.status = "Already logged in as " + m.view.Self.Name
			return m, nil
		}
		m.openLogin(nil)
	case key.Matches(msg, keys.Logout):
		if !m.view.Authenticated {
			return m, nil
		}
		m.status = "Logged out"
		return m, m.run("logout", m.eng.Logout)
	case key.Matches(msg, keys.Reload):
		return m, m.run("reload", m.eng.Reload)
	default:
		return m.pressControl(msg)
	}
	return m, nil
}

// pressControl presses the control bound to msg on the selected card
func (m Model) pressControl(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	card := m.panel.Selected()
	if card == nil {
		return m, nil
	}
	for _, ck := range controlKeys {
		if !key.Matches(msg, *ck.binding) {
			continue
		}
		ctrl := ck.control
		if ctrl == engine.ControlCollapse {
			m.noteResult(ctrl.String(), card.Press(m.ctx, ctrl))
			m.refresh()
			return m, nil
		}
		return m, m.run(ctrl.String(), func(ctx context.Context) error {
			return card.Press(ctx, ctrl)
		})
	}
	return m, nil
}

func (m Model) updateEditor(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, editorKeys.Cancel):
		_ = m.eng.CancelEditor()
		m.refresh()
		return m, nil
	case key.Matches(msg, editorKeys.Anonymous):
		m.editor.ToggleAnonymous()
		return m, nil
	case key.Matches(msg, editorKeys.Submit):
		if m.submitting {
			return m, nil
		}
		m.submitting = true
		text, anonymous := m.editor.Value(), m.editor.Anonymous()
		ctx := m.ctx
		return m, func() tea.Msg {
			return editorDoneMsg{m.eng.SubmitEditor(ctx, text, anonymous)}
		}
	}
	return m, m.editor.Update(msg)
}

func (m *Model) openLogin(reply chan error) {
	if m.modal != nil {
		if m.modal.kind != modalConfirm && m.modal.loginReply == nil {
			m.modal.loginReply = reply
			return
		}
		if reply != nil {
			reply <- nil
		}
		return
	}
	m.modal = newLoginModal(m.view.Page.AuthMethods, reply)
}

// closeModal releases anything waiting on the dialog
func (m *Model) closeModal() {
	if m.modal == nil {
		return
	}
	m.modal.answerLogin(nil)
	m.modal.answerConfirm(false)
	m.modal = nil
}

func (m Model) updateModal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	md := m.modal
	if md.kind == modalConfirm {
		switch msg.String() {
		case "y", "Y", "enter":
			md.answerConfirm(true)
			m.modal = nil
		case "n", "N", "esc":
			m.closeModal()
		}
		return m, nil
	}

	if msg.String() == "esc" {
		m.closeModal()
		return m, nil
	}
	if md.busy {
		return m, nil
	}

	switch msg.String() {
	case "tab", "down":
		md.cycle(1)
	case "shift+tab", "up":
		md.cycle(-1)
	case "ctrl+n":
		switch {
		case md.kind == modalSignup:
			md.toLogin()
		case md.password:
			md.toSignup()
		}
	case "ctrl+p":
		md.provider++
	case "ctrl+o":
		provider := md.selectedProvider()
		if provider == "" {
			return m, nil
		}
		md.busy, md.err = true, ""
		ctx := m.ctx
		return m, func() tea.Msg {
			return authDoneMsg{m.eng.LoginOAuth(ctx, provider)}
		}
	case "enter":
		if md.focus < len(md.inputs)-1 {
			md.cycle(1)
			return m, nil
		}
		return m, m.submitModal()
	default:
		return m, md.update(msg)
	}
	return m, nil
}

// submitModal sends the login or signup form
func (m *Model) submitModal() tea.Cmd {
	md := m.modal
	ctx := m.ctx
	eng := m.eng

	switch md.kind {
	case modalSignup:
		req := backend.SignupRequest{
			Name:     md.value(0),
			Email:    md.value(1),
			Website:  md.value(2),
			Password: md.inputs[3].Value(),
		}
		if req.Name == "" || req.Email == "" || req.Password == "" {
			md.err = "Name, email and password are required."
			return nil
		}
		md.busy, md.err = true, ""
		return func() tea.Msg { return authDoneMsg{eng.Signup(ctx, req)} }
	case modalLogin:
		if !md.password {
			return nil
		}
		email, password := md.value(0), md.inputs[1].Value()
		if email == "" || password == "" {
			md.err = "Email and password are required."
			return nil
		}
		md.busy, md.err = true, ""
		return func() tea.Msg { return authDoneMsg{eng.Login(ctx, email, password)} }
	}
	return nil
}

// View renders the UI
func (m Model) View() string {
	if m.modal != nil {
		return m.viewModal()
	}
	switch m.state {
	case stateIdle:
		return m.viewIdle()
	case stateLoading:
		return m.viewLoading()
	case stateError:
		return m.viewError()
	case stateBrowsing:
		return m.viewBrowsing()
	default:
		return ""
	}
}

// Run starts the UI and blocks until the user quits
func Run(ctx context.Context, eng *engine.Engine, opts Options) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(NewModel(ctx, eng, opts), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
