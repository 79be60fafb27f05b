package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/njyeung/comentario/backend"
	"github.com/njyeung/comentario/model"
)

// DefaultPollInterval is how often an OAuth popup is checked for closure
const DefaultPollInterval = 500 * time.Millisecond

// Prompter asks the user things the engine cannot decide on its own
type Prompter interface {
	// Login shows the login dialog and returns once the user logged in,
	// signed up or gave up. The engine re-checks its own auth state after.
	Login(ctx context.Context) error

	// Confirm asks a yes/no question
	Confirm(ctx context.Context, question string) (bool, error)
}

// Options configures an Engine. Backend and Tokens are required.
type Options struct {
	Backend  backend.Backend
	Tokens   backend.TokenStore
	Popup    backend.Popup
	Prompter Prompter
	Logger   Logger
	Clock    Clock

	Domain      string
	Path        string
	HideDeleted bool

	// PollInterval overrides DefaultPollInterval
	PollInterval time.Duration
}

// PageState is the page-level configuration from the last reload
type PageState struct {
	RequireIdentification bool
	IsModerator           bool
	IsFrozen              bool
	IsLocked              bool
	Sticky                model.CommentID
	AuthMethods           map[string]bool
}

// AnonymousOnly reports whether the page offers no way to log in and
// does not require one
func (p PageState) AnonymousOnly() bool {
	if p.RequireIdentification {
		return false
	}
	for _, enabled := range p.AuthMethods {
		if enabled {
			return false
		}
	}
	return true
}

// PanelKind distinguishes messages in the error panel
type PanelKind int

const (
	PanelNone PanelKind = iota
	PanelError
	PanelNotFound
)

// Panel is the single message area shown above the comments
type Panel struct {
	Kind    PanelKind
	Message string
}

// View is a complete snapshot for the front-end to draw
type View struct {
	Loaded        bool
	Authenticated bool
	Self          model.Commenter
	Email         string
	Page          PageState
	Policy        model.SortPolicy
	Cards         []*Card
	Count         int
	Panel         Panel
	Editor        *Editor
	Focus         model.CommentID
	RenderedAt    time.Time
}

// Engine is one mounted comment section. Independent engines share nothing.
type Engine struct {
	backend      backend.Backend
	tokens       backend.TokenStore
	popup        backend.Popup
	prompter     Prompter
	logger       Logger
	clock        Clock
	domain       string
	path         string
	hideDeleted  bool
	pollInterval time.Duration

	editors   *EditorController
	callbacks *Callbacks

	mu          sync.Mutex
	loaded      bool
	self        *model.Commenter
	email       string
	page        PageState
	tree        *Tree
	commenters  map[model.CommenterID]*model.Commenter
	policy      model.SortPolicy
	policySet   bool
	collapsed   map[model.CommentID]bool
	panel       Panel
	focus       model.CommentID
	reloadGen   uint64
	subscribers []func()
}

// New creates an engine for one page. Nothing is fetched until Load.
func New(opts Options) (*Engine, error) {
	if opts.Backend == nil {
		return nil, errors.New("engine: backend is required")
	}
	if opts.Tokens == nil {
		return nil, errors.New("engine: token store is required")
	}
	if opts.Logger == nil {
		opts.Logger = NewNopLogger()
	}
	if opts.Clock == nil {
		opts.Clock = RealClock{}
	}
	if opts.Prompter == nil {
		opts.Prompter = declinePrompter{}
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}

	e := &Engine{
		backend:      opts.Backend,
		tokens:       opts.Tokens,
		popup:        opts.Popup,
		prompter:     opts.Prompter,
		logger:       opts.Logger,
		clock:        opts.Clock,
		domain:       opts.Domain,
		path:         opts.Path,
		hideDeleted:  opts.HideDeleted,
		pollInterval: opts.PollInterval,
		editors:      NewEditorController(),
		tree:         NewTree(nil),
		commenters:   make(map[model.CommenterID]*model.Commenter),
		collapsed:    make(map[model.CommentID]bool),
	}
	e.callbacks = &Callbacks{
		Approve:  e.Approve,
		Delete:   e.Delete,
		Edit:     e.StartEdit,
		Reply:    e.StartReply,
		Sticky:   e.ToggleSticky,
		Vote:     e.Vote,
		Collapse: e.ToggleCollapse,
	}
	return e, nil
}

// SetPrompter replaces the prompter, for front-ends that are built after the engine
func (e *Engine) SetPrompter(p Prompter) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if p == nil {
		p = declinePrompter{}
	}
	e.prompter = p
}

func (e *Engine) currentPrompter() Prompter {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.prompter
}

// Subscribe registers fn to run after every state change. fn is called
// without the engine's lock held and may call View.
func (e *Engine) Subscribe(fn func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.subscribers = append(e.subscribers, fn)
}

func (e *Engine) notify() {
	e.mu.Lock()
	subs := append([]func(){}, e.subscribers...)
	e.mu.Unlock()
	for _, fn := range subs {
		fn()
	}
}

// Load is the initial fetch. It clears the panel like any other action.
func (e *Engine) Load(ctx context.Context) error {
	e.clearPanel()
	return e.Reload(ctx)
}

// Reload re-fetches auth status and the comment list and rebuilds the
// tree. If another reload starts before this one finishes, this one's
// result is dropped.
func (e *Engine) Reload(ctx context.Context) error {
	e.mu.Lock()
	e.reloadGen++
	gen := e.reloadGen
	e.mu.Unlock()

	token := e.token()

	var self *backend.SelfStatus
	if token != backend.AnonymousToken {
		status, err := e.backend.SelfStatus(ctx, token)
		if err != nil {
			return e.failReload(gen, fmt.Errorf("checking login status: %w", err))
		}
		self = status
	}

	data, err := e.backend.ListComments(ctx, e.domain, e.path, token)
	if err != nil {
		return e.failReload(gen, fmt.Errorf("loading comments: %w", err))
	}

	tree := NewTree(data.Comments)

	e.mu.Lock()
	if gen != e.reloadGen {
		e.mu.Unlock()
		e.logger.Debug("discarding stale reload", "generation", gen)
		return nil
	}

	e.self, e.email = nil, ""
	if self != nil && self.Commenter != nil {
		cr := *self.Commenter
		e.self, e.email = &cr, self.Email
	}
	e.page = PageState{
		RequireIdentification: data.RequireIdentification,
		IsModerator:           data.IsModerator,
		IsFrozen:              data.IsFrozen,
		IsLocked:              data.Attributes.IsLocked,
		Sticky:                model.NormalizeSticky(data.Attributes.StickyCommentID),
		AuthMethods:           data.ConfiguredOAuths,
	}
	e.commenters = make(map[model.CommenterID]*model.Commenter, len(data.Commenters)+1)
	for _, cr := range data.Commenters {
		e.commenters[cr.ID] = cr
	}
	if e.self != nil {
		e.commenters[e.self.ID] = e.self
	}
	if !e.policySet {
		e.policy = data.DefaultSortPolicy
	}
	e.tree = tree
	e.loaded = true
	e.mu.Unlock()

	if orphans := tree.Orphans(); len(orphans) > 0 {
		for _, c := range orphans {
			e.logger.Debug("comment unreachable from root", "id", c.ID, "parent", c.ParentID)
		}
	}
	e.logger.Info("loaded comments", "domain", e.domain, "path", e.path, "count", tree.Len())

	e.notify()
	return nil
}

func (e *Engine) failReload(gen uint64, err error) error {
	e.mu.Lock()
	stale := gen != e.reloadGen
	e.mu.Unlock()
	if stale {
		e.logger.Debug("discarding stale reload failure", "generation", gen, "err", err)
		return nil
	}
	return e.fail(err)
}

// token returns the stored commenter token, or AnonymousToken
func (e *Engine) token() string {
	token, ok := e.tokens.Load()
	if !ok || token == "" {
		return backend.AnonymousToken
	}
	return token
}

// View renders the current state
func (e *Engine) View() View {
	e.mu.Lock()
	defer e.mu.Unlock()

	rc := e.renderContext()
	cards := Render(e.tree, model.RootID, rc)

	v := View{
		Loaded:        e.loaded,
		Authenticated: e.self != nil,
		Email:         e.email,
		Page:          e.page,
		Policy:        e.policy,
		Cards:         cards,
		Count:         CountCards(cards),
		Panel:         e.panel,
		Editor:        e.editors.Active(),
		Focus:         e.focus,
		RenderedAt:    rc.Now,
	}
	if e.self != nil {
		v.Self = *e.self
	}
	return v
}

// renderContext must be called with e.mu held
func (e *Engine) renderContext() *RenderContext {
	collapsed := make(map[model.CommentID]bool, len(e.collapsed))
	for id, v := range e.collapsed {
		collapsed[id] = v
	}
	rc := &RenderContext{
		Authenticated: e.self != nil,
		Moderator:     e.page.IsModerator,
		Locked:        e.page.IsLocked,
		Frozen:        e.page.IsFrozen,
		Sticky:        e.page.Sticky,
		Policy:        e.policy,
		HideDeleted:   e.hideDeleted,
		Now:           e.clock.Now(),
		Collapsed:     collapsed,
		Commenters:    e.commenters,
		Callbacks:     e.callbacks,
	}
	if e.self != nil {
		rc.Viewer = e.self.ID
	}
	return rc
}

// Authenticated reports whether a commenter is logged in
func (e *Engine) Authenticated() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.self != nil
}

func (e *Engine) pageState() PageState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.page
}

func (e *Engine) clearPanel() {
	e.mu.Lock()
	changed := e.panel.Kind != PanelNone
	e.panel = Panel{}
	e.mu.Unlock()
	if changed {
		e.notify()
	}
}

func (e *Engine) setPanel(p Panel) {
	e.mu.Lock()
	e.panel = p
	e.mu.Unlock()
	e.notify()
}

// fail funnels an action error into the panel and returns it. Cancelled
// contexts are not shown.
func (e *Engine) fail(err error) error {
	if errors.Is(err, context.Canceled) {
		e.logger.Debug("action cancelled", "err", err)
		return err
	}
	e.logger.Error("action failed", "err", err)
	e.setPanel(Panel{Kind: PanelError, Message: panelMessage(err)})
	return err
}

// panelMessage prefers the server's own message when there is one
func panelMessage(err error) string {
	var apiErr *backend.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return err.Error()
}

type declinePrompter struct{}

func (declinePrompter) Login(context.Context) error { return nil }

func (declinePrompter) Confirm(context.Context, string) (bool, error) { return false, nil }
