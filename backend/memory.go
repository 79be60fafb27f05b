package backend

import (
	"context"
	"fmt"
	"html"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/njyeung/comentario/model"
)

// PageConfig holds the server-side settings of one page in a MemoryBackend
type PageConfig struct {
	RequireIdentification bool
	IsFrozen              bool
	ModerateAnonymous     bool
	Moderators            []model.CommenterID
	OAuthProviders        map[string]bool
	DefaultSortPolicy     model.SortPolicy
}

type memoryPage struct {
	config   PageConfig
	attrs    model.PageAttributes
	comments []*model.Comment
}

type memoryAccount struct {
	password    string
	commenterID model.CommenterID
}

// MemoryBackend is an in-process Backend with the server's semantics.
// It backs the demo command and the tests.
type MemoryBackend struct {
	mu sync.Mutex

	pages      map[string]*memoryPage
	commenters map[model.CommenterID]*model.Commenter
	accounts   map[string]memoryAccount
	tokens     map[string]model.CommenterID
	votes      map[model.CommentID]map[model.CommenterID]model.Direction

	pendingOAuth map[string]bool
	failures     map[string]error
	calls        map[string]int

	now func() time.Time
}

// NewMemoryBackend creates an empty MemoryBackend
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		pages:        make(map[string]*memoryPage),
		commenters:   make(map[model.CommenterID]*model.Commenter),
		accounts:     make(map[string]memoryAccount),
		tokens:       make(map[string]model.CommenterID),
		votes:        make(map[model.CommentID]map[model.CommenterID]model.Direction),
		pendingOAuth: make(map[string]bool),
		failures:     make(map[string]error),
		calls:        make(map[string]int),
		now:          time.Now,
	}
}

// SetNow overrides the clock used to stamp new comments
func (m *MemoryBackend) SetNow(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

// ConfigurePage creates or reconfigures the page at domain+path
func (m *MemoryBackend) ConfigurePage(domain, path string, cfg PageConfig) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.page(domain, path).config = cfg
}

// SetAttributes overwrites the lock and sticky state of a page
func (m *MemoryBackend) SetAttributes(domain, path string, attrs model.PageAttributes) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.page(domain, path).attrs = attrs
}

// Attributes returns the persisted lock and sticky state of a page
func (m *MemoryBackend) Attributes(domain, path string) model.PageAttributes {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.page(domain, path).attrs
}

// AddAccount registers a commenter that can log in with email and password
func (m *MemoryBackend) AddAccount(email, password string, c model.Commenter) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.Email = email
	m.commenters[c.ID] = &c
	m.accounts[email] = memoryAccount{password: password, commenterID: c.ID}
}

// IssueToken returns a session token for an existing commenter
func (m *MemoryBackend) IssueToken(id model.CommenterID) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	token := newHex()
	m.tokens[token] = id
	return token
}

// AddComment seeds a comment as if it had been posted earlier
func (m *MemoryBackend) AddComment(domain, path string, c model.Comment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.HTML == "" && !c.Deleted {
		c.HTML = renderHTML(c.Markdown)
	}
	p := m.page(domain, path)
	p.comments = append(p.comments, &c)
}

// Comment returns a copy of the stored comment
func (m *MemoryBackend) Comment(id model.CommentID) (model.Comment, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.find(id)
	if c == nil {
		return model.Comment{}, false
	}
	return *c, true
}

// CompleteOAuth binds a pending OAuth token to a commenter, which is what
// the provider redirect does on a real server.
func (m *MemoryBackend) CompleteOAuth(token string, id model.CommenterID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.pendingOAuth[token] {
		return fmt.Errorf("oauth token %q: %w", token, ErrNotFound)
	}
	delete(m.pendingOAuth, token)
	m.tokens[token] = id
	return nil
}

// FailNext makes the next call to endpoint return err
func (m *MemoryBackend) FailNext(endpoint string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[endpoint] = err
}

// Calls reports how many times endpoint has been called
func (m *MemoryBackend) Calls(endpoint string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[endpoint]
}

func (m *MemoryBackend) enter(endpoint string) error {
	m.calls[endpoint]++
	if err, ok := m.failures[endpoint]; ok {
		delete(m.failures, endpoint)
		return err
	}
	return nil
}

func (m *MemoryBackend) page(domain, path string) *memoryPage {
	key := domain + path
	p, ok := m.pages[key]
	if !ok {
		p = &memoryPage{}
		m.pages[key] = p
	}
	return p
}

func (m *MemoryBackend) find(id model.CommentID) *model.Comment {
	for _, p := range m.pages {
		for _, c := range p.comments {
			if c.ID == id {
				return c
			}
		}
	}
	return nil
}

func (m *MemoryBackend) pageOf(id model.CommentID) *memoryPage {
	for _, p := range m.pages {
		for _, c := range p.comments {
			if c.ID == id {
				return p
			}
		}
	}
	return nil
}

func (m *MemoryBackend) viewer(token string) (model.CommenterID, bool) {
	id, ok := m.tokens[token]
	return id, ok
}

func (p *memoryPage) isModerator(id model.CommenterID) bool {
	for _, mod := range p.config.Moderators {
		if mod == id {
			return true
		}
	}
	return false
}

func (m *MemoryBackend) SelfStatus(ctx context.Context, token string) (*SelfStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("commenter/self"); err != nil {
		return nil, err
	}

	id, ok := m.viewer(token)
	if !ok {
		return &SelfStatus{}, nil
	}
	stored, ok := m.commenters[id]
	if !ok {
		return &SelfStatus{}, nil
	}
	c := *stored
	return &SelfStatus{Commenter: &c, Email: c.Email}, nil
}

func (m *MemoryBackend) ListComments(ctx context.Context, domain, path, token string) (*PageData, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("comment/list"); err != nil {
		return nil, err
	}

	p := m.page(domain, path)
	viewer, loggedIn := m.viewer(token)
	moderator := loggedIn && p.isModerator(viewer)

	data := &PageData{
		RequireIdentification: p.config.RequireIdentification,
		IsModerator:           moderator,
		IsFrozen:              p.config.IsFrozen,
		Attributes:            p.attrs,
		ConfiguredOAuths:      make(map[string]bool),
		DefaultSortPolicy:     p.config.DefaultSortPolicy,
	}
	for k, v := range p.config.OAuthProviders {
		data.ConfiguredOAuths[k] = v
	}

	seen := make(map[model.CommenterID]bool)
	for _, stored := range p.comments {
		// Unapproved comments are only visible to moderators and their authors
		if stored.State != model.StateApproved && !moderator && !(loggedIn && stored.CommenterID == viewer) {
			continue
		}
		c := *stored
		c.Direction = model.None
		if loggedIn {
			c.Direction = m.votes[c.ID][viewer]
		}
		if !moderator && !(loggedIn && c.CommenterID == viewer) {
			c.Markdown = ""
		}
		data.Comments = append(data.Comments, &c)

		if !seen[c.CommenterID] {
			seen[c.CommenterID] = true
			if author, ok := m.commenters[c.CommenterID]; ok {
				cp := *author
				cp.Email = ""
				cp.IsModerator = p.isModerator(cp.ID)
				data.Commenters = append(data.Commenters, &cp)
			}
		}
	}
	return data, nil
}

func (m *MemoryBackend) CreateComment(ctx context.Context, req CreateRequest) (*CreateResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("comment/new"); err != nil {
		return nil, err
	}

	p := m.page(req.Domain, req.Path)
	author, loggedIn := m.viewer(req.Token)
	switch {
	case p.config.IsFrozen || p.attrs.IsLocked:
		return nil, &APIError{Endpoint: "comment/new", Status: 200, Message: "this thread is locked"}
	case !loggedIn && req.Token != AnonymousToken:
		return nil, &APIError{Endpoint: "comment/new", Status: 200, Message: "invalid commenter token"}
	case !loggedIn && p.config.RequireIdentification:
		return nil, &APIError{Endpoint: "comment/new", Status: 200, Message: "anonymous comments are not allowed"}
	case strings.TrimSpace(req.Markdown) == "":
		return nil, &APIError{Endpoint: "comment/new", Status: 200, Message: "comment is empty"}
	}
	if req.ParentID != model.RootID && m.find(req.ParentID) == nil {
		return nil, &APIError{Endpoint: "comment/new", Status: 200, Message: "parent comment not found"}
	}

	state := model.StateApproved
	if !loggedIn {
		author = model.AnonymousCommenterID
		if p.config.ModerateAnonymous {
			state = model.StateUnapproved
		}
	}

	c := &model.Comment{
		ID:           model.CommentID(newHex()),
		CommenterID:  author,
		ParentID:     req.ParentID,
		CreationDate: m.now().UTC().Format(time.RFC3339Nano),
		State:        state,
		Markdown:     req.Markdown,
		HTML:         renderHTML(req.Markdown),
	}
	p.comments = append(p.comments, c)

	return &CreateResult{ID: c.ID, CommenterID: c.CommenterID, State: c.State, HTML: c.HTML}, nil
}

func (m *MemoryBackend) EditComment(ctx context.Context, id model.CommentID, markdown, token string) (*EditResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("comment/edit"); err != nil {
		return nil, err
	}

	c := m.find(id)
	if c == nil || c.Deleted {
		return nil, fmt.Errorf("comment/edit %s: %w", id, ErrNotFound)
	}
	viewer, ok := m.viewer(token)
	if !ok || (viewer != c.CommenterID && !m.pageOf(id).isModerator(viewer)) {
		return nil, &APIError{Endpoint: "comment/edit", Status: 200, Message: "not allowed"}
	}
	c.Markdown = markdown
	c.HTML = renderHTML(markdown)
	state := c.State
	return &EditResult{State: &state, HTML: c.HTML}, nil
}

func (m *MemoryBackend) ApproveComment(ctx context.Context, id model.CommentID, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("comment/approve"); err != nil {
		return err
	}

	c := m.find(id)
	if c == nil {
		return fmt.Errorf("comment/approve %s: %w", id, ErrNotFound)
	}
	viewer, ok := m.viewer(token)
	if !ok || !m.pageOf(id).isModerator(viewer) {
		return &APIError{Endpoint: "comment/approve", Status: 200, Message: "not a moderator"}
	}
	c.State = model.StateApproved
	return nil
}

func (m *MemoryBackend) DeleteComment(ctx context.Context, id model.CommentID, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("comment/delete"); err != nil {
		return err
	}

	c := m.find(id)
	if c == nil {
		return fmt.Errorf("comment/delete %s: %w", id, ErrNotFound)
	}
	viewer, ok := m.viewer(token)
	if !ok || (viewer != c.CommenterID && !m.pageOf(id).isModerator(viewer)) {
		return &APIError{Endpoint: "comment/delete", Status: 200, Message: "not allowed"}
	}
	c.MarkDeleted()
	return nil
}

func (m *MemoryBackend) VoteComment(ctx context.Context, id model.CommentID, dir model.Direction, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("comment/vote"); err != nil {
		return err
	}

	c := m.find(id)
	if c == nil {
		return fmt.Errorf("comment/vote %s: %w", id, ErrNotFound)
	}
	viewer, ok := m.viewer(token)
	if !ok {
		return &APIError{Endpoint: "comment/vote", Status: 200, Message: "login required"}
	}
	if viewer == c.CommenterID {
		return &APIError{Endpoint: "comment/vote", Status: 200, Message: "cannot vote on your own comment"}
	}

	if m.votes[id] == nil {
		m.votes[id] = make(map[model.CommenterID]model.Direction)
	}
	c.Score += int(dir - m.votes[id][viewer])
	m.votes[id][viewer] = dir
	return nil
}

func (m *MemoryBackend) UpdatePage(ctx context.Context, domain, path string, attrs model.PageAttributes, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("page/update"); err != nil {
		return err
	}

	p := m.page(domain, path)
	viewer, ok := m.viewer(token)
	if !ok || !p.isModerator(viewer) {
		return &APIError{Endpoint: "page/update", Status: 200, Message: "not a moderator"}
	}
	p.attrs = attrs
	return nil
}

func (m *MemoryBackend) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("commenter/login"); err != nil {
		return nil, err
	}

	acct, ok := m.accounts[email]
	if !ok || acct.password != password {
		return nil, &APIError{Endpoint: "commenter/login", Status: 200, Message: "invalid email or password"}
	}
	token := newHex()
	m.tokens[token] = acct.commenterID
	c := *m.commenters[acct.commenterID]
	return &LoginResult{Token: token, Commenter: &c, Email: email}, nil
}

func (m *MemoryBackend) Signup(ctx context.Context, req SignupRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("commenter/new"); err != nil {
		return err
	}

	if _, exists := m.accounts[req.Email]; exists {
		return &APIError{Endpoint: "commenter/new", Status: 200, Message: "that email is already registered"}
	}
	id := model.CommenterID(newHex())
	m.commenters[id] = &model.Commenter{ID: id, Name: req.Name, Email: req.Email, Link: req.Website, Provider: "commento"}
	m.accounts[req.Email] = memoryAccount{password: req.Password, commenterID: id}
	return nil
}

func (m *MemoryBackend) Logout(ctx context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("commenter/logout"); err != nil {
		return err
	}
	delete(m.tokens, token)
	return nil
}

func (m *MemoryBackend) NewOAuthToken(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("commenter/token/new"); err != nil {
		return "", err
	}
	token := newHex()
	m.pendingOAuth[token] = true
	return token, nil
}

func (m *MemoryBackend) OAuthURL(provider, token string) string {
	return "memory://oauth/" + provider + "?commenterToken=" + token
}

func newHex() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// renderHTML stands in for the server's markdown renderer
func renderHTML(markdown string) string {
	var b strings.Builder
	for _, para := range strings.Split(strings.TrimSpace(markdown), "\n\n") {
		b.WriteString("<p>" + html.EscapeString(para) + "</p>")
	}
	return b.String()
}
