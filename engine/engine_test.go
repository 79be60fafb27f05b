package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/njyeung/comentario/backend"
	"github.com/njyeung/comentario/model"
)

const (
	testDomain = "example.com"
	testPath   = "/post"
)

type stubClock struct{ now time.Time }

func (c *stubClock) Now() time.Time { return c.now }

// stubPrompter answers dialogs from fields. login runs in place of the
// login dialog.
type stubPrompter struct {
	mu       sync.Mutex
	login    func(ctx context.Context) error
	confirm  bool
	logins   int
	confirms int
}

func (p *stubPrompter) Login(ctx context.Context) error {
	p.mu.Lock()
	p.logins++
	fn := p.login
	p.mu.Unlock()
	if fn == nil {
		return nil
	}
	return fn(ctx)
}

func (p *stubPrompter) Confirm(context.Context, string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.confirms++
	return p.confirm, nil
}

type fixture struct {
	backend  *backend.MemoryBackend
	tokens   *backend.MemoryTokenStore
	prompter *stubPrompter
	clock    *stubClock
	engine   *Engine
}

func newFixture(t *testing.T, cfg backend.PageConfig) *fixture {
	t.Helper()
	f := &fixture{
		backend:  backend.NewMemoryBackend(),
		tokens:   backend.NewMemoryTokenStore(),
		prompter: &stubPrompter{},
		clock:    &stubClock{now: time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC)},
	}
	f.backend.SetNow(f.clock.Now)
	f.backend.ConfigurePage(testDomain, testPath, cfg)
	f.backend.AddAccount("alice@example.com", "hunter2", model.Commenter{ID: "alice", Name: "Alice"})
	f.backend.AddAccount("mod@example.com", "hunter2", model.Commenter{ID: "mod", Name: "Mod"})
	f.backend.AddAccount("bob@example.com", "hunter2", model.Commenter{ID: "bob", Name: "Bob"})

	e, err := New(Options{
		Backend:      f.backend,
		Tokens:       f.tokens,
		Prompter:     f.prompter,
		Clock:        f.clock,
		Domain:       testDomain,
		Path:         testPath,
		PollInterval: time.Millisecond,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	f.engine = e
	return f
}

func (f *fixture) seed(id, parent, author string, score int, created string) {
	f.backend.AddComment(testDomain, testPath, model.Comment{
		ID:           model.CommentID(id),
		ParentID:     model.CommentID(parent),
		CommenterID:  model.CommenterID(author),
		Score:        score,
		CreationDate: created,
		Markdown:     "comment " + id,
	})
}

func (f *fixture) loginAs(t *testing.T, id model.CommenterID) {
	t.Helper()
	if err := f.tokens.Save(f.backend.IssueToken(id)); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
}

func (f *fixture) load(t *testing.T) View {
	t.Helper()
	if err := f.engine.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	return f.engine.View()
}

func TestNewRequiresBackend(t *testing.T) {
	if _, err := New(Options{Tokens: backend.NewMemoryTokenStore()}); err == nil {
		t.Error("New() without backend should fail")
	}
	if _, err := New(Options{Backend: backend.NewMemoryBackend()}); err == nil {
		t.Error("New() without token store should fail")
	}
}

func TestLoadStickyOrder(t *testing.T) {
	f := newFixture(t, backend.PageConfig{})
	f.seed("A", "root", "bob", 5, "2024-01-01T00:00:00Z")
	f.seed("B", "root", "bob", 10, "2024-01-02T00:00:00Z")
	f.seed("C", "root", "bob", 1, "2024-01-03T00:00:00Z")
	f.backend.SetAttributes(testDomain, testPath, model.PageAttributes{StickyCommentID: "A"})

	v := f.load(t)

	if got := cardIDs(v.Cards); !equalIDs(got, []model.CommentID{"A", "B", "C"}) {
		t.Errorf("order = %v, want [A B C]", got)
	}
	if !v.Cards[0].Sticky {
		t.Error("A should be marked sticky")
	}
	if v.Authenticated {
		t.Error("no token stored, viewer should be anonymous")
	}
	if f.backend.Calls("commenter/self") != 0 {
		t.Error("self status should be skipped without a token")
	}
}

func TestLoadLegacyNoneSticky(t *testing.T) {
	f := newFixture(t, backend.PageConfig{})
	f.seed("none", "root", "bob", 0, "")
	f.backend.SetAttributes(testDomain, testPath, model.PageAttributes{StickyCommentID: "none"})

	v := f.load(t)

	if v.Page.Sticky != model.NoSticky || v.Cards[0].Sticky {
		t.Error("legacy \"none\" should mean no sticky comment")
	}
}

func TestLoadUsesServerDefaultPolicyUntilUserPicks(t *testing.T) {
	f := newFixture(t, backend.PageConfig{DefaultSortPolicy: model.SortCreationAsc})
	f.seed("old", "root", "bob", 0, "2024-01-01T00:00:00Z")
	f.seed("new", "root", "bob", 9, "2024-01-02T00:00:00Z")

	v := f.load(t)
	if v.Policy != model.SortCreationAsc {
		t.Fatalf("Policy = %v, want creationdate-asc", v.Policy)
	}

	if got := f.engine.CycleSortPolicy(); got != model.SortScoreDesc {
		t.Errorf("CycleSortPolicy() = %v, want score-desc", got)
	}
	if err := f.engine.Reload(context.Background()); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	v = f.engine.View()
	if v.Policy != model.SortScoreDesc {
		t.Error("reload should not override the user's choice")
	}
	if got := cardIDs(v.Cards); !equalIDs(got, []model.CommentID{"new", "old"}) {
		t.Errorf("order = %v, want [new old]", got)
	}
}

func TestVoteAbandonedWhenLoginDeclined(t *testing.T) {
	f := newFixture(t, backend.PageConfig{})
	f.seed("A", "root", "bob", 2, "")
	v := f.load(t)

	if err := v.Cards[0].Press(context.Background(), ControlUpvote); err != nil {
		t.Fatalf("Press() error = %v", err)
	}

	if f.prompter.logins != 1 {
		t.Errorf("login prompts = %d, want 1", f.prompter.logins)
	}
	if n := f.backend.Calls("comment/vote"); n != 0 {
		t.Errorf("vote calls = %d, want 0", n)
	}
	card := f.engine.View().Cards[0]
	if card.Comment.Score != 2 || card.Comment.Direction != model.None {
		t.Errorf("score/direction = %d/%d, want unchanged 2/0", card.Comment.Score, card.Comment.Direction)
	}
}

func TestVoteAfterLoginPrompt(t *testing.T) {
	f := newFixture(t, backend.PageConfig{})
	f.seed("A", "root", "bob", 2, "")
	f.prompter.login = func(ctx context.Context) error {
		return f.engine.Login(ctx, "alice@example.com", "hunter2")
	}
	v := f.load(t)

	if err := v.Cards[0].Press(context.Background(), ControlUpvote); err != nil {
		t.Fatalf("Press() error = %v", err)
	}

	v = f.engine.View()
	if !v.Authenticated || v.Self.ID != "alice" {
		t.Fatalf("viewer = %+v, want alice", v.Self)
	}
	card := v.Cards[0]
	if card.Comment.Score != 3 || card.Comment.Direction != model.Up {
		t.Errorf("score/direction = %d/%d, want 3/1", card.Comment.Score, card.Comment.Direction)
	}
	if stored, _ := f.backend.Comment("A"); stored.Score != 3 {
		t.Errorf("server score = %d, want 3", stored.Score)
	}
}

func TestVoteSequence(t *testing.T) {
	f := newFixture(t, backend.PageConfig{})
	f.seed("A", "root", "bob", 0, "")
	f.loginAs(t, "alice")
	f.load(t)

	press := func(ctrl Control) *Card {
		t.Helper()
		if err := f.engine.View().Cards[0].Press(context.Background(), ctrl); err != nil {
			t.Fatalf("Press(%s) error = %v", ctrl, err)
		}
		return f.engine.View().Cards[0]
	}

	steps := []struct {
		ctrl      Control
		wantScore int
		wantDir   model.Direction
	}{
		{ControlUpvote, 1, model.Up},
		{ControlDownvote, -1, model.Down},
		{ControlDownvote, 0, model.None},
		{ControlUpvote, 1, model.Up},
		{ControlUpvote, 0, model.None},
	}
	for i, s := range steps {
		card := press(s.ctrl)
		if card.Comment.Score != s.wantScore || card.Comment.Direction != s.wantDir {
			t.Errorf("step %d (%s): score/direction = %d/%d, want %d/%d",
				i, s.ctrl, card.Comment.Score, card.Comment.Direction, s.wantScore, s.wantDir)
		}
	}
	if stored, _ := f.backend.Comment("A"); stored.Score != 0 {
		t.Errorf("server score = %d, want 0", stored.Score)
	}
}

func TestVoteFailureLeavesStateAndShowsError(t *testing.T) {
	f := newFixture(t, backend.PageConfig{})
	f.seed("A", "root", "bob", 4, "")
	f.loginAs(t, "alice")
	f.load(t)
	f.backend.FailNext("comment/vote", &backend.APIError{Endpoint: "comment/vote", Status: 500, Message: "database is down"})

	err := f.engine.Vote(context.Background(), "A", model.Up)
	if err == nil {
		t.Fatal("Vote() should fail")
	}

	v := f.engine.View()
	if v.Cards[0].Comment.Score != 4 {
		t.Errorf("score = %d, want 4", v.Cards[0].Comment.Score)
	}
	if v.Panel.Kind != PanelError || v.Panel.Message != "database is down" {
		t.Errorf("Panel = %+v, want the server message", v.Panel)
	}

	// the next action clears the panel
	if err := f.engine.Vote(context.Background(), "A", model.Up); err != nil {
		t.Fatalf("Vote() error = %v", err)
	}
	if p := f.engine.View().Panel; p.Kind != PanelNone {
		t.Errorf("Panel = %+v, want cleared", p)
	}
}

func TestToggleLock(t *testing.T) {
	f := newFixture(t, backend.PageConfig{Moderators: []model.CommenterID{"mod"}})
	f.seed("A", "root", "bob", 0, "")
	f.loginAs(t, "mod")
	f.load(t)

	f.backend.FailNext("page/update", errors.New("connection reset"))
	if err := f.engine.ToggleLock(context.Background()); err == nil {
		t.Fatal("ToggleLock() should fail")
	}
	v := f.engine.View()
	if v.Page.IsLocked {
		t.Error("lock should not flip before the server confirms")
	}
	if v.Panel.Kind != PanelError {
		t.Error("failure should show in the panel")
	}

	listsBefore := f.backend.Calls("comment/list")
	if err := f.engine.ToggleLock(context.Background()); err != nil {
		t.Fatalf("ToggleLock() error = %v", err)
	}
	v = f.engine.View()
	if !v.Page.IsLocked {
		t.Error("page should be locked")
	}
	if f.backend.Calls("comment/list") != listsBefore+1 {
		t.Error("lock should reload the page")
	}
	if v.Cards[0].Has(ControlReply) {
		t.Error("locked page should not offer reply")
	}
	if !f.backend.Attributes(testDomain, testPath).IsLocked {
		t.Error("server should have the lock")
	}
}

func TestToggleStickyPreservesLock(t *testing.T) {
	f := newFixture(t, backend.PageConfig{Moderators: []model.CommenterID{"mod"}})
	f.seed("A", "root", "bob", 0, "")
	f.seed("B", "root", "bob", 5, "")
	f.backend.SetAttributes(testDomain, testPath, model.PageAttributes{IsLocked: true})
	f.loginAs(t, "mod")
	v := f.load(t)

	if err := findCard(v.Cards, "A").Press(context.Background(), ControlSticky); err != nil {
		t.Fatalf("Press(sticky) error = %v", err)
	}
	attrs := f.backend.Attributes(testDomain, testPath)
	if attrs.StickyCommentID != "A" || !attrs.IsLocked {
		t.Errorf("attributes = %+v, want sticky A and still locked", attrs)
	}
	if got := cardIDs(f.engine.View().Cards); !equalIDs(got, []model.CommentID{"A", "B"}) {
		t.Errorf("order = %v, want [A B]", got)
	}

	// pressing again unpins
	if err := f.engine.View().Cards[0].Press(context.Background(), ControlSticky); err != nil {
		t.Fatalf("Press(sticky) error = %v", err)
	}
	if got := f.backend.Attributes(testDomain, testPath).StickyCommentID; got != model.NoSticky {
		t.Errorf("sticky = %q, want none", got)
	}
}

func TestDeleteNeedsConfirmation(t *testing.T) {
	f := newFixture(t, backend.PageConfig{})
	f.seed("A", "root", "alice", 0, "")
	f.seed("B", "A", "bob", 0, "")
	f.loginAs(t, "alice")
	f.load(t)

	if err := f.engine.Delete(context.Background(), "A"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if f.backend.Calls("comment/delete") != 0 {
		t.Error("declined confirmation should not call the server")
	}

	f.prompter.confirm = true
	if err := f.engine.Delete(context.Background(), "A"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	v := f.engine.View()
	a := findCard(v.Cards, "A")
	if a == nil || !a.Deleted() {
		t.Fatal("A should remain as a tombstone")
	}
	if findCard(v.Cards, "B") == nil {
		t.Error("reply B should still be visible")
	}
	for _, ctrl := range []Control{ControlUpvote, ControlReply, ControlEdit, ControlDelete} {
		if a.Has(ctrl) {
			t.Errorf("tombstone offers %s", ctrl)
		}
	}
}

func TestApprove(t *testing.T) {
	f := newFixture(t, backend.PageConfig{Moderators: []model.CommenterID{"mod"}, ModerateAnonymous: true})
	f.backend.AddComment(testDomain, testPath, model.Comment{ID: "A", ParentID: model.RootID, CommenterID: model.AnonymousCommenterID, State: model.StateUnapproved})
	f.loginAs(t, "mod")
	v := f.load(t)

	if !v.Cards[0].Pending() {
		t.Fatal("A should be pending")
	}
	if err := v.Cards[0].Press(context.Background(), ControlApprove); err != nil {
		t.Fatalf("Press(approve) error = %v", err)
	}
	card := f.engine.View().Cards[0]
	if card.Pending() || card.Has(ControlApprove) {
		t.Error("A should be approved with no approve control")
	}
}

func TestCreateTopLevelAnonymous(t *testing.T) {
	f := newFixture(t, backend.PageConfig{})
	f.seed("old", "root", "bob", 0, "2024-01-01T00:00:00Z")
	f.load(t)

	if err := f.engine.StartTopLevel(context.Background()); err != nil {
		t.Fatalf("StartTopLevel() error = %v", err)
	}
	ed := f.engine.Editor()
	if ed == nil || !ed.ShowsAnonymousOption() {
		t.Fatal("top-level editor should offer the anonymous option")
	}

	if err := f.engine.SubmitEditor(context.Background(), "hello world", true); err != nil {
		t.Fatalf("SubmitEditor() error = %v", err)
	}

	v := f.engine.View()
	if v.Editor != nil {
		t.Error("editor should close after submit")
	}
	if f.prompter.logins != 0 {
		t.Error("anonymous submit should not ask for login")
	}
	if got := cardIDs(v.Cards); len(got) != 2 || got[0] != "old" {
		t.Fatalf("order = %v, want old first then the new comment", got)
	}
	created := v.Cards[1]
	if created.Comment.CommenterID != model.AnonymousCommenterID || created.Author.Name != "Anonymous" {
		t.Errorf("new comment author = %+v, want anonymous", created.Author)
	}
	if created.Comment.Score != 0 || created.Comment.Direction != model.None {
		t.Error("new comment should start with no votes")
	}
	if created.Comment.CreationMs != f.clock.now.UnixMilli() {
		t.Errorf("CreationMs = %d, want now", created.Comment.CreationMs)
	}
	if v.Focus != created.ID() {
		t.Error("new comment should be focused")
	}
}

func TestCreateRequiresLoginWhenNotAnonymous(t *testing.T) {
	f := newFixture(t, backend.PageConfig{OAuthProviders: map[string]bool{"commento": true}})
	f.load(t)

	if err := f.engine.StartTopLevel(context.Background()); err != nil {
		t.Fatalf("StartTopLevel() error = %v", err)
	}
	if err := f.engine.SubmitEditor(context.Background(), "hi", false); err != nil {
		t.Fatalf("SubmitEditor() error = %v", err)
	}

	if f.prompter.logins != 1 {
		t.Errorf("login prompts = %d, want 1", f.prompter.logins)
	}
	if f.backend.Calls("comment/new") != 0 {
		t.Error("declined login should not post")
	}
	if ed := f.engine.Editor(); ed == nil || ed.Text() != "hi" {
		t.Error("editor should stay open with its text")
	}
}

func TestReplyAsLoggedInUser(t *testing.T) {
	f := newFixture(t, backend.PageConfig{RequireIdentification: true})
	f.seed("A", "root", "bob", 0, "")
	f.loginAs(t, "alice")
	v := f.load(t)

	if err := v.Cards[0].Press(context.Background(), ControlReply); err != nil {
		t.Fatalf("Press(reply) error = %v", err)
	}
	if ed := f.engine.Editor(); ed.Kind() != EditorReply || ed.ShowsAnonymousOption() {
		t.Fatal("reply editor on an identified page should hide the anonymous option")
	}
	if err := f.engine.SubmitEditor(context.Background(), "a reply", true); err != nil {
		t.Fatalf("SubmitEditor() error = %v", err)
	}

	reply := f.engine.View().Cards[0].Children
	if len(reply) != 1 || reply[0].Author.ID != "alice" {
		t.Fatalf("reply = %v, want one reply by alice", cardIDs(reply))
	}
	if !reply[0].Has(ControlEdit) {
		t.Error("author should be able to edit the new reply")
	}
}

func TestSubmitEmptyEditor(t *testing.T) {
	f := newFixture(t, backend.PageConfig{})
	f.load(t)
	if err := f.engine.StartTopLevel(context.Background()); err != nil {
		t.Fatalf("StartTopLevel() error = %v", err)
	}

	if err := f.engine.SubmitEditor(context.Background(), "  ", true); !errors.Is(err, ErrEmptyMarkdown) {
		t.Fatalf("SubmitEditor() error = %v, want ErrEmptyMarkdown", err)
	}
	if f.backend.Calls("comment/new") != 0 {
		t.Error("empty comment should not reach the server")
	}
	if ed := f.engine.Editor(); ed == nil || !ed.Invalid() {
		t.Error("editor should stay open and be marked invalid")
	}
}

func TestEditComment(t *testing.T) {
	f := newFixture(t, backend.PageConfig{})
	f.seed("A", "root", "alice", 0, "")
	f.loginAs(t, "alice")
	v := f.load(t)

	if err := v.Cards[0].Press(context.Background(), ControlEdit); err != nil {
		t.Fatalf("Press(edit) error = %v", err)
	}
	ed := f.engine.Editor()
	if ed.Text() != "comment A" {
		t.Errorf("editor text = %q, want the current markdown", ed.Text())
	}
	if ed.ShowsAnonymousOption() {
		t.Error("edit should not offer the anonymous option")
	}

	if err := f.engine.SubmitEditor(context.Background(), "changed", false); err != nil {
		t.Fatalf("SubmitEditor() error = %v", err)
	}
	card := f.engine.View().Cards[0]
	if card.Comment.Markdown != "changed" || card.Comment.HTML != "<p>changed</p>" {
		t.Errorf("comment = %q / %q, want the edit", card.Comment.Markdown, card.Comment.HTML)
	}
}

func TestOpeningEditorReplacesPrevious(t *testing.T) {
	f := newFixture(t, backend.PageConfig{})
	f.seed("A", "root", "bob", 0, "")
	f.seed("B", "root", "bob", 0, "")
	f.load(t)

	if err := f.engine.StartReply(context.Background(), "A"); err != nil {
		t.Fatal(err)
	}
	first := f.engine.Editor()
	if err := f.engine.StartReply(context.Background(), "B"); err != nil {
		t.Fatal(err)
	}

	if !first.Disposed() {
		t.Error("first editor should be torn down")
	}
	if f.engine.Editor().Host() != "B" {
		t.Error("active editor should be the reply to B")
	}
}

func TestSortChangeKeepsEditor(t *testing.T) {
	f := newFixture(t, backend.PageConfig{})
	f.seed("A", "root", "bob", 0, "")
	f.load(t)
	if err := f.engine.StartReply(context.Background(), "A"); err != nil {
		t.Fatal(err)
	}
	ed := f.engine.Editor()

	f.engine.SetSortPolicy(model.SortCreationDesc)

	if f.engine.View().Editor != ed || ed.Disposed() {
		t.Error("changing sort order should not close the editor")
	}
}

func TestCollapseSurvivesReload(t *testing.T) {
	f := newFixture(t, backend.PageConfig{})
	f.seed("A", "root", "bob", 0, "")
	f.seed("B", "A", "bob", 0, "")
	v := f.load(t)

	if err := v.Cards[0].Press(context.Background(), ControlCollapse); err != nil {
		t.Fatal(err)
	}
	if err := f.engine.Reload(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !f.engine.View().Cards[0].Collapsed {
		t.Error("A should still be collapsed")
	}
}

// gatedBackend blocks the first comment list until released
type gatedBackend struct {
	backend.Backend
	mu      sync.Mutex
	gate    chan struct{}
	entered chan struct{}
	first   bool
}

func (g *gatedBackend) ListComments(ctx context.Context, domain, path, token string) (*backend.PageData, error) {
	g.mu.Lock()
	first := !g.first
	g.first = true
	g.mu.Unlock()

	data, err := g.Backend.ListComments(ctx, domain, path, token)
	if first {
		close(g.entered)
		<-g.gate
	}
	return data, err
}

func TestStaleReloadDiscarded(t *testing.T) {
	mem := backend.NewMemoryBackend()
	mem.AddComment(testDomain, testPath, model.Comment{ID: "old", ParentID: model.RootID, CommenterID: "bob"})
	gated := &gatedBackend{Backend: mem, gate: make(chan struct{}), entered: make(chan struct{})}

	e, err := New(Options{Backend: gated, Tokens: backend.NewMemoryTokenStore(), Domain: testDomain, Path: testPath})
	if err != nil {
		t.Fatal(err)
	}

	done := make(chan error, 1)
	go func() { done <- e.Reload(context.Background()) }()
	<-gated.entered

	mem.AddComment(testDomain, testPath, model.Comment{ID: "new", ParentID: model.RootID, CommenterID: "bob"})
	if err := e.Reload(context.Background()); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}

	close(gated.gate)
	if err := <-done; err != nil {
		t.Fatalf("stale Reload() error = %v", err)
	}

	if n := e.View().Count; n != 2 {
		t.Errorf("Count = %d, want 2 from the newer reload", n)
	}
}

func TestLoginFailureShowsServerMessage(t *testing.T) {
	f := newFixture(t, backend.PageConfig{})
	f.load(t)

	if err := f.engine.Login(context.Background(), "alice@example.com", "wrong"); err == nil {
		t.Fatal("Login() should fail")
	}
	v := f.engine.View()
	if v.Authenticated {
		t.Error("should not be logged in")
	}
	if v.Panel.Message != "invalid email or password" {
		t.Errorf("Panel = %+v", v.Panel)
	}
}

func TestSignupLogsIn(t *testing.T) {
	f := newFixture(t, backend.PageConfig{})
	f.load(t)

	err := f.engine.Signup(context.Background(), backend.SignupRequest{Name: "Carol", Email: "carol@example.com", Password: "pw"})
	if err != nil {
		t.Fatalf("Signup() error = %v", err)
	}
	v := f.engine.View()
	if !v.Authenticated || v.Self.Name != "Carol" {
		t.Errorf("Self = %+v, want Carol", v.Self)
	}
}

func TestLogout(t *testing.T) {
	f := newFixture(t, backend.PageConfig{})
	f.loginAs(t, "alice")
	if v := f.load(t); !v.Authenticated {
		t.Fatal("should start logged in")
	}

	if err := f.engine.Logout(context.Background()); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}
	if f.engine.View().Authenticated {
		t.Error("should be logged out")
	}
	if token, _ := f.tokens.Load(); token != backend.AnonymousToken {
		t.Errorf("token = %q, want anonymous", token)
	}
}

type stubPopup struct {
	onOpen func(url string)
	err    error
	win    *stubWindow
}

type stubWindow struct {
	mu         sync.Mutex
	polls      int
	closeAfter int
}

func (w *stubWindow) Closed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.polls++
	return w.polls >= w.closeAfter
}

func (w *stubWindow) Close() {}

func (p *stubPopup) Open(_ context.Context, url string) (backend.PopupWindow, error) {
	if p.err != nil {
		return nil, p.err
	}
	if p.onOpen != nil {
		p.onOpen(url)
	}
	return p.win, nil
}

func TestLoginOAuth(t *testing.T) {
	f := newFixture(t, backend.PageConfig{OAuthProviders: map[string]bool{"github": true}})
	popup := &stubPopup{win: &stubWindow{closeAfter: 3}}
	popup.onOpen = func(string) {
		token, _ := f.tokens.Load()
		if err := f.backend.CompleteOAuth(token, "alice"); err != nil {
			t.Errorf("CompleteOAuth() error = %v", err)
		}
	}
	f.engine.popup = popup
	f.load(t)

	if err := f.engine.LoginOAuth(context.Background(), "github"); err != nil {
		t.Fatalf("LoginOAuth() error = %v", err)
	}
	if popup.win.polls != 3 {
		t.Errorf("window polled %d times, want 3", popup.win.polls)
	}
	if v := f.engine.View(); !v.Authenticated || v.Self.ID != "alice" {
		t.Errorf("Self = %+v, want alice", v.Self)
	}
}

func TestLoginOAuthPopupBlocked(t *testing.T) {
	f := newFixture(t, backend.PageConfig{})
	f.engine.popup = &stubPopup{err: backend.ErrPopupBlocked}
	f.load(t)

	err := f.engine.LoginOAuth(context.Background(), "github")
	if !errors.Is(err, backend.ErrPopupBlocked) {
		t.Fatalf("LoginOAuth() error = %v, want ErrPopupBlocked", err)
	}
	if f.engine.View().Panel.Kind != PanelError {
		t.Error("blocked popup should show in the panel")
	}
}

func TestFocusFragment(t *testing.T) {
	f := newFixture(t, backend.PageConfig{})
	f.seed("abc123", "root", "bob", 0, "")
	f.load(t)

	tests := []struct {
		fragment  string
		wantErr   error
		wantFocus model.CommentID
		wantPanel PanelKind
	}{
		{"#comentario-abc123", nil, "abc123", PanelNone},
		{"#comentario", nil, model.RootID, PanelNone},
		{"#comentario-ffff", ErrCommentNotFound, "", PanelNotFound},
		{"#somewhere-else", nil, "", PanelNone},
		{"#comentario-bad id", nil, "", PanelNone},
	}

	for _, tt := range tests {
		t.Run(tt.fragment, func(t *testing.T) {
			f.engine.clearPanel()
			f.engine.TakeFocus()

			err := f.engine.Focus(tt.fragment)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Focus() error = %v, want %v", err, tt.wantErr)
			}
			if got := f.engine.TakeFocus(); got != tt.wantFocus {
				t.Errorf("focus = %q, want %q", got, tt.wantFocus)
			}
			if got := f.engine.View().Panel.Kind; got != tt.wantPanel {
				t.Errorf("panel = %v, want %v", got, tt.wantPanel)
			}
		})
	}
}

func TestMutationPolicyFor(t *testing.T) {
	tests := []struct {
		action Action
		want   MutationPolicy
	}{
		{ActionVote, ApplyLocally},
		{ActionCreate, ApplyLocally},
		{ActionEdit, ApplyLocally},
		{ActionApprove, ApplyLocally},
		{ActionDelete, ApplyLocally},
		{ActionLock, ConfirmThenReload},
		{ActionSticky, ConfirmThenReload},
	}
	for _, tt := range tests {
		if got := MutationPolicyFor(tt.action); got != tt.want {
			t.Errorf("MutationPolicyFor(%s) = %v, want %v", tt.action, got, tt.want)
		}
	}
}

func TestSubscribeNotified(t *testing.T) {
	f := newFixture(t, backend.PageConfig{})
	calls := 0
	f.engine.Subscribe(func() { calls++ })

	f.load(t)
	f.engine.SetSortPolicy(model.SortCreationAsc)

	if calls < 2 {
		t.Errorf("subscriber ran %d times, want at least 2", calls)
	}
}

func TestIndependentEngines(t *testing.T) {
	mem := backend.NewMemoryBackend()
	mem.AddComment(testDomain, "/a", model.Comment{ID: "A", ParentID: model.RootID, CommenterID: "bob"})
	mem.AddComment(testDomain, "/b", model.Comment{ID: "B", ParentID: model.RootID, CommenterID: "bob"})

	var engines []*Engine
	for _, path := range []string{"/a", "/b"} {
		e, err := New(Options{Backend: mem, Tokens: backend.NewMemoryTokenStore(), Domain: testDomain, Path: path})
		if err != nil {
			t.Fatal(err)
		}
		if err := e.Load(context.Background()); err != nil {
			t.Fatal(err)
		}
		engines = append(engines, e)
	}

	engines[0].ToggleCollapse("A")
	if got := cardIDs(engines[1].View().Cards); !equalIDs(got, []model.CommentID{"B"}) {
		t.Errorf("second engine = %v, want [B]", got)
	}
}
