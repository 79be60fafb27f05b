package engine

import (
	"context"
	"strings"
	"sync"

	"github.com/njyeung/comentario/model"
)

// Component is anything the UI mounts that must be torn down explicitly
type Component interface {
	Dispose()
}

// EditorKind says what an editor is for
type EditorKind int

const (
	EditorTopLevel EditorKind = iota
	EditorReply
	EditorEdit
)

func (k EditorKind) String() string {
	switch k {
	case EditorReply:
		return "reply"
	case EditorEdit:
		return "edit"
	default:
		return "comment"
	}
}

// EditorParams configures a new editor.
// OnSubmit returns done=false with a nil error when the submission was
// abandoned, for example because the user declined to log in.
type EditorParams struct {
	Kind EditorKind

	// Host is the parent for replies, the edited comment for edits and
	// model.RootID for top-level editors
	Host model.CommentID

	InitialText           string
	Authenticated         bool
	RequireIdentification bool
	AnonymousOnly         bool

	OnCancel func()
	OnSubmit func(ctx context.Context, e *Editor) (done bool, err error)
}

// Editor is the state of one open markdown editor. The UI owns the text
// buffer and copies it in with SetText before submitting.
type Editor struct {
	params EditorParams

	mu        sync.Mutex
	text      string
	anonymous bool
	invalid   bool
	disposed  bool
}

var _ Component = (*Editor)(nil)

func newEditor(p EditorParams) *Editor {
	return &Editor{params: p, text: p.InitialText}
}

func (e *Editor) Kind() EditorKind { return e.params.Kind }

func (e *Editor) Host() model.CommentID { return e.params.Host }

func (e *Editor) Text() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.text
}

// SetText replaces the buffer and clears the invalid mark
func (e *Editor) SetText(s string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.text = s
	e.invalid = false
}

// Invalid is set after an attempt to submit an empty comment
func (e *Editor) Invalid() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.invalid
}

// ShowsAnonymousOption reports whether the "post anonymously" checkbox is
// offered. Edits never show it, nor does a page that requires identification.
func (e *Editor) ShowsAnonymousOption() bool {
	return e.params.Kind != EditorEdit && !e.params.RequireIdentification
}

// AnonymousLocked means the checkbox is forced on and cannot be changed
func (e *Editor) AnonymousLocked() bool {
	return e.ShowsAnonymousOption() && e.params.AnonymousOnly
}

// Anonymous is the checkbox state
func (e *Editor) Anonymous() bool {
	if e.AnonymousLocked() {
		return true
	}
	if !e.ShowsAnonymousOption() {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.anonymous
}

func (e *Editor) SetAnonymous(v bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.anonymous = v
}

func (e *Editor) Disposed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.disposed
}

func (e *Editor) Dispose() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.disposed = true
}

// EditorController keeps at most one editor open
type EditorController struct {
	mu     sync.Mutex
	active *Editor
}

func NewEditorController() *EditorController {
	return &EditorController{}
}

// Active returns the open editor, or nil
func (c *EditorController) Active() *Editor {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// Open tears down any open editor, running its cancel callback, and
// makes a new one the active editor.
func (c *EditorController) Open(p EditorParams) *Editor {
	e := newEditor(p)

	c.mu.Lock()
	prev := c.active
	c.active = e
	c.mu.Unlock()

	if prev != nil {
		teardown(prev)
	}
	return e
}

// Cancel closes the active editor without submitting.
func (c *EditorController) Cancel() error {
	c.mu.Lock()
	e := c.active
	c.active = nil
	c.mu.Unlock()

	if e == nil {
		return ErrNoEditor
	}
	teardown(e)
	return nil
}

// Submit validates and submits the active editor. Empty text marks the
// editor invalid and returns without calling OnSubmit. The editor closes
// only when OnSubmit reports done; on error it stays open for a retry.
func (c *EditorController) Submit(ctx context.Context) (bool, error) {
	e := c.Active()
	if e == nil {
		return false, ErrNoEditor
	}

	if strings.TrimSpace(e.Text()) == "" {
		e.mu.Lock()
		e.invalid = true
		e.mu.Unlock()
		return false, nil
	}

	if e.params.OnSubmit == nil {
		return false, nil
	}
	done, err := e.params.OnSubmit(ctx, e)
	if err != nil || !done {
		return false, err
	}

	c.mu.Lock()
	if c.active == e {
		c.active = nil
	}
	c.mu.Unlock()
	e.Dispose()
	return true, nil
}

func teardown(e *Editor) {
	e.Dispose()
	if e.params.OnCancel != nil {
		e.params.OnCancel()
	}
}
