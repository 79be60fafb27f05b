package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/njyeung/comentario/backend"
	"github.com/njyeung/comentario/model"
)

const deleteQuestion = "Are you sure you want to delete this comment?"

// commit reflects a confirmed action the way its mutation policy says.
// apply runs with e.mu held.
func (e *Engine) commit(ctx context.Context, a Action, apply func()) error {
	switch MutationPolicyFor(a) {
	case ConfirmThenReload:
		return e.Reload(ctx)
	default:
		e.mu.Lock()
		apply()
		e.mu.Unlock()
		e.notify()
		return nil
	}
}

// ensureAuthenticated runs the login dialog if needed. It returns false
// when the user is still not logged in afterwards.
func (e *Engine) ensureAuthenticated(ctx context.Context) (bool, error) {
	if e.Authenticated() {
		return true, nil
	}
	if err := e.currentPrompter().Login(ctx); err != nil {
		return false, err
	}
	return e.Authenticated(), nil
}

// Vote sets the viewer's vote on id to dir. An anonymous viewer is asked
// to log in first; if they don't, nothing is sent.
func (e *Engine) Vote(ctx context.Context, id model.CommentID, dir model.Direction) error {
	e.clearPanel()

	ok, err := e.ensureAuthenticated(ctx)
	if err != nil {
		return e.fail(err)
	}
	if !ok {
		e.logger.Debug("vote abandoned", "id", id)
		return nil
	}

	if err := e.backend.VoteComment(ctx, id, dir, e.token()); err != nil {
		return e.fail(fmt.Errorf("voting on comment: %w", err))
	}
	return e.commit(ctx, ActionVote, func() {
		if c, ok := e.tree.Get(id); ok {
			c.ApplyVote(dir)
		}
	})
}

// Approve marks a pending or flagged comment as approved
func (e *Engine) Approve(ctx context.Context, id model.CommentID) error {
	e.clearPanel()

	if err := e.backend.ApproveComment(ctx, id, e.token()); err != nil {
		return e.fail(fmt.Errorf("approving comment: %w", err))
	}
	return e.commit(ctx, ActionApprove, func() {
		if c, ok := e.tree.Get(id); ok {
			c.State = model.StateApproved
		}
	})
}

// Delete asks for confirmation, then turns the comment into a tombstone
func (e *Engine) Delete(ctx context.Context, id model.CommentID) error {
	e.clearPanel()

	ok, err := e.currentPrompter().Confirm(ctx, deleteQuestion)
	if err != nil {
		return e.fail(err)
	}
	if !ok {
		return nil
	}

	if err := e.backend.DeleteComment(ctx, id, e.token()); err != nil {
		return e.fail(fmt.Errorf("deleting comment: %w", err))
	}
	return e.commit(ctx, ActionDelete, func() {
		if c, ok := e.tree.Get(id); ok {
			c.MarkDeleted()
		}
	})
}

// ToggleSticky pins id, or unpins it if it is already pinned
func (e *Engine) ToggleSticky(ctx context.Context, id model.CommentID) error {
	e.clearPanel()

	page := e.pageState()
	sticky := id
	if page.Sticky == id {
		sticky = model.NoSticky
	}
	return e.updatePage(ctx, ActionSticky, model.PageAttributes{IsLocked: page.IsLocked, StickyCommentID: sticky})
}

// ToggleLock locks or unlocks the thread
func (e *Engine) ToggleLock(ctx context.Context) error {
	e.clearPanel()

	page := e.pageState()
	return e.updatePage(ctx, ActionLock, model.PageAttributes{IsLocked: !page.IsLocked, StickyCommentID: page.Sticky})
}

func (e *Engine) updatePage(ctx context.Context, a Action, attrs model.PageAttributes) error {
	if err := e.backend.UpdatePage(ctx, e.domain, e.path, attrs, e.token()); err != nil {
		return e.fail(fmt.Errorf("updating page: %w", err))
	}
	return e.commit(ctx, a, func() {
		e.page.IsLocked = attrs.IsLocked
		e.page.Sticky = attrs.StickyCommentID
	})
}

// SetSortPolicy changes the sibling order. Only the view changes.
func (e *Engine) SetSortPolicy(p model.SortPolicy) {
	e.mu.Lock()
	e.policy = p
	e.policySet = true
	e.mu.Unlock()
	e.notify()
}

// CycleSortPolicy moves to the next policy and returns it
func (e *Engine) CycleSortPolicy() model.SortPolicy {
	e.mu.Lock()
	p := e.policy.Next()
	e.mu.Unlock()
	e.SetSortPolicy(p)
	return p
}

// ToggleCollapse shows or hides the replies of id. Collapsed state
// survives reloads.
func (e *Engine) ToggleCollapse(id model.CommentID) {
	e.mu.Lock()
	if e.collapsed[id] {
		delete(e.collapsed, id)
	} else {
		e.collapsed[id] = true
	}
	e.mu.Unlock()
	e.notify()
}

// StartTopLevel opens the editor for a new top-level comment
func (e *Engine) StartTopLevel(ctx context.Context) error {
	return e.startCompose(EditorTopLevel, model.RootID)
}

// StartReply opens a reply editor under parent
func (e *Engine) StartReply(ctx context.Context, parent model.CommentID) error {
	return e.startCompose(EditorReply, parent)
}

func (e *Engine) startCompose(kind EditorKind, parent model.CommentID) error {
	page := e.pageState()
	if page.IsLocked || page.IsFrozen {
		return ErrControlUnavailable
	}
	e.editors.Open(EditorParams{
		Kind:                  kind,
		Host:                  parent,
		Authenticated:         e.Authenticated(),
		RequireIdentification: page.RequireIdentification,
		AnonymousOnly:         page.AnonymousOnly(),
		OnCancel:              e.notify,
		OnSubmit: func(ctx context.Context, ed *Editor) (bool, error) {
			return e.create(ctx, parent, ed)
		},
	})
	e.notify()
	return nil
}

// StartEdit opens an editor pre-filled with the comment's markdown
func (e *Engine) StartEdit(ctx context.Context, id model.CommentID) error {
	e.mu.Lock()
	c, ok := e.tree.Get(id)
	var markdown string
	deleted := false
	if ok {
		markdown, deleted = c.Markdown, c.Deleted
	}
	page := e.page
	authenticated := e.self != nil
	e.mu.Unlock()

	if !ok || deleted {
		return ErrControlUnavailable
	}

	e.editors.Open(EditorParams{
		Kind:                  EditorEdit,
		Host:                  id,
		InitialText:           markdown,
		Authenticated:         authenticated,
		RequireIdentification: page.RequireIdentification,
		AnonymousOnly:         page.AnonymousOnly(),
		OnCancel:              e.notify,
		OnSubmit: func(ctx context.Context, ed *Editor) (bool, error) {
			return e.edit(ctx, id, ed)
		},
	})
	e.notify()
	return nil
}

// SubmitEditor copies text and the anonymous checkbox into the open
// editor and submits it. Empty text returns ErrEmptyMarkdown without a
// network call and leaves the editor open.
func (e *Engine) SubmitEditor(ctx context.Context, text string, anonymous bool) error {
	ed := e.editors.Active()
	if ed == nil {
		return ErrNoEditor
	}
	ed.SetText(text)
	ed.SetAnonymous(anonymous)

	e.clearPanel()
	done, err := e.editors.Submit(ctx)
	if err != nil {
		return e.fail(err)
	}
	if !done && ed.Invalid() {
		e.notify()
		return ErrEmptyMarkdown
	}
	e.notify()
	return nil
}

// CancelEditor closes the open editor without a network call
func (e *Engine) CancelEditor() error {
	return e.editors.Cancel()
}

// Editor returns the open editor, or nil
func (e *Engine) Editor() *Editor {
	return e.editors.Active()
}

func (e *Engine) create(ctx context.Context, parent model.CommentID, ed *Editor) (bool, error) {
	anonymous := ed.Anonymous()
	page := e.pageState()

	if page.RequireIdentification || !anonymous {
		ok, err := e.ensureAuthenticated(ctx)
		if err != nil {
			return false, err
		}
		if !ok {
			e.logger.Debug("comment abandoned", "parent", parent)
			return false, nil
		}
	}

	token := e.token()
	if anonymous {
		token = backend.AnonymousToken
	}

	text := ed.Text()
	res, err := e.backend.CreateComment(ctx, backend.CreateRequest{
		Domain:   e.domain,
		Path:     e.path,
		ParentID: parent,
		Markdown: text,
		Token:    token,
	})
	if err != nil {
		return false, fmt.Errorf("posting comment: %w", err)
	}

	err = e.commit(ctx, ActionCreate, func() {
		commenterID := res.CommenterID
		if commenterID == "" {
			commenterID = model.AnonymousCommenterID
			if !anonymous && e.self != nil {
				commenterID = e.self.ID
			}
		}
		e.tree.Insert(&model.Comment{
			ID:           res.ID,
			CommenterID:  commenterID,
			ParentID:     parent,
			CreationDate: e.clock.Now().UTC().Format(time.RFC3339Nano),
			State:        res.State,
			Markdown:     text,
			HTML:         res.HTML,
		})
		if e.self != nil && commenterID == e.self.ID {
			e.commenters[commenterID] = e.self
		}
		delete(e.collapsed, parent)
		e.focus = res.ID
	})
	return err == nil, err
}

func (e *Engine) edit(ctx context.Context, id model.CommentID, ed *Editor) (bool, error) {
	text := ed.Text()
	res, err := e.backend.EditComment(ctx, id, text, e.token())
	if err != nil {
		return false, fmt.Errorf("editing comment: %w", err)
	}

	err = e.commit(ctx, ActionEdit, func() {
		c, ok := e.tree.Get(id)
		if !ok {
			return
		}
		c.Markdown = text
		c.HTML = res.HTML
		if res.State != nil {
			c.State = *res.State
		}
	})
	return err == nil, err
}

// Focus resolves a URL fragment. "#comentario" focuses the widget and
// "#comentario-<id>" focuses that comment. A well-formed id that is not
// on the page shows the not-found panel.
func (e *Engine) Focus(fragment string) error {
	id, ok := ParseFragment(fragment)
	if !ok {
		return nil
	}

	e.mu.Lock()
	_, found := e.tree.Get(id)
	if found || id == model.RootID {
		e.focus = id
	}
	e.mu.Unlock()

	if !found && id != model.RootID {
		e.logger.Warn("linked comment not found", "id", id)
		e.setPanel(Panel{Kind: PanelNotFound, Message: ErrCommentNotFound.Error()})
		return ErrCommentNotFound
	}
	e.notify()
	return nil
}

// TakeFocus returns the pending focus target and clears it
func (e *Engine) TakeFocus() model.CommentID {
	e.mu.Lock()
	defer e.mu.Unlock()
	id := e.focus
	e.focus = ""
	return id
}
