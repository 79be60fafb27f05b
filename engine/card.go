package engine

import (
	"context"
	"time"

	"github.com/njyeung/comentario/model"
)

// Control is a button on a comment card
type Control int

const (
	ControlUpvote Control = iota
	ControlDownvote
	ControlReply
	ControlApprove
	ControlEdit
	ControlDelete
	ControlSticky
	ControlCollapse
)

var controlNames = map[Control]string{
	ControlUpvote:   "upvote",
	ControlDownvote: "downvote",
	ControlReply:    "reply",
	ControlApprove:  "approve",
	ControlEdit:     "edit",
	ControlDelete:   "delete",
	ControlSticky:   "sticky",
	ControlCollapse: "collapse",
}

func (c Control) String() string {
	if name, ok := controlNames[c]; ok {
		return name
	}
	return "unknown"
}

// Controls is the set of controls a card offers its viewer
type Controls uint16

func (s Controls) Has(c Control) bool { return s&(1<<c) != 0 }

func (s Controls) with(c Control) Controls { return s | 1<<c }

// List returns the controls in display order
func (s Controls) List() []Control {
	var out []Control
	for c := ControlUpvote; c <= ControlCollapse; c++ {
		if s.Has(c) {
			out = append(out, c)
		}
	}
	return out
}

// Callbacks are the actions a card can trigger. Vote receives the
// direction to set, already toggled against the card's current vote.
type Callbacks struct {
	Approve  func(ctx context.Context, id model.CommentID) error
	Delete   func(ctx context.Context, id model.CommentID) error
	Edit     func(ctx context.Context, id model.CommentID) error
	Reply    func(ctx context.Context, id model.CommentID) error
	Sticky   func(ctx context.Context, id model.CommentID) error
	Vote     func(ctx context.Context, id model.CommentID, dir model.Direction) error
	Collapse func(id model.CommentID)
}

// Card is the rendered view of one comment and its visible descendants.
// It holds copies, so it can be read without the engine's lock.
type Card struct {
	Comment  model.Comment
	Author   model.Commenter
	Children []*Card

	// Sticky is set when this card holds the page's pinned slot
	Sticky bool

	// StickyLocked marks a sticky indicator shown to a viewer who cannot change it
	StickyLocked bool

	Collapsed  bool
	RenderedAt time.Time

	controls  Controls
	callbacks *Callbacks
}

func (c *Card) ID() model.CommentID { return c.Comment.ID }

func (c *Card) Deleted() bool { return c.Comment.Deleted }

func (c *Card) Flagged() bool { return c.Comment.State == model.StateFlagged }

func (c *Card) Pending() bool { return c.Comment.State == model.StateUnapproved }

// Age is how long ago the comment was created, as of the render
func (c *Card) Age() time.Duration {
	return c.RenderedAt.Sub(c.CreatedAt())
}

func (c *Card) CreatedAt() time.Time {
	return time.UnixMilli(c.Comment.CreationMs)
}

func (c *Card) Controls() Controls { return c.controls }

func (c *Card) Has(ctrl Control) bool { return c.controls.Has(ctrl) }

// VoteTarget is the direction a press of pressed would set
func (c *Card) VoteTarget(pressed model.Direction) model.Direction {
	return model.Toggle(c.Comment.Direction, pressed)
}

// Press runs the callback bound to ctrl
func (c *Card) Press(ctx context.Context, ctrl Control) error {
	if !c.controls.Has(ctrl) || c.callbacks == nil {
		return ErrControlUnavailable
	}
	if ctrl == ControlSticky && c.StickyLocked {
		return ErrControlUnavailable
	}

	cb := c.callbacks
	id := c.Comment.ID
	switch ctrl {
	case ControlUpvote, ControlDownvote:
		if cb.Vote == nil {
			return ErrControlUnavailable
		}
		pressed := model.Up
		if ctrl == ControlDownvote {
			pressed = model.Down
		}
		return cb.Vote(ctx, id, c.VoteTarget(pressed))
	case ControlReply:
		return callID(ctx, cb.Reply, id)
	case ControlApprove:
		return callID(ctx, cb.Approve, id)
	case ControlEdit:
		return callID(ctx, cb.Edit, id)
	case ControlDelete:
		return callID(ctx, cb.Delete, id)
	case ControlSticky:
		return callID(ctx, cb.Sticky, id)
	case ControlCollapse:
		if cb.Collapse == nil {
			return ErrControlUnavailable
		}
		cb.Collapse(id)
		return nil
	}
	return ErrControlUnavailable
}

func callID(ctx context.Context, f func(context.Context, model.CommentID) error, id model.CommentID) error {
	if f == nil {
		return ErrControlUnavailable
	}
	return f(ctx, id)
}
