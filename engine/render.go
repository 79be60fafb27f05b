package engine

import (
	"time"

	"github.com/njyeung/comentario/model"
)

// RenderContext is everything a render pass needs besides the tree.
// Now is read once per pass so that every card agrees on elapsed times.
type RenderContext struct {
	Viewer        model.CommenterID
	Authenticated bool
	Moderator     bool
	Locked        bool
	Frozen        bool
	Sticky        model.CommentID
	Policy        model.SortPolicy
	HideDeleted   bool
	Now           time.Time

	Collapsed  map[model.CommentID]bool
	Commenters map[model.CommenterID]*model.Commenter
	Callbacks  *Callbacks
}

// Render produces the cards for parent's subtree in display order.
// With HideDeleted, deleted comments are dropped only once they have no
// visible children left, so a deleted parent of hidden tombstones goes too.
func Render(tree *Tree, parent model.CommentID, rc *RenderContext) []*Card {
	siblings := OrderSiblings(tree.Children(parent), rc.Policy, rc.Sticky)

	cards := make([]*Card, 0, len(siblings))
	for _, c := range siblings {
		children := Render(tree, c.ID, rc)
		if c.Deleted && rc.HideDeleted && len(children) == 0 {
			continue
		}
		cards = append(cards, newCard(c, children, rc))
	}
	return cards
}

// CountCards returns the number of cards in a rendered forest
func CountCards(cards []*Card) int {
	n := len(cards)
	for _, c := range cards {
		n += CountCards(c.Children)
	}
	return n
}

func newCard(c *model.Comment, children []*Card, rc *RenderContext) *Card {
	card := &Card{
		Comment:    *c,
		Author:     authorOf(c.CommenterID, rc.Commenters),
		Children:   children,
		Sticky:     pinned(c, rc.Sticky),
		Collapsed:  rc.Collapsed[c.ID],
		RenderedAt: rc.Now,
		callbacks:  rc.Callbacks,
	}
	card.controls, card.StickyLocked = controlsFor(c, len(children) > 0, rc)
	return card
}

func authorOf(id model.CommenterID, commenters map[model.CommenterID]*model.Commenter) model.Commenter {
	if cr, ok := commenters[id]; ok && cr != nil {
		return *cr
	}
	if id == model.AnonymousCommenterID {
		return *model.AnonymousCommenter()
	}
	return model.Commenter{ID: id, Name: "[unknown]"}
}

// controlsFor applies the access rules for one card. A tombstone keeps
// only the collapse toggle.
func controlsFor(c *model.Comment, hasChildren bool, rc *RenderContext) (Controls, bool) {
	var set Controls
	if hasChildren {
		set = set.with(ControlCollapse)
	}
	if c.Deleted {
		return set, false
	}

	set = set.with(ControlUpvote).with(ControlDownvote)

	if !rc.Locked && !rc.Frozen {
		set = set.with(ControlReply)
	}

	if rc.Moderator && c.State != model.StateApproved {
		set = set.with(ControlApprove)
	}

	owner := rc.Authenticated && c.CommenterID != model.AnonymousCommenterID && c.CommenterID == rc.Viewer
	if owner || rc.Moderator {
		set = set.with(ControlEdit).with(ControlDelete)
	}

	stickyLocked := false
	if c.IsTopLevel() {
		switch {
		case rc.Moderator:
			set = set.with(ControlSticky)
		case pinned(c, rc.Sticky):
			set = set.with(ControlSticky)
			stickyLocked = true
		}
	}
	return set, stickyLocked
}
