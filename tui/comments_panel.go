package tui

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-runewidth"
	"github.com/njyeung/comentario/engine"
	"github.com/njyeung/comentario/model"
)

// row is one visible card in the flattened tree
type row struct {
	card   *engine.Card
	depth  int
	hidden int // replies under a collapsed card
}

// CommentsPanel draws the rendered card tree and keeps a cursor on one card
type CommentsPanel struct {
	styles Styles
	rows   []row
	cursor int
	scroll int

	width  int
	height int
}

// NewCommentsPanel creates an empty panel
func NewCommentsPanel(styles Styles) *CommentsPanel {
	return &CommentsPanel{styles: styles}
}

// SetSize sets the area the panel may draw into
func (cp *CommentsPanel) SetSize(width, height int) {
	cp.width = width
	cp.height = height
}

// SetCards replaces the tree. The cursor stays on the same comment when
// it is still visible.
func (cp *CommentsPanel) SetCards(cards []*engine.Card) {
	var selected model.CommentID
	if c := cp.Selected(); c != nil {
		selected = c.ID()
	}

	cp.rows = cp.rows[:0]
	flatten(&cp.rows, cards, 0)

	if selected == "" || !cp.FocusOn(selected) {
		cp.cursor = min(cp.cursor, max(len(cp.rows)-1, 0))
	}
	if cp.scroll > cp.cursor {
		cp.scroll = cp.cursor
	}
}

func flatten(rows *[]row, cards []*engine.Card, depth int) {
	for _, c := range cards {
		r := row{card: c, depth: depth}
		if c.Collapsed {
			r.hidden = engine.CountCards(c.Children)
		}
		*rows = append(*rows, r)
		if !c.Collapsed {
			flatten(rows, c.Children, depth+1)
		}
	}
}

// Len is the number of visible cards
func (cp *CommentsPanel) Len() int {
	return len(cp.rows)
}

// Selected returns the card under the cursor, or nil
func (cp *CommentsPanel) Selected() *engine.Card {
	if cp.cursor < 0 || cp.cursor >= len(cp.rows) {
		return nil
	}
	return cp.rows[cp.cursor].card
}

// Move moves the cursor by delta rows
func (cp *CommentsPanel) Move(delta int) {
	if len(cp.rows) == 0 {
		return
	}
	cp.cursor = max(0, min(cp.cursor+delta, len(cp.rows)-1))
}

// FocusOn puts the cursor on id. It returns false when id is not visible.
func (cp *CommentsPanel) FocusOn(id model.CommentID) bool {
	if id == model.RootID {
		cp.cursor, cp.scroll = 0, 0
		return true
	}
	for i, r := range cp.rows {
		if r.card.ID() == id {
			cp.cursor = i
			return true
		}
	}
	return false
}

// View renders the visible part of the tree. When editorHost names a
// visible card, editorView is drawn under it.
func (cp *CommentsPanel) View(editorHost model.CommentID, editorView string) string {
	if len(cp.rows) == 0 {
		return cp.styles.Notice.Render("No comments yet.")
	}

	blocks := make([][]string, len(cp.rows))
	for i := range cp.rows {
		blocks[i] = cp.renderRow(i, i == cp.cursor)
		if cp.rows[i].card.ID() == editorHost && editorView != "" {
			indent := strings.Repeat("  ", cp.rows[i].depth+1)
			for _, line := range strings.Split(editorView, "\n") {
				blocks[i] = append(blocks[i], indent+line)
			}
		}
		blocks[i] = append(blocks[i], "")
	}
	cp.ensureVisible(blocks)

	var lines []string
	for i := cp.scroll; i < len(blocks); i++ {
		lines = append(lines, blocks[i]...)
		if cp.height > 0 && len(lines) >= cp.height {
			lines = lines[:cp.height]
			break
		}
	}
	return strings.Join(lines, "\n")
}

// ensureVisible scrolls so the whole cursor block fits when it can
func (cp *CommentsPanel) ensureVisible(blocks [][]string) {
	if cp.cursor < cp.scroll {
		cp.scroll = cp.cursor
	}
	if cp.height <= 0 {
		return
	}
	used := func() int {
		n := 0
		for i := cp.scroll; i <= cp.cursor && i < len(blocks); i++ {
			n += len(blocks[i])
		}
		return n
	}
	for cp.scroll < cp.cursor && used() > cp.height {
		cp.scroll++
	}
}

func (cp *CommentsPanel) renderRow(i int, selected bool) []string {
	r := cp.rows[i]
	c := r.card
	s := cp.styles

	pointer := "  "
	if selected {
		pointer = s.Cursor.Render("›") + " "
	}
	indent := strings.Repeat("  ", r.depth)

	var head []string
	if c.Has(engine.ControlUpvote) {
		head = append(head, cp.renderVotes(c))
	}
	if c.Deleted() {
		head = append(head, s.Deleted.Render("[deleted]"))
	} else {
		name := s.Author.Render(c.Author.Name)
		if c.Author.IsModerator {
			name += " " + s.Badge.Render("mod")
		}
		head = append(head, name)
	}
	if c.Comment.CreationMs != 0 {
		head = append(head, s.Meta.Render(humanize.RelTime(c.CreatedAt(), c.RenderedAt, "ago", "from now")))
	}
	switch {
	case c.Sticky && c.StickyLocked:
		head = append(head, s.Disabled.Render(s.Sticky.Render("pinned")))
	case c.Sticky:
		head = append(head, s.Sticky.Render("pinned"))
	}
	if c.Pending() {
		head = append(head, s.Notice.Render("awaiting approval"))
	}
	if c.Flagged() {
		head = append(head, s.Error.Render("flagged"))
	}

	lines := []string{pointer + indent + strings.Join(head, s.Meta.Render(" · "))}

	bodyIndent := "  " + indent + "  "
	if !c.Deleted() {
		width := cp.width - runewidth.StringWidth(bodyIndent)
		for _, line := range wrapByWidth(htmlToText(c.Comment.HTML), width) {
			lines = append(lines, bodyIndent+s.Body.Render(line))
		}
	}
	if r.hidden > 0 {
		lines = append(lines, bodyIndent+s.Notice.Render(fmt.Sprintf("[+%d hidden]", r.hidden)))
	}
	return lines
}

func (cp *CommentsPanel) renderVotes(c *engine.Card) string {
	s := cp.styles
	up, down := s.Score.Render("▲"), s.Score.Render("▼")
	switch c.Comment.Direction {
	case model.Up:
		up = s.Voted.Render("▲")
	case model.Down:
		down = s.Voted.Render("▼")
	}
	return up + " " + s.Score.Render(fmt.Sprintf("%d", c.Comment.Score)) + " " + down
}

// controlsHint lists the keys that work on the selected card
func (cp *CommentsPanel) controlsHint() string {
	c := cp.Selected()
	if c == nil {
		return ""
	}
	var parts []string
	for _, ck := range controlKeys {
		if !c.Has(ck.control) {
			continue
		}
		if ck.control == engine.ControlSticky && c.StickyLocked {
			continue
		}
		if ck.control == engine.ControlCollapse && c.Collapsed {
			parts = append(parts, ck.binding.Help().Key+" expand")
			continue
		}
		parts = append(parts, ck.binding.Help().Key+" "+ck.binding.Help().Desc)
	}
	return strings.Join(parts, "  ")
}
