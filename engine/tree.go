package engine

import "github.com/njyeung/comentario/model"

// Groups maps a parent id to its immediate children. Order within a bucket
// is the order comments were added, not display order.
type Groups map[model.CommentID][]*model.Comment

// BuildGroups buckets comments by parent in a single pass. It also derives
// each comment's CreationMs so that sorting never re-parses timestamps.
func BuildGroups(comments []*model.Comment) Groups {
	groups := make(Groups)
	for _, c := range comments {
		c.CreationMs = model.ParseTimestamp(c.CreationDate)
		groups[c.ParentID] = append(groups[c.ParentID], c)
	}
	return groups
}

// Tree is the grouped comment state plus an index from id to comment.
// Comments are never removed; deletion leaves a tombstone in place.
type Tree struct {
	groups Groups
	byID   map[model.CommentID]*model.Comment
	order  []*model.Comment
}

// NewTree builds a tree from the flat list returned by the server.
func NewTree(comments []*model.Comment) *Tree {
	t := &Tree{
		groups: BuildGroups(comments),
		byID:   make(map[model.CommentID]*model.Comment, len(comments)),
		order:  append([]*model.Comment(nil), comments...),
	}
	for _, c := range comments {
		t.byID[c.ID] = c
	}
	return t
}

// Insert adds one comment without rebuilding the tree.
func (t *Tree) Insert(c *model.Comment) {
	c.CreationMs = model.ParseTimestamp(c.CreationDate)
	t.groups[c.ParentID] = append(t.groups[c.ParentID], c)
	t.byID[c.ID] = c
	t.order = append(t.order, c)
}

// Get returns the comment with the given id
func (t *Tree) Get(id model.CommentID) (*model.Comment, bool) {
	c, ok := t.byID[id]
	return c, ok
}

// Children returns the unordered bucket for parent. A parent with no
// children, including one that does not exist, yields nil.
func (t *Tree) Children(parent model.CommentID) []*model.Comment {
	return t.groups[parent]
}

// Len is the number of comments in the tree, tombstones included
func (t *Tree) Len() int {
	return len(t.order)
}

// Orphans returns the comments that cannot be reached from the root, in
// insertion order. They are never rendered.
func (t *Tree) Orphans() []*model.Comment {
	reachable := make(map[model.CommentID]bool, len(t.order))
	stack := []model.CommentID{model.RootID}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, c := range t.groups[id] {
			if reachable[c.ID] {
				continue
			}
			reachable[c.ID] = true
			stack = append(stack, c.ID)
		}
	}

	var orphans []*model.Comment
	for _, c := range t.order {
		if !reachable[c.ID] {
			orphans = append(orphans, c)
		}
	}
	return orphans
}
