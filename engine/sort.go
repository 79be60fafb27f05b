package engine

import (
	"sort"

	"github.com/njyeung/comentario/model"
)

// OrderSiblings returns a new slice with list in display order for policy.
// A non-deleted comment whose id is sticky always comes first. The sort is
// stable: comments the policy considers equal keep their bucket order.
func OrderSiblings(list []*model.Comment, policy model.SortPolicy, sticky model.CommentID) []*model.Comment {
	out := append([]*model.Comment(nil), list...)
	less := lessFor(policy)

	sort.SliceStable(out, func(i, j int) bool {
		pi, pj := pinned(out[i], sticky), pinned(out[j], sticky)
		if pi != pj {
			return pi
		}
		return less(out[i], out[j])
	})
	return out
}

// pinned reports whether c holds the sticky slot. Tombstones never do.
func pinned(c *model.Comment, sticky model.CommentID) bool {
	return sticky != model.NoSticky && c.ID == sticky && !c.Deleted
}

func lessFor(policy model.SortPolicy) func(a, b *model.Comment) bool {
	switch policy {
	case model.SortCreationDesc:
		return func(a, b *model.Comment) bool { return a.CreationMs > b.CreationMs }
	case model.SortCreationAsc:
		return func(a, b *model.Comment) bool { return a.CreationMs < b.CreationMs }
	default:
		return func(a, b *model.Comment) bool { return a.Score > b.Score }
	}
}
