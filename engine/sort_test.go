package engine

import (
	"testing"

	"github.com/njyeung/comentario/model"
)

func TestOrderSiblings(t *testing.T) {
	a := comment("A", "root", 5, "2024-01-01T00:00:00Z")
	b := comment("B", "root", 10, "2024-01-02T00:00:00Z")
	c := comment("C", "root", 1, "2024-01-03T00:00:00Z")
	BuildGroups([]*model.Comment{a, b, c})

	tests := []struct {
		name   string
		policy model.SortPolicy
		sticky model.CommentID
		want   []model.CommentID
	}{
		{"score desc", model.SortScoreDesc, model.NoSticky, []model.CommentID{"B", "A", "C"}},
		{"sticky first", model.SortScoreDesc, "A", []model.CommentID{"A", "B", "C"}},
		{"newest", model.SortCreationDesc, model.NoSticky, []model.CommentID{"C", "B", "A"}},
		{"oldest", model.SortCreationAsc, model.NoSticky, []model.CommentID{"A", "B", "C"}},
		{"sticky with newest", model.SortCreationDesc, "A", []model.CommentID{"A", "C", "B"}},
		{"unknown sticky", model.SortScoreDesc, "Z", []model.CommentID{"B", "A", "C"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ids(OrderSiblings([]*model.Comment{a, b, c}, tt.policy, tt.sticky))
			if !equalIDs(got, tt.want) {
				t.Errorf("OrderSiblings() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOrderSiblingsDeletedStickyLosesPin(t *testing.T) {
	a := comment("A", "root", 5, "")
	b := comment("B", "root", 10, "")
	a.MarkDeleted()

	got := ids(OrderSiblings([]*model.Comment{a, b}, model.SortScoreDesc, "A"))
	if !equalIDs(got, []model.CommentID{"B", "A"}) {
		t.Errorf("OrderSiblings() = %v, want [B A]", got)
	}
}

func TestOrderSiblingsTiesKeepBucketOrder(t *testing.T) {
	tree := NewTree([]*model.Comment{
		comment("old1", "root", 0, "2024-01-01T00:00:00Z"),
		comment("old2", "root", 0, "2024-01-02T00:00:00Z"),
	})
	tree.Insert(comment("new", "root", 0, "2024-01-03T00:00:00Z"))

	got := ids(OrderSiblings(tree.Children(model.RootID), model.SortScoreDesc, model.NoSticky))
	want := []model.CommentID{"old1", "old2", "new"}
	if !equalIDs(got, want) {
		t.Errorf("OrderSiblings() = %v, want %v", got, want)
	}
}

func TestOrderSiblingsDoesNotMutateInput(t *testing.T) {
	list := []*model.Comment{comment("A", "root", 1, ""), comment("B", "root", 2, "")}

	OrderSiblings(list, model.SortScoreDesc, model.NoSticky)

	if list[0].ID != "A" {
		t.Error("input slice was reordered")
	}
}
