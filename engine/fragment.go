package engine

import (
	"regexp"
	"strings"

	"github.com/njyeung/comentario/model"
)

// FragmentPrefix starts every fragment the embed understands
const FragmentPrefix = "comentario"

var fragmentIDPattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// ParseFragment extracts the target of a URL fragment. "#comentario"
// yields model.RootID. Fragments that are not ours report ok=false.
func ParseFragment(fragment string) (model.CommentID, bool) {
	f := strings.TrimPrefix(strings.TrimSpace(fragment), "#")
	if f == FragmentPrefix {
		return model.RootID, true
	}
	rest, ok := strings.CutPrefix(f, FragmentPrefix+"-")
	if !ok || !fragmentIDPattern.MatchString(rest) {
		return "", false
	}
	return model.CommentID(rest), true
}

// Fragment is the fragment that links to id
func Fragment(id model.CommentID) string {
	if id == model.RootID {
		return "#" + FragmentPrefix
	}
	return "#" + FragmentPrefix + "-" + string(id)
}
