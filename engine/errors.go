package engine

import "errors"

var (
	// ErrCommentNotFound is reported when a link points at a comment that
	// is not on the page
	ErrCommentNotFound = errors.New("the comment you're looking for no longer exists, possibly it was deleted")

	// ErrControlUnavailable is returned when a card control is pressed that
	// the viewer is not allowed to use
	ErrControlUnavailable = errors.New("action not available")

	// ErrEmptyMarkdown is returned when an editor is submitted with only whitespace
	ErrEmptyMarkdown = errors.New("comment text is empty")

	// ErrNoEditor is returned when submitting or cancelling with no open editor
	ErrNoEditor = errors.New("no editor is open")
)
