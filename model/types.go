package model

import (
	"fmt"
	"strings"
	"time"
)

// CommentID identifies a comment. It is opaque and immutable once created.
type CommentID string

// CommenterID identifies a commenter.
type CommenterID string

const (
	// RootID is the parent of every top-level comment
	RootID CommentID = "root"

	// NoSticky means no comment on the page is pinned
	NoSticky CommentID = ""

	// legacyNoSticky is what older servers send instead of an empty sticky id
	legacyNoSticky CommentID = "none"

	// AnonymousCommenterID owns every comment posted without an account
	AnonymousCommenterID CommenterID = "anonymous"
)

// NormalizeSticky maps the legacy "none" sentinel onto NoSticky.
func NormalizeSticky(id CommentID) CommentID {
	if id == legacyNoSticky {
		return NoSticky
	}
	return id
}

// State is the moderation state of a comment
type State int

const (
	StateApproved State = iota
	StateUnapproved
	StateFlagged
)

// ParseState converts the wire representation of a comment state.
// An empty string is treated as approved.
func ParseState(s string) (State, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "approved":
		return StateApproved, nil
	case "unapproved":
		return StateUnapproved, nil
	case "flagged":
		return StateFlagged, nil
	}
	return StateApproved, fmt.Errorf("unknown comment state %q", s)
}

func (s State) String() string {
	switch s {
	case StateUnapproved:
		return "unapproved"
	case StateFlagged:
		return "flagged"
	default:
		return "approved"
	}
}

// Direction is a viewer's vote on a comment: -1, 0 or 1
type Direction int

const (
	Down Direction = -1
	None Direction = 0
	Up   Direction = 1
)

// Toggle returns the direction to send when pressed is clicked while
// current is active. Clicking the active direction again clears the vote.
func Toggle(current, pressed Direction) Direction {
	if current == pressed {
		return None
	}
	return pressed
}

// Comment is a single comment as held by the client.
type Comment struct {
	ID          CommentID
	CommenterID CommenterID
	ParentID    CommentID

	// CreationDate is the authoritative ISO-8601 timestamp from the server.
	// CreationMs is derived from it once, on ingestion.
	CreationDate string
	CreationMs   int64

	State     State
	Deleted   bool
	Direction Direction
	Score     int
	Markdown  string
	HTML      string
}

// IsTopLevel reports whether the comment hangs directly off the page
func (c *Comment) IsTopLevel() bool {
	return c.ParentID == RootID
}

// ApplyVote moves the viewer's vote to dir and shifts the score by the
// same delta, so score and direction never drift apart.
func (c *Comment) ApplyVote(dir Direction) {
	c.Score += int(dir - c.Direction)
	c.Direction = dir
}

// MarkDeleted turns the comment into a tombstone. There is no way back.
func (c *Comment) MarkDeleted() {
	c.Deleted = true
	c.Markdown = ""
	c.HTML = ""
}

// ParseTimestamp converts an ISO-8601 timestamp to epoch milliseconds.
// Unparseable input yields 0 so that such comments sort as the oldest.
func ParseTimestamp(s string) int64 {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return 0
	}
	return t.UnixMilli()
}

// Commenter is the display record of a comment author
type Commenter struct {
	ID          CommenterID
	Name        string
	Email       string
	Link        string
	Photo       string
	Provider    string
	IsModerator bool
}

// AnonymousCommenter is the placeholder author for anonymous comments
func AnonymousCommenter() *Commenter {
	return &Commenter{ID: AnonymousCommenterID, Name: "Anonymous"}
}

// PageAttributes are the moderator-controlled page settings that are
// always written to the server together.
type PageAttributes struct {
	IsLocked        bool
	StickyCommentID CommentID
}
