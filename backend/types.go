package backend

import (
	"context"

	"github.com/njyeung/comentario/model"
)

// Backend defines the interface between the embed and the comment server.
// Every method maps onto one server endpoint; none of them touch client state.
type Backend interface {

	// SelfStatus resolves a commenter token. A nil Commenter means the
	// token does not belong to a logged in commenter.
	SelfStatus(ctx context.Context, token string) (*SelfStatus, error)

	// ListComments fetches the page settings and every comment on the page
	ListComments(ctx context.Context, domain, path, token string) (*PageData, error)

	// CreateComment posts a new comment under parent (model.RootID for top-level)
	CreateComment(ctx context.Context, req CreateRequest) (*CreateResult, error)

	// EditComment replaces the markdown of an existing comment
	EditComment(ctx context.Context, id model.CommentID, markdown, token string) (*EditResult, error)

	ApproveComment(ctx context.Context, id model.CommentID, token string) error
	DeleteComment(ctx context.Context, id model.CommentID, token string) error

	// VoteComment sets the viewer's vote; model.None clears it
	VoteComment(ctx context.Context, id model.CommentID, dir model.Direction, token string) error

	// UpdatePage writes lock and sticky state together
	UpdatePage(ctx context.Context, domain, path string, attrs model.PageAttributes, token string) error

	Login(ctx context.Context, email, password string) (*LoginResult, error)
	Signup(ctx context.Context, req SignupRequest) error
	Logout(ctx context.Context, token string) error

	// NewOAuthToken issues a fresh token to be bound by an OAuth popup
	NewOAuthToken(ctx context.Context) (string, error)

	// OAuthURL is the address the popup opens for provider
	OAuthURL(provider, token string) string
}

// AnonymousToken is stored when the viewer explicitly has no account session.
// It is distinct from a token that was never set.
const AnonymousToken = "anonymous"

// SelfStatus is the result of resolving a commenter token
type SelfStatus struct {
	Commenter *model.Commenter
	Email     string
}

// PageData is everything the comment-list endpoint returns
type PageData struct {
	RequireIdentification bool
	IsModerator           bool
	IsFrozen              bool
	Attributes            model.PageAttributes
	Comments              []*model.Comment
	Commenters            []*model.Commenter
	ConfiguredOAuths      map[string]bool
	DefaultSortPolicy     model.SortPolicy
}

// CreateRequest carries a new comment. Token is AnonymousToken for
// anonymous submissions.
type CreateRequest struct {
	Domain   string
	Path     string
	ParentID model.CommentID
	Markdown string
	Token    string
}

// CreateResult is what the server assigns to a freshly created comment
type CreateResult struct {
	ID          model.CommentID
	CommenterID model.CommenterID
	State       model.State
	HTML        string
}

// EditResult carries the re-rendered body of an edited comment.
// State is nil when the server did not report a change.
type EditResult struct {
	State *model.State
	HTML  string
}

// LoginResult is a successful password login
type LoginResult struct {
	Token     string
	Commenter *model.Commenter
	Email     string
}

// SignupRequest registers a new commenter account
type SignupRequest struct {
	Name     string
	Email    string
	Website  string
	Password string
}
