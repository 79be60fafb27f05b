package backend

import (
	"encoding/json"

	"github.com/njyeung/comentario/model"
)

// apiResponse is the envelope every endpoint answers with
type apiResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type commentJSON struct {
	CommentHex   string `json:"commentHex"`
	CommenterHex string `json:"commenterHex"`
	ParentHex    string `json:"parentHex"`
	CreationDate string `json:"creationDate"`
	State        string `json:"state"`
	Deleted      bool   `json:"deleted"`
	Direction    int    `json:"direction"`
	Score        int    `json:"score"`
	Markdown     string `json:"markdown"`
	HTML         string `json:"html"`
}

type commenterJSON struct {
	CommenterHex string `json:"commenterHex"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	Link         string `json:"link"`
	Photo        string `json:"photo"`
	Provider     string `json:"provider"`
	IsModerator  bool   `json:"isModerator"`
}

type attributesJSON struct {
	IsLocked         bool   `json:"isLocked"`
	StickyCommentHex string `json:"stickyCommentHex"`
}

// listResponse is the comment/list payload. Commenters arrive either as an
// array or, from older servers, as an object keyed by commenter id.
type listResponse struct {
	apiResponse
	RequireIdentification bool            `json:"requireIdentification"`
	IsModerator           bool            `json:"isModerator"`
	IsFrozen              bool            `json:"isFrozen"`
	Attributes            attributesJSON  `json:"attributes"`
	Comments              []commentJSON   `json:"comments"`
	Commenters            json.RawMessage `json:"commenters"`
	ConfiguredOauths      map[string]bool `json:"configuredOauths"`
	DefaultSortPolicy     string          `json:"defaultSortPolicy"`
}

type selfResponse struct {
	apiResponse
	Commenter *commenterJSON `json:"commenter"`
	Email     *struct {
		Email string `json:"email"`
	} `json:"email"`
}

type createResponse struct {
	apiResponse
	State        string `json:"state"`
	CommentHex   string `json:"commentHex"`
	CommenterHex string `json:"commenterHex"`
	HTML         string `json:"html"`
}

type editResponse struct {
	apiResponse
	State *string `json:"state"`
	HTML  string  `json:"html"`
}

type loginResponse struct {
	apiResponse
	CommenterToken string         `json:"commenterToken"`
	Commenter      *commenterJSON `json:"commenter"`
	Email          *struct {
		Email string `json:"email"`
	} `json:"email"`
}

type tokenResponse struct {
	apiResponse
	CommenterToken string `json:"commenterToken"`
}

// optional drops the placeholder strings old servers send for absent values
func optional(s string) string {
	switch s {
	case "undefined", "none", "null":
		return ""
	}
	return s
}

func (c commentJSON) toModel() *model.Comment {
	state, err := model.ParseState(c.State)
	if err != nil {
		state = model.StateUnapproved
	}
	return &model.Comment{
		ID:           model.CommentID(c.CommentHex),
		CommenterID:  model.CommenterID(c.CommenterHex),
		ParentID:     model.CommentID(c.ParentHex),
		CreationDate: c.CreationDate,
		State:        state,
		Deleted:      c.Deleted,
		Direction:    model.Direction(c.Direction),
		Score:        c.Score,
		Markdown:     c.Markdown,
		HTML:         c.HTML,
	}
}

func (c *commenterJSON) toModel() *model.Commenter {
	if c == nil {
		return nil
	}
	return &model.Commenter{
		ID:          model.CommenterID(c.CommenterHex),
		Name:        c.Name,
		Email:       optional(c.Email),
		Link:        optional(c.Link),
		Photo:       optional(c.Photo),
		Provider:    optional(c.Provider),
		IsModerator: c.IsModerator,
	}
}

func decodeCommenters(raw json.RawMessage) ([]*model.Commenter, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	var list []commenterJSON
	if err := json.Unmarshal(raw, &list); err == nil {
		out := make([]*model.Commenter, 0, len(list))
		for i := range list {
			out = append(out, list[i].toModel())
		}
		return out, nil
	}

	var byID map[string]commenterJSON
	if err := json.Unmarshal(raw, &byID); err != nil {
		return nil, err
	}
	out := make([]*model.Commenter, 0, len(byID))
	for id, c := range byID {
		if c.CommenterHex == "" {
			c.CommenterHex = id
		}
		out = append(out, c.toModel())
	}
	return out, nil
}

func (r *listResponse) toPageData() (*PageData, error) {
	commenters, err := decodeCommenters(r.Commenters)
	if err != nil {
		return nil, err
	}

	policy, err := model.ParseSortPolicy(r.DefaultSortPolicy)
	if err != nil {
		policy = model.SortScoreDesc
	}

	comments := make([]*model.Comment, 0, len(r.Comments))
	for _, c := range r.Comments {
		comments = append(comments, c.toModel())
	}

	return &PageData{
		RequireIdentification: r.RequireIdentification,
		IsModerator:           r.IsModerator,
		IsFrozen:              r.IsFrozen,
		Attributes: model.PageAttributes{
			IsLocked:        r.Attributes.IsLocked,
			StickyCommentID: model.NormalizeSticky(model.CommentID(r.Attributes.StickyCommentHex)),
		},
		Comments:          comments,
		Commenters:        commenters,
		ConfiguredOAuths:  r.ConfiguredOauths,
		DefaultSortPolicy: policy,
	}, nil
}
