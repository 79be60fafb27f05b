package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/njyeung/comentario/model"
	"github.com/valyala/fasthttp"
	"golang.org/x/time/rate"
)

// HTTPBackend implements Backend against a Comentario server
type HTTPBackend struct {
	baseURL string
	client  *fasthttp.Client
	limiter *rate.Limiter
	metrics *Metrics
}

// HTTPOptions tunes an HTTPBackend. Zero values pick sensible defaults.
type HTTPOptions struct {
	// RequestsPerSecond caps outbound requests; 0 means unlimited
	RequestsPerSecond float64
	Burst             int
	Metrics           *Metrics
}

// NewHTTPBackend creates a backend talking to serverURL (scheme and host,
// optionally a path prefix).
func NewHTTPBackend(serverURL string, opts HTTPOptions) *HTTPBackend {
	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	burst := opts.Burst
	if burst < 1 {
		burst = 1
	}

	return &HTTPBackend{
		baseURL: strings.TrimRight(serverURL, "/"),
		client: &fasthttp.Client{
			Name:                "comentario-embed",
			MaxIdleConnDuration: 30 * time.Second,
		},
		limiter: rate.NewLimiter(limit, burst),
		metrics: opts.Metrics,
	}
}

// post sends body as JSON to endpoint and decodes the reply into out.
// out must embed apiResponse; success=false is turned into an *APIError.
func (b *HTTPBackend) post(ctx context.Context, endpoint string, body any, out any) (err error) {
	start := time.Now()
	defer func() { b.metrics.observe(endpoint, err, time.Since(start)) }()

	if err := b.limiter.Wait(ctx); err != nil {
		return err
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding %s request: %w", endpoint, err)
	}

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(b.baseURL + "/api/" + endpoint)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())
	req.SetBody(payload)

	// fasthttp has no context support; honour deadlines and
	// refuse to start once the caller has given up.
	if err := ctx.Err(); err != nil {
		return err
	}
	if deadline, ok := ctx.Deadline(); ok {
		err = b.client.DoDeadline(req, resp, deadline)
	} else {
		err = b.client.Do(req, resp)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", endpoint, err)
	}

	status := resp.StatusCode()
	respBody := resp.Body()

	var env apiResponse
	if err := json.Unmarshal(respBody, &env); err != nil {
		if status < 200 || status > 299 {
			return &APIError{Endpoint: endpoint, Status: status}
		}
		return fmt.Errorf("decoding %s response: %w", endpoint, err)
	}
	if status < 200 || status > 299 || !env.Success {
		return &APIError{Endpoint: endpoint, Status: status, Message: env.Message}
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("decoding %s response: %w", endpoint, err)
		}
	}
	return nil
}

func (b *HTTPBackend) SelfStatus(ctx context.Context, token string) (*SelfStatus, error) {
	var resp selfResponse
	err := b.post(ctx, "commenter/self", map[string]string{"commenterToken": token}, &resp)
	if err != nil {
		// An unknown or expired token is an anonymous viewer, not a failure
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status >= 200 && apiErr.Status <= 299 {
			return &SelfStatus{}, nil
		}
		return nil, err
	}

	status := &SelfStatus{Commenter: resp.Commenter.toModel()}
	if resp.Email != nil {
		status.Email = resp.Email.Email
	}
	return status, nil
}

func (b *HTTPBackend) ListComments(ctx context.Context, domain, path, token string) (*PageData, error) {
	var resp listResponse
	err := b.post(ctx, "comment/list", map[string]string{
		"commenterToken": token,
		"domain":         domain,
		"path":           path,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return resp.toPageData()
}

func (b *HTTPBackend) CreateComment(ctx context.Context, req CreateRequest) (*CreateResult, error) {
	var resp createResponse
	err := b.post(ctx, "comment/new", map[string]string{
		"commenterToken": req.Token,
		"domain":         req.Domain,
		"path":           req.Path,
		"parentHex":      string(req.ParentID),
		"markdown":       req.Markdown,
	}, &resp)
	if err != nil {
		return nil, err
	}

	state, err := model.ParseState(resp.State)
	if err != nil {
		state = model.StateUnapproved
	}
	return &CreateResult{
		ID:          model.CommentID(resp.CommentHex),
		CommenterID: model.CommenterID(resp.CommenterHex),
		State:       state,
		HTML:        resp.HTML,
	}, nil
}

func (b *HTTPBackend) EditComment(ctx context.Context, id model.CommentID, markdown, token string) (*EditResult, error) {
	var resp editResponse
	err := b.post(ctx, "comment/edit", map[string]string{
		"commenterToken": token,
		"commentHex":     string(id),
		"markdown":       markdown,
	}, &resp)
	if err != nil {
		return nil, err
	}

	result := &EditResult{HTML: resp.HTML}
	if resp.State != nil {
		if state, err := model.ParseState(*resp.State); err == nil {
			result.State = &state
		}
	}
	return result, nil
}

func (b *HTTPBackend) ApproveComment(ctx context.Context, id model.CommentID, token string) error {
	return b.post(ctx, "comment/approve", map[string]string{
		"commenterToken": token,
		"commentHex":     string(id),
	}, nil)
}

func (b *HTTPBackend) DeleteComment(ctx context.Context, id model.CommentID, token string) error {
	return b.post(ctx, "comment/delete", map[string]string{
		"commenterToken": token,
		"commentHex":     string(id),
	}, nil)
}

func (b *HTTPBackend) VoteComment(ctx context.Context, id model.CommentID, dir model.Direction, token string) error {
	return b.post(ctx, "comment/vote", map[string]any{
		"commenterToken": token,
		"commentHex":     string(id),
		"direction":      int(dir),
	}, nil)
}

func (b *HTTPBackend) UpdatePage(ctx context.Context, domain, path string, attrs model.PageAttributes, token string) error {
	return b.post(ctx, "page/update", map[string]any{
		"commenterToken": token,
		"domain":         domain,
		"path":           path,
		"attributes": attributesJSON{
			IsLocked:         attrs.IsLocked,
			StickyCommentHex: string(attrs.StickyCommentID),
		},
	}, nil)
}

func (b *HTTPBackend) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	var resp loginResponse
	err := b.post(ctx, "commenter/login", map[string]string{
		"email":    email,
		"password": password,
	}, &resp)
	if err != nil {
		return nil, err
	}

	result := &LoginResult{
		Token:     resp.CommenterToken,
		Commenter: resp.Commenter.toModel(),
	}
	if resp.Email != nil {
		result.Email = resp.Email.Email
	}
	return result, nil
}

func (b *HTTPBackend) Signup(ctx context.Context, req SignupRequest) error {
	return b.post(ctx, "commenter/new", map[string]string{
		"email":    req.Email,
		"name":     req.Name,
		"website":  req.Website,
		"password": req.Password,
	}, nil)
}

func (b *HTTPBackend) Logout(ctx context.Context, token string) error {
	return b.post(ctx, "commenter/logout", map[string]string{"commenterToken": token}, nil)
}

func (b *HTTPBackend) NewOAuthToken(ctx context.Context) (string, error) {
	var resp tokenResponse
	if err := b.post(ctx, "commenter/token/new", map[string]string{}, &resp); err != nil {
		return "", err
	}
	return resp.CommenterToken, nil
}

func (b *HTTPBackend) OAuthURL(provider, token string) string {
	return fmt.Sprintf("%s/api/oauth/%s/redirect?commenterToken=%s",
		b.baseURL, url.PathEscape(provider), url.QueryEscape(token))
}
