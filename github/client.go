package github

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fwojciec/docharvest"
	gh "github.com/google/go-github/v80/github"
	"golang.org/x/oauth2"
)

// DefaultTimeout bounds a single API request.
const DefaultTimeout = 30 * time.Second

var _ API = (*Client)(nil)

// Client implements API with go-github. Every request waits on the rate
// limiter and feeds the response headers back into it.
type Client struct {
	gh      *gh.Client
	limiter *RateLimiter
}

// NewClient returns a Client. An empty token makes unauthenticated requests,
// which GitHub limits to 60 per hour.
func NewClient(ctx context.Context, token string) *Client {
	hc := &http.Client{Timeout: DefaultTimeout}
	if token != "" {
		hc = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}))
		hc.Timeout = DefaultTimeout
	}
	return &Client{
		gh:      gh.NewClient(hc),
		limiter: NewRateLimiter(DefaultProactiveRate),
	}
}

// SetBaseURL points the client at another API root, such as GitHub
// Enterprise or a test server.
func (c *Client) SetBaseURL(raw string) error {
	if !strings.HasSuffix(raw, "/") {
		raw += "/"
	}
	u, err := url.Parse(raw)
	if err != nil {
		return docharvest.Errorf(docharvest.ECONFIG, "invalid GitHub API URL %q", raw)
	}
	c.gh.BaseURL = u
	return nil
}

// SetRateLimiter replaces the default limiter.
func (c *Client) SetRateLimiter(l *RateLimiter) {
	c.limiter = l
}

// DefaultBranch returns the repository's default branch.
func (c *Client) DefaultBranch(ctx context.Context, repo Repo) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}
	r, resp, err := c.gh.Repositories.Get(ctx, repo.Owner, repo.Name)
	c.observe(resp)
	if err != nil {
		return "", c.wrapError(resp, err, "get repository %s", repo)
	}
	if r.GetDefaultBranch() == "" {
		return "", docharvest.Errorf(docharvest.ENOTFOUND, "repository %s has no default branch", repo)
	}
	return r.GetDefaultBranch(), nil
}

// BranchExists reports whether branch exists.
func (c *Client) BranchExists(ctx context.Context, repo Repo, branch string) (bool, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return false, err
	}
	_, resp, err := c.gh.Repositories.GetBranch(ctx, repo.Owner, repo.Name, branch, 1)
	c.observe(resp)
	if err != nil {
		err = c.wrapError(resp, err, "get branch %s of %s", branch, repo)
		if docharvest.ErrorCode(err) == docharvest.ENOTFOUND {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Readme returns the decoded README at ref.
func (c *Client) Readme(ctx context.Context, repo Repo, ref string) (*File, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	content, resp, err := c.gh.Repositories.GetReadme(ctx, repo.Owner, repo.Name, &gh.RepositoryContentGetOptions{Ref: ref})
	c.observe(resp)
	if err != nil {
		return nil, c.wrapError(resp, err, "get README of %s", repo)
	}
	return decodeFile(content)
}

// ListDir lists the entries of a directory at ref. An empty path lists the
// repository root.
func (c *Client) ListDir(ctx context.Context, repo Repo, path, ref string) ([]Entry, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	_, dir, resp, err := c.gh.Repositories.GetContents(ctx, repo.Owner, repo.Name, path, &gh.RepositoryContentGetOptions{Ref: ref})
	c.observe(resp)
	if err != nil {
		return nil, c.wrapError(resp, err, "list %s/%s", repo, path)
	}
	if dir == nil {
		return nil, docharvest.Errorf(docharvest.EINVALID, "%s/%s is a file", repo, path)
	}

	entries := make([]Entry, 0, len(dir))
	for _, item := range dir {
		entries = append(entries, Entry{
			Name: item.GetName(),
			Path: item.GetPath(),
			Type: item.GetType(),
			Size: item.GetSize(),
		})
	}
	return entries, nil
}

// File returns the decoded content of the file at path.
func (c *Client) File(ctx context.Context, repo Repo, path, ref string) (*File, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	content, _, resp, err := c.gh.Repositories.GetContents(ctx, repo.Owner, repo.Name, path, &gh.RepositoryContentGetOptions{Ref: ref})
	c.observe(resp)
	if err != nil {
		return nil, c.wrapError(resp, err, "get %s/%s", repo, path)
	}
	if content == nil {
		return nil, docharvest.Errorf(docharvest.EINVALID, "%s/%s is a directory", repo, path)
	}
	return decodeFile(content)
}

// RateLimit returns the core API quota. Quota requests do not count
// against it.
func (c *Client) RateLimit(ctx context.Context) (*RateLimitStatus, error) {
	limits, resp, err := c.gh.RateLimit.Get(ctx)
	c.observe(resp)
	if err != nil {
		return nil, c.wrapError(resp, err, "get rate limit")
	}
	core := limits.GetCore()
	if core == nil {
		status := c.limiter.Status()
		return &status, nil
	}
	return &RateLimitStatus{
		Limit:     core.Limit,
		Remaining: core.Remaining,
		Reset:     core.Reset.Time,
	}, nil
}

func (c *Client) observe(resp *gh.Response) {
	if resp != nil && resp.Response != nil {
		c.limiter.Update(resp.Response)
	}
}

// wrapError maps go-github failures onto error codes. Some endpoints (the
// branch lookup among them) report a bad status as a plain error, so the
// response status is consulted when the error carries none.
func (c *Client) wrapError(resp *gh.Response, err error, format string, args ...any) error {
	if errors.Is(err, context.Canceled) {
		return err
	}

	var rateErr *gh.RateLimitError
	if errors.As(err, &rateErr) {
		return docharvest.WrapError(docharvest.ERATELIMIT, err, "GitHub rate limit exceeded, resets at %s", rateErr.Rate.Reset.Format(time.RFC3339))
	}
	var abuseErr *gh.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		return docharvest.WrapError(docharvest.ERATELIMIT, err, "GitHub secondary rate limit exceeded")
	}

	var respErr *gh.ErrorResponse
	if errors.As(err, &respErr) && respErr.Response != nil {
		code := docharvest.HTTPStatusCode(respErr.Response.StatusCode)
		if code == "" {
			code = docharvest.EEXTERNAL
		}
		args = append(args, respErr.Response.StatusCode, respErr.Message)
		return docharvest.WrapError(code, err, format+": status %d: %s", args...)
	}

	if resp != nil && resp.Response != nil {
		if code := statusCode(resp.Response); code != "" {
			args = append(args, resp.StatusCode)
			return docharvest.WrapError(code, err, format+": status %d", args...)
		}
	}

	if classified := docharvest.ClassifyError(err); classified != err {
		return classified
	}
	args = append(args, err)
	return docharvest.WrapError(docharvest.EEXTERNAL, err, format+": %v", args...)
}

// statusCode classifies a failed response. GitHub signals an exhausted
// primary quota with 403 and a zero remaining count.
func statusCode(resp *http.Response) string {
	if resp.StatusCode == http.StatusForbidden && resp.Header.Get(headerRemaining) == "0" {
		return docharvest.ERATELIMIT
	}
	return docharvest.HTTPStatusCode(resp.StatusCode)
}

func decodeFile(content *gh.RepositoryContent) (*File, error) {
	text, err := content.GetContent()
	if err != nil {
		return nil, docharvest.WrapError(docharvest.EPARSE, err, "cannot decode %s", content.GetPath())
	}
	return &File{
		Path:    content.GetPath(),
		HTMLURL: content.GetHTMLURL(),
		Content: text,
	}, nil
}
