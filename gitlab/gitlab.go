package gitlab

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	gl "gitlab.com/gitlab-org/api/client-go"
)

// Config holds the settings needed to talk to a GitLab
// instance.
type Config struct {
	// BaseURL is the GitLab server URL
	// (e.g. "https://gitlab.example.com"). A bare host
	// name gets an https scheme prepended.
	BaseURL string

	// Token is a personal access token used for
	// authentication.
	Token string

	// Timeout bounds each API call. Zero means no
	// client-side timeout.
	Timeout time.Duration
}

// APIError is a non-2xx response from the GitLab API.
type APIError struct {
	// StatusCode is the HTTP status, or 0 when the
	// request never reached the server.
	StatusCode int

	// Message is the response body or transport error.
	Message string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("gitlab api: %s", e.Message)
	}

	return fmt.Sprintf(
		"gitlab api: HTTP %d: %s",
		e.StatusCode, e.Message,
	)
}

// Project is the subset of GitLab project attributes the
// tool uses.
type Project struct {
	ID            int
	Path          string
	DefaultBranch string
}

// MergeRequest is a created merge request.
type MergeRequest struct {
	IID          int    `json:"iid"`
	ProjectID    int    `json:"project_id"`
	Title        string `json:"title"`
	SourceBranch string `json:"source_branch"`
	TargetBranch string `json:"target_branch"`
	WebURL       string `json:"web_url"`
}

// CreateOptions describes the merge request to create on
// the source project.
type CreateOptions struct {
	// SourceProject is the path of the project the MR is
	// created on.
	SourceProject string

	// TargetProjectID is set for cross-project merge
	// requests; zero means same project.
	TargetProjectID int

	SourceBranch string
	TargetBranch string
	Title        string
	Description  string

	// AssigneeID assigns the MR when non-zero.
	AssigneeID int

	// RemoveSourceBranch asks GitLab to delete the
	// source branch after merging.
	RemoveSourceBranch bool
}

// Client calls the GitLab API. Project lookups are
// memoized for the lifetime of the client since a single
// run may need the same project several times.
type Client struct {
	gl       *gl.Client
	projects map[string]*Project
}

// NewClient validates cfg and returns a Client.
func NewClient(cfg Config) (*Client, error) {
	const errCtx = "creating gitlab client"

	if cfg.Token == "" {
		return nil, fmt.Errorf(
			"%s: token must be set", errCtx,
		)
	}

	if cfg.BaseURL == "" {
		return nil, fmt.Errorf(
			"%s: server URL must be set", errCtx,
		)
	}

	base := cfg.BaseURL
	if !strings.Contains(base, "://") {
		base = "https://" + base
	}

	httpClient := &http.Client{Timeout: cfg.Timeout}

	client, err := gl.NewClient(
		cfg.Token,
		gl.WithBaseURL(base),
		gl.WithHTTPClient(httpClient),
	)
	if err != nil {
		return nil, fmt.Errorf(
			"%s: new client: %w", errCtx, err,
		)
	}

	return &Client{
		gl:       client,
		projects: make(map[string]*Project),
	}, nil
}

// Project looks up a project by its path
// (e.g. "org/project").
func (c *Client) Project(
	ctx context.Context,
	path string,
) (*Project, error) {
	const errCtx = "fetching project"

	if p, ok := c.projects[path]; ok {
		return p, nil
	}

	proj, resp, err := c.gl.Projects.GetProject(
		path, nil, gl.WithContext(ctx),
	)
	if err != nil {
		return nil, fmt.Errorf(
			"%s %s: %w", errCtx, path, apiError(resp, err),
		)
	}

	p := &Project{
		ID:            proj.ID,
		Path:          proj.PathWithNamespace,
		DefaultBranch: proj.DefaultBranch,
	}
	c.projects[path] = p

	return p, nil
}

// DefaultBranch returns the default branch of the project
// at path.
func (c *Client) DefaultBranch(
	ctx context.Context,
	path string,
) (string, error) {
	p, err := c.Project(ctx, path)
	if err != nil {
		return "", err
	}

	return p.DefaultBranch, nil
}

// BranchExists reports whether the named branch exists on
// the project.
func (c *Client) BranchExists(
	ctx context.Context,
	projectPath string,
	branch string,
) (bool, error) {
	const errCtx = "checking branch"

	_, resp, err := c.gl.Branches.GetBranch(
		projectPath, branch, gl.WithContext(ctx),
	)
	if err == nil {
		return true, nil
	}

	if resp != nil &&
		resp.StatusCode == http.StatusNotFound {
		return false, nil
	}

	return false, fmt.Errorf(
		"%s %s on %s: %w",
		errCtx, branch, projectPath, apiError(resp, err),
	)
}

// UserID resolves a username to a user ID.
func (c *Client) UserID(
	ctx context.Context,
	username string,
) (int, error) {
	const errCtx = "looking up user"

	users, resp, err := c.gl.Users.ListUsers(
		&gl.ListUsersOptions{
			Username: gl.Ptr(username),
		},
		gl.WithContext(ctx),
	)
	if err != nil {
		return 0, fmt.Errorf(
			"%s %s: %w",
			errCtx, username, apiError(resp, err),
		)
	}

	for _, u := range users {
		if u.Username == username {
			return u.ID, nil
		}
	}

	return 0, fmt.Errorf(
		"%s: user %q not found", errCtx, username,
	)
}

// CreateMergeRequest creates the merge request and returns
// it. A failed call leaves no state behind; the caller
// decides what to print.
func (c *Client) CreateMergeRequest(
	ctx context.Context,
	opts CreateOptions,
) (*MergeRequest, error) {
	const errCtx = "creating merge request"

	glOpts := gl.CreateMergeRequestOptions{
		Title:        gl.Ptr(opts.Title),
		SourceBranch: gl.Ptr(opts.SourceBranch),
		TargetBranch: gl.Ptr(opts.TargetBranch),
	}

	if opts.Description != "" {
		glOpts.Description = gl.Ptr(opts.Description)
	}

	if opts.TargetProjectID != 0 {
		glOpts.TargetProjectID = gl.Ptr(
			opts.TargetProjectID,
		)
	}

	if opts.AssigneeID != 0 {
		glOpts.AssigneeID = gl.Ptr(opts.AssigneeID)
	}

	if opts.RemoveSourceBranch {
		glOpts.RemoveSourceBranch = gl.Ptr(true)
	}

	created, resp, err := c.gl.MergeRequests.CreateMergeRequest(
		opts.SourceProject, &glOpts, gl.WithContext(ctx),
	)
	if err != nil {
		return nil, fmt.Errorf(
			"%s: %w", errCtx, apiError(resp, err),
		)
	}

	return &MergeRequest{
		IID:          created.IID,
		ProjectID:    created.ProjectID,
		Title:        created.Title,
		SourceBranch: created.SourceBranch,
		TargetBranch: created.TargetBranch,
		WebURL:       created.WebURL,
	}, nil
}

// AcceptWhenPipelineSucceeds marks the merge request to be
// merged once its pipeline succeeds.
func (c *Client) AcceptWhenPipelineSucceeds(
	ctx context.Context,
	projectPath string,
	iid int,
	removeSourceBranch bool,
) error {
	const errCtx = "accepting merge request"

	opts := gl.AcceptMergeRequestOptions{
		MergeWhenPipelineSucceeds: gl.Ptr(true),
	}

	if removeSourceBranch {
		opts.ShouldRemoveSourceBranch = gl.Ptr(true)
	}

	_, resp, err := c.gl.MergeRequests.AcceptMergeRequest(
		projectPath, iid, &opts, gl.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf(
			"%s !%d: %w",
			errCtx, iid, apiError(resp, err),
		)
	}

	return nil
}

// apiError converts a client-go error and response into an
// *APIError carrying the HTTP status.
func apiError(resp *gl.Response, err error) *APIError {
	status := 0
	if resp != nil {
		status = resp.StatusCode
	}

	return &APIError{
		StatusCode: status,
		Message:    err.Error(),
	}
}
