package gitlab_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/byte4ever/gitlab-mr/gitlab"
)

func TestNewClient_valid(t *testing.T) {
	t.Parallel()

	c, err := gitlab.NewClient(gitlab.Config{
		BaseURL: "https://gitlab.example.com",
		Token:   "tok",
	})

	require.NoError(t, err)
	assert.NotNil(t, c)
}

func TestNewClient_bare_host(t *testing.T) {
	t.Parallel()

	// A scheme-less URL is accepted and upgraded to
	// https.
	c, err := gitlab.NewClient(gitlab.Config{
		BaseURL: "gitlab.example.com",
		Token:   "tok",
	})

	require.NoError(t, err)
	assert.NotNil(t, c)
}

func TestNewClient_missing_token(t *testing.T) {
	t.Parallel()

	c, err := gitlab.NewClient(gitlab.Config{
		BaseURL: "https://gitlab.example.com",
	})

	assert.Nil(t, c)
	assert.ErrorContains(t, err, "token")
}

func TestNewClient_missing_url(t *testing.T) {
	t.Parallel()

	c, err := gitlab.NewClient(gitlab.Config{
		Token: "tok",
	})

	assert.Nil(t, c)
	assert.ErrorContains(t, err, "URL")
}

// newTestClient wires a Client to an httptest server.
func newTestClient(
	t *testing.T,
	handler http.Handler,
) *gitlab.Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := gitlab.NewClient(gitlab.Config{
		BaseURL: srv.URL,
		Token:   "tok",
	})
	require.NoError(t, err)

	return c
}

func TestProject_lookup_and_memoization(t *testing.T) {
	t.Parallel()

	hits := 0

	c := newTestClient(t, http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			hits++

			assert.Equal(
				t,
				"/api/v4/projects/org%2Fproject",
				r.URL.EscapedPath(),
			)

			w.Header().Set(
				"Content-Type", "application/json",
			)
			fmt.Fprint(w, `{
				"id": 42,
				"path_with_namespace": "org/project",
				"default_branch": "main"
			}`)
		},
	))

	ctx := context.Background()

	p, err := c.Project(ctx, "org/project")

	require.NoError(t, err)
	assert.Equal(t, 42, p.ID)
	assert.Equal(t, "org/project", p.Path)
	assert.Equal(t, "main", p.DefaultBranch)

	branch, err := c.DefaultBranch(ctx, "org/project")

	require.NoError(t, err)
	assert.Equal(t, "main", branch)
	assert.Equal(t, 1, hits)
}

func TestProject_not_found(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, http.HandlerFunc(
		func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set(
				"Content-Type", "application/json",
			)
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(
				w, `{"message": "404 Project Not Found"}`,
			)
		},
	))

	_, err := c.Project(
		context.Background(), "org/missing",
	)

	var apiErr *gitlab.APIError

	require.ErrorAs(t, err, &apiErr)
	assert.Equal(
		t, http.StatusNotFound, apiErr.StatusCode,
	)
}

func TestBranchExists(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set(
				"Content-Type", "application/json",
			)

			switch r.URL.EscapedPath() {
			case "/api/v4/projects/org%2Fproject/repository/branches/main":
				fmt.Fprint(w, `{"name": "main"}`)
			default:
				w.WriteHeader(http.StatusNotFound)
				fmt.Fprint(
					w, `{"message": "404 Branch Not Found"}`,
				)
			}
		},
	))

	ctx := context.Background()

	ok, err := c.BranchExists(ctx, "org/project", "main")

	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.BranchExists(ctx, "org/project", "gone")

	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUserID(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(
				t, "alice",
				r.URL.Query().Get("username"),
			)

			w.Header().Set(
				"Content-Type", "application/json",
			)
			fmt.Fprint(w, `[
				{"id": 7, "username": "alice"}
			]`)
		},
	))

	id, err := c.UserID(context.Background(), "alice")

	require.NoError(t, err)
	assert.Equal(t, 7, id)
}

func TestUserID_not_found(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, http.HandlerFunc(
		func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set(
				"Content-Type", "application/json",
			)
			fmt.Fprint(w, `[]`)
		},
	))

	_, err := c.UserID(context.Background(), "nobody")

	assert.ErrorContains(t, err, "not found")
}

func TestCreateMergeRequest(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(
				t,
				"/api/v4/projects/org%2Fproject/merge_requests",
				r.URL.EscapedPath(),
			)

			w.Header().Set(
				"Content-Type", "application/json",
			)
			w.WriteHeader(http.StatusCreated)
			fmt.Fprint(w, `{
				"iid": 12,
				"project_id": 42,
				"title": "add feature",
				"source_branch": "feature-x",
				"target_branch": "main",
				"web_url": "https://gitlab.example.com/org/project/-/merge_requests/12"
			}`)
		},
	))

	mr, err := c.CreateMergeRequest(
		context.Background(),
		gitlab.CreateOptions{
			SourceProject: "org/project",
			SourceBranch:  "feature-x",
			TargetBranch:  "main",
			Title:         "add feature",
		},
	)

	require.NoError(t, err)
	assert.Equal(t, 12, mr.IID)
	assert.Equal(
		t,
		"https://gitlab.example.com/org/project/-/merge_requests/12",
		mr.WebURL,
	)
}

func TestCreateMergeRequest_unauthorized(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, http.HandlerFunc(
		func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set(
				"Content-Type", "application/json",
			)
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(
				w, `{"message": "401 Unauthorized"}`,
			)
		},
	))

	_, err := c.CreateMergeRequest(
		context.Background(),
		gitlab.CreateOptions{
			SourceProject: "org/project",
			SourceBranch:  "feature-x",
			TargetBranch:  "main",
			Title:         "add feature",
		},
	)

	var apiErr *gitlab.APIError

	require.ErrorAs(t, err, &apiErr)
	assert.Equal(
		t, http.StatusUnauthorized, apiErr.StatusCode,
	)
}
