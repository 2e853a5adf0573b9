package resolve_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/byte4ever/gitlab-mr/git"
	"github.com/byte4ever/gitlab-mr/resolve"
)

// fakeRepo is a test double for the local clone.
type fakeRepo struct {
	branch   string
	detached bool
	remotes  map[string]string
}

func (f *fakeRepo) CurrentBranch() (string, error) {
	if f.detached {
		return "", git.ErrDetachedHead
	}

	return f.branch, nil
}

func (f *fakeRepo) ProjectPath(
	remote string,
) (string, error) {
	path, ok := f.remotes[remote]
	if !ok {
		return "", git.ErrUnknownRemote
	}

	if path == "" {
		return "", git.ErrBadRemoteURL
	}

	return path, nil
}

// fakeBranches serves default branches per project path.
type fakeBranches struct {
	defaults map[string]string
	err      error
}

func (f *fakeBranches) DefaultBranch(
	_ context.Context,
	path string,
) (string, error) {
	if f.err != nil {
		return "", f.err
	}

	return f.defaults[path], nil
}

func originRepo() *fakeRepo {
	return &fakeRepo{
		branch: "feature-x",
		remotes: map[string]string{
			"origin": "org/project",
			"fork":   "alice/project",
		},
	}
}

func mainBranches() *fakeBranches {
	return &fakeBranches{
		defaults: map[string]string{
			"org/project":   "main",
			"alice/project": "main",
		},
	}
}

func TestResolve_all_defaults(t *testing.T) {
	t.Parallel()

	req, err := resolve.Resolve(
		context.Background(),
		resolve.Overrides{},
		resolve.Defaults{},
		originRepo(),
		mainBranches(),
	)

	require.NoError(t, err)
	assert.Equal(t, &resolve.Request{
		SourceRemote:  "origin",
		TargetRemote:  "origin",
		SourceBranch:  "feature-x",
		TargetBranch:  "main",
		SourceProject: "org/project",
		TargetProject: "org/project",
	}, req)
}

func TestResolve_flags_win_over_config(t *testing.T) {
	t.Parallel()

	req, err := resolve.Resolve(
		context.Background(),
		resolve.Overrides{
			SourceRemote: "fork",
			SourceBranch: "fix-1",
			TargetBranch: "release",
		},
		resolve.Defaults{
			SourceRemote: "origin",
			TargetRemote: "origin",
		},
		originRepo(),
		mainBranches(),
	)

	require.NoError(t, err)
	assert.Equal(t, "fork", req.SourceRemote)
	assert.Equal(t, "alice/project", req.SourceProject)
	assert.Equal(t, "fix-1", req.SourceBranch)
	assert.Equal(t, "release", req.TargetBranch)
}

func TestResolve_config_wins_over_computed(t *testing.T) {
	t.Parallel()

	req, err := resolve.Resolve(
		context.Background(),
		resolve.Overrides{},
		resolve.Defaults{SourceRemote: "fork"},
		originRepo(),
		mainBranches(),
	)

	require.NoError(t, err)
	assert.Equal(t, "fork", req.SourceRemote)
	assert.Equal(t, "origin", req.TargetRemote)
}

func TestResolve_detached_head(t *testing.T) {
	t.Parallel()

	repo := originRepo()
	repo.detached = true

	_, err := resolve.Resolve(
		context.Background(),
		resolve.Overrides{},
		resolve.Defaults{},
		repo,
		mainBranches(),
	)

	var resErr *resolve.Error

	require.ErrorAs(t, err, &resErr)
	assert.Equal(
		t, resolve.ReasonNoCurrentBranch, resErr.Reason,
	)
}

func TestResolve_detached_head_with_override(t *testing.T) {
	t.Parallel()

	repo := originRepo()
	repo.detached = true

	req, err := resolve.Resolve(
		context.Background(),
		resolve.Overrides{SourceBranch: "feature-x"},
		resolve.Defaults{},
		repo,
		mainBranches(),
	)

	require.NoError(t, err)
	assert.Equal(t, "feature-x", req.SourceBranch)
}

func TestResolve_unknown_remote(t *testing.T) {
	t.Parallel()

	_, err := resolve.Resolve(
		context.Background(),
		resolve.Overrides{SourceRemote: "upstream"},
		resolve.Defaults{},
		originRepo(),
		mainBranches(),
	)

	var resErr *resolve.Error

	require.ErrorAs(t, err, &resErr)
	assert.Equal(
		t, resolve.ReasonUnknownRemote, resErr.Reason,
	)
	assert.Contains(t, resErr.Error(), "upstream")
}

func TestResolve_bad_remote_url(t *testing.T) {
	t.Parallel()

	repo := originRepo()
	repo.remotes["weird"] = ""

	_, err := resolve.Resolve(
		context.Background(),
		resolve.Overrides{TargetRemote: "weird"},
		resolve.Defaults{},
		repo,
		mainBranches(),
	)

	var resErr *resolve.Error

	require.ErrorAs(t, err, &resErr)
	assert.Equal(
		t, resolve.ReasonBadRemoteURL, resErr.Reason,
	)
}

func TestResolve_default_branch_lookup_fails(t *testing.T) {
	t.Parallel()

	_, err := resolve.Resolve(
		context.Background(),
		resolve.Overrides{},
		resolve.Defaults{},
		originRepo(),
		&fakeBranches{err: fmt.Errorf("boom")},
	)

	assert.ErrorContains(t, err, "target branch")
}

func TestResolve_no_default_branch(t *testing.T) {
	t.Parallel()

	_, err := resolve.Resolve(
		context.Background(),
		resolve.Overrides{},
		resolve.Defaults{},
		originRepo(),
		&fakeBranches{defaults: map[string]string{}},
	)

	var resErr *resolve.Error

	require.ErrorAs(t, err, &resErr)
	assert.Equal(
		t, resolve.ReasonNoDefaultBranch, resErr.Reason,
	)
}

func TestResolve_no_api_call_with_explicit_target(
	t *testing.T,
) {
	t.Parallel()

	// With -t given, the server must not be consulted.
	req, err := resolve.Resolve(
		context.Background(),
		resolve.Overrides{TargetBranch: "release"},
		resolve.Defaults{},
		originRepo(),
		&fakeBranches{err: fmt.Errorf("must not be called")},
	)

	require.NoError(t, err)
	assert.Equal(t, "release", req.TargetBranch)
}
