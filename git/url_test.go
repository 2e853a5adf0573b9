package git_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/byte4ever/gitlab-mr/git"
)

func TestParseProjectPath_scp(t *testing.T) {
	t.Parallel()

	path, err := git.ParseProjectPath(
		"git@gitlab.example.com:org/project.git",
	)

	require.NoError(t, err)
	assert.Equal(t, "org/project", path)
}

func TestParseProjectPath_ssh_scheme(t *testing.T) {
	t.Parallel()

	path, err := git.ParseProjectPath(
		"ssh://git@gitlab.example.com/org/project.git",
	)

	require.NoError(t, err)
	assert.Equal(t, "org/project", path)
}

func TestParseProjectPath_ssh_with_port(t *testing.T) {
	t.Parallel()

	path, err := git.ParseProjectPath(
		"ssh://git@gitlab.example.com:2222/org/project.git",
	)

	require.NoError(t, err)
	assert.Equal(t, "org/project", path)
}

func TestParseProjectPath_https(t *testing.T) {
	t.Parallel()

	path, err := git.ParseProjectPath(
		"https://gitlab.example.com/org/project.git",
	)

	require.NoError(t, err)
	assert.Equal(t, "org/project", path)
}

func TestParseProjectPath_http_no_suffix(t *testing.T) {
	t.Parallel()

	path, err := git.ParseProjectPath(
		"http://gitlab.example.com/org/project",
	)

	require.NoError(t, err)
	assert.Equal(t, "org/project", path)
}

func TestParseProjectPath_nested_groups(t *testing.T) {
	t.Parallel()

	path, err := git.ParseProjectPath(
		"git@gitlab.example.com:org/group/project.git",
	)

	require.NoError(t, err)
	assert.Equal(t, "org/group/project", path)
}

func TestParseProjectPath_rejects_local_path(t *testing.T) {
	t.Parallel()

	_, err := git.ParseProjectPath("/srv/git/project.git")

	assert.ErrorIs(t, err, git.ErrBadRemoteURL)
}

func TestParseProjectPath_rejects_bare_host(t *testing.T) {
	t.Parallel()

	_, err := git.ParseProjectPath(
		"https://gitlab.example.com",
	)

	assert.ErrorIs(t, err, git.ErrBadRemoteURL)
}
