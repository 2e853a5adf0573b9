package git

import (
	"errors"
	"fmt"
	"log/slog"
	oe "os/exec"
	"strings"

	"github.com/byte4ever/gitlab-mr/exec"
)

// Sentinel errors returned by repository queries. Callers
// classify resolution failures with errors.Is.
var (
	// ErrDetachedHead is returned when HEAD does not
	// point at a branch.
	ErrDetachedHead = errors.New("detached HEAD")

	// ErrUnknownRemote is returned when the named remote
	// is not configured in the clone.
	ErrUnknownRemote = errors.New("unknown remote")

	// ErrBadRemoteURL is returned when a remote URL does
	// not contain a recognizable project path.
	ErrBadRemoteURL = errors.New("unsupported remote URL")
)

// Repo is the clone the tool operates on.
type Repo struct {
	// Dir is the filesystem location of the clone. Empty
	// means the current working directory.
	Dir string
}

// Open returns a Repo rooted at dir. Pass empty dir to use
// the current working directory.
func Open(dir string) *Repo {
	return &Repo{Dir: dir}
}

// CurrentBranch returns the name of the checked-out
// branch, or ErrDetachedHead when HEAD is detached. Other
// git failures (not a repository, git not installed)
// surface as-is.
func (r *Repo) CurrentBranch() (string, error) {
	const errCtx = "reading current branch"

	out, err := exec.Ex(
		r.Dir, "git",
		"symbolic-ref", "--short", "-q", "HEAD",
	)
	if err != nil {
		// symbolic-ref -q exits 1 exactly when HEAD is
		// not a symbolic ref.
		var exitErr *oe.ExitError
		if errors.As(err, &exitErr) &&
			exitErr.ExitCode() == 1 {
			return "", fmt.Errorf(
				"%s: %w", errCtx, ErrDetachedHead,
			)
		}

		return "", fmt.Errorf("%s: %w", errCtx, err)
	}

	if out == "" {
		return "", fmt.Errorf(
			"%s: %w", errCtx, ErrDetachedHead,
		)
	}

	return out, nil
}

// RemoteURL returns the fetch URL of the named remote, or
// ErrUnknownRemote when the remote is not configured.
func (r *Repo) RemoteURL(name string) (string, error) {
	const errCtx = "reading remote URL"

	out, err := exec.Ex(
		r.Dir, "git", "remote", "get-url", name,
	)
	if err != nil {
		return "", fmt.Errorf(
			"%s: %s: %w", errCtx, name, ErrUnknownRemote,
		)
	}

	return out, nil
}

// ProjectPath returns the GitLab project path (the
// "org/project" part) embedded in the named remote's URL.
func (r *Repo) ProjectPath(remote string) (string, error) {
	const errCtx = "resolving project path"

	url, err := r.RemoteURL(remote)
	if err != nil {
		return "", fmt.Errorf("%s: %w", errCtx, err)
	}

	path, err := ParseProjectPath(url)
	if err != nil {
		return "", fmt.Errorf(
			"%s: remote %s: %w", errCtx, remote, err,
		)
	}

	return path, nil
}

// TrackingBranch returns the remote branch name tracked by
// the given local branch, without the remote prefix. The
// second result is false when no upstream is configured.
func (r *Repo) TrackingBranch(branch string) (string, bool) {
	out, err := exec.Ex(
		r.Dir, "git",
		"for-each-ref",
		"--format", "%(upstream:short)",
		"refs/heads/"+branch,
	)
	if err != nil || out == "" {
		return "", false
	}

	// Upstream is "remote/branch"; the branch part may
	// itself contain slashes.
	_, name, found := strings.Cut(out, "/")
	if !found {
		return "", false
	}

	return name, true
}

// HasRemoteBranch reports whether the clone knows about
// branch on the given remote (i.e. the branch was pushed
// and fetched at least once).
func (r *Repo) HasRemoteBranch(
	remote string,
	branch string,
) bool {
	_, err := exec.Ex(
		r.Dir, "git",
		"rev-parse", "--verify", "--quiet",
		"refs/remotes/"+remote+"/"+branch,
	)

	return err == nil
}

// IsClean reports whether the working tree has no
// uncommitted changes.
func (r *Repo) IsClean() bool {
	out, err := exec.Ex(
		r.Dir, "git", "status", "--porcelain",
	)
	if err != nil {
		slog.Error(
			"failed to check repo status",
			"error", err,
		)

		return false
	}

	return out == ""
}
