// Package resolve computes the effective merge request
// parameters from CLI overrides, configuration defaults,
// and the state of the local clone.
package resolve

import (
	"context"
	"errors"
	"fmt"

	"github.com/byte4ever/gitlab-mr/git"
)

// Reason classifies why resolution failed.
type Reason string

// Resolution failure reasons.
const (
	// ReasonNoCurrentBranch: detached HEAD and no
	// explicit source branch.
	ReasonNoCurrentBranch Reason = "no-current-branch"

	// ReasonUnknownRemote: a resolved remote name is not
	// configured in the clone.
	ReasonUnknownRemote Reason = "unknown-remote"

	// ReasonBadRemoteURL: a remote URL carries no
	// recognizable project path.
	ReasonBadRemoteURL Reason = "bad-remote-url"

	// ReasonNoDefaultBranch: the target project reports
	// no default branch and no explicit target branch
	// was given.
	ReasonNoDefaultBranch Reason = "no-default-branch"
)

// Error is a resolution failure.
type Error struct {
	Reason Reason
	Detail string
	Err    error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("resolving request: %s", e.Reason)
	}

	return fmt.Sprintf(
		"resolving request: %s: %s", e.Reason, e.Detail,
	)
}

// Unwrap returns the underlying error, if any.
func (e *Error) Unwrap() error { return e.Err }

// Overrides are the explicit CLI flag values. Empty fields
// fall through to configuration and computed defaults.
type Overrides struct {
	SourceRemote string
	TargetRemote string
	SourceBranch string
	TargetBranch string
}

// Defaults are the configuration-derived remote names,
// already merged across layers (the private layer may
// override the shared source remote).
type Defaults struct {
	SourceRemote string
	TargetRemote string
}

// Repo is the slice of the local clone the resolver needs.
// Satisfied by *git.Repo.
type Repo interface {
	CurrentBranch() (string, error)
	ProjectPath(remote string) (string, error)
}

// DefaultBranchSource looks up a project's default branch
// on the server. Satisfied by *gitlab.Client.
type DefaultBranchSource interface {
	DefaultBranch(
		ctx context.Context,
		projectPath string,
	) (string, error)
}

// Request is a fully resolved merge request description.
// All fields are non-empty.
type Request struct {
	SourceRemote string
	TargetRemote string
	SourceBranch string
	TargetBranch string

	// SourceProject and TargetProject are the GitLab
	// project paths behind the two remotes.
	SourceProject string
	TargetProject string
}

// Resolve computes the effective request. Per field the
// first non-empty value wins: explicit override, then
// configuration default, then the computed default
// (remotes: "origin"; source branch: the checked-out
// branch; target branch: the target project's default
// branch).
func Resolve(
	ctx context.Context,
	ov Overrides,
	def Defaults,
	repo Repo,
	branches DefaultBranchSource,
) (*Request, error) {
	req := &Request{
		SourceRemote: first(
			ov.SourceRemote, def.SourceRemote, "origin",
		),
		TargetRemote: first(
			ov.TargetRemote, def.TargetRemote, "origin",
		),
	}

	var err error

	req.SourceProject, err = projectPath(
		repo, req.SourceRemote,
	)
	if err != nil {
		return nil, err
	}

	req.TargetProject, err = projectPath(
		repo, req.TargetRemote,
	)
	if err != nil {
		return nil, err
	}

	req.SourceBranch = ov.SourceBranch
	if req.SourceBranch == "" {
		branch, branchErr := repo.CurrentBranch()
		if branchErr != nil {
			return nil, &Error{
				Reason: ReasonNoCurrentBranch,
				Detail: "checkout a branch or pass " +
					"--source-branch",
				Err: branchErr,
			}
		}

		req.SourceBranch = branch
	}

	req.TargetBranch = ov.TargetBranch
	if req.TargetBranch == "" {
		branch, branchErr := branches.DefaultBranch(
			ctx, req.TargetProject,
		)
		if branchErr != nil {
			return nil, fmt.Errorf(
				"resolving target branch: %w", branchErr,
			)
		}

		if branch == "" {
			return nil, &Error{
				Reason: ReasonNoDefaultBranch,
				Detail: req.TargetProject,
			}
		}

		req.TargetBranch = branch
	}

	return req, nil
}

// projectPath maps git facade failures onto resolution
// reasons.
func projectPath(
	repo Repo,
	remote string,
) (string, error) {
	path, err := repo.ProjectPath(remote)
	if err == nil {
		return path, nil
	}

	reason := ReasonBadRemoteURL
	if errors.Is(err, git.ErrUnknownRemote) {
		reason = ReasonUnknownRemote
	}

	return "", &Error{
		Reason: reason,
		Detail: remote,
		Err:    err,
	}
}

// first returns the first non-empty string.
func first(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}

	return ""
}
