package mr

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	json "github.com/goccy/go-json"

	"github.com/byte4ever/gitlab-mr/config"
	"github.com/byte4ever/gitlab-mr/git"
	"github.com/byte4ever/gitlab-mr/gitlab"
	"github.com/byte4ever/gitlab-mr/prompt"
	"github.com/byte4ever/gitlab-mr/resolve"
)

// ErrAborted is returned when the user declines a
// confirmation prompt. It maps to a non-zero exit without
// an error dump.
var ErrAborted = errors.New("aborted by user")

// Default configuration layer locations, relative to the
// repository root.
const (
	DefaultSharedConfig  = "gitlab.ini"
	DefaultPrivateConfig = ".git/gitlab.ini"
)

// Config holds all settings for one merge request
// creation run.
type Config struct {
	// RepoDir is the repository to operate on. Empty
	// means the current working directory.
	RepoDir string

	// SharedConfigPath and PrivateConfigPath locate the
	// two configuration layers. Empty selects the
	// defaults.
	SharedConfigPath  string
	PrivateConfigPath string

	// Overrides are the explicit remote/branch flags.
	Overrides resolve.Overrides

	// Title is the explicit merge request title (-m).
	Title string

	// Assignee is the username to assign the MR to (-A).
	Assignee string

	// Edit, AcceptMerge and RemoveBranch override the
	// configured behavior defaults when non-nil.
	Edit         *bool
	AcceptMerge  *bool
	RemoveBranch *bool

	// Yes skips confirmation prompts.
	Yes bool

	// DryRun resolves and previews without calling any
	// mutating API.
	DryRun bool

	// JSON prints the created merge request as JSON
	// instead of the URL line.
	JSON bool

	// Asker answers interactive questions.
	Asker prompt.Asker

	// Out receives user-facing output. Defaults to
	// stdout.
	Out io.Writer
}

// Run executes the full merge request creation workflow.
//
//nolint:funlen // sequential workflow reads better unsplit
func Run(ctx context.Context, cfg Config) error {
	const errCtx = "creating merge request"

	out := cfg.Out
	if out == nil {
		out = os.Stdout
	}

	// Step 1: Configuration, prompting for anything
	// required but missing.
	store := config.NewStore(
		first(
			cfg.SharedConfigPath,
			filepath.Join(cfg.RepoDir, DefaultSharedConfig),
		),
		first(
			cfg.PrivateConfigPath,
			filepath.Join(cfg.RepoDir, DefaultPrivateConfig),
		),
	)

	if _, err := store.EnsureShared(); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	set, err := store.Load()
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	if set.URL == "" {
		set.URL, err = store.EnsureURL(cfg.Asker)
		if err != nil {
			return fmt.Errorf("%s: %w", errCtx, err)
		}
	}

	if set.Token == "" {
		set.Token, err = store.EnsureToken(
			cfg.Asker, set.URL,
		)
		if err != nil {
			return fmt.Errorf("%s: %w", errCtx, err)
		}
	}

	client, err := gitlab.NewClient(gitlab.Config{
		BaseURL: set.URL,
		Token:   set.Token,
		Timeout: set.Timeout,
	})
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	// Step 2: Resolve remotes and branches.
	repo := git.Open(cfg.RepoDir)

	req, err := resolve.Resolve(
		ctx,
		cfg.Overrides,
		resolve.Defaults{
			SourceRemote: set.SourceRemote,
			TargetRemote: set.TargetRemote,
		},
		repo,
		client,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	// Step 3: Pre-flight checks on the local clone.
	if !repo.IsClean() {
		if err := confirm(
			cfg,
			"There are uncommitted changes. "+
				"Do you want to continue? [y/N]: ",
		); err != nil {
			return err
		}
	}

	remoteBranch := req.SourceBranch
	if tracked, ok := repo.TrackingBranch(
		req.SourceBranch,
	); ok {
		remoteBranch = tracked
	}

	if !repo.HasRemoteBranch(
		req.SourceRemote, remoteBranch,
	) {
		return fmt.Errorf(
			"%s: branch %s is not on remote %s, push it "+
				"first:\n\tgit push %s %s",
			errCtx, remoteBranch, req.SourceRemote,
			req.SourceRemote, req.SourceBranch,
		)
	}

	if err := warnUnpushedCommits(
		cfg, repo, req, remoteBranch,
	); err != nil {
		return err
	}

	// Step 4: Collect the commits going into the MR and
	// derive the title.
	commits, err := mrCommits(repo, req, remoteBranch)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	outline := prompt.Outline(
		req.SourceProject, remoteBranch,
		req.TargetProject, req.TargetBranch,
	)

	if len(commits) == 0 {
		return fmt.Errorf(
			"%s: no commits for merge request: %s",
			errCtx, outline,
		)
	}

	draft := prompt.Draft{
		Title:    chooseTitle(cfg.Title, commits, remoteBranch),
		Assignee: cfg.Assignee,
	}

	commitsText := git.FormatCommits(commits, "#\t")

	// Step 5: Confirm or edit the draft.
	draft, err = reviewDraft(cfg, set, draft, outline, commitsText)
	if err != nil {
		return err
	}

	if draft.Title == "" {
		return fmt.Errorf(
			"%s: empty title, merge request cancelled",
			errCtx,
		)
	}

	if cfg.DryRun {
		fmt.Fprintf(
			out, "Dry run, not creating: %s\n", outline,
		)

		return nil
	}

	// Step 6: Validate against the server and create.
	assigneeID := 0
	if draft.Assignee != "" {
		assigneeID, err = client.UserID(
			ctx, draft.Assignee,
		)
		if err != nil {
			return fmt.Errorf("%s: %w", errCtx, err)
		}
	}

	if err := checkBranches(
		ctx, client, req, remoteBranch,
	); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	removeBranch := boolOr(
		cfg.RemoveBranch, set.RemoveBranch,
	)

	targetProjectID := 0

	if req.TargetProject != req.SourceProject {
		target, projErr := client.Project(
			ctx, req.TargetProject,
		)
		if projErr != nil {
			return fmt.Errorf("%s: %w", errCtx, projErr)
		}

		targetProjectID = target.ID
	}

	slog.Info("creating merge request", "outline", outline)

	created, err := client.CreateMergeRequest(
		ctx,
		gitlab.CreateOptions{
			SourceProject:      req.SourceProject,
			TargetProjectID:    targetProjectID,
			SourceBranch:       remoteBranch,
			TargetBranch:       req.TargetBranch,
			Title:              draft.Title,
			Description:        draft.Description,
			AssigneeID:         assigneeID,
			RemoveSourceBranch: removeBranch,
		},
	)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	if err := printCreated(out, cfg, created); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	// Step 7: Optionally accept the MR once the pipeline
	// succeeds.
	if boolOr(cfg.AcceptMerge, set.AcceptMerge) {
		err := client.AcceptWhenPipelineSucceeds(
			ctx,
			req.SourceProject,
			created.IID,
			removeBranch,
		)
		if err != nil {
			return fmt.Errorf("%s: %w", errCtx, err)
		}

		fmt.Fprintf(
			out,
			"Merge request will be merged when the "+
				"pipeline succeeds.\n"+
				"\tRemove source branch: %t\n",
			removeBranch,
		)
	}

	return nil
}

// confirm asks a [y/N] question unless -y was given. An
// empty answer declines, so pre-flight warnings never pass
// on a stray Enter.
func confirm(cfg Config, question string) error {
	if cfg.Yes {
		return nil
	}

	answer, err := cfg.Asker.Ask(question)
	if err != nil {
		return err
	}

	if answer == "" || !prompt.IsYes(answer) {
		return ErrAborted
	}

	return nil
}

// warnUnpushedCommits lists commits present locally but
// missing on the pushed branch and asks whether to
// continue.
func warnUnpushedCommits(
	cfg Config,
	repo *git.Repo,
	req *resolve.Request,
	remoteBranch string,
) error {
	local, err := repo.Cherry(
		req.SourceRemote+"/"+remoteBranch,
		req.SourceBranch,
	)
	if err != nil || len(local) == 0 {
		// The remote ref was just verified; a cherry
		// failure here is not worth blocking on.
		return nil
	}

	return confirm(
		cfg,
		fmt.Sprintf(
			"Found local commits:\n%s\n"+
				"Possibly you want to push them.\n"+
				"Do you want to continue? [y/N]: ",
			git.FormatCommits(local, "\t"),
		),
	)
}

// mrCommits lists the commits that the merge request would
// contain: those on the pushed source branch missing from
// the target branch. The target ref is taken from the
// target remote when the clone has it, falling back to the
// local branch name.
func mrCommits(
	repo *git.Repo,
	req *resolve.Request,
	remoteBranch string,
) ([]git.Commit, error) {
	upstream := req.TargetBranch
	if repo.HasRemoteBranch(
		req.TargetRemote, req.TargetBranch,
	) {
		upstream = req.TargetRemote + "/" + req.TargetBranch
	}

	return repo.Cherry(
		upstream,
		req.SourceRemote+"/"+remoteBranch,
	)
}

// chooseTitle picks the merge request title: the explicit
// one, else the subject of a single commit, else the
// branch name.
func chooseTitle(
	explicit string,
	commits []git.Commit,
	branch string,
) string {
	if explicit != "" {
		return explicit
	}

	if len(commits) == 1 && commits[0].Subject != "" {
		return commits[0].Subject
	}

	return branch
}

// reviewDraft runs the edit/preview/confirm loop and
// returns the final draft.
func reviewDraft(
	cfg Config,
	set *config.Settings,
	draft prompt.Draft,
	outline string,
	commitsText string,
) (prompt.Draft, error) {
	if boolOr(cfg.Edit, set.Edit) {
		return prompt.EditDraft(
			draft, outline, commitsText,
		)
	}

	if cfg.Yes {
		return draft, nil
	}

	answer, err := cfg.Asker.Ask(
		draft.Preview(outline, commitsText) +
			"\nDo you really want to create the " +
			"merge request? [Y/n/e]: ",
	)
	if err != nil {
		return draft, err
	}

	if prompt.IsEdit(answer) {
		return prompt.EditDraft(
			draft, outline, commitsText,
		)
	}

	if !prompt.IsYes(answer) {
		return draft, ErrAborted
	}

	return draft, nil
}

// checkBranches verifies both ends of the merge request
// exist on the server before creating it.
func checkBranches(
	ctx context.Context,
	client *gitlab.Client,
	req *resolve.Request,
	remoteBranch string,
) error {
	checks := []struct {
		project string
		branch  string
	}{
		{req.SourceProject, remoteBranch},
		{req.TargetProject, req.TargetBranch},
	}

	for _, c := range checks {
		ok, err := client.BranchExists(
			ctx, c.project, c.branch,
		)
		if err != nil {
			return err
		}

		if !ok {
			return fmt.Errorf(
				"branch %s not found on project %s",
				c.branch, c.project,
			)
		}
	}

	return nil
}

// printCreated reports the created merge request, either
// as a URL line or as JSON.
func printCreated(
	out io.Writer,
	cfg Config,
	created *gitlab.MergeRequest,
) error {
	if !cfg.JSON {
		fmt.Fprintf(
			out,
			"Successfully created merge request:\n"+
				"\tMerge request URL: %s\n",
			created.WebURL,
		)

		return nil
	}

	data, err := json.MarshalIndent(created, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}

	fmt.Fprintln(out, string(data))

	return nil
}

// boolOr returns the override when set, the configured
// default otherwise.
func boolOr(override *bool, def bool) bool {
	if override != nil {
		return *override
	}

	return def
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
