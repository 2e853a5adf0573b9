// Command gitlab-mr creates a GitLab merge request from
// the current branch. Configuration comes from a shared
// gitlab.ini committed with the project and a private
// .git/gitlab.ini holding the access token.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/byte4ever/gitlab-mr/mr"
	"github.com/byte4ever/gitlab-mr/prompt"
	"github.com/byte4ever/gitlab-mr/resolve"
)

func main() {
	if err := run(); err != nil {
		if errors.Is(err, mr.ErrAborted) {
			fmt.Fprintln(os.Stderr, "Aborted.")
			os.Exit(1)
		}

		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

//nolint:funlen // CLI flag setup is inherently long
func run() error {
	const errCtx = "running gitlab-mr"

	// Remote and branch flags.
	sourceRemote := flag.String(
		"source-remote", "",
		"Source remote for the merge request",
	)
	targetRemote := flag.String(
		"target-remote", "",
		"Target remote for the merge request",
	)

	var sourceBranch string

	flag.StringVar(
		&sourceBranch, "source-branch", "",
		"Source branch for the merge request",
	)
	flag.StringVar(
		&sourceBranch, "s", "",
		"Shorthand for --source-branch",
	)

	var targetBranch string

	flag.StringVar(
		&targetBranch, "target-branch", "",
		"Target branch for the merge request",
	)
	flag.StringVar(
		&targetBranch, "t", "",
		"Shorthand for --target-branch",
	)

	// Content flags.
	var title string

	flag.StringVar(
		&title, "message", "",
		"Title for the merge request",
	)
	flag.StringVar(
		&title, "m", "",
		"Shorthand for --message",
	)

	var assignee string

	flag.StringVar(
		&assignee, "assignee", "",
		"Assign the merge request to this username",
	)
	flag.StringVar(
		&assignee, "A", "",
		"Shorthand for --assignee",
	)

	// Behavior flags. The edit/accept/remove defaults
	// come from the shared config; the flags override
	// them only when given.
	var edit bool

	flag.BoolVar(
		&edit, "edit", false,
		"Open $EDITOR on the merge request before "+
			"creating it",
	)
	flag.BoolVar(
		&edit, "e", false,
		"Shorthand for --edit",
	)

	var acceptMerge bool

	flag.BoolVar(
		&acceptMerge, "accept-merge", false,
		"Accept the merge request when the pipeline "+
			"succeeds",
	)
	flag.BoolVar(
		&acceptMerge, "a", false,
		"Shorthand for --accept-merge",
	)

	noAcceptMerge := flag.Bool(
		"no-accept-merge", false,
		"Do not accept the merge request automatically",
	)

	var removeBranch bool

	flag.BoolVar(
		&removeBranch, "remove-branch", false,
		"Remove the source branch after merge",
	)
	flag.BoolVar(
		&removeBranch, "R", false,
		"Shorthand for --remove-branch",
	)

	noRemoveBranch := flag.Bool(
		"no-remove-branch", false,
		"Keep the source branch after merge",
	)

	// Run mode flags.
	var yes bool

	flag.BoolVar(
		&yes, "yes", false,
		"Skip confirmation prompts",
	)
	flag.BoolVar(
		&yes, "y", false,
		"Shorthand for --yes",
	)

	dryRun := flag.Bool(
		"dry-run", false,
		"Resolve and preview without creating anything",
	)
	jsonOut := flag.Bool(
		"json", false,
		"Print the created merge request as JSON",
	)
	verbose := flag.Bool(
		"verbose", false,
		"Enable debug logging",
	)

	flag.Parse()

	setupLogging(*verbose)

	// Local overrides for dev runs; harmless when no
	// .env file exists.
	_ = godotenv.Load()

	seen := make(map[string]bool)

	flag.Visit(func(f *flag.Flag) {
		seen[f.Name] = true
	})

	cfg := mr.Config{
		Overrides: resolve.Overrides{
			SourceRemote: *sourceRemote,
			TargetRemote: *targetRemote,
			SourceBranch: sourceBranch,
			TargetBranch: targetBranch,
		},
		Title:    title,
		Assignee: assignee,
		Edit: boolFlag(
			seen["edit"] || seen["e"], edit,
		),
		AcceptMerge: triState(
			seen["accept-merge"] || seen["a"],
			acceptMerge,
			*noAcceptMerge,
		),
		RemoveBranch: triState(
			seen["remove-branch"] || seen["R"],
			removeBranch,
			*noRemoveBranch,
		),
		Yes:    yes,
		DryRun: *dryRun,
		JSON:   *jsonOut,
		Asker: prompt.NewTerminal(
			os.Stdin, os.Stdout,
		),
		Out: os.Stdout,
	}

	if err := mr.Run(
		context.Background(), cfg,
	); err != nil {
		if errors.Is(err, mr.ErrAborted) {
			return err
		}

		return fmt.Errorf("%s: %w", errCtx, err)
	}

	return nil
}

// boolFlag returns a pointer to value when the flag was
// given, nil otherwise so the config default applies.
func boolFlag(set bool, value bool) *bool {
	if !set {
		return nil
	}

	return &value
}

// triState folds an enable flag and its --no- counterpart
// into an optional override. The --no- form wins when both
// are given; otherwise the parsed value passes through so
// -a=false disables like --no-accept-merge.
func triState(set bool, value bool, disabled bool) *bool {
	switch {
	case disabled:
		v := false

		return &v
	case set:
		v := value

		return &v
	default:
		return nil
	}
}

// setupLogging routes structured logs to stderr, keeping
// stdout for the merge request URL.
func setupLogging(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	slog.SetDefault(slog.New(
		slog.NewTextHandler(
			os.Stderr,
			&slog.HandlerOptions{Level: level},
		),
	))
}
