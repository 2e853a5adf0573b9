package git

import (
	"fmt"
	"strings"

	"github.com/byte4ever/gitlab-mr/exec"
)

// Commit is one entry of `git cherry -v` output: a commit
// present on head but not on upstream.
type Commit struct {
	// State is "+" for commits missing upstream and "-"
	// for commits with an upstream equivalent.
	State string
	// Hash is the full commit SHA.
	Hash string
	// Subject is the first line of the commit message.
	Subject string
}

// ShortHash returns the abbreviated commit SHA.
func (c Commit) ShortHash() string {
	const short = 8

	if len(c.Hash) <= short {
		return c.Hash
	}

	return c.Hash[:short]
}

// Cherry lists the commits on head that are not on
// upstream, oldest first.
func (r *Repo) Cherry(
	upstream string,
	head string,
) ([]Commit, error) {
	const errCtx = "listing commits"

	out, err := exec.Ex(
		r.Dir, "git", "cherry", "-v", upstream, head,
	)
	if err != nil {
		return nil, fmt.Errorf(
			"%s: %s..%s: %w", errCtx, upstream, head, err,
		)
	}

	return parseCherry(out), nil
}

// parseCherry parses `git cherry -v` output lines of the
// form "+ <sha> <subject>". Blank input yields nil.
func parseCherry(out string) []Commit {
	var commits []Commit

	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		fields := strings.SplitN(line, " ", 3)
		if len(fields) < 2 {
			continue
		}

		c := Commit{
			State: fields[0],
			Hash:  fields[1],
		}

		if len(fields) == 3 {
			c.Subject = fields[2]
		}

		commits = append(commits, c)
	}

	return commits
}

// FormatCommits renders commits one per line, each
// prefixed with prefix, for previews and prompts.
func FormatCommits(commits []Commit, prefix string) string {
	lines := make([]string, 0, len(commits))

	for _, c := range commits {
		lines = append(lines, fmt.Sprintf(
			"%s%s %s %s",
			prefix, c.State, c.ShortHash(), c.Subject,
		))
	}

	return strings.Join(lines, "\n")
}
