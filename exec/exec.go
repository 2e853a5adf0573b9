// Package exec provides shell command execution helpers.
package exec

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
)

// Ex executes the named command in the given directory and
// returns its trimmed stdout. Pass empty dir to use the
// current working directory. On failure the error carries
// the command line and whatever the command wrote to
// stderr.
func Ex(
	dir string,
	name string,
	arg ...string,
) (string, error) {
	const errCtx = "executing command"

	slog.Debug(
		"executing",
		"cmd", name,
		"args", strings.Join(arg, " "),
	)

	cmd := exec.CommandContext(context.Background(), name, arg...)
	if dir != "" {
		cmd.Dir = dir
	}

	var stdout, stderr bytes.Buffer

	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	out := strings.TrimSpace(stdout.String())

	slog.Debug("output", "result", out)

	if err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = err.Error()
		}

		return out, fmt.Errorf(
			"%s: %s %s: %s: %w",
			errCtx, name, strings.Join(arg, " "),
			detail, err,
		)
	}

	return out, nil
}
