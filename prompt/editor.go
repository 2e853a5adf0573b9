package prompt

import (
	"fmt"
	"os"
	"os/exec"
)

// defaultEditor is used when $EDITOR is unset.
const defaultEditor = "vi"

// EditDraft writes the draft to a temporary file, opens it
// in the user's editor, and parses the result back.
func EditDraft(
	d Draft,
	outline string,
	commits string,
) (Draft, error) {
	const errCtx = "editing merge request draft"

	tmp, err := os.CreateTemp("", "gitlab-mr-*.txt")
	if err != nil {
		return d, fmt.Errorf(
			"%s: temp file: %w", errCtx, err,
		)
	}

	name := tmp.Name()
	defer os.Remove(name)

	_, err = tmp.WriteString(
		d.EditorText(outline, commits),
	)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}

	if err != nil {
		return d, fmt.Errorf(
			"%s: write draft: %w", errCtx, err,
		)
	}

	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = defaultEditor
	}

	// The editor needs the terminal, so it runs attached
	// to the process streams rather than through the
	// captured-output helper.
	cmd := exec.Command(editor, name)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return d, fmt.Errorf(
			"%s: run %s: %w", errCtx, editor, err,
		)
	}

	edited, err := os.ReadFile(name)
	if err != nil {
		return d, fmt.Errorf(
			"%s: read back: %w", errCtx, err,
		)
	}

	return d.Merge(string(edited)), nil
}
