package prompt

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Asker requests a line of input from the user.
type Asker interface {
	Ask(question string) (string, error)
}

// Terminal is an Asker over an input/output stream pair,
// normally stdin/stdout.
type Terminal struct {
	in  *bufio.Reader
	out io.Writer
}

// NewTerminal returns a Terminal reading from in and
// writing questions to out.
func NewTerminal(in io.Reader, out io.Writer) *Terminal {
	return &Terminal{
		in:  bufio.NewReader(in),
		out: out,
	}
}

// Ask prints the question and returns the trimmed answer
// line. A closed input stream (e.g. a non-interactive run)
// surfaces as an error instead of blocking.
func (t *Terminal) Ask(question string) (string, error) {
	const errCtx = "reading answer"

	fmt.Fprint(t.out, question)

	line, err := t.in.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf(
			"%s: input is not interactive: %w", errCtx, err,
		)
	}

	return strings.TrimSpace(line), nil
}

// IsYes reports whether the answer means yes. An empty
// answer counts as yes so Enter confirms.
func IsYes(answer string) bool {
	switch strings.ToLower(answer) {
	case "", "y", "yes":
		return true
	default:
		return false
	}
}

// IsEdit reports whether the answer asks for the editor.
func IsEdit(answer string) bool {
	switch strings.ToLower(answer) {
	case "e", "edit":
		return true
	default:
		return false
	}
}
