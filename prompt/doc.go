// Package prompt handles all user interaction: questions
// on the terminal, the merge request preview, and the
// $EDITOR round-trip for editing a merge request draft.
// Interaction goes through the Asker interface so callers
// stay testable without a real terminal.
package prompt
