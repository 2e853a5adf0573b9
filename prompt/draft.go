package prompt

import (
	"fmt"
	"strings"

	"github.com/valyala/fasttemplate"
)

// Draft is the editable part of a merge request.
type Draft struct {
	Title       string
	Assignee    string
	Description string
}

const (
	startTag = "{{"
	endTag   = "}}"
)

// previewTemplate is shown before the confirmation
// question.
const previewTemplate = `
# You are creating a merge request:
#	{{outline}}
#
# Title:
# {{title}}
#
{{extra}}# Next commits will be included in the merge request:
#
{{commits}}
#
`

// editorTemplate is the file handed to $EDITOR. Lines
// starting with # are ignored when reading it back.
const editorTemplate = `Title:
{{title}}
Assignee:
{{assignee}}
Description:
{{description}}

# You are creating a merge request:
#	{{outline}}
#
# Next commits will be included in the merge request:
#
{{commits}}
#
# An empty title cancels the merge request.
`

// Outline renders the one-line merge request summary:
// source project and branch into target project and
// branch.
func Outline(
	sourceProject string,
	sourceBranch string,
	targetProject string,
	targetBranch string,
) string {
	return fmt.Sprintf(
		"%s:%s -> %s:%s",
		sourceProject, sourceBranch,
		targetProject, targetBranch,
	)
}

// Preview renders the confirmation preview for the draft.
// commits is the preformatted commit listing.
func (d Draft) Preview(outline, commits string) string {
	var extra strings.Builder

	if d.Assignee != "" {
		fmt.Fprintf(
			&extra, "# Assignee:\n# %s\n#\n", d.Assignee,
		)
	}

	if d.Description != "" {
		fmt.Fprintf(
			&extra,
			"# Description:\n# %s\n#\n",
			d.Description,
		)
	}

	return fasttemplate.ExecuteString(
		previewTemplate, startTag, endTag,
		map[string]any{
			"outline": outline,
			"title":   d.Title,
			"extra":   extra.String(),
			"commits": commits,
		},
	)
}

// EditorText renders the draft as the file content handed
// to the editor.
func (d Draft) EditorText(outline, commits string) string {
	return fasttemplate.ExecuteString(
		editorTemplate, startTag, endTag,
		map[string]any{
			"title":       d.Title,
			"assignee":    d.Assignee,
			"description": d.Description,
			"outline":     outline,
			"commits":     commits,
		},
	)
}

// Merge parses an edited draft file back. A section header
// present in the text replaces the corresponding field,
// even with an empty value (clearing the title is how the
// user cancels). Headers absent from the text leave the
// field unchanged. Blank lines and # comments are ignored.
func (d Draft) Merge(text string) Draft {
	type section struct {
		lines []string
		found bool
	}

	sections := map[string]*section{
		"Title:":       {},
		"Assignee:":    {},
		"Description:": {},
	}

	var current *section

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if s, ok := sections[line]; ok {
			current = s
			current.found = true

			continue
		}

		if current != nil {
			current.lines = append(current.lines, line)
		}
	}

	apply := func(field *string, name string) {
		s := sections[name]
		if s.found {
			*field = strings.Join(s.lines, "\n")
		}
	}

	apply(&d.Title, "Title:")
	apply(&d.Assignee, "Assignee:")
	apply(&d.Description, "Description:")

	return d
}
