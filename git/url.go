package git

import (
	"fmt"
	"strings"
)

// ParseProjectPath extracts the GitLab project path from a
// remote URL. Supported forms:
//
//	git@host:org/project.git
//	ssh://git@host/org/project.git
//	https://host/org/project.git
//	http://host/org/project
func ParseProjectPath(url string) (string, error) {
	const errCtx = "parsing remote URL"

	rest := ""

	switch {
	case strings.HasPrefix(url, "ssh://"),
		strings.HasPrefix(url, "http://"),
		strings.HasPrefix(url, "https://"):
		// Strip scheme, then host.
		_, tail, _ := strings.Cut(url, "://")

		_, path, found := strings.Cut(tail, "/")
		if !found {
			return "", fmt.Errorf(
				"%s: %s: %w", errCtx, url, ErrBadRemoteURL,
			)
		}

		rest = path

	case strings.Contains(url, ":"):
		// scp-like syntax: git@host:org/project.git
		_, path, _ := strings.Cut(url, ":")
		rest = path

	default:
		return "", fmt.Errorf(
			"%s: %s: %w", errCtx, url, ErrBadRemoteURL,
		)
	}

	rest = strings.TrimSuffix(rest, "/")
	rest = strings.TrimSuffix(rest, ".git")
	rest = strings.Trim(rest, "/")

	if rest == "" || !strings.Contains(rest, "/") {
		return "", fmt.Errorf(
			"%s: %s: %w", errCtx, url, ErrBadRemoteURL,
		)
	}

	return rest, nil
}
