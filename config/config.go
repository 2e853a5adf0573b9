package config

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/ini.v1"
)

const (
	// section is the INI section both layers use.
	section = "gitlab"

	// EnvURL and EnvToken override the config files when
	// set (e.g. via a .env file).
	EnvURL   = "GITLAB_URL"
	EnvToken = "GITLAB_TOKEN"

	defaultTimeout = 5 * time.Second
)

// sharedTemplate is the shared gitlab.ini written on first
// run. It intentionally holds no secrets.
const sharedTemplate = `[gitlab]
# GitLab server URL, e.g. https://gitlab.example.com
url =
# Default remotes used for merge requests.
source_remote = origin
target_remote = origin
# Seconds to wait for GitLab API responses.
timeout = 5
# Merge request behavior defaults.
mr_edit = false
mr_accept_merge = false
mr_remove_branch = true
`

// Error wraps a configuration failure with the offending
// file path.
type Error struct {
	Path string
	Err  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("config %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error { return e.Err }

// Asker requests a value from the user. Satisfied by
// prompt.Terminal; tests supply fakes.
type Asker interface {
	Ask(question string) (string, error)
}

// Settings is the merged view of both configuration
// layers plus environment overrides.
type Settings struct {
	// URL is the GitLab server base URL.
	URL string

	// Token is the private access token.
	Token string

	// SourceRemote is the default source remote. The
	// private layer may override the shared one.
	SourceRemote string

	// TargetRemote is the default target remote. Shared
	// layer only.
	TargetRemote string

	// Timeout bounds each API call.
	Timeout time.Duration

	// Edit opens $EDITOR on the merge request by default.
	Edit bool

	// AcceptMerge accepts the merge request when the
	// pipeline succeeds.
	AcceptMerge bool

	// RemoveBranch removes the source branch after merge.
	RemoveBranch bool
}

// Store reads and writes the two configuration layers.
type Store struct {
	// SharedPath is the versioned per-project file
	// (gitlab.ini).
	SharedPath string

	// PrivatePath is the unversioned per-clone file
	// (.git/gitlab.ini).
	PrivatePath string
}

// NewStore returns a Store over the given layer paths.
func NewStore(sharedPath, privatePath string) *Store {
	return &Store{
		SharedPath:  sharedPath,
		PrivatePath: privatePath,
	}
}

// Load merges both layers and environment overrides into
// a Settings value. Missing files are treated as empty;
// malformed files fail with *Error.
func (s *Store) Load() (*Settings, error) {
	shared, err := ini.LooseLoad(s.SharedPath)
	if err != nil {
		return nil, &Error{Path: s.SharedPath, Err: err}
	}

	private, err := ini.LooseLoad(s.PrivatePath)
	if err != nil {
		return nil, &Error{Path: s.PrivatePath, Err: err}
	}

	sh := shared.Section(section)
	pv := private.Section(section)

	set := &Settings{
		URL: firstNonEmpty(
			os.Getenv(EnvURL),
			pv.Key("url").String(),
			sh.Key("url").String(),
		),
		Token: firstNonEmpty(
			os.Getenv(EnvToken),
			pv.Key("private_token").String(),
		),
		SourceRemote: firstNonEmpty(
			pv.Key("source_remote").String(),
			sh.Key("source_remote").String(),
		),
		TargetRemote: sh.Key("target_remote").String(),
		Timeout: time.Duration(
			sh.Key("timeout").MustInt(
				int(defaultTimeout/time.Second),
			),
		) * time.Second,
		Edit:        sh.Key("mr_edit").MustBool(false),
		AcceptMerge: sh.Key("mr_accept_merge").MustBool(false),
		RemoveBranch: sh.Key("mr_remove_branch").
			MustBool(true),
	}

	return set, nil
}

// EnsureShared creates the shared config file from the
// template when absent. Returns true when the file was
// created.
func (s *Store) EnsureShared() (bool, error) {
	if _, err := os.Stat(s.SharedPath); err == nil {
		return false, nil
	}

	err := writeFileAtomic(
		s.SharedPath, []byte(sharedTemplate), 0o644,
	)
	if err != nil {
		return false, &Error{Path: s.SharedPath, Err: err}
	}

	slog.Info(
		"created shared config, commit it with the project",
		"path", s.SharedPath,
	)

	return true, nil
}

// EnsureURL prompts for the server URL when missing and
// persists it to the private layer.
func (s *Store) EnsureURL(ask Asker) (string, error) {
	url, err := ask.Ask("Enter gitlab server url: ")
	if err != nil {
		return "", &Error{Path: s.PrivatePath, Err: err}
	}

	if err := s.SetPrivate("url", url); err != nil {
		return "", err
	}

	return url, nil
}

// EnsureToken prompts for the private token and persists
// it to the private layer. serverURL is used to point the
// user at the token page.
func (s *Store) EnsureToken(
	ask Asker,
	serverURL string,
) (string, error) {
	token, err := ask.Ask(fmt.Sprintf(
		"Enter your private token (%s/-/user_settings/personal_access_tokens): ",
		serverURL,
	))
	if err != nil {
		return "", &Error{Path: s.PrivatePath, Err: err}
	}

	err = s.SetPrivate("private_token", token)
	if err != nil {
		return "", err
	}

	slog.Info(
		"saved token to private config",
		"path", s.PrivatePath,
	)

	return token, nil
}

// SetPrivate writes one key to the private layer, creating
// the file when absent and leaving other keys untouched.
// The file is written with owner-only permissions since it
// holds the token.
func (s *Store) SetPrivate(key, value string) error {
	return s.setKey(s.PrivatePath, key, value, 0o600)
}

// SetShared writes one key to the shared layer. Only
// non-secret defaults (remotes, behavior flags) belong
// here.
func (s *Store) SetShared(key, value string) error {
	return s.setKey(s.SharedPath, key, value, 0o644)
}

// setKey loads the file at path, updates one key, and
// rewrites the file atomically. A missing file is created.
func (s *Store) setKey(
	path string,
	key string,
	value string,
	mode os.FileMode,
) error {
	f, err := ini.LooseLoad(path)
	if err != nil {
		return &Error{Path: path, Err: err}
	}

	f.Section(section).Key(key).SetValue(value)

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return &Error{Path: path, Err: err}
	}

	err = writeFileAtomic(path, buf.Bytes(), mode)
	if err != nil {
		return &Error{Path: path, Err: err}
	}

	return nil
}

// writeFileAtomic writes data to a temp file in the target
// directory and renames it into place.
func writeFileAtomic(
	path string,
	data []byte,
	mode os.FileMode,
) error {
	dir := filepath.Dir(path)

	tmp, err := os.CreateTemp(dir, ".gitlab-mr-*")
	if err != nil {
		return err
	}

	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)

		return err
	}

	if err := tmp.Chmod(mode); err != nil {
		tmp.Close()
		os.Remove(tmpName)

		return err
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)

		return err
	}

	return os.Rename(tmpName, path)
}

// firstNonEmpty returns the first non-empty string.
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}

	return ""
}
