// Package mr orchestrates the creation of a merge request
// from the current branch: it loads the layered
// configuration, resolves remotes and branches, runs
// pre-flight checks against the local clone, lets the user
// confirm or edit the draft, and calls the GitLab API.
package mr
