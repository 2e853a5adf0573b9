// Package git inspects the local repository clone the tool
// runs in: current branch, remotes, tracking branches, and
// the commits that would make up a merge request. All
// queries shell out to the git executable.
package git
