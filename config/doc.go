// Package config reads and writes the two-layer tool
// configuration: a shared gitlab.ini meant to be committed
// with the project, and a private .git/gitlab.ini holding
// the access token. The private layer overrides the shared
// one, and secrets are only ever written to the private
// file.
package config
