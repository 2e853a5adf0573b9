// Package gitlab wraps the GitLab REST API calls the tool
// needs: project and user lookup, branch checks, and merge
// request creation.
package gitlab
