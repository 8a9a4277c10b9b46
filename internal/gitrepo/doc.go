// Package gitrepo runs the git plumbing used to clone, fetch, and move the
// checkouts of the environment.
//
// RepositoryManager wraps an execshell.GitExecutor and reports missing
// references through ErrReferenceNotFound so callers can tell an absent tag or
// branch apart from an unreachable remote or a broken working copy.
package gitrepo
