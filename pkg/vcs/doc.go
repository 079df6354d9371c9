/*
Package vcs implements the VCS Worktree Provider: one bare clone per
repository plus one worktree per (repository, user, branch), driven by the
git CLI rather than a Go git library.

# Why a subprocess, not go-git

Every Go git library in the retrieval pack (and the wider ecosystem) either
lacks worktree support or diverges from real git's worktree semantics
closely enough to matter here. Azure-containerization-assist's own git
integration shells out to the git binary for the same reason; this package
follows that precedent rather than the library route.

# Layout

	<baseDir>/repositories/repo_<id>.git              bare clone, shared
	<baseDir>/worktrees/repo_<id>/user_<id>/<branch>  one per session
	<baseDir>/ssh-keys/repo_<id>(.pub)                deploy key material

Every operation is idempotent where the spec calls for it (Clone,
CreateWorktree) so that a retried request after a partial failure does not
fail on "already exists".

# Deploy keys never touch disk unencrypted

GenerateDeployKey hands the private half straight to SecretsManager before
it is cached; only the public half and the on-disk key path are ever
returned to a caller.
*/
package vcs
