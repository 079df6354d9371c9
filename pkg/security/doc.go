/*
Package security implements the Security Engine: SecurityProfile
derivation, terminal/mount/file/network validators, container-escape
detection, the deploy-key RSA-4096 keypair generator, and the AES-256-GCM
SecretsManager that encrypts deploy-key private material at rest.

# Derivation, not storage

DeriveProfile is a pure function of (userID, repositoryID, Permission,
ProfileLimits); it is never persisted on its own. pkg/runtime records the
permission set used at session-creation time in the container's
permissions-snapshot label; nothing in this module reads that label back
or re-derives a profile from it.

# Validators

Each Validate* function is pure and returns a ValidationResult carrying
the severity to record if the caller chooses to log a SecurityViolation.
Validators never mutate a ViolationLog themselves; recording a rejected
action as a violation is left to the caller. pkg/runtime, which calls
ValidateMount, records no violations.

# Deploy keys

GenerateDeployKeyPair produces an RSA-4096 key pair; its private half is
PEM-encoded but unencrypted. Callers must immediately pass it through a
SecretsManager (keyed from MASTER_ENCRYPTION_PASSPHRASE) before caching
it — see pkg/vcs's generateDeployKey, the only caller.
*/
package security
