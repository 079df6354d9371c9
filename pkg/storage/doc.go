/*
Package storage holds the orchestrator's one piece of local, authoritative
state: the encrypted deploy-key cache. Everything else the core needs
(users, repositories, permissions) belongs to the external collaborators
the spec scopes out — DATABASE_URL is consumed by those collaborators
only, not by this package.

DeployKeyStore is a thin bbolt wrapper: one bucket, JSON-encoded records
keyed by repository id. It never sees plaintext private key material —
pkg/security.SecretsManager encrypts before Put and decrypts after Get.
*/
package storage
