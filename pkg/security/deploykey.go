package security

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
)

const deployKeySize = 4096

// DeployKeyPair is a freshly generated RSA-4096 deploy key pair. Private
// is PEM-encoded PKCS#1 and must be encrypted (via SecretsManager) before
// it is written anywhere; the caller is responsible for zeroing Private
// once it has been encrypted and cached.
type DeployKeyPair struct {
	Public  string // PEM-encoded PKIX public key
	Private []byte // PEM-encoded PKCS#1 private key
}

// GenerateDeployKeyPair generates an RSA-4096 key pair for repoID, per
// generateDeployKey. No comment is embedded in the PEM; DeployKeyComment
// builds the conventional comment separately for callers that need one.
func GenerateDeployKeyPair(repoID int64) (*DeployKeyPair, error) {
	key, err := rsa.GenerateKey(rand.Reader, deployKeySize)
	if err != nil {
		return nil, fmt.Errorf("generating deploy key for repo %d: %w", repoID, err)
	}

	pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("marshaling deploy key public half: %w", err)
	}
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})

	privDER := x509.MarshalPKCS1PrivateKey(key)
	privPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: privDER})

	return &DeployKeyPair{Public: string(pubPEM), Private: privPEM}, nil
}

// DeployKeyComment builds the conventional comment for a repository's
// deploy key.
func DeployKeyComment(repoID int64) string {
	return fmt.Sprintf("deploy-key-repo-%d", repoID)
}
