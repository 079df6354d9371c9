package security

import (
	"crypto/x509"
	"encoding/pem"
	"testing"
)

func TestGenerateDeployKeyPairProducesValidPEM(t *testing.T) {
	pair, err := GenerateDeployKeyPair(42)
	if err != nil {
		t.Fatalf("GenerateDeployKeyPair returned error: %v", err)
	}

	block, _ := pem.Decode([]byte(pair.Public))
	if block == nil || block.Type != "PUBLIC KEY" {
		t.Fatal("public half is not a valid PEM PUBLIC KEY block")
	}
	if _, err := x509.ParsePKIXPublicKey(block.Bytes); err != nil {
		t.Fatalf("public half did not parse as PKIX: %v", err)
	}

	block, _ = pem.Decode(pair.Private)
	if block == nil || block.Type != "RSA PRIVATE KEY" {
		t.Fatal("private half is not a valid PEM RSA PRIVATE KEY block")
	}
	key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err != nil {
		t.Fatalf("private half did not parse as PKCS1: %v", err)
	}
	if key.N.BitLen() != deployKeySize {
		t.Errorf("expected a %d-bit key, got %d", deployKeySize, key.N.BitLen())
	}
}

func TestDeployKeyCommentNamesRepository(t *testing.T) {
	if got := DeployKeyComment(7); got != "deploy-key-repo-7" {
		t.Errorf("DeployKeyComment(7) = %q", got)
	}
}

func TestEncryptDecryptRoundTripsDeployKeyPrivateMaterial(t *testing.T) {
	sm, err := NewSecretsManagerFromPassphrase("correct horse battery staple")
	if err != nil {
		t.Fatalf("NewSecretsManagerFromPassphrase: %v", err)
	}

	pair, err := GenerateDeployKeyPair(1)
	if err != nil {
		t.Fatalf("GenerateDeployKeyPair: %v", err)
	}

	ciphertext, err := sm.Encrypt(pair.Private)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	plaintext, err := sm.Decrypt(ciphertext)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if string(plaintext) != string(pair.Private) {
		t.Error("decrypted private key material does not match original")
	}
}

func TestDecryptRejectsTamperedCiphertext(t *testing.T) {
	sm, _ := NewSecretsManagerFromPassphrase("passphrase")
	ciphertext, _ := sm.Encrypt([]byte("secret bytes"))
	ciphertext[len(ciphertext)-1] ^= 0xFF

	if _, err := sm.Decrypt(ciphertext); err == nil {
		t.Error("expected tamper detection to fail decryption")
	}
}
