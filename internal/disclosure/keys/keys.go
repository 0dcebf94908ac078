// Package keys generates and parses the RSA key pairs used to encrypt
// disclosure payloads to a chosen verifier. One pair is minted per
// verification request descriptor.
package keys

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"

	dErrors "docseal/pkg/domain-errors"
)

// KeySize is the RSA modulus size for generated verifier key pairs.
const KeySize = 2048

// Pair holds a PEM-encoded RSA key pair.
type Pair struct {
	PublicKeyPEM  string
	PrivateKeyPEM string
}

// GenerateKeyPair mints a fresh RSA key pair, PEM-encoded (PKIX public,
// PKCS#8 private).
func GenerateKeyPair() (Pair, error) {
	priv, err := rsa.GenerateKey(rand.Reader, KeySize)
	if err != nil {
		return Pair{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate key pair")
	}

	pubDER, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	if err != nil {
		return Pair{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode public key")
	}
	privDER, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return Pair{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode private key")
	}

	return Pair{
		PublicKeyPEM:  string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})),
		PrivateKeyPEM: string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: privDER})),
	}, nil
}

// ParsePublicKey decodes a PEM-encoded RSA public key.
func ParsePublicKey(pemStr string) (*rsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(pemStr))
	if block == nil {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "public key is not valid PEM")
	}
	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "failed to parse public key")
	}
	pub, ok := parsed.(*rsa.PublicKey)
	if !ok {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "public key is not RSA")
	}
	return pub, nil
}

// ParsePrivateKey decodes a PEM-encoded RSA private key (PKCS#8 or PKCS#1).
func ParsePrivateKey(pemStr string) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode([]byte(pemStr))
	if block == nil {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "private key is not valid PEM")
	}
	if parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes); err == nil {
		if priv, ok := parsed.(*rsa.PrivateKey); ok {
			return priv, nil
		}
		return nil, dErrors.New(dErrors.CodeInvalidInput, "private key is not RSA")
	}
	priv, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "failed to parse private key")
	}
	return priv, nil
}
