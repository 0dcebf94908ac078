// Package models defines the verifier session states and the shapes the
// verifier exposes over HTTP.
package models

import (
	"strings"
	"time"

	"docseal/internal/document"
	dErrors "docseal/pkg/domain-errors"
)

// State is a verifier session state. A session moves strictly forward:
// decode, optionally decrypt, then a single verification against the
// registry.
type State string

const (
	StateLoading           State = "loading"
	StateDecodeError       State = "decode_error"
	StatePlain             State = "plain"
	StateEncrypted         State = "encrypted"
	StateDecrypted         State = "decrypted"
	StateDecryptionError   State = "decryption_error"
	StateVerifying         State = "verifying"
	StateVerified          State = "verified"
	StateUnverified        State = "unverified"
	StateVerificationError State = "verification_error"
)

// Terminal reports whether the session can make no further progress.
// DecryptionError is not terminal: another key may still be submitted.
func (s State) Terminal() bool {
	switch s {
	case StateDecodeError, StateVerified, StateUnverified, StateVerificationError:
		return true
	}
	return false
}

// Snapshot is the externally visible view of a session. Fields are present
// as soon as the payload is readable, even when verification itself failed;
// the verdict alone distinguishes trustworthy data from merely visible data.
type Snapshot struct {
	SessionID string            `json:"sessionId"`
	State     State             `json:"state"`
	Fields    map[string]string `json:"fields,omitempty"`
	Hash      string            `json:"hash,omitempty"`
	Valid     bool              `json:"valid"`
	Message   string            `json:"message,omitempty"`
}

// MintRequest is the request body for POST /verification-requests: who is
// asking, for which document kind, and what the request is for.
type MintRequest struct {
	VerifierName string `json:"verifierName"`
	DocumentKind string `json:"documentKind"`
	Description  string `json:"description"`
}

// Normalize trims the caller-facing strings.
func (r *MintRequest) Normalize() {
	r.VerifierName = strings.TrimSpace(r.VerifierName)
	r.DocumentKind = strings.TrimSpace(r.DocumentKind)
	r.Description = strings.TrimSpace(r.Description)
}

// Validate checks the verifier name and document kind.
func (r *MintRequest) Validate() error {
	if r.VerifierName == "" {
		return dErrors.New(dErrors.CodeValidation, "verifierName is required")
	}
	_, err := document.ParseKind(r.DocumentKind)
	return err
}

// RequestDescriptor is minted for a verifier that wants disclosures
// encrypted to it. It echoes who is asking and for what so the holder can
// decide whether to disclose; the private key half never leaves the server.
type RequestDescriptor struct {
	ID           string    `json:"id"`
	VerifierName string    `json:"verifierName"`
	DocumentKind string    `json:"documentKind"`
	Description  string    `json:"description,omitempty"`
	VerifyURL    string    `json:"verifyUrl"`
	PublicKeyPEM string    `json:"publicKeyPem"`
	CreatedAt    time.Time `json:"createdAt"`
	ExpiresAt    time.Time `json:"expiresAt"`
}
