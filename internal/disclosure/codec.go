// Package disclosure encodes and decodes the transportable payload a holder
// shares with a verifier: a chosen subset of fields plus the mandatory
// document fingerprint, optionally encrypted to the verifier's public key.
//
// Wire format: base64url (no padding) over either canonical JSON or raw
// RSA PKCS#1 v1.5 ciphertext. The two cases carry no distinguishing
// metadata; the decoding side attempts a plain JSON parse first and falls
// back to "awaiting private key".
package disclosure

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"docseal/internal/document"
	dErrors "docseal/pkg/domain-errors"
)

// FingerprintKey is the mandatory payload key carrying the document
// fingerprint, present regardless of which fields the holder disclosed.
const FingerprintKey = "hash"

// pkcs1v15Overhead is the PKCS#1 v1.5 padding overhead in bytes; plaintext
// is bounded by key size minus this.
const pkcs1v15Overhead = 11

// Decoded is a successfully parsed plain payload.
type Decoded struct {
	Fields      map[string]string
	Fingerprint string
}

// EncryptedEnvelope holds ciphertext awaiting a private key. The payload
// cannot progress until DecryptWith is called.
type EncryptedEnvelope struct {
	ciphertext []byte
}

// Encode builds the disclosure payload for a record: the selected fields
// plus the mandatory fingerprint, serialized as canonical JSON (sorted
// keys). When recipient is non-nil the JSON is encrypted under the
// recipient's public key; the PKCS#1 v1.5 scheme bounds the plaintext to
// roughly key-size-minus-padding bytes, and oversized selections fail with
// a payload_too_large error rather than truncating.
func Encode(record *document.Record, selectedKeys []string, recipient *rsa.PublicKey) (string, error) {
	if record == nil {
		return "", dErrors.New(dErrors.CodeInvalidInput, "record is required")
	}
	if record.Fingerprint == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "record has no fingerprint")
	}

	payload := make(map[string]string, len(selectedKeys)+1)
	for _, key := range selectedKeys {
		if key == FingerprintKey {
			continue
		}
		if value, ok := record.Fields[key]; ok {
			payload[key] = value
		}
	}
	payload[FingerprintKey] = record.Fingerprint

	// json.Marshal sorts map keys, which keeps the serialized form stable
	// for a given selection.
	serialized, err := json.Marshal(payload)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to serialize payload")
	}

	if recipient == nil {
		return base64.RawURLEncoding.EncodeToString(serialized), nil
	}

	if max := recipient.Size() - pkcs1v15Overhead; len(serialized) > max {
		return "", dErrors.New(dErrors.CodePayloadTooLarge,
			fmt.Sprintf("payload is %d bytes but the recipient key fits at most %d; disclose fewer fields", len(serialized), max))
	}

	ciphertext, err := rsa.EncryptPKCS1v15(rand.Reader, recipient, serialized)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to encrypt payload")
	}
	return base64.RawURLEncoding.EncodeToString(ciphertext), nil
}

// Decode reverses the transport encoding. A payload that parses as plain
// JSON is returned as *Decoded; bytes that do not parse are returned as an
// *EncryptedEnvelope awaiting a key. Exactly one of the two results is
// non-nil on success. Input that is not even valid base64url fails with a
// decode_error.
func Decode(encoded string) (*Decoded, *EncryptedEnvelope, error) {
	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		// Tolerate padded input from older encoders.
		raw, err = base64.URLEncoding.DecodeString(encoded)
	}
	if err != nil {
		return nil, nil, dErrors.New(dErrors.CodeDecode, "payload is not valid base64url")
	}
	if len(raw) == 0 {
		return nil, nil, dErrors.New(dErrors.CodeDecode, "payload is empty")
	}

	if decoded, ok := parsePlain(raw); ok {
		return decoded, nil, nil
	}
	return nil, &EncryptedEnvelope{ciphertext: raw}, nil
}

// DecryptWith decrypts an envelope and parses the plaintext. A wrong or
// invalid key fails with a decryption_error; it never panics and never
// returns partial data. The key and plaintext are deliberately kept out of
// error messages.
func DecryptWith(envelope *EncryptedEnvelope, priv *rsa.PrivateKey) (*Decoded, error) {
	if envelope == nil || len(envelope.ciphertext) == 0 {
		return nil, dErrors.New(dErrors.CodeDecode, "no ciphertext to decrypt")
	}
	if priv == nil {
		return nil, dErrors.New(dErrors.CodeDecryption, "private key is required")
	}

	plaintext, err := rsa.DecryptPKCS1v15(nil, priv, envelope.ciphertext)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeDecryption, "decryption failed; check the private key")
	}

	decoded, ok := parsePlain(plaintext)
	if !ok {
		// Valid padding with a non-matching key is possible; the result is
		// garbage, which surfaces here as an unparseable payload.
		return nil, dErrors.New(dErrors.CodeDecryption, "decrypted payload is not a valid disclosure")
	}
	return decoded, nil
}

// parsePlain attempts to read bytes as the plain serialized form: a JSON
// object of string fields carrying the mandatory fingerprint key.
func parsePlain(raw []byte) (*Decoded, bool) {
	var fields map[string]string
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, false
	}
	fingerprint, ok := fields[FingerprintKey]
	if !ok || fingerprint == "" {
		return nil, false
	}
	delete(fields, FingerprintKey)
	return &Decoded{Fields: fields, Fingerprint: fingerprint}, true
}
