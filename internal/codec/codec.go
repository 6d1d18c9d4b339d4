// Package codec signs task packages into integrity-checked opaque payloads
// and opens them again, rejecting anything tampered with or malformed.
//
// Payloads are compact HS256 tokens; the structured data rides as a single
// claim. The signing key is derived from the configured secret with HKDF so
// the raw secret never signs anything directly.
package codec

import (
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/hkdf"
)

// payloadClaim is the claim name carrying the signed structured data.
const payloadClaim = "pkg"

// signingSalt namespaces the derived key so the same secret used elsewhere
// (e.g. for session tokens) cannot forge task packages.
const signingSalt = "qdispatch.package.v1"

// ErrInvalidPayload is returned by Open for any payload that does not verify:
// a bad signature, truncation, or garbage input. Callers must treat it as a
// hard error, never as "result absent".
var ErrInvalidPayload = errors.New("invalid signed payload")

// Signer signs and opens payloads with a key derived from a shared secret.
// All processes sharing a broker must be constructed with the same secret.
type Signer struct {
	key []byte
}

// New derives the signing key from secret and returns a ready Signer.
func New(secret string) (*Signer, error) {
	kdf := hkdf.New(sha256.New, []byte(secret), []byte(signingSalt), nil)
	key := make([]byte, 32)
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("failed to derive signing key: %w", err)
	}
	return &Signer{key: key}, nil
}

// Sign serializes v and wraps it in a signed payload.
func (s *Signer) Sign(v any) ([]byte, error) {
	// Round-trip through JSON here so the claim holds plain maps/slices;
	// jwt would do the same during SignedString, this keeps errors local.
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize payload: %w", err)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		payloadClaim: json.RawMessage(raw),
	})
	signed, err := token.SignedString(s.key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign payload: %w", err)
	}
	return []byte(signed), nil
}

// Open verifies data and deserializes the carried structure into v, which
// must be a pointer. Any verification or format failure is reported as
// ErrInvalidPayload.
func (s *Signer) Open(data []byte, v any) error {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(string(data), claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return s.key, nil
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}

	inner, ok := claims[payloadClaim]
	if !ok {
		return fmt.Errorf("%w: missing payload claim", ErrInvalidPayload)
	}
	raw, err := json.Marshal(inner)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}
	return nil
}
