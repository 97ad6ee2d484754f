package core

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

// PKCE parameters per RFC 7636. The verifier is the secret held by this
// server for the duration of one authorization round trip; only the derived
// challenge travels to the provider's authorization endpoint.

const (
	// verifierLength is at the top of the RFC 7636 range [43,128].
	verifierLength = 43 + 85

	// verifierCharset is the unreserved URI character set (RFC 3986 §2.3).
	verifierCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-._~"

	// ChallengeMethodS256 is the only challenge method this server emits.
	ChallengeMethodS256 = "S256"
)

// PKCEParams pairs a code verifier with its derived challenge.
type PKCEParams struct {
	CodeVerifier        string
	CodeChallenge       string
	CodeChallengeMethod string
}

// GenerateCodeVerifier produces a 128-character verifier drawn uniformly
// from the unreserved charset using crypto/rand. Entropy-source failure is
// the only error and callers should treat it as fatal.
func GenerateCodeVerifier() (string, error) {
	// Reject bytes at or above the largest multiple of the charset size
	// below 256 so the modulo draw stays uniform.
	const limit = 256 - 256%len(verifierCharset)

	out := make([]byte, 0, verifierLength)
	buf := make([]byte, verifierLength)
	for len(out) < verifierLength {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("read random bytes: %w", err)
		}
		for _, b := range buf {
			if int(b) >= limit {
				continue
			}
			out = append(out, verifierCharset[int(b)%len(verifierCharset)])
			if len(out) == verifierLength {
				break
			}
		}
	}
	return string(out), nil
}

// CodeChallengeS256 derives the S256 challenge for a verifier:
// base64url(SHA-256(verifier)) without padding. Deterministic; the provider
// recomputes the same transform at token-exchange time.
func CodeChallengeS256(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// GeneratePKCEParams creates a fresh verifier/challenge pair. No side effects.
func GeneratePKCEParams() (PKCEParams, error) {
	verifier, err := GenerateCodeVerifier()
	if err != nil {
		return PKCEParams{}, fmt.Errorf("generate code verifier: %w", err)
	}
	return PKCEParams{
		CodeVerifier:        verifier,
		CodeChallenge:       CodeChallengeS256(verifier),
		CodeChallengeMethod: ChallengeMethodS256,
	}, nil
}

// GenerateState creates the opaque anti-forgery state value that keys the
// stored verifier for one authorization round trip.
func GenerateState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
