package core

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateCodeVerifier(t *testing.T) {
	verifier, err := GenerateCodeVerifier()
	require.NoError(t, err)

	assert.Len(t, verifier, 128)
	assert.GreaterOrEqual(t, len(verifier), 43)
	assert.LessOrEqual(t, len(verifier), 128)
	for _, c := range verifier {
		assert.Contains(t, verifierCharset, string(c))
	}
}

func TestGenerateCodeVerifier_UniformDistribution(t *testing.T) {
	// A biased modulo draw over the 66-character charset makes the low
	// indices appear 4/3 as often as the high ones. Sample enough
	// characters that the observed min/max frequency ratio separates
	// uniform (1.0) from biased (0.75) with a wide margin.
	counts := make(map[byte]int, len(verifierCharset))
	const samples = 2000
	for i := 0; i < samples; i++ {
		verifier, err := GenerateCodeVerifier()
		require.NoError(t, err)
		for j := 0; j < len(verifier); j++ {
			counts[verifier[j]]++
		}
	}

	require.Len(t, counts, len(verifierCharset))

	total := samples * 128
	expected := float64(total) / float64(len(verifierCharset))
	for c, n := range counts {
		assert.InDelta(t, expected, float64(n), expected*0.10,
			"character %q drawn %d times, expected ~%.0f", c, n, expected)
	}
}

func TestGenerateCodeVerifier_Unique(t *testing.T) {
	a, err := GenerateCodeVerifier()
	require.NoError(t, err)
	b, err := GenerateCodeVerifier()
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestCodeChallengeS256_RFCVector(t *testing.T) {
	// RFC 7636 Appendix B.
	verifier := "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"
	want := "E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM"

	assert.Equal(t, want, CodeChallengeS256(verifier))
}

func TestCodeChallengeS256_Deterministic(t *testing.T) {
	verifier, err := GenerateCodeVerifier()
	require.NoError(t, err)

	first := CodeChallengeS256(verifier)
	second := CodeChallengeS256(verifier)

	assert.Equal(t, first, second)
	assert.False(t, strings.ContainsAny(first, "+/="), "challenge must be unpadded base64url: %s", first)
}

func TestGeneratePKCEParams(t *testing.T) {
	params, err := GeneratePKCEParams()
	require.NoError(t, err)

	assert.Len(t, params.CodeVerifier, 128)
	assert.Equal(t, ChallengeMethodS256, params.CodeChallengeMethod)
	assert.Equal(t, CodeChallengeS256(params.CodeVerifier), params.CodeChallenge)
	assert.NotEqual(t, params.CodeVerifier, params.CodeChallenge)
}

func TestGenerateState(t *testing.T) {
	a, err := GenerateState()
	require.NoError(t, err)
	b, err := GenerateState()
	require.NoError(t, err)

	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
	assert.False(t, strings.ContainsAny(a, "+/="))
}
