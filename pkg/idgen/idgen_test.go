package idgen

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateLengthAndAlphabet(t *testing.T) {
	id, err := Generate(12)
	require.NoError(t, err)
	require.Len(t, id, 12)
	for _, r := range id {
		require.True(t, strings.ContainsRune(Alphabet, r), "unexpected rune %q", r)
	}
}

func TestGenerateRejectsNonPositiveLength(t *testing.T) {
	_, err := Generate(0)
	require.Error(t, err)
	_, err = Generate(-3)
	require.Error(t, err)
}

func TestGenerateIsNotConstant(t *testing.T) {
	seen := map[string]struct{}{}
	for i := 0; i < 200; i++ {
		id, err := Generate(10)
		require.NoError(t, err)
		seen[id] = struct{}{}
	}
	require.Greater(t, len(seen), 195)
}
