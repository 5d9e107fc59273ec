package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenCounter(t *testing.T) {
	counter, err := NewTokenCounter("gemini-2.5-flash")
	require.NoError(t, err)

	assert.Equal(t, 0, counter.CountTokens(""))
	assert.Positive(t, counter.CountTokens("Analyze the solar potential for the property at 1 Main St."))

	short := counter.CountTokens("solar")
	long := counter.CountTokens("solar panels on a south facing roof with no shading")
	assert.Greater(t, long, short)
}

func TestCountTokensSimple(t *testing.T) {
	assert.Equal(t, 0, CountTokensSimple(""))
	assert.Positive(t, CountTokensSimple("82"))
}

func TestNilCounterFallsBackToCharacterEstimate(t *testing.T) {
	var counter *TokenCounter
	assert.Equal(t, 2, counter.CountTokens("12345678"))
}
