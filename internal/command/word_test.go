package command

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_matchesCaseInsensitively(t *testing.T) {
	for _, body := range []string{"name Sam C.", "NAME Sam C.", "  Name   Sam C. "} {
		w, rest, ok, err := Parse(body)
		require.NoError(t, err, body)
		require.True(t, ok, body)
		assert.Equal(t, WordName, w)
		assert.Equal(t, []string{"Sam", "C."}, rest)
	}
}

func TestParse_emptyBody(t *testing.T) {
	for _, body := range []string{"", "   ", "\n\t"} {
		_, _, ok, err := Parse(body)
		assert.NoError(t, err)
		assert.False(t, ok, "no token should not be an error")
	}
}

func TestParse_unrecognizedWord(t *testing.T) {
	_, _, ok, err := Parse("yo there")
	require.True(t, ok)
	var unrec *UnrecognizedError
	require.True(t, errors.As(err, &unrec))
	assert.Equal(t, "yo", unrec.Token)
}

func TestParse_allWords(t *testing.T) {
	for _, w := range All() {
		got, _, ok, err := Parse(string(w))
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, w, got)
	}
}

func TestUsage(t *testing.T) {
	assert.Equal(t, `Reply "name X", where X is your name`, WordName.Usage())
	assert.Equal(t, `Reply "stop"`, WordStop.Usage())
}

func TestHint(t *testing.T) {
	assert.Equal(t,
		`Reply "name X", where X is your name, to set your preferred name.`+"\n"+`Example: "name John S."`,
		WordName.Hint())
	assert.Equal(t, `Reply "h", to show a list of available commands.`, WordH.Hint())
}
