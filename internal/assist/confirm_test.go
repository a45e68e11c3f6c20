package assist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitSelections(t *testing.T) {
	assert.Equal(t, []string{"1", "2"}, splitSelections("1, 2"))
	assert.Equal(t, []string{"2b"}, splitSelections(" 2b "))
	assert.Equal(t, []string{"1", "x", "3"}, splitSelections("1,,x, 3,"))
	assert.Nil(t, splitSelections("  ,  "))
}

func TestParseDeferredToken(t *testing.T) {
	contactIdx, letterIdx, ok := parseDeferredToken("2b")
	require.True(t, ok)
	assert.Equal(t, 2, contactIdx)
	assert.Equal(t, 1, letterIdx)

	contactIdx, letterIdx, ok = parseDeferredToken("10a")
	require.True(t, ok)
	assert.Equal(t, 10, contactIdx)
	assert.Equal(t, 0, letterIdx)

	// "0a" has a valid shape; the range check rejects it later.
	contactIdx, _, ok = parseDeferredToken("0a")
	require.True(t, ok)
	assert.Equal(t, 0, contactIdx)
}

func TestParseDeferredToken_malformed(t *testing.T) {
	for _, token := range []string{"", "2", "b", "2B", "b2", "2bb", "2 b", "x2b", "-1a"} {
		_, _, ok := parseDeferredToken(token)
		assert.False(t, ok, "token %q should be rejected", token)
	}
}
