package ingest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitText_SlidingWindow(t *testing.T) {
	text := strings.Repeat("a", 1200) + strings.Repeat("b", 1000)

	chunks := SplitText(text, 1200, 200)
	require.Len(t, chunks, 2)
	assert.Len(t, []rune(chunks[0]), 1200)
	assert.Equal(t, strings.Repeat("a", 200)+strings.Repeat("b", 1000), chunks[1])
}

func TestSplitText_CountsRunes(t *testing.T) {
	chunks := SplitText("héllo wörld", 5, 1)
	assert.Equal(t, []string{"héllo", "o wör", "rld"}, chunks)
}

func TestSplitText_ShortAndBlank(t *testing.T) {
	assert.Equal(t, []string{"short"}, SplitText("short", 1200, 200))
	assert.Empty(t, SplitText("", 1200, 200))
	assert.Empty(t, SplitText("   \n\t ", 1200, 200))
}

func TestSplitText_OverlapClamped(t *testing.T) {
	chunks := SplitText("abcdefgh", 4, 10)
	assert.Equal(t, []string{"abcd", "cdef", "efgh"}, chunks)
}
