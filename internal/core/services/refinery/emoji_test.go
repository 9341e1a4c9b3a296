package refinery

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEmojiSet(t *testing.T) {
	set, err := NewEmojiSet(map[string]string{
		"😀":   "grinning",
		"👍🏽": "+1_medium_skin_tone",
		"  ":  "blank",
	})
	require.NoError(t, err)

	assert.Equal(t, 2, set.Len(), "blank glyphs are skipped")
	assert.True(t, set.Contains("😀"))
	assert.False(t, set.Contains("👍"))
	assert.True(t, set.ContainsRune('👍'), "runes of multi code point glyphs are members")
	assert.True(t, set.ContainsRune(0x1F3FD))
	assert.False(t, set.ContainsRune('a'))

	name, ok := set.Name("😀")
	assert.True(t, ok)
	assert.Equal(t, "grinning", name)
}

func TestNewEmojiSet_Empty(t *testing.T) {
	_, err := NewEmojiSet(nil)
	assert.Error(t, err)

	_, err = NewEmojiSet(map[string]string{" ": "space"})
	assert.Error(t, err)
}

func TestSharedEmojiSet(t *testing.T) {
	set, err := SharedEmojiSet()
	require.NoError(t, err)

	again, err := SharedEmojiSet()
	require.NoError(t, err)
	assert.Same(t, set, again, "the table is loaded once per process")

	assert.Greater(t, set.Len(), 500)
	assert.True(t, set.Contains("😀"))
	assert.True(t, set.ContainsRune('❤'))
	assert.False(t, set.ContainsRune('م'))
}

func TestBundledEmojiTable_CanonicalNames(t *testing.T) {
	table := bundledEmojiTable()
	require.NotEmpty(t, table)

	for glyph, name := range table {
		assert.NotEmpty(t, glyph)
		assert.NotContains(t, name, ":")
	}
}
