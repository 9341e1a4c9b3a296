package refinery

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/kyokomi/emoji/v2"
)

// EmojiSet is a read-only glyph -> canonical name table. The filter stage only
// asks whether a code point belongs to some glyph, so every rune of every glyph
// (ZWJ, skin-tone modifiers and variation selectors included) is admitted.
type EmojiSet struct {
	names map[string]string
	runes map[rune]struct{}
}

// EmojiLoader acquires an emoji set
type EmojiLoader func() (*EmojiSet, error)

// NewEmojiSet builds a set from a glyph -> name table
func NewEmojiSet(table map[string]string) (*EmojiSet, error) {
	if len(table) == 0 {
		return nil, fmt.Errorf("emoji table is empty")
	}

	set := &EmojiSet{
		names: make(map[string]string, len(table)),
		runes: make(map[rune]struct{}),
	}

	for glyph, name := range table {
		glyph = strings.TrimSpace(glyph)
		if glyph == "" {
			continue
		}
		set.names[glyph] = name
		for _, r := range glyph {
			set.runes[r] = struct{}{}
		}
	}

	if len(set.names) == 0 {
		return nil, fmt.Errorf("emoji table has no usable glyphs")
	}

	return set, nil
}

// Len returns the number of glyphs
func (s *EmojiSet) Len() int {
	return len(s.names)
}

// Name returns the canonical name of a glyph
func (s *EmojiSet) Name(glyph string) (string, bool) {
	name, ok := s.names[glyph]
	return name, ok
}

// Contains reports whether glyph is a known emoji
func (s *EmojiSet) Contains(glyph string) bool {
	_, ok := s.names[glyph]
	return ok
}

// ContainsRune reports whether r occurs in any known glyph
func (s *EmojiSet) ContainsRune(r rune) bool {
	_, ok := s.runes[r]
	return ok
}

var (
	sharedEmojiOnce sync.Once
	sharedEmojis    *EmojiSet
	sharedEmojiErr  error
)

// SharedEmojiSet returns the process-wide emoji set, loading it on first use.
// The result (including a load failure) is cached for the life of the process.
func SharedEmojiSet() (*EmojiSet, error) {
	sharedEmojiOnce.Do(func() {
		sharedEmojis, sharedEmojiErr = NewEmojiSet(bundledEmojiTable())
	})
	return sharedEmojis, sharedEmojiErr
}

// bundledEmojiTable flattens the emoji package's reverse code map into
// glyph -> canonical name. The canonical name is the alphabetically first alias.
func bundledEmojiTable() map[string]string {
	rev := emoji.RevCodeMap()
	table := make(map[string]string, len(rev))

	for glyph, aliases := range rev {
		if len(aliases) == 0 {
			continue
		}
		sorted := append([]string(nil), aliases...)
		sort.Strings(sorted)
		table[glyph] = strings.Trim(sorted[0], ":")
	}

	return table
}
