package refinery

import (
	"strings"
	"unicode"

	"golang.org/x/net/html"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

// Padded placeholders emitted by the substitution stage
const (
	paddedURL   = " " + URLPlaceholder + " "
	paddedEmail = " " + EmailPlaceholder + " "
	paddedUser  = " " + UserPlaceholder + " "
)

var (
	removeTashkeel = runes.Remove(runes.In(tashkeel))
	removeTatweel  = runes.Remove(runes.Predicate(func(r rune) bool { return r == tatweel }))
)

// ProcessingNodes contains reusable text processing methods
// Each method does one specific transformation and is a no-op when its flag is off
type ProcessingNodes struct {
	config *RefineryConfig
	emojis *EmojiSet
}

// NewProcessingNodes creates a new ProcessingNodes with the given config.
// emojis may be nil when KeepEmojis is false.
func NewProcessingNodes(config *RefineryConfig, emojis *EmojiSet) *ProcessingNodes {
	return &ProcessingNodes{
		config: config,
		emojis: emojis,
	}
}

// UnescapeHTML resolves HTML character references. It runs regardless of flags.
func (p *ProcessingNodes) UnescapeHTML(text string) string {
	if !strings.Contains(text, "&") {
		return text
	}
	return html.UnescapeString(text)
}

// StripDiacritics removes Arabic short vowels, tanween, shadda and sukun
func (p *ProcessingNodes) StripDiacritics(text string) string {
	if !p.config.StripDiacritics {
		return text
	}
	out, _, err := transform.String(removeTashkeel, text)
	if err != nil {
		return text
	}
	return out
}

// StripElongation removes the tatweel (kashida) character
func (p *ProcessingNodes) StripElongation(text string) string {
	if !p.config.StripElongation {
		return text
	}
	out, _, err := transform.String(removeTatweel, text)
	if err != nil {
		return text
	}
	return out
}

// ReplaceURLsEmailsMentions substitutes URLs, then emails, then @-mentions with
// padded placeholder tokens. Every pattern is applied over the whole text in
// table order.
func (p *ProcessingNodes) ReplaceURLsEmailsMentions(text string) string {
	if !p.config.ReplaceURLsEmailsMentions {
		return text
	}

	text = replaceDomainURLs(text)
	for _, re := range urlPatterns {
		text = re.ReplaceAllLiteralString(text, paddedURL)
	}
	for _, re := range emailPatterns {
		text = re.ReplaceAllLiteralString(text, paddedEmail)
	}
	return userMentionPattern.ReplaceAllLiteralString(text, paddedUser)
}

// replaceDomainURLs applies urlDomainPattern, keeping the captured boundary
// character in the output.
func replaceDomainURLs(text string) string {
	matches := urlDomainPattern.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return text
	}

	var b strings.Builder
	b.Grow(len(text) + len(matches)*len(paddedURL))

	last := 0
	for _, m := range matches {
		end := m[1]
		if boundary := m[2*urlDomainBoundary]; boundary >= 0 {
			end = boundary
		}
		b.WriteString(text[last:m[0]])
		b.WriteString(paddedURL)
		last = end
	}
	b.WriteString(text[last:])

	return b.String()
}

// RemoveHTMLMarkup replaces line breaks and then any remaining tag with a space
func (p *ProcessingNodes) RemoveHTMLMarkup(text string) string {
	if !p.config.RemoveHTMLMarkup {
		return text
	}

	text = strings.ReplaceAll(text, htmlLineBreak, " ")
	return htmlMarkupTags.ReplaceAllLiteralString(text, " ")
}

// CollapseRepeatedChars shortens any run of 3 or more identical non-digit
// characters to exactly 2. Decimal digits of any script are left untouched.
func (p *ProcessingNodes) CollapseRepeatedChars(text string) string {
	if !p.config.CollapseRepeatedChars {
		return text
	}

	var b strings.Builder
	b.Grow(len(text))

	var prev rune
	run := 0
	for i, r := range text {
		if i > 0 && r == prev {
			run++
		} else {
			prev = r
			run = 1
		}
		if run > 2 && !unicode.IsDigit(r) {
			continue
		}
		b.WriteRune(r)
	}

	return b.String()
}

// InsertWhiteSpaces pads every symbol with spaces, restores the placeholders the
// padding just broke apart, then separates digit runs from adjacent Arabic
// letter runs.
func (p *ProcessingNodes) InsertWhiteSpaces(text string) string {
	if !p.config.InsertWhiteSpaces {
		return text
	}

	text = outOfSetChar.ReplaceAllString(text, " $1 ")

	// must run before anything else touches the padded brackets
	for _, repair := range placeholderRepairs {
		text = strings.ReplaceAll(text, repair.broken, repair.canonical)
	}

	text = digitsThenLetters.ReplaceAllString(text, " $1 $2 ")
	return lettersThenDigits.ReplaceAllString(text, " $1 $2 ")
}

// FilterAllowedChars replaces every character outside the allowed set with a
// space. When emojis are kept, code points of known emoji glyphs also pass.
func (p *ProcessingNodes) FilterAllowedChars(text string) string {
	keepEmojis := p.config.KeepEmojis && p.emojis != nil

	return strings.Map(func(r rune) rune {
		if isAllowedChar(r) {
			return r
		}
		if keepEmojis && p.emojis.ContainsRune(r) {
			return r
		}
		return ' '
	}, text)
}

// NormalizeWhitespace drops the emoji presentation selector and collapses all
// whitespace runs into single spaces, trimming both ends
func (p *ProcessingNodes) NormalizeWhitespace(text string) string {
	text = strings.ReplaceAll(text, emojiPresentationSelector, "")
	return strings.Join(strings.FieldsFunc(text, isSpace), " ")
}
