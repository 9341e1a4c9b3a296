package refinery

import (
	"regexp"
	"unicode"

	"golang.org/x/text/unicode/rangetable"
)

// PatternTableVersion identifies the pattern set below. Bump it whenever a
// pattern changes so cached normalizations are not reused across versions.
const PatternTableVersion = "2021.2"

// Placeholder tokens substituted for detected spans
const (
	URLPlaceholder   = "[رابط]"
	EmailPlaceholder = "[بريد]"
	UserPlaceholder  = "[مستخدم]"
)

// Unicode-aware character classes. Go's \s, \w and \d are ASCII-only, so the
// table spells out the wider classes the patterns were written against.
const (
	spaceClass = `\t\n\x0B\f\r\x1C-\x1F\x{85}\p{Z}`
	wordClass  = `\p{L}\p{N}_`
	digitClass = `\p{Nd}`

	// letters separated from adjacent digits
	arabicLetterClass = `\x{0621}-\x{063A}\x{0641}-\x{064A}\x{066A}-\x{066C}\x{0654}-\x{0655}`
)

// urlDomainPattern is the first URL pattern. Its TLD must end on a Unicode
// word boundary, so "test.orgمرحبا" is not a URL. RE2 has no lookahead: the
// boundary is either the path group, the end of the text, or one captured
// non-word character that stays outside the replaced span.
var urlDomainPattern = regexp.MustCompile(`(http(s)?:\/\/.)?(www\.)?[-a-zA-Z0-9@:%._\+~#=]{2,256}\.[a-z]{2,6}` +
	`(?:([-@:%\+.~#?&/=][-a-zA-Z0-9@:%_\+.~#?&//=]*)|$|([^` + wordClass + `]))`)

// urlDomainBoundary is the submatch holding the boundary character
const urlDomainBoundary = 5

// urlPatterns run after urlDomainPattern, in order; every pattern runs over
// the whole text. Overlap between entries is intentional and must be kept:
// each entry catches fragments the previous ones leave behind (e.g. a bare "www").
var urlPatterns = []*regexp.Regexp{
	regexp.MustCompile(`@(https?|ftp)://(-\.)?([^` + spaceClass + `/?\.#-]+\.?)+(/[^` + spaceClass + `]*)?$@iS`),
	regexp.MustCompile(`http[s]?://[a-zA-Z0-9_\-./~\?=%&]+`),
	regexp.MustCompile(`www[a-zA-Z0-9_\-?=%&/.~]+`),
	regexp.MustCompile(`[a-zA-Z]+\.com`),
	regexp.MustCompile(`http[^` + spaceClass + `]*`),
	regexp.MustCompile(`www[^` + spaceClass + `]*`),
	regexp.MustCompile(`://`),
}

var emailPatterns = []*regexp.Regexp{
	regexp.MustCompile(`[` + wordClass + `-]+@([` + wordClass + `-]+\.)+[` + wordClass + `-]+`),
	regexp.MustCompile(`[^` + spaceClass + `]+@[^` + spaceClass + `]+`),
}

var userMentionPattern = regexp.MustCompile(`@[` + wordClass + `]+`)

const htmlLineBreak = "<br />"

var htmlMarkupTags = regexp.MustCompile(`</?[^>]+>`)

// outOfSetChar matches a single character that gets padded with spaces
var outOfSetChar = regexp.MustCompile(`([^0-9\x{0621}-\x{063A}\x{0641}-\x{064A}\x{0660}-\x{0669}a-zA-Z ])`)

var (
	digitsThenLetters = regexp.MustCompile(`(` + digitClass + `+)([` + arabicLetterClass + `]+)`)
	lettersThenDigits = regexp.MustCompile(`([` + arabicLetterClass + `]+)(` + digitClass + `+)`)
)

// placeholderRepairs undo the padding outOfSetChar applies to the brackets
var placeholderRepairs = []struct{ broken, canonical string }{
	{"[ رابط ]", URLPlaceholder},
	{"[ بريد ]", EmailPlaceholder},
	{"[ مستخدم ]", UserPlaceholder},
}

// Marks removed by the diacritics and elongation stages: fathatan, dammatan,
// kasratan, fatha, damma, kasra, shadda, sukun; and the tatweel.
var tashkeel = rangetable.New(0x064B, 0x064C, 0x064D, 0x064E, 0x064F, 0x0650, 0x0651, 0x0652)

const tatweel = '\u0640'

// emojiPresentationSelector is dropped during final whitespace normalization
const emojiPresentationSelector = "\uFE0F"

// allowedChars is the inclusive set of characters that survive filtering.
var allowedChars = rangetable.Merge(
	&unicode.RangeTable{
		R16: []unicode.Range16{
			{Lo: '0', Hi: '9', Stride: 1},
			{Lo: 'A', Hi: 'Z', Stride: 1},
			{Lo: 'a', Hi: 'z', Stride: 1},
			{Lo: 0x0621, Hi: 0x063A, Stride: 1},
			{Lo: 0x0640, Hi: 0x066C, Stride: 1},
			{Lo: 0x0671, Hi: 0x0674, Stride: 1},
		},
	},
	rangetable.New([]rune("[]!\"#$%'()*+,.:;-<=·>?@\\^_`{|}~—٪’،؟“؛”»«–…‘/\u0B4D\u06DA")...),
)

// isSpace reports the whitespace set used by the patterns above. It is
// wider than unicode.IsSpace: it also covers the ASCII file/group/record/unit
// separators.
func isSpace(r rune) bool {
	switch {
	case r >= '\t' && r <= '\r', r >= 0x1C && r <= 0x1F, r == 0x85:
		return true
	}
	return unicode.In(r, unicode.Z)
}

// isAllowedChar reports membership in the base allowed set
func isAllowedChar(r rune) bool {
	return isSpace(r) || unicode.Is(allowedChars, r)
}
