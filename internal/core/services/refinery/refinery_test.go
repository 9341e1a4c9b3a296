package refinery

import (
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	apperrors "github.com/alejandroruanova/arabic-text-normalizer/internal/pkg/errors"
)

func testEmojiLoader() (*EmojiSet, error) {
	return NewEmojiSet(map[string]string{
		"😀":  "grinning",
		"👍":  "+1",
		"❤️": "heart",
	})
}

func newTestRefinery(t testing.TB, custom map[string]interface{}) *RefineryV1Arabic {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r, err := newRefineryV1Arabic(custom, testEmojiLoader, logger)
	if err != nil {
		t.Fatalf("newRefineryV1Arabic() error = %v", err)
	}
	return r
}

func allFlagsOff() map[string]interface{} {
	return map[string]interface{}{
		"remove_html_markup":           false,
		"replace_urls_emails_mentions": false,
		"insert_white_spaces":          false,
		"strip_diacritics":             false,
		"strip_elongation":             false,
		"collapse_repeated_chars":      false,
		"keep_emojis":                  false,
	}
}

// TestRefineryV1Arabic_BasicFunctionality tests the default pipeline end to end
func TestRefineryV1Arabic_BasicFunctionality(t *testing.T) {
	refinery := newTestRefinery(t, nil)

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "Plain arabic is untouched",
			input:    "مرحبا بالعالم",
			expected: "مرحبا بالعالم",
		},
		{
			name:     "Diacritics stripped",
			input:    "م\u064Eر\u0652ح\u064Eب\u064Bا",
			expected: "مرحبا",
		},
		{
			name:     "Shadda and kasratan stripped",
			input:    "مح\u0651م\u064Dد",
			expected: "محمد",
		},
		{
			name:     "Tatweel stripped",
			input:    "مرحـــــبا",
			expected: "مرحبا",
		},
		{
			name:     "URL replaced",
			input:    "check http://example.com now",
			expected: "check [رابط] now",
		},
		{
			name:     "Bare www URL replaced",
			input:    "زوروا www.example.org اليوم",
			expected: "زوروا [رابط] اليوم",
		},
		{
			name:     "Domain glued to an Arabic word is not a URL",
			input:    "test.orgمرحبا و abc",
			expected: "test . orgمرحبا و abc",
		},
		{
			name:     "Domain glued to an Arabic word after Arabic text",
			input:    "موقع google.netجميل",
			expected: "موقع google . netجميل",
		},
		{
			name:     "Domain followed by Arabic punctuation is a URL",
			input:    "زوروا example.com، شكرا",
			expected: "زوروا [رابط] ، شكرا",
		},
		{
			name:     "Latin email is swallowed by the first URL pattern",
			input:    "راسلني على user@mail.com",
			expected: "راسلني على [رابط]",
		},
		{
			name:     "Arabic email replaced",
			input:    "راسلني على محمد@مثال.شبكة",
			expected: "راسلني على [بريد]",
		},
		{
			name:     "Email without domain replaced by the catch-all pattern",
			input:    "contact user@host please",
			expected: "contact [بريد] please",
		},
		{
			name:     "Latin mention replaced",
			input:    "hello @user123 bye",
			expected: "hello [مستخدم] bye",
		},
		{
			name:     "Arabic mention replaced",
			input:    "شكرا @أحمد",
			expected: "شكرا [مستخدم]",
		},
		{
			name:     "HTML line breaks and tags removed",
			input:    "<p>مرحبا<br />بالعالم</p>",
			expected: "مرحبا بالعالم",
		},
		{
			name:     "Ampersand is outside the alphabet set",
			input:    "<b>A &amp; B</b>",
			expected: "A B",
		},
		{
			name:     "Letters repeated collapse to two",
			input:    "aaaaa",
			expected: "aa",
		},
		{
			name:     "Digits are never collapsed",
			input:    "11111",
			expected: "11111",
		},
		{
			name:     "Arabic-Indic digits are never collapsed",
			input:    "١١١١١",
			expected: "١١١١١",
		},
		{
			name:     "Arabic letter repetition collapsed",
			input:    "رائعععععع",
			expected: "رائعع",
		},
		{
			name:     "Repeated punctuation collapsed then padded",
			input:    "رائع!!!!",
			expected: "رائع ! !",
		},
		{
			name:     "Arabic punctuation padded",
			input:    "مرحبا،كيف الحال؟",
			expected: "مرحبا ، كيف الحال ؟",
		},
		{
			name:     "Digits then letters separated",
			input:    "2020عام",
			expected: "2020 عام",
		},
		{
			name:     "Letters then digits separated",
			input:    "عام2020",
			expected: "عام 2020",
		},
		{
			name:     "Latin letters and digits stay joined",
			input:    "abc123",
			expected: "abc123",
		},
		{
			name:     "Emoji kept and padded",
			input:    "مرحبا😀",
			expected: "مرحبا 😀",
		},
		{
			name:     "Presentation selector dropped",
			input:    "أحبك ❤️",
			expected: "أحبك ❤",
		},
		{
			name:     "Whitespace collapsed and trimmed",
			input:    "  مرحبا\t\n   بالعالم  ",
			expected: "مرحبا بالعالم",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := refinery.Process(tt.input)
			if result != tt.expected {
				t.Errorf("Process(%q) = %q, expected %q", tt.input, result, tt.expected)
			}
		})
	}
}

// TestRefineryV1Arabic_EmptyAndNullHandling tests edge cases
func TestRefineryV1Arabic_EmptyAndNullHandling(t *testing.T) {
	refinery := newTestRefinery(t, nil)

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "Empty string",
			input:    "",
			expected: "",
		},
		{
			name:     "Only whitespace",
			input:    " \t\n\u00a0\u3000 ",
			expected: "",
		},
		{
			name:     "Only disallowed characters",
			input:    "жзи ♪ \u200b",
			expected: "",
		},
		{
			name:     "Only markup",
			input:    "<div><br /></div>",
			expected: "",
		},
		{
			name:     "Invalid UTF-8 replaced",
			input:    "مرحبا\xff",
			expected: "مرحبا",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := refinery.Process(tt.input)
			if result != tt.expected {
				t.Errorf("Process(%q) = %q, expected %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestRefineryV1Arabic_KeepEmojisDisabled(t *testing.T) {
	refinery := newTestRefinery(t, map[string]interface{}{"keep_emojis": false})

	result := refinery.Process("مرحبا 😀 👍")
	if result != "مرحبا" {
		t.Errorf("Process() = %q, expected %q", result, "مرحبا")
	}
	if strings.Contains(result, "😀") {
		t.Errorf("emoji should have been filtered out: %q", result)
	}
}

func TestRefineryV1Arabic_AllFlagsOff(t *testing.T) {
	refinery := newTestRefinery(t, allFlagsOff())

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "Only entities are resolved",
			input:    "hello &lt;b&gt; world",
			expected: "hello <b> world",
		},
		{
			name:     "URLs, mentions and repetitions survive",
			input:    "see http://x.com @user soooo",
			expected: "see http://x.com @user soooo",
		},
		{
			name:     "Diacritics and tatweel survive",
			input:    "م\u064Eرحـبا",
			expected: "م\u064Eرحـبا",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := refinery.Process(tt.input)
			if result != tt.expected {
				t.Errorf("Process(%q) = %q, expected %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestRefineryV1Arabic_IndividualFlags(t *testing.T) {
	tests := []struct {
		name     string
		config   map[string]interface{}
		input    string
		expected string
	}{
		{
			name:     "Kept diacritics are padded like symbols",
			config:   map[string]interface{}{"strip_diacritics": false},
			input:    "م\u064Eرحبا",
			expected: "م \u064E رحبا",
		},
		{
			name:     "Legacy tashkeel key",
			config:   map[string]interface{}{"strip_tashkeel": false, "insert_white_spaces": false},
			input:    "م\u064Eرحبا",
			expected: "م\u064Eرحبا",
		},
		{
			name:     "Kept tatweel is padded like a symbol",
			config:   map[string]interface{}{"strip_elongation": false},
			input:    "مرحـبا",
			expected: "مرح ـ با",
		},
		{
			name:     "Legacy tatweel key",
			config:   map[string]interface{}{"strip_tatweel": false, "insert_white_spaces": false},
			input:    "مرحـبا",
			expected: "مرحـبا",
		},
		{
			name:     "Repetition kept",
			config:   map[string]interface{}{"remove_non_digit_repetition": false},
			input:    "رائعععع",
			expected: "رائعععع",
		},
		{
			name:     "Whitespace insertion disabled",
			config:   map[string]interface{}{"insert_white_spaces": false},
			input:    "مرحبا،كيف عام2020",
			expected: "مرحبا،كيف عام2020",
		},
		{
			name:     "Markup kept",
			config:   map[string]interface{}{"remove_html_markup": false, "insert_white_spaces": false},
			input:    "<b>مرحبا</b>",
			expected: "<b>مرحبا</b>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			refinery := newTestRefinery(t, tt.config)
			result := refinery.Process(tt.input)
			if result != tt.expected {
				t.Errorf("Process(%q) = %q, expected %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestRefineryV1Arabic_StableFixedPoint(t *testing.T) {
	refinery := newTestRefinery(t, nil)

	inputs := []string{
		"مرحبا بالعالم",
		"م\u064Eر\u0652ح\u064Eب\u064Bا يا صديقي!!!",
		"رائع!!!! 😀😀😀😀",
		"السعر 3.14 دينار، عام2020",
		"<b>A &amp; B</b>",
		"«اقتباس» — (نص) [قوسين]",
		"check http://example.com now",
		"hello @user123 bye",
		"contact user@host please",
	}

	for _, input := range inputs {
		once := refinery.Process(input)
		twice := refinery.Process(once)
		if once != twice {
			t.Errorf("Process not stable for %q: first %q, second %q", input, once, twice)
		}
	}
}

func TestRefineryV1Arabic_PlaceholdersAreStable(t *testing.T) {
	refinery := newTestRefinery(t, nil)

	for _, placeholder := range []string{URLPlaceholder, EmailPlaceholder, UserPlaceholder} {
		if result := refinery.Process(placeholder); result != placeholder {
			t.Errorf("Process(%q) = %q, expected the placeholder unchanged", placeholder, result)
		}
	}
}

func TestRefineryV1Arabic_OutputInvariants(t *testing.T) {
	inputs := []string{
		"",
		"مرحبا 😀 ♠ © ® ™ жзи",
		"\x00\x01\x1c\x1f \u200b\u200d\ufeff",
		"ٱلْحَمْدُ لِلَّٰهِ رَبِّ ٱلْعَٰلَمِينَ",
		"<script>alert('x')</script> &nbsp;&copy;&#x1F600;",
		"tab\tseparated\u2003em\u00a0space",
		"https://t.co/abc?x=1&y=2 ftp://files.example.net/a.zip",
		"@@@@ ### $$$$ %%%% ^^^^",
		"١٢٣٤٥٦٧٨٩٠ ۱۲۳ 12345",
		"👨‍👩‍👧 👍🏽 ❤️",
		"\xff\xfe invalid bytes",
	}

	configs := map[string]map[string]interface{}{
		"defaults":  nil,
		"no emojis": {"keep_emojis": false},
		"all off":   allFlagsOff(),
	}

	for name, config := range configs {
		refinery := newTestRefinery(t, config)
		emojis, _ := testEmojiLoader()

		for _, input := range inputs {
			result := refinery.Process(input)

			if strings.Contains(result, "  ") {
				t.Errorf("[%s] Process(%q) = %q contains a double space", name, input, result)
			}
			if result != strings.TrimSpace(result) {
				t.Errorf("[%s] Process(%q) = %q has surrounding space", name, input, result)
			}
			for _, r := range result {
				if isAllowedChar(r) {
					continue
				}
				if refinery.Config().KeepEmojis && emojis.ContainsRune(r) {
					continue
				}
				t.Errorf("[%s] Process(%q) = %q contains disallowed rune %U", name, input, result, r)
			}
		}
	}
}

func TestRefineryV1Arabic_LanguageCoercion(t *testing.T) {
	tests := []struct {
		name         string
		language     interface{}
		wantWarnings int
	}{
		{name: "Supported language", language: "ar", wantWarnings: 0},
		{name: "Case and spacing variants are coerced", language: " AR ", wantWarnings: 1},
		{name: "Upper case is coerced", language: "AR", wantWarnings: 1},
		{name: "Non-string language is coerced", language: 5, wantWarnings: 1},
		{name: "Nil language is coerced", language: nil, wantWarnings: 1},
		{name: "Unsupported language", language: "en", wantWarnings: 1},
		{name: "Empty language", language: "", wantWarnings: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			refinery := newTestRefinery(t, map[string]interface{}{"language": tt.language})

			if refinery.Config().Language != SupportedLanguage {
				t.Errorf("Language = %q, expected %q", refinery.Config().Language, SupportedLanguage)
			}
			warnings := refinery.Warnings()
			if len(warnings) != tt.wantWarnings {
				t.Fatalf("got %d warnings, expected %d", len(warnings), tt.wantWarnings)
			}
			for _, w := range warnings {
				if !apperrors.HasCode(w, apperrors.ErrCodeConfigurationWarning) {
					t.Errorf("warning %v is not a configuration warning", w)
				}
			}
		})
	}
}

func TestRefineryV1Arabic_MissingEmojiTable(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	failing := func() (*EmojiSet, error) {
		return nil, errors.New("emoji data not bundled")
	}

	_, err := newRefineryV1Arabic(nil, failing, logger)
	if err == nil {
		t.Fatal("expected an error when the emoji table cannot be loaded")
	}
	if !apperrors.HasCode(err, apperrors.ErrCodeMissingDependency) {
		t.Errorf("error = %v, expected %s", err, apperrors.ErrCodeMissingDependency)
	}
	if apperrors.ExitCodeOf(err) != apperrors.ExitUnavailable {
		t.Errorf("exit code = %d, expected %d", apperrors.ExitCodeOf(err), apperrors.ExitUnavailable)
	}

	empty := func() (*EmojiSet, error) { return nil, nil }
	if _, err := newRefineryV1Arabic(nil, empty, logger); err == nil {
		t.Error("expected an error when the loader returns no set")
	}

	// the loader is never consulted when emojis are not kept
	r, err := newRefineryV1Arabic(map[string]interface{}{"keep_emojis": false}, failing, logger)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := r.Process("مرحبا 😀"); got != "مرحبا" {
		t.Errorf("Process() = %q, expected %q", got, "مرحبا")
	}
}

func TestApplyCustomConfig_CanonicalKeyWins(t *testing.T) {
	config := DefaultRefineryConfig()
	applyCustomConfig(&config, map[string]interface{}{
		"strip_diacritics": true,
		"strip_tashkeel":   false,
		"keep_emojis":      "false", // wrong type is ignored
	})

	if !config.StripDiacritics {
		t.Error("strip_diacritics should take precedence over strip_tashkeel")
	}
	if !config.KeepEmojis {
		t.Error("non-bool value should be ignored")
	}
}

func TestProcessingNodes_UnescapeHTML(t *testing.T) {
	nodes := NewProcessingNodes(&RefineryConfig{}, nil)

	tests := map[string]string{
		"<b>A &amp; B</b>":  "<b>A & B</b>",
		"&lt;p&gt;":         "<p>",
		"&#1605;&#x0631;":   "مر",
		"no entities here":  "no entities here",
		"&zzz;":             "&zzz;",
	}

	for input, expected := range tests {
		if result := nodes.UnescapeHTML(input); result != expected {
			t.Errorf("UnescapeHTML(%q) = %q, expected %q", input, result, expected)
		}
	}
}

func TestProcessingNodes_CollapseRepeatedChars(t *testing.T) {
	nodes := NewProcessingNodes(&RefineryConfig{CollapseRepeatedChars: true}, nil)

	tests := map[string]string{
		"":          "",
		"aa":        "aa",
		"aaa":       "aa",
		"aaabbbccc": "aabbcc",
		"ab ab ab":  "ab ab ab",
		"1111aaaa":  "1111aa",
		"\n\n\n\n":  "\n\n",
		"😀😀😀😀":     "😀😀",
	}

	for input, expected := range tests {
		if result := nodes.CollapseRepeatedChars(input); result != expected {
			t.Errorf("CollapseRepeatedChars(%q) = %q, expected %q", input, result, expected)
		}
	}
}

func TestProcessingNodes_ReplacementOrder(t *testing.T) {
	nodes := NewProcessingNodes(&RefineryConfig{ReplaceURLsEmailsMentions: true}, nil)

	result := nodes.ReplaceURLsEmailsMentions("visit www")
	if !strings.Contains(result, URLPlaceholder) {
		t.Errorf("incomplete www fragment should still be replaced, got %q", result)
	}

	result = nodes.ReplaceURLsEmailsMentions("site.orgمرحبا")
	if strings.Contains(result, URLPlaceholder) {
		t.Errorf("domain without a word boundary should be kept, got %q", result)
	}

	result = nodes.ReplaceURLsEmailsMentions("site.com/page.net")
	if strings.Count(result, URLPlaceholder) != 1 {
		t.Errorf("path characters should extend the first match, got %q", result)
	}

	result = nodes.ReplaceURLsEmailsMentions("site.com news.net")
	if strings.Count(result, URLPlaceholder) != 2 || !strings.Contains(result, "] ") {
		t.Errorf("boundary character should be kept between URLs, got %q", result)
	}

	result = nodes.ReplaceURLsEmailsMentions("a://b")
	if strings.Contains(result, "://") {
		t.Errorf("scheme separator should be replaced, got %q", result)
	}
}

func TestRefineryV1Arabic_ConcurrentUse(t *testing.T) {
	refinery := newTestRefinery(t, nil)
	input := "مَرْحَبًا @user http://example.com رائععععع 2020عام 😀"
	expected := refinery.Process(input)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				if got := refinery.Process(input); got != expected {
					t.Errorf("concurrent Process() = %q, expected %q", got, expected)
					return
				}
			}
		}()
	}
	wg.Wait()
}

// TestRefineryRegistry tests the registry functionality
func TestRefineryRegistry(t *testing.T) {
	available := ListAvailable()
	if len(available) == 0 {
		t.Fatal("ListAvailable returned no refineries")
	}
	if available[0] != "v1" {
		t.Errorf("ListAvailable()[0] = %q, expected v1", available[0])
	}

	for _, alias := range []string{"v1", "arabic", "ar", "arabert"} {
		r, err := Create(alias, map[string]interface{}{"keep_emojis": false})
		if err != nil {
			t.Fatalf("Create(%q) error = %v", alias, err)
		}
		if r.GetVersion() != "v1" {
			t.Errorf("Create(%q).GetVersion() = %q, expected v1", alias, r.GetVersion())
		}
	}

	if _, err := Create("spanish", nil); err == nil {
		t.Error("expected an error for an unknown refinery")
	}

	metadata := ListAvailableWithMetadata()
	v1Meta, exists := metadata["v1"]
	if !exists {
		t.Fatal("v1 metadata not found")
	}
	if v1Meta["name"] != "Arabic Text Normalization" {
		t.Errorf("v1 name = %q, expected 'Arabic Text Normalization'", v1Meta["name"])
	}
	if steps, ok := v1Meta["steps"].([]string); !ok || len(steps) != 9 {
		t.Errorf("v1 steps = %v, expected 9 steps", v1Meta["steps"])
	}
}

// BenchmarkRefineryV1Arabic_SingleText benchmarks single text processing
func BenchmarkRefineryV1Arabic_SingleText(b *testing.B) {
	refinery := newTestRefinery(b, nil)
	input := "مَرْحَبًا بِكُم في موقعنا http://example.com تواصلوا مع @support رائععععع 2024عام 😀"

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = refinery.Process(input)
	}
}

// BenchmarkRefineryPipeline_Batch benchmarks batch processing
func BenchmarkRefineryPipeline_Batch(b *testing.B) {
	pipeline, err := NewPipeline("v1", nil)
	if err != nil {
		b.Fatal(err)
	}

	inputs := make([]string, 100)
	for i := 0; i < 100; i++ {
		inputs[i] = "مَرْحَبًا بِكُم في موقعنا http://example.com تواصلوا مع @support"
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = pipeline.CleanBatch(inputs)
	}
}
