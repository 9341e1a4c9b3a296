package refinery

import (
	"fmt"
	"log/slog"

	apperrors "github.com/alejandroruanova/arabic-text-normalizer/internal/pkg/errors"
)

// RefineryV1Arabic implements Version 1 Refinery: normalization of noisy Arabic
// social-media text ahead of a language model.
//
// Stages, in a fixed order:
// - HTML entity unescape (always)
// - tashkeel and tatweel stripping
// - URL, email and mention placeholders
// - HTML markup removal
// - repeated character collapse
// - whitespace insertion around symbols and digit/letter boundaries
// - character set filtering, optionally keeping emojis
// - whitespace normalization (always)
type RefineryV1Arabic struct {
	config   *RefineryConfig
	nodes    *ProcessingNodes
	pipeline []ProcessingStep
	warnings []error
}

// NewRefineryV1Arabic creates a new V1 refinery instance. It fails only when
// emoji preservation is requested and the emoji table cannot be loaded.
func NewRefineryV1Arabic(customConfig map[string]interface{}) (*RefineryV1Arabic, error) {
	return newRefineryV1Arabic(customConfig, SharedEmojiSet, slog.Default())
}

func newRefineryV1Arabic(customConfig map[string]interface{}, loadEmojis EmojiLoader, logger *slog.Logger) (*RefineryV1Arabic, error) {
	if logger == nil {
		logger = slog.Default()
	}

	config := DefaultRefineryConfig()

	// Apply custom config overrides if provided
	if customConfig != nil {
		applyCustomConfig(&config, customConfig)
	}

	var warnings []error
	if warning := normalizeLanguage(&config); warning != nil {
		logger.Warn("unsupported language, falling back to arabic",
			slog.String("code", string(warning.Code)),
			slog.Any("requested", warning.Details["requested"]),
			slog.String("language", config.Language),
		)
		warnings = append(warnings, warning)
	}

	var emojis *EmojiSet
	if config.KeepEmojis {
		set, err := loadEmojis()
		if err == nil && (set == nil || set.Len() == 0) {
			err = fmt.Errorf("emoji table is empty")
		}
		if err != nil {
			return nil, apperrors.MissingDependency("emoji table", err)
		}
		emojis = set
	}

	nodes := NewProcessingNodes(&config, emojis)

	pipeline := []ProcessingStep{
		nodes.UnescapeHTML,
		nodes.StripDiacritics,
		nodes.StripElongation,
		nodes.ReplaceURLsEmailsMentions,
		nodes.RemoveHTMLMarkup,
		nodes.CollapseRepeatedChars,
		nodes.InsertWhiteSpaces,
		nodes.FilterAllowedChars,
		nodes.NormalizeWhitespace,
	}

	return &RefineryV1Arabic{
		config:   &config,
		nodes:    nodes,
		pipeline: pipeline,
		warnings: warnings,
	}, nil
}

// Process processes text through the configured pipeline
func (r *RefineryV1Arabic) Process(text string) string {
	for _, step := range r.pipeline {
		text = step(text)
	}
	return text
}

// GetVersion returns the version identifier
func (r *RefineryV1Arabic) GetVersion() string {
	return "v1"
}

// GetName returns the human-readable name
func (r *RefineryV1Arabic) GetName() string {
	return "Arabic Text Normalization"
}

// GetDescription returns what this refinery does
func (r *RefineryV1Arabic) GetDescription() string {
	return "Arabic text normalization: strips tashkeel and tatweel, replaces URLs, emails and mentions with placeholders, removes HTML, collapses repetitions and filters to the Arabic alphabet (optionally keeping emojis)"
}

// GetDefaultConfig returns the default configuration
func (r *RefineryV1Arabic) GetDefaultConfig() map[string]interface{} {
	return DefaultRefineryConfig().ToMap()
}

// GetEffectiveConfig returns the configuration in use
func (r *RefineryV1Arabic) GetEffectiveConfig() map[string]interface{} {
	return r.config.ToMap()
}

// Config returns a copy of the configuration in use
func (r *RefineryV1Arabic) Config() RefineryConfig {
	return *r.config
}

// Warnings returns the recoverable problems found while applying the configuration
func (r *RefineryV1Arabic) Warnings() []error {
	out := make([]error, len(r.warnings))
	copy(out, r.warnings)
	return out
}

// GetPipelineSteps returns the list of processing steps
func (r *RefineryV1Arabic) GetPipelineSteps() []string {
	return []string{
		"unescape_html",
		"strip_diacritics",
		"strip_elongation",
		"replace_urls_emails_mentions",
		"remove_html_markup",
		"collapse_repeated_chars",
		"insert_white_spaces",
		"filter_allowed_chars",
		"normalize_whitespace",
	}
}

// normalizeLanguage coerces anything other than the exact supported tag
func normalizeLanguage(config *RefineryConfig) *apperrors.AppError {
	requested := config.Language
	if requested == SupportedLanguage {
		return nil
	}

	config.Language = SupportedLanguage
	return apperrors.ConfigurationWarning(
		fmt.Sprintf("language must be %q, got %q; defaulting to %q", SupportedLanguage, requested, SupportedLanguage),
	).WithDetails("requested", requested)
}

// Helper function to apply custom configuration. Keys accept their legacy
// aliases (strip_tashkeel, strip_tatweel, remove_non_digit_repetition).
func applyCustomConfig(config *RefineryConfig, custom map[string]interface{}) {
	if v, ok := custom["language"]; ok {
		// non-string tags are kept in string form so they are warned about
		if s, isString := v.(string); isString {
			config.Language = s
		} else {
			config.Language = fmt.Sprint(v)
		}
	}

	flags := []struct {
		target *bool
		keys   []string
	}{
		{&config.RemoveHTMLMarkup, []string{"remove_html_markup"}},
		{&config.ReplaceURLsEmailsMentions, []string{"replace_urls_emails_mentions"}},
		{&config.InsertWhiteSpaces, []string{"insert_white_spaces"}},
		{&config.StripDiacritics, []string{"strip_diacritics", "strip_tashkeel"}},
		{&config.StripElongation, []string{"strip_elongation", "strip_tatweel"}},
		{&config.CollapseRepeatedChars, []string{"collapse_repeated_chars", "remove_non_digit_repetition"}},
		{&config.KeepEmojis, []string{"keep_emojis"}},
	}

	for _, flag := range flags {
		for _, key := range flag.keys {
			if v, ok := custom[key].(bool); ok {
				*flag.target = v
				break
			}
		}
	}
}
