package refinery

// BaseRefinery defines the interface that all refinery implementations must follow
type BaseRefinery interface {
	// Process normalizes a single text through the refinery pipeline
	Process(text string) string

	// GetVersion returns the version identifier (e.g., "v1")
	GetVersion() string

	// GetName returns a human-readable name
	GetName() string

	// GetDescription returns what this refinery does
	GetDescription() string

	// GetDefaultConfig returns the default configuration
	GetDefaultConfig() map[string]interface{}

	// GetEffectiveConfig returns the configuration after overrides were applied
	GetEffectiveConfig() map[string]interface{}

	// GetPipelineSteps returns the list of processing steps in order
	GetPipelineSteps() []string
}

// ProcessingStep represents a single text transformation function
type ProcessingStep func(string) string

// SupportedLanguage is the only language tag the normalizer accepts
const SupportedLanguage = "ar"

// RefineryConfig holds configuration for a refinery
type RefineryConfig struct {
	// Processing flags
	RemoveHTMLMarkup          bool `json:"remove_html_markup"`
	ReplaceURLsEmailsMentions bool `json:"replace_urls_emails_mentions"`
	InsertWhiteSpaces         bool `json:"insert_white_spaces"`
	StripDiacritics           bool `json:"strip_diacritics"`
	StripElongation           bool `json:"strip_elongation"`
	CollapseRepeatedChars     bool `json:"collapse_repeated_chars"`
	KeepEmojis                bool `json:"keep_emojis"`

	Language string `json:"language"`
}

// DefaultRefineryConfig returns every stage enabled
func DefaultRefineryConfig() RefineryConfig {
	return RefineryConfig{
		RemoveHTMLMarkup:          true,
		ReplaceURLsEmailsMentions: true,
		InsertWhiteSpaces:         true,
		StripDiacritics:           true,
		StripElongation:           true,
		CollapseRepeatedChars:     true,
		KeepEmojis:                true,
		Language:                  SupportedLanguage,
	}
}

// ToMap renders the config with its canonical keys
func (c RefineryConfig) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"remove_html_markup":           c.RemoveHTMLMarkup,
		"replace_urls_emails_mentions": c.ReplaceURLsEmailsMentions,
		"insert_white_spaces":          c.InsertWhiteSpaces,
		"strip_diacritics":             c.StripDiacritics,
		"strip_elongation":             c.StripElongation,
		"collapse_repeated_chars":      c.CollapseRepeatedChars,
		"keep_emojis":                  c.KeepEmojis,
		"language":                     c.Language,
	}
}
