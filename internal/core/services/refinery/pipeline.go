package refinery

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

// Segmenter splits a single normalized word into morphological segments.
// No implementation ships with the normalizer; callers plug their own in.
type Segmenter interface {
	Segment(word string) string
}

// Pipeline orchestrates the text cleaning process using a specific refinery
type Pipeline struct {
	refinery  BaseRefinery
	version   string
	segmenter Segmenter
}

// NewPipeline creates a new refinery pipeline
// refineryType can be a version (e.g., "v1") or an alias (e.g., "arabic")
func NewPipeline(refineryType string, customConfig map[string]interface{}) (*Pipeline, error) {
	refinery, err := Create(refineryType, customConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create refinery: %w", err)
	}

	return &Pipeline{
		refinery: refinery,
		version:  refinery.GetVersion(),
	}, nil
}

// WithSegmenter returns a copy of the pipeline that segments every word after
// normalization. Placeholder tokens and words holding emojis are left whole.
func (p *Pipeline) WithSegmenter(segmenter Segmenter) *Pipeline {
	clone := *p
	clone.segmenter = segmenter
	return &clone
}

// CleanText processes a single text string
func (p *Pipeline) CleanText(text string) string {
	text = p.refinery.Process(text)
	if p.segmenter == nil || text == "" {
		return text
	}
	return p.segment(text)
}

// Normalize processes any value, converting it to its string form first.
// A nil value normalizes to the empty string, never to a rendering of nil
// such as "None" or "<nil>".
func (p *Pipeline) Normalize(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return p.CleanText(v)
	case []byte:
		return p.CleanText(string(v))
	default:
		return p.CleanText(fmt.Sprint(v))
	}
}

// CleanBatch processes a batch of texts
func (p *Pipeline) CleanBatch(texts []string) []string {
	results := make([]string, len(texts))
	for i, text := range texts {
		results[i] = p.CleanText(text)
	}
	return results
}

// Fingerprint identifies the refinery version, pattern table and effective
// configuration. Two pipelines with the same fingerprint produce the same output.
func (p *Pipeline) Fingerprint() string {
	payload, _ := json.Marshal(map[string]interface{}{
		"version":  p.version,
		"patterns": PatternTableVersion,
		"config":   p.refinery.GetEffectiveConfig(),
	})
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:8])
}

// GetVersion returns the refinery version being used
func (p *Pipeline) GetVersion() string {
	return p.version
}

// GetName returns the refinery name
func (p *Pipeline) GetName() string {
	return p.refinery.GetName()
}

// GetDescription returns the refinery description
func (p *Pipeline) GetDescription() string {
	return p.refinery.GetDescription()
}

// GetPipelineSteps returns the processing steps
func (p *Pipeline) GetPipelineSteps() []string {
	return p.refinery.GetPipelineSteps()
}

// GetEffectiveConfig returns the refinery configuration in use
func (p *Pipeline) GetEffectiveConfig() map[string]interface{} {
	return p.refinery.GetEffectiveConfig()
}

// Warnings returns the configuration problems the refinery recovered from
func (p *Pipeline) Warnings() []error {
	if w, ok := p.refinery.(interface{ Warnings() []error }); ok {
		return w.Warnings()
	}
	return nil
}

func (p *Pipeline) segment(text string) string {
	words := strings.Split(text, " ")
	for i, word := range words {
		if isAtomicWord(word) {
			continue
		}
		words[i] = p.segmenter.Segment(word)
	}
	return strings.Join(words, " ")
}

// isAtomicWord reports placeholder tokens and words that kept emoji code
// points. After filtering, any rune outside the alphabet set is an emoji rune.
func isAtomicWord(word string) bool {
	switch word {
	case URLPlaceholder, EmailPlaceholder, UserPlaceholder:
		return true
	}
	for _, r := range word {
		if !isAllowedChar(r) {
			return true
		}
	}
	return false
}
