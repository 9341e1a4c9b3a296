package llm_input

import (
	"log/slog"
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

const tokenizerEncoding = "cl100k_base"

// TokenCounter counts model tokens in a text
type TokenCounter interface {
	CountTokens(text string) int
	Encoding() string
}

var (
	tokenizer     *tiktoken.Tiktoken
	tokenizerOnce sync.Once
	tokenizerErr  error
)

// getTokenizer loads the cl100k_base encoding once per process
func getTokenizer() (*tiktoken.Tiktoken, error) {
	tokenizerOnce.Do(func() {
		tokenizer, tokenizerErr = tiktoken.GetEncoding(tokenizerEncoding)
		if tokenizerErr != nil {
			slog.Error("failed to initialize tokenizer, falling back to character estimate", "error", tokenizerErr)
		}
	})

	return tokenizer, tokenizerErr
}

// tiktokenCounter counts with cl100k_base, or estimates from the character
// count when the encoding cannot be loaded
type tiktokenCounter struct{}

// NewTiktokenCounter returns the default token counter
func NewTiktokenCounter() TokenCounter {
	return tiktokenCounter{}
}

func (tiktokenCounter) CountTokens(text string) int {
	tk, err := getTokenizer()
	if err != nil {
		return estimateFromChars(text)
	}
	return len(tk.Encode(text, nil, nil))
}

func (tiktokenCounter) Encoding() string {
	if _, err := getTokenizer(); err != nil {
		return "chars/4"
	}
	return tokenizerEncoding
}

// charCounter is the ~4 characters per token rule of thumb
type charCounter struct{}

// NewCharCounter returns a counter that never touches the network
func NewCharCounter() TokenCounter {
	return charCounter{}
}

func (charCounter) CountTokens(text string) int {
	return estimateFromChars(text)
}

func (charCounter) Encoding() string {
	return "chars/4"
}

func estimateFromChars(text string) int {
	return utf8.RuneCountInString(text) / 4
}
