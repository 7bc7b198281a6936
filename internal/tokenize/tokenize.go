// Package tokenize turns normalized examples into truncated token sequences.
package tokenize

import (
	"fmt"
	"strings"

	tiktoken "github.com/pkoukk/tiktoken-go"
)

// Tokenizer maps text to token ids.
type Tokenizer interface {
	Encode(text string) []int
}

// Sequence is one tokenized example. Labels mirror InputIDs for causal language modeling.
type Sequence struct {
	InputIDs []int `json:"input_ids"`
	Labels   []int `json:"labels"`
}

// Stats summarizes a tokenization pass.
type Stats struct {
	Sequences int `json:"sequences"`
	Tokens    int `json:"tokens"`
	Truncated int `json:"truncated"`
}

// Encode tokenizes every example, truncating to maxLen without padding.
// A maxLen of zero or less disables truncation.
func Encode(examples []string, tok Tokenizer, maxLen int) ([]Sequence, Stats) {
	seqs := make([]Sequence, 0, len(examples))
	var stats Stats
	for _, text := range examples {
		ids := tok.Encode(text)
		if maxLen > 0 && len(ids) > maxLen {
			ids = ids[:maxLen]
			stats.Truncated++
		}
		ids = append(make([]int, 0, len(ids)), ids...)
		seqs = append(seqs, Sequence{
			InputIDs: ids,
			Labels:   append(make([]int, 0, len(ids)), ids...),
		})
		stats.Tokens += len(ids)
	}
	stats.Sequences = len(seqs)
	return seqs, stats
}

// BPE is a byte-pair tokenizer backed by a tiktoken encoding.
type BPE struct {
	name string
	enc  *tiktoken.Tiktoken
}

// NewBPE loads a tiktoken encoding such as cl100k_base.
func NewBPE(encoding string) (*BPE, error) {
	encoding = strings.TrimSpace(encoding)
	if encoding == "" {
		encoding = "cl100k_base"
	}
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("load encoding %q: %w", encoding, err)
	}
	return &BPE{name: encoding, enc: enc}, nil
}

// Name returns the encoding name.
func (b *BPE) Name() string { return b.name }

// Encode tokenizes text, treating special-token text as ordinary text.
func (b *BPE) Encode(text string) []int {
	return b.enc.EncodeOrdinary(text)
}
