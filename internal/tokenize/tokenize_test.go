package tokenize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// wordTokenizer assigns each whitespace-separated word its length as id.
type wordTokenizer struct{}

func (wordTokenizer) Encode(text string) []int {
	var ids []int
	for _, w := range strings.Fields(text) {
		ids = append(ids, len(w))
	}
	return ids
}

func TestEncodeTruncatesWithoutPadding(t *testing.T) {
	seqs, stats := Encode([]string{"a bb ccc dddd", "x"}, wordTokenizer{}, 3)

	require.Len(t, seqs, 2)
	require.Equal(t, []int{1, 2, 3}, seqs[0].InputIDs)
	require.Equal(t, []int{1}, seqs[1].InputIDs)
	require.Equal(t, Stats{Sequences: 2, Tokens: 4, Truncated: 1}, stats)
}

func TestEncodeLabelsCopyInputs(t *testing.T) {
	seqs, _ := Encode([]string{"hello there"}, wordTokenizer{}, 0)

	require.Equal(t, seqs[0].InputIDs, seqs[0].Labels)
	seqs[0].Labels[0] = -100
	require.Equal(t, 5, seqs[0].InputIDs[0], "labels must not alias input ids")
}

func TestEncodeEmptyExample(t *testing.T) {
	seqs, stats := Encode([]string{""}, wordTokenizer{}, 8)
	require.Len(t, seqs, 1)
	require.Empty(t, seqs[0].InputIDs)
	require.Equal(t, 0, stats.Tokens)
}
