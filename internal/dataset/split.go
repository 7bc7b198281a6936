package dataset

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidEvalRatio is returned when the ratio falls outside [0, 1).
var ErrInvalidEvalRatio = errors.New("eval ratio must be within [0, 1)")

// Split is a prefix/suffix partition of a corpus. Train is corpus[:Index], Eval is corpus[Index:].
type Split struct {
	Train Corpus
	Eval  Corpus
	Index int
}

// EvalSkipped reports whether there is nothing to evaluate on.
func (s Split) EvalSkipped() bool {
	return len(s.Eval) == 0
}

// SplitCorpus partitions c without shuffling so that len(Eval) == floor(len(c) * evalRatio).
// Train and Eval share c's backing array but are capped so appending to Train cannot overwrite Eval.
func SplitCorpus(c Corpus, evalRatio float64) (Split, error) {
	if math.IsNaN(evalRatio) || evalRatio < 0 || evalRatio >= 1 {
		return Split{}, fmt.Errorf("%w, got %v", ErrInvalidEvalRatio, evalRatio)
	}

	evalN := int(math.Floor(float64(len(c)) * evalRatio))
	idx := len(c) - evalN

	return Split{
		Train: c[:idx:idx],
		Eval:  c[idx:len(c):len(c)],
		Index: idx,
	}, nil
}
