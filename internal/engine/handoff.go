package engine

import (
	"fmt"

	"github.com/ultratune/ultratune/internal/artifact"
	"github.com/ultratune/ultratune/internal/dataset"
	"github.com/ultratune/ultratune/internal/tokenize"
)

// Handoff locates the written hand-off files.
type Handoff struct {
	Dir       string         `json:"dir"`
	PlanPath  string         `json:"plan"`
	TrainPath string         `json:"train"`
	EvalPath  string         `json:"eval,omitempty"`
	Stats     tokenize.Stats `json:"stats"`
}

type textRow struct {
	Text string `json:"text"`
}

// WriteHandoff writes the split partitions and the plan into the store.
// With a nil tokenizer the partitions carry raw text and the engine tokenizes them itself.
// A stale eval file from an earlier run is removed when evaluation is skipped.
func WriteHandoff(store *artifact.Store, plan *Plan, split dataset.Split, tok tokenize.Tokenizer) (Handoff, error) {
	h := Handoff{Dir: store.Root()}

	trainPath, trainStats, err := writePartition(store, TrainFile, split.Train, tok, plan.Training.MaxSeqLen)
	if err != nil {
		return Handoff{}, err
	}
	h.TrainPath = trainPath
	h.Stats = trainStats

	if split.EvalSkipped() {
		if err := store.Remove(EvalFile); err != nil {
			return Handoff{}, fmt.Errorf("remove stale %s: %w", EvalFile, err)
		}
	} else {
		evalPath, evalStats, err := writePartition(store, EvalFile, split.Eval, tok, plan.Training.MaxSeqLen)
		if err != nil {
			return Handoff{}, err
		}
		h.EvalPath = evalPath
		h.Stats.Sequences += evalStats.Sequences
		h.Stats.Tokens += evalStats.Tokens
		h.Stats.Truncated += evalStats.Truncated
	}

	if tok != nil {
		plan.Dataset.Tokenized = true
		plan.Dataset.Tokens = h.Stats.Tokens
		plan.Dataset.Truncated = h.Stats.Truncated
		if named, ok := tok.(interface{ Name() string }); ok {
			plan.Dataset.Encoding = named.Name()
		}
	}

	planPath, err := store.WriteJSON(PlanFile, plan)
	if err != nil {
		return Handoff{}, err
	}
	h.PlanPath = planPath
	return h, nil
}

func writePartition(store *artifact.Store, name string, examples dataset.Corpus, tok tokenize.Tokenizer, maxLen int) (string, tokenize.Stats, error) {
	if tok == nil {
		path, err := store.WriteJSONLines(name, len(examples), func(i int) any {
			return textRow{Text: examples[i]}
		})
		if err != nil {
			return "", tokenize.Stats{}, fmt.Errorf("write %s: %w", name, err)
		}
		return path, tokenize.Stats{Sequences: len(examples)}, nil
	}

	seqs, stats := tokenize.Encode(examples, tok, maxLen)
	path, err := store.WriteJSONLines(name, len(seqs), func(i int) any {
		return seqs[i]
	})
	if err != nil {
		return "", tokenize.Stats{}, fmt.Errorf("write %s: %w", name, err)
	}
	return path, stats, nil
}
