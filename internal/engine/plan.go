// Package engine prepares the hand-off to the external training engine and launches it.
package engine

import (
	"github.com/ultratune/ultratune/internal/capability"
	"github.com/ultratune/ultratune/internal/config"
	"github.com/ultratune/ultratune/internal/dataset"
	"github.com/ultratune/ultratune/internal/version"
)

// Hand-off file names inside the output directory.
const (
	TrainFile = "train.jsonl"
	EvalFile  = "eval.jsonl"
	PlanFile  = "plan.json"
)

// Plan is the document the training engine reads to configure itself.
type Plan struct {
	Version  string              `json:"ultratune_version"`
	Model    string              `json:"model"`
	Preset   string              `json:"preset,omitempty"`
	Strategy capability.Strategy `json:"strategy"`
	Training Training            `json:"training"`
	LoRA     LoRA                `json:"lora"`
	Dataset  Dataset             `json:"dataset"`
	Files    Files               `json:"files"`
}

// Training holds optimization hyperparameters.
type Training struct {
	MaxSteps       int                  `json:"max_steps"`
	MaxSeqLen      int                  `json:"max_seq_len"`
	LearningRate   float64              `json:"learning_rate"`
	BatchSize      int                  `json:"per_device_train_batch_size"`
	GradAccum      int                  `json:"gradient_accumulation_steps"`
	LoggingSteps   int                  `json:"logging_steps"`
	SaveSteps      int                  `json:"save_steps"`
	SaveTotalLimit int                  `json:"save_total_limit"`
	WarmupRatio    float64              `json:"warmup_ratio"`
	Optimizer      capability.Optimizer `json:"optim"`
	BF16           bool                 `json:"bf16"`
	EvalStrategy   string               `json:"evaluation_strategy"` // "steps", or "no" when the eval partition is empty
	EvalSteps      int                  `json:"eval_steps,omitempty"`
}

// LoRA is the adapter configuration.
type LoRA struct {
	R             int      `json:"r"`
	Alpha         int      `json:"lora_alpha"`
	Dropout       float64  `json:"lora_dropout"`
	TargetModules []string `json:"target_modules"`
	Bias          string   `json:"bias"`
	TaskType      string   `json:"task_type"`
}

// Dataset summarizes what was assembled.
type Dataset struct {
	Sources   []Source `json:"sources"`
	Examples  int      `json:"examples"`
	Train     int      `json:"train"`
	Eval      int      `json:"eval"`
	EvalRatio float64  `json:"eval_ratio"`
	Tokenized bool     `json:"tokenized"`
	Encoding  string   `json:"encoding,omitempty"`
	Tokens    int      `json:"tokens,omitempty"`
	Truncated int      `json:"truncated,omitempty"`
}

// Source is the per-file outcome of assembly.
type Source struct {
	Path     string `json:"path"`
	Format   string `json:"format,omitempty"`
	Status   string `json:"status"`
	Examples int    `json:"examples"`
	Error    string `json:"error,omitempty"`
}

// Files names the hand-off files. Eval is empty when evaluation is skipped.
type Files struct {
	Train string `json:"train"`
	Eval  string `json:"eval,omitempty"`
}

// NewPlan assembles the engine plan from the resolved run, strategy and dataset outcome.
func NewPlan(run config.RunConfig, strategy capability.Strategy, report dataset.Report, split dataset.Split) *Plan {
	p := &Plan{
		Version:  version.Version,
		Model:    run.Model,
		Preset:   run.Preset,
		Strategy: strategy,
		Training: Training{
			MaxSteps:       run.MaxSteps,
			MaxSeqLen:      run.MaxSeqLen,
			LearningRate:   run.LearningRate,
			BatchSize:      run.BatchSize,
			GradAccum:      run.GradAccum,
			LoggingSteps:   run.LoggingSteps,
			SaveSteps:      run.SaveSteps,
			SaveTotalLimit: run.SaveTotalLimit,
			WarmupRatio:    run.WarmupRatio,
			Optimizer:      strategy.Optimizer,
			BF16:           strategy.BF16,
			EvalStrategy:   "no",
		},
		LoRA: LoRA{
			R:             run.LoRA.R,
			Alpha:         run.LoRA.Alpha,
			Dropout:       run.LoRA.Dropout,
			TargetModules: append([]string(nil), run.LoRA.TargetModules...),
			Bias:          "none",
			TaskType:      "CAUSAL_LM",
		},
		Dataset: Dataset{
			Examples:  report.Examples(),
			Train:     len(split.Train),
			Eval:      len(split.Eval),
			EvalRatio: run.EvalRatio,
		},
		Files: Files{Train: TrainFile},
	}
	if !split.EvalSkipped() {
		p.Training.EvalStrategy = "steps"
		p.Training.EvalSteps = run.SaveSteps
		p.Files.Eval = EvalFile
	}
	for _, src := range report.Sources {
		s := Source{Path: src.Path, Format: string(src.Format), Status: string(src.Status), Examples: src.Examples}
		if src.Err != nil {
			s.Error = src.Err.Error()
		}
		p.Dataset.Sources = append(p.Dataset.Sources, s)
	}
	return p
}
