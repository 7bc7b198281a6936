// Package pipeline runs a fine-tuning preparation end to end:
// assemble → split → probe → resolve strategy → (tokenize) → hand-off → launch.
// Every stage is synchronous; only probing and the engine launch observe the context.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ultratune/ultratune/internal/artifact"
	"github.com/ultratune/ultratune/internal/capability"
	"github.com/ultratune/ultratune/internal/command"
	"github.com/ultratune/ultratune/internal/config"
	"github.com/ultratune/ultratune/internal/dataset"
	"github.com/ultratune/ultratune/internal/engine"
	"github.com/ultratune/ultratune/internal/observability"
	"github.com/ultratune/ultratune/internal/tokenize"
)

// ErrOutputRequired is returned by Train when the run has no output directory.
var ErrOutputRequired = fmt.Errorf("%w: an output directory is required", config.ErrInvalidConfig)

// MetricsFile is written into the output directory after a train run.
const MetricsFile = "metrics.prom"

// Prober reports the environment capabilities.
type Prober interface {
	Probe(ctx context.Context) capability.Capabilities
}

// Launcher starts the external training engine.
type Launcher interface {
	Enabled() bool
	Launch(ctx context.Context, h engine.Handoff, strategy capability.Strategy) (command.Result, error)
}

// Components aggregates the collaborators of a run. Metrics, Launcher and Tokenizer may be nil.
type Components struct {
	Prober    Prober
	Launcher  Launcher
	Tokenizer tokenize.Tokenizer
	Metrics   *observability.Metrics
	Logger    *zap.Logger
}

// Pipeline executes runs with a fixed set of components.
type Pipeline struct {
	comp   Components
	logger *zap.Logger
}

// New builds a pipeline.
func New(comp Components) *Pipeline {
	logger := comp.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{comp: comp, logger: logger}
}

// Options tune a train run.
type Options struct {
	DryRun bool // write the hand-off but do not launch the engine
}

// Result describes what a run produced.
type Result struct {
	Run          config.RunConfig
	Report       dataset.Report
	Split        dataset.Split
	Capabilities capability.Capabilities
	Strategy     capability.Strategy
	Plan         *engine.Plan
	Handoff      *engine.Handoff
	Launched     bool
}

// Plan assembles and splits the corpus and resolves the execution strategy, without writing anything.
func (p *Pipeline) Plan(ctx context.Context, run config.RunConfig) (Result, error) {
	res := Result{Run: run}

	corpus, report, err := dataset.NewAssembler(p.logger, p.comp.Metrics).Assemble(run.Sources)
	res.Report = report
	if err != nil {
		return res, err
	}

	split, err := dataset.SplitCorpus(corpus, run.EvalRatio)
	if err != nil {
		return res, err
	}
	res.Split = split
	p.comp.Metrics.RecordSplit(len(split.Train), len(split.Eval))
	p.logger.Info("dataset split",
		zap.Int("examples", len(corpus)),
		zap.Int("train", len(split.Train)),
		zap.Int("eval", len(split.Eval)),
		zap.Bool("eval_skipped", split.EvalSkipped()),
	)

	if p.comp.Prober == nil {
		return res, errors.New("pipeline: no capability prober configured")
	}
	res.Capabilities = p.comp.Prober.Probe(ctx)

	strategy, err := capability.Resolve(run.Device, res.Capabilities)
	if err != nil {
		return res, err
	}
	res.Strategy = strategy
	p.comp.Metrics.RecordStrategy(string(strategy.Mode))

	if strategy.Mode == capability.ModeFullPrecisionAccelerated {
		p.logger.Info("quantization support unavailable, training in full precision",
			zap.String("detail", res.Capabilities.QuantizationDetail))
	}
	p.logger.Info("execution strategy resolved",
		zap.String("mode", string(strategy.Mode)),
		zap.String("requested", string(strategy.Requested)),
		zap.String("optimizer", string(strategy.Optimizer)),
		zap.Bool("bf16", strategy.BF16),
		zap.String("reason", strategy.Reason),
	)

	res.Plan = engine.NewPlan(run, strategy, report, split)
	return res, nil
}

// Train plans the run, writes the hand-off into the output directory and launches the engine
// unless this is a dry run or no engine is configured.
func (p *Pipeline) Train(ctx context.Context, run config.RunConfig, opts Options) (res Result, err error) {
	start := time.Now()
	var metricsPath string
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		p.comp.Metrics.RecordRun(outcome, time.Since(start))
		if metricsPath == "" {
			return
		}
		if werr := p.comp.Metrics.WriteTextfile(metricsPath); werr != nil {
			p.logger.Warn("could not write metrics textfile", zap.String("path", metricsPath), zap.Error(werr))
		}
	}()

	if strings.TrimSpace(run.Out) == "" {
		return Result{Run: run}, ErrOutputRequired
	}

	res, err = p.Plan(ctx, run)
	if err != nil {
		return res, err
	}

	store, err := artifact.NewStore(run.Out)
	if err != nil {
		return res, err
	}
	handoff, err := engine.WriteHandoff(store, res.Plan, res.Split, p.comp.Tokenizer)
	if err != nil {
		return res, fmt.Errorf("write hand-off: %w", err)
	}
	res.Handoff = &handoff
	if p.comp.Tokenizer != nil {
		p.comp.Metrics.RecordTokens(handoff.Stats.Tokens, handoff.Stats.Truncated)
	}
	p.logger.Info("hand-off written", zap.String("dir", handoff.Dir), zap.String("plan", handoff.PlanPath))

	if p.comp.Metrics != nil {
		metricsPath = filepath.Join(store.Root(), MetricsFile)
	}

	switch {
	case opts.DryRun:
		p.logger.Info("dry run, training engine not launched")
		return res, nil
	case p.comp.Launcher == nil || !p.comp.Launcher.Enabled():
		p.logger.Info("no training engine configured, hand-off only")
		return res, nil
	}

	if _, err := p.comp.Launcher.Launch(ctx, handoff, res.Strategy); err != nil {
		return res, err
	}
	res.Launched = true
	return res, nil
}
