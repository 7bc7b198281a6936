package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ultratune/ultratune/internal/capability"
	"github.com/ultratune/ultratune/internal/command"
	"github.com/ultratune/ultratune/internal/config"
	"github.com/ultratune/ultratune/internal/engine"
	"github.com/ultratune/ultratune/internal/observability"
	"github.com/ultratune/ultratune/internal/pipeline"
	"github.com/ultratune/ultratune/internal/tokenize"
)

// NewTrainCmd prepares the dataset, resolves the execution strategy and hands off to the training engine.
func NewTrainCmd(opts *Options) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Assemble data, resolve the execution strategy and launch fine-tuning",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts, cmd.Flags())
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			run, err := cfg.ResolveRun()
			if err != nil {
				return err
			}
			if run.PresetOverrodeModel(cfg.Run.Model) {
				logger.Warn("preset overrides the explicit model",
					zap.String("preset", run.Preset),
					zap.String("requested", cfg.Run.Model),
					zap.String("model", run.Model),
				)
			}

			var tok tokenize.Tokenizer
			if cfg.Tokenizer.Encoding != "" {
				bpe, err := tokenize.NewBPE(cfg.Tokenizer.Encoding)
				if err != nil {
					return err
				}
				tok = bpe
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			p := pipeline.New(pipeline.Components{
				Prober:    capability.NewProber(&command.Runner{}, cfg.Capability, logger),
				Launcher:  engine.NewLauncher(cfg.Engine, cmd.OutOrStdout(), cmd.ErrOrStderr(), logger),
				Tokenizer: tok,
				Metrics:   observability.NewMetrics(),
				Logger:    logger,
			})
			res, err := p.Train(ctx, run, pipeline.Options{DryRun: dryRun})
			if err != nil {
				return err
			}
			return printTrainSummary(cmd, res)
		},
	}

	f := cmd.Flags()
	f.String("preset", "", "Named model preset (overrides --model)")
	f.String("model", "", "Model reference")
	f.StringSlice("data", nil, "Data file (.json, .jsonl, .txt); repeatable or comma-separated")
	f.String("out", "", "Output directory for the hand-off and checkpoints")
	f.String("device", string(config.DeviceAuto), "Device: auto, accelerator or cpu")
	f.Int("max-steps", 1000, "Maximum optimizer steps")
	f.Int("max-seq-len", 2048, "Maximum sequence length in tokens")
	f.Float64("lr", 2e-4, "Learning rate")
	f.Int("batch-size", 1, "Per-device batch size")
	f.Int("grad-accum", 8, "Gradient accumulation steps")
	f.Int("logging-steps", 20, "Steps between log lines")
	f.Int("save-steps", 500, "Steps between checkpoints")
	f.Float64("eval-ratio", 0.05, "Fraction of examples held out for evaluation, in [0, 1)")
	f.Int("lora-r", 64, "LoRA rank")
	f.Int("lora-alpha", 16, "LoRA alpha")
	f.Float64("lora-dropout", 0.05, "LoRA dropout")
	f.BoolVar(&dryRun, "dry-run", false, "Write the hand-off without launching the training engine")

	return cmd
}

func printTrainSummary(cmd *cobra.Command, res pipeline.Result) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Model: %s\n", res.Run.Model)
	fmt.Fprintf(out, "Examples: %d (train %d, eval %d)\n", len(res.Split.Train)+len(res.Split.Eval), len(res.Split.Train), len(res.Split.Eval))
	for _, src := range res.Report.Skipped() {
		fmt.Fprintf(out, "Skipped: %s (%s)\n", src.Path, src.Status)
	}
	fmt.Fprintf(out, "Strategy: %s\n", res.Strategy)
	if res.Handoff != nil {
		fmt.Fprintf(out, "Plan: %s\n", res.Handoff.PlanPath)
	}
	if !res.Launched {
		fmt.Fprintln(out, "Training engine not launched")
	}
	return nil
}
