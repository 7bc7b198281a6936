// Package plan serves plan requests: resolve a run against the daemon's configuration,
// assemble and split its data, resolve the execution strategy and stream the outcome.
package plan

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ultratune/ultratune/internal/config"
	"github.com/ultratune/ultratune/internal/pipeline"
	"github.com/ultratune/ultratune/internal/rpc"
)

// Runner executes a plan request and yields streamed events.
// A returned error means the request was rejected before any event was produced.
type Runner interface {
	Run(ctx context.Context, req rpc.PlanRequest) (<-chan rpc.PlanEvent, error)
}

// Planner is the pipeline stage the runner drives.
type Planner interface {
	Plan(ctx context.Context, run config.RunConfig) (pipeline.Result, error)
}

// PipelineRunner bridges the preparation pipeline to RPC events.
type PipelineRunner struct {
	Config  *config.Config
	Planner Planner
	Logger  *zap.Logger
}

// Run resolves the request synchronously and plans it in the background.
func (r *PipelineRunner) Run(ctx context.Context, req rpc.PlanRequest) (<-chan rpc.PlanEvent, error) {
	if req.RequestID == "" {
		req.RequestID = fmt.Sprintf("plan-%d", time.Now().UnixNano())
	}
	run, err := r.resolve(req)
	if err != nil {
		return nil, err
	}

	logger := r.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("request_id", req.RequestID))

	out := make(chan rpc.PlanEvent, 16)
	go func() {
		defer close(out)
		emit := func(ev rpc.PlanEvent) bool {
			ev.RequestID = req.RequestID
			select {
			case out <- ev:
				return true
			case <-ctx.Done():
				return false
			}
		}

		res, err := r.Planner.Plan(ctx, run)
		for _, src := range res.Report.Sources {
			ev := &rpc.SourceEvent{Path: src.Path, Format: string(src.Format), Status: string(src.Status), Examples: src.Examples}
			if src.Err != nil {
				ev.Error = src.Err.Error()
			}
			if !emit(rpc.PlanEvent{Type: rpc.EventSource, Source: ev}) {
				return
			}
		}
		if err != nil {
			logger.Warn("plan failed", zap.Error(err))
			emit(rpc.PlanEvent{Type: rpc.EventError, Error: err.Error()})
			return
		}

		split := res.Split
		if !emit(rpc.PlanEvent{Type: rpc.EventSplit, Split: &rpc.SplitEvent{
			Examples:    len(split.Train) + len(split.Eval),
			Train:       len(split.Train),
			Eval:        len(split.Eval),
			EvalSkipped: split.EvalSkipped(),
		}}) {
			return
		}
		strategy := res.Strategy
		if !emit(rpc.PlanEvent{Type: rpc.EventStrategy, Strategy: &strategy, Model: run.Model}) {
			return
		}
		emit(rpc.PlanEvent{Type: rpc.EventDone, Done: true, Model: run.Model})
	}()
	return out, nil
}

func (r *PipelineRunner) resolve(req rpc.PlanRequest) (config.RunConfig, error) {
	if r.Config == nil || r.Planner == nil {
		return config.RunConfig{}, fmt.Errorf("plan runner is not configured")
	}
	section := r.Config.Run
	section.Data = append([]string(nil), section.Data...)
	if strings.TrimSpace(req.Preset) != "" || strings.TrimSpace(req.Model) != "" {
		section.Preset = req.Preset
		section.Model = req.Model
	}
	if len(req.Data) > 0 {
		section.Data = append([]string(nil), req.Data...)
	}
	if req.Device != "" {
		section.Device = req.Device
	}
	if req.EvalRatio != nil {
		section.EvalRatio = *req.EvalRatio
	}
	return config.ResolveRun(section, r.Config.LoRA, r.Config.PresetRegistry())
}
