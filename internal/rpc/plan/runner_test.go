package plan

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ultratune/ultratune/internal/capability"
	"github.com/ultratune/ultratune/internal/config"
	"github.com/ultratune/ultratune/internal/dataset"
	"github.com/ultratune/ultratune/internal/pipeline"
	"github.com/ultratune/ultratune/internal/rpc"
)

type fakePlanner struct {
	err error
	got config.RunConfig
}

func (f *fakePlanner) Plan(_ context.Context, run config.RunConfig) (pipeline.Result, error) {
	f.got = run
	res := pipeline.Result{
		Run: run,
		Report: dataset.Report{Sources: []dataset.SourceReport{
			{Path: "a.jsonl", Format: dataset.FormatJSONL, Status: dataset.StatusLoaded, Examples: 4},
			{Path: "gone.txt", Status: dataset.StatusMissing, Err: errors.New("no such file")},
		}},
	}
	if f.err != nil {
		return res, f.err
	}
	split, _ := dataset.SplitCorpus(dataset.Corpus{"a", "b", "c", "d"}, 0.25)
	res.Split = split
	res.Strategy = capability.Strategy{Mode: capability.ModeFullPrecisionCPU, Optimizer: capability.OptimizerAdamW}
	return res, nil
}

func testConfig() *config.Config {
	return &config.Config{
		Run: config.RunSection{
			Preset: "qwen_asx_godmode", Data: []string{"a.jsonl"}, Device: "auto",
			MaxSteps: 10, MaxSeqLen: 128, LearningRate: 2e-4, BatchSize: 1, GradAccum: 1,
			LoggingSteps: 1, SaveSteps: 5, EvalRatio: 0.25,
		},
		LoRA: config.LoRASection{R: 8, Alpha: 16},
	}
}

func collect(t *testing.T, ch <-chan rpc.PlanEvent) []rpc.PlanEvent {
	t.Helper()
	var events []rpc.PlanEvent
	for ev := range ch {
		events = append(events, ev)
	}
	return events
}

// stubRunner replays fixed events or rejects the request.
type stubRunner struct {
	events []rpc.PlanEvent
	err    error
}

func (s stubRunner) Run(_ context.Context, req rpc.PlanRequest) (<-chan rpc.PlanEvent, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make(chan rpc.PlanEvent, len(s.events))
	for _, ev := range s.events {
		ev.RequestID = req.RequestID
		out <- ev
	}
	close(out)
	return out, nil
}

func TestPipelineRunnerStreamsPlan(t *testing.T) {
	planner := &fakePlanner{}
	r := &PipelineRunner{Config: testConfig(), Planner: planner}

	ch, err := r.Run(context.Background(), rpc.PlanRequest{RequestID: "req-1"})
	require.NoError(t, err)
	events := collect(t, ch)

	var types []string
	for _, ev := range events {
		types = append(types, ev.Type)
		require.Equal(t, "req-1", ev.RequestID)
	}
	require.Equal(t, []string{rpc.EventSource, rpc.EventSource, rpc.EventSplit, rpc.EventStrategy, rpc.EventDone}, types)
	require.Equal(t, "no such file", events[1].Source.Error)
	require.Equal(t, &rpc.SplitEvent{Examples: 4, Train: 3, Eval: 1}, events[2].Split)
	require.Equal(t, capability.ModeFullPrecisionCPU, events[3].Strategy.Mode)
	require.Equal(t, "Qwen/Qwen1.5-0.5B", planner.got.Model)
}

func TestPipelineRunnerAppliesOverrides(t *testing.T) {
	planner := &fakePlanner{}
	r := &PipelineRunner{Config: testConfig(), Planner: planner}
	ratio := 0.5

	ch, err := r.Run(context.Background(), rpc.PlanRequest{Model: "org/other", Data: []string{"b.txt"}, Device: "cpu", EvalRatio: &ratio})
	require.NoError(t, err)
	collect(t, ch)

	require.Equal(t, "org/other", planner.got.Model)
	require.Empty(t, planner.got.Preset)
	require.Equal(t, []string{"b.txt"}, planner.got.Sources)
	require.Equal(t, config.DeviceCPU, planner.got.Device)
	require.Equal(t, 0.5, planner.got.EvalRatio)
	require.Equal(t, []string{"a.jsonl"}, r.Config.Run.Data, "daemon config must stay untouched")
}

func TestPipelineRunnerRejectsInvalidRequest(t *testing.T) {
	r := &PipelineRunner{Config: testConfig(), Planner: &fakePlanner{}}
	_, err := r.Run(context.Background(), rpc.PlanRequest{Preset: "nope"})
	require.ErrorIs(t, err, config.ErrUnknownPreset)
}

func TestPipelineRunnerEmitsErrorEvent(t *testing.T) {
	r := &PipelineRunner{Config: testConfig(), Planner: &fakePlanner{err: dataset.ErrEmptyCorpus}}
	ch, err := r.Run(context.Background(), rpc.PlanRequest{})
	require.NoError(t, err)
	events := collect(t, ch)

	last := events[len(events)-1]
	require.Equal(t, rpc.EventError, last.Type)
	require.Contains(t, last.Error, dataset.ErrEmptyCorpus.Error())
}
