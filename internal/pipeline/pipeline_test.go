package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ultratune/ultratune/internal/capability"
	"github.com/ultratune/ultratune/internal/command"
	"github.com/ultratune/ultratune/internal/config"
	"github.com/ultratune/ultratune/internal/dataset"
	"github.com/ultratune/ultratune/internal/engine"
	"github.com/ultratune/ultratune/internal/observability"
)

type fakeProber struct {
	caps  capability.Capabilities
	calls int
}

func (f *fakeProber) Probe(context.Context) capability.Capabilities {
	f.calls++
	return f.caps
}

type fakeLauncher struct {
	enabled  bool
	err      error
	handoff  engine.Handoff
	strategy capability.Strategy
	calls    int
}

func (f *fakeLauncher) Enabled() bool { return f.enabled }

func (f *fakeLauncher) Launch(_ context.Context, h engine.Handoff, s capability.Strategy) (command.Result, error) {
	f.calls++
	f.handoff = h
	f.strategy = s
	return command.Result{}, f.err
}

func writeData(t *testing.T, dir string, n int) string {
	t.Helper()
	path := filepath.Join(dir, "data.jsonl")
	var content []byte
	for i := 0; i < n; i++ {
		content = append(content, []byte(`{"prompt":"p","completion":"c"}`+"\n")...)
	}
	require.NoError(t, os.WriteFile(path, content, 0o644))
	return path
}

func testRun(t *testing.T, n int) config.RunConfig {
	dir := t.TempDir()
	return config.RunConfig{
		Model:        "org/model",
		Sources:      []string{writeData(t, dir, n), filepath.Join(dir, "missing.txt")},
		Out:          filepath.Join(dir, "out"),
		Device:       config.DeviceAuto,
		MaxSteps:     10,
		MaxSeqLen:    64,
		LearningRate: 2e-4,
		BatchSize:    1,
		GradAccum:    1,
		LoggingSteps: 1,
		SaveSteps:    5,
		EvalRatio:    0.1,
		LoRA:         config.LoRA{R: 8, Alpha: 16, TargetModules: config.DefaultTargetModules},
	}
}

func TestPlanResolvesStrategyAndSplit(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	prober := &fakeProber{caps: capability.Capabilities{
		Accelerator:  capability.Accelerator{Present: true, BF16: true},
		Quantization: true,
	}}
	p := New(Components{Prober: prober, Logger: zap.New(core)})

	res, err := p.Plan(context.Background(), testRun(t, 20))
	require.NoError(t, err)
	require.Equal(t, capability.ModeQuantizedAccelerated, res.Strategy.Mode)
	require.Len(t, res.Split.Train, 18)
	require.Len(t, res.Split.Eval, 2)
	require.Len(t, res.Report.Skipped(), 1)
	require.Equal(t, 1, logs.FilterMessage("dataset split").Len())
	require.NotNil(t, res.Plan)
}

func TestPlanEmptyCorpusStopsBeforeProbe(t *testing.T) {
	prober := &fakeProber{}
	p := New(Components{Prober: prober})

	run := testRun(t, 0)
	_, err := p.Plan(context.Background(), run)
	require.ErrorIs(t, err, dataset.ErrEmptyCorpus)
	require.Zero(t, prober.calls)
}

func TestPlanAcceleratorUnavailable(t *testing.T) {
	p := New(Components{Prober: &fakeProber{}})
	run := testRun(t, 3)
	run.Device = config.DeviceAccelerator

	_, err := p.Plan(context.Background(), run)
	require.ErrorIs(t, err, capability.ErrAcceleratorUnavailable)
}

func TestTrainRequiresOutput(t *testing.T) {
	p := New(Components{Prober: &fakeProber{}})
	run := testRun(t, 3)
	run.Out = ""

	_, err := p.Train(context.Background(), run, Options{})
	require.ErrorIs(t, err, ErrOutputRequired)
	require.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestTrainDryRunWritesHandoffOnly(t *testing.T) {
	launcher := &fakeLauncher{enabled: true}
	metrics := observability.NewMetrics()
	p := New(Components{Prober: &fakeProber{}, Launcher: launcher, Metrics: metrics})
	run := testRun(t, 10)

	res, err := p.Train(context.Background(), run, Options{DryRun: true})
	require.NoError(t, err)
	require.False(t, res.Launched)
	require.Zero(t, launcher.calls)
	require.FileExists(t, filepath.Join(run.Out, engine.PlanFile))
	require.FileExists(t, filepath.Join(run.Out, engine.TrainFile))
	require.FileExists(t, filepath.Join(run.Out, engine.EvalFile))
	require.FileExists(t, filepath.Join(run.Out, MetricsFile))
}

func TestTrainLaunchesEngine(t *testing.T) {
	launcher := &fakeLauncher{enabled: true}
	p := New(Components{Prober: &fakeProber{caps: capability.Capabilities{CPU: capability.CPU{PhysicalCores: 4}}}, Launcher: launcher})
	run := testRun(t, 5)
	run.Device = config.DeviceCPU

	res, err := p.Train(context.Background(), run, Options{})
	require.NoError(t, err)
	require.True(t, res.Launched)
	require.Equal(t, 1, launcher.calls)
	require.Equal(t, capability.ModeFullPrecisionCPU, launcher.strategy.Mode)
	require.Equal(t, 4, launcher.strategy.Threads)
	require.Equal(t, res.Handoff.PlanPath, launcher.handoff.PlanPath)
}

func TestTrainPropagatesEngineFailure(t *testing.T) {
	boom := errors.New("engine crashed")
	p := New(Components{Prober: &fakeProber{}, Launcher: &fakeLauncher{enabled: true, err: boom}})

	_, err := p.Train(context.Background(), testRun(t, 5), Options{})
	require.ErrorIs(t, err, boom)
}

func TestTrainWithoutEngineStopsAfterHandoff(t *testing.T) {
	launcher := &fakeLauncher{}
	p := New(Components{Prober: &fakeProber{}, Launcher: launcher})

	res, err := p.Train(context.Background(), testRun(t, 5), Options{})
	require.NoError(t, err)
	require.False(t, res.Launched)
	require.NotNil(t, res.Handoff)
	require.Zero(t, launcher.calls)
}
