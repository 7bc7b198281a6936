package config

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/ultratune/ultratune/internal/preset"
)

var (
	// ErrInvalidConfig is the root of every run configuration error.
	ErrInvalidConfig = errors.New("invalid run configuration")
	// ErrModelRequired is returned when neither a preset nor a model reference is given.
	ErrModelRequired = fmt.Errorf("%w: either a model or a preset must be specified", ErrInvalidConfig)
	// ErrUnknownPreset is returned for preset names missing from the preset table.
	ErrUnknownPreset = fmt.Errorf("%w: unknown preset", ErrInvalidConfig)
	// ErrNoSources is returned when no data files are given.
	ErrNoSources = fmt.Errorf("%w: at least one data file is required", ErrInvalidConfig)
	// ErrInvalidEvalRatio is returned when the eval ratio falls outside [0, 1).
	ErrInvalidEvalRatio = fmt.Errorf("%w: eval ratio must be within [0, 1)", ErrInvalidConfig)
	// ErrUnknownDevice is returned for device names other than auto, accelerator or cpu.
	ErrUnknownDevice = fmt.Errorf("%w: unknown device", ErrInvalidConfig)
)

// Device is the requested execution device.
type Device string

const (
	DeviceAuto        Device = "auto"
	DeviceAccelerator Device = "accelerator"
	DeviceCPU         Device = "cpu"
)

// ParseDevice normalizes a device name. "cuda" and "gpu" are accepted as aliases for accelerator.
func ParseDevice(s string) (Device, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return DeviceAuto, nil
	case "accelerator", "cuda", "gpu":
		return DeviceAccelerator, nil
	case "cpu":
		return DeviceCPU, nil
	default:
		return "", fmt.Errorf("%w %q (want auto, accelerator or cpu)", ErrUnknownDevice, s)
	}
}

// RunConfig is the resolved, validated configuration of a single run.
// It is handed around by value; ResolveRun copies every slice so no caller shares its backing arrays.
type RunConfig struct {
	Model          string
	Preset         string // empty when the model was given explicitly
	Sources        []string
	Out            string
	Device         Device
	MaxSteps       int
	MaxSeqLen      int
	LearningRate   float64
	BatchSize      int
	GradAccum      int
	LoggingSteps   int
	SaveSteps      int
	SaveTotalLimit int
	WarmupRatio    float64
	EvalRatio      float64
	LoRA           LoRA
}

// LoRA holds structural adaptation hyperparameters; they are passed through untouched.
type LoRA struct {
	R             int
	Alpha         int
	Dropout       float64
	TargetModules []string
}

// PresetOverrodeModel reports whether a preset replaced an explicitly requested model.
func (r RunConfig) PresetOverrodeModel(requested string) bool {
	return r.Preset != "" && strings.TrimSpace(requested) != "" && requested != r.Model
}

// ResolveRun merges the preset table with the raw run section and validates the result.
// A preset, when given, always wins over an explicit model reference.
func ResolveRun(run RunSection, lora LoRASection, presets *preset.Registry) (RunConfig, error) {
	model, presetName, err := resolveModel(run, presets)
	if err != nil {
		return RunConfig{}, err
	}

	sources := make([]string, 0, len(run.Data))
	for _, p := range run.Data {
		if strings.TrimSpace(p) == "" {
			continue
		}
		sources = append(sources, p)
	}
	if len(sources) == 0 {
		return RunConfig{}, ErrNoSources
	}

	device, err := ParseDevice(run.Device)
	if err != nil {
		return RunConfig{}, err
	}

	if notFinite(run.EvalRatio) || run.EvalRatio < 0 || run.EvalRatio >= 1 {
		return RunConfig{}, fmt.Errorf("%w, got %v", ErrInvalidEvalRatio, run.EvalRatio)
	}

	for _, check := range []struct {
		name  string
		value int
	}{
		{"max_steps", run.MaxSteps},
		{"max_seq_len", run.MaxSeqLen},
		{"batch_size", run.BatchSize},
		{"grad_accum", run.GradAccum},
		{"logging_steps", run.LoggingSteps},
		{"save_steps", run.SaveSteps},
		{"lora.r", lora.R},
		{"lora.alpha", lora.Alpha},
	} {
		if check.value <= 0 {
			return RunConfig{}, fmt.Errorf("%w: %s must be > 0, got %d", ErrInvalidConfig, check.name, check.value)
		}
	}
	if notFinite(run.LearningRate) || run.LearningRate <= 0 {
		return RunConfig{}, fmt.Errorf("%w: lr must be > 0, got %v", ErrInvalidConfig, run.LearningRate)
	}
	if run.SaveTotalLimit < 0 {
		return RunConfig{}, fmt.Errorf("%w: save_total_limit must be >= 0", ErrInvalidConfig)
	}
	if notFinite(run.WarmupRatio) || run.WarmupRatio < 0 || run.WarmupRatio >= 1 {
		return RunConfig{}, fmt.Errorf("%w: warmup_ratio must be within [0, 1)", ErrInvalidConfig)
	}
	if notFinite(lora.Dropout) || lora.Dropout < 0 || lora.Dropout >= 1 {
		return RunConfig{}, fmt.Errorf("%w: lora.dropout must be within [0, 1)", ErrInvalidConfig)
	}

	targets := lora.TargetModules
	if len(targets) == 0 {
		targets = DefaultTargetModules
	}

	return RunConfig{
		Model:          model,
		Preset:         presetName,
		Sources:        sources,
		Out:            strings.TrimSpace(run.Out),
		Device:         device,
		MaxSteps:       run.MaxSteps,
		MaxSeqLen:      run.MaxSeqLen,
		LearningRate:   run.LearningRate,
		BatchSize:      run.BatchSize,
		GradAccum:      run.GradAccum,
		LoggingSteps:   run.LoggingSteps,
		SaveSteps:      run.SaveSteps,
		SaveTotalLimit: run.SaveTotalLimit,
		WarmupRatio:    run.WarmupRatio,
		EvalRatio:      run.EvalRatio,
		LoRA: LoRA{
			R:             lora.R,
			Alpha:         lora.Alpha,
			Dropout:       lora.Dropout,
			TargetModules: append([]string(nil), targets...),
		},
	}, nil
}

// ResolveRun resolves the loaded run section against the built-in and configured presets.
func (c *Config) ResolveRun() (RunConfig, error) {
	return ResolveRun(c.Run, c.LoRA, c.PresetRegistry())
}

// PresetRegistry returns the built-in preset table extended with the configured presets.
func (c *Config) PresetRegistry() *preset.Registry {
	reg := preset.Builtin()
	for name, ref := range c.Presets {
		reg.Register(name, ref)
	}
	return reg
}

func resolveModel(run RunSection, presets *preset.Registry) (string, string, error) {
	name := strings.TrimSpace(run.Preset)
	if name != "" {
		if presets == nil {
			return "", "", fmt.Errorf("%w %q", ErrUnknownPreset, name)
		}
		ref, ok := presets.Lookup(name)
		if !ok {
			return "", "", fmt.Errorf("%w %q (known: %s)", ErrUnknownPreset, name, strings.Join(presets.Names(), ", "))
		}
		return ref, name, nil
	}
	if model := strings.TrimSpace(run.Model); model != "" {
		return model, "", nil
	}
	return "", "", ErrModelRequired
}

// notFinite reports NaN and infinities, which slip through ordered comparisons.
func notFinite(x float64) bool {
	return math.IsNaN(x) || math.IsInf(x, 0)
}
