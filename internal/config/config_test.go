package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "ultratune.yaml")
	configYAML := `
run:
  model: Qwen/Qwen1.5-0.5B
  data:
    - a.jsonl
    - b.txt
  out: out
  max_steps: 50
  eval_ratio: 0.1
lora:
  r: 8
presets:
  tiny: sshleifer/tiny-gpt2
logging:
  level: debug
`

	require.NoError(t, os.WriteFile(cfgPath, []byte(configYAML), 0o644))

	cfg, err := Load(cfgPath)
	require.NoError(t, err)
	require.Equal(t, "Qwen/Qwen1.5-0.5B", cfg.Run.Model)
	require.Equal(t, []string{"a.jsonl", "b.txt"}, cfg.Run.Data)
	require.Equal(t, 50, cfg.Run.MaxSteps)
	require.Equal(t, 0.1, cfg.Run.EvalRatio)
	require.Equal(t, 8, cfg.LoRA.R)
	require.Equal(t, 16, cfg.LoRA.Alpha, "default alpha kept")
	require.Equal(t, 2048, cfg.Run.MaxSeqLen, "default max_seq_len kept")
	require.Equal(t, "sshleifer/tiny-gpt2", cfg.Presets["tiny"])
	require.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadWithoutFileUsesDefaults(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "auto", cfg.Run.Device)
	require.Equal(t, 1000, cfg.Run.MaxSteps)
	require.Equal(t, 2e-4, cfg.Run.LearningRate)
	require.Equal(t, 8, cfg.Run.GradAccum)
	require.Equal(t, 0.05, cfg.Run.EvalRatio)
	require.Equal(t, DefaultTargetModules, cfg.LoRA.TargetModules)
	require.Equal(t, "nvidia-smi", cfg.Capability.AcceleratorCommand)
	require.Equal(t, "connect", cfg.Server.Transport)
}

func TestLoadMissingExplicitFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "ultratune.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("run:\n  max_steps: 10\n"), 0o644))

	t.Setenv("ULTRATUNE_RUN_MAX_STEPS", "12")
	t.Setenv("ULTRATUNE_RUN_MODEL", "org/model")
	cfg, err := Load(cfgPath)
	require.NoError(t, err)
	require.Equal(t, 12, cfg.Run.MaxSteps)
	require.Equal(t, "org/model", cfg.Run.Model)
}

func TestFlagsOverrideFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "ultratune.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("run:\n  max_steps: 10\n  eval_ratio: 0.2\n"), 0o644))
	t.Setenv("ULTRATUNE_RUN_MAX_STEPS", "12")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("max-steps", 1000, "")
	flags.Float64("eval-ratio", 0.05, "")
	flags.StringSlice("data", nil, "")
	require.NoError(t, flags.Parse([]string{"--max-steps", "99", "--data", "x.jsonl", "--data", "y.txt"}))

	cfg, err := Load(cfgPath, WithFlags(flags))
	require.NoError(t, err)
	require.Equal(t, 99, cfg.Run.MaxSteps)
	require.Equal(t, 0.2, cfg.Run.EvalRatio, "unset flag must not clobber file value")
	require.Equal(t, []string{"x.jsonl", "y.txt"}, cfg.Run.Data)
}

func TestValidateRejectsUnknownTransport(t *testing.T) {
	cfg := Config{
		Capability: CapabilityConfig{AcceleratorCommand: "nvidia-smi", TimeoutSeconds: 5},
		Server:     ServerConfig{Transport: "grpc"},
	}
	require.Error(t, cfg.Validate())
}

func TestValidateRejectsEmptyPresetReference(t *testing.T) {
	cfg := Config{
		Presets:    map[string]string{"broken": " "},
		Capability: CapabilityConfig{AcceleratorCommand: "nvidia-smi", TimeoutSeconds: 5},
	}
	require.Error(t, cfg.Validate())
}

func TestValidateRejectsArgsWithoutCommand(t *testing.T) {
	cfg := Config{
		Capability: CapabilityConfig{AcceleratorCommand: "nvidia-smi", TimeoutSeconds: 5},
		Engine:     EngineConfig{Args: []string{"--plan", "{plan}"}},
	}
	require.Error(t, cfg.Validate())
}
