package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config describes the top-level application configuration loaded from YAML, ENV and flags.
type Config struct {
	Run        RunSection        `mapstructure:"run"`
	LoRA       LoRASection       `mapstructure:"lora"`
	Presets    map[string]string `mapstructure:"presets"` // extra preset name -> model reference
	Capability CapabilityConfig  `mapstructure:"capability"`
	Tokenizer  TokenizerConfig   `mapstructure:"tokenizer"`
	Engine     EngineConfig      `mapstructure:"engine"`
	Logging    LoggingConfig     `mapstructure:"logging"`
	Server     ServerConfig      `mapstructure:"server"`
}

// RunSection holds the raw, unresolved run request. ResolveRun turns it into a RunConfig.
type RunSection struct {
	Preset         string   `mapstructure:"preset"`
	Model          string   `mapstructure:"model"`
	Data           []string `mapstructure:"data"`
	Out            string   `mapstructure:"out"`
	Device         string   `mapstructure:"device"` // auto, accelerator (cuda, gpu), cpu
	MaxSteps       int      `mapstructure:"max_steps"`
	MaxSeqLen      int      `mapstructure:"max_seq_len"`
	LearningRate   float64  `mapstructure:"lr"`
	BatchSize      int      `mapstructure:"batch_size"`
	GradAccum      int      `mapstructure:"grad_accum"`
	LoggingSteps   int      `mapstructure:"logging_steps"`
	SaveSteps      int      `mapstructure:"save_steps"`
	SaveTotalLimit int      `mapstructure:"save_total_limit"`
	WarmupRatio    float64  `mapstructure:"warmup_ratio"`
	EvalRatio      float64  `mapstructure:"eval_ratio"`
}

// LoRASection carries the low-rank adaptation hyperparameters passed through to the engine.
type LoRASection struct {
	R             int      `mapstructure:"r"`
	Alpha         int      `mapstructure:"alpha"`
	Dropout       float64  `mapstructure:"dropout"`
	TargetModules []string `mapstructure:"target_modules"`
}

// CapabilityConfig controls the environment probes.
type CapabilityConfig struct {
	AcceleratorCommand string   `mapstructure:"accelerator_command"` // nvidia-smi compatible binary
	QuantizationProbe  []string `mapstructure:"quantization_probe"`  // command + args; exit 0 means available
	TimeoutSeconds     int      `mapstructure:"timeout_seconds"`
}

// TokenizerConfig selects optional pre-tokenization. Empty encoding leaves tokenization to the engine.
type TokenizerConfig struct {
	Encoding string `mapstructure:"encoding"`
}

// EngineConfig describes the external training engine invocation.
type EngineConfig struct {
	Command        string   `mapstructure:"command"`
	Args           []string `mapstructure:"args"` // {plan} and {out} are substituted
	WorkingDir     string   `mapstructure:"working_dir"`
	TimeoutSeconds int      `mapstructure:"timeout_seconds"` // 0 = no timeout
}

// LoggingConfig controls logger behaviour.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // console or json
	File   string `mapstructure:"file"`   // optional extra output path
}

// ServerConfig describes daemon settings.
type ServerConfig struct {
	Addr           string `mapstructure:"addr"`
	MetricsEnabled bool   `mapstructure:"metrics_enabled"`
	Transport      string `mapstructure:"transport"` // connect or ndjson
}

// Option customizes Load.
type Option func(*viper.Viper) error

// WithFlags binds command-line flags so that explicitly set flags override file and env values.
// Only flags listed in FlagKeys are bound; unknown flags in the set are ignored.
func WithFlags(flags *pflag.FlagSet) Option {
	return func(v *viper.Viper) error {
		if flags == nil {
			return nil
		}
		for name, key := range FlagKeys {
			f := flags.Lookup(name)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return fmt.Errorf("bind flag %q: %w", name, err)
			}
		}
		return nil
	}
}

// FlagKeys maps CLI flag names to configuration keys.
var FlagKeys = map[string]string{
	"preset":        "run.preset",
	"model":         "run.model",
	"data":          "run.data",
	"out":           "run.out",
	"device":        "run.device",
	"max-steps":     "run.max_steps",
	"max-seq-len":   "run.max_seq_len",
	"lr":            "run.lr",
	"batch-size":    "run.batch_size",
	"grad-accum":    "run.grad_accum",
	"logging-steps": "run.logging_steps",
	"save-steps":    "run.save_steps",
	"eval-ratio":    "run.eval_ratio",
	"lora-r":        "lora.r",
	"lora-alpha":    "lora.alpha",
	"lora-dropout":  "lora.dropout",
	"log-level":     "logging.level",
}

// Load reads configuration from the provided path or looks for ultratune.yaml in . and configs/.
// A missing default file is not an error: defaults, env and flags are enough to run.
// Environment variables override file values (prefix: ULTRATUNE_, dots replaced with underscores).
func Load(path string, opts ...Option) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("ULTRATUNE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for _, opt := range opts {
		if err := opt(v); err != nil {
			return nil, err
		}
	}

	if path == "" {
		v.SetConfigName("ultratune")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("configs")
	} else {
		v.SetConfigFile(path)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || path != "" {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults populates the documented defaults for optional fields.
func setDefaults(v *viper.Viper) {
	v.SetDefault("run.preset", "")
	v.SetDefault("run.model", "")
	v.SetDefault("run.data", []string{})
	v.SetDefault("run.out", "")
	v.SetDefault("run.device", "auto")
	v.SetDefault("run.max_steps", 1000)
	v.SetDefault("run.max_seq_len", 2048)
	v.SetDefault("run.lr", 2e-4)
	v.SetDefault("run.batch_size", 1)
	v.SetDefault("run.grad_accum", 8)
	v.SetDefault("run.logging_steps", 20)
	v.SetDefault("run.save_steps", 500)
	v.SetDefault("run.save_total_limit", 3)
	v.SetDefault("run.warmup_ratio", 0.03)
	v.SetDefault("run.eval_ratio", 0.05)

	v.SetDefault("lora.r", 64)
	v.SetDefault("lora.alpha", 16)
	v.SetDefault("lora.dropout", 0.05)
	v.SetDefault("lora.target_modules", DefaultTargetModules)

	v.SetDefault("presets", map[string]string{})

	v.SetDefault("capability.accelerator_command", "nvidia-smi")
	v.SetDefault("capability.quantization_probe", []string{"python3", "-c", "import bitsandbytes"})
	v.SetDefault("capability.timeout_seconds", 20)

	v.SetDefault("tokenizer.encoding", "")

	v.SetDefault("engine.command", "")
	v.SetDefault("engine.args", []string{})
	v.SetDefault("engine.timeout_seconds", 0)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("server.addr", ":8090")
	v.SetDefault("server.metrics_enabled", true)
	v.SetDefault("server.transport", "connect")
}

// DefaultTargetModules are the attention and MLP projections adapted by default.
var DefaultTargetModules = []string{
	"q_proj", "k_proj", "v_proj", "o_proj",
	"gate_proj", "up_proj", "down_proj",
}

// Validate performs sanity checks on the ambient settings. Run fields are checked by ResolveRun.
func (c *Config) Validate() error {
	switch strings.ToLower(strings.TrimSpace(c.Logging.Format)) {
	case "", "console", "json":
	default:
		return fmt.Errorf("logging.format must be one of console or json, got %q", c.Logging.Format)
	}

	for name, ref := range c.Presets {
		if strings.TrimSpace(name) == "" {
			return errors.New("presets: preset name cannot be empty")
		}
		if strings.TrimSpace(ref) == "" {
			return fmt.Errorf("preset %q must map to a model reference", name)
		}
	}

	if strings.TrimSpace(c.Capability.AcceleratorCommand) == "" {
		return errors.New("capability.accelerator_command cannot be empty")
	}
	if c.Capability.TimeoutSeconds <= 0 {
		return errors.New("capability.timeout_seconds must be > 0")
	}

	if c.Engine.TimeoutSeconds < 0 {
		return errors.New("engine.timeout_seconds must be >= 0")
	}
	if strings.TrimSpace(c.Engine.Command) == "" && len(c.Engine.Args) > 0 {
		return errors.New("engine.args set without engine.command")
	}

	switch strings.ToLower(strings.TrimSpace(c.Server.Transport)) {
	case "", "connect", "ndjson":
	default:
		return fmt.Errorf("server.transport must be one of connect or ndjson, got %q", c.Server.Transport)
	}

	return nil
}
