package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ultratune/ultratune/internal/capability"
	"github.com/ultratune/ultratune/internal/command"
	"github.com/ultratune/ultratune/internal/config"
)

// ErrEngineNotConfigured is returned by Launch when no engine command is set.
var ErrEngineNotConfigured = errors.New("no training engine command configured")

// Launcher runs the external training engine against a written hand-off.
type Launcher struct {
	runner  *command.Runner
	command string
	args    []string
	logger  *zap.Logger
}

// NewLauncher builds a launcher from the engine section. Engine output is streamed to stdout/stderr.
func NewLauncher(cfg config.EngineConfig, stdout, stderr io.Writer, logger *zap.Logger) *Launcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Launcher{
		runner: &command.Runner{
			WorkingDir: cfg.WorkingDir,
			Timeout:    time.Duration(cfg.TimeoutSeconds) * time.Second,
			Stdout:     stdout,
			Stderr:     stderr,
		},
		command: strings.TrimSpace(cfg.Command),
		args:    append([]string(nil), cfg.Args...),
		logger:  logger,
	}
}

// Enabled reports whether an engine command is configured.
func (l *Launcher) Enabled() bool {
	return l != nil && l.command != ""
}

// Launch runs the engine and waits for it to exit.
func (l *Launcher) Launch(ctx context.Context, h Handoff, strategy capability.Strategy) (command.Result, error) {
	if !l.Enabled() {
		return command.Result{}, ErrEngineNotConfigured
	}

	args := ExpandArgs(l.args, h)
	env := Env(h, strategy)
	l.logger.Info("launching training engine",
		zap.String("command", l.command),
		zap.Strings("args", args),
		zap.Strings("env", env),
		zap.String("mode", string(strategy.Mode)),
	)

	res, err := l.runner.With(env...).Exec(ctx, l.command, args...)
	if err != nil {
		return res, fmt.Errorf("training engine failed (exit %d): %w", res.ExitCode, err)
	}
	l.logger.Info("training engine finished", zap.Duration("duration", res.Duration))
	return res, nil
}

// ExpandArgs substitutes {plan} and {out} in the configured arguments.
func ExpandArgs(args []string, h Handoff) []string {
	r := strings.NewReplacer("{plan}", h.PlanPath, "{out}", h.Dir)
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = r.Replace(a)
	}
	return out
}

// Env returns the environment entries exported to the engine process.
func Env(h Handoff, strategy capability.Strategy) []string {
	env := []string{"ULTRATUNE_PLAN=" + h.PlanPath}
	if strategy.Mode == capability.ModeFullPrecisionCPU && strategy.Threads > 0 {
		env = append(env, "OMP_NUM_THREADS="+strconv.Itoa(strategy.Threads))
	}
	if strategy.Requested == config.DeviceCPU {
		env = append(env, "CUDA_VISIBLE_DEVICES=")
	}
	return env
}
