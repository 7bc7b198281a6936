package capability

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ultratune/ultratune/internal/command"
	"github.com/ultratune/ultratune/internal/config"
)

// CommandRunner executes probe commands.
type CommandRunner interface {
	Exec(ctx context.Context, command string, args ...string) (command.Result, error)
}

// Prober inspects the environment once and produces a Capabilities value.
type Prober struct {
	runner    CommandRunner
	cfg       config.CapabilityConfig
	logger    *zap.Logger
	detectCPU func() CPU
}

// NewProber builds a prober. A nil logger discards probe diagnostics.
func NewProber(runner CommandRunner, cfg config.CapabilityConfig, logger *zap.Logger) *Prober {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Prober{runner: runner, cfg: cfg, logger: logger, detectCPU: DetectCPU}
}

// Probe never fails: a probe that errors reports the capability as absent.
func (p *Prober) Probe(ctx context.Context) Capabilities {
	caps := Capabilities{
		Accelerator: p.withTimeout(ctx, p.probeAccelerator),
		CPU:         p.detectCPU(),
	}
	caps.Quantization, caps.QuantizationDetail = p.probeQuantization(ctx)

	p.logger.Debug("capabilities probed",
		zap.Bool("accelerator", caps.Accelerator.Present),
		zap.String("accelerator_name", caps.Accelerator.Name),
		zap.Bool("bf16", caps.Accelerator.BF16),
		zap.Bool("quantization", caps.Quantization),
		zap.String("cpu", caps.CPU.Brand),
		zap.Int("physical_cores", caps.CPU.PhysicalCores),
	)
	return caps
}

func (p *Prober) probeQuantization(ctx context.Context) (bool, string) {
	probe := p.cfg.QuantizationProbe
	if len(probe) == 0 || strings.TrimSpace(probe[0]) == "" {
		return false, "no quantization probe configured"
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout())
	defer cancel()

	res, err := p.runner.Exec(ctx, probe[0], probe[1:]...)
	if err != nil {
		detail := lastLine(res.Stderr)
		if detail == "" {
			detail = err.Error()
		}
		p.logger.Debug("quantization support unavailable", zap.String("detail", detail))
		return false, detail
	}
	return true, "probe " + strings.Join(probe, " ") + " succeeded"
}

func (p *Prober) withTimeout(ctx context.Context, fn func(context.Context) Accelerator) Accelerator {
	ctx, cancel := context.WithTimeout(ctx, p.timeout())
	defer cancel()
	return fn(ctx)
}

func (p *Prober) timeout() time.Duration {
	if p.cfg.TimeoutSeconds <= 0 {
		return 20 * time.Second
	}
	return time.Duration(p.cfg.TimeoutSeconds) * time.Second
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
