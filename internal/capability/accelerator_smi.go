//go:build !cuda

package capability

import (
	"context"

	"go.uber.org/zap"
)

func (p *Prober) probeAccelerator(ctx context.Context) Accelerator {
	res, err := p.runner.Exec(ctx, p.cfg.AcceleratorCommand, smiArgs...)
	if err != nil {
		p.logger.Debug("no accelerator detected", zap.String("command", p.cfg.AcceleratorCommand), zap.Error(err))
		return Accelerator{Source: "nvidia-smi"}
	}
	acc, err := parseSMI(res.Stdout)
	if err != nil {
		p.logger.Warn("could not parse accelerator probe output", zap.Error(err))
		return Accelerator{Source: "nvidia-smi"}
	}
	return acc
}
