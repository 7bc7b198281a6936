//go:build cuda

package capability

import (
	"context"

	"go.uber.org/zap"
	"gorgonia.org/cu"
)

// probeAccelerator asks the CUDA driver directly. Built with -tags cuda on hosts with the toolkit installed.
func (p *Prober) probeAccelerator(_ context.Context) Accelerator {
	n, err := cu.NumDevices()
	if err != nil || n == 0 {
		p.logger.Debug("no CUDA device detected", zap.Error(err))
		return Accelerator{Source: "cuda-driver"}
	}

	dev := cu.Device(0)
	acc := Accelerator{Present: true, Source: "cuda-driver"}
	if name, err := dev.Name(); err == nil {
		acc.Name = name
	}
	if mem, err := dev.TotalMem(); err == nil {
		acc.MemoryMiB = mem >> 20
	}
	if major, err := dev.Attribute(cu.ComputeCapabilityMajor); err == nil {
		acc.ComputeMajor = major
	}
	if minor, err := dev.Attribute(cu.ComputeCapabilityMinor); err == nil {
		acc.ComputeMinor = minor
	}
	acc.BF16 = acc.ComputeMajor >= 8
	return acc
}
