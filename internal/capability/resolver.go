package capability

import (
	"errors"
	"fmt"

	"github.com/ultratune/ultratune/internal/config"
)

// ErrAcceleratorUnavailable is returned when an accelerator is explicitly requested but not present.
var ErrAcceleratorUnavailable = errors.New("accelerator requested but none was detected")

type candidate struct {
	mode     Mode
	eligible func(config.Device, Capabilities) bool
	reason   string
}

// chain is evaluated in order; the first eligible candidate wins.
var chain = []candidate{
	{
		mode: ModeQuantizedAccelerated,
		eligible: func(d config.Device, c Capabilities) bool {
			return d != config.DeviceCPU && c.Accelerator.Present && c.Quantization
		},
		reason: "accelerator present with quantization support",
	},
	{
		mode: ModeFullPrecisionAccelerated,
		eligible: func(d config.Device, c Capabilities) bool {
			return d != config.DeviceCPU && c.Accelerator.Present
		},
		reason: "accelerator present, quantization support unavailable",
	},
	{
		mode: ModeFullPrecisionCPU,
		eligible: func(d config.Device, c Capabilities) bool {
			return d != config.DeviceAccelerator
		},
		reason: "no accelerator in use",
	},
}

// Resolve picks the execution strategy for the requested device and probed capabilities.
// Missing quantization support only downgrades the strategy; it is never an error.
func Resolve(requested config.Device, caps Capabilities) (Strategy, error) {
	switch requested {
	case config.DeviceAuto, config.DeviceAccelerator, config.DeviceCPU:
	default:
		return Strategy{}, fmt.Errorf("%w %q", config.ErrUnknownDevice, requested)
	}

	for _, c := range chain {
		if c.eligible(requested, caps) {
			return build(c, requested, caps), nil
		}
	}
	return Strategy{}, fmt.Errorf("%w (device=%s)", ErrAcceleratorUnavailable, requested)
}

func build(c candidate, requested config.Device, caps Capabilities) Strategy {
	s := Strategy{
		Mode:      c.mode,
		Requested: requested,
		Optimizer: OptimizerAdamW,
		Reason:    c.reason,
	}
	if requested == config.DeviceCPU {
		s.Reason = "cpu requested, accelerator disabled"
	}

	switch c.mode {
	case ModeQuantizedAccelerated:
		s.UseAccelerator = true
		s.BF16 = caps.Accelerator.BF16
		s.Optimizer = OptimizerPagedAdamW8bit
		dtype := "float16"
		if s.BF16 {
			dtype = "bfloat16"
		}
		s.Quantization = &Quantization{Bits: 4, Type: "nf4", DoubleQuant: true, ComputeDType: dtype}
	case ModeFullPrecisionAccelerated:
		s.UseAccelerator = true
		s.BF16 = caps.Accelerator.BF16
	case ModeFullPrecisionCPU:
		s.Threads = caps.CPU.PhysicalCores
		if s.Threads <= 0 {
			s.Threads = caps.CPU.LogicalCores
		}
	}
	return s
}
