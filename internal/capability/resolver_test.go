package capability

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ultratune/ultratune/internal/config"
)

func caps(accel, quant, bf16 bool) Capabilities {
	return Capabilities{
		Accelerator:  Accelerator{Present: accel, BF16: bf16},
		Quantization: quant,
		CPU:          CPU{PhysicalCores: 8, LogicalCores: 16},
	}
}

func TestResolveDecisionTable(t *testing.T) {
	cases := []struct {
		name      string
		requested config.Device
		caps      Capabilities
		want      Mode
	}{
		{"auto accel quant", config.DeviceAuto, caps(true, true, true), ModeQuantizedAccelerated},
		{"accelerator accel quant", config.DeviceAccelerator, caps(true, true, false), ModeQuantizedAccelerated},
		{"auto accel no quant", config.DeviceAuto, caps(true, false, true), ModeFullPrecisionAccelerated},
		{"accelerator accel no quant", config.DeviceAccelerator, caps(true, false, false), ModeFullPrecisionAccelerated},
		{"auto no accel quant", config.DeviceAuto, caps(false, true, false), ModeFullPrecisionCPU},
		{"auto nothing", config.DeviceAuto, caps(false, false, false), ModeFullPrecisionCPU},
		{"cpu forced despite accel", config.DeviceCPU, caps(true, true, true), ModeFullPrecisionCPU},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s, err := Resolve(tc.requested, tc.caps)
			require.NoError(t, err)
			require.Equal(t, tc.want, s.Mode)
			require.Equal(t, tc.requested, s.Requested)
		})
	}
}

func TestResolveOptimizerFollowsQuantization(t *testing.T) {
	s, err := Resolve(config.DeviceAuto, caps(true, true, true))
	require.NoError(t, err)
	require.Equal(t, OptimizerPagedAdamW8bit, s.Optimizer)
	require.True(t, s.Quantized())
	require.Equal(t, &Quantization{Bits: 4, Type: "nf4", DoubleQuant: true, ComputeDType: "bfloat16"}, s.Quantization)

	s, err = Resolve(config.DeviceAuto, caps(true, false, true))
	require.NoError(t, err)
	require.Equal(t, OptimizerAdamW, s.Optimizer)
	require.False(t, s.Quantized())
}

func TestResolveQuantizedWithoutBF16UsesFloat16Compute(t *testing.T) {
	s, err := Resolve(config.DeviceAuto, caps(true, true, false))
	require.NoError(t, err)
	require.False(t, s.BF16)
	require.Equal(t, "float16", s.Quantization.ComputeDType)
}

func TestResolveBF16RequiresUsedAccelerator(t *testing.T) {
	s, err := Resolve(config.DeviceAuto, caps(true, false, true))
	require.NoError(t, err)
	require.True(t, s.BF16)
	require.True(t, s.UseAccelerator)

	s, err = Resolve(config.DeviceCPU, caps(true, true, true))
	require.NoError(t, err)
	require.False(t, s.BF16, "cpu runs never enable reduced precision")
	require.False(t, s.UseAccelerator)
	require.Equal(t, OptimizerAdamW, s.Optimizer)
	require.Equal(t, 8, s.Threads)
}

func TestResolveAcceleratorRequestedButMissing(t *testing.T) {
	_, err := Resolve(config.DeviceAccelerator, caps(false, true, false))
	require.ErrorIs(t, err, ErrAcceleratorUnavailable)
}

func TestResolveUnknownDevice(t *testing.T) {
	_, err := Resolve(config.Device("tpu"), caps(true, true, true))
	require.ErrorIs(t, err, config.ErrUnknownDevice)
}

func TestResolveCPUThreadsFallBackToLogicalCores(t *testing.T) {
	c := caps(false, false, false)
	c.CPU.PhysicalCores = 0
	s, err := Resolve(config.DeviceAuto, c)
	require.NoError(t, err)
	require.Equal(t, 16, s.Threads)
}
