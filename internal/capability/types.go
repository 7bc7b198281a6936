// Package capability detects the execution environment and picks how a run is executed.
package capability

import (
	"fmt"

	"github.com/ultratune/ultratune/internal/config"
)

// Mode is the execution strategy family.
type Mode string

const (
	ModeQuantizedAccelerated     Mode = "quantized-accelerated"
	ModeFullPrecisionAccelerated Mode = "fullprecision-accelerated"
	ModeFullPrecisionCPU         Mode = "fullprecision-cpu"
)

// Optimizer is the optimizer variant handed to the engine.
type Optimizer string

const (
	OptimizerPagedAdamW8bit Optimizer = "paged_adamw_8bit"
	OptimizerAdamW          Optimizer = "adamw_torch"
)

// Accelerator describes the first detected accelerator.
type Accelerator struct {
	Present      bool   `json:"present"`
	Name         string `json:"name,omitempty"`
	ComputeMajor int    `json:"compute_major,omitempty"`
	ComputeMinor int    `json:"compute_minor,omitempty"`
	MemoryMiB    int64  `json:"memory_mib,omitempty"`
	BF16         bool   `json:"bf16"`
	Source       string `json:"source,omitempty"` // which probe produced the answer
}

// CPU describes the host processor.
type CPU struct {
	Brand         string `json:"brand"`
	PhysicalCores int    `json:"physical_cores"`
	LogicalCores  int    `json:"logical_cores"`
	AVX2          bool   `json:"avx2"`
	AVX512F       bool   `json:"avx512f"`
	AVX512BF16    bool   `json:"avx512bf16"`
}

// Capabilities is the probed environment. Resolve is a pure function of this value.
type Capabilities struct {
	Accelerator        Accelerator `json:"accelerator"`
	Quantization       bool        `json:"quantization"`
	QuantizationDetail string      `json:"quantization_detail,omitempty"`
	CPU                CPU         `json:"cpu"`
}

// Quantization holds compressed-weight loading settings.
type Quantization struct {
	Bits         int    `json:"bits"`
	Type         string `json:"type"`
	DoubleQuant  bool   `json:"double_quant"`
	ComputeDType string `json:"compute_dtype"`
}

// Strategy is the resolved execution plan. It is computed once per run.
type Strategy struct {
	Mode           Mode          `json:"mode"`
	Requested      config.Device `json:"requested_device"`
	UseAccelerator bool          `json:"use_accelerator"`
	Optimizer      Optimizer     `json:"optimizer"`
	BF16           bool          `json:"bf16"`
	Quantization   *Quantization `json:"quantization,omitempty"`
	Threads        int           `json:"threads,omitempty"`
	Reason         string        `json:"reason"`
}

// Quantized reports whether weights are loaded compressed.
func (s Strategy) Quantized() bool {
	return s.Quantization != nil
}

func (s Strategy) String() string {
	return fmt.Sprintf("%s (optimizer=%s bf16=%v)", s.Mode, s.Optimizer, s.BF16)
}
