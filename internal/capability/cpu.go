package capability

import (
	"runtime"

	"github.com/klauspost/cpuid/v2"
)

// DetectCPU reads the host CPU description.
func DetectCPU() CPU {
	c := CPU{
		Brand:         cpuid.CPU.BrandName,
		PhysicalCores: cpuid.CPU.PhysicalCores,
		LogicalCores:  cpuid.CPU.LogicalCores,
		AVX2:          cpuid.CPU.Supports(cpuid.AVX2),
		AVX512F:       cpuid.CPU.Supports(cpuid.AVX512F),
		AVX512BF16:    cpuid.CPU.Supports(cpuid.AVX512BF16),
	}
	if c.LogicalCores <= 0 {
		c.LogicalCores = runtime.NumCPU()
	}
	if c.Brand == "" {
		c.Brand = runtime.GOARCH
	}
	return c
}
