package capability

import (
	"errors"
	"strconv"
	"strings"
)

// smiArgs asks nvidia-smi for one CSV line per GPU: name, total memory (MiB), compute capability.
var smiArgs = []string{"--query-gpu=name,memory.total,compute_cap", "--format=csv,noheader,nounits"}

// parseSMI reads the first GPU line. bf16 needs compute capability 8.0 or newer.
func parseSMI(out string) (Accelerator, error) {
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		parts := strings.Split(line, ",")
		if len(parts) < 3 {
			return Accelerator{}, errors.New("unexpected nvidia-smi output: " + line)
		}
		acc := Accelerator{
			Present: true,
			Name:    strings.TrimSpace(parts[0]),
			Source:  "nvidia-smi",
		}
		if mem, err := strconv.ParseInt(strings.TrimSpace(parts[1]), 10, 64); err == nil {
			acc.MemoryMiB = mem
		}
		major, minor, ok := strings.Cut(strings.TrimSpace(parts[2]), ".")
		if m, err := strconv.Atoi(major); err == nil {
			acc.ComputeMajor = m
		}
		if ok {
			if m, err := strconv.Atoi(minor); err == nil {
				acc.ComputeMinor = m
			}
		}
		acc.BF16 = acc.ComputeMajor >= 8
		return acc, nil
	}
	return Accelerator{}, errors.New("nvidia-smi reported no devices")
}
