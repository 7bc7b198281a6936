package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ultratune/ultratune/internal/capability"
	"github.com/ultratune/ultratune/internal/command"
	"github.com/ultratune/ultratune/internal/config"
)

// NewDoctorCmd returns a health-check command validating config and environment.
func NewDoctorCmd(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Validate configuration, probe the environment and show the resolved strategy",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts, cmd.Flags())
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			engineCmd := cfg.Engine.Command
			if engineCmd == "" {
				engineCmd = "none (hand-off only)"
			}
			fmt.Fprintf(out, "Config OK. Presets: %d, engine: %s, metrics: %v\n", cfg.PresetRegistry().Len(), engineCmd, cfg.Server.MetricsEnabled)

			caps := capability.NewProber(&command.Runner{}, cfg.Capability, logger).Probe(cmd.Context())
			printCapabilities(cmd, caps)

			requested, err := config.ParseDevice(cfg.Run.Device)
			if err != nil {
				return err
			}
			strategy, err := capability.Resolve(requested, caps)
			if err != nil {
				fmt.Fprintf(out, "Strategy (%s): unavailable\n", requested)
				return err
			}
			fmt.Fprintf(out, "Strategy (%s): %s\n", requested, strategy)
			if strategy.Quantization != nil {
				q := strategy.Quantization
				fmt.Fprintf(out, "Quantization: %d-bit %s, double quant %v, compute %s\n", q.Bits, q.Type, q.DoubleQuant, q.ComputeDType)
			}
			if strategy.Threads > 0 {
				fmt.Fprintf(out, "Threads: %d\n", strategy.Threads)
			}
			return nil
		},
	}

	cmd.Flags().String("device", string(config.DeviceAuto), "Device to resolve: auto, accelerator or cpu")
	return cmd
}

func printCapabilities(cmd *cobra.Command, caps capability.Capabilities) {
	out := cmd.OutOrStdout()
	acc := caps.Accelerator
	if acc.Present {
		fmt.Fprintf(out, "Accelerator: %s (%d MiB, compute %d.%d, bf16 %v) via %s\n",
			acc.Name, acc.MemoryMiB, acc.ComputeMajor, acc.ComputeMinor, acc.BF16, acc.Source)
	} else {
		fmt.Fprintln(out, "Accelerator: none")
	}
	quant := "unavailable"
	if caps.Quantization {
		quant = "available"
	}
	fmt.Fprintf(out, "Quantization: %s", quant)
	if detail := strings.TrimSpace(caps.QuantizationDetail); detail != "" {
		fmt.Fprintf(out, " (%s)", detail)
	}
	fmt.Fprintln(out)

	c := caps.CPU
	var ext []string
	if c.AVX2 {
		ext = append(ext, "avx2")
	}
	if c.AVX512F {
		ext = append(ext, "avx512f")
	}
	if c.AVX512BF16 {
		ext = append(ext, "avx512_bf16")
	}
	fmt.Fprintf(out, "CPU: %s, %d physical / %d logical cores", c.Brand, c.PhysicalCores, c.LogicalCores)
	if len(ext) > 0 {
		fmt.Fprintf(out, " [%s]", strings.Join(ext, " "))
	}
	fmt.Fprintln(out)
}
