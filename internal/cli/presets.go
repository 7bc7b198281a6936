package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// NewPresetsCmd lists the preset table, built-in presets merged with configured ones.
func NewPresetsCmd(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "List model presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts, cmd.Flags())
			if err != nil {
				return err
			}
			reg := cfg.PresetRegistry()
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, name := range reg.Names() {
				ref, _ := reg.Lookup(name)
				fmt.Fprintf(w, "%s\t%s\n", name, ref)
			}
			return w.Flush()
		},
	}
}
