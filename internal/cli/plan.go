package cli

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ultratune/ultratune/internal/rpc"
	planrpc "github.com/ultratune/ultratune/internal/rpc/plan"
)

// NewPlanCmd asks a running daemon to plan a run and renders the streamed events.
func NewPlanCmd(opts *Options) *cobra.Command {
	var (
		req       rpc.PlanRequest
		addr      string
		evalRatio float64
	)

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Plan a run on the daemon: data assembly, split and execution strategy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts, cmd.Flags())
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			if cmd.Flags().Changed("eval-ratio") {
				req.EvalRatio = &evalRatio
			}
			if addr == "" {
				addr = cfg.Server.Addr
			}
			baseURL := planrpc.DaemonURL(addr)
			logger.Debug("requesting plan",
				zap.String("daemon", baseURL),
				zap.String("transport", cfg.Server.Transport),
				zap.String("model", req.Model),
				zap.Strings("data", req.Data),
			)

			render := func(ev rpc.PlanEvent) error { return renderEvent(cmd, ev) }
			switch strings.ToLower(strings.TrimSpace(cfg.Server.Transport)) {
			case "ndjson":
				return planrpc.StreamNDJSON(cmd.Context(), http.DefaultClient, baseURL, req, render)
			default:
				return planrpc.StreamConnect(cmd.Context(), planrpc.H2CClient(), baseURL, req, render)
			}
		},
	}

	f := cmd.Flags()
	f.StringVar(&addr, "addr", "", "Daemon address (default: server.addr)")
	f.StringVar(&req.Preset, "preset", "", "Named model preset")
	f.StringVar(&req.Model, "model", "", "Model reference")
	f.StringSliceVar(&req.Data, "data", nil, "Data file; repeatable or comma-separated")
	f.StringVar(&req.Device, "device", "", "Device: auto, accelerator or cpu")
	f.Float64Var(&evalRatio, "eval-ratio", 0, "Fraction of examples held out for evaluation")
	return cmd
}

func renderEvent(cmd *cobra.Command, ev rpc.PlanEvent) error {
	out := cmd.OutOrStdout()
	switch ev.Type {
	case rpc.EventSource:
		if s := ev.Source; s != nil {
			fmt.Fprintf(out, "[source] %s %s examples=%d", s.Path, s.Status, s.Examples)
			if s.Error != "" {
				fmt.Fprintf(out, " (%s)", s.Error)
			}
			fmt.Fprintln(out)
		}
	case rpc.EventSplit:
		if s := ev.Split; s != nil {
			fmt.Fprintf(out, "[split] examples=%d train=%d eval=%d\n", s.Examples, s.Train, s.Eval)
		}
	case rpc.EventStrategy:
		if s := ev.Strategy; s != nil {
			fmt.Fprintf(out, "[strategy] %s: %s\n", s, s.Reason)
		}
	case rpc.EventDone:
		fmt.Fprintf(out, "[done] model=%s\n", ev.Model)
	case rpc.EventError:
		return fmt.Errorf("daemon error: %s", ev.Error)
	}
	return nil
}
