package plan

import (
	"context"
	"errors"
	"net/http"

	"github.com/bufbuild/connect-go"

	"github.com/ultratune/ultratune/internal/config"
	"github.com/ultratune/ultratune/internal/observability"
	"github.com/ultratune/ultratune/internal/rpc"
	"github.com/ultratune/ultratune/internal/rpc/connectjson"
)

const ConnectPlanProcedure = "/ultratune.v1.PlanService/Plan"

// NewConnectHandler builds a Connect server-stream handler for Plan.
func NewConnectHandler(runner Runner, metrics *observability.Metrics) (string, http.Handler) {
	h := &connectPlanHandler{runner: runner, metrics: metrics}
	return ConnectPlanProcedure, connect.NewServerStreamHandler(ConnectPlanProcedure, h.handle, connect.WithCodec(connectjson.Codec{}))
}

type connectPlanHandler struct {
	runner  Runner
	metrics *observability.Metrics
}

func (h *connectPlanHandler) handle(ctx context.Context, req *connect.Request[rpc.PlanRequest], stream *connect.ServerStream[rpc.PlanEvent]) error {
	h.metrics.IncActiveStreams("connect")
	defer h.metrics.DecActiveStreams("connect")

	events, err := h.runner.Run(ctx, *req.Msg)
	if err != nil {
		h.metrics.RecordPlanRequest("connect", "rejected")
		code := connect.CodeInternal
		if errors.Is(err, config.ErrInvalidConfig) {
			code = connect.CodeInvalidArgument
		}
		return connect.NewError(code, err)
	}

	outcome := "incomplete"
	defer func() { h.metrics.RecordPlanRequest("connect", outcome) }()
	for ev := range events {
		if err := stream.Send(&ev); err != nil {
			h.metrics.RecordTransportError("connect", "send")
			return err
		}
		outcome = outcomeOf(ev, outcome)
	}
	return nil
}
