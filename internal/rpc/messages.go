package rpc

import "github.com/ultratune/ultratune/internal/capability"

// Event types streamed back for a plan request.
const (
	EventSource   = "source"
	EventSplit    = "split"
	EventStrategy = "strategy"
	EventDone     = "done"
	EventError    = "error"
)

// PlanRequest asks the daemon to plan a run. Empty fields fall back to the daemon's configuration.
type PlanRequest struct {
	RequestID string   `json:"request_id,omitempty"`
	Preset    string   `json:"preset,omitempty"`
	Model     string   `json:"model,omitempty"`
	Data      []string `json:"data,omitempty"`
	Device    string   `json:"device,omitempty"`
	EvalRatio *float64 `json:"eval_ratio,omitempty"`
}

// PlanEvent streams back progress of a plan request.
type PlanEvent struct {
	Type      string               `json:"type"` // source|split|strategy|done|error
	RequestID string               `json:"request_id,omitempty"`
	Source    *SourceEvent         `json:"source,omitempty"`
	Split     *SplitEvent          `json:"split,omitempty"`
	Strategy  *capability.Strategy `json:"strategy,omitempty"`
	Model     string               `json:"model,omitempty"`
	Error     string               `json:"error,omitempty"`
	Done      bool                 `json:"done,omitempty"`
}

// SourceEvent reports how one data file was loaded.
type SourceEvent struct {
	Path     string `json:"path"`
	Format   string `json:"format,omitempty"`
	Status   string `json:"status"`
	Examples int    `json:"examples"`
	Error    string `json:"error,omitempty"`
}

// SplitEvent reports the planned partition sizes.
type SplitEvent struct {
	Examples    int  `json:"examples"`
	Train       int  `json:"train"`
	Eval        int  `json:"eval"`
	EvalSkipped bool `json:"eval_skipped,omitempty"`
}
