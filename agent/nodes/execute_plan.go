package nodes

import (
	"context"
)

// ExecutePlan dispatches the plan to capability handlers. The dispatcher
// owns concurrency, deadlines, and failure isolation; this node just wires
// the snapshot through.
func ExecutePlan(ctx context.Context, st *GraphState, deps Deps) (*GraphState, error) {
	st.Responses = deps.Dispatcher.Execute(ctx, st.Plan, st.Snapshot)
	return st, nil
}
