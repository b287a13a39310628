package nodes

import (
	"context"
)

// CommitTurn writes the completed turn back through the store. A store write
// failure is the one pipeline error that escalates to the caller; the
// orchestrator's error path records the exchange instead.
func CommitTurn(ctx context.Context, st *GraphState, deps Deps) (*GraphState, error) {
	entities := st.Intent.Entities
	if err := deps.Store.Commit(ctx, st.Turn, st.UserMessage, st.AssistantMessage, &st.Intent, entities); err != nil {
		return nil, err
	}
	return st, nil
}

// FinalizeReply shapes the graph output.
func FinalizeReply(st *GraphState) (GraphOutput, error) {
	return GraphOutput{
		Response: st.Unified,
		Intent:   st.Intent,
	}, nil
}
