package nodes

import (
	"context"

	"github.com/rs/zerolog/log"

	contractx "github.com/chatwright/chatwright/agent/contract"
)

// PlanActions turns the intent into an ordered plan. The planner already
// degrades internally, but a defensive fallback here guarantees the
// executor never sees an empty plan.
func PlanActions(ctx context.Context, st *GraphState, deps Deps) (*GraphState, error) {
	plan, err := deps.Planner.Plan(ctx, contractx.PlanRequest{
		Domain:  st.Snapshot.Domain,
		Intent:  st.Intent,
		Context: st.Snapshot.Context,
	})
	if err != nil || len(plan) == 0 {
		if err != nil {
			log.Warn().Err(err).Str("session_id", st.Snapshot.SessionID).Msg("planning degraded to general response")
		}
		plan = []contractx.AgentAction{{
			ID:         deps.NewID(),
			Capability: contractx.CapabilityGeneral,
			Params:     map[string]any{},
			Priority:   1,
		}}
	}

	st.Plan = plan
	return st, nil
}
