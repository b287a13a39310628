package nodes

import (
	"context"

	"github.com/rs/zerolog/log"

	contractx "github.com/chatwright/chatwright/agent/contract"
)

// ClassifyIntent produces the turn's single UserIntent. Classification
// failures degrade to a zero-confidence general intent so the turn still
// completes with a general reply.
func ClassifyIntent(ctx context.Context, st *GraphState, deps Deps) (*GraphState, error) {
	intent, err := deps.Classifier.Classify(ctx, contractx.ClassifyRequest{
		Domain:  st.Snapshot.Domain,
		Message: st.Message,
		Window:  st.Snapshot.Window,
		Context: st.Snapshot.Context,
	})
	if err != nil {
		log.Warn().Err(err).Str("session_id", st.Snapshot.SessionID).
			Msg("classification degraded to general conversation")
		intent = contractx.UserIntent{
			ConversationType: contractx.ConversationGeneral,
			Confidence:       0,
			Entities:         map[string]any{},
		}
	}

	st.Intent = intent
	st.Snapshot.Intent = intent
	return st, nil
}
