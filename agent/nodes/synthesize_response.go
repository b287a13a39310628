package nodes

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	contractx "github.com/chatwright/chatwright/agent/contract"
	"github.com/chatwright/chatwright/agent/synthesizer"
)

// SynthesizeResponse merges the handler responses into the turn's single
// UnifiedResponse and stamps the assistant message derived from it.
func SynthesizeResponse(st *GraphState, deps Deps) (*GraphState, error) {
	st.Unified = synthesizer.Synthesize(st.Responses)

	var payload map[string]any
	if st.Unified.Payload != nil || len(st.Unified.QuickReplies) > 0 {
		payload = map[string]any{"format": st.Unified.Format}
		if st.Unified.Payload != nil {
			payload["data"] = st.Unified.Payload
		}
		if len(st.Unified.QuickReplies) > 0 {
			payload["quick_replies"] = st.Unified.QuickReplies
		}
		if _, err := json.Marshal(payload); err != nil {
			log.Warn().Err(err).Str("session_id", st.Snapshot.SessionID).Msg("response payload not serializable, dropped")
			payload = map[string]any{"format": st.Unified.Format}
		}
	}

	st.AssistantMessage = contractx.Message{
		ID:        deps.NewID(),
		Role:      contractx.RoleAssistant,
		Content:   st.Unified.Message,
		Payload:   payload,
		Timestamp: deps.Now().UTC(),
	}
	return st, nil
}
