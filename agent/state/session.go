package state

import (
	"time"

	contractx "github.com/chatwright/chatwright/agent/contract"
)

// Session owns exactly one ConversationState. It is created on the first
// message for a session id and destroyed by an explicit clear (or an external
// TTL policy acting through the store).
type Session struct {
	ID           string           `json:"id"`
	Domain       contractx.Domain `json:"domain"`
	CreatedAt    time.Time        `json:"created_at"`
	LastActiveAt time.Time        `json:"last_active_at"`

	State ConversationState `json:"state"`
}

// ConversationState is mutated only by the turn orchestrator, once per
// completed turn, through Store.Commit.
type ConversationState struct {
	Messages   []contractx.Message   `json:"messages"`
	LastIntent *contractx.UserIntent `json:"last_intent,omitempty"`
	Context    map[string]any        `json:"context,omitempty"`
}

func newSession(id string, domain contractx.Domain, now time.Time) *Session {
	return &Session{
		ID:           id,
		Domain:       domain,
		CreatedAt:    now.UTC(),
		LastActiveAt: now.UTC(),
		State: ConversationState{
			Context: make(map[string]any),
		},
	}
}

func (s *Session) clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	out.State.Messages = append([]contractx.Message(nil), s.State.Messages...)
	out.State.Context = cloneMap(s.State.Context)
	if s.State.LastIntent != nil {
		intent := *s.State.LastIntent
		intent.Entities = cloneMap(intent.Entities)
		out.State.LastIntent = &intent
	}
	return &out
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Window returns the last k messages in chronological order. The classifier
// context window is always exactly this slice, regardless of history length.
func Window(messages []contractx.Message, k int) []contractx.Message {
	if k <= 0 || len(messages) == 0 {
		return nil
	}
	if len(messages) > k {
		messages = messages[len(messages)-k:]
	}
	return append([]contractx.Message(nil), messages...)
}
