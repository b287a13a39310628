package nodes

import (
	"fmt"
	"strings"

	contractx "github.com/chatwright/chatwright/agent/contract"
	statex "github.com/chatwright/chatwright/agent/state"
)

// ValidateRequest checks the inbound message, stamps the user message, and
// snapshots the session state the rest of the graph works from.
func ValidateRequest(in GraphInput, deps Deps) (*GraphState, error) {
	message := strings.TrimSpace(in.Message)
	if message == "" {
		return nil, fmt.Errorf("%w: %v", contractx.ErrValidation, ErrInvalidMessage)
	}
	if in.Turn == nil {
		return nil, fmt.Errorf("%w: turn handle is required", contractx.ErrValidation)
	}

	st := &GraphState{
		Turn:    in.Turn,
		Message: message,
		UserMessage: contractx.Message{
			ID:        deps.NewID(),
			Role:      contractx.RoleUser,
			Content:   message,
			Timestamp: deps.Now().UTC(),
		},
		Snapshot: contractx.TurnSnapshot{
			SessionID: in.Turn.SessionID,
			Domain:    in.Turn.Domain,
			Message:   message,
			Window:    statex.Window(in.Turn.Messages, deps.Window),
			Context:   in.Turn.Context,
		},
	}
	return st, nil
}
