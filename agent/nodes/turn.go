// Package nodes holds the per-node logic of the turn-handling graph. Each
// node is a plain function over *GraphState so it is testable without
// compiling the graph.
package nodes

import (
	"errors"
	"time"

	contractx "github.com/chatwright/chatwright/agent/contract"
	statex "github.com/chatwright/chatwright/agent/state"
)

var ErrInvalidMessage = errors.New("message is empty")

// GraphInput enters the turn graph. Turn is the already-acquired store
// handle: acquiring it outside the graph lets the caller release the gate
// and record the error path even when the graph fails.
type GraphInput struct {
	Turn    *statex.Turn
	Message string
}

// GraphState is threaded through the turn graph, accumulating the turn's
// artifacts node by node.
type GraphState struct {
	Turn    *statex.Turn
	Message string

	UserMessage contractx.Message
	Snapshot    contractx.TurnSnapshot

	Intent    contractx.UserIntent
	Plan      []contractx.AgentAction
	Responses []contractx.AgentResponse
	Unified   contractx.UnifiedResponse

	AssistantMessage contractx.Message
}

// GraphOutput leaves the turn graph.
type GraphOutput struct {
	Response contractx.UnifiedResponse
	Intent   contractx.UserIntent
}

// Deps carries the orchestrator-owned collaborators nodes need.
type Deps struct {
	Store      *statex.Store
	Classifier contractx.IntentClassifier
	Planner    contractx.ActionPlanner
	Dispatcher contractx.Dispatcher

	Window int
	NewID  func() string
	Now    func() time.Time
}
