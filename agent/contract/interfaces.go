package contract

import "context"

// IntentClassifier produces exactly one UserIntent per turn.
type IntentClassifier interface {
	Classify(ctx context.Context, req ClassifyRequest) (UserIntent, error)
}

// ActionPlanner turns a classified intent into a non-empty ordered plan.
type ActionPlanner interface {
	Plan(ctx context.Context, req PlanRequest) ([]AgentAction, error)
}

// Handler executes one capability. It must never fail past its own boundary:
// internal errors are converted into a failed AgentResponse.
type Handler interface {
	Execute(ctx context.Context, action AgentAction, snap TurnSnapshot) AgentResponse
}

// Dispatcher fans a plan out to handlers and joins the results in plan order.
type Dispatcher interface {
	Execute(ctx context.Context, plan []AgentAction, snap TurnSnapshot) []AgentResponse
}
