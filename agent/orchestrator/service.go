// Package orchestrator owns the per-message turn pipeline: acquire the
// session's turn gate, run the graph (validate -> classify -> plan ->
// execute -> synthesize -> commit), and release the gate. Pipeline failures
// degrade inside the graph; only invalid input and store write failures
// reach the caller as errors.
package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	contractx "github.com/chatwright/chatwright/agent/contract"
	nodex "github.com/chatwright/chatwright/agent/nodes"
	statex "github.com/chatwright/chatwright/agent/state"
)

const defaultWindow = 5

var ErrInvalidMessage = nodex.ErrInvalidMessage

type Config struct {
	// Window is how many trailing messages the classifier sees. Zero means
	// the default of 5.
	Window int
}

type Orchestrator struct {
	store *statex.Store
	deps  nodex.Deps

	graphRunner compose.Runnable[nodex.GraphInput, nodex.GraphOutput]
}

func New(
	store *statex.Store,
	classifier contractx.IntentClassifier,
	planner contractx.ActionPlanner,
	dispatcher contractx.Dispatcher,
	cfg Config,
) (*Orchestrator, error) {
	if store == nil {
		return nil, errors.New("state store is required")
	}
	if classifier == nil {
		return nil, errors.New("intent classifier is required")
	}
	if planner == nil {
		return nil, errors.New("action planner is required")
	}
	if dispatcher == nil {
		return nil, errors.New("dispatcher is required")
	}

	window := cfg.Window
	if window <= 0 {
		window = defaultWindow
	}

	o := &Orchestrator{
		store: store,
		deps: nodex.Deps{
			Store:      store,
			Classifier: classifier,
			Planner:    planner,
			Dispatcher: dispatcher,
			Window:     window,
			NewID:      uuid.NewString,
			Now:        time.Now,
		},
	}

	graphRunner, err := o.compileTurnGraph(context.Background())
	if err != nil {
		return nil, err
	}
	o.graphRunner = graphRunner

	return o, nil
}

// ProcessTurn handles one user message end to end and returns the turn's
// UnifiedResponse. Concurrent calls for the same session serialize on the
// store's turn gate; distinct sessions run in parallel.
func (o *Orchestrator) ProcessTurn(ctx context.Context, sessionID string, domain contractx.Domain, message string) (contractx.UnifiedResponse, error) {
	turn, err := o.store.Begin(ctx, sessionID, domain)
	if err != nil {
		return contractx.UnifiedResponse{}, err
	}
	defer turn.End()

	out, err := o.graphRunner.Invoke(ctx, nodex.GraphInput{
		Turn:    turn,
		Message: message,
	})
	if err != nil {
		if errors.Is(err, contractx.ErrValidation) {
			return contractx.UnifiedResponse{}, err
		}

		log.Error().Err(err).Str("session_id", sessionID).Msg("turn failed")
		now := o.deps.Now().UTC()
		o.store.CommitError(ctx, turn,
			contractx.Message{
				ID:        o.deps.NewID(),
				Role:      contractx.RoleUser,
				Content:   message,
				Timestamp: now,
			},
			contractx.Message{
				ID:        o.deps.NewID(),
				Role:      contractx.RoleAssistant,
				Content:   "Sorry, something went wrong handling that. Please try again.",
				Payload:   map[string]any{"format": contractx.FormatError},
				Timestamp: now,
			},
		)
		return contractx.UnifiedResponse{
			Format:       contractx.FormatError,
			Message:      "Sorry, something went wrong handling that. Please try again.",
			QuickReplies: []string{"Try again", "Contact support"},
		}, err
	}

	return out.Response, nil
}

// History returns the session's conversation history in append order.
func (o *Orchestrator) History(sessionID string) []contractx.Message {
	return o.store.History(sessionID)
}

// Intent returns the session's last committed intent.
func (o *Orchestrator) Intent(sessionID string) (contractx.UserIntent, bool) {
	return o.store.Intent(sessionID)
}

// Clear drops the session's state. An in-flight turn for the session
// finishes against the old state but its commit is discarded.
func (o *Orchestrator) Clear(ctx context.Context, sessionID string) error {
	return o.store.Clear(ctx, sessionID)
}
