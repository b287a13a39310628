// Package coordinator fans a plan out to capability handlers and joins the
// results in plan order. One failing, panicking, or slow handler never takes
// down its siblings: each action runs under its own deadline, panics are
// converted into failed responses, and the join always yields exactly one
// response per planned action.
package coordinator

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	contractx "github.com/chatwright/chatwright/agent/contract"
)

// HandlerRegistry resolves capabilities to handlers. *capability.Registry is
// the production implementation.
type HandlerRegistry interface {
	Lookup(c contractx.Capability) (contractx.Handler, bool)
}

const (
	defaultMaxParallel   = 4
	defaultActionTimeout = 15 * time.Second
)

// Coordinator dispatches planned actions concurrently with a bounded degree
// of parallelism.
type Coordinator struct {
	registry    HandlerRegistry
	maxParallel int64
	timeout     time.Duration
}

var _ contractx.Dispatcher = (*Coordinator)(nil)

type Option func(*Coordinator)

// WithMaxParallel bounds how many handlers run at once.
func WithMaxParallel(n int) Option {
	return func(c *Coordinator) {
		if n > 0 {
			c.maxParallel = int64(n)
		}
	}
}

// WithActionTimeout sets the per-action deadline.
func WithActionTimeout(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func New(registry HandlerRegistry, opts ...Option) *Coordinator {
	c := &Coordinator{
		registry:    registry,
		maxParallel: defaultMaxParallel,
		timeout:     defaultActionTimeout,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Execute runs the plan and returns one response per action, in plan order.
func (c *Coordinator) Execute(ctx context.Context, plan []contractx.AgentAction, snap contractx.TurnSnapshot) []contractx.AgentResponse {
	if len(plan) == 0 {
		return nil
	}

	indexByID := make(map[string]int, len(plan))
	for i, action := range plan {
		indexByID[action.ID] = i
	}
	invalid := invalidDependencies(plan, indexByID)

	results := make([]contractx.AgentResponse, len(plan))
	done := make([]chan struct{}, len(plan))
	for i := range done {
		done[i] = make(chan struct{})
	}

	sem := semaphore.NewWeighted(c.maxParallel)

	for i, action := range plan {
		if invalid[i] {
			results[i] = dependencyFailureResponse(action)
			close(done[i])
			continue
		}
		go func(i int, action contractx.AgentAction) {
			defer close(done[i])

			// Dependency wait happens before the semaphore so a waiting
			// dependent never starves the action it waits on.
			if action.DependsOn != "" {
				depIdx := indexByID[action.DependsOn]
				select {
				case <-done[depIdx]:
					if dep := results[depIdx]; dep.Success {
						action.Params = mergeDependency(action.Params, dep)
					}
				case <-ctx.Done():
					results[i] = timeoutResponse(action)
					return
				}
			}

			if err := sem.Acquire(ctx, 1); err != nil {
				results[i] = timeoutResponse(action)
				return
			}
			defer sem.Release(1)

			results[i] = c.run(ctx, action, snap)
		}(i, action)
	}

	for i := range done {
		<-done[i]
	}
	return results
}

// run executes one action under its deadline, retrying read-only
// capabilities once on timeout.
func (c *Coordinator) run(ctx context.Context, action contractx.AgentAction, snap contractx.TurnSnapshot) contractx.AgentResponse {
	handler, ok := c.registry.Lookup(action.Capability)
	if !ok {
		log.Error().Str("capability", string(action.Capability)).Str("action_id", action.ID).
			Msg("no handler registered")
		return contractx.AgentResponse{
			Capability: action.Capability,
			Content:    "I can't help with that particular request yet.",
			Format:     contractx.FormatError,
			Success:    false,
		}
	}

	resp, timedOut := c.runOnce(ctx, handler, action, snap)
	if timedOut && readOnly(action.Capability) {
		log.Warn().Str("capability", string(action.Capability)).Str("action_id", action.ID).
			Msg("action timed out, retrying once")
		resp, timedOut = c.runOnce(ctx, handler, action, snap)
	}
	if timedOut {
		log.Warn().Err(contractx.ErrHandlerTimeout).Str("capability", string(action.Capability)).
			Str("action_id", action.ID).Msg("action abandoned")
		return timeoutResponse(action)
	}
	return resp
}

func (c *Coordinator) runOnce(ctx context.Context, handler contractx.Handler, action contractx.AgentAction, snap contractx.TurnSnapshot) (contractx.AgentResponse, bool) {
	runCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	out := make(chan contractx.AgentResponse, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Error().Str("capability", string(action.Capability)).Str("action_id", action.ID).
					Interface("panic", r).Msg("handler panicked")
				out <- contractx.AgentResponse{
					Capability: action.Capability,
					Content:    "Something went wrong with part of your request.",
					Format:     contractx.FormatError,
					Success:    false,
				}
			}
		}()
		out <- handler.Execute(runCtx, action, snap)
	}()

	select {
	case resp := <-out:
		return resp, false
	case <-runCtx.Done():
		return contractx.AgentResponse{}, true
	}
}

// invalidDependencies marks actions whose declared dependency can never be
// satisfied: a reference to an action outside the plan, or membership in a
// dependency cycle. Those actions fail instead of running; their done
// channels still close so dependents never block.
func invalidDependencies(plan []contractx.AgentAction, indexByID map[string]int) map[int]bool {
	invalid := make(map[int]bool)
	for i, action := range plan {
		dep := action.DependsOn
		if dep == "" {
			continue
		}
		if _, ok := indexByID[dep]; !ok {
			log.Warn().Str("action_id", action.ID).Str("depends_on", dep).
				Msg("dependency references unknown action")
			invalid[i] = true
			continue
		}
		if onCycle(plan, indexByID, i) {
			log.Warn().Str("action_id", action.ID).Msg("dependency cycle")
			invalid[i] = true
		}
	}
	return invalid
}

// onCycle reports whether the dependency chain starting at start returns to
// start.
func onCycle(plan []contractx.AgentAction, indexByID map[string]int, start int) bool {
	cur := start
	for range plan {
		dep := plan[cur].DependsOn
		if dep == "" {
			return false
		}
		next, ok := indexByID[dep]
		if !ok {
			return false
		}
		if next == start {
			return true
		}
		cur = next
	}
	return false
}

func dependencyFailureResponse(action contractx.AgentAction) contractx.AgentResponse {
	return contractx.AgentResponse{
		Capability: action.Capability,
		Content:    "Part of your request depends on a step that couldn't be planned correctly.",
		Format:     contractx.FormatError,
		Success:    false,
	}
}

// mergeDependency folds a successful upstream result into the dependent
// action's parameters without overwriting what the planner set.
func mergeDependency(params map[string]any, dep contractx.AgentResponse) map[string]any {
	out := make(map[string]any, len(params)+2)
	for k, v := range params {
		out[k] = v
	}
	if _, exists := out["dependency_result"]; !exists && dep.Payload != nil {
		out["dependency_result"] = dep.Payload
	}
	if _, exists := out["dependency_content"]; !exists && dep.Content != "" {
		out["dependency_content"] = dep.Content
	}
	return out
}

func timeoutResponse(action contractx.AgentAction) contractx.AgentResponse {
	return contractx.AgentResponse{
		Capability: action.Capability,
		Content:    fmt.Sprintf("That part of your request (%s) took too long. Please try again.", action.Capability),
		Format:     contractx.FormatError,
		Success:    false,
	}
}

// readOnly reports whether a capability only queries records, making a
// timeout retry safe.
func readOnly(c contractx.Capability) bool {
	switch c {
	case contractx.CapabilityDiscover, contractx.CapabilityGetDetails, contractx.CapabilityCompare:
		return true
	default:
		return false
	}
}
