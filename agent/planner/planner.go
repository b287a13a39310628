// Package planner turns a classified UserIntent into a non-empty ordered
// AgentAction plan. Candidate actions come from the reasoning gateway; a
// deterministic validation pass then remaps unknown capabilities, removes
// duplicates, and injects clarify_params ahead of any action whose mandatory
// parameters are not satisfied, so the system asks before acting on
// incomplete input. Malformed or empty planner output degrades to a single
// general_response action — never an empty plan.
package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	contractx "github.com/chatwright/chatwright/agent/contract"
	gatewayx "github.com/chatwright/chatwright/agent/gateway"
	promptx "github.com/chatwright/chatwright/agent/prompt"
	schemax "github.com/chatwright/chatwright/agent/schema"
)

type llmPlan struct {
	Actions []llmAction `json:"actions"`
}

type llmAction struct {
	Capability string         `json:"capability"`
	Params     map[string]any `json:"params,omitempty"`
	Priority   int            `json:"priority"`
	DependsOn  *int           `json:"depends_on,omitempty"`
}

type Planner struct {
	gw    *gatewayx.Structured[llmPlan]
	newID func() string
}

var _ contractx.ActionPlanner = (*Planner)(nil)

func New(ctx context.Context, chatModel einomodel.BaseChatModel, opts ...gatewayx.Option) (*Planner, error) {
	prompts := promptx.LoadPromptSet()
	gw, err := gatewayx.NewStructured[llmPlan](ctx, chatModel, prompts.Planner, "planner.model_graph", opts...)
	if err != nil {
		return nil, err
	}
	return &Planner{gw: gw, newID: uuid.NewString}, nil
}

// Plan never returns an empty plan: gateway failures and malformed output are
// logged and degraded to the general_response fallback.
func (p *Planner) Plan(ctx context.Context, req contractx.PlanRequest) ([]contractx.AgentAction, error) {
	desc := schemax.For(req.Domain)

	payload := map[string]any{
		"intent":           req.Intent,
		"current_context":  req.Context,
		"capabilities":     desc.Capabilities,
		"mandatory_params": desc.MandatoryParams,
	}

	out, err := p.gw.Complete(ctx, payload)
	if err != nil {
		log.Warn().Err(fmt.Errorf("%w: %v", contractx.ErrPlanning, err)).
			Str("domain", string(req.Domain)).Msg("planner degraded to general_response")
		return p.fallbackPlan(), nil
	}

	plan := p.validate(out.Actions, desc, req)
	if len(plan) == 0 {
		log.Debug().Str("domain", string(req.Domain)).Msg("nothing actionable planned, using fallback")
		return p.fallbackPlan(), nil
	}
	return plan, nil
}

func (p *Planner) fallbackPlan() []contractx.AgentAction {
	return []contractx.AgentAction{{
		ID:         p.newID(),
		Capability: contractx.CapabilityGeneral,
		Params:     map[string]any{},
		Priority:   1,
	}}
}

// validate applies the deterministic post-pass over raw gateway output.
func (p *Planner) validate(raw []llmAction, desc schemax.Descriptor, req contractx.PlanRequest) []contractx.AgentAction {
	type candidate struct {
		action contractx.AgentAction
		rawDep *int
	}

	seen := make(map[string]struct{}, len(raw))
	candidates := make([]candidate, 0, len(raw))
	idByRawIndex := make(map[int]string, len(raw))

	for i, ra := range raw {
		capability := contractx.Capability(strings.ToLower(strings.TrimSpace(ra.Capability)))
		if !desc.HasCapability(capability) {
			remapped := defaultCapability(req.Intent.ConversationType)
			log.Debug().Str("capability", ra.Capability).Str("remapped", string(remapped)).
				Msg("unknown capability remapped")
			capability = remapped
		}

		params := mergeParams(ra.Params, capability, desc, req)

		key := dedupeKey(capability, params)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		priority := ra.Priority
		if priority < 1 {
			priority = 1
		}

		id := p.newID()
		idByRawIndex[i] = id
		candidates = append(candidates, candidate{
			action: contractx.AgentAction{
				ID:         id,
				Capability: capability,
				Params:     params,
				Priority:   priority,
			},
			rawDep: ra.DependsOn,
		})
	}

	plan := make([]contractx.AgentAction, 0, 2*len(candidates))
	for _, c := range candidates {
		if c.rawDep != nil {
			if depID, ok := idByRawIndex[*c.rawDep]; ok && depID != c.action.ID {
				c.action.DependsOn = depID
			}
		}

		if missing := missingMandatory(c.action, desc); len(missing) > 0 {
			plan = append(plan, contractx.AgentAction{
				ID:         p.newID(),
				Capability: contractx.CapabilityClarify,
				Params: map[string]any{
					"missing_params": missing,
					"context":        c.action.Params,
				},
				Priority: c.action.Priority + 1,
			})
		}
		plan = append(plan, c.action)
	}

	sort.SliceStable(plan, func(a, b int) bool {
		return plan[a].Priority > plan[b].Priority
	})
	return plan
}

// mergeParams copies intent entities and accumulated context values into the
// action's parameters for any mandatory name the gateway left out.
func mergeParams(params map[string]any, capability contractx.Capability, desc schemax.Descriptor, req contractx.PlanRequest) map[string]any {
	out := make(map[string]any, len(params)+2)
	for k, v := range params {
		out[k] = v
	}
	for _, name := range desc.Mandatory(capability) {
		if hasValue(out, name) {
			continue
		}
		if v, ok := req.Intent.Entities[name]; ok && v != nil {
			out[name] = v
			continue
		}
		if v, ok := req.Context[name]; ok && v != nil {
			out[name] = v
		}
	}
	return out
}

// missingMandatory lists mandatory parameters still absent after the merge.
// The clarify capability itself is exempt: it exists to ask for them.
func missingMandatory(a contractx.AgentAction, desc schemax.Descriptor) []string {
	if a.Capability == contractx.CapabilityClarify {
		return nil
	}
	var missing []string
	for _, name := range desc.Mandatory(a.Capability) {
		if !hasValue(a.Params, name) {
			missing = append(missing, name)
		}
	}
	return missing
}

func hasValue(m map[string]any, key string) bool {
	v, ok := m[key]
	if !ok || v == nil {
		return false
	}
	if s, isStr := v.(string); isStr && strings.TrimSpace(s) == "" {
		return false
	}
	return true
}

func dedupeKey(capability contractx.Capability, params map[string]any) string {
	encoded, err := json.Marshal(params)
	if err != nil {
		encoded = []byte(fmt.Sprint(params))
	}
	return string(capability) + "|" + string(encoded)
}

func defaultCapability(ct contractx.ConversationType) contractx.Capability {
	switch ct {
	case contractx.ConversationProductDiscovery:
		return contractx.CapabilityDiscover
	case contractx.ConversationProductDetail:
		return contractx.CapabilityGetDetails
	case contractx.ConversationProcessQuestions:
		return contractx.CapabilityStatus
	default:
		return contractx.CapabilityGeneral
	}
}
