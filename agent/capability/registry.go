// Package capability hosts the business-logic handlers behind the plan
// executor. Each handler serves exactly one capability and never returns an
// error past its boundary: failures become failed AgentResponses so one
// broken handler cannot take the turn down.
package capability

import (
	"context"
	"fmt"

	einomodel "github.com/cloudwego/eino/components/model"

	contractx "github.com/chatwright/chatwright/agent/contract"
	gatewayx "github.com/chatwright/chatwright/agent/gateway"
	promptx "github.com/chatwright/chatwright/agent/prompt"
	schemax "github.com/chatwright/chatwright/agent/schema"
	"github.com/chatwright/chatwright/catalog"
)

// Deps carries the shared dependencies handlers draw from. ChatModel is
// optional: without it the conversational handlers fall back to canned
// replies instead of gateway completions.
type Deps struct {
	Repo        catalog.Repository
	ChatModel   einomodel.BaseChatModel
	GatewayOpts []gatewayx.Option
}

// Registry maps capabilities to their handlers for one domain. Construction
// fails fast when the domain's capability vocabulary is not fully covered, so
// a missing handler is caught at startup rather than mid-conversation.
type Registry struct {
	domain   contractx.Domain
	handlers map[contractx.Capability]contractx.Handler
}

func NewRegistry(ctx context.Context, deps Deps, domain contractx.Domain) (*Registry, error) {
	if deps.Repo == nil {
		deps.Repo = catalog.NewMemoryRepository()
	}

	var generalGW *gatewayx.Structured[generalReply]
	var compareGW *gatewayx.Structured[compareSummary]
	if deps.ChatModel != nil {
		prompts := promptx.LoadPromptSet()
		var err error
		generalGW, err = gatewayx.NewStructured[generalReply](
			ctx, deps.ChatModel, prompts.General, "capability.general_graph", deps.GatewayOpts...)
		if err != nil {
			return nil, fmt.Errorf("build general gateway: %w", err)
		}
		compareGW, err = gatewayx.NewStructured[compareSummary](
			ctx, deps.ChatModel, prompts.Compare, "capability.compare_graph", deps.GatewayOpts...)
		if err != nil {
			return nil, fmt.Errorf("build compare gateway: %w", err)
		}
	}

	handlers := map[contractx.Capability]contractx.Handler{
		contractx.CapabilityDiscover:     &DiscoverHandler{repo: deps.Repo},
		contractx.CapabilityGetDetails:   &DetailsHandler{repo: deps.Repo},
		contractx.CapabilityCompare:      &CompareHandler{repo: deps.Repo, gw: compareGW},
		contractx.CapabilityClarify:      &ClarifyHandler{},
		contractx.CapabilityGenerateForm: &FormHandler{repo: deps.Repo},
		contractx.CapabilityGeneral:      &GeneralHandler{gw: generalGW},
		contractx.CapabilityStatus:       &StatusHandler{},
	}

	desc := schemax.For(domain)
	for _, c := range desc.Capabilities {
		if _, ok := handlers[c]; !ok {
			return nil, fmt.Errorf("%w: domain %s declares capability %s with no handler",
				contractx.ErrCapabilityNotFound, domain, c)
		}
	}

	return &Registry{domain: domain, handlers: handlers}, nil
}

// Lookup returns the handler for a capability.
func (r *Registry) Lookup(c contractx.Capability) (contractx.Handler, bool) {
	h, ok := r.handlers[c]
	return h, ok
}

func (r *Registry) Domain() contractx.Domain {
	return r.domain
}
