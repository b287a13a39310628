package contract

import "time"

// Domain selects the business configuration profile: vocabulary, mandatory
// parameters, and registered capability handlers.
type Domain string

const (
	DomainEcommerce  Domain = "ecommerce"
	DomainHotel      Domain = "hotel"
	DomainRealEstate Domain = "real_estate"
	DomainRental     Domain = "rental"
	DomainGeneric    Domain = "generic"
)

type ConversationType string

const (
	ConversationCompanyInfo      ConversationType = "company_info"
	ConversationProductDiscovery ConversationType = "product_discovery"
	ConversationProductDetail    ConversationType = "product_detail"
	ConversationProcessQuestions ConversationType = "process_questions"
	ConversationGeneral          ConversationType = "general_conversation"
)

// Capability names a unit of business logic a handler performs.
type Capability string

const (
	CapabilityDiscover     Capability = "discover"
	CapabilityGetDetails   Capability = "get_details"
	CapabilityCompare      Capability = "compare"
	CapabilityClarify      Capability = "clarify_params"
	CapabilityGenerateForm Capability = "generate_form"
	CapabilityGeneral      Capability = "general_response"
	CapabilityStatus       Capability = "process_status"
)

type ResponseFormat string

const (
	FormatText         ResponseFormat = "text"
	FormatQuickReplies ResponseFormat = "quick_replies"
	FormatCarousel     ResponseFormat = "carousel"
	FormatForm         ResponseFormat = "form"
	FormatDetail       ResponseFormat = "product_detail"
	FormatComparison   ResponseFormat = "product_comparison"
	FormatError        ResponseFormat = "error"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of a session's conversation history. Immutable once
// appended to the ConversationState.
type Message struct {
	ID        string         `json:"id"`
	Role      Role           `json:"role"`
	Content   string         `json:"content"`
	Payload   map[string]any `json:"payload,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// UserIntent is the classification result for a single turn. Exactly one is
// produced per turn.
type UserIntent struct {
	ConversationType ConversationType `json:"conversation_type"`
	Confidence       float64          `json:"confidence"`
	Entities         map[string]any   `json:"entities,omitempty"`
}

// AgentAction is one planned unit of work. Higher priority means more urgent;
// ties keep plan insertion order. DependsOn optionally references a sibling
// action's ID within the same plan.
type AgentAction struct {
	ID         string         `json:"id"`
	Capability Capability     `json:"capability"`
	Params     map[string]any `json:"params,omitempty"`
	Priority   int            `json:"priority"`
	DependsOn  string         `json:"depends_on,omitempty"`
}

// AgentResponse is a single handler's result. A failed handler still yields a
// well-formed response with Success=false and FormatError.
type AgentResponse struct {
	Capability   Capability     `json:"capability"`
	Content      string         `json:"content"`
	Format       ResponseFormat `json:"format"`
	Payload      map[string]any `json:"payload,omitempty"`
	QuickReplies []string       `json:"quick_replies,omitempty"`
	Success      bool           `json:"success"`
}

// UnifiedResponse is the single payload returned per turn, merging all
// contributing AgentResponses.
type UnifiedResponse struct {
	Format       ResponseFormat `json:"format"`
	Message      string         `json:"message"`
	Payload      map[string]any `json:"payload,omitempty"`
	QuickReplies []string       `json:"quick_replies,omitempty"`
}

// TurnSnapshot is the read-only view of a session taken when execution
// starts. Handlers receive it instead of the live ConversationState, which
// only the orchestrator mutates.
type TurnSnapshot struct {
	SessionID string
	Domain    Domain
	Intent    UserIntent
	// Message is the inbound user text for this turn. Window holds the prior
	// history only.
	Message string
	Window  []Message
	Context map[string]any
}

// ContextValue looks up a key in the accumulated turn context.
func (s TurnSnapshot) ContextValue(key string) (any, bool) {
	if s.Context == nil {
		return nil, false
	}
	v, ok := s.Context[key]
	return v, ok
}

type ClassifyRequest struct {
	Domain  Domain
	Message string
	Window  []Message
	Context map[string]any
}

type PlanRequest struct {
	Domain  Domain
	Intent  UserIntent
	Context map[string]any
}
