package capability

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	contractx "github.com/chatwright/chatwright/agent/contract"
	gatewayx "github.com/chatwright/chatwright/agent/gateway"
	schemax "github.com/chatwright/chatwright/agent/schema"
)

type generalReply struct {
	Message      string   `json:"message"`
	QuickReplies []string `json:"quick_replies,omitempty"`
}

// GeneralHandler answers conversational turns through the gateway. Without a
// gateway, or when it fails, it falls back to a canned greeting so the turn
// still completes.
type GeneralHandler struct {
	gw *gatewayx.Structured[generalReply]
}

var _ contractx.Handler = (*GeneralHandler)(nil)

func (h *GeneralHandler) Execute(ctx context.Context, _ contractx.AgentAction, snap contractx.TurnSnapshot) contractx.AgentResponse {
	desc := schemax.For(snap.Domain)
	fallbackReplies := desc.QuickReplies[contractx.ConversationGeneral]

	// Greetings and thanks don't need a model round trip.
	if reply, ok := cannedReply(snap.Message); ok {
		return contractx.AgentResponse{
			Capability:   contractx.CapabilityGeneral,
			Content:      reply,
			Format:       contractx.FormatQuickReplies,
			QuickReplies: fallbackReplies,
			Success:      true,
		}
	}

	if h.gw == nil {
		return fallbackResponse(fallbackReplies)
	}

	out, err := h.gw.Complete(ctx, map[string]any{
		"message":         snap.Message,
		"business_domain": snap.Domain,
		"intent":          snap.Intent,
		"current_context": snap.Context,
	})
	if err != nil {
		log.Warn().Err(err).Str("session_id", snap.SessionID).Msg("general reply degraded to canned response")
		return fallbackResponse(fallbackReplies)
	}

	message := strings.TrimSpace(out.Message)
	if message == "" {
		return fallbackResponse(fallbackReplies)
	}

	replies := out.QuickReplies
	format := contractx.FormatText
	if len(replies) > 0 {
		format = contractx.FormatQuickReplies
	}
	return contractx.AgentResponse{
		Capability:   contractx.CapabilityGeneral,
		Content:      message,
		Format:       format,
		QuickReplies: replies,
		Success:      true,
	}
}

// cannedReply matches short greeting and thanks messages that deserve an
// instant answer.
func cannedReply(message string) (string, bool) {
	trimmed := strings.ToLower(strings.TrimSpace(message))
	trimmed = strings.TrimRight(trimmed, "!.?")
	switch trimmed {
	case "hi", "hello", "hey", "good morning", "good afternoon", "good evening":
		return "Hello! How can I help you today?", true
	case "thanks", "thank you", "thx", "ty":
		return "You're welcome! Anything else I can help with?", true
	case "bye", "goodbye", "see you":
		return "Goodbye! Come back anytime.", true
	}
	return "", false
}

func fallbackResponse(replies []string) contractx.AgentResponse {
	format := contractx.FormatText
	if len(replies) > 0 {
		format = contractx.FormatQuickReplies
	}
	return contractx.AgentResponse{
		Capability:   contractx.CapabilityGeneral,
		Content:      "I'm here to help. What would you like to do?",
		Format:       format,
		QuickReplies: replies,
		Success:      true,
	}
}
