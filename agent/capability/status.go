package capability

import (
	"context"
	"fmt"
	"strings"

	contractx "github.com/chatwright/chatwright/agent/contract"
	schemax "github.com/chatwright/chatwright/agent/schema"
)

// StatusHandler explains where an order sits in the domain's process flow.
// Stage resolution is vocabulary-driven: the handler matches a reported stage
// against the descriptor's process stages and lays out what comes next.
type StatusHandler struct{}

var _ contractx.Handler = (*StatusHandler)(nil)

func (h *StatusHandler) Execute(_ context.Context, action contractx.AgentAction, snap contractx.TurnSnapshot) contractx.AgentResponse {
	orderID := paramString(action.Params, "order_id")
	if orderID == "" {
		desc := schemax.For(snap.Domain)
		field := desc.FormFields["order_id"]
		return contractx.AgentResponse{
			Capability: contractx.CapabilityStatus,
			Content:    "I can check on that. What's your order number?",
			Format:     contractx.FormatForm,
			Payload: map[string]any{
				"form": map[string]any{
					"title":  "Order lookup",
					"fields": []schemax.FormField{field},
				},
			},
			Success: true,
		}
	}

	desc := schemax.For(snap.Domain)
	stages := desc.ProcessStages

	current := strings.ToLower(paramString(action.Params, "stage"))
	currentIdx := -1
	for i, s := range stages {
		if s == current {
			currentIdx = i
			break
		}
	}
	if currentIdx < 0 {
		content := fmt.Sprintf("I'm looking into order %s.", orderID)
		if current != "" {
			content = fmt.Sprintf("I couldn't match %q to a known stage for order %s.", current, orderID)
		}
		if len(stages) > 0 {
			content += fmt.Sprintf(" The full process is: %s.", strings.Join(stages, ", then "))
		}
		return contractx.AgentResponse{
			Capability: contractx.CapabilityStatus,
			Content:    content,
			Format:     contractx.FormatText,
			Payload: map[string]any{
				"order_id": orderID,
				"stages":   stages,
			},
			QuickReplies: []string{"Notify me of updates", "Contact support"},
			Success:      true,
		}
	}

	remaining := stages[currentIdx:]
	content := fmt.Sprintf("Order %s is at the %s stage.", orderID, stages[currentIdx])
	if len(remaining) > 1 {
		content += fmt.Sprintf(" Next up: %s.", strings.Join(remaining[1:], ", then "))
	} else {
		content += " That's the final stage."
	}

	return contractx.AgentResponse{
		Capability: contractx.CapabilityStatus,
		Content:    content,
		Format:     contractx.FormatText,
		Payload: map[string]any{
			"order_id":      orderID,
			"current_stage": stages[currentIdx],
			"stages":        stages,
		},
		QuickReplies: []string{"Notify me of updates", "Contact support"},
		Success:      true,
	}
}
