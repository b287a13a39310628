package capability

import (
	"context"
	"fmt"
	"strings"

	contractx "github.com/chatwright/chatwright/agent/contract"
	schemax "github.com/chatwright/chatwright/agent/schema"
)

// ClarifyHandler asks the user for the parameters a dependent action is
// missing. It renders a form when the domain has field definitions for the
// missing names, otherwise a plain question.
type ClarifyHandler struct{}

var _ contractx.Handler = (*ClarifyHandler)(nil)

func (h *ClarifyHandler) Execute(_ context.Context, action contractx.AgentAction, snap contractx.TurnSnapshot) contractx.AgentResponse {
	missing := paramStrings(action.Params, "missing_params")
	if len(missing) == 0 {
		return contractx.AgentResponse{
			Capability: contractx.CapabilityClarify,
			Content:    "Could you tell me a bit more about what you're looking for?",
			Format:     contractx.FormatText,
			Success:    true,
		}
	}

	desc := schemax.For(snap.Domain)
	fields := make([]schemax.FormField, 0, len(missing))
	for _, name := range missing {
		field, ok := desc.FormFields[name]
		if !ok {
			field = schemax.FormField{Name: name, Label: labelFor(name), Type: "text", Required: true}
		}
		field.Required = true
		fields = append(fields, field)
	}

	labels := make([]string, 0, len(fields))
	for _, f := range fields {
		labels = append(labels, strings.ToLower(f.Label))
	}

	return contractx.AgentResponse{
		Capability: contractx.CapabilityClarify,
		Content:    fmt.Sprintf("Before I can help with that, could you share your %s?", strings.Join(labels, " and ")),
		Format:     contractx.FormatForm,
		Payload: map[string]any{
			"form": map[string]any{
				"title":  "A few quick details",
				"fields": fields,
			},
		},
		Success: true,
	}
}

func labelFor(name string) string {
	label := strings.ReplaceAll(name, "_", " ")
	if label == "" {
		return label
	}
	return strings.ToUpper(label[:1]) + label[1:]
}
