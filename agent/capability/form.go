package capability

import (
	"context"

	"github.com/rs/zerolog/log"

	contractx "github.com/chatwright/chatwright/agent/contract"
	schemax "github.com/chatwright/chatwright/agent/schema"
	"github.com/chatwright/chatwright/catalog"
)

// FormHandler builds the domain's guided search form from its declared
// search fields, enriched with live category options from the catalog.
type FormHandler struct {
	repo catalog.Repository
}

var _ contractx.Handler = (*FormHandler)(nil)

func (h *FormHandler) Execute(ctx context.Context, _ contractx.AgentAction, snap contractx.TurnSnapshot) contractx.AgentResponse {
	desc := schemax.For(snap.Domain)

	fields := make([]schemax.FormField, 0, len(desc.SearchFields))
	for _, name := range desc.SearchFields {
		field, ok := desc.FormFields[name]
		if !ok {
			field = schemax.FormField{Name: name, Label: labelFor(name), Type: "text"}
		}
		if field.Name == "category" {
			if categories, err := h.repo.Categories(ctx, snap.Domain); err != nil {
				log.Warn().Err(err).Str("session_id", snap.SessionID).Msg("category options unavailable")
			} else if len(categories) > 0 {
				field.Type = "select"
				field.Options = categories
			}
		}
		fields = append(fields, field)
	}

	return contractx.AgentResponse{
		Capability: contractx.CapabilityGenerateForm,
		Content:    "Let's narrow things down. Fill in what matters to you:",
		Format:     contractx.FormatForm,
		Payload: map[string]any{
			"form": map[string]any{
				"title":  "Find the right match",
				"fields": fields,
			},
		},
		Success: true,
	}
}
