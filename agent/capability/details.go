package capability

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	contractx "github.com/chatwright/chatwright/agent/contract"
	"github.com/chatwright/chatwright/catalog"
)

// DetailsHandler looks one product up by id or name and renders a detail
// card. A miss is a polite successful reply so the turn still answers.
type DetailsHandler struct {
	repo catalog.Repository
}

var _ contractx.Handler = (*DetailsHandler)(nil)

func (h *DetailsHandler) Execute(ctx context.Context, action contractx.AgentAction, snap contractx.TurnSnapshot) contractx.AgentResponse {
	var (
		product *catalog.Product
		err     error
	)
	if id := paramString(action.Params, "product_id"); id != "" {
		product, err = h.repo.ByID(ctx, snap.Domain, id)
	} else if name := paramString(action.Params, "product_name"); name != "" {
		product, err = h.repo.ByName(ctx, snap.Domain, name)
	} else {
		return contractx.AgentResponse{
			Capability:   contractx.CapabilityGetDetails,
			Content:      "Which product would you like details on?",
			Format:       contractx.FormatQuickReplies,
			QuickReplies: []string{"Show me recommendations", "Browse options"},
			Success:      true,
		}
	}

	if errors.Is(err, catalog.ErrNotFound) {
		return contractx.AgentResponse{
			Capability:   contractx.CapabilityGetDetails,
			Content:      "I couldn't find that product. Could you check the name, or browse what we have?",
			Format:       contractx.FormatQuickReplies,
			QuickReplies: []string{"Show me recommendations", "Browse options"},
			Success:      true,
		}
	}
	if err != nil {
		log.Error().Err(err).Str("session_id", snap.SessionID).Msg("catalog lookup failed")
		return failed(contractx.CapabilityGetDetails, "Product details are temporarily unavailable. Please try again shortly.")
	}

	stock := "In stock"
	if !product.InStock {
		stock = "Currently out of stock"
	}

	return contractx.AgentResponse{
		Capability: contractx.CapabilityGetDetails,
		Content:    fmt.Sprintf("%s: %s. %s at $%.2f, rated %.1f/5.", product.Name, product.Description, stock, product.Price, product.Rating),
		Format:     contractx.FormatDetail,
		Payload: map[string]any{
			"product": product,
		},
		QuickReplies: []string{"Compare with similar products", "Check availability", "Show me alternatives"},
		Success:      true,
	}
}
