package capability

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	contractx "github.com/chatwright/chatwright/agent/contract"
	gatewayx "github.com/chatwright/chatwright/agent/gateway"
	"github.com/chatwright/chatwright/catalog"
)

type compareSummary struct {
	Summary        string `json:"summary"`
	Recommendation string `json:"recommendation"`
}

// CompareHandler fetches two or more products and builds a side-by-side
// comparison. The gateway adds a narrative summary when available; a gateway
// failure degrades to the deterministic table, never to a failed response.
type CompareHandler struct {
	repo catalog.Repository
	gw   *gatewayx.Structured[compareSummary]
}

var _ contractx.Handler = (*CompareHandler)(nil)

func (h *CompareHandler) Execute(ctx context.Context, action contractx.AgentAction, snap contractx.TurnSnapshot) contractx.AgentResponse {
	names := paramStrings(action.Params, "products")
	if len(names) < 2 {
		return contractx.AgentResponse{
			Capability:   contractx.CapabilityCompare,
			Content:      "I need at least two products to compare. Which ones are you deciding between?",
			Format:       contractx.FormatQuickReplies,
			QuickReplies: []string{"Show me recommendations", "Browse options"},
			Success:      true,
		}
	}

	var (
		found   []catalog.Product
		missing []string
	)
	for _, name := range names {
		product, err := h.repo.ByName(ctx, snap.Domain, name)
		if errors.Is(err, catalog.ErrNotFound) {
			missing = append(missing, name)
			continue
		}
		if err != nil {
			log.Error().Err(err).Str("session_id", snap.SessionID).Msg("catalog lookup failed")
			return failed(contractx.CapabilityCompare, "Comparison is temporarily unavailable. Please try again shortly.")
		}
		found = append(found, *product)
	}

	if len(found) < 2 {
		return contractx.AgentResponse{
			Capability: contractx.CapabilityCompare,
			Content: fmt.Sprintf("I could only find %d of those products (missing: %s). Could you check the names?",
				len(found), strings.Join(missing, ", ")),
			Format:       contractx.FormatQuickReplies,
			QuickReplies: []string{"Show me recommendations", "Browse options"},
			Success:      true,
		}
	}

	rows := make([]map[string]any, 0, len(found))
	for _, p := range found {
		rows = append(rows, map[string]any{
			"id":       p.ID,
			"name":     p.Name,
			"price":    p.Price,
			"rating":   p.Rating,
			"brand":    p.Brand,
			"category": p.Category,
			"in_stock": p.InStock,
		})
	}

	content := deterministicSummary(found)
	payload := map[string]any{"products": rows}
	if len(missing) > 0 {
		payload["not_found"] = missing
	}

	if h.gw != nil {
		out, err := h.gw.Complete(ctx, map[string]any{"products": found})
		if err != nil {
			log.Warn().Err(err).Str("session_id", snap.SessionID).Msg("comparison summary degraded")
		} else if strings.TrimSpace(out.Summary) != "" {
			content = strings.TrimSpace(out.Summary)
			if rec := strings.TrimSpace(out.Recommendation); rec != "" {
				payload["recommendation"] = rec
			}
		}
	}

	return contractx.AgentResponse{
		Capability:   contractx.CapabilityCompare,
		Content:      content,
		Format:       contractx.FormatComparison,
		Payload:      payload,
		QuickReplies: []string{"Show me details", "Which is cheaper?", "Browse more options"},
		Success:      true,
	}
}

func deterministicSummary(products []catalog.Product) string {
	cheapest, best := products[0], products[0]
	for _, p := range products[1:] {
		if p.Price < cheapest.Price {
			cheapest = p
		}
		if p.Rating > best.Rating {
			best = p
		}
	}
	names := make([]string, 0, len(products))
	for _, p := range products {
		names = append(names, p.Name)
	}
	return fmt.Sprintf("Comparing %s: %s is the cheapest at $%.2f, while %s has the best rating at %.1f/5.",
		strings.Join(names, " vs "), cheapest.Name, cheapest.Price, best.Name, best.Rating)
}
