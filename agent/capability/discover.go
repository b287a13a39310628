package capability

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	contractx "github.com/chatwright/chatwright/agent/contract"
	schemax "github.com/chatwright/chatwright/agent/schema"
	"github.com/chatwright/chatwright/catalog"
)

// DiscoverHandler searches the catalog and renders results as a carousel.
// An empty result is a successful turn with browsing suggestions, not a
// failure.
type DiscoverHandler struct {
	repo catalog.Repository
}

var _ contractx.Handler = (*DiscoverHandler)(nil)

func (h *DiscoverHandler) Execute(ctx context.Context, action contractx.AgentAction, snap contractx.TurnSnapshot) contractx.AgentResponse {
	query := catalog.SearchQuery{
		Domain:   snap.Domain,
		Text:     paramString(action.Params, "query"),
		Category: paramString(action.Params, "category"),
		Brand:    paramString(action.Params, "brand"),
		MinPrice: paramFloat(action.Params, "min_price"),
		MaxPrice: paramFloat(action.Params, "max_price"),
	}
	if query.MinPrice == 0 && query.MaxPrice == 0 {
		query.MinPrice, query.MaxPrice = parseBudgetRange(paramString(action.Params, "budget_range"))
	}

	products, err := h.repo.Search(ctx, query)
	if err != nil {
		log.Error().Err(err).Str("session_id", snap.SessionID).Msg("catalog search failed")
		return failed(contractx.CapabilityDiscover, "Our catalog is temporarily unavailable. Please try again shortly.")
	}

	if len(products) == 0 {
		desc := schemax.For(snap.Domain)
		return contractx.AgentResponse{
			Capability:   contractx.CapabilityDiscover,
			Content:      "I couldn't find anything matching that. Want to try a different search?",
			Format:       contractx.FormatQuickReplies,
			QuickReplies: desc.QuickReplies[contractx.ConversationProductDiscovery],
			Success:      true,
		}
	}

	items := make([]map[string]any, 0, len(products))
	for _, p := range products {
		items = append(items, carouselItem(p))
	}

	return contractx.AgentResponse{
		Capability: contractx.CapabilityDiscover,
		Content:    fmt.Sprintf("Here are %d options I found for you.", len(products)),
		Format:     contractx.FormatCarousel,
		Payload:    map[string]any{"items": items},
		QuickReplies: []string{
			"Show more", "Filter by price", "Compare top picks",
		},
		Success: true,
	}
}

func carouselItem(p catalog.Product) map[string]any {
	item := map[string]any{
		"id":       p.ID,
		"title":    p.Name,
		"subtitle": p.Description,
		"price":    p.Price,
		"rating":   p.Rating,
	}
	if p.ImageURL != "" {
		item["image_url"] = p.ImageURL
	}
	return item
}

// parseBudgetRange understands the quick-reply budget labels, e.g.
// "Under $500" or "$500-$1000".
func parseBudgetRange(label string) (min, max float64) {
	label = strings.ToLower(strings.ReplaceAll(label, "$", ""))
	label = strings.ReplaceAll(label, ",", "")
	switch {
	case label == "":
		return 0, 0
	case strings.HasPrefix(label, "under "):
		return 0, parseAmount(strings.TrimPrefix(label, "under "))
	case strings.HasPrefix(label, "over "):
		return parseAmount(strings.TrimPrefix(label, "over ")), 0
	case strings.Contains(label, "-"):
		parts := strings.SplitN(label, "-", 2)
		return parseAmount(parts[0]), parseAmount(parts[1])
	default:
		return 0, 0
	}
}

func parseAmount(s string) float64 {
	return paramFloat(map[string]any{"v": strings.TrimSpace(s)}, "v")
}
