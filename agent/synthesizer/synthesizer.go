// Package synthesizer merges the per-action responses of a turn into the
// single UnifiedResponse the caller sees. The richest successful format wins
// the presentation; everything else contributes text, quick replies, and
// supplementary payload.
package synthesizer

import (
	"strings"

	contractx "github.com/chatwright/chatwright/agent/contract"
)

// formatPrecedence orders formats by presentation richness. Ties between
// responses of equal precedence keep plan order.
var formatPrecedence = map[contractx.ResponseFormat]int{
	contractx.FormatComparison:   6,
	contractx.FormatDetail:       5,
	contractx.FormatForm:         4,
	contractx.FormatCarousel:     3,
	contractx.FormatQuickReplies: 2,
	contractx.FormatText:         1,
	contractx.FormatError:        0,
}

const maxQuickReplies = 6

// Synthesize folds handler responses into one UnifiedResponse. It never
// fails: when every handler failed it returns an apology turn.
func Synthesize(responses []contractx.AgentResponse) contractx.UnifiedResponse {
	var successful []contractx.AgentResponse
	for _, r := range responses {
		if r.Success {
			successful = append(successful, r)
		}
	}

	if len(successful) == 0 {
		return allFailedResponse(responses)
	}

	primaryIdx := 0
	for i, r := range successful {
		if formatPrecedence[r.Format] > formatPrecedence[successful[primaryIdx].Format] {
			primaryIdx = i
		}
	}
	primary := successful[primaryIdx]

	parts := make([]string, 0, len(successful))
	if strings.TrimSpace(primary.Content) != "" {
		parts = append(parts, strings.TrimSpace(primary.Content))
	}
	for i, r := range successful {
		if i == primaryIdx {
			continue
		}
		if content := strings.TrimSpace(r.Content); content != "" {
			parts = append(parts, content)
		}
	}

	payload := clonePayload(primary.Payload)
	var supplementary []map[string]any
	for i, r := range successful {
		if i == primaryIdx || r.Payload == nil {
			continue
		}
		supplementary = append(supplementary, map[string]any{
			"capability": r.Capability,
			"format":     r.Format,
			"payload":    r.Payload,
		})
	}
	if len(supplementary) > 0 {
		if payload == nil {
			payload = make(map[string]any, 1)
		}
		payload["supplementary"] = supplementary
	}

	return contractx.UnifiedResponse{
		Format:       primary.Format,
		Message:      strings.Join(parts, "\n\n"),
		Payload:      payload,
		QuickReplies: mergeQuickReplies(successful, primaryIdx),
	}
}

func allFailedResponse(responses []contractx.AgentResponse) contractx.UnifiedResponse {
	message := "Sorry, I ran into a problem handling that. Please try again."
	for _, r := range responses {
		if content := strings.TrimSpace(r.Content); content != "" {
			message = content
			break
		}
	}
	return contractx.UnifiedResponse{
		Format:       contractx.FormatError,
		Message:      message,
		QuickReplies: []string{"Try again", "Contact support"},
	}
}

// mergeQuickReplies collects the primary's replies first, then the rest in
// plan order, deduplicated and capped.
func mergeQuickReplies(successful []contractx.AgentResponse, primaryIdx int) []string {
	seen := make(map[string]struct{})
	var merged []string

	appendReplies := func(replies []string) {
		for _, reply := range replies {
			reply = strings.TrimSpace(reply)
			if reply == "" {
				continue
			}
			if _, dup := seen[reply]; dup {
				continue
			}
			seen[reply] = struct{}{}
			merged = append(merged, reply)
		}
	}

	appendReplies(successful[primaryIdx].QuickReplies)
	for i, r := range successful {
		if i != primaryIdx {
			appendReplies(r.QuickReplies)
		}
	}

	if len(merged) > maxQuickReplies {
		merged = merged[:maxQuickReplies]
	}
	return merged
}

func clonePayload(payload map[string]any) map[string]any {
	if payload == nil {
		return nil
	}
	out := make(map[string]any, len(payload))
	for k, v := range payload {
		out[k] = v
	}
	return out
}
