// Package classifier produces one UserIntent per turn from the user message,
// the recent history window, and the domain's conversation-type vocabulary.
package classifier

import (
	"context"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"

	contractx "github.com/chatwright/chatwright/agent/contract"
	gatewayx "github.com/chatwright/chatwright/agent/gateway"
	promptx "github.com/chatwright/chatwright/agent/prompt"
	schemax "github.com/chatwright/chatwright/agent/schema"
)

type llmIntent struct {
	ConversationType string         `json:"conversation_type"`
	Confidence       float64        `json:"confidence"`
	Entities         map[string]any `json:"entities,omitempty"`
}

type Classifier struct {
	gw *gatewayx.Structured[llmIntent]
}

var _ contractx.IntentClassifier = (*Classifier)(nil)

func New(ctx context.Context, chatModel einomodel.BaseChatModel, opts ...gatewayx.Option) (*Classifier, error) {
	prompts := promptx.LoadPromptSet()
	gw, err := gatewayx.NewStructured[llmIntent](ctx, chatModel, prompts.Classifier, "classifier.model_graph", opts...)
	if err != nil {
		return nil, err
	}
	return &Classifier{gw: gw}, nil
}

// Classify returns the turn's UserIntent. Any gateway failure or
// schema-invalid output surfaces as ErrClassification; the orchestrator
// degrades it to a zero-confidence general_conversation intent.
func (c *Classifier) Classify(ctx context.Context, req contractx.ClassifyRequest) (contractx.UserIntent, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return contractx.UserIntent{}, fmt.Errorf("%w: message is empty", contractx.ErrValidation)
	}

	desc := schemax.For(req.Domain)
	payload := map[string]any{
		"message":              message,
		"business_domain":      desc.Domain,
		"conversation_types":   desc.ConversationTypes,
		"conversation_history": formatHistory(req.Window),
		"current_context":      req.Context,
	}

	out, err := c.gw.Complete(ctx, payload)
	if err != nil {
		return contractx.UserIntent{}, fmt.Errorf("%w: %v", contractx.ErrClassification, err)
	}

	ct := contractx.ConversationType(strings.ToLower(strings.TrimSpace(out.ConversationType)))
	if !desc.HasConversationType(ct) {
		return contractx.UserIntent{}, fmt.Errorf("%w: %w: conversation_type=%q",
			contractx.ErrClassification, contractx.ErrSchemaViolation, out.ConversationType)
	}
	if out.Confidence < 0 || out.Confidence > 1 {
		return contractx.UserIntent{}, fmt.Errorf("%w: %w: confidence=%v out of range",
			contractx.ErrClassification, contractx.ErrSchemaViolation, out.Confidence)
	}

	entities := out.Entities
	if entities == nil {
		entities = map[string]any{}
	}
	return contractx.UserIntent{
		ConversationType: ct,
		Confidence:       out.Confidence,
		Entities:         entities,
	}, nil
}

func formatHistory(window []contractx.Message) string {
	if len(window) == 0 {
		return ""
	}
	lines := make([]string, 0, len(window))
	for _, msg := range window {
		role := "User"
		if msg.Role == contractx.RoleAssistant {
			role = "Assistant"
		}
		lines = append(lines, role+": "+msg.Content)
	}
	return strings.Join(lines, "\n")
}
