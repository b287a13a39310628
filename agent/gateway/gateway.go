// Package gateway is the call contract to the external structured-completion
// capability. Each call site compiles a typed graph (prompt -> chat model ->
// JSON parser) once and invokes it per turn; the model itself stays a black
// box behind einomodel.BaseChatModel so tests substitute a canned fake.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"

	einomodel "github.com/cloudwego/eino/components/model"
	einoprompt "github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"

	contractx "github.com/chatwright/chatwright/agent/contract"
)

const defaultRetries = 1

// Structured wraps a compiled structured-completion graph with a small retry
// budget for transient gateway failures.
type Structured[T any] struct {
	name    string
	runner  compose.Runnable[map[string]any, T]
	retries int
}

type Option func(*settings)

type settings struct {
	retries int
}

// WithRetries overrides the gateway retry budget (0 disables retries).
func WithRetries(n int) Option {
	return func(s *settings) {
		if n >= 0 {
			s.retries = n
		}
	}
}

// NewStructured compiles a prompt -> model -> parse_json graph producing T.
func NewStructured[T any](
	ctx context.Context,
	chatModel einomodel.BaseChatModel,
	systemPrompt string,
	graphName string,
	opts ...Option,
) (*Structured[T], error) {
	cfg := settings{retries: defaultRetries}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	runner, err := compileStructuredGraph[T](ctx, chatModel, systemPrompt, graphName)
	if err != nil {
		return nil, fmt.Errorf("%w: compile %s: %v", contractx.ErrModelInvoke, graphName, err)
	}
	return &Structured[T]{
		name:    graphName,
		runner:  runner,
		retries: cfg.retries,
	}, nil
}

// Complete marshals payload as the user input and invokes the graph,
// retrying transient failures within the budget.
func (g *Structured[T]) Complete(ctx context.Context, payload any) (T, error) {
	var zero T

	input, err := json.Marshal(payload)
	if err != nil {
		return zero, fmt.Errorf("%w: marshal gateway payload: %v", contractx.ErrValidation, err)
	}

	var lastErr error
	for attempt := 0; attempt <= g.retries; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		out, err := g.runner.Invoke(ctx, map[string]any{"input": string(input)})
		if err == nil {
			return out, nil
		}
		lastErr = err
		if attempt < g.retries {
			log.Debug().Err(err).Str("graph", g.name).Int("attempt", attempt+1).Msg("gateway invoke retry")
		}
	}
	return zero, fmt.Errorf("%w: %s: %v", contractx.ErrModelInvoke, g.name, lastErr)
}

func compileStructuredGraph[T any](
	ctx context.Context,
	chatModel einomodel.BaseChatModel,
	systemPrompt string,
	graphName string,
) (compose.Runnable[map[string]any, T], error) {
	template := einoprompt.FromMessages(
		schema.FString,
		schema.SystemMessage(systemPrompt),
		schema.UserMessage("{input}"),
	)

	parser := schema.NewMessageJSONParser[T](&schema.MessageJSONParseConfig{
		ParseFrom: schema.MessageParseFromContent,
	})

	graph := compose.NewGraph[map[string]any, T]()
	if err := graph.AddChatTemplateNode("prompt", template); err != nil {
		return nil, fmt.Errorf("add prompt node: %w", err)
	}
	if err := graph.AddChatModelNode("model", chatModel); err != nil {
		return nil, fmt.Errorf("add model node: %w", err)
	}
	if err := graph.AddLambdaNode("parse_json", compose.MessageParser(parser)); err != nil {
		return nil, fmt.Errorf("add parser node: %w", err)
	}

	if err := graph.AddEdge(compose.START, "prompt"); err != nil {
		return nil, fmt.Errorf("add edge start->prompt: %w", err)
	}
	if err := graph.AddEdge("prompt", "model"); err != nil {
		return nil, fmt.Errorf("add edge prompt->model: %w", err)
	}
	if err := graph.AddEdge("model", "parse_json"); err != nil {
		return nil, fmt.Errorf("add edge model->parse: %w", err)
	}
	if err := graph.AddEdge("parse_json", compose.END); err != nil {
		return nil, fmt.Errorf("add edge parse->end: %w", err)
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName(graphName))
	if err != nil {
		return nil, fmt.Errorf("compile graph: %w", err)
	}
	return runner, nil
}
