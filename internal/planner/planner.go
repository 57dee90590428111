package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"go.uber.org/zap"

	"github.com/retracehq/retrace/internal/engine"
	"github.com/retracehq/retrace/internal/trajectory"
)

const systemPrompt = `You drive a browser one action at a time to accomplish the user's goal.
You see the goal and the actions taken so far with their results.
Respond with exactly one tool call: the next action, or done once the
goal is satisfied. Click coordinates are viewport pixels.`

// Config configures the LLM connection.
type Config struct {
	APIKey  string
	Model   string
	BaseURL string
	Logger  *zap.Logger
}

// Planner picks the next live action. It implements the engine's
// DecisionEngine contract.
type Planner struct {
	client *openai.Client
	model  string
	log    *zap.Logger
}

// New builds a planner. BaseURL is optional and supports
// OpenAI-compatible providers.
func New(cfg Config) (*Planner, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("planner API key not set")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("planner model not set")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	client := openai.NewClient(opts...)
	return &Planner{client: &client, model: cfg.Model, log: cfg.Logger}, nil
}

// NextAction asks the model for the next step toward goal.
func (p *Planner) NextAction(ctx context.Context, goal string, history []engine.StepRecord) (*engine.Action, bool, error) {
	resp, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       p.model,
		Messages:    buildMessages(goal, history),
		Tools:       actionTools(),
		Temperature: openai.Opt[float64](0.1),
	})
	if err != nil {
		return nil, false, fmt.Errorf("planner request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, false, fmt.Errorf("planner returned no choices")
	}

	msg := resp.Choices[0].Message
	if len(msg.ToolCalls) == 0 {
		return nil, false, fmt.Errorf("planner returned no tool call: %s", msg.Content)
	}

	tc := msg.ToolCalls[0]
	action, done, err := parseToolCall(tc.Function.Name, tc.Function.Arguments)
	if err != nil {
		return nil, false, err
	}
	if !done {
		p.log.Debug("planned action", zap.String("kind", action.Kind))
	}
	return action, done, nil
}

// buildMessages assembles the conversation: system prompt, goal, and
// the transcript of actions already taken.
func buildMessages(goal string, history []engine.StepRecord) []openai.ChatCompletionMessageParamUnion {
	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(systemPrompt),
		openai.UserMessage("Goal: " + goal),
	}
	if len(history) == 0 {
		return messages
	}

	var b strings.Builder
	b.WriteString("Actions so far:\n")
	for i, rec := range history {
		args, _ := json.Marshal(rec.Action.Input)
		fmt.Fprintf(&b, "%d. %s(%s) -> %s\n", i+1, rec.Action.Kind, args, rec.Result)
	}
	return append(messages, openai.UserMessage(b.String()))
}

// parseToolCall converts one model tool call into an engine action.
func parseToolCall(name, arguments string) (*engine.Action, bool, error) {
	if name == doneToolName {
		return nil, true, nil
	}
	if !trajectory.KnownAction(name) {
		return nil, false, fmt.Errorf("planner chose unknown action %q", name)
	}

	input := map[string]any{}
	if arguments != "" {
		if err := json.Unmarshal([]byte(arguments), &input); err != nil {
			return nil, false, fmt.Errorf("failed to parse %s arguments: %w", name, err)
		}
	}
	// Coordinates arrive as float64; keep them integral for the cache.
	for _, key := range []string{"x", "y"} {
		if f, ok := input[key].(float64); ok && f == float64(int(f)) {
			input[key] = int(f)
		}
	}
	return &engine.Action{Kind: name, Input: input}, false, nil
}
