package planner

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/openai/openai-go/v3"
	"go.uber.org/zap"

	"github.com/retracehq/retrace/internal/params"
	"github.com/retracehq/retrace/internal/trajectory"
)

const classifierPrompt = `You review one recorded UI action and decide which of its input
values were derived from the user's goal rather than being structural.
Goal-derived values (usernames, search terms, form contents taken from
the goal text) become replay parameters; coordinates, key names, and
fixed UI text stay as recorded. Answer with one declare_parameters
call. Declare nothing when every value is structural.`

// Classifier asks the model which recorded values are goal-derived.
// It implements the params.Classifier contract.
type Classifier struct {
	client *openai.Client
	model  string
	log    *zap.Logger
}

// NewClassifier builds a classifier sharing the planner's connection
// settings.
func NewClassifier(cfg Config) (*Classifier, error) {
	p, err := New(cfg)
	if err != nil {
		return nil, err
	}
	return &Classifier{client: p.client, model: p.model, log: p.log}, nil
}

// Classify reports the goal-derived values in step's input.
func (c *Classifier) Classify(ctx context.Context, goal string, step trajectory.Step) ([]params.Detection, error) {
	stepJSON, err := json.Marshal(step.Input)
	if err != nil {
		return nil, fmt.Errorf("failed to encode step input: %w", err)
	}

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(classifierPrompt),
			openai.UserMessage(fmt.Sprintf("Goal: %s\nAction: %s\nInput: %s", goal, step.Name, stepJSON)),
		},
		Tools:       classifierTools(),
		Temperature: openai.Opt[float64](0),
	})
	if err != nil {
		return nil, fmt.Errorf("classifier request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("classifier returned no choices")
	}

	msg := resp.Choices[0].Message
	if len(msg.ToolCalls) == 0 {
		// The model may answer in prose when nothing is dynamic.
		return nil, nil
	}
	tc := msg.ToolCalls[0]
	if tc.Function.Name != classifierToolName {
		return nil, fmt.Errorf("classifier chose unexpected tool %q", tc.Function.Name)
	}

	detections, err := parseDetections(tc.Function.Arguments)
	if err != nil {
		return nil, err
	}
	for _, d := range detections {
		c.log.Debug("classified parameter",
			zap.String("name", d.Name),
			zap.String("field", d.Field))
	}
	return detections, nil
}

// parseDetections decodes the declare_parameters arguments.
func parseDetections(arguments string) ([]params.Detection, error) {
	var payload struct {
		Parameters []struct {
			Field       string `json:"field"`
			Value       string `json:"value"`
			Name        string `json:"name"`
			Description string `json:"description"`
		} `json:"parameters"`
	}
	if err := json.Unmarshal([]byte(arguments), &payload); err != nil {
		return nil, fmt.Errorf("failed to parse classifier arguments: %w", err)
	}

	out := make([]params.Detection, 0, len(payload.Parameters))
	for _, p := range payload.Parameters {
		if p.Field == "" || p.Name == "" {
			return nil, fmt.Errorf("classifier declared a parameter without field or name")
		}
		out = append(out, params.Detection{
			Field:       p.Field,
			Value:       p.Value,
			Name:        p.Name,
			Description: p.Description,
		})
	}
	return out, nil
}
