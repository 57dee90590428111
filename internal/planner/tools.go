package planner

import "github.com/openai/openai-go/v3"

// doneToolName is the tool the model calls to end the run.
const doneToolName = "done"

// actionTools is the function-calling surface for live runs: the five
// trajectory actions plus the completion signal.
func actionTools() []openai.ChatCompletionToolUnionParam {
	return []openai.ChatCompletionToolUnionParam{
		openai.ChatCompletionFunctionTool(openai.FunctionDefinitionParam{
			Name:        "click",
			Description: openai.String("Click at a pixel coordinate in the viewport."),
			Parameters: openai.FunctionParameters{
				"type": "object",
				"properties": map[string]any{
					"x": map[string]any{
						"type":        "integer",
						"description": "Horizontal pixel position, 0 at the left edge.",
					},
					"y": map[string]any{
						"type":        "integer",
						"description": "Vertical pixel position, 0 at the top edge.",
					},
				},
				"required": []string{"x", "y"},
			},
		}),
		openai.ChatCompletionFunctionTool(openai.FunctionDefinitionParam{
			Name:        "type",
			Description: openai.String("Type text into the focused element."),
			Parameters: openai.FunctionParameters{
				"type": "object",
				"properties": map[string]any{
					"text": map[string]any{
						"type":        "string",
						"description": "The text to type.",
					},
				},
				"required": []string{"text"},
			},
		}),
		openai.ChatCompletionFunctionTool(openai.FunctionDefinitionParam{
			Name:        "key",
			Description: openai.String("Press a single key."),
			Parameters: openai.FunctionParameters{
				"type": "object",
				"properties": map[string]any{
					"key": map[string]any{
						"type":        "string",
						"description": "Key name.",
						"enum": []string{
							"Enter", "Tab", "Escape", "Backspace", "Delete",
							"ArrowUp", "ArrowDown", "ArrowLeft", "ArrowRight",
						},
					},
				},
				"required": []string{"key"},
			},
		}),
		openai.ChatCompletionFunctionTool(openai.FunctionDefinitionParam{
			Name:        "wait",
			Description: openai.String("Pause while the interface settles."),
			Parameters: openai.FunctionParameters{
				"type": "object",
				"properties": map[string]any{
					"seconds": map[string]any{
						"type":        "number",
						"description": "How long to wait, in seconds.",
					},
				},
				"required": []string{"seconds"},
			},
		}),
		openai.ChatCompletionFunctionTool(openai.FunctionDefinitionParam{
			Name:        "scroll",
			Description: openai.String("Scroll the page."),
			Parameters: openai.FunctionParameters{
				"type": "object",
				"properties": map[string]any{
					"direction": map[string]any{
						"type": "string",
						"enum": []string{"up", "down"},
					},
				},
				"required": []string{"direction"},
			},
		}),
		openai.ChatCompletionFunctionTool(openai.FunctionDefinitionParam{
			Name:        doneToolName,
			Description: openai.String("Call when the goal is fully satisfied. Ends the run."),
			Parameters: openai.FunctionParameters{
				"type":       "object",
				"properties": map[string]any{},
			},
		}),
	}
}

// classifierToolName is the single tool the classifier model answers
// with.
const classifierToolName = "declare_parameters"

func classifierTools() []openai.ChatCompletionToolUnionParam {
	return []openai.ChatCompletionToolUnionParam{
		openai.ChatCompletionFunctionTool(openai.FunctionDefinitionParam{
			Name:        classifierToolName,
			Description: openai.String("Declare which recorded input values were derived from the goal."),
			Parameters: openai.FunctionParameters{
				"type": "object",
				"properties": map[string]any{
					"parameters": map[string]any{
						"type": "array",
						"items": map[string]any{
							"type": "object",
							"properties": map[string]any{
								"field": map[string]any{
									"type":        "string",
									"description": "The input key holding the goal-derived value.",
								},
								"value": map[string]any{
									"type":        "string",
									"description": "The exact goal-derived substring. Empty if the whole value is goal-derived.",
								},
								"name": map[string]any{
									"type":        "string",
									"description": "A short snake_case parameter name.",
								},
								"description": map[string]any{
									"type":        "string",
									"description": "What the value represents.",
								},
							},
							"required": []string{"field", "name", "description"},
						},
					},
				},
				"required": []string{"parameters"},
			},
		}),
	}
}
