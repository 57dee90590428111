package engine

import (
	"context"
	"image"
)

// Action is one concrete operation to perform against the target
// interface. Kind is one of the closed action vocabulary (click, type,
// key, wait, scroll); Input holds that action's resolved arguments.
type Action struct {
	Kind  string
	Input map[string]any
}

// Executor performs actions against the target interface and captures
// its visual state. Implementations wrap a real browser or a scripted
// fake; the engine never inspects the interface directly.
type Executor interface {
	// Dispatch performs a single action. Input values are fully resolved
	// literals; no placeholder tokens reach the executor.
	Dispatch(ctx context.Context, kind string, input map[string]any) error

	// CaptureState returns the current rendered state of the interface.
	CaptureState(ctx context.Context) (image.Image, error)
}

// StepRecord is one entry in the running history handed to the decision
// engine during a live run.
type StepRecord struct {
	Action Action

	// Result is "ok" for successful dispatches, otherwise the error
	// text from the executor.
	Result string
}

// DecisionEngine plans the next action during a live run. It returns
// either the next action to dispatch, or done=true once the goal is
// satisfied.
type DecisionEngine interface {
	NextAction(ctx context.Context, goal string, history []StepRecord) (*Action, bool, error)
}
