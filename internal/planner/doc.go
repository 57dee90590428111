// Package planner backs live runs with an LLM.
//
// Two concerns live here. The Planner is the decision engine for live
// runs: given the goal and the transcript so far, it picks the next
// concrete action from the closed vocabulary (or declares the goal
// satisfied). The Classifier decides, per recorded step, which input
// values were derived from the goal and should become replay
// parameters.
//
// Both talk to an OpenAI-compatible chat completion endpoint through
// function calling, so the model can only answer in the shapes the
// engine accepts.
package planner
