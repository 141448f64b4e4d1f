// Package agent contains the Reason+Act control loop.
//
// An Agent alternates between two stages from package flow:
//
//  1. Completion: render the system prompt, load the backend, ask for the
//     next assistant message
//  2. Action: execute the requested capabilities and append one result per
//     request
//
// The loop starts in AwaitingCompletion, moves to AwaitingAction whenever the
// backend requests actions and stops in Done on a terminal message. A fixed
// turn ceiling bounds the number of completion rounds; a response that still
// requests actions in the last round is replaced by a fixed apology.
//
// Capabilities are assembled once per Run by default (RefreshPerRun).
// RefreshPerCompletion re-assembles before every stage, which re-runs remote
// discovery each round.
package agent
