// Package core provides the foundational domain types shared by the agent
// loop and its collaborators:
//
//   - Messages (typed content parts, action requests and action results)
//   - State (ordered transcript, configuration record and turn counter)
//   - The turn ceiling check used by both the completion stage and the loop
//
// The package keeps implementation concerns (backends, capabilities,
// persistence) out of scope so that every other package can depend on it.
package core
