package core

// DefaultMaxTurns is the fixed ceiling on completion rounds per loop invocation.
const DefaultMaxTurns = 12

// BudgetExhaustedMessage replaces a response that still requests actions
// after the turn ceiling has been reached.
const BudgetExhaustedMessage = "Sorry, I could not find an answer in the allowed number of steps."

// BudgetExhausted reports whether a response carrying pending action requests
// must be replaced by the terminal budget message. turn is the 1-based number
// of the completion round that produced the response.
func BudgetExhausted(turn, ceiling, pending int) bool {
	return pending > 0 && turn >= ceiling
}
