package core

import (
	"fmt"
	"sync"

	"github.com/hupe1980/reactmesh/config"
)

// State is the session state threaded through one loop invocation: the
// ordered transcript, the configuration record and the turn counter.
//
// Contract:
//   - History is append-only; Messages returns a copy
//   - The turn counter increases monotonically and never exceeds MaxTurns
//   - The mutex only guards against accidental sharing; a State is owned by
//     exactly one loop invocation.
type State struct {
	Config config.Config

	mu       sync.RWMutex
	messages []Message
	turn     int
	maxTurns int
}

// NewState creates a state seeded with the caller-supplied messages.
// maxTurns <= 0 selects DefaultMaxTurns.
func NewState(cfg config.Config, maxTurns int, initial ...Message) *State {
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}
	return &State{Config: cfg, messages: CloneMessages(initial), maxTurns: maxTurns}
}

// Append adds messages to the end of the history.
func (s *State) Append(msgs ...Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msgs...)
}

// Messages returns a copy of the full history in insertion order.
func (s *State) Messages() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return CloneMessages(s.messages)
}

// Len returns the number of messages in the history.
func (s *State) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

// Last returns the most recent message, if any.
func (s *State) Last() (Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.messages) == 0 {
		return Message{}, false
	}
	return s.messages[len(s.messages)-1].Clone(), true
}

// NextTurn advances the turn counter. It fails once the ceiling has been
// reached so the counter can never exceed it.
func (s *State) NextTurn() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.turn >= s.maxTurns {
		return s.turn, fmt.Errorf("turn ceiling %d reached", s.maxTurns)
	}
	s.turn++
	return s.turn, nil
}

// Turn returns the number of completion rounds executed so far.
func (s *State) Turn() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.turn
}

// MaxTurns returns the fixed turn ceiling.
func (s *State) MaxTurns() int { return s.maxTurns }

// IsLastStep reports whether the current turn is the final allowed round.
func (s *State) IsLastStep() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.turn >= s.maxTurns
}
