package testutil

import (
	"github.com/google/go-cmp/cmp"

	"github.com/hupe1980/reactmesh/core"
)

// Entry is a comparable projection of a message with generated IDs removed.
type Entry struct {
	Role    core.Role
	Text    string
	Actions []string // requested capability names
	Answers string   // capability name an action result answers
	IsError bool
}

// Summarize projects msgs into entries.
func Summarize(msgs []core.Message) []Entry {
	out := make([]Entry, len(msgs))
	for i, m := range msgs {
		e := Entry{Role: m.Role, Text: m.Text(), Answers: m.Name, IsError: m.IsError}
		for _, r := range m.ActionRequests {
			e.Actions = append(e.Actions, r.Name)
		}
		out[i] = e
	}
	return out
}

// DiffTranscript returns a go-cmp diff between the wanted entries and the
// projection of got, or "" when they match.
func DiffTranscript(want []Entry, got []core.Message) string {
	return cmp.Diff(want, Summarize(got))
}

// Correlated reports whether every action request in msgs is answered by
// exactly one later action result carrying its ID.
func Correlated(msgs []core.Message) bool {
	pending := map[string]int{}
	for _, m := range msgs {
		for _, r := range m.ActionRequests {
			pending[r.ID]++
		}
		if m.Role == core.RoleActionResult {
			pending[m.RequestID]--
		}
	}
	for _, n := range pending {
		if n != 0 {
			return false
		}
	}
	return true
}

// TranscriptBuilder assembles a history fluently:
//
//	msgs := testutil.NewTranscript().Human("hi").Assistant("hello").Build()
type TranscriptBuilder struct {
	msgs []core.Message
}

// NewTranscript starts an empty transcript.
func NewTranscript() *TranscriptBuilder { return &TranscriptBuilder{} }

// Human appends a human message.
func (b *TranscriptBuilder) Human(text string) *TranscriptBuilder {
	b.msgs = append(b.msgs, core.NewHumanMessage(text))
	return b
}

// Assistant appends an assistant message.
func (b *TranscriptBuilder) Assistant(text string, reqs ...core.ActionRequest) *TranscriptBuilder {
	b.msgs = append(b.msgs, core.NewAssistantMessage(text, reqs...))
	return b
}

// Result appends an action result.
func (b *TranscriptBuilder) Result(requestID, name string, content any, isError bool) *TranscriptBuilder {
	b.msgs = append(b.msgs, core.NewActionResultMessage(requestID, name, content, isError))
	return b
}

// Build returns the assembled messages.
func (b *TranscriptBuilder) Build() []core.Message { return core.CloneMessages(b.msgs) }

// Request builds an action request with a fixed ID.
func Request(id, name string, args map[string]any) core.ActionRequest {
	if args == nil {
		args = map[string]any{}
	}
	return core.ActionRequest{ID: id, Name: name, Arguments: args}
}
