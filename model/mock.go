package model

import (
	"context"
	"fmt"
	"sync"

	"github.com/hupe1980/reactmesh/core"
)

// MockStep is one scripted reply of a MockModel.
type MockStep struct {
	Message core.Message
	Err     error
}

// MockModel is a lightweight in-memory Model useful for tests & examples.
// Replies are consumed in order; once the script is exhausted the handler (if
// any) answers, otherwise the last step repeats. Without any step it echoes
// the last message text.
type MockModel struct {
	info Info

	mu       sync.Mutex
	steps    []MockStep
	handler  func(req Request) (core.Message, error)
	calls    int
	requests []Request
}

var _ Model = (*MockModel)(nil)

// NewMockModel constructs a MockModel with basic tool support enabled.
func NewMockModel(name, provider string) *MockModel {
	return &MockModel{info: Info{Name: name, Provider: provider, SupportsTools: true}}
}

// Reply appends a scripted assistant reply.
func (m *MockModel) Reply(msg core.Message) *MockModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.steps = append(m.steps, MockStep{Message: msg})
	return m
}

// ReplyText appends a terminal text reply.
func (m *MockModel) ReplyText(text string) *MockModel {
	return m.Reply(core.NewAssistantMessage(text))
}

// ReplyActions appends a reply requesting the given actions.
func (m *MockModel) ReplyActions(requests ...core.ActionRequest) *MockModel {
	return m.Reply(core.NewAssistantMessage("", requests...))
}

// Fail appends a scripted failure.
func (m *MockModel) Fail(err error) *MockModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.steps = append(m.steps, MockStep{Err: err})
	return m
}

// Handle sets a dynamic responder used once the script is exhausted.
func (m *MockModel) Handle(fn func(req Request) (core.Message, error)) *MockModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handler = fn
	return m
}

// Calls returns the number of Generate invocations.
func (m *MockModel) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Requests returns copies of all received requests.
func (m *MockModel) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.requests))
	for i, r := range m.requests {
		out[i] = Request{Messages: core.CloneMessages(r.Messages), Tools: r.Tools, Stream: r.Stream}
	}
	return out
}

func (m *MockModel) next(req Request) (core.Message, error) {
	m.mu.Lock()
	idx := m.calls
	m.calls++
	m.requests = append(m.requests, Request{Messages: core.CloneMessages(req.Messages), Tools: req.Tools, Stream: req.Stream})
	steps := m.steps
	handler := m.handler
	m.mu.Unlock()

	switch {
	case idx < len(steps):
		return steps[idx].Message.Clone(), steps[idx].Err
	case handler != nil:
		return handler(req)
	case len(steps) > 0:
		last := steps[len(steps)-1]
		msg := last.Message.Clone()
		for i := range msg.ActionRequests {
			msg.ActionRequests[i].ID = core.NewID()
		}
		msg.ID = core.NewID()
		return msg, last.Err
	}

	var input string
	if n := len(req.Messages); n > 0 {
		input = req.Messages[n-1].Text()
	}
	return core.NewAssistantMessage(fmt.Sprintf("Mock response to: %s", input)), nil
}

// Generate implements Model; emits optional streaming char chunks then final response.
func (m *MockModel) Generate(ctx context.Context, req Request) (<-chan Response, <-chan error) {
	respCh := make(chan Response, 16)
	errCh := make(chan error, 1)

	go func() {
		defer close(respCh)
		defer close(errCh)

		if len(req.Messages) == 0 {
			errCh <- fmt.Errorf("no messages provided")
			return
		}

		msg, err := m.next(req)
		if err != nil {
			errCh <- err
			return
		}

		if req.Stream {
			for _, r := range msg.Text() {
				select {
				case <-ctx.Done():
					errCh <- ctx.Err()
					return
				case respCh <- Response{Partial: true, Message: core.NewAssistantMessage(string(r))}:
				}
			}
		}

		finish := "stop"
		if msg.HasActionRequests() {
			finish = "tool_calls"
		}

		select {
		case <-ctx.Done():
			errCh <- ctx.Err()
		case respCh <- Response{ID: msg.ID, Message: msg, FinishReason: finish}:
		}
	}()

	return respCh, errCh
}

// Info implements Model interface.
func (m *MockModel) Info() Info { return m.info }
